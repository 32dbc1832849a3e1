package shared

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type config struct {
	factor int
}

func TestHandle_CloneSharesValue(t *testing.T) {
	cfg := &config{factor: 2}
	h := Share(cfg)

	c := h.Clone()
	require.True(t, h.Same(c))
	assert.Same(t, cfg, c.Get())
	assert.Equal(t, int64(1), h.Clones())
	assert.Equal(t, int64(1), c.Clones())
}

func TestHandle_ConcurrentClones(t *testing.T) {
	h := Share("ctx")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := h.Clone()
			for range 10 {
				assert.Equal(t, "ctx", w.Clone().Get())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(16+16*10), h.Clones())
}

func TestHandle_DistinctShares(t *testing.T) {
	a := Share(1)
	b := Share(1)
	assert.False(t, a.Same(b))
}

func TestHandle_ZeroValue(t *testing.T) {
	var h Handle[int]

	c := h.Clone()
	assert.Equal(t, 0, c.Get())
	assert.Equal(t, int64(0), c.Clones())
	assert.True(t, h.Same(c))
	assert.False(t, h.Same(Share(0)))
}

func TestValue_Clone(t *testing.T) {
	v := Value[int]{V: 2}
	c := v.Clone()
	assert.Equal(t, 2, c.V)

	var _ Cloner[Value[int]] = v
	var _ Cloner[Handle[int]] = Share(0)
}
