package workload

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/validation"
)

// Spec describes a synthetic job: Count items, each taking Delay to map.
// When FailEvery is positive, every FailEvery-th item fails.
type Spec struct {
	Count     int           `yaml:"count" mapstructure:"count" validate:"gte=0"`
	Delay     time.Duration `yaml:"delay" mapstructure:"delay" validate:"gte=0"`
	Mode      string        `yaml:"mode" mapstructure:"mode" validate:"oneof=blocking async"`
	FailEvery int           `yaml:"fail_every" mapstructure:"fail_every" validate:"gte=0"`
}

// ApplyDefaults fills zero values.
func (s *Spec) ApplyDefaults() {
	if s.Mode == "" {
		s.Mode = observability.ModeBlocking
	}
}

// Validate checks the spec.
func (s Spec) Validate() error {
	return validation.Struct(s)
}

// Items yields 0 through Count-1.
func (s Spec) Items() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range s.Count {
			if !yield(i) {
				return
			}
		}
	}
}

// Probe tracks how many mapping calls run at once. One probe is shared by
// every worker of a run, so Clone returns the receiver.
type Probe struct {
	active atomic.Int64
	peak   atomic.Int64
	calls  atomic.Int64
}

// NewProbe returns a probe with no calls recorded.
func NewProbe() *Probe { return &Probe{} }

// Clone returns p itself, so every worker records into the same probe.
func (p *Probe) Clone() *Probe { return p }

// Enter marks a call as running and returns the function that ends it.
func (p *Probe) Enter() func() {
	p.calls.Add(1)
	cur := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if cur <= peak || p.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	return func() { p.active.Add(-1) }
}

// Peak returns the highest number of concurrent calls seen.
func (p *Probe) Peak() int64 { return p.peak.Load() }

// Calls returns the number of calls made.
func (p *Probe) Calls() int64 { return p.calls.Load() }

// Active returns the number of calls currently running.
func (p *Probe) Active() int64 { return p.active.Load() }

// ErrRejected is returned for the items a spec is set to fail.
var ErrRejected = stderrors.New("item rejected")

// Map is the synthetic mapping function. It waits Delay, or until ctx ends,
// and returns a value unique to item.
func (s Spec) Map(ctx context.Context, item int, p *Probe) (int, error) {
	defer p.Enter()()
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}
	if s.FailEvery > 0 && (item+1)%s.FailEvery == 0 {
		return 0, fmt.Errorf("item %d: %w", item, ErrRejected)
	}
	return item*2 + 1, nil
}

// Report summarizes a run.
type Report struct {
	Mode     string        `json:"mode"`
	Items    int           `json:"items"`
	Results  int           `json:"results"`
	Failed   int           `json:"failed"`
	Distinct int           `json:"distinct"`
	Workers  int           `json:"workers"`
	Peak     int64         `json:"peak_concurrency"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Complete reports whether every item produced exactly one result.
func (r Report) Complete() bool {
	return r.Results == r.Items && r.Distinct == r.Items-r.Failed
}

// String formats r as one line of key=value pairs.
func (r Report) String() string {
	return fmt.Sprintf("mode=%s items=%d results=%d failed=%d distinct=%d workers=%d peak=%d elapsed=%s",
		r.Mode, r.Items, r.Results, r.Failed, r.Distinct, r.Workers, r.Peak, r.Elapsed.Round(time.Microsecond))
}

func distinct(values []int) int {
	seen := make(map[int]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
