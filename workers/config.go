package workers

import (
	"github.com/kbukum/loop/validation"
)

// Config is the pool section of a configuration file. Zero values mean
// "automatic": Workers falls back to Available and Capacity to the worker
// count.
type Config struct {
	Workers  int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	Capacity int `yaml:"capacity" mapstructure:"capacity" validate:"gte=0"`
}

// Validate validates pool configuration.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// Requests converts the config into optional worker and capacity requests,
// suitable for Resolve and Capacity.
func (c Config) Requests() (workers, capacity *int) {
	if c.Workers > 0 {
		w := c.Workers
		workers = &w
	}
	if c.Capacity > 0 {
		q := c.Capacity
		capacity = &q
	}
	return workers, capacity
}

// Resolved returns the effective worker count and queue capacity.
func (c Config) Resolved() (n, capacity int) {
	w, q := c.Requests()
	n = Resolve(w)
	return n, Capacity(q, n)
}
