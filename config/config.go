package config

import (
	"github.com/kbukum/loop/logger"
	"github.com/kbukum/loop/observability"
	"github.com/kbukum/loop/validation"
	"github.com/kbukum/loop/workers"
)

// Config is the full configuration of a loop-based program.
type Config struct {
	Name        string               `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string               `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Pool        workers.Config       `yaml:"pool" mapstructure:"pool"`
	Logging     logger.Config        `yaml:"logging" mapstructure:"logging"`
	Telemetry   observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills zero values. Pool fields stay zero, which means
// "automatic".
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
}

// Validate checks every section and reports all problems at once as an
// INVALID_CONFIG error.
func (c *Config) Validate() error {
	return validation.New().
		Merge("", validation.Struct(c)).
		Merge("logging", c.Logging.Validate()).
		Validate()
}
