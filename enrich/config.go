package enrich

import (
	"time"

	"github.com/kbukum/flightsearch/validation"
)

// Policy decides what a per-item failure does to the rest of the round.
type Policy string

const (
	// FailFast cancels every sibling on the first per-item failure and
	// fails the pipeline.
	FailFast Policy = "fail_fast"
	// Isolate reports a per-item failure as a warning; siblings continue.
	Isolate Policy = "isolate"
)

// Config configures a Coordinator.
type Config struct {
	Policy Policy `yaml:"policy" mapstructure:"policy" json:"policy" validate:"oneof=fail_fast isolate"`
	// ItemTimeout bounds each per-item fetch. Zero disables it.
	ItemTimeout time.Duration `yaml:"item_timeout" mapstructure:"item_timeout" json:"item_timeout" validate:"gte=0"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Policy == "" {
		c.Policy = FailFast
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
