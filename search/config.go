package search

import (
	"github.com/kbukum/flightsearch/enrich"
	"github.com/kbukum/flightsearch/validation"
)

// Config configures a search session.
type Config struct {
	Enrichment enrich.Config `yaml:"enrichment" mapstructure:"enrichment" json:"enrichment"`
	// ReplayLimit caps the listings kept for late subscribers. Zero uses
	// multicast.DefaultBufferLimit; negative keeps everything.
	ReplayLimit int `yaml:"replay_limit" mapstructure:"replay_limit" json:"replay_limit"`
	// Workers bounds concurrent fetches. Zero means unbounded.
	Workers int `yaml:"workers" mapstructure:"workers" json:"workers" validate:"gte=0"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	c.Enrichment.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.Enrichment.Validate()
}
