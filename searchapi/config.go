package searchapi

import (
	"time"

	"github.com/kbukum/flightsearch/validation"
)

// Config configures the HTTP search endpoints.
type Config struct {
	// StreamBuffer is the per-stream event queue. Zero uses sse.DefaultBuffer.
	StreamBuffer int `yaml:"stream_buffer" mapstructure:"stream_buffer" json:"stream_buffer" validate:"gte=0"`
	// KeepAlive is the stream comment interval. Zero uses sse.DefaultKeepAlive.
	KeepAlive time.Duration `yaml:"keep_alive" mapstructure:"keep_alive" json:"keep_alive" validate:"gte=0"`
	// Timeout bounds GET /search. Zero leaves it to the client.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout" validate:"gte=0"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
