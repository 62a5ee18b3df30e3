package flights

import (
	"time"

	"github.com/kbukum/flightsearch/fetch"
	"github.com/kbukum/flightsearch/validation"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "flightsearch"
)

// ClientConfig configures the flights API client.
type ClientConfig struct {
	// BaseURL is prepended to every request path.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url" validate:"required,url"`
	// Timeout bounds every request. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout" validate:"gt=0"`
	// Headers are sent with every request.
	Headers   map[string]string `yaml:"headers" mapstructure:"headers" json:"headers"`
	UserAgent string            `yaml:"user_agent" mapstructure:"user_agent" json:"user_agent"`
	// RateLimit caps requests per second across the client. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" json:"rate_limit" validate:"gte=0"`
	// RateBurst is the limiter's burst size. Defaults to 1 when RateLimit is set.
	RateBurst int `yaml:"rate_burst" mapstructure:"rate_burst" json:"rate_burst" validate:"gte=0"`
	// Breaker guards each endpoint separately. Disabled by default.
	Breaker fetch.BreakerConfig `yaml:"breaker" mapstructure:"breaker" json:"breaker"`
}

// ApplyDefaults fills in zero-value fields.
func (c *ClientConfig) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = 1
	}
}

// Validate checks the configuration.
func (c *ClientConfig) Validate() error {
	return validation.Validate(c)
}
