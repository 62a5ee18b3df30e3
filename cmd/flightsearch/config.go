package main

import (
	"fmt"

	"github.com/kbukum/flightsearch/config"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/flights/mockapi"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/search"
	"github.com/kbukum/flightsearch/searchapi"
	"github.com/kbukum/flightsearch/server"
)

const serviceName = "flightsearch"

type appConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	API           flights.ClientConfig `yaml:"api" mapstructure:"api"`
	Search        search.Config        `yaml:"search" mapstructure:"search"`
	HTTP          searchapi.Config     `yaml:"http" mapstructure:"http"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Mock          mockapi.Config       `yaml:"mock" mapstructure:"mock"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`

	// apiSelf is set when API.BaseURL was derived from Server, so serve
	// prices against its own mock API.
	apiSelf bool
}

func (c *appConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	c.Server.ApplyDefaults()
	if c.API.BaseURL == "" {
		c.API.BaseURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
		c.apiSelf = true
	}
	c.API.ApplyDefaults()
	c.Search.ApplyDefaults()
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
}

func (c *appConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("config.api: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("config.search: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("config.http: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("config.server: %w", err)
	}
	if err := c.Mock.Validate(); err != nil {
		return fmt.Errorf("config.mock: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	return nil
}
