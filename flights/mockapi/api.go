package mockapi

import (
	"context"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/server"
	"github.com/kbukum/flightsearch/validation"
)

// Config shapes the mock API's behavior.
type Config struct {
	// MinLatency and MaxLatency bound the delay added to each price quote.
	MinLatency time.Duration `yaml:"min_latency" mapstructure:"min_latency" json:"min_latency" validate:"gte=0"`
	MaxLatency time.Duration `yaml:"max_latency" mapstructure:"max_latency" json:"max_latency" validate:"gtefield=MinLatency"`
	// ListingLatency delays every ticket listing.
	ListingLatency time.Duration `yaml:"listing_latency" mapstructure:"listing_latency" json:"listing_latency" validate:"gte=0"`
	// FailFlights answer price quotes with 503.
	FailFlights []string `yaml:"fail_flights" mapstructure:"fail_flights" json:"fail_flights"`
	// FailListing answers every listing with 503.
	FailListing bool `yaml:"fail_listing" mapstructure:"fail_listing" json:"fail_listing"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// API serves the flights endpoints from the built-in catalog.
type API struct {
	cfg Config
	log *logger.Logger
}

// New creates the API.
func New(cfg Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &API{cfg: cfg, log: logger.Get("mockapi")}, nil
}

// Register mounts the endpoints on r.
func (a *API) Register(r gin.IRoutes) {
	r.GET(flights.PathTickets, a.tickets)
	r.GET(flights.PathPrice, a.price)
}

// CheckHealth implements observability.HealthChecker.
func (a *API) CheckHealth(context.Context) observability.Health {
	h := observability.Health{
		Name:    "mockapi",
		Status:  observability.HealthStatusUp,
		Details: map[string]any{"airports": len(Airports)},
	}
	if a.cfg.FailListing {
		h.Status = observability.HealthStatusDegraded
		h.Message = "listing failure injected"
	}
	return h
}

func (a *API) tickets(c *gin.Context) {
	q := flights.Query{From: c.Query("from"), To: c.Query("to")}
	if err := q.Validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if !sleep(c.Request.Context(), a.cfg.ListingLatency) {
		return
	}
	if a.cfg.FailListing {
		server.RespondWithError(c, errors.ServiceUnavailable("tickets"))
		return
	}
	if !HasRoute(q.From, q.To) {
		server.RespondWithError(c, errors.NotFound("route", q.From+"-"+q.To))
		return
	}
	c.JSON(http.StatusOK, Tickets(q.From, q.To))
}

func (a *API) price(c *gin.Context) {
	req := flights.PriceRequest{
		FlightNumber: c.Query("flight_number"),
		From:         c.Query("from"),
		To:           c.Query("to"),
	}
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if !sleep(c.Request.Context(), a.latency()) {
		return
	}
	if slices.Contains(a.cfg.FailFlights, req.FlightNumber) {
		a.log.Debug("price failure injected", logger.Fields(logger.FieldIdentity, req.FlightNumber))
		server.RespondWithError(c, errors.ServiceUnavailable("price"))
		return
	}
	p, ok := PriceOf(req.FlightNumber, req.From, req.To)
	if !ok {
		server.RespondWithError(c, errors.NotFound("flight", req.FlightNumber))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) latency() time.Duration {
	lo, hi := a.cfg.MinLatency, a.cfg.MaxLatency
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

// sleep waits d or until ctx is done; false means the caller went away.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
