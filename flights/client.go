package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/logger"
)

// API paths.
const (
	PathTickets = "/airline-tickets.php"
	PathPrice   = "/airline-tickets-price.php"
)

// Client calls the flights API.
type Client struct {
	http    *http.Client
	cfg     ClientConfig
	base    *url.URL
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewClient creates a client from cfg.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.InvalidInput("base_url", err.Error())
	}

	c := &Client{
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		},
		cfg:  cfg,
		base: base,
		log:  logger.Get("flights"),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	return c, nil
}

// Limiter returns the client-wide rate limiter, or nil when disabled.
func (c *Client) Limiter() *rate.Limiter { return c.limiter }

// SearchTickets lists the tickets on q's route.
func (c *Client) SearchTickets(ctx context.Context, q Query) ([]Ticket, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var tickets []Ticket
	err := c.get(ctx, PathTickets, url.Values{"from": {q.From}, "to": {q.To}}, &tickets)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetPrice quotes the fare for one flight.
func (c *Client) GetPrice(ctx context.Context, req PriceRequest) (Price, error) {
	var p Price
	err := c.get(ctx, PathPrice, url.Values{
		"flight_number": {req.FlightNumber},
		"from":          {req.From},
		"to":            {req.To},
	}, &p)
	return p, err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Internal(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(ctx, fmt.Errorf("read response body: %w", err))
	}
	if appErr := classifyStatus(resp.StatusCode, body); appErr != nil {
		c.log.Debug("flights api error", logger.Fields(
			"path", path,
			"status", resp.StatusCode,
			logger.FieldError, appErr.Error(),
		))
		return appErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.ExternalServiceError(serviceName, fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}
