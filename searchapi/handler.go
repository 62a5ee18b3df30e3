package searchapi

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/flightsearch/enrich"
	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/fetch"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/search"
	"github.com/kbukum/flightsearch/server"
	"github.com/kbukum/flightsearch/sse"
	"github.com/kbukum/flightsearch/validation"
)

// Routes served by Register.
const (
	PathSearch = "/search"
	PathStream = "/search/stream"
)

// Handler runs one search session per request.
type Handler struct {
	tickets fetch.Fetcher[flights.Query, []flights.Ticket]
	prices  fetch.Fetcher[flights.Ticket, flights.Ticket]
	search  search.Config
	cfg     Config
	hub     *sse.Hub
	opts    []search.Option
	log     *logger.Logger
}

// New creates a Handler. Streams are tracked in hub.
func New(
	tickets fetch.Fetcher[flights.Query, []flights.Ticket],
	prices fetch.Fetcher[flights.Ticket, flights.Ticket],
	hub *sse.Hub,
	searchCfg search.Config,
	cfg Config,
	opts ...search.Option,
) *Handler {
	return &Handler{
		tickets: tickets,
		prices:  prices,
		search:  searchCfg,
		cfg:     cfg,
		hub:     hub,
		opts:    opts,
		log:     logger.WithComponent("searchapi"),
	}
}

// Register mounts the search routes.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET(PathSearch, h.handleSearch)
	r.GET(PathStream, h.handleStream)
}

// request reads from, to and an optional policy override from the query
// string. Route codes are case-insensitive.
func (h *Handler) request(c *gin.Context) (flights.Query, search.Config, error) {
	q := flights.Query{
		From: strings.ToUpper(c.DefaultQuery("from", flights.DefaultFrom)),
		To:   strings.ToUpper(c.DefaultQuery("to", flights.DefaultTo)),
	}
	cfg := h.search
	v := validation.New().Required("from", q.From).Required("to", q.To)
	if !v.HasErrors() {
		v.IATA("from", q.From).
			IATA("to", q.To).
			Custom(q.From != q.To, "to", "must differ from from")
	}
	if p, ok := c.GetQuery("policy"); ok {
		v.OneOf("policy", p, []string{string(enrich.FailFast), string(enrich.Isolate)})
		cfg.Enrichment.Policy = enrich.Policy(p)
	}
	if appErr := v.Validate(); appErr != nil {
		return q, cfg, appErr
	}
	return q, cfg, nil
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	ID       string              `json:"id"`
	From     string              `json:"from"`
	To       string              `json:"to"`
	Tickets  []flights.Ticket    `json:"tickets"`
	Summary  enrich.RoundSummary `json:"summary"`
	Warnings []errors.ErrorBody  `json:"warnings,omitempty"`
}

func (h *Handler) handleSearch(c *gin.Context) {
	q, cfg, err := h.request(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanHTTPAPI)
	defer span.End()
	span.SetAttributes(attribute.String("http.route", PathSearch))
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	var (
		summary  enrich.RoundSummary
		warnings []errors.ErrorBody
		done     = make(chan error, 1)
	)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}
	listener := enrich.ListenerFuncs[flights.Ticket]{
		Warning: func(err error) { warnings = append(warnings, errorBody(err)) },
		Failure: finish,
		Settled: func(s enrich.RoundSummary) {
			summary = s
			finish(nil)
		},
	}

	s, err := search.Open(ctx, q, h.tickets, h.prices, listener, cfg, h.opts...)
	if err != nil {
		observability.SetSpanError(span, err)
		server.RespondWithError(c, err)
		return
	}
	defer func() {
		s.Close()
		s.Wait()
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
		if stderrors.Is(err, context.DeadlineExceeded) {
			err = errors.Timeout("search").WithCause(err)
		}
	}
	if err != nil {
		observability.SetSpanError(span, err)
		if !errors.IsAppError(err) {
			h.log.WithError(err).Error("search failed", logger.Fields("search", s.ID()))
		}
		server.RespondWithError(c, err)
		return
	}

	tickets, err := s.Snapshot(ctx)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse{
		ID:       s.ID(),
		From:     q.From,
		To:       q.To,
		Tickets:  tickets,
		Summary:  summary,
		Warnings: warnings,
	})
}

func (h *Handler) handleStream(c *gin.Context) {
	q, cfg, err := h.request(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanHTTPAPI)
	defer span.End()
	span.SetAttributes(attribute.String("http.route", PathStream))

	client := sse.NewClient(uuid.NewString(),
		sse.WithBuffer(h.cfg.StreamBuffer),
		sse.WithMetadata("from", q.From),
		sse.WithMetadata("to", q.To),
	)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	s, err := search.Open(ctx, q, h.tickets, h.prices, &streamListener{client: client}, cfg, h.opts...)
	if err != nil {
		observability.SetSpanError(span, err)
		server.RespondWithError(c, err)
		return
	}
	defer func() {
		s.Close()
		s.Wait()
	}()

	sse.Serve(c.Writer, c.Request.WithContext(ctx), client, h.cfg.KeepAlive)
	if n := client.Dropped(); n > 0 {
		h.log.Warn("stream dropped events", logger.Fields("search", s.ID(), logger.FieldCount, n))
	}
}

func errorBody(err error) errors.ErrorBody {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	return appErr.ToResponse().Error
}
