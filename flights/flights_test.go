package flights

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/fetch"
)

func newTestClient(t *testing.T, h http.HandlerFunc, mutate ...func(*ClientConfig)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var sample = []Ticket{
	{From: "DEL", To: "HYD", FlightNumber: "6E-101", Airline: Airline{ID: 1, Name: "IndiGo"}},
	{From: "DEL", To: "HYD", FlightNumber: "AI-202", Airline: Airline{ID: 2, Name: "Air India"}},
}

func TestClient_SearchTickets(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathTickets {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("from") != "DEL" || r.URL.Query().Get("to") != "HYD" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != defaultUserAgent {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		writeJSON(w, http.StatusOK, sample)
	})

	got, err := c.SearchTickets(context.Background(), DefaultQuery())
	if err != nil {
		t.Fatalf("SearchTickets: %v", err)
	}
	if len(got) != 2 || got[1].FlightNumber != "AI-202" || got[1].Airline.Name != "Air India" {
		t.Errorf("tickets = %+v", got)
	}
	if got[0].Priced() {
		t.Error("listing ticket should not be priced")
	}
}

func TestClient_SearchTickets_InvalidQuery(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	tests := []struct {
		name string
		q    Query
	}{
		{name: "missing from", q: Query{To: "HYD"}},
		{name: "lowercase", q: Query{From: "del", To: "HYD"}},
		{name: "same airport", q: Query{From: "DEL", To: "DEL"}},
		{name: "too long", q: Query{From: "DELH", To: "HYD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SearchTickets(context.Background(), tt.q)
			if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("server called %d times", n)
	}
}

func TestClient_GetPrice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != PathPrice || q.Get("flight_number") != "6E-101" {
			t.Errorf("request = %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, Price{Price: 4120, Seats: "12", Currency: "INR", FlightNumber: "6E-101", From: "DEL", To: "HYD"})
	})

	p, err := c.GetPrice(context.Background(), PriceRequestFor(sample[0]))
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if p.Price != 4120 || p.Currency != "INR" {
		t.Errorf("price = %+v", p)
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		want    errors.ErrorCode
		wantMsg string
	}{
		{name: "not found", status: http.StatusNotFound, want: errors.ErrCodeNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: errors.ErrCodeRateLimited},
		{name: "unavailable", status: http.StatusServiceUnavailable, want: errors.ErrCodeServiceUnavailable},
		{name: "server error", status: http.StatusInternalServerError, want: errors.ErrCodeExternalService},
		{name: "bad request", status: http.StatusBadRequest, want: errors.ErrCodeInvalidInput},
		{
			name:    "error body kept",
			status:  http.StatusNotFound,
			body:    errors.NotFound("route", "DEL-XXX").ToResponse(),
			want:    errors.ErrCodeNotFound,
			wantMsg: "The requested route was not found.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.body != nil {
					writeJSON(w, tt.status, tt.body)
					return
				}
				w.WriteHeader(tt.status)
			})
			_, err := c.GetPrice(context.Background(), PriceRequestFor(sample[0]))
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("err = %v, want AppError", err)
			}
			if appErr.Code != tt.want {
				t.Errorf("code = %s, want %s", appErr.Code, tt.want)
			}
			if tt.wantMsg != "" && appErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", appErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestClient_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	_, err := c.SearchTickets(context.Background(), DefaultQuery())
	if !errors.IsCode(err, errors.ErrCodeExternalService) {
		t.Errorf("err = %v, want EXTERNAL_SERVICE_ERROR", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, func(cfg *ClientConfig) { cfg.Timeout = 20 * time.Millisecond })

	_, err := c.GetPrice(context.Background(), PriceRequestFor(sample[0]))
	if !errors.IsCode(err, errors.ErrCodeTimeout) {
		t.Errorf("err = %v, want TIMEOUT", err)
	}
}

func TestClient_CallerCancel(t *testing.T) {
	started := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := c.GetPrice(ctx, PriceRequestFor(sample[0]))
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClient_ConnectionFailed(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.SearchTickets(context.Background(), DefaultQuery())
	if !errors.IsCode(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("err = %v, want CONNECTION_FAILED", err)
	}
}

func TestPriceFetcher(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		writeJSON(w, http.StatusOK, Price{Price: 99, Currency: "INR", FlightNumber: q.Get("flight_number"), From: q.Get("from"), To: q.Get("to")})
	}, func(cfg *ClientConfig) { cfg.RateLimit = 1000 })

	f := PriceFetcher(c)
	if f.Name() != FetcherPrice {
		t.Errorf("name = %q", f.Name())
	}
	got, err := f.Fetch(context.Background(), sample[1])
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Key() != sample[1].Key() || !got.Priced() || got.Price.Price != 99 {
		t.Errorf("ticket = %+v", got)
	}
	if sample[1].Priced() {
		t.Error("input ticket was mutated")
	}
}

func TestPriceFetcher_Breaker(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(cfg *ClientConfig) { cfg.Breaker = fetch.BreakerConfig{MaxFailures: 2, Cooldown: time.Hour} })

	f := PriceFetcher(c)
	for range 4 {
		_, err := f.Fetch(context.Background(), sample[0])
		if !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
			t.Fatalf("err = %v", err)
		}
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("upstream called %d times, want 2 before the breaker opened", n)
	}
}

func TestTicketsFetcher(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sample)
	})
	got, err := TicketsFetcher(c).Fetch(context.Background(), DefaultQuery())
	if err != nil || len(got) != len(sample) {
		t.Fatalf("Fetch = %v, %v", got, err)
	}
}

func TestClientConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{name: "valid", cfg: ClientConfig{BaseURL: "http://localhost:8080"}},
		{name: "missing base url", cfg: ClientConfig{}, wantErr: true},
		{name: "bad url", cfg: ClientConfig{BaseURL: "not a url"}, wantErr: true},
		{name: "negative rate", cfg: ClientConfig{BaseURL: "http://x", RateLimit: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ApplyDefaults()
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cfg := ClientConfig{BaseURL: "http://x", RateLimit: 5}
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout || cfg.RateBurst != 1 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestTicketKey(t *testing.T) {
	a := sample[0]
	b := a.WithPrice(Price{Price: 1})
	if a.Key() != b.Key() {
		t.Error("pricing changed the key")
	}
	if got := a.Key().String(); got != "6E-101 DEL-HYD" {
		t.Errorf("Key.String() = %q", got)
	}
}
