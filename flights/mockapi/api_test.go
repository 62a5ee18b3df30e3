package mockapi

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/observability"
)

func startAPI(t *testing.T, cfg Config) (*flights.Client, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	engine := gin.New()
	api.Register(engine)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	c, err := flights.NewClient(flights.ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv.URL
}

func TestTickets_Deterministic(t *testing.T) {
	a := Tickets("DEL", "HYD")
	b := Tickets("DEL", "HYD")
	if len(a) < 4 || len(a) > 7 {
		t.Fatalf("listing size = %d", len(a))
	}
	seen := map[flights.Key]bool{}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("ticket %d differs between calls", i)
		}
		if seen[a[i].Key()] {
			t.Errorf("duplicate key %v", a[i].Key())
		}
		seen[a[i].Key()] = true
		if a[i].Priced() {
			t.Errorf("ticket %d is priced", i)
		}
	}
	if Tickets("DEL", "DEL") != nil || Tickets("DEL", "XXX") != nil {
		t.Error("expected no tickets for unknown routes")
	}
}

func TestPriceOf(t *testing.T) {
	tk := Tickets("BOM", "BLR")[0]
	p, ok := PriceOf(tk.FlightNumber, tk.From, tk.To)
	if !ok || p.Price < 2500 || p.Currency != "INR" {
		t.Errorf("PriceOf = %+v, %v", p, ok)
	}
	if _, ok := PriceOf("ZZ-1", "BOM", "BLR"); ok {
		t.Error("unknown flight priced")
	}
}

func TestAPI_ListAndPrice(t *testing.T) {
	c, _ := startAPI(t, Config{})
	ctx := context.Background()

	got, err := c.SearchTickets(ctx, flights.DefaultQuery())
	if err != nil {
		t.Fatalf("SearchTickets: %v", err)
	}
	want := Tickets(flights.DefaultFrom, flights.DefaultTo)
	if len(got) != len(want) {
		t.Fatalf("got %d tickets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Key() != want[i].Key() {
			t.Errorf("ticket %d = %v, want %v", i, got[i].Key(), want[i].Key())
		}
	}

	p, err := c.GetPrice(ctx, flights.PriceRequestFor(got[0]))
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	wantPrice, _ := PriceOf(got[0].FlightNumber, got[0].From, got[0].To)
	if p != wantPrice {
		t.Errorf("price = %+v, want %+v", p, wantPrice)
	}
}

func TestAPI_Errors(t *testing.T) {
	tk := Tickets("DEL", "HYD")[1]
	c, _ := startAPI(t, Config{FailFlights: []string{tk.FlightNumber}})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want errors.ErrorCode
	}{
		{
			name: "unknown route",
			call: func() error {
				_, err := c.SearchTickets(ctx, flights.Query{From: "DEL", To: "XXX"})
				return err
			},
			want: errors.ErrCodeNotFound,
		},
		{
			name: "injected price failure",
			call: func() error {
				_, err := c.GetPrice(ctx, flights.PriceRequestFor(tk))
				return err
			},
			want: errors.ErrCodeServiceUnavailable,
		},
		{
			name: "unknown flight",
			call: func() error {
				_, err := c.GetPrice(ctx, flights.PriceRequest{FlightNumber: "ZZ-1", From: "DEL", To: "HYD"})
				return err
			},
			want: errors.ErrCodeNotFound,
		},
		{
			name: "invalid price request",
			call: func() error {
				_, err := c.GetPrice(ctx, flights.PriceRequest{FlightNumber: "6E-1", From: "del", To: "HYD"})
				return err
			},
			want: errors.ErrCodeInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.IsCode(err, tt.want) {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestAPI_InvalidListingQuery(t *testing.T) {
	_, base := startAPI(t, Config{})
	resp, err := http.Get(base + flights.PathTickets + "?from=del&to=HYD")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPI_FailListing(t *testing.T) {
	c, _ := startAPI(t, Config{FailListing: true})
	_, err := c.SearchTickets(context.Background(), flights.DefaultQuery())
	if !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestAPI_LatencyHonorsCaller(t *testing.T) {
	c, _ := startAPI(t, Config{MinLatency: time.Second, MaxLatency: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	tk := Tickets("DEL", "HYD")[0]
	start := time.Now()
	_, err := c.GetPrice(ctx, flights.PriceRequestFor(tk))
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("request was not cut short")
	}
}

func TestConfigAndHealth(t *testing.T) {
	bad := Config{MinLatency: time.Second, MaxLatency: time.Millisecond}
	if _, err := New(bad); err == nil {
		t.Error("expected validation error for max < min")
	}

	api, err := New(Config{FailListing: true})
	if err != nil {
		t.Fatal(err)
	}
	if h := api.CheckHealth(context.Background()); h.Status != observability.HealthStatusDegraded {
		t.Errorf("health = %+v", h)
	}
}
