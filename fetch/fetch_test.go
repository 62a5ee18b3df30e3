package fetch_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/time/rate"

	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/fetch"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/stream"
)

var errBoom = stderrors.New("boom")

func echo() *fetch.Func[string, string] {
	return fetch.NewFunc("echo", func(_ context.Context, in string) (string, error) {
		if in == "fail" {
			return "", errBoom
		}
		return "echo:" + in, nil
	})
}

func TestChain_Empty(t *testing.T) {
	f := fetch.Chain[string, string]()(echo())
	if f.Name() != "echo" {
		t.Fatalf("expected 'echo', got %q", f.Name())
	}
	out, err := f.Fetch(context.Background(), "hi")
	if err != nil || out != "echo:hi" {
		t.Fatalf("expected echo:hi, got %q, err %v", out, err)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) fetch.Middleware[string, string] {
		return func(inner fetch.Fetcher[string, string]) fetch.Fetcher[string, string] {
			return fetch.NewFunc(inner.Name(), func(ctx context.Context, in string) (string, error) {
				order = append(order, name+">")
				defer func() { order = append(order, "<"+name) }()
				return inner.Fetch(ctx, in)
			})
		}
	}
	f := fetch.Chain(tag("A"), tag("B"), tag("C"))(echo())
	if _, err := f.Fetch(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	want := "A> B> C> <C <B <A"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}

func TestWithLogging(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "success", in: "ok", want: "fetch ok"},
		{name: "failure", in: "fail", want: "fetch failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
			f := fetch.WithLogging[string, string](log)(echo())
			_, _ = f.Fetch(context.Background(), tt.in)

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("log %q does not contain %q", out, tt.want)
			}
			if !strings.Contains(out, `"operation":"echo"`) {
				t.Errorf("log %q has no operation field", out)
			}
		})
	}
}

func TestWithTracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	f := fetch.WithTracing[string, string]()(echo())
	_, _ = f.Fetch(context.Background(), "ok")
	_, _ = f.Fetch(context.Background(), "fail")

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}
	for _, s := range ended {
		if s.Name() != observability.SpanFetch {
			t.Errorf("span name = %q", s.Name())
		}
	}
	if ended[0].Status().Code == otelcodes.Error {
		t.Error("successful fetch marked as error")
	}
	if ended[1].Status().Code != otelcodes.Error {
		t.Errorf("failed fetch status = %v", ended[1].Status())
	}
}

func TestWithMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observability.NewPipelineMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	f := fetch.WithMetrics[string, string](m)(echo())
	_, _ = f.Fetch(context.Background(), "a")
	_, _ = f.Fetch(context.Background(), "b")
	_, _ = f.Fetch(context.Background(), "fail")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	byOutcome := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "fetch.total" {
				continue
			}
			for _, dp := range md.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value(observability.AttrOutcome)
				byOutcome[v.AsString()] += dp.Value
			}
		}
	}
	if byOutcome[observability.OutcomeOK] != 2 || byOutcome[observability.OutcomeError] != 1 {
		t.Errorf("fetch.total by outcome = %v", byOutcome)
	}
}

func TestWithMetrics_Nil(t *testing.T) {
	f := fetch.WithMetrics[string, string](nil)(echo())
	if _, err := f.Fetch(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
}

func TestWithRateLimit(t *testing.T) {
	t.Run("allows within burst", func(t *testing.T) {
		f := fetch.WithRateLimit[string, string](rate.NewLimiter(rate.Inf, 1))(echo())
		for range 3 {
			if _, err := f.Fetch(context.Background(), "x"); err != nil {
				t.Fatal(err)
			}
		}
	})
	t.Run("zero burst is rate limited", func(t *testing.T) {
		f := fetch.WithRateLimit[string, string](rate.NewLimiter(1, 0))(echo())
		_, err := f.Fetch(context.Background(), "x")
		if !errors.IsCode(err, errors.ErrCodeRateLimited) {
			t.Errorf("err = %v, want RATE_LIMITED", err)
		}
	})
	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f := fetch.WithRateLimit[string, string](rate.NewLimiter(1, 1))(echo())
		_, err := f.Fetch(ctx, "x")
		if !stderrors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestSource(t *testing.T) {
	got, err := stream.Collect(context.Background(), fetch.Source(echo(), "hi"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "echo:hi" {
		t.Errorf("got %v", got)
	}

	_, err = stream.Collect(context.Background(), fetch.Bind[string, string](echo())("fail"))
	if !stderrors.Is(err, errBoom) {
		t.Errorf("err = %v, want errBoom", err)
	}
}
