package stream

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flightsearch/affinity"
	"github.com/kbukum/flightsearch/errors"
	"github.com/kbukum/flightsearch/worker"
)

// recorder captures signals and closes done on the terminal one.
type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed int
	errors    int
	done      chan struct{}
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{done: make(chan struct{})}
}

func (r *recorder[T]) observer() Observer[T] {
	return Observer[T]{
		OnValue: func(v T) {
			r.mu.Lock()
			r.values = append(r.values, v)
			r.mu.Unlock()
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.err = err
			r.errors++
			r.mu.Unlock()
			close(r.done)
		},
		OnComplete: func() {
			r.mu.Lock()
			r.completed++
			r.mu.Unlock()
			close(r.done)
		},
	}
}

func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal signal")
	}
}

func (r *recorder[T]) snapshot() ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.values), r.err
}

func TestFromFuncEmitsThenCompletes(t *testing.T) {
	src := FromFunc(func(ctx context.Context, emit func(int) bool) error {
		for i := range 5 {
			if !emit(i) {
				return nil
			}
		}
		return nil
	})
	rec := newRecorder[int]()
	src.Subscribe(context.Background(), rec.observer())
	rec.wait(t)

	vals, err := rec.snapshot()
	if err != nil || !slices.Equal(vals, []int{0, 1, 2, 3, 4}) {
		t.Errorf("unexpected result %v %v", vals, err)
	}
}

func TestFromFuncIsColdPerSubscriber(t *testing.T) {
	var calls atomic.Int32
	src := FromCall(func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	})
	for range 3 {
		if _, err := Collect(context.Background(), src); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("expected one call per subscriber, got %d", calls.Load())
	}
}

func TestFromCallError(t *testing.T) {
	boom := stderrors.New("boom")
	_, err := Collect(context.Background(), FromCall(func(context.Context) (string, error) {
		return "", boom
	}))
	if !stderrors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestProducerPanicBecomesError(t *testing.T) {
	_, err := Collect(context.Background(), FromCall(func(context.Context) (int, error) {
		panic("kaboom")
	}))
	if !errors.IsCode(err, errors.ErrCodeInternal) {
		t.Errorf("expected INTERNAL_ERROR, got %v", err)
	}
}

func TestCancelStopsDeliveryAndProducerContext(t *testing.T) {
	started := make(chan struct{})
	producerDone := make(chan error, 1)
	src := FromFunc(func(ctx context.Context, emit func(int) bool) error {
		close(started)
		<-ctx.Done()
		emit(1)
		producerDone <- ctx.Err()
		return ctx.Err()
	})

	var delivered atomic.Int32
	sub := src.Subscribe(context.Background(), Observer[int]{
		OnValue: func(int) { delivered.Add(1) },
		OnError: func(error) { delivered.Add(1) },
	})
	<-started
	sub.Cancel()

	select {
	case err := <-producerDone:
		if !stderrors.Is(err, context.Canceled) {
			t.Errorf("expected producer ctx cancelled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("producer context was not cancelled")
	}
	if delivered.Load() != 0 {
		t.Errorf("expected nothing delivered after cancel, got %d", delivered.Load())
	}
	if !sub.Cancelled() || !sub.Closed() {
		t.Error("expected subscription cancelled and closed")
	}
}

func TestParentContextCancelsSubscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := FromFunc(func(ctx context.Context, emit func(int) bool) error {
		<-ctx.Done()
		return ctx.Err()
	}).Subscribe(ctx, Observer[int]{
		OnError: func(err error) { t.Errorf("cancellation delivered as error: %v", err) },
	})
	cancel()
	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed by parent context")
	}
	if !sub.Cancelled() {
		t.Error("expected silent cancellation")
	}
}

func TestAlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran atomic.Bool
	sub := FromCall(func(context.Context) (int, error) {
		ran.Store(true)
		return 1, nil
	}).Subscribe(ctx, Observer[int]{})
	if !sub.Cancelled() {
		t.Error("expected cancelled subscription")
	}
	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Error("producer must not run for a cancelled context")
	}
}

func TestTerminalDeliveredOnce(t *testing.T) {
	sub := NewSubscription()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sub.Terminate() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	sub.Cancel()
	if wins.Load() != 1 {
		t.Errorf("expected exactly one terminal winner, got %d", wins.Load())
	}
	if sub.Cancelled() {
		t.Error("cancel after terminal must not mark the subscription cancelled")
	}
}

func TestOnCloseRunsOnceAndLate(t *testing.T) {
	sub := NewSubscription()
	var n atomic.Int32
	sub.OnClose(func() { n.Add(1) })
	sub.Cancel()
	sub.Cancel()
	sub.OnClose(func() { n.Add(1) })
	if n.Load() != 2 {
		t.Errorf("expected both hooks to run once, got %d", n.Load())
	}
}

func TestJustFailEmpty(t *testing.T) {
	vals, err := Collect(context.Background(), Just("a", "b"))
	if err != nil || !slices.Equal(vals, []string{"a", "b"}) {
		t.Errorf("Just: %v %v", vals, err)
	}
	if _, err := Collect(context.Background(), Fail[int](stderrors.New("x"))); err == nil {
		t.Error("Fail: expected error")
	}
	vals, err = Collect(context.Background(), Empty[string]())
	if err != nil || len(vals) != 0 {
		t.Errorf("Empty: %v %v", vals, err)
	}
}

func TestMap(t *testing.T) {
	vals, err := Collect(context.Background(), Map(Just(1, 2, 3), func(v int) int { return v * 10 }))
	if err != nil || !slices.Equal(vals, []int{10, 20, 30}) {
		t.Errorf("unexpected %v %v", vals, err)
	}
}

func TestWithRunnerUsesPool(t *testing.T) {
	pool := worker.New(worker.Config{Name: "test", MaxConcurrent: 2})
	src := FromCall(func(context.Context) (int, error) { return 7, nil }, WithRunner(pool))
	vals, err := Collect(context.Background(), src)
	if err != nil || !slices.Equal(vals, []int{7}) {
		t.Errorf("unexpected %v %v", vals, err)
	}
	pool.Wait()
}

func TestObserveOnDeliversOnExecutor(t *testing.T) {
	exec := affinity.New("test")
	defer exec.Close()

	// Every delivery appends without a lock; the executor serializes them.
	var got []int
	done := make(chan struct{})
	src := FromFunc(func(ctx context.Context, emit func(int) bool) error {
		for i := range 100 {
			emit(i)
		}
		return nil
	})
	ObserveOn(src, exec).Subscribe(context.Background(), Observer[int]{
		OnValue:    func(v int) { got = append(got, v) },
		OnComplete: func() { close(done) },
	})
	<-done
	if len(got) != 100 || got[99] != 99 {
		t.Errorf("unexpected deliveries: %d", len(got))
	}
}

func TestObserveOnDropsDeliveryQueuedBeforeCancel(t *testing.T) {
	exec := affinity.New("test")
	defer exec.Close()

	release := make(chan struct{})
	exec.Schedule(func() { <-release })

	var delivered atomic.Int32
	emitted := make(chan struct{})
	sub := ObserveOn(FromFunc(func(ctx context.Context, emit func(int) bool) error {
		emit(1)
		close(emitted)
		return nil
	}), exec).Subscribe(context.Background(), Observer[int]{
		OnValue:    func(int) { delivered.Add(1) },
		OnComplete: func() { delivered.Add(1) },
	})

	<-emitted
	// The value and the completion are queued behind the blocker.
	exec.Schedule(sub.Cancel)
	close(release)
	_ = exec.Call(context.Background(), func() {})
	if delivered.Load() != 0 {
		t.Errorf("expected queued deliveries dropped, got %d", delivered.Load())
	}
}

func TestObserveOnRejectedScheduleCancels(t *testing.T) {
	exec := affinity.New("test")
	exec.Close()
	<-exec.Done()
	sub := ObserveOn(Just(1), exec).Subscribe(context.Background(), Observer[int]{
		OnValue: func(int) { t.Error("unexpected delivery") },
	})
	if !sub.Cancelled() {
		t.Error("expected cancellation when the scheduler rejects work")
	}
}

func TestTimeoutExpires(t *testing.T) {
	upstreamCancelled := make(chan struct{})
	src := FromFunc(func(ctx context.Context, emit func(int) bool) error {
		<-ctx.Done()
		close(upstreamCancelled)
		return ctx.Err()
	})
	_, err := Collect(context.Background(), Timeout(src, 20*time.Millisecond))
	if !errors.IsCode(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	select {
	case <-upstreamCancelled:
	case <-time.After(time.Second):
		t.Fatal("upstream not cancelled on timeout")
	}
}

func TestTimeoutPassesFastSource(t *testing.T) {
	vals, err := Collect(context.Background(), Timeout(Just(1, 2), time.Second))
	if err != nil || !slices.Equal(vals, []int{1, 2}) {
		t.Errorf("unexpected %v %v", vals, err)
	}
}

func TestCollectContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Collect(ctx, FromFunc(func(ctx context.Context, emit func(int) bool) error {
		<-ctx.Done()
		return nil
	}))
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
