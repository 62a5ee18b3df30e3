package affinity

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flightsearch/errors"
)

func TestTasksRunInSubmissionOrder(t *testing.T) {
	e := New("test")
	defer e.Close()

	var got []int
	for i := range 100 {
		e.Schedule(func() { got = append(got, i) })
	}
	if err := e.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	if !slices.Equal(got, want) {
		t.Errorf("tasks out of order: %v", got)
	}
}

func TestTasksNeverOverlap(t *testing.T) {
	e := New("test")
	defer e.Close()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				e.Schedule(func() {
					n := active.Add(1)
					if n > maxActive.Load() {
						maxActive.Store(n)
					}
					active.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	_ = e.Call(context.Background(), func() {})
	if maxActive.Load() != 1 {
		t.Errorf("expected at most one task at a time, saw %d", maxActive.Load())
	}
}

func TestScheduleAfterClose(t *testing.T) {
	e := New("test")
	e.Close()
	<-e.Done()
	if e.Schedule(func() {}) {
		t.Error("expected Schedule to refuse after Close")
	}
	err := e.Call(context.Background(), func() {})
	if !errors.IsCode(err, errors.ErrCodeCancelled) {
		t.Errorf("expected CANCELLED, got %v", err)
	}
}

func TestCloseDiscardsPendingTasks(t *testing.T) {
	e := New("test")
	release := make(chan struct{})
	var ran atomic.Int32
	e.Schedule(func() { <-release })
	for range 10 {
		e.Schedule(func() { ran.Add(1) })
	}
	e.Close()
	close(release)
	<-e.Done()
	if ran.Load() != 0 {
		t.Errorf("expected queued tasks discarded, %d ran", ran.Load())
	}
}

func TestPanicDoesNotKillExecutor(t *testing.T) {
	e := New("test")
	defer e.Close()
	e.Schedule(func() { panic("boom") })
	var ok bool
	if err := e.Call(context.Background(), func() { ok = true }); err != nil || !ok {
		t.Fatalf("executor stopped after panic: %v", err)
	}
}

func TestCallRespectsContext(t *testing.T) {
	e := New("test")
	defer e.Close()
	release := make(chan struct{})
	defer close(release)
	e.Schedule(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Call(ctx, func() {}); err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	e := New("test")
	e.Close()
	e.Close()
	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatal("executor did not stop")
	}
}
