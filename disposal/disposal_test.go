package disposal

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

type counter struct{ n atomic.Int32 }

func (c *counter) Cancel() { c.n.Add(1) }

func TestCancelAllCancelsEachOnceInReverseOrder(t *testing.T) {
	r := New("test")
	var order []int
	for i := range 3 {
		r.Register(Func(func() { order = append(order, i) }))
	}
	r.CancelAll()
	r.CancelAll()

	if want := []int{2, 1, 0}; !slices.Equal(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
	if !r.Cancelled() {
		t.Error("expected registry to be cancelled")
	}
	if r.Len() != 0 {
		t.Errorf("expected no live registrations, got %d", r.Len())
	}
}

func TestCancelAllTwiceMatchesOnce(t *testing.T) {
	once, twice := New("a"), New("b")
	c1, c2 := &counter{}, &counter{}
	once.Register(c1)
	twice.Register(c2)

	once.CancelAll()
	twice.CancelAll()
	twice.CancelAll()

	if c1.n.Load() != c2.n.Load() || c1.n.Load() != 1 {
		t.Errorf("expected one cancel each, got %d and %d", c1.n.Load(), c2.n.Load())
	}
	if once.Cancelled() != twice.Cancelled() || once.Len() != twice.Len() {
		t.Error("expected identical observable state")
	}
}

func TestLateRegistrationCancelledImmediately(t *testing.T) {
	r := New("test")
	r.CancelAll()
	c := &counter{}
	if _, ok := r.Register(c); ok {
		t.Error("expected registration to be refused")
	}
	if c.n.Load() != 1 {
		t.Errorf("expected late handle cancelled once, got %d", c.n.Load())
	}
}

func TestRemove(t *testing.T) {
	r := New("test")
	c := &counter{}
	key, _ := r.Register(c)
	if !r.Remove(key) {
		t.Fatal("expected key to be registered")
	}
	if r.Remove(key) {
		t.Error("expected second remove to report false")
	}
	r.CancelAll()
	if c.n.Load() != 0 {
		t.Error("removed handle must not be cancelled")
	}
}

func TestPanickingHandleDoesNotStopOthers(t *testing.T) {
	r := New("test")
	c := &counter{}
	r.Register(c)
	r.Register(Func(func() { panic("boom") }))
	r.CancelAll()
	if c.n.Load() != 1 {
		t.Error("expected remaining handles to be cancelled after a panic")
	}
}

func TestOnce(t *testing.T) {
	var n int
	h := Once(func() { n++ })
	h.Cancel()
	h.Cancel()
	if n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestNestedRegistries(t *testing.T) {
	parent := New("session")
	child := New("round")
	c := &counter{}
	child.Register(c)
	parent.Register(child)

	parent.CancelAll()
	if !child.Cancelled() || c.n.Load() != 1 {
		t.Error("expected child registry cancelled through parent")
	}
}

func TestConcurrentRegisterAndCancel(t *testing.T) {
	r := New("test")
	var cancelled atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(Func(func() { cancelled.Add(1) }))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.CancelAll()
	}()
	wg.Wait()
	if got := cancelled.Load(); got != 100 {
		t.Errorf("expected every handle cancelled exactly once, got %d", got)
	}
}

func TestZeroValueRegistry(t *testing.T) {
	var r Registry
	c := &counter{}
	r.Register(c)
	r.Cancel()
	if c.n.Load() != 1 {
		t.Error("expected zero-value registry to work")
	}
}
