package disposal

import (
	"fmt"
	"slices"
	"sync"

	"github.com/kbukum/flightsearch/logger"
)

// Handle is anything that can be cancelled. Cancel must tolerate being
// called on work that already finished.
type Handle interface {
	Cancel()
}

// Func adapts a plain function to Handle. It runs on every Cancel call;
// wrap it with Once when that matters.
type Func func()

func (f Func) Cancel() { f() }

type onceHandle struct {
	once sync.Once
	f    func()
}

func (o *onceHandle) Cancel() { o.once.Do(o.f) }

// Once returns a Handle that runs f on the first Cancel only.
func Once(f func()) Handle {
	return &onceHandle{f: f}
}

// Key identifies a registration for Remove.
type Key uint64

// Registry is a set of handles cancelled together. The zero value is
// ready to use. A *Registry is itself a Handle, so registries nest.
type Registry struct {
	mu        sync.Mutex
	handles   map[Key]Handle
	next      Key
	cancelled bool
	name      string
}

// New returns a registry whose panics are logged under name.
func New(name string) *Registry {
	return &Registry{name: name}
}

// Register adds h. If the registry is already cancelled, h is cancelled
// immediately and ok is false.
func (r *Registry) Register(h Handle) (key Key, ok bool) {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		r.cancelOne(h)
		return 0, false
	}
	if r.handles == nil {
		r.handles = make(map[Key]Handle)
	}
	r.next++
	key = r.next
	r.handles[key] = h
	r.mu.Unlock()
	return key, true
}

// Remove drops a registration without cancelling it. It reports whether
// key was still registered.
func (r *Registry) Remove(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[key]; !ok {
		return false
	}
	delete(r.handles, key)
	return true
}

// CancelAll cancels every registered handle in reverse registration order
// and marks the registry cancelled. Later calls do nothing.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	r.cancelled = true
	handles := r.handles
	r.handles = nil
	r.mu.Unlock()

	keys := make([]Key, 0, len(handles))
	for k := range handles {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	slices.Reverse(keys)
	for _, k := range keys {
		r.cancelOne(handles[k])
	}
}

// Cancel implements Handle.
func (r *Registry) Cancel() { r.CancelAll() }

// Cancelled reports whether CancelAll has run.
func (r *Registry) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) cancelOne(h Handle) {
	defer func() {
		if p := recover(); p != nil {
			logger.Get("disposal").Error("handle panicked on cancel", logger.Fields(
				"registry", r.name,
				logger.FieldError, fmt.Sprint(p),
			))
		}
	}()
	h.Cancel()
}
