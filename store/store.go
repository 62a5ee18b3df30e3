package store

import (
	stderrors "errors"
	"fmt"

	"github.com/kbukum/flightsearch/errors"
)

// ErrIdentityNotFound is returned by UpdateByIdentity when no record has
// the identity. It is not fatal: the update is dropped.
var ErrIdentityNotFound = errors.IdentityNotFound("")

// ErrIdentityChanged is returned when a mutator changes a record's identity.
var ErrIdentityChanged = stderrors.New("store: mutator changed record identity")

// View is the read-only face of a Store handed to UI collaborators.
type View[R any] interface {
	Len() int
	At(i int) R
	Snapshot() []R
	Generation() uint64
}

// Store is an ordered, identity-unique record sequence.
type Store[K comparable, R any] struct {
	key     func(R) K
	records []R
	index   map[K]int
	gen     uint64
}

// New creates an empty store using key to derive each record's identity.
func New[K comparable, R any](key func(R) K) *Store[K, R] {
	return &Store[K, R]{key: key, index: make(map[K]int)}
}

// ReplaceAll swaps the whole content for records, preserving their order.
// A record whose identity already appeared earlier in records is dropped;
// the number of dropped records is returned.
func (s *Store[K, R]) ReplaceAll(records []R) int {
	next := make([]R, 0, len(records))
	index := make(map[K]int, len(records))
	dropped := 0
	for _, r := range records {
		k := s.key(r)
		if _, dup := index[k]; dup {
			dropped++
			continue
		}
		index[k] = len(next)
		next = append(next, r)
	}
	s.records, s.index = next, index
	s.gen++
	return dropped
}

// UpdateByIdentity applies mutate to the record with identity id and
// returns its position. The record keeps its position. When id is absent
// the store is left unchanged and an error matching ErrIdentityNotFound is
// returned.
func (s *Store[K, R]) UpdateByIdentity(id K, mutate func(R) R) (int, error) {
	i, ok := s.index[id]
	if !ok {
		return -1, errors.IdentityNotFound(fmt.Sprint(id))
	}
	updated := mutate(s.records[i])
	if s.key(updated) != id {
		return i, ErrIdentityChanged
	}
	s.records[i] = updated
	return i, nil
}

// KeyOf returns the identity of r.
func (s *Store[K, R]) KeyOf(r R) K { return s.key(r) }

// IndexOf returns the position of id, or -1.
func (s *Store[K, R]) IndexOf(id K) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Get returns the record with identity id.
func (s *Store[K, R]) Get(id K) (R, bool) {
	if i, ok := s.index[id]; ok {
		return s.records[i], true
	}
	var zero R
	return zero, false
}

func (s *Store[K, R]) Len() int { return len(s.records) }

// At returns the record at position i. It panics when i is out of range.
func (s *Store[K, R]) At(i int) R { return s.records[i] }

// Snapshot returns a copy of the records in order.
func (s *Store[K, R]) Snapshot() []R {
	out := make([]R, len(s.records))
	copy(out, s.records)
	return out
}

// Generation counts ReplaceAll calls. Readers use it to detect that a
// position they hold belongs to an older listing.
func (s *Store[K, R]) Generation() uint64 { return s.gen }

// View returns s as a read-only View.
func (s *Store[K, R]) View() View[R] { return s }
