package store

import (
	stderrors "errors"
	"math/rand/v2"
	"slices"
	"testing"
)

type rec struct {
	id    string
	price int
}

func newStore() *Store[string, rec] {
	return New(func(r rec) string { return r.id })
}

func ids(rs []rec) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.id
	}
	return out
}

func setPrice(p int) func(rec) rec {
	return func(r rec) rec { r.price = p; return r }
}

func TestReplaceAllPreservesOrder(t *testing.T) {
	s := newStore()
	s.ReplaceAll([]rec{{id: "C"}, {id: "A"}, {id: "B"}})
	if got := ids(s.Snapshot()); !slices.Equal(got, []string{"C", "A", "B"}) {
		t.Errorf("unexpected order %v", got)
	}
	if s.Generation() != 1 {
		t.Errorf("expected generation 1, got %d", s.Generation())
	}
}

func TestReplaceAllDropsLaterDuplicates(t *testing.T) {
	s := newStore()
	dropped := s.ReplaceAll([]rec{{id: "A", price: 1}, {id: "B"}, {id: "A", price: 2}})
	if dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", dropped)
	}
	r, _ := s.Get("A")
	if r.price != 1 {
		t.Errorf("expected first occurrence kept, got price %d", r.price)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 records, got %d", s.Len())
	}
}

func TestReplaceAllIsolatedFromCaller(t *testing.T) {
	s := newStore()
	in := []rec{{id: "A"}}
	s.ReplaceAll(in)
	in[0].id = "Z"
	if s.At(0).id != "A" {
		t.Error("store must not alias the caller's slice")
	}
}

func TestUpdateByIdentity(t *testing.T) {
	s := newStore()
	s.ReplaceAll([]rec{{id: "A"}, {id: "B"}, {id: "C"}})

	i, err := s.UpdateByIdentity("B", setPrice(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if i != 1 || s.At(1).price != 42 {
		t.Errorf("expected B updated at 1, got index %d record %+v", i, s.At(1))
	}
	if got := ids(s.Snapshot()); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("order changed: %v", got)
	}
}

func TestUpdateByIdentityNotFound(t *testing.T) {
	s := newStore()
	s.ReplaceAll([]rec{{id: "A"}})
	before := s.Snapshot()

	i, err := s.UpdateByIdentity("X", setPrice(1))
	if !stderrors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
	if i != -1 {
		t.Errorf("expected -1, got %d", i)
	}
	if !slices.Equal(before, s.Snapshot()) {
		t.Error("store changed on a miss")
	}
}

func TestUpdateByIdentityRejectsIdentityChange(t *testing.T) {
	s := newStore()
	s.ReplaceAll([]rec{{id: "A"}})
	_, err := s.UpdateByIdentity("A", func(r rec) rec { r.id = "B"; return r })
	if !stderrors.Is(err, ErrIdentityChanged) {
		t.Fatalf("expected ErrIdentityChanged, got %v", err)
	}
	if s.At(0).id != "A" || s.IndexOf("B") != -1 {
		t.Error("store changed after rejected update")
	}
}

func TestUpdateAfterReplaceMisses(t *testing.T) {
	s := newStore()
	s.ReplaceAll([]rec{{id: "A"}, {id: "B"}})
	s.ReplaceAll([]rec{{id: "C"}})
	if _, err := s.UpdateByIdentity("A", setPrice(1)); !stderrors.Is(err, ErrIdentityNotFound) {
		t.Errorf("expected stale update to miss, got %v", err)
	}
	if s.Generation() != 2 {
		t.Errorf("expected generation 2, got %d", s.Generation())
	}
}

func TestIndexOf(t *testing.T) {
	s := newStore()
	if s.IndexOf("A") != -1 {
		t.Error("expected -1 on empty store")
	}
	s.ReplaceAll([]rec{{id: "A"}, {id: "B"}})
	if s.IndexOf("B") != 1 {
		t.Errorf("expected 1, got %d", s.IndexOf("B"))
	}
}

func TestRandomUpdatesKeepOrderAndUniqueness(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := range 50 {
		s := newStore()
		n := 1 + r.IntN(20)
		in := make([]rec, n)
		for i := range in {
			in[i] = rec{id: string(rune('a' + r.IntN(26)))}
		}
		s.ReplaceAll(in)
		order := ids(s.Snapshot())

		for range 100 {
			id := string(rune('a' + r.IntN(26)))
			_, _ = s.UpdateByIdentity(id, setPrice(r.IntN(1000)))
		}

		if got := ids(s.Snapshot()); !slices.Equal(got, order) {
			t.Fatalf("round %d: order changed %v -> %v", round, order, got)
		}
		seen := map[string]bool{}
		for _, id := range order {
			if seen[id] {
				t.Fatalf("round %d: duplicate identity %s", round, id)
			}
			seen[id] = true
		}
	}
}

func TestViewIsReadOnlyFace(t *testing.T) {
	s := newStore()
	s.ReplaceAll([]rec{{id: "A"}})
	var v View[rec] = s.View()
	if v.Len() != 1 || v.At(0).id != "A" {
		t.Errorf("unexpected view content")
	}
}
