package enrich

import "github.com/kbukum/flightsearch/store"

// RoundSummary describes a settled fan-out round.
type RoundSummary struct {
	Round    string `json:"round"`
	Items    int    `json:"items"`
	Enriched int    `json:"enriched"`
	Failed   int    `json:"failed"`
	Missed   int    `json:"missed"`
}

// Listener receives the coordinator's notifications. Every method is
// called on the coordinator's scheduler, never concurrently.
type Listener[R any] interface {
	// OnReset follows a whole-list replace.
	OnReset(view store.View[R])
	// OnItemChanged follows a single record update at index.
	OnItemChanged(index int, record R)
	// OnFailure is called at most once, when the pipeline fails.
	OnFailure(err error)
	// OnWarning reports non-fatal problems such as identity misses.
	OnWarning(err error)
	// OnSettled is called when every per-item fetch of a round finished
	// without the pipeline failing.
	OnSettled(summary RoundSummary)
}

// ListenerFuncs implements Listener with optional callbacks.
type ListenerFuncs[R any] struct {
	Reset       func(view store.View[R])
	ItemChanged func(index int, record R)
	Failure     func(err error)
	Warning     func(err error)
	Settled     func(summary RoundSummary)
}

func (l ListenerFuncs[R]) OnReset(view store.View[R]) {
	if l.Reset != nil {
		l.Reset(view)
	}
}

func (l ListenerFuncs[R]) OnItemChanged(index int, record R) {
	if l.ItemChanged != nil {
		l.ItemChanged(index, record)
	}
}

func (l ListenerFuncs[R]) OnFailure(err error) {
	if l.Failure != nil {
		l.Failure(err)
	}
}

func (l ListenerFuncs[R]) OnWarning(err error) {
	if l.Warning != nil {
		l.Warning(err)
	}
}

func (l ListenerFuncs[R]) OnSettled(summary RoundSummary) {
	if l.Settled != nil {
		l.Settled(summary)
	}
}
