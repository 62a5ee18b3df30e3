// Package affinity provides a single-goroutine task executor.
//
// Tasks scheduled from any goroutine run one at a time, in submission
// order, on the executor's own goroutine. State touched only from tasks
// needs no locks.
package affinity
