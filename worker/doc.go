// Package worker runs I/O-bound producers on a bounded set of goroutines.
package worker
