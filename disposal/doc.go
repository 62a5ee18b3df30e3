// Package disposal aggregates cancellation handles so a whole scope can be
// torn down with one call.
//
// Every asynchronous task registers its handle when it is created. When the
// owning scope ends, CancelAll cancels each handle exactly once, newest
// first. Handles registered after that are cancelled on the spot.
package disposal
