// Package store holds an insertion-ordered sequence of records keyed by a
// stable identity.
//
// A Store is not safe for concurrent use. It is meant to be owned by a
// single writer context (see package affinity) that performs every
// mutation and every read on behalf of other goroutines.
package store
