// Package stream provides the small push-based source abstraction the
// search pipeline is built on.
//
// A Source delivers zero or more values followed by at most one terminal
// signal (completion or error) to an Observer. Subscribe returns a
// Subscription; cancelling it stops delivery silently and cancels the
// producer's context. Anything already in flight when a subscription is
// cancelled is dropped, never delivered.
//
//	src := stream.FromCall(func(ctx context.Context) ([]Ticket, error) {
//	    return client.SearchTickets(ctx, "DEL", "HYD")
//	}, stream.WithRunner(pool))
//	sub := stream.ObserveOn(src, executor).Subscribe(ctx, stream.Observer[[]Ticket]{
//	    OnValue: render,
//	    OnError: showError,
//	})
//	defer sub.Cancel()
//
// Only the operators the pipeline needs exist: Map, ObserveOn and Timeout.
package stream
