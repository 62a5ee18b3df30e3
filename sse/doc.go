// Package sse streams Server-Sent Events to HTTP clients.
//
// A Client is a bounded event queue fed by the application and drained by
// Serve, which owns the response: it writes the SSE headers, a connected
// event, every queued event and periodic keep-alive comments until the
// client is closed or the request goes away. A Hub tracks the open clients
// so they can be counted and closed on shutdown.
//
//	c := sse.NewClient(id)
//	hub.Register(c)
//	defer hub.Unregister(c)
//	go produce(c) // c.SendJSON(...), then c.Close()
//	sse.Serve(w, r, c, 0)
package sse
