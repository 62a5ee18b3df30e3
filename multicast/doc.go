// Package multicast shares one upstream subscription among many
// subscribers and replays history to late joiners.
//
// A Replay is created idle. Subscribers may register at any time; the
// upstream source is subscribed once, on the first Connect. Every value is
// appended to a replay buffer before it is delivered, so each subscriber
// receives the same ordered sequence whenever it joined, followed by the
// terminal signal.
package multicast
