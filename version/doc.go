// Package version exposes build metadata for the flightsearch binary.
//
//	go build -ldflags "-X github.com/kbukum/flightsearch/version.Version=1.4.0"
package version
