// Package targets provides the engine's target providers: an HTTP poller
// for a remote dispatch service, an in-memory dispatch Board that serves
// the same payload, and nearest-POI targeting.
package targets
