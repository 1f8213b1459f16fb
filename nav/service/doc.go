// Package service runs the navigation engine on a single control-loop
// goroutine.
//
// The Controller owns the engine, the grid and the tracker. It ticks at a
// fixed rate on an injected clock, executes operator commands between ticks
// and publishes a snapshot after every step so readers never touch engine
// state directly. New engine events are forwarded to observers such as the
// journal recorder and the websocket hub.
package service
