// Package engine implements the navigation state machine.
//
// An Engine owns the grid, the position tracker and the session state
// (target, path, cursor, mode). It is driven by Tick from a single control
// loop and talks to the outside world through three collaborators:
//
//   - TargetProvider, polled at a fixed interval for the active POI id
//   - Sensor, polled for filtered displacement readings
//   - Actuator, receiving one movement intent per tick
//
// Engine methods are not safe for concurrent use. nav/service wraps an
// Engine in a goroutine and serializes access to it.
package engine
