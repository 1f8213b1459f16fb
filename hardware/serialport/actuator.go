package serialport

import (
	"fmt"
	"io"
	"sync"

	"github.com/wiemBe/RoboMap/internal/monitoring"
	"github.com/wiemBe/RoboMap/nav/engine"
)

var commandCodes = map[engine.Intent]string{
	engine.Forward:  "F",
	engine.Backward: "B",
	engine.Left:     "L",
	engine.Right:    "R",
	engine.Stop:     "S",
}

// CommandCode returns the wire code for intent
func CommandCode(intent engine.Intent) (string, bool) {
	code, ok := commandCodes[intent]
	return code, ok
}

// Actuator writes movement commands to the controller. Send never blocks
// the caller on errors; failures are logged and counted.
type Actuator struct {
	mu       sync.Mutex
	w        io.Writer
	failures int
}

// NewActuator creates an actuator writing to w
func NewActuator(w io.Writer) *Actuator {
	return &Actuator{w: w}
}

// Send implements engine.Actuator
func (a *Actuator) Send(intent engine.Intent) {
	if err := a.SendCommand(intent); err != nil {
		monitoring.Logf("serialport: %v", err)
	}
}

// SendCommand writes intent and reports write failures
func (a *Actuator) SendCommand(intent engine.Intent) error {
	code, ok := CommandCode(intent)
	if !ok {
		return fmt.Errorf("no command code for intent %q", intent)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	command := code + "\n"
	n, err := a.w.Write([]byte(command))
	if err == nil && n != len(command) {
		err = io.ErrShortWrite
	}
	if err != nil {
		a.failures++
		return fmt.Errorf("failed to send %s: %w", code, err)
	}
	return nil
}

// Failures returns the number of failed writes
func (a *Actuator) Failures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures
}
