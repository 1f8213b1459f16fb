// Package sim provides a kinematic cart that stands in for the serial
// motion controller when no hardware is attached.
package sim

import (
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/engine"
)

// DefaultSpeed is the cart speed in meters per second
const DefaultSpeed = 0.5

// Cart moves at a constant speed along the axis of the last intent. It
// implements both engine.Actuator and engine.Sensor.
type Cart struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	speed    float64
	intent   engine.Intent
	since    time.Time
	odometer orb.Point
	sent     int
}

// NewCart creates a stopped cart. speed <= 0 selects DefaultSpeed.
func NewCart(clock timeutil.Clock, speed float64) *Cart {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if speed <= 0 {
		speed = DefaultSpeed
	}
	return &Cart{
		clock:  clock,
		speed:  speed,
		intent: engine.Stop,
		since:  clock.Now(),
	}
}

// Send implements engine.Actuator. Motion up to now is kept for the next
// Poll before the heading changes.
func (c *Cart) Send(intent engine.Intent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent++
	if intent == c.intent {
		return
	}
	dx, dy := c.travel()
	c.odometer = orb.Point{c.odometer[0] + dx, c.odometer[1] + dy}
	c.intent = intent
	c.since = c.clock.Now()
}

// Poll implements engine.Sensor, returning millimeters travelled since the
// previous Poll
func (c *Cart) Poll() (dxMM, dyMM float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dx, dy := c.travel()
	dx += c.odometer[0]
	dy += c.odometer[1]
	c.odometer = orb.Point{}
	c.since = c.clock.Now()

	if dx == 0 && dy == 0 {
		return 0, 0, false
	}
	return dx, dy, true
}

// Intent returns the intent the cart is executing
func (c *Cart) Intent() engine.Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent
}

// Commands returns the number of intents received
func (c *Cart) Commands() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// travel returns the displacement in mm since c.since under the current
// intent. Grid row -1 (Forward) is negative Y.
func (c *Cart) travel() (dx, dy float64) {
	elapsed := c.clock.Since(c.since).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	dist := c.speed * elapsed * 1000
	dr, dc := c.intent.Delta()
	return float64(dc) * dist, float64(dr) * dist
}
