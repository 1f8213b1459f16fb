// Package tracker integrates incremental displacement readings into a
// continuous position on the floor plan and tests waypoint arrival.
package tracker

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/grid"
)

const (
	// DefaultTolerance is the arrival radius in meters. It must stay below
	// one cell size or waypoints get skipped.
	DefaultTolerance = 0.08

	// DefaultMinInterval is the minimum spacing between accepted readings
	DefaultMinInterval = 30 * time.Millisecond

	mmPerMeter = 1000.0
)

// ErrInvalidReading is returned for displacements that are NaN or infinite
var ErrInvalidReading = errors.New("invalid displacement reading")

// Geometry is the part of the grid the tracker needs for conversions
type Geometry interface {
	InBounds(cell grid.Cell) bool
	CellCenter(cell grid.Cell) (x, y float64)
	CellAt(x, y float64) grid.Cell
}

// Tracker holds the continuous position in meters. X grows along columns,
// Y along rows.
type Tracker struct {
	geometry    Geometry
	clock       timeutil.Clock
	minInterval time.Duration

	position   orb.Point
	lastUpdate time.Time
}

// New creates a tracker seated at the center of start
func New(geometry Geometry, start grid.Cell, clock timeutil.Clock, minInterval time.Duration) *Tracker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	t := &Tracker{
		geometry:    geometry,
		clock:       clock,
		minInterval: minInterval,
	}
	t.Reset(start)
	return t
}

// Integrate adds a displacement in millimeters. A reading that would move
// the position off the grid is rejected with grid.ErrOutOfBounds and the
// position is left unchanged. Non-finite readings are rejected with
// ErrInvalidReading.
func (t *Tracker) Integrate(dxMM, dyMM float64) error {
	if !finite(dxMM) || !finite(dyMM) {
		return fmt.Errorf("integrate (%v, %v) mm: %w", dxMM, dyMM, ErrInvalidReading)
	}

	next := orb.Point{
		t.position[0] + dxMM/mmPerMeter,
		t.position[1] + dyMM/mmPerMeter,
	}

	cell := t.geometry.CellAt(next[0], next[1])
	if !t.geometry.InBounds(cell) {
		return fmt.Errorf("integrate (%.1f, %.1f) mm to %s: %w", dxMM, dyMM, cell, grid.ErrOutOfBounds)
	}

	t.position = next
	t.lastUpdate = t.clock.Now()
	return nil
}

// HasReached reports whether the position lies within tolerance meters of
// the center of cell.
func (t *Tracker) HasReached(cell grid.Cell, tolerance float64) bool {
	return t.DistanceTo(cell) <= tolerance
}

// DistanceTo returns the Euclidean distance in meters to the center of cell
func (t *Tracker) DistanceTo(cell grid.Cell) float64 {
	x, y := t.geometry.CellCenter(cell)
	return planar.Distance(t.position, orb.Point{x, y})
}

// Ready reports whether the minimum interval has passed since the last
// accepted reading. Callers must not poll their sensor before that.
func (t *Tracker) Ready(now time.Time) bool {
	if t.lastUpdate.IsZero() {
		return true
	}
	return now.Sub(t.lastUpdate) >= t.minInterval
}

// MinInterval returns the minimum spacing between readings
func (t *Tracker) MinInterval() time.Duration {
	return t.minInterval
}

// Position returns the continuous position in meters
func (t *Tracker) Position() orb.Point {
	return t.position
}

// Cell returns the grid cell containing the position
func (t *Tracker) Cell() grid.Cell {
	return t.geometry.CellAt(t.position[0], t.position[1])
}

// Reset re-seats the tracker at the center of cell, used after manual moves
func (t *Tracker) Reset(cell grid.Cell) {
	x, y := t.geometry.CellCenter(cell)
	t.position = orb.Point{x, y}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
