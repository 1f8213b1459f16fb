package tracker

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/grid"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T, start grid.Cell) (*Tracker, *timeutil.MockClock) {
	t.Helper()
	g, err := grid.New(grid.Spec{
		LengthM:       25,
		WidthM:        30,
		Resolution:    0.2,
		InteriorBlock: grid.DefaultInteriorBlock,
		Start:         grid.Cell{Row: 5, Col: 5},
	})
	require.NoError(t, err)

	clock := timeutil.NewMockClock(epoch)
	return New(g, start, clock, DefaultMinInterval), clock
}

func TestNew_SeatsAtCellCenter(t *testing.T) {
	tr, _ := newTestTracker(t, grid.Cell{Row: 5, Col: 5})

	pos := tr.Position()
	assert.InDelta(t, 1.1, pos[0], 1e-9)
	assert.InDelta(t, 1.1, pos[1], 1e-9)
	assert.Equal(t, grid.Cell{Row: 5, Col: 5}, tr.Cell())
}

func TestIntegrate_IsCumulative(t *testing.T) {
	tests := []struct {
		name       string
		a, b, c, d float64
	}{
		{"positive", 12.5, 40, 7.25, 3},
		{"mixed signs", -30, 55.5, 80, -20},
		{"sub-millimeter", 0.1, 0.2, 0.3, 0.4},
		{"crosses cells", 250, -150, 310, 420},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, _ := newTestTracker(t, grid.Cell{Row: 20, Col: 20})
			joined, _ := newTestTracker(t, grid.Cell{Row: 20, Col: 20})

			require.NoError(t, split.Integrate(tt.a, tt.b))
			require.NoError(t, split.Integrate(tt.c, tt.d))
			require.NoError(t, joined.Integrate(tt.a+tt.c, tt.b+tt.d))

			assert.InDelta(t, joined.Position()[0], split.Position()[0], 1e-9)
			assert.InDelta(t, joined.Position()[1], split.Position()[1], 1e-9)
		})
	}
}

func TestIntegrate_MovesAcrossCells(t *testing.T) {
	tr, _ := newTestTracker(t, grid.Cell{Row: 5, Col: 5})

	// +200 mm in X is one column to the right
	require.NoError(t, tr.Integrate(200, 0))
	assert.Equal(t, grid.Cell{Row: 5, Col: 6}, tr.Cell())

	// -200 mm in Y is one row up
	require.NoError(t, tr.Integrate(0, -200))
	assert.Equal(t, grid.Cell{Row: 4, Col: 6}, tr.Cell())
}

func TestIntegrate_RejectsOutOfBounds(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
	}{
		{"past left edge", -1200, 0},
		{"past top edge", 0, -1200},
		{"past bottom edge", 0, 30000},
		{"past right edge", 40000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, clock := newTestTracker(t, grid.Cell{Row: 5, Col: 5})
			before := tr.Position()

			err := tr.Integrate(tt.dx, tt.dy)
			assert.ErrorIs(t, err, grid.ErrOutOfBounds)
			assert.Equal(t, before, tr.Position())
			assert.True(t, tr.Ready(clock.Now()), "rejected reading must not stamp the clock")
		})
	}
}

func TestIntegrate_RejectsNonFinite(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
	}{
		{"nan dx", math.NaN(), 0},
		{"nan dy", 0, math.NaN()},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", 0, math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, clock := newTestTracker(t, grid.Cell{Row: 5, Col: 5})
			before := tr.Position()

			err := tr.Integrate(tt.dx, tt.dy)
			assert.ErrorIs(t, err, ErrInvalidReading)
			assert.Equal(t, before, tr.Position())
			assert.True(t, tr.Ready(clock.Now()), "rejected reading must not stamp the clock")

			require.NoError(t, tr.Integrate(200, 0))
			assert.Equal(t, grid.Cell{Row: 5, Col: 6}, tr.Cell())
		})
	}
}

func TestHasReached(t *testing.T) {
	tr, _ := newTestTracker(t, grid.Cell{Row: 10, Col: 10})
	target := grid.Cell{Row: 10, Col: 11}

	assert.True(t, tr.HasReached(grid.Cell{Row: 10, Col: 10}, 0), "reflexive at zero tolerance")
	assert.False(t, tr.HasReached(target, DefaultTolerance))

	require.NoError(t, tr.Integrate(150, 0))
	assert.InDelta(t, 0.05, tr.DistanceTo(target), 1e-9)
	assert.True(t, tr.HasReached(target, DefaultTolerance))
	assert.False(t, tr.HasReached(target, 0.04))
}

func TestHasReached_ReflexiveEverywhere(t *testing.T) {
	tr, _ := newTestTracker(t, grid.Cell{Row: 1, Col: 1})
	for _, cell := range []grid.Cell{{Row: 1, Col: 1}, {Row: 4, Col: 6}, {Row: 123, Col: 148}, {Row: 70, Col: 90}} {
		tr.Reset(cell)
		assert.True(t, tr.HasReached(cell, 0), "cell %s", cell)
	}
}

func TestReady(t *testing.T) {
	tr, clock := newTestTracker(t, grid.Cell{Row: 5, Col: 5})

	assert.True(t, tr.Ready(clock.Now()), "fresh tracker is ready")
	assert.Equal(t, DefaultMinInterval, tr.MinInterval())

	require.NoError(t, tr.Integrate(1, 1))
	assert.False(t, tr.Ready(clock.Now()))

	clock.Advance(DefaultMinInterval - time.Millisecond)
	assert.False(t, tr.Ready(clock.Now()))

	clock.Advance(time.Millisecond)
	assert.True(t, tr.Ready(clock.Now()))
}
