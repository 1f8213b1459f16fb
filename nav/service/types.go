package service

import (
	"context"
	"errors"
	"time"

	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/journal"
	"github.com/wiemBe/RoboMap/nav/planner"
)

const DefaultTickInterval = 50 * time.Millisecond

var (
	ErrNotRunning     = errors.New("controller not running")
	ErrAlreadyRunning = errors.New("controller already running")
)

// Observer receives engine events after each loop step, on the loop goroutine.
// Implementations must not block.
type Observer interface {
	Observe(ev engine.Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ev engine.Event)

func (f ObserverFunc) Observe(ev engine.Event) { f(ev) }

// Options configures a Controller
type Options struct {
	Clock        timeutil.Clock
	TickInterval time.Duration

	// Journal receives every event. Defaults to an in-memory store.
	Journal journal.Store
}

// Status is the published view of the controller
type Status struct {
	engine.Snapshot
	Running   bool              `json:"running"`
	Ticks     uint64            `json:"ticks"`
	LastTick  engine.TickResult `json:"last_tick"`
	Trip      string            `json:"trip,omitempty"`
	// Journal entries dropped because the writer fell behind
	Dropped   int64             `json:"journal_dropped,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CellInfo describes one grid cell
type CellInfo struct {
	Cell  grid.Cell      `json:"cell"`
	State grid.CellState `json:"state"`
	POI   string         `json:"poi,omitempty"`
}

// GridView is a rendered copy of the grid
type GridView struct {
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Resolution float64   `json:"resolution_m"`
	Agent      grid.Cell `json:"agent"`
	Lines      []string  `json:"lines"`
}

// Navigator is the operator-facing surface of the control loop
type Navigator interface {
	Status() Status
	Start(ctx context.Context) (engine.Signal, error)
	Stop(ctx context.Context) (engine.Signal, error)
	Nudge(ctx context.Context, intent engine.Intent) error
	Plan(ctx context.Context, from, to grid.Cell) (planner.Path, error)
	Cell(ctx context.Context, cell grid.Cell) (CellInfo, error)
	Grid(ctx context.Context) (GridView, error)
	POIs(ctx context.Context) ([]grid.POI, error)
	History(ctx context.Context, q journal.Query) (journal.Page, error)
}
