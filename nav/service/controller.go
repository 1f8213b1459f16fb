package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wiemBe/RoboMap/internal/monitoring"
	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/journal"
	"github.com/wiemBe/RoboMap/nav/planner"
)

var _ Navigator = (*Controller)(nil)

type command struct {
	run  func(ctx context.Context)
	done chan struct{}
}

// Controller drives an Engine from one goroutine
type Controller struct {
	engine   *engine.Engine
	clock    timeutil.Clock
	interval time.Duration
	journal  journal.Store
	recorder *journal.Recorder

	commands chan command
	started  atomic.Bool
	running  atomic.Bool
	stopped  chan struct{}
	status   atomic.Pointer[Status]

	mu        sync.Mutex
	observers []Observer

	// loop goroutine only
	lastSeq  int
	ticks    uint64
	lastTick engine.TickResult
}

// New creates a controller for e. Run must be called to start the loop.
func New(e *engine.Engine, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Journal == nil {
		opts.Journal = journal.NewMemoryStore()
	}

	c := &Controller{
		engine:   e,
		clock:    opts.Clock,
		interval: opts.TickInterval,
		journal:  opts.Journal,
		recorder: journal.NewRecorder(opts.Journal),
		commands: make(chan command),
		stopped:  make(chan struct{}),
	}
	c.observers = []Observer{c.recorder}
	c.lastSeq = e.Snapshot().LastEvent
	c.publish()
	return c
}

// AddObserver registers o for events produced from now on
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Run executes the control loop until ctx is done. A Controller runs once.
// On exit an autonomous engine is stopped so a final Stop intent reaches
// the actuator.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	// The recorder outlives the loop so the final events are written
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		c.recorder.Run(recorderCtx)
	}()
	defer func() {
		stopRecorder()
		<-recorderDone
	}()

	c.running.Store(true)
	defer close(c.stopped)
	defer c.running.Store(false)

	monitoring.Logf("service: control loop started at %v per tick", c.interval)
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.engine.Stop()
			c.flush()
			c.running.Store(false)
			c.publish()
			monitoring.Logf("service: control loop stopped")
			return nil

		case cmd := <-c.commands:
			cmd.run(ctx)
			c.flush()
			c.publish()
			close(cmd.done)

		case <-ticker.C():
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	result, err := c.engine.Tick(ctx)
	c.ticks++
	if err != nil {
		monitoring.Logf("service: tick failed, halting autonomy: %v", err)
		c.engine.Stop()
		result.Mode = c.engine.Mode()
	}
	c.lastTick = result
	c.flush()
	c.publish()
}

// flush forwards events recorded since the last flush
func (c *Controller) flush() {
	events := c.engine.EventsSince(c.lastSeq)
	if len(events) == 0 {
		return
	}
	c.lastSeq = events[len(events)-1].Seq

	c.mu.Lock()
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	for _, ev := range events {
		for _, o := range observers {
			o.Observe(ev)
		}
	}
}

func (c *Controller) publish() {
	c.status.Store(&Status{
		Snapshot:  c.engine.Snapshot(),
		Running:   c.running.Load(),
		Ticks:     c.ticks,
		LastTick:  c.lastTick,
		Trip:      c.recorder.Trip(),
		Dropped:   c.recorder.Dropped(),
		UpdatedAt: c.clock.Now(),
	})
}

// Status returns the most recently published status
func (c *Controller) Status() Status {
	return *c.status.Load()
}

// Running reports whether the loop is executing
func (c *Controller) Running() bool {
	return c.running.Load()
}

// do executes fn on the loop goroutine and waits for it. When do returns an
// error fn may still run later, so callers must not read what fn writes.
func (c *Controller) do(ctx context.Context, fn func(ctx context.Context)) error {
	if !c.running.Load() {
		return ErrNotRunning
	}
	cmd := command{run: fn, done: make(chan struct{})}
	select {
	case c.commands <- cmd:
	case <-c.stopped:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins autonomous navigation toward the active target
func (c *Controller) Start(ctx context.Context) (engine.Signal, error) {
	var sig engine.Signal
	if err := c.do(ctx, func(loopCtx context.Context) {
		sig = c.engine.Start(loopCtx)
	}); err != nil {
		return engine.SignalNone, err
	}
	return sig, nil
}

// Stop halts autonomous navigation
func (c *Controller) Stop(ctx context.Context) (engine.Signal, error) {
	var sig engine.Signal
	if err := c.do(ctx, func(context.Context) {
		sig = c.engine.Stop()
	}); err != nil {
		return engine.SignalNone, err
	}
	return sig, nil
}

// Nudge moves the agent one cell by hand
func (c *Controller) Nudge(ctx context.Context, intent engine.Intent) error {
	var moveErr error
	if err := c.do(ctx, func(context.Context) {
		moveErr = c.engine.Nudge(intent)
	}); err != nil {
		return err
	}
	return moveErr
}

// Plan computes a route without changing state
func (c *Controller) Plan(ctx context.Context, from, to grid.Cell) (planner.Path, error) {
	var path planner.Path
	var planErr error
	if err := c.do(ctx, func(context.Context) {
		path, planErr = c.engine.Plan(from, to)
	}); err != nil {
		return nil, err
	}
	return path, planErr
}

// Cell describes the cell at cell
func (c *Controller) Cell(ctx context.Context, cell grid.Cell) (CellInfo, error) {
	var info CellInfo
	var cellErr error
	if err := c.do(ctx, func(context.Context) {
		g := c.engine.Grid()
		state, err := g.CellState(cell)
		if err != nil {
			cellErr = err
			return
		}
		info = CellInfo{Cell: cell, State: state}
		info.POI, _ = g.POIAt(cell)
	}); err != nil {
		return CellInfo{}, err
	}
	return info, cellErr
}

// Grid returns a rendered copy of the grid
func (c *Controller) Grid(ctx context.Context) (GridView, error) {
	var view GridView
	if err := c.do(ctx, func(context.Context) {
		g := c.engine.Grid()
		view = GridView{
			Rows:       g.Rows(),
			Cols:       g.Cols(),
			Resolution: g.Resolution(),
			Agent:      g.Agent(),
			Lines:      g.Render(),
		}
	}); err != nil {
		return GridView{}, err
	}
	return view, nil
}

// POIs returns the POI registry sorted by id
func (c *Controller) POIs(ctx context.Context) ([]grid.POI, error) {
	var pois []grid.POI
	if err := c.do(ctx, func(context.Context) {
		pois = c.engine.Grid().POIs()
	}); err != nil {
		return nil, err
	}
	return pois, nil
}

// Events returns the retained engine events newer than seq
func (c *Controller) Events(ctx context.Context, seq int) ([]engine.Event, error) {
	var events []engine.Event
	if err := c.do(ctx, func(context.Context) {
		events = c.engine.EventsSince(seq)
	}); err != nil {
		return nil, err
	}
	return events, nil
}

// History returns a page of journaled events. It does not need the loop.
func (c *Controller) History(ctx context.Context, q journal.Query) (journal.Page, error) {
	return c.journal.List(ctx, q)
}
