package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/wiemBe/RoboMap/internal/monitoring"
	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/planner"
	"github.com/wiemBe/RoboMap/nav/tracker"
)

// Engine is the navigation state machine
type Engine struct {
	grid     *grid.Grid
	tracker  *tracker.Tracker
	targets  TargetProvider
	sensor   Sensor
	actuator Actuator
	clock    timeutil.Clock
	cfg      Config

	mode       Mode
	target     string
	targetCell grid.Cell
	path       planner.Path
	cursor     int

	polled     bool
	lastPoll   time.Time
	lastIntent Intent
	lastSignal Signal

	events []Event
	seq    int
}

// Dependencies are the engine collaborators. Sensor may be nil when no
// displacement source is attached.
type Dependencies struct {
	Targets  TargetProvider
	Sensor   Sensor
	Actuator Actuator
	Clock    timeutil.Clock
}

// New creates an engine in Idle over g and tr
func New(g *grid.Grid, tr *tracker.Tracker, deps Dependencies, cfg Config) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	actuator := deps.Actuator
	if actuator == nil {
		actuator = nopActuator{}
	}
	return &Engine{
		grid:     g,
		tracker:  tr,
		targets:  deps.Targets,
		sensor:   deps.Sensor,
		actuator: actuator,
		clock:    clock,
		cfg:      cfg,
		mode:     Idle,
	}
}

// Grid returns the engine-owned grid. Callers must not mutate it.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// Mode returns the current mode
func (e *Engine) Mode() Mode { return e.mode }

// Start acquires the active target and begins autonomous navigation.
// It returns SignalNone when already autonomous.
func (e *Engine) Start(ctx context.Context) Signal {
	if e.mode == Autonomous {
		return SignalNone
	}

	id, ok := e.pollTarget(ctx)
	if !ok {
		return e.signal(SignalNoTargetAvailable, "no active target")
	}
	cell, known := e.grid.POICell(id)
	if !known {
		monitoring.Logf("engine: provider returned unknown target %q", id)
		return e.signal(SignalNoTargetAvailable, fmt.Sprintf("unknown target %q", id))
	}

	if err := e.grid.ActivatePOI(id); err != nil {
		return e.signal(SignalNoTargetAvailable, err.Error())
	}
	e.target, e.targetCell = id, cell

	path, err := planner.Plan(e.grid, e.grid.Agent(), cell)
	if err != nil {
		monitoring.Logf("engine: %v", err)
		return e.signal(SignalTargetUnreachable, err.Error())
	}
	if path.Len() == 1 {
		return e.signal(SignalTargetReached, "already at target "+id)
	}

	e.path, e.cursor = path, 0
	e.mode = Autonomous
	e.lastIntent = ""
	return e.signal(SignalStarted, fmt.Sprintf("target %s at %s, %d steps", id, cell, path.Steps()))
}

// Stop halts autonomous navigation and emits a single Stop intent. It does
// nothing in Idle.
func (e *Engine) Stop() Signal {
	if e.mode != Autonomous {
		return SignalNone
	}
	e.halt()
	return e.signal(SignalStopped, "stopped by operator")
}

// Tick runs one control step. The returned error reports an internal
// invariant violation; collaborator failures never surface here.
func (e *Engine) Tick(ctx context.Context) (TickResult, error) {
	now := e.clock.Now()

	if e.sensor != nil && e.tracker.Ready(now) {
		if dx, dy, ok := e.sensor.Poll(); ok {
			if err := e.tracker.Integrate(dx, dy); err != nil {
				monitoring.Logf("engine: rejected reading: %v", err)
				e.record(Event{Kind: EventRejected, Message: err.Error()})
			}
		}
	}

	if e.mode == Idle {
		if err := e.followTracker(); err != nil {
			return TickResult{Mode: e.mode}, err
		}
		return TickResult{Mode: e.mode}, nil
	}

	result := TickResult{}

	if !e.polled || e.clock.Since(e.lastPoll) >= e.cfg.PollInterval {
		if id, ok := e.pollTarget(ctx); ok && id != e.target {
			if cell, known := e.grid.POICell(id); known {
				result.Signal = e.retarget(id, cell)
				result.Replanned = true
				return e.finishTick(result), nil
			}
			monitoring.Logf("engine: ignoring unknown target %q", id)
		}
	}

	if deviated := e.tracker.Cell(); e.offPath(deviated) {
		result.Signal = e.recoverDeviation(deviated)
		result.Replanned = true
		return e.finishTick(result), nil
	}

	if e.cursor+1 < len(e.path) {
		next := e.path[e.cursor+1]
		if e.tracker.HasReached(next, e.cfg.Tolerance) {
			if err := e.grid.SetAgentPosition(next); err != nil {
				e.halt()
				return TickResult{Mode: e.mode}, fmt.Errorf("advance to waypoint %s: %w", next, err)
			}
			e.cursor++
			result.Advanced = true
			e.record(Event{Kind: EventAdvance, Message: fmt.Sprintf("waypoint %d/%d", e.cursor, e.path.Steps())})

			if next == e.targetCell {
				e.halt()
				result.Signal = e.signal(SignalTargetReached, "reached target "+e.target)
				return e.finishTick(result), nil
			}
		}
	}

	if e.cursor+1 >= len(e.path) {
		e.halt()
		result.Signal = e.signal(SignalPathExhausted, fmt.Sprintf("path ended at %s before target %s", e.grid.Agent(), e.targetCell))
		return e.finishTick(result), nil
	}

	return e.finishTick(result), nil
}

// Nudge moves the agent one cell in the direction of intent, as a manual
// override. While autonomous the path is replanned from the new cell.
func (e *Engine) Nudge(intent Intent) error {
	if !intent.Valid() || intent == Stop {
		return fmt.Errorf("%w: %q", ErrInvalidIntent, intent)
	}

	cell := intent.Apply(e.grid.Agent())
	if err := e.grid.SetAgentPosition(cell); err != nil {
		return err
	}
	e.tracker.Reset(cell)
	e.record(Event{Kind: EventMove, Intent: intent, Message: "manual move to " + cell.String()})

	if e.mode == Autonomous {
		e.replanFrom(cell)
	}
	return nil
}

// Plan computes a route on the engine grid without changing any state
func (e *Engine) Plan(from, to grid.Cell) (planner.Path, error) {
	return planner.Plan(e.grid, from, to)
}

// Snapshot returns a copy of the public state
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Mode:       e.mode,
		Target:     e.target,
		Agent:      e.grid.Agent(),
		Position:   e.tracker.Position(),
		Cursor:     e.cursor,
		LastIntent: e.lastIntent,
		LastSignal: e.lastSignal,
		LastEvent:  e.seq,
	}
	if e.target != "" {
		cell := e.targetCell
		s.TargetCell = &cell
	}
	if e.path != nil {
		s.Path = append(planner.Path(nil), e.path...)
	}
	return s
}

// Events returns a copy of the retained history, oldest first
func (e *Engine) Events() []Event {
	return append([]Event(nil), e.events...)
}

// EventsSince returns retained events with Seq greater than seq
func (e *Engine) EventsSince(seq int) []Event {
	i := len(e.events)
	for i > 0 && e.events[i-1].Seq > seq {
		i--
	}
	return append([]Event(nil), e.events[i:]...)
}

func (e *Engine) pollTarget(ctx context.Context) (string, bool) {
	e.polled = true
	e.lastPoll = e.clock.Now()
	if e.targets == nil {
		return "", false
	}

	timeout := e.cfg.PollTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().PollTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.targets.ActiveTarget(ctx)
}

// retarget switches to a new target and replans from the agent cell
func (e *Engine) retarget(id string, cell grid.Cell) Signal {
	if err := e.grid.ActivatePOI(id); err != nil {
		monitoring.Logf("engine: activate %q: %v", id, err)
		return SignalNone
	}
	previous := e.target
	e.target, e.targetCell = id, cell
	e.signal(SignalTargetChanged, fmt.Sprintf("target %s -> %s", previous, id))

	if sig := e.replanFrom(e.grid.Agent()); sig != SignalNone {
		return sig
	}
	return SignalTargetChanged
}

// replanFrom discards the current path and plans from cell to the target.
// It returns a terminal signal when navigation had to end.
func (e *Engine) replanFrom(cell grid.Cell) Signal {
	path, err := planner.Plan(e.grid, cell, e.targetCell)
	if err != nil {
		monitoring.Logf("engine: replan: %v", err)
		e.halt()
		return e.signal(SignalTargetUnreachable, err.Error())
	}
	if path.Len() == 1 {
		e.halt()
		return e.signal(SignalTargetReached, "reached target "+e.target)
	}

	e.path, e.cursor = path, 0
	e.record(Event{Kind: EventReplan, Message: fmt.Sprintf("%d steps from %s", path.Steps(), cell)})
	return SignalNone
}

// offPath reports whether the tracker left the current and next waypoint
// for a free cell, meaning the agent was moved externally.
func (e *Engine) offPath(cell grid.Cell) bool {
	if e.grid.IsWall(cell) || cell == e.path[e.cursor] {
		return false
	}
	return e.cursor+1 >= len(e.path) || cell != e.path[e.cursor+1]
}

func (e *Engine) recoverDeviation(cell grid.Cell) Signal {
	if err := e.grid.SetAgentPosition(cell); err != nil {
		monitoring.Logf("engine: deviation to %s: %v", cell, err)
		return SignalNone
	}
	e.record(Event{Kind: EventMove, Message: "deviated to " + cell.String()})
	return e.replanFrom(cell)
}

// followTracker keeps the grid agent in step with the tracker while idle
func (e *Engine) followTracker() error {
	cell := e.tracker.Cell()
	if cell == e.grid.Agent() || e.grid.IsWall(cell) {
		return nil
	}
	if err := e.grid.SetAgentPosition(cell); err != nil {
		return fmt.Errorf("follow tracker to %s: %w", cell, err)
	}
	e.record(Event{Kind: EventMove, Message: "moved to " + cell.String()})
	return nil
}

// finishTick emits the intent for the current step while autonomous
func (e *Engine) finishTick(result TickResult) TickResult {
	result.Mode = e.mode
	if e.mode != Autonomous {
		return result
	}
	intent := IntentBetween(e.path[e.cursor], e.path[e.cursor+1])
	e.send(intent)
	result.Intent = intent
	return result
}

// halt returns to Idle and emits Stop
func (e *Engine) halt() {
	e.mode = Idle
	e.path, e.cursor = nil, 0
	e.send(Stop)
}

func (e *Engine) send(intent Intent) {
	e.actuator.Send(intent)
	if intent != e.lastIntent {
		e.lastIntent = intent
		e.record(Event{Kind: EventIntent, Intent: intent})
	}
}

func (e *Engine) signal(sig Signal, message string) Signal {
	e.lastSignal = sig
	e.record(Event{Kind: EventSignal, Signal: sig, Message: message})
	return sig
}

func (e *Engine) record(ev Event) {
	e.seq++
	ev.Seq = e.seq
	ev.Time = e.clock.Now()
	ev.Mode = e.mode
	ev.Target = e.target
	ev.Agent = e.grid.Agent()

	e.events = append(e.events, ev)
	if len(e.events) > MaxEvents {
		e.events = append(e.events[:0], e.events[len(e.events)-MaxEvents:]...)
	}
}

type nopActuator struct{}

func (nopActuator) Send(Intent) {}

// IsTerminal reports whether sig ends an autonomous run
func IsTerminal(sig Signal) bool {
	switch sig {
	case SignalStopped, SignalTargetReached, SignalTargetUnreachable, SignalPathExhausted:
		return true
	}
	return false
}
