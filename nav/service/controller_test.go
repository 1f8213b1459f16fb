package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wiemBe/RoboMap/internal/monitoring"
	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/journal"
	"github.com/wiemBe/RoboMap/nav/planner"
	"github.com/wiemBe/RoboMap/nav/targets"
	"github.com/wiemBe/RoboMap/nav/tracker"
	"github.com/wiemBe/RoboMap/sim"
)

func init() {
	monitoring.SetLogger(nil)
}

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

const interval = 50 * time.Millisecond

type recordingActuator struct {
	mu      sync.Mutex
	intents []engine.Intent
}

func (a *recordingActuator) Send(intent engine.Intent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.intents = append(a.intents, intent)
}

func (a *recordingActuator) last() engine.Intent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.intents) == 0 {
		return ""
	}
	return a.intents[len(a.intents)-1]
}

type collector struct {
	mu     sync.Mutex
	events []engine.Event
}

func (c *collector) Observe(ev engine.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) signals() []engine.Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []engine.Signal
	for _, ev := range c.events {
		if ev.Kind == engine.EventSignal {
			out = append(out, ev.Signal)
		}
	}
	return out
}

type fixture struct {
	ctrl   *Controller
	clock  *timeutil.MockClock
	grid   *grid.Grid
	board  *targets.Board
	cancel context.CancelFunc
	done   chan error
}

// newFixture builds a 5x7 room with POI "a" four cells right of the start
func newFixture(t *testing.T, clock *timeutil.MockClock, sensor engine.Sensor, actuator engine.Actuator) *fixture {
	t.Helper()
	return newFixtureWithJournal(t, clock, sensor, actuator, nil)
}

func newFixtureWithJournal(t *testing.T, clock *timeutil.MockClock, sensor engine.Sensor, actuator engine.Actuator, store journal.Store) *fixture {
	t.Helper()
	g, err := grid.New(grid.Spec{
		LengthM:    1.0,
		WidthM:     1.4,
		Resolution: 0.2,
		POIs:       map[string]grid.Cell{"a": {Row: 1, Col: 5}, "b": {Row: 3, Col: 1}},
		Start:      grid.Cell{Row: 1, Col: 1},
	})
	require.NoError(t, err)

	tr := tracker.New(g, g.Agent(), clock, tracker.DefaultMinInterval)
	board := targets.NewBoard(func(id string) bool {
		_, ok := g.POICell(id)
		return ok
	})
	eng := engine.New(g, tr, engine.Dependencies{
		Targets:  board,
		Sensor:   sensor,
		Actuator: actuator,
		Clock:    clock,
	}, engine.DefaultConfig())

	return &fixture{
		ctrl:  New(eng, Options{Clock: clock, TickInterval: interval, Journal: store}),
		clock: clock,
		grid:  g,
		board: board,
	}
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan error, 1)
	go func() { f.done <- f.ctrl.Run(ctx) }()
	require.Eventually(t, f.ctrl.Running, time.Second, time.Millisecond)
	t.Cleanup(f.shutdown)
}

func (f *fixture) shutdown() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
}

// tick advances the clock one interval and waits for the loop to tick
func (f *fixture) tick(t *testing.T) {
	t.Helper()
	before := f.ctrl.Status().Ticks
	f.clock.Advance(interval)
	require.Eventually(t, func() bool {
		return f.ctrl.Status().Ticks > before
	}, time.Second, time.Millisecond)
}

func TestController_NotRunning(t *testing.T) {
	f := newFixture(t, timeutil.NewMockClock(epoch), nil, nil)
	ctx := context.Background()

	_, err := f.ctrl.Start(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
	_, err = f.ctrl.Stop(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, f.ctrl.Nudge(ctx, engine.Right), ErrNotRunning)
	_, err = f.ctrl.Grid(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)

	status := f.ctrl.Status()
	assert.False(t, status.Running)
	assert.Equal(t, engine.Idle, status.Mode)
	assert.Equal(t, grid.Cell{Row: 1, Col: 1}, status.Agent)
}

func TestController_RunOnce(t *testing.T) {
	f := newFixture(t, timeutil.NewMockClock(epoch), nil, nil)
	f.run(t)

	assert.ErrorIs(t, f.ctrl.Run(context.Background()), ErrAlreadyRunning)
	assert.True(t, f.ctrl.Status().Running)

	f.shutdown()
	assert.False(t, f.ctrl.Running())
	_, err := f.ctrl.Start(context.Background())
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestController_DrivesToTarget(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	cart := sim.NewCart(clock, sim.DefaultSpeed)
	f := newFixture(t, clock, cart, cart)

	obs := &collector{}
	f.ctrl.AddObserver(obs)
	f.run(t)

	require.NoError(t, f.board.Set("a"))
	sig, err := f.ctrl.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SignalStarted, sig)

	status := f.ctrl.Status()
	assert.Equal(t, engine.Autonomous, status.Mode)
	assert.Equal(t, 4, status.Remaining())
	assert.NotEmpty(t, status.Trip)
	trip := status.Trip

	for i := 0; i < 200 && f.ctrl.Status().Mode == engine.Autonomous; i++ {
		f.tick(t)
	}

	status = f.ctrl.Status()
	assert.Equal(t, engine.Idle, status.Mode)
	assert.Equal(t, engine.SignalTargetReached, status.LastSignal)
	assert.Equal(t, grid.Cell{Row: 1, Col: 5}, status.Agent)
	assert.Equal(t, engine.Stop, cart.Intent())
	assert.Empty(t, status.Trip)

	assert.Equal(t, []engine.Signal{engine.SignalStarted, engine.SignalTargetReached}, obs.signals())

	f.shutdown()
	page, err := f.ctrl.History(context.Background(), journal.Query{TripID: trip, Kind: string(engine.EventAdvance)})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total, "one advance per step is journaled under the trip")
}

func TestController_StopFlushesStopIntent(t *testing.T) {
	act := &recordingActuator{}
	f := newFixture(t, timeutil.NewMockClock(epoch), nil, act)
	f.run(t)
	ctx := context.Background()

	sig, err := f.ctrl.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.SignalNone, sig, "stop while idle does nothing")

	require.NoError(t, f.board.Set("a"))
	_, err = f.ctrl.Start(ctx)
	require.NoError(t, err)
	f.tick(t)
	assert.Equal(t, engine.Right, act.last())

	sig, err = f.ctrl.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.SignalStopped, sig)
	assert.Equal(t, engine.Stop, act.last())
	assert.Equal(t, engine.Idle, f.ctrl.Status().Mode)
}

func TestController_CancelStopsAutonomy(t *testing.T) {
	act := &recordingActuator{}
	f := newFixture(t, timeutil.NewMockClock(epoch), nil, act)
	f.run(t)

	require.NoError(t, f.board.Set("b"))
	sig, err := f.ctrl.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.SignalStarted, sig)
	f.tick(t)
	assert.Equal(t, engine.Backward, act.last())

	f.shutdown()
	assert.Equal(t, engine.Stop, act.last())
	status := f.ctrl.Status()
	assert.False(t, status.Running)
	assert.Equal(t, engine.Idle, status.Mode)
	assert.Equal(t, engine.SignalStopped, status.LastSignal)
}

func TestController_Queries(t *testing.T) {
	f := newFixture(t, timeutil.NewMockClock(epoch), nil, nil)
	f.run(t)
	ctx := context.Background()

	view, err := f.ctrl.Grid(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Rows)
	assert.Equal(t, 7, view.Cols)
	assert.Len(t, view.Lines, 5)
	assert.Equal(t, grid.Cell{Row: 1, Col: 1}, view.Agent)

	pois, err := f.ctrl.POIs(ctx)
	require.NoError(t, err)
	require.Len(t, pois, 2)
	assert.Equal(t, "a", pois[0].ID)

	info, err := f.ctrl.Cell(ctx, grid.Cell{Row: 1, Col: 5})
	require.NoError(t, err)
	assert.Equal(t, grid.Free, info.State, "inactive POIs rest as free cells")
	assert.Equal(t, "a", info.POI)

	info, err = f.ctrl.Cell(ctx, grid.Cell{Row: 0, Col: 0})
	require.NoError(t, err)
	assert.Equal(t, grid.Wall, info.State)

	_, err = f.ctrl.Cell(ctx, grid.Cell{Row: 9, Col: 9})
	assert.ErrorIs(t, err, grid.ErrOutOfBounds)

	path, err := f.ctrl.Plan(ctx, grid.Cell{Row: 1, Col: 1}, grid.Cell{Row: 3, Col: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, path.Steps())

	_, err = f.ctrl.Plan(ctx, grid.Cell{Row: 1, Col: 1}, grid.Cell{Row: 0, Col: 0})
	assert.ErrorIs(t, err, planner.ErrUnreachable)
}

func TestController_Nudge(t *testing.T) {
	f := newFixture(t, timeutil.NewMockClock(epoch), nil, nil)
	f.run(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Nudge(ctx, engine.Right))
	assert.Equal(t, grid.Cell{Row: 1, Col: 2}, f.ctrl.Status().Agent)

	assert.ErrorIs(t, f.ctrl.Nudge(ctx, engine.Forward), grid.ErrBlocked)
	assert.ErrorIs(t, f.ctrl.Nudge(ctx, engine.Stop), engine.ErrInvalidIntent)
	assert.Equal(t, grid.Cell{Row: 1, Col: 2}, f.ctrl.Status().Agent)

	events, err := f.ctrl.Events(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, engine.EventMove, events[0].Kind)

	require.Eventually(t, func() bool {
		page, err := f.ctrl.History(ctx, journal.Query{Kind: string(engine.EventMove)})
		return err == nil && page.Total == 1
	}, time.Second, time.Millisecond)
}

// slowStore delays every write
type slowStore struct {
	*journal.MemoryStore
	delay time.Duration
}

func (s *slowStore) Record(ctx context.Context, e journal.Entry) error {
	time.Sleep(s.delay)
	return s.MemoryStore.Record(ctx, e)
}

// runawaySensor reports a displacement far outside the room on every poll
type runawaySensor struct{}

func (runawaySensor) Poll() (float64, float64, bool) { return 1e9, 0, true }

func TestController_SlowJournalDoesNotStallTicks(t *testing.T) {
	store := &slowStore{MemoryStore: journal.NewMemoryStore(), delay: 100 * time.Millisecond}
	f := newFixtureWithJournal(t, timeutil.NewMockClock(epoch), runawaySensor{}, nil, store)
	f.run(t)

	const ticks = 20
	start := time.Now()
	for i := 0; i < ticks; i++ {
		f.tick(t)
	}
	assert.Less(t, time.Since(start), time.Second, "ticks waited on journal writes")
	assert.EqualValues(t, ticks, f.ctrl.Status().Ticks)

	f.shutdown()
	page, err := store.List(context.Background(), journal.Query{Kind: string(engine.EventRejected)})
	require.NoError(t, err)
	assert.Equal(t, ticks, page.Total, "queued entries are written on shutdown")
	assert.Zero(t, f.ctrl.Status().Dropped)
}

// gateObserver holds the loop on the first event carrying signal until
// release is closed
type gateObserver struct {
	signal  engine.Signal
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateObserver) Observe(ev engine.Event) {
	if ev.Signal != g.signal {
		return
	}
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
}

func TestController_AbandonedCommandReturnsZeroValues(t *testing.T) {
	f := newFixture(t, timeutil.NewMockClock(epoch), nil, &recordingActuator{})
	gate := &gateObserver{signal: engine.SignalStarted, entered: make(chan struct{}), release: make(chan struct{})}
	f.ctrl.AddObserver(gate)
	f.run(t)
	require.NoError(t, f.board.Set("a"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-gate.entered
		cancel()
	}()

	sig, err := f.ctrl.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, engine.SignalNone, sig)

	close(gate.release)
	require.Eventually(t, func() bool {
		return f.ctrl.Status().Mode == engine.Autonomous
	}, time.Second, time.Millisecond, "the command still completes on the loop")
}
