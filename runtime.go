package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/wiemBe/RoboMap/api"
	"github.com/wiemBe/RoboMap/hardware/serialport"
	"github.com/wiemBe/RoboMap/internal/httputil"
	"github.com/wiemBe/RoboMap/internal/timeutil"
	"github.com/wiemBe/RoboMap/nav/config"
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/journal"
	"github.com/wiemBe/RoboMap/nav/service"
	"github.com/wiemBe/RoboMap/nav/targets"
	"github.com/wiemBe/RoboMap/nav/tracker"
	"github.com/wiemBe/RoboMap/sim"
	"github.com/wiemBe/RoboMap/transport/websocket"
)

// runtimeOptions selects how the navigation stack is assembled
type runtimeOptions struct {
	// Simulate drives a kinematic cart instead of the serial device
	Simulate bool
	// LocalDispatch serves targets from the in-process board
	LocalDispatch bool
	// Port overrides the plan's serial port
	Port string
	// DBPath is the SQLite journal file; empty keeps the journal in memory
	DBPath string
	Clock  timeutil.Clock
}

// navRuntime is a fully wired navigation stack
type navRuntime struct {
	grid       *grid.Grid
	controller *service.Controller
	board      *targets.Board
	hub        *websocket.Hub
	store      journal.Store
	device     *serialport.Device
	cart       *sim.Cart
}

// loadPlan resolves name against configDir. A name that is an existing file
// path is loaded directly; an empty name selects the manager default, or
// the built-in plan when the directory is missing.
func loadPlan(configDir, name string) (*config.FloorPlan, error) {
	if name != "" {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			fp, err := config.Load(name)
			if err != nil {
				return nil, err
			}
			if err := config.Validate(fp); err != nil {
				return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}
			return fp, nil
		}
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		if name != "" {
			return nil, err
		}
		log.Printf("Warning: %v, using built-in plan", err)
		return config.Default(), nil
	}
	if name == "" {
		return manager.GetDefault(), nil
	}
	return manager.LoadConfig(name)
}

// buildRuntime assembles grid, tracker, engine, controller and the
// collaborators chosen by opts
func buildRuntime(plan *config.FloorPlan, opts runtimeOptions) (*navRuntime, error) {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	g, err := grid.New(plan.GridSpec())
	if err != nil {
		return nil, fmt.Errorf("failed to build grid: %w", err)
	}
	tr := tracker.New(g, g.Agent(), clock, plan.TrackerMinInterval.Duration())

	board := targets.NewBoard(func(id string) bool {
		_, ok := plan.POIs[id]
		return ok
	})
	rt := &navRuntime{grid: g, board: board}

	deps := engine.Dependencies{Clock: clock}
	switch {
	case plan.Targeting == config.TargetingNearest:
		deps.Targets = targets.NewNearest(g)
	case opts.LocalDispatch || opts.Simulate:
		deps.Targets = rt.board
	default:
		client := httputil.NewStandardClient(&http.Client{Timeout: plan.TargetPollTimeout.Duration()})
		deps.Targets = targets.NewHTTPProvider(plan.TargetURL, client)
	}

	if opts.Simulate {
		rt.cart = sim.NewCart(clock, sim.DefaultSpeed)
		deps.Sensor = rt.cart
		deps.Actuator = rt.cart
	} else {
		port := opts.Port
		if port == "" {
			port = plan.Sensor.Port
		}
		if port == "" {
			return nil, errors.New("no serial port configured (set sensor.port, pass --port or use --simulate)")
		}
		device, err := serialport.Open(port,
			serialport.PortOptions{BaudRate: plan.Sensor.BaudRate},
			serialport.Calibration{CountsPerMM: plan.Sensor.CountsPerMM, FilterWindow: plan.Sensor.FilterWindow},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
		}
		rt.device = device
		deps.Sensor = device.Sensor()
		deps.Actuator = device.Actuator()
	}

	if opts.DBPath != "" {
		store, err := journal.OpenSQLite(opts.DBPath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		rt.store = store
	} else {
		rt.store = journal.NewMemoryStore()
	}

	e := engine.New(g, tr, deps, plan.EngineConfig())
	rt.controller = service.New(e, service.Options{
		Clock:        clock,
		TickInterval: plan.TickInterval(),
		Journal:      rt.store,
	})

	rt.hub = websocket.NewHub(rt.controller.Status)
	rt.controller.AddObserver(rt.hub)
	rt.controller.AddObserver(service.ObserverFunc(logSignal))
	rt.board.OnChange(func(id string) {
		rt.hub.BroadcastEvent("dispatch", targets.NewAvailability(id))
	})

	return rt, nil
}

// logSignal prints state machine outcomes to the server log
func logSignal(ev engine.Event) {
	if ev.Kind != engine.EventSignal {
		return
	}
	if ev.Target != "" {
		log.Printf("[NAV] %s (target %s, agent %s)", ev.Signal, ev.Target, ev.Agent)
		return
	}
	log.Printf("[NAV] %s (agent %s)", ev.Signal, ev.Agent)
}

// handler returns the HTTP surface of the runtime
func (rt *navRuntime) handler(mcpHandler http.Handler) http.Handler {
	return api.NewServer(rt.controller, rt.board, rt.hub, mcpHandler)
}

// run starts the hub, the serial monitor and the control loop, and blocks
// until ctx is done
func (rt *navRuntime) run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.hub.Run(ctx)
	}()

	if rt.device != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rt.device.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Serial monitor stopped: %v", err)
			}
		}()
	}

	err := rt.controller.Run(ctx)
	wg.Wait()
	return err
}

// Close releases the journal and the serial device
func (rt *navRuntime) Close() error {
	var errs []error
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	if rt.device != nil {
		errs = append(errs, rt.device.Close())
	}
	return errors.Join(errs...)
}
