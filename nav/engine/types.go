package engine

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/planner"
)

// Mode is the navigation mode
type Mode string

const (
	Idle       Mode = "idle"
	Autonomous Mode = "autonomous"
)

// Signal names the outcome of an engine operation
type Signal string

const (
	SignalNone              Signal = ""
	SignalStarted           Signal = "started"
	SignalStopped           Signal = "stopped"
	SignalNoTargetAvailable Signal = "no_target_available"
	SignalTargetUnreachable Signal = "target_unreachable"
	SignalTargetReached     Signal = "target_reached"
	SignalTargetChanged     Signal = "target_changed"
	SignalPathExhausted     Signal = "path_exhausted"
)

// Intent is a discrete movement command for the actuator
type Intent string

const (
	Forward  Intent = "forward"
	Backward Intent = "backward"
	Left     Intent = "left"
	Right    Intent = "right"
	Stop     Intent = "stop"
)

// EventKind classifies journal events
type EventKind string

const (
	EventSignal   EventKind = "signal"
	EventAdvance  EventKind = "advance"
	EventReplan   EventKind = "replan"
	EventIntent   EventKind = "intent"
	EventMove     EventKind = "agent_moved"
	EventRejected EventKind = "reading_rejected"
)

// MaxEvents bounds the in-memory event history
const MaxEvents = 256

var (
	ErrInvalidIntent = errors.New("invalid movement intent")
)

// TargetProvider reports the currently active target id. Implementations
// must honor ctx and return ("", false) on any failure.
type TargetProvider interface {
	ActiveTarget(ctx context.Context) (string, bool)
}

// Sensor returns the filtered displacement in millimeters since the
// previous successful poll. ok is false when no reading is available.
type Sensor interface {
	Poll() (dxMM, dyMM float64, ok bool)
}

// Actuator receives movement intents. Send is fire-and-forget.
type Actuator interface {
	Send(intent Intent)
}

// Event is one entry of the engine history
type Event struct {
	Seq     int       `json:"seq"`
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	Signal  Signal    `json:"signal,omitempty"`
	Mode    Mode      `json:"mode"`
	Target  string    `json:"target,omitempty"`
	Agent   grid.Cell `json:"agent"`
	Intent  Intent    `json:"intent,omitempty"`
	Message string    `json:"message,omitempty"`
}

// TickResult summarizes one control tick
type TickResult struct {
	Mode      Mode   `json:"mode"`
	Signal    Signal `json:"signal,omitempty"`
	Intent    Intent `json:"intent,omitempty"`
	Advanced  bool   `json:"advanced"`
	Replanned bool   `json:"replanned"`
}

// Snapshot is a copy of the public engine state
type Snapshot struct {
	Mode       Mode         `json:"mode"`
	Target     string       `json:"target,omitempty"`
	TargetCell *grid.Cell   `json:"target_cell,omitempty"`
	Agent      grid.Cell    `json:"agent"`
	Position   orb.Point    `json:"position"`
	Path       planner.Path `json:"path,omitempty"`
	Cursor     int          `json:"cursor"`
	LastIntent Intent       `json:"last_intent,omitempty"`
	LastSignal Signal       `json:"last_signal,omitempty"`
	LastEvent  int          `json:"last_event"`
}

// Remaining returns the number of moves left on the path
func (s Snapshot) Remaining() int {
	if len(s.Path) == 0 {
		return 0
	}
	return len(s.Path) - 1 - s.Cursor
}

// Config holds the engine timing and tolerance settings
type Config struct {
	// Tolerance is the arrival radius in meters
	Tolerance float64

	// PollInterval is how often the target provider is polled while
	// autonomous
	PollInterval time.Duration

	// PollTimeout bounds a single target poll
	PollTimeout time.Duration
}

// DefaultConfig returns the stock timing
func DefaultConfig() Config {
	return Config{
		Tolerance:    0.08,
		PollInterval: 500 * time.Millisecond,
		PollTimeout:  300 * time.Millisecond,
	}
}
