package engine

import (
	"fmt"
	"strings"

	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/planner"
)

// PathIntents returns the intent for every step of path
func PathIntents(path planner.Path) []Intent {
	intents := make([]Intent, 0, path.Steps())
	for i := 1; i < len(path); i++ {
		intents = append(intents, IntentBetween(path[i-1], path[i]))
	}
	return intents
}

// IntentBetween maps the step from one cell to the next onto an intent.
// Row decreasing is Forward, row increasing Backward, column decreasing
// Left, column increasing Right. Anything else is Stop.
func IntentBetween(from, to grid.Cell) Intent {
	dr, dc := to.Row-from.Row, to.Col-from.Col
	switch {
	case dr == -1 && dc == 0:
		return Forward
	case dr == 1 && dc == 0:
		return Backward
	case dr == 0 && dc == -1:
		return Left
	case dr == 0 && dc == 1:
		return Right
	default:
		return Stop
	}
}

// Delta returns the row and column offset of a single step for intent
func (i Intent) Delta() (dr, dc int) {
	switch i {
	case Forward:
		return -1, 0
	case Backward:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

// Apply returns the cell one step from cell in the intent's direction
func (i Intent) Apply(cell grid.Cell) grid.Cell {
	dr, dc := i.Delta()
	return grid.Cell{Row: cell.Row + dr, Col: cell.Col + dc}
}

// Valid reports whether i is one of the five known intents
func (i Intent) Valid() bool {
	switch i {
	case Forward, Backward, Left, Right, Stop:
		return true
	}
	return false
}

// ParseIntent accepts intent names, screen directions (up/down) and the
// single-letter wire codes.
func ParseIntent(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "up", "f":
		return Forward, nil
	case "backward", "back", "down", "b":
		return Backward, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	case "stop", "s", "halt":
		return Stop, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIntent, s)
}
