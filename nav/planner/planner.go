package planner

import (
	"errors"
	"fmt"

	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/zyedidia/generic/heap"
)

var (
	// ErrUnreachable is returned when the frontier empties before the goal
	// is reached. It is an expected outcome, not a fault.
	ErrUnreachable = errors.New("goal unreachable")
)

// Graph is the view of the grid the planner searches. *grid.Grid
// implements it; the planner never copies or mutates it.
type Graph interface {
	InBounds(cell grid.Cell) bool
	Neighbors(cell grid.Cell) []grid.Cell
}

type frontierItem struct {
	cell     grid.Cell
	cost     int
	priority int
	seq      int
}

func lessItem(a, b frontierItem) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

// Plan returns a minimum-length path from start to goal, both inclusive.
// Start and goal are not checked for wall status.
func Plan(g Graph, start, goal grid.Cell) (Path, error) {
	if !g.InBounds(start) {
		return nil, fmt.Errorf("plan start %s: %w", start, grid.ErrOutOfBounds)
	}
	if !g.InBounds(goal) {
		return nil, fmt.Errorf("plan goal %s: %w", goal, grid.ErrOutOfBounds)
	}
	if start == goal {
		return Path{start}, nil
	}

	costSoFar := map[grid.Cell]int{start: 0}
	cameFrom := map[grid.Cell]grid.Cell{}

	frontier := heap.New[frontierItem](lessItem)
	seq := 0
	frontier.Push(frontierItem{cell: start, priority: grid.ManhattanDistance(start, goal), seq: seq})

	for frontier.Size() > 0 {
		current, _ := frontier.Pop()
		if current.cost > costSoFar[current.cell] {
			// stale entry, a cheaper one was already expanded
			continue
		}
		if current.cell == goal {
			return reconstruct(cameFrom, start, goal), nil
		}

		for _, next := range g.Neighbors(current.cell) {
			newCost := current.cost + 1
			if old, seen := costSoFar[next]; seen && newCost >= old {
				continue
			}
			costSoFar[next] = newCost
			cameFrom[next] = current.cell
			seq++
			frontier.Push(frontierItem{
				cell:     next,
				cost:     newCost,
				priority: newCost + grid.ManhattanDistance(next, goal),
				seq:      seq,
			})
		}
	}

	return nil, fmt.Errorf("plan %s -> %s: %w", start, goal, ErrUnreachable)
}

func reconstruct(cameFrom map[grid.Cell]grid.Cell, start, goal grid.Cell) Path {
	path := Path{goal}
	for cell := goal; cell != start; {
		cell = cameFrom[cell]
		path = append(path, cell)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
