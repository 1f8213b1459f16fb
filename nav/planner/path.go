package planner

import (
	"strings"

	"github.com/wiemBe/RoboMap/nav/grid"
)

// Path is an ordered sequence of adjacent cells, start and goal inclusive
type Path []grid.Cell

// Len returns the number of cells in the path
func (p Path) Len() int { return len(p) }

// Steps returns the number of moves needed to walk the path
func (p Path) Steps() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Index returns the position of cell in the path, or -1
func (p Path) Index(cell grid.Cell) int {
	for i, c := range p {
		if c == cell {
			return i
		}
	}
	return -1
}

// Contains reports whether cell is on the path
func (p Path) Contains(cell grid.Cell) bool {
	return p.Index(cell) >= 0
}

// Last returns the final cell of the path
func (p Path) Last() (grid.Cell, bool) {
	if len(p) == 0 {
		return grid.Cell{}, false
	}
	return p[len(p)-1], true
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		parts[i] = c.String()
	}
	return strings.Join(parts, " -> ")
}
