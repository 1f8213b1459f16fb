package targets

import (
	"context"

	"github.com/wiemBe/RoboMap/nav/grid"
)

// Nearest proposes the registered POI closest to the agent. It reads the
// engine grid and must be called from the control loop.
type Nearest struct {
	grid *grid.Grid
}

// NewNearest creates a nearest-POI provider over g
func NewNearest(g *grid.Grid) *Nearest {
	return &Nearest{grid: g}
}

// ActiveTarget implements engine.TargetProvider
func (n *Nearest) ActiveTarget(ctx context.Context) (string, bool) {
	id, _, ok := n.grid.NearestPOI(n.grid.Agent())
	return id, ok
}
