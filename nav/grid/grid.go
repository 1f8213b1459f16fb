package grid

import (
	"fmt"
	"math"
	"sort"
)

// dimensionEpsilon absorbs float error in length/resolution (25/0.2 must give 125)
const dimensionEpsilon = 1e-9

// Grid is the occupancy matrix of the floor plan
type Grid struct {
	rows       int
	cols       int
	resolution float64
	cells      [][]CellState
	pois       map[string]Cell
	poiOrder   []string
	activePOI  string
	agent      Cell
}

// New builds a grid from spec: wall border, interior block, extra obstacles,
// the POI registry and the agent at spec.Start. No POI is active initially.
func New(spec Spec) (*Grid, error) {
	if spec.Resolution <= 0 {
		return nil, fmt.Errorf("grid: resolution must be positive, got %v", spec.Resolution)
	}

	rows := int(math.Floor(spec.LengthM/spec.Resolution + dimensionEpsilon))
	cols := int(math.Floor(spec.WidthM/spec.Resolution + dimensionEpsilon))
	if rows < MinDimension || cols < MinDimension || rows > MaxDimension || cols > MaxDimension {
		return nil, fmt.Errorf("grid: dimensions %dx%d outside [%d, %d]", rows, cols, MinDimension, MaxDimension)
	}

	g := &Grid{
		rows:       rows,
		cols:       cols,
		resolution: spec.Resolution,
		cells:      make([][]CellState, rows),
		pois:       make(map[string]Cell, len(spec.POIs)),
	}
	for r := range g.cells {
		g.cells[r] = make([]CellState, cols)
		for c := range g.cells[r] {
			if r == 0 || r == rows-1 || c == 0 || c == cols-1 {
				g.cells[r][c] = Wall
			} else {
				g.cells[r][c] = Free
			}
		}
	}

	if spec.InteriorBlock > 0 {
		size := spec.InteriorBlock
		if size > rows-2 || size > cols-2 {
			return nil, fmt.Errorf("grid: interior block %d does not fit in %dx%d", size, rows, cols)
		}
		g.fill(Rect{Row: (rows - size) / 2, Col: (cols - size) / 2, Rows: size, Cols: size})
	}
	for i, o := range spec.Obstacles {
		if o.Rows <= 0 || o.Cols <= 0 || !g.InBounds(Cell{o.Row, o.Col}) ||
			!g.InBounds(Cell{o.Row + o.Rows - 1, o.Col + o.Cols - 1}) {
			return nil, fmt.Errorf("grid: obstacle %d %+v: %w", i, o, ErrOutOfBounds)
		}
		g.fill(o)
	}

	for id, cell := range spec.POIs {
		if !g.InBounds(cell) {
			return nil, fmt.Errorf("grid: poi %q at %s: %w", id, cell, ErrOutOfBounds)
		}
		if g.cells[cell.Row][cell.Col] == Wall {
			return nil, fmt.Errorf("grid: poi %q at %s: %w", id, cell, ErrBlocked)
		}
		g.pois[id] = cell
		g.poiOrder = append(g.poiOrder, id)
	}
	sort.Strings(g.poiOrder)

	if !g.InBounds(spec.Start) {
		return nil, fmt.Errorf("grid: start %s: %w", spec.Start, ErrOutOfBounds)
	}
	if g.cells[spec.Start.Row][spec.Start.Col] == Wall {
		return nil, fmt.Errorf("grid: start %s: %w", spec.Start, ErrBlocked)
	}
	g.agent = spec.Start
	g.cells[spec.Start.Row][spec.Start.Col] = AgentPosition

	return g, nil
}

func (g *Grid) fill(r Rect) {
	for row := r.Row; row < r.Row+r.Rows; row++ {
		for col := r.Col; col < r.Col+r.Cols; col++ {
			g.cells[row][col] = Wall
		}
	}
}

// Rows returns the number of grid rows
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of grid columns
func (g *Grid) Cols() int { return g.cols }

// Resolution returns the cell size in meters
func (g *Grid) Resolution() float64 { return g.resolution }

// InBounds reports whether cell lies inside the grid
func (g *Grid) InBounds(cell Cell) bool {
	return cell.Row >= 0 && cell.Row < g.rows && cell.Col >= 0 && cell.Col < g.cols
}

// IsWall reports whether cell is a wall. Out-of-bounds cells count as walls.
func (g *Grid) IsWall(cell Cell) bool {
	if !g.InBounds(cell) {
		return true
	}
	return g.cells[cell.Row][cell.Col] == Wall
}

// CellState returns the state of cell
func (g *Grid) CellState(cell Cell) (CellState, error) {
	if !g.InBounds(cell) {
		return "", fmt.Errorf("%w: %s", ErrOutOfBounds, cell)
	}
	return g.cells[cell.Row][cell.Col], nil
}

// Neighbors returns the in-bounds, non-wall cells adjacent to cell in
// up, down, left, right order. No diagonal moves.
func (g *Grid) Neighbors(cell Cell) []Cell {
	candidates := [4]Cell{
		{cell.Row - 1, cell.Col},
		{cell.Row + 1, cell.Col},
		{cell.Row, cell.Col - 1},
		{cell.Row, cell.Col + 1},
	}

	result := make([]Cell, 0, 4)
	for _, n := range candidates {
		if g.InBounds(n) && g.cells[n.Row][n.Col] != Wall {
			result = append(result, n)
		}
	}
	return result
}

// Agent returns the agent's current cell
func (g *Grid) Agent() Cell { return g.agent }

// SetAgentPosition moves the agent marker to cell. It is the only way the
// agent position changes on the grid.
func (g *Grid) SetAgentPosition(cell Cell) error {
	if !g.InBounds(cell) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, cell)
	}
	if g.cells[cell.Row][cell.Col] == Wall {
		return fmt.Errorf("%w: %s", ErrBlocked, cell)
	}

	g.cells[g.agent.Row][g.agent.Col] = g.restingState(g.agent)
	g.agent = cell
	g.cells[cell.Row][cell.Col] = AgentPosition
	return nil
}

// ActivatePOI marks the POI id as the single active POI, clearing the
// previously active one.
func (g *Grid) ActivatePOI(id string) error {
	cell, ok := g.pois[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPOI, id)
	}

	if prev, had := g.pois[g.activePOI]; had && g.activePOI != "" {
		g.activePOI = ""
		if prev != g.agent {
			g.cells[prev.Row][prev.Col] = Free
		}
	}

	g.activePOI = id
	if cell != g.agent {
		g.cells[cell.Row][cell.Col] = PointOfInterest
	}
	return nil
}

// DeactivatePOI clears the active POI, if any
func (g *Grid) DeactivatePOI() {
	if g.activePOI == "" {
		return
	}
	cell := g.pois[g.activePOI]
	g.activePOI = ""
	if cell != g.agent {
		g.cells[cell.Row][cell.Col] = Free
	}
}

// ActivePOI returns the active POI id and cell
func (g *Grid) ActivePOI() (string, Cell, bool) {
	if g.activePOI == "" {
		return "", Cell{}, false
	}
	return g.activePOI, g.pois[g.activePOI], true
}

// POICell returns the cell registered for id
func (g *Grid) POICell(id string) (Cell, bool) {
	cell, ok := g.pois[id]
	return cell, ok
}

// POIAt returns the id of the POI registered at cell
func (g *Grid) POIAt(cell Cell) (string, bool) {
	for _, id := range g.poiOrder {
		if g.pois[id] == cell {
			return id, true
		}
	}
	return "", false
}

// POIs returns the registry in sorted id order
func (g *Grid) POIs() []POI {
	result := make([]POI, 0, len(g.poiOrder))
	for _, id := range g.poiOrder {
		result = append(result, POI{ID: id, Cell: g.pois[id], Active: id == g.activePOI})
	}
	return result
}

// CellCenter returns the real-world center of cell in meters (x along
// columns, y along rows)
func (g *Grid) CellCenter(cell Cell) (x, y float64) {
	return (float64(cell.Col) + 0.5) * g.resolution, (float64(cell.Row) + 0.5) * g.resolution
}

// CellAt converts a real-world position in meters to the containing cell.
// The result may be out of bounds.
func (g *Grid) CellAt(x, y float64) Cell {
	return Cell{
		Row: int(math.Floor(y / g.resolution)),
		Col: int(math.Floor(x / g.resolution)),
	}
}

// Render returns one string per row: '#' wall, '.' free, 'P' active POI,
// 'A' agent
func (g *Grid) Render() []string {
	lines := make([]string, g.rows)
	buf := make([]byte, g.cols)
	for r, row := range g.cells {
		for c, state := range row {
			buf[c] = state.symbol()
		}
		lines[r] = string(buf)
	}
	return lines
}

// restingState is the state a cell returns to once the agent leaves it
func (g *Grid) restingState(cell Cell) CellState {
	if g.activePOI != "" && g.pois[g.activePOI] == cell {
		return PointOfInterest
	}
	return Free
}
