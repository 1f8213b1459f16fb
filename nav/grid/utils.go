package grid

// ManhattanDistance calculates the Manhattan distance between two cells
func ManhattanDistance(from, to Cell) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// NearestPOI finds the registered POI closest to from by Manhattan distance.
// Ties go to the lowest id.
func (g *Grid) NearestPOI(from Cell) (string, Cell, bool) {
	minDistance := -1
	var nearestID string
	var nearest Cell

	for _, id := range g.poiOrder {
		cell := g.pois[id]
		distance := ManhattanDistance(from, cell)
		if minDistance == -1 || distance < minDistance {
			minDistance = distance
			nearestID = id
			nearest = cell
		}
	}

	return nearestID, nearest, minDistance != -1
}

// CountCellState counts the cells currently in state
func (g *Grid) CountCellState(state CellState) int {
	count := 0
	for _, row := range g.cells {
		for _, s := range row {
			if s == state {
				count++
			}
		}
	}
	return count
}
