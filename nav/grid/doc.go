// Package grid provides the occupancy model of the indoor floor plan.
//
// The grid package implements:
//   - A fixed rectangular matrix of cell states derived from the plan's
//     real-world length, width and resolution
//   - A wall border and fixed interior obstacles set at construction
//   - The point-of-interest (POI) registry with a single active POI
//   - The agent cell, mutated only through SetAgentPosition
//   - Coordinate conversion between cells and meters
//
// Core Types:
//
// Grid owns the matrix and is exclusively owned by the navigation control
// loop; it performs no locking. Spec describes the floor plan the grid is
// built from. Cell addresses a single grid unit by (row, column).
//
// Usage:
//
//	g, err := grid.New(grid.Spec{
//		LengthM:       25,
//		WidthM:        30,
//		Resolution:    0.2,
//		InteriorBlock: 15,
//		POIs:          map[string]grid.Cell{"1": {Row: 4, Col: 6}},
//		Start:         grid.Cell{Row: 5, Col: 5},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := g.ActivatePOI("1"); err != nil {
//		log.Fatal(err)
//	}
//	next := g.Neighbors(g.Agent())
//
// Axis Convention:
//
// Row 0 is the top of the plan. X meters run along columns and Y meters
// along rows, so a cell covers [col*res, (col+1)*res) by [row*res, (row+1)*res).
package grid
