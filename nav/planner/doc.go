// Package planner computes shortest obstacle-free routes on the navigation
// grid.
//
// Plan runs A* with a Manhattan heuristic over 4-connected cells. Frontier
// entries with equal priority are expanded in insertion order and neighbors
// are generated up, down, left, right, so a given grid and query always
// produce the same path.
package planner
