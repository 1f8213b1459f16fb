// Command analyze prints quick, human-readable heuristics about the floor
// plans in a configs directory. It summarizes dimensions and free space,
// lists the route length from the start cell to every POI next to its
// Manhattan distance, and highlights POIs no route reaches.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wiemBe/RoboMap/nav/config"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/planner"
	"gonum.org/v1/gonum/stat"
)

// POIRoute is the route from the start cell to one POI
type POIRoute struct {
	ID        string
	Cell      grid.Cell
	Manhattan int
	Steps     int
	Reachable bool
}

// Detour returns the ratio of route length to Manhattan distance
func (r POIRoute) Detour() float64 {
	if r.Manhattan == 0 {
		return 1
	}
	return float64(r.Steps) / float64(r.Manhattan)
}

// Analysis summarizes one floor plan
type Analysis struct {
	Name       string
	Rows, Cols int
	Walls      int
	Free       int
	Start      grid.Cell
	Routes     []POIRoute
}

// Unreachable returns the POIs no route reaches
func (a *Analysis) Unreachable() []POIRoute {
	var out []POIRoute
	for _, r := range a.Routes {
		if !r.Reachable {
			out = append(out, r)
		}
	}
	return out
}

// StepStats returns the mean and standard deviation of reachable route
// lengths
func (a *Analysis) StepStats() (mean, stddev float64) {
	var steps []float64
	for _, r := range a.Routes {
		if r.Reachable {
			steps = append(steps, float64(r.Steps))
		}
	}
	if len(steps) == 0 {
		return 0, 0
	}
	if len(steps) == 1 {
		return steps[0], 0
	}
	return stat.MeanStdDev(steps, nil)
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Printf("Error reading directory: %v\n", err)
		os.Exit(1)
	}

	for _, entry := range entries {
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		fmt.Printf("\n=== Analyzing %s ===\n", entry.Name())
		analysis, err := analyzeFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		analysis.Print(os.Stdout)
	}
}

func analyzeFile(path string) (*Analysis, error) {
	fp, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return analyzePlan(fp)
}

// analyzePlan builds the plan's grid and plans a route to every POI
func analyzePlan(fp *config.FloorPlan) (*Analysis, error) {
	g, err := grid.New(fp.GridSpec())
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Name:  fp.Name,
		Rows:  g.Rows(),
		Cols:  g.Cols(),
		Walls: g.CountCellState(grid.Wall),
		Start: g.Agent(),
	}
	a.Free = a.Rows*a.Cols - a.Walls

	for _, poi := range g.POIs() {
		route := POIRoute{
			ID:        poi.ID,
			Cell:      poi.Cell,
			Manhattan: grid.ManhattanDistance(a.Start, poi.Cell),
		}
		path, err := planner.Plan(g, a.Start, poi.Cell)
		switch {
		case err == nil:
			route.Steps = path.Steps()
			route.Reachable = true
		case errors.Is(err, planner.ErrUnreachable), errors.Is(err, grid.ErrOutOfBounds):
		default:
			return nil, err
		}
		a.Routes = append(a.Routes, route)
	}

	sort.Slice(a.Routes, func(i, j int) bool { return a.Routes[i].ID < a.Routes[j].ID })
	return a, nil
}

// Print writes the report for a
func (a *Analysis) Print(w io.Writer) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Rows, a.Cols)
	fmt.Fprintf(w, "Walls: %d, Free: %d (%.0f%%)\n", a.Walls, a.Free, 100*float64(a.Free)/float64(a.Rows*a.Cols))
	fmt.Fprintf(w, "Start: %s\n", a.Start)
	fmt.Fprintf(w, "POIs: %d\n", len(a.Routes))

	for _, r := range a.Routes {
		if !r.Reachable {
			fmt.Fprintf(w, "  %-6s %s  unreachable (manhattan %d)\n", r.ID, r.Cell, r.Manhattan)
			continue
		}
		fmt.Fprintf(w, "  %-6s %s  %d steps (manhattan %d, detour %.2f)\n", r.ID, r.Cell, r.Steps, r.Manhattan, r.Detour())
	}

	if mean, sd := a.StepStats(); mean > 0 {
		fmt.Fprintf(w, "Route length: mean %.1f, stddev %.1f\n", mean, sd)
	}

	if unreachable := a.Unreachable(); len(unreachable) > 0 {
		fmt.Fprintf(w, "WARNING: %d POIs are unreachable from the start cell\n", len(unreachable))
	} else {
		fmt.Fprintf(w, "All POIs are reachable from the start cell\n")
	}
}
