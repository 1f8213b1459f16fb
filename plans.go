package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/wiemBe/RoboMap/nav/config"
	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"github.com/wiemBe/RoboMap/nav/planner"
)

// routeReport is the outcome of an offline route query
type routeReport struct {
	Plan    string
	From    grid.Cell
	To      grid.Cell
	Path    planner.Path
	Intents []engine.Intent
	Lines   []string
}

// parseCellRef parses "row,col" or looks up a POI id in g
func parseCellRef(g *grid.Grid, v string) (grid.Cell, error) {
	if parts := strings.Split(v, ","); len(parts) == 2 {
		row, errR := strconv.Atoi(strings.TrimSpace(parts[0]))
		col, errC := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errR == nil && errC == nil {
			return grid.Cell{Row: row, Col: col}, nil
		}
	}
	if cell, ok := g.POICell(v); ok {
		return cell, nil
	}
	return grid.Cell{}, fmt.Errorf("%w: %q", grid.ErrUnknownPOI, v)
}

// planRoute plans from one cell to another on a fresh grid built from plan.
// An empty from starts at the plan's start cell.
func planRoute(plan *config.FloorPlan, from, to string) (*routeReport, error) {
	g, err := grid.New(plan.GridSpec())
	if err != nil {
		return nil, fmt.Errorf("failed to build grid: %w", err)
	}

	start := g.Agent()
	if from != "" {
		if start, err = parseCellRef(g, from); err != nil {
			return nil, err
		}
	}
	goal, err := parseCellRef(g, to)
	if err != nil {
		return nil, err
	}

	path, err := planner.Plan(g, start, goal)
	if err != nil {
		return nil, err
	}

	return &routeReport{
		Plan:    plan.Name,
		From:    start,
		To:      goal,
		Path:    path,
		Intents: engine.PathIntents(path),
		Lines:   drawRoute(g.Render(), path),
	}, nil
}

// drawRoute marks path cells with '*' on rendered rows. The endpoints keep
// their own symbols.
func drawRoute(lines []string, path planner.Path) []string {
	rows := make([][]byte, len(lines))
	for i, line := range lines {
		rows[i] = []byte(line)
	}
	for i := 1; i < len(path)-1; i++ {
		c := path[i]
		if c.Row >= 0 && c.Row < len(rows) && c.Col >= 0 && c.Col < len(rows[c.Row]) {
			rows[c.Row][c.Col] = '*'
		}
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = string(row)
	}
	return out
}

func (r *routeReport) print(w io.Writer, render bool) {
	fmt.Fprintf(w, "Plan: %s\n", r.Plan)
	fmt.Fprintf(w, "Route %s -> %s: %d steps\n", r.From, r.To, r.Path.Steps())
	fmt.Fprintf(w, "Path: %s\n", r.Path)

	names := make([]string, len(r.Intents))
	for i, intent := range r.Intents {
		names[i] = string(intent)
	}
	fmt.Fprintf(w, "Intents: %s\n", strings.Join(names, " "))

	if render {
		fmt.Fprintln(w)
		for _, line := range r.Lines {
			fmt.Fprintln(w, line)
		}
	}
}

// planResult is the validation outcome of one plan file
type planResult struct {
	File string
	Name string
	Rows int
	Cols int
	POIs int
	Err  error
}

// validatePlans loads and validates every plan file in dir
func validatePlans(dir string) ([]planResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var results []planResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		result := planResult{File: entry.Name()}
		fp, err := config.Load(filepath.Join(dir, entry.Name()))
		if err == nil {
			err = config.Validate(fp)
		}
		if err != nil {
			result.Err = err
			results = append(results, result)
			continue
		}

		// Validate builds the grid, so this cannot fail here
		g, _ := grid.New(fp.GridSpec())
		result.Name = fp.Name
		result.Rows = g.Rows()
		result.Cols = g.Cols()
		result.POIs = len(fp.POIs)
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}
