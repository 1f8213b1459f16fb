package main

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wiemBe/RoboMap/nav/config"
	"github.com/wiemBe/RoboMap/nav/grid"
)

// testPlan is a 6 x 7 cell hall whose row 3 is walled off except for one
// gap at column 5
func testPlan() *config.FloorPlan {
	fp := &config.FloorPlan{
		Name:        "test",
		LengthM:     1.2,
		WidthM:      1.4,
		ResolutionM: 0.2,
		Obstacles:   []grid.Rect{{Row: 3, Col: 1, Rows: 1, Cols: 4}},
		POIs: map[string]config.CellRef{
			"near": {1, 3},
			"far":  {4, 1},
		},
		Start: config.CellRef{1, 1},
	}
	fp.ApplyDefaults()
	return fp
}

func TestAnalyzePlan(t *testing.T) {
	a, err := analyzePlan(testPlan())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if a.Rows != 6 || a.Cols != 7 {
		t.Errorf("Expected 6x7 grid, got %dx%d", a.Rows, a.Cols)
	}
	// 22 border cells plus 4 obstacle cells
	if a.Walls != 26 {
		t.Errorf("Expected 26 walls, got %d", a.Walls)
	}
	if a.Free != 16 {
		t.Errorf("Expected 16 free cells, got %d", a.Free)
	}

	if len(a.Routes) != 2 {
		t.Fatalf("Expected 2 routes, got %d", len(a.Routes))
	}

	far, near := a.Routes[0], a.Routes[1]
	if far.ID != "far" || near.ID != "near" {
		t.Fatalf("Expected routes sorted by id, got %s, %s", far.ID, near.ID)
	}

	if !near.Reachable || near.Steps != 2 || near.Manhattan != 2 || near.Detour() != 1 {
		t.Errorf("Unexpected near route: %+v", near)
	}
	// Around the wall through the gap at (3,5)
	if !far.Reachable || far.Steps != 11 || far.Manhattan != 3 {
		t.Errorf("Unexpected far route: %+v", far)
	}
	if len(a.Unreachable()) != 0 {
		t.Errorf("Expected no unreachable POIs, got %v", a.Unreachable())
	}

	mean, sd := a.StepStats()
	if mean != 6.5 {
		t.Errorf("Expected mean 6.5, got %v", mean)
	}
	if math.Abs(sd-math.Sqrt(40.5)) > 1e-9 {
		t.Errorf("Expected stddev %v, got %v", math.Sqrt(40.5), sd)
	}
}

func TestAnalyzePlan_Unreachable(t *testing.T) {
	fp := testPlan()
	fp.Obstacles = []grid.Rect{{Row: 3, Col: 1, Rows: 1, Cols: 5}}

	a, err := analyzePlan(fp)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	unreachable := a.Unreachable()
	if len(unreachable) != 1 || unreachable[0].ID != "far" {
		t.Fatalf("Expected far to be unreachable, got %+v", unreachable)
	}

	var out strings.Builder
	a.Print(&out)
	if !strings.Contains(out.String(), "far") || !strings.Contains(out.String(), "unreachable") {
		t.Errorf("Expected report to flag far, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "WARNING: 1 POIs are unreachable") {
		t.Errorf("Expected warning line, got:\n%s", out.String())
	}
}

func TestDetour(t *testing.T) {
	tests := []struct {
		route    POIRoute
		expected float64
	}{
		{POIRoute{Manhattan: 0, Steps: 0}, 1},
		{POIRoute{Manhattan: 4, Steps: 4}, 1},
		{POIRoute{Manhattan: 3, Steps: 9}, 3},
	}

	for _, tt := range tests {
		if got := tt.route.Detour(); got != tt.expected {
			t.Errorf("Detour(%+v) = %v, expected %v", tt.route, got, tt.expected)
		}
	}
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	data, err := config.Marshal(testPlan(), "yaml")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	a, err := analyzeFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if a.Name != "test" {
		t.Errorf("Expected name test, got %s", a.Name)
	}

	if _, err := analyzeFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}
