package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wiemBe/RoboMap/nav/grid"
)

func TestDefault_IsValid(t *testing.T) {
	fp := Default()
	if err := Validate(fp); err != nil {
		t.Fatalf("Default plan should be valid: %v", err)
	}

	g, err := grid.New(fp.GridSpec())
	if err != nil {
		t.Fatalf("Failed to build grid: %v", err)
	}
	if g.Rows() != 125 || g.Cols() != 150 {
		t.Errorf("Expected 125x150, got %dx%d", g.Rows(), g.Cols())
	}
	if cell, _ := g.POICell("1"); cell != (grid.Cell{Row: 4, Col: 6}) {
		t.Errorf("Expected POI 1 at (4,6), got %s", cell)
	}

	cfg := fp.EngineConfig()
	if cfg.Tolerance != 0.08 || cfg.PollInterval != 500*time.Millisecond || cfg.PollTimeout != 300*time.Millisecond {
		t.Errorf("Unexpected engine config %+v", cfg)
	}
	if got := fp.TickInterval(); got != time.Second/30 {
		t.Errorf("Expected 30 Hz tick, got %s", got)
	}
}

func TestParse_JSON(t *testing.T) {
	data := []byte(`{
		"name": "lab",
		"length_m": 4, "width_m": 6, "resolution_m": 0.2,
		"pois": {"a": [3, 3]},
		"start": [1, 1],
		"target_poll_interval": 750,
		"targeting": "nearest"
	}`)

	fp, err := Parse(data, "json")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if fp.TargetPollInterval.Duration() != 750*time.Millisecond {
		t.Errorf("Expected numeric interval in ms, got %s", fp.TargetPollInterval)
	}
	if fp.TargetPollTimeout.Duration() != DefaultPollTimeout {
		t.Errorf("Expected default timeout, got %s", fp.TargetPollTimeout)
	}
	if fp.Sensor.CountsPerMM != DefaultCountsPerMM || fp.Sensor.FilterWindow != DefaultFilterWindow {
		t.Errorf("Expected sensor defaults, got %+v", fp.Sensor)
	}
	if fp.TargetURL != "" {
		t.Errorf("Nearest targeting should not get a default URL, got %q", fp.TargetURL)
	}
	if err := Validate(fp); err != nil {
		t.Errorf("Expected valid plan: %v", err)
	}
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
name: lab
length_m: 4
width_m: 6
resolution_m: 0.2
obstacles:
  - {row: 5, col: 5, rows: 2, cols: 3}
pois:
  a: [3, 3]
  b: [15, 25]
start: [1, 1]
target_poll_interval: 1s
target_poll_timeout: 200ms
sensor:
  filter_window: 9
`)

	fp, err := Parse(data, "yaml")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if fp.POIs["b"] != (CellRef{15, 25}) {
		t.Errorf("Unexpected POI b %v", fp.POIs["b"])
	}
	if len(fp.Obstacles) != 1 || fp.Obstacles[0] != (grid.Rect{Row: 5, Col: 5, Rows: 2, Cols: 3}) {
		t.Errorf("Unexpected obstacles %+v", fp.Obstacles)
	}
	if fp.TargetPollInterval.Duration() != time.Second {
		t.Errorf("Expected 1s, got %s", fp.TargetPollInterval)
	}
	if fp.Sensor.FilterWindow != 9 {
		t.Errorf("Expected filter window 9, got %d", fp.Sensor.FilterWindow)
	}
	if fp.TargetURL != DefaultTargetURL {
		t.Errorf("Expected default target URL, got %q", fp.TargetURL)
	}
	if err := Validate(fp); err != nil {
		t.Errorf("Expected valid plan: %v", err)
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte(`{"name":"x","target_poll_interval":"soon"}`), "json")
	if err == nil {
		t.Fatal("Expected error for invalid duration")
	}
}

func TestMarshal_RoundTripsYAML(t *testing.T) {
	fp := Default()
	data, err := Marshal(fp, "yaml")
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if !strings.Contains(string(data), "target_poll_interval: 500ms") {
		t.Errorf("Expected readable duration in:\n%s", data)
	}

	back, err := Parse(data, "yaml")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if back.TargetPollInterval != fp.TargetPollInterval || back.Start != fp.Start || len(back.POIs) != len(fp.POIs) {
		t.Errorf("Round trip mismatch: %+v", back)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FloorPlan)
		wantErr string
	}{
		{"valid", func(*FloorPlan) {}, ""},
		{"missing name", func(fp *FloorPlan) { fp.Name = "" }, "name is required"},
		{"zero resolution", func(fp *FloorPlan) { fp.ResolutionM = 0 }, "resolution_m"},
		{"negative width", func(fp *FloorPlan) { fp.WidthM = -1 }, "width_m"},
		{"no pois", func(fp *FloorPlan) { fp.POIs = nil }, "poi"},
		{"tolerance equals cell", func(fp *FloorPlan) { fp.ArrivalToleranceM = 0.2 }, "arrival_tolerance_m"},
		{"tolerance negative", func(fp *FloorPlan) { fp.ArrivalToleranceM = -0.1 }, "arrival_tolerance_m"},
		{"bad targeting", func(fp *FloorPlan) { fp.Targeting = "random" }, "targeting"},
		{"server without url", func(fp *FloorPlan) { fp.TargetURL = "" }, "target_url"},
		{"timeout exceeds interval", func(fp *FloorPlan) { fp.TargetPollTimeout = Duration(time.Second) }, "target_poll_timeout"},
		{"tick rate too high", func(fp *FloorPlan) { fp.TickRateHz = 5000 }, "tick_rate_hz"},
		{"bad filter window", func(fp *FloorPlan) { fp.Sensor.FilterWindow = -2 }, "filter_window"},
		{"poi on wall", func(fp *FloorPlan) { fp.POIs["x"] = CellRef{0, 3} }, "wall"},
		{"start outside", func(fp *FloorPlan) { fp.Start = CellRef{500, 5} }, "out of bounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := Default()
			tt.mutate(fp)
			err := Validate(fp)

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), "config validation: ") {
				t.Errorf("Expected config validation prefix, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_WrapsGridErrors(t *testing.T) {
	fp := Default()
	fp.Start = CellRef{0, 0}
	if err := Validate(fp); !errors.Is(err, grid.ErrBlocked) {
		t.Errorf("Expected grid.ErrBlocked, got %v", err)
	}
}

func TestShippedConfigs(t *testing.T) {
	dir := filepath.Join("..", "..", "configs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Skipf("configs directory not available: %v", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !hasPlanExtension(entry.Name()) {
			continue
		}
		t.Run(entry.Name(), func(t *testing.T) {
			fp, err := Load(filepath.Join(dir, entry.Name()))
			if err != nil {
				t.Fatalf("Failed to load: %v", err)
			}
			if err := Validate(fp); err != nil {
				t.Errorf("Shipped config is invalid: %v", err)
			}
		})
	}
}
