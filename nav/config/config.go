package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wiemBe/RoboMap/nav/engine"
	"github.com/wiemBe/RoboMap/nav/grid"
	"gopkg.in/yaml.v3"
)

// Targeting modes
const (
	TargetingServer  = "server"
	TargetingNearest = "nearest"
)

// Defaults of the stock indoor plan
const (
	DefaultLengthM        = 25.0
	DefaultWidthM         = 30.0
	DefaultResolutionM    = 0.2
	DefaultToleranceM     = 0.08
	DefaultTargetURL      = "http://localhost:8080/available"
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultPollTimeout    = 300 * time.Millisecond
	DefaultTickRateHz     = 30.0
	DefaultTrackerMinStep = 30 * time.Millisecond
	DefaultBaudRate       = 115200
	DefaultCountsPerMM    = 8.0
	DefaultFilterWindow   = 5

	MaxTickRateHz = 1000.0
)

// CellRef is a [row, col] pair as written in plan files
type CellRef [2]int

// Cell converts the pair to a grid cell
func (c CellRef) Cell() grid.Cell {
	return grid.Cell{Row: c[0], Col: c[1]}
}

// SensorConfig calibrates the serial displacement sensor
type SensorConfig struct {
	Port         string  `json:"port,omitempty" yaml:"port,omitempty"`
	BaudRate     int     `json:"baud_rate" yaml:"baud_rate"`
	CountsPerMM  float64 `json:"counts_per_mm" yaml:"counts_per_mm"`
	FilterWindow int     `json:"filter_window" yaml:"filter_window"`
}

// FloorPlan is a complete site and navigation configuration
type FloorPlan struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	LengthM       float64            `json:"length_m" yaml:"length_m"`
	WidthM        float64            `json:"width_m" yaml:"width_m"`
	ResolutionM   float64            `json:"resolution_m" yaml:"resolution_m"`
	InteriorBlock int                `json:"interior_block" yaml:"interior_block"`
	Obstacles     []grid.Rect        `json:"obstacles,omitempty" yaml:"obstacles,omitempty"`
	POIs          map[string]CellRef `json:"pois" yaml:"pois"`
	Start         CellRef            `json:"start" yaml:"start"`

	ArrivalToleranceM  float64  `json:"arrival_tolerance_m" yaml:"arrival_tolerance_m"`
	Targeting          string   `json:"targeting" yaml:"targeting"`
	TargetURL          string   `json:"target_url,omitempty" yaml:"target_url,omitempty"`
	TargetPollInterval Duration `json:"target_poll_interval" yaml:"target_poll_interval"`
	TargetPollTimeout  Duration `json:"target_poll_timeout" yaml:"target_poll_timeout"`
	TickRateHz         float64  `json:"tick_rate_hz" yaml:"tick_rate_hz"`
	TrackerMinInterval Duration `json:"tracker_min_interval" yaml:"tracker_min_interval"`

	Sensor SensorConfig `json:"sensor" yaml:"sensor"`
}

// Default returns the stock 25 x 30 m indoor plan
func Default() *FloorPlan {
	fp := &FloorPlan{
		Name:          "indoor",
		Description:   "25 x 30 m hall with a central pillar block and four stations",
		LengthM:       DefaultLengthM,
		WidthM:        DefaultWidthM,
		ResolutionM:   DefaultResolutionM,
		InteriorBlock: grid.DefaultInteriorBlock,
		POIs: map[string]CellRef{
			"1": {4, 6},
			"2": {2, 27},
			"3": {22, 6},
			"4": {22, 27},
		},
		Start: CellRef{5, 5},
	}
	fp.ApplyDefaults()
	return fp
}

// ApplyDefaults fills zero-valued tuning fields. Geometry is left alone.
func (fp *FloorPlan) ApplyDefaults() {
	if fp.ArrivalToleranceM == 0 {
		fp.ArrivalToleranceM = DefaultToleranceM
	}
	if fp.Targeting == "" {
		fp.Targeting = TargetingServer
	}
	if fp.Targeting == TargetingServer && fp.TargetURL == "" {
		fp.TargetURL = DefaultTargetURL
	}
	if fp.TargetPollInterval == 0 {
		fp.TargetPollInterval = Duration(DefaultPollInterval)
	}
	if fp.TargetPollTimeout == 0 {
		fp.TargetPollTimeout = Duration(DefaultPollTimeout)
	}
	if fp.TickRateHz == 0 {
		fp.TickRateHz = DefaultTickRateHz
	}
	if fp.TrackerMinInterval == 0 {
		fp.TrackerMinInterval = Duration(DefaultTrackerMinStep)
	}
	if fp.Sensor.BaudRate == 0 {
		fp.Sensor.BaudRate = DefaultBaudRate
	}
	if fp.Sensor.CountsPerMM == 0 {
		fp.Sensor.CountsPerMM = DefaultCountsPerMM
	}
	if fp.Sensor.FilterWindow == 0 {
		fp.Sensor.FilterWindow = DefaultFilterWindow
	}
}

// GridSpec converts the plan geometry for grid.New
func (fp *FloorPlan) GridSpec() grid.Spec {
	pois := make(map[string]grid.Cell, len(fp.POIs))
	for id, ref := range fp.POIs {
		pois[id] = ref.Cell()
	}
	return grid.Spec{
		LengthM:       fp.LengthM,
		WidthM:        fp.WidthM,
		Resolution:    fp.ResolutionM,
		InteriorBlock: fp.InteriorBlock,
		Obstacles:     fp.Obstacles,
		POIs:          pois,
		Start:         fp.Start.Cell(),
	}
}

// EngineConfig returns the state machine settings
func (fp *FloorPlan) EngineConfig() engine.Config {
	return engine.Config{
		Tolerance:    fp.ArrivalToleranceM,
		PollInterval: fp.TargetPollInterval.Duration(),
		PollTimeout:  fp.TargetPollTimeout.Duration(),
	}
}

// TickInterval returns the control loop period
func (fp *FloorPlan) TickInterval() time.Duration {
	if fp.TickRateHz <= 0 {
		rate := float64(DefaultTickRateHz)
		return time.Duration(float64(time.Second) / rate)
	}
	return time.Duration(float64(time.Second) / fp.TickRateHz)
}

// Load reads a plan file. The format follows the extension: .yaml and .yml
// are YAML, anything else JSON. Defaults are applied before returning.
func Load(path string) (*FloorPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, formatOf(path))
}

// Parse decodes a plan in the given format ("json" or "yaml")
func Parse(data []byte, format string) (*FloorPlan, error) {
	var fp FloorPlan
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &fp); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fp); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	fp.ApplyDefaults()
	return &fp, nil
}

// Marshal encodes a plan in the given format
func Marshal(fp *FloorPlan, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(fp)
	}
	return json.MarshalIndent(fp, "", "  ")
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
