package config

import (
	"fmt"
	"math"

	"github.com/wiemBe/RoboMap/nav/grid"
)

// Validate checks a plan for correctness. Geometry is verified by building
// the grid it describes.
func Validate(fp *FloorPlan) error {
	if fp.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if fp.ResolutionM <= 0 {
		return fmt.Errorf("config validation: resolution_m must be positive, got %v", fp.ResolutionM)
	}
	if fp.LengthM <= 0 || fp.WidthM <= 0 {
		return fmt.Errorf("config validation: length_m and width_m must be positive, got %v x %v", fp.LengthM, fp.WidthM)
	}
	if len(fp.POIs) == 0 {
		return fmt.Errorf("config validation: at least one poi is required")
	}

	if fp.ArrivalToleranceM <= 0 || fp.ArrivalToleranceM >= fp.ResolutionM {
		return fmt.Errorf("config validation: arrival_tolerance_m must be in (0, %v), got %v", fp.ResolutionM, fp.ArrivalToleranceM)
	}

	switch fp.Targeting {
	case TargetingServer:
		if fp.TargetURL == "" {
			return fmt.Errorf("config validation: target_url is required for %q targeting", TargetingServer)
		}
	case TargetingNearest:
	default:
		return fmt.Errorf("config validation: targeting must be %q or %q, got %q", TargetingServer, TargetingNearest, fp.Targeting)
	}

	if fp.TargetPollInterval <= 0 {
		return fmt.Errorf("config validation: target_poll_interval must be positive")
	}
	if fp.TargetPollTimeout <= 0 || fp.TargetPollTimeout > fp.TargetPollInterval {
		return fmt.Errorf("config validation: target_poll_timeout must be in (0, %s], got %s", fp.TargetPollInterval, fp.TargetPollTimeout)
	}
	if fp.TickRateHz <= 0 || fp.TickRateHz > MaxTickRateHz || math.IsNaN(fp.TickRateHz) {
		return fmt.Errorf("config validation: tick_rate_hz must be in (0, %v], got %v", MaxTickRateHz, fp.TickRateHz)
	}
	if fp.TrackerMinInterval < 0 {
		return fmt.Errorf("config validation: tracker_min_interval must not be negative")
	}

	if fp.Sensor.BaudRate <= 0 {
		return fmt.Errorf("config validation: sensor.baud_rate must be positive, got %d", fp.Sensor.BaudRate)
	}
	if fp.Sensor.CountsPerMM <= 0 {
		return fmt.Errorf("config validation: sensor.counts_per_mm must be positive, got %v", fp.Sensor.CountsPerMM)
	}
	if fp.Sensor.FilterWindow < 1 {
		return fmt.Errorf("config validation: sensor.filter_window must be at least 1, got %d", fp.Sensor.FilterWindow)
	}

	if _, err := grid.New(fp.GridSpec()); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}
