// Package config loads and validates floor-plan configurations.
//
// A floor plan describes the physical site (dimensions, resolution,
// obstacles, POIs, start cell) together with the navigation timing and the
// serial sensor calibration. Plans are JSON or YAML files kept in a config
// directory and served by a caching Manager.
package config
