package grid

import (
	"errors"
	"fmt"
)

// CellState represents the occupancy of a grid cell
type CellState string

const (
	Free            CellState = "free"
	Wall            CellState = "wall"
	PointOfInterest CellState = "poi"
	AgentPosition   CellState = "agent"

	// Construction limits
	MinDimension         = 3
	MaxDimension         = 2000
	DefaultInteriorBlock = 15
)

var (
	ErrOutOfBounds = errors.New("cell out of bounds")
	ErrUnknownPOI  = errors.New("unknown point of interest")
	ErrBlocked     = errors.New("cell is a wall")
)

// Cell addresses a grid unit by row and column
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Rect is a rectangular obstacle in cell units
type Rect struct {
	Row  int `json:"row" yaml:"row"`
	Col  int `json:"col" yaml:"col"`
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

// POI is a registered point of interest
type POI struct {
	ID     string `json:"id"`
	Cell   Cell   `json:"cell"`
	Active bool   `json:"active"`
}

// Spec describes the floor plan a Grid is built from
type Spec struct {
	LengthM       float64
	WidthM        float64
	Resolution    float64
	InteriorBlock int
	Obstacles     []Rect
	POIs          map[string]Cell
	Start         Cell
}

// symbol returns the single-character rendering of a state
func (s CellState) symbol() byte {
	switch s {
	case Wall:
		return '#'
	case PointOfInterest:
		return 'P'
	case AgentPosition:
		return 'A'
	default:
		return '.'
	}
}
