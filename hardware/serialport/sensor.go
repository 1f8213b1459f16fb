package serialport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var ErrMalformedFrame = errors.New("malformed displacement frame")

// Calibration converts encoder counts and sizes the smoothing window
type Calibration struct {
	CountsPerMM  float64
	FilterWindow int
}

// DefaultCalibration matches the stock controller firmware
func DefaultCalibration() Calibration {
	return Calibration{CountsPerMM: 8, FilterWindow: 5}
}

// Stats counts frames seen by a Sensor
type Stats struct {
	Frames    int `json:"frames"`
	Malformed int `json:"malformed"`
	Polls     int `json:"polls"`
}

// Sensor turns displacement frames into filtered millimeter deltas. The
// raw position is integrated in counts, each axis is smoothed with a
// moving average and Poll hands out the filtered movement since the
// previous Poll. HandleLine and Poll may run on different goroutines.
type Sensor struct {
	countsPerMM float64

	mu        sync.Mutex
	rawX      float64
	rawY      float64
	heading   float64
	filterX   *MovingAverage
	filterY   *MovingAverage
	filteredX float64
	filteredY float64
	handedX   float64
	handedY   float64
	pending   bool
	stats     Stats
}

// NewSensor creates a sensor with the given calibration
func NewSensor(cal Calibration) *Sensor {
	if cal.CountsPerMM <= 0 {
		cal.CountsPerMM = DefaultCalibration().CountsPerMM
	}
	s := &Sensor{
		countsPerMM: cal.CountsPerMM,
		filterX:     NewMovingAverage(cal.FilterWindow),
		filterY:     NewMovingAverage(cal.FilterWindow),
	}
	s.filterX.Reset(0)
	s.filterY.Reset(0)
	return s
}

// HandleLine parses one "dx,dy[,dh]" frame of integer counts. Malformed
// frames are counted and rejected with ErrMalformedFrame.
func (s *Sensor) HandleLine(line string) error {
	dx, dy, dh, err := parseFrame(line)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.stats.Malformed++
		return err
	}
	s.stats.Frames++

	s.rawX += dx
	s.rawY += dy
	s.heading += dh
	s.filteredX = s.filterX.Add(s.rawX / s.countsPerMM)
	s.filteredY = s.filterY.Add(s.rawY / s.countsPerMM)
	s.pending = true
	return nil
}

// Poll returns the filtered displacement in millimeters since the last
// Poll. ok is false when no frame arrived in between.
func (s *Sensor) Poll() (dxMM, dyMM float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return 0, 0, false
	}
	dxMM = s.filteredX - s.handedX
	dyMM = s.filteredY - s.handedY
	s.handedX, s.handedY = s.filteredX, s.filteredY
	s.pending = false
	s.stats.Polls++
	return dxMM, dyMM, true
}

// Heading returns the accumulated heading counts
func (s *Sensor) Heading() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heading
}

// Stats returns frame counters
func (s *Sensor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func parseFrame(line string) (dx, dy, dh float64, err error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedFrame, line)
	}

	// The firmware sends integer encoder counts
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, perr := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrMalformedFrame, line)
		}
		values[i] = float64(v)
	}
	if len(values) == 3 {
		dh = values[2]
	}
	return values[0], values[1], dh, nil
}
