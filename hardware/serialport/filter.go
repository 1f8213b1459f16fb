package serialport

import "gonum.org/v1/gonum/stat"

// MovingAverage smooths a series over the last Window samples
type MovingAverage struct {
	window  int
	samples []float64
}

// NewMovingAverage creates a filter of the given window, at least 1
func NewMovingAverage(window int) *MovingAverage {
	if window < 1 {
		window = 1
	}
	return &MovingAverage{window: window, samples: make([]float64, 0, window)}
}

// Add pushes v and returns the mean of the retained samples
func (m *MovingAverage) Add(v float64) float64 {
	if len(m.samples) == m.window {
		copy(m.samples, m.samples[1:])
		m.samples = m.samples[:m.window-1]
	}
	m.samples = append(m.samples, v)
	return stat.Mean(m.samples, nil)
}

// Reset fills the window with v so the output starts from v
func (m *MovingAverage) Reset(v float64) {
	m.samples = m.samples[:0]
	for i := 0; i < m.window; i++ {
		m.samples = append(m.samples, v)
	}
}

// Len returns the number of retained samples
func (m *MovingAverage) Len() int { return len(m.samples) }
