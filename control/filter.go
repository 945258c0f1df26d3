package control

import (
	"github.com/pkg/errors"
)

// MovingAverageFilter is a FIR filter averaging the last size samples.
type MovingAverageFilter struct {
	size  int
	buf   []float64
	next  int
	sum   float64
	count int
}

// NewMovingAverageFilter returns a filter over size samples. A size of 1 passes samples through.
func NewMovingAverageFilter(size int) (*MovingAverageFilter, error) {
	if size < 1 {
		return nil, errors.Errorf("filter size must be at least 1, got %d", size)
	}
	return &MovingAverageFilter{size: size, buf: make([]float64, size)}, nil
}

// Next adds x and returns the average of the samples held. The second value reports whether the
// window is full.
func (f *MovingAverageFilter) Next(x float64) (float64, bool) {
	if f.count == f.size {
		f.sum -= f.buf[f.next]
	} else {
		f.count++
	}
	f.buf[f.next] = x
	f.sum += x
	f.next = (f.next + 1) % f.size
	return f.sum / float64(f.count), f.count == f.size
}

// Reset empties the window.
func (f *MovingAverageFilter) Reset() {
	for i := range f.buf {
		f.buf[i] = 0
	}
	f.next = 0
	f.sum = 0
	f.count = 0
}
