// SPDX-License-Identifier: MIT
package fft

import (
	"errors"
	"fmt"

	"spectrum/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Direction selects the sign of the transform exponent.
type Direction int

const (
	Forward Direction = iota // Time domain to frequency domain.
	Inverse                  // Frequency domain back to time domain, unnormalized.
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Inverse:
		return "inverse"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ErrSizeNotPowerOfTwo is returned by NewConfig for sizes the plan rejects.
var ErrSizeNotPowerOfTwo = errors.New("fft: size must be a power of two >= 2")

// Config is the transform plan built once at startup. Its size and direction
// never change; the twiddle tables and scratch space inside the gonum plan
// are owned by whoever calls Transform, which must be a single goroutine.
type Config struct {
	size      int
	direction Direction
	plan      *fourier.CmplxFFT
}

// NewConfig validates size and builds the plan. Sizes are checked here, not
// per call, so Transform has no error path.
func NewConfig(size int, direction Direction) (*Config, error) {
	if size < 2 || !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w, got %d", ErrSizeNotPowerOfTwo, size)
	}
	if direction != Forward && direction != Inverse {
		return nil, fmt.Errorf("fft: unknown direction %d", int(direction))
	}
	return &Config{
		size:      size,
		direction: direction,
		plan:      fourier.NewCmplxFFT(size),
	}, nil
}

// Size returns the number of points.
func (c *Config) Size() int { return c.size }

// Direction returns the configured direction.
func (c *Config) Direction() Direction { return c.direction }

// Transform writes the size-point DFT of src into dst. Both slices must hold
// exactly Size() values; src is left untouched. For a forward transform bin 0
// is DC, bin size/2 is Nyquist, and real input yields dst[size-k] equal to
// the conjugate of dst[k]. Neither direction normalizes.
func (c *Config) Transform(dst, src []complex128) {
	if c.direction == Inverse {
		c.plan.Sequence(dst, src)
		return
	}
	c.plan.Coefficients(dst, src)
}

// BinFrequency returns the centre frequency in Hz of bin i for an
// acquisition running at sampleRate. Bins above size/2 alias to negative
// frequencies and are reported as such.
func (c *Config) BinFrequency(i int, sampleRate float64) float64 {
	if i < 0 || i >= c.size {
		return 0
	}
	return c.plan.Freq(i) * sampleRate
}
