// SPDX-License-Identifier: MIT

// Package spectrum reduces a transform output to the handful of integer
// levels the bar graph can show.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"spectrum/internal/config"
	"spectrum/pkg/bitint"
)

// Selection picks which half of the full-length spectrum feeds the bins.
type Selection int

const (
	// UpperHalf reads indices N/2 + i*perBin + j, the firmware's historical
	// layout. For real input it is the conjugate mirror of the lower
	// half, so magnitudes match LowerHalf bin for bin.
	UpperHalf Selection = iota
	// LowerHalf reads the positive-frequency indices N/2 - i*perBin - j,
	// walking down from Nyquist so display bin i covers the same frequencies
	// as in UpperHalf.
	LowerHalf
)

func (s Selection) String() string {
	switch s {
	case UpperHalf:
		return config.SelectionUpper
	case LowerHalf:
		return config.SelectionLower
	default:
		return fmt.Sprintf("Selection(%d)", int(s))
	}
}

// ParseSelection maps a config name to a Selection.
func ParseSelection(name string) (Selection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.SelectionUpper, "":
		return UpperHalf, nil
	case config.SelectionLower:
		return LowerHalf, nil
	default:
		return UpperHalf, fmt.Errorf("%w: %q", config.ErrUnknownSelection, name)
	}
}

// ErrBadGeometry is returned when N/2 raw bins cannot be split evenly.
var ErrBadGeometry = errors.New("spectrum: bins must evenly partition N/2 raw bins")

// Binner sums groups of raw transform bins into display levels. It holds no
// buffers; Bin writes into a caller-owned slice.
type Binner struct {
	size      int
	bins      int
	perBin    int
	maxLevel  int
	selection Selection
}

// NewBinner validates the geometry for an n-point spectrum reduced to bins
// display levels, each clamped to maxLevel.
func NewBinner(n, bins, maxLevel int, selection Selection) (*Binner, error) {
	if n < 2 || !bitint.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("%w: size %d is not a power of two", ErrBadGeometry, n)
	}
	if bins <= 0 || (n/2)%bins != 0 {
		return nil, fmt.Errorf("%w: %d raw bins into %d", ErrBadGeometry, n/2, bins)
	}
	if maxLevel < 0 {
		return nil, fmt.Errorf("spectrum: negative max level %d", maxLevel)
	}
	if selection != UpperHalf && selection != LowerHalf {
		return nil, fmt.Errorf("spectrum: unknown selection %d", int(selection))
	}
	return &Binner{
		size:      n,
		bins:      bins,
		perBin:    (n / 2) / bins,
		maxLevel:  maxLevel,
		selection: selection,
	}, nil
}

// Bins returns the number of display levels produced per call.
func (b *Binner) Bins() int { return b.bins }

// PerBin returns how many raw bins feed each display level.
func (b *Binner) PerBin() int { return b.perBin }

// Index returns the raw spectrum index that feeds slot j of display bin i.
func (b *Binner) Index(i, j int) int {
	half := b.size / 2
	if b.selection == LowerHalf {
		return half - i*b.perBin - j
	}
	return half + i*b.perBin + j
}

// Bin fills out[:Bins()] from spectrum, which must hold N values. Real and
// imaginary parts are summed across a group before the magnitude is taken,
// so coherent energy adds and opposing phases cancel. Each level is the
// rounded magnitude, clamped to the max level.
func (b *Binner) Bin(spectrum []complex128, out []int) {
	maxLevel := float64(b.maxLevel)
	for i := 0; i < b.bins; i++ {
		var re, im float64
		for j := 0; j < b.perBin; j++ {
			c := spectrum[b.Index(i, j)]
			re += real(c)
			im += imag(c)
		}

		mag := math.Round(math.Hypot(re, im))
		if mag > maxLevel || math.IsNaN(mag) {
			mag = maxLevel
		}
		out[i] = int(mag)
	}
}
