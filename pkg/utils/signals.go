// SPDX-License-Identifier: MIT
package utils

import "math"

// GenerateBinSine returns n normalized ADC readings of a sine that completes
// exactly `bin` cycles over the buffer, so an n-point transform puts all of its
// energy into bins `bin` and n-bin. Values are offset+amplitude*sin(...), which
// stays inside [0,1) for offset 0.5 and amplitude < 0.5.
func GenerateBinSine(n, bin int, amplitude, offset float64) []float64 {
	buffer := make([]float64, n)
	for k := range buffer {
		buffer[k] = offset + amplitude*math.Sin(2*math.Pi*float64(bin)*float64(k)/float64(n))
	}
	return buffer
}

// GenerateConstant returns n copies of v.
func GenerateConstant(n int, v float64) []float64 {
	buffer := make([]float64, n)
	for i := range buffer {
		buffer[i] = v
	}
	return buffer
}

// ToComplex widens real samples into a complex sample buffer with zero
// imaginary parts, the layout the transform consumes.
func ToComplex(samples []float64) []complex128 {
	out := make([]complex128, len(samples))
	for i, s := range samples {
		out[i] = complex(s, 0)
	}
	return out
}

// NonZero returns the indices of the non-zero entries of levels.
func NonZero(levels []int) []int {
	var idx []int
	for i, v := range levels {
		if v != 0 {
			idx = append(idx, i)
		}
	}
	return idx
}
