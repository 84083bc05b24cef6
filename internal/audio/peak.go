// SPDX-License-Identifier: MIT
package audio

import "math"

// Peak returns the largest absolute sample in buffer. Abs and max are
// computed without branches; only full-scale negative input exits early.
func Peak(buffer []int32) int32 {
	var maxAmplitude int32
	for _, sample := range buffer {
		if sample == math.MinInt32 {
			return math.MaxInt32
		}
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask

		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}

// PeakLevel converts a peak to a fraction of full scale.
func PeakLevel(peak int32) float64 {
	return float64(peak) / math.MaxInt32
}
