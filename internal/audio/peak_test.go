// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestPeak(t *testing.T) {
	tests := []struct {
		name   string
		buffer []int32
		want   int32
	}{
		{"empty", nil, 0},
		{"silence", []int32{0, 0, 0}, 0},
		{"positive", []int32{1, 5, 3}, 5},
		{"negative wins", []int32{4, -9, 2}, 9},
		{"full scale", []int32{math.MaxInt32, 0}, math.MaxInt32},
		{"min int", []int32{0, math.MinInt32}, math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Peak(tt.buffer); got != tt.want {
				t.Errorf("Peak(%v) = %d, want %d", tt.buffer, got, tt.want)
			}
		})
	}
}

func TestPeakLevel(t *testing.T) {
	if got := PeakLevel(math.MaxInt32); got != 1 {
		t.Errorf("PeakLevel(max) = %v, want 1", got)
	}
	if got := PeakLevel(0); got != 0 {
		t.Errorf("PeakLevel(0) = %v, want 0", got)
	}
}

func TestPeakHotPath(t *testing.T) {
	buffer := make([]int32, 1024)
	for i := range buffer {
		if i%2 == 0 {
			buffer[i] = int32(i * 1000)
		} else {
			buffer[i] = int32(-i * 1000)
		}
	}

	allocs := testing.AllocsPerRun(100, func() {
		_ = Peak(buffer)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Peak, got %.1f", allocs)
	}
}

func BenchmarkPeak(b *testing.B) {
	buffer := make([]int32, 1024)
	for i := range buffer {
		buffer[i] = int32((i % 100) * 10000000)
	}
	b.ResetTimer()
	for bn := 0; bn < b.N; bn++ {
		_ = Peak(buffer)
	}
}
