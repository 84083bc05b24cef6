// SPDX-License-Identifier: MIT

//go:build !tinygo

package audio

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   int32
		want float64
	}{
		{math.MinInt32, 0},
		{0, 0.5},
		{1 << 30, 0.75},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := normalize(math.MaxInt32); got >= 1 {
		t.Errorf("normalize(max) = %v, want < 1", got)
	}
}

func TestCaptureConversions(t *testing.T) {
	c := &Capture{value: 0.5}

	// Nothing captured yet: the reading stays put.
	c.StartConversion()
	if got := c.ReadSample(); got != 0.5 {
		t.Errorf("ReadSample() before audio = %v, want 0.5", got)
	}

	c.processInputStream([]int32{0, 1 << 30, math.MinInt32})
	if got := c.Peak(); got != 1 {
		t.Errorf("Peak() = %v, want 1", got)
	}

	want := []float64{0.5, 0.75, 0, 0}
	for i, w := range want {
		c.StartConversion()
		if got := c.ReadSample(); got != w {
			t.Errorf("Conversion %d = %v, want %v", i, got, w)
		}
	}
}

func TestCaptureSkipsAheadWhenBehind(t *testing.T) {
	c := &Capture{}
	block := make([]int32, captureRingSize/4)
	for i := 0; i < 3; i++ {
		c.processInputStream(block)
	}
	block[len(block)-1] = 1 << 30
	c.processInputStream(block)

	c.StartConversion()
	if c.Overruns() != 1 {
		t.Errorf("Overruns() = %d, want 1", c.Overruns())
	}
	if got := c.ReadSample(); got != 0.75 {
		t.Errorf("ReadSample() after skip = %v, want newest sample 0.75", got)
	}
}

func TestCaptureCallbackHotPath(t *testing.T) {
	c := &Capture{}
	in := make([]int32, 256)
	allocs := testing.AllocsPerRun(100, func() {
		c.processInputStream(in)
		c.StartConversion()
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in capture path, got %.1f", allocs)
	}
}
