// SPDX-License-Identifier: MIT
package spectrum

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"spectrum/internal/config"
	"spectrum/internal/fft"
	"spectrum/pkg/utils"
)

const (
	testSize  = 64
	testBins  = 16
	testLevel = 15
)

func mustBinner(t testing.TB, n, bins int, sel Selection) *Binner {
	t.Helper()
	b, err := NewBinner(n, bins, testLevel, sel)
	if err != nil {
		t.Fatalf("NewBinner(%d, %d): %v", n, bins, err)
	}
	return b
}

func transform(t testing.TB, samples []float64) []complex128 {
	t.Helper()
	cfg, err := fft.NewConfig(len(samples), fft.Forward)
	if err != nil {
		t.Fatalf("fft.NewConfig: %v", err)
	}
	out := make([]complex128, len(samples))
	cfg.Transform(out, utils.ToComplex(samples))
	return out
}

func TestNewBinnerGeometry(t *testing.T) {
	tests := []struct {
		name    string
		n, bins int
		wantErr bool
	}{
		{"Default", 64, 16, false},
		{"Wider", 256, 16, false},
		{"One raw bin each", 32, 16, false},
		{"Not power of two", 48, 16, true},
		{"Too many bins", 16, 16, true},
		{"Uneven split", 64, 12, true},
		{"Zero bins", 64, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBinner(tt.n, tt.bins, testLevel, UpperHalf)
			if tt.wantErr {
				if !errors.Is(err, ErrBadGeometry) {
					t.Errorf("NewBinner(%d, %d) error = %v, want ErrBadGeometry", tt.n, tt.bins, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBinner(%d, %d): %v", tt.n, tt.bins, err)
			}
			if b.PerBin() != (tt.n/2)/tt.bins {
				t.Errorf("PerBin() = %d, want %d", b.PerBin(), (tt.n/2)/tt.bins)
			}
		})
	}
}

func TestIndexLayout(t *testing.T) {
	upper := mustBinner(t, testSize, testBins, UpperHalf)
	lower := mustBinner(t, testSize, testBins, LowerHalf)

	// Upper half: bin 0 starts at Nyquist, bin 15 ends at index 63.
	if got := upper.Index(0, 0); got != 32 {
		t.Errorf("upper.Index(0,0) = %d, want 32", got)
	}
	if got := upper.Index(testBins-1, 1); got != 63 {
		t.Errorf("upper.Index(15,1) = %d, want 63", got)
	}
	// Lower half mirrors every index around N/2.
	for i := 0; i < testBins; i++ {
		for j := 0; j < lower.PerBin(); j++ {
			if u, l := upper.Index(i, j), lower.Index(i, j); l != testSize-u {
				t.Errorf("bin %d slot %d: upper %d, lower %d are not mirrors", i, j, u, l)
			}
		}
	}
	if got := lower.Index(testBins-1, 1); got != 1 {
		t.Errorf("lower.Index(15,1) = %d, want 1", got)
	}
}

func TestBinAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{32, 64, 128, 512} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			b := mustBinner(t, n, testBins, UpperHalf)
			spec := make([]complex128, n)
			out := make([]int, testBins)
			for trial := 0; trial < 50; trial++ {
				for i := range spec {
					spec[i] = complex(rng.NormFloat64()*20, rng.NormFloat64()*20)
				}
				b.Bin(spec, out)
				for i, v := range out {
					if v < 0 || v > testLevel {
						t.Fatalf("trial %d bin %d = %d outside [0,%d]", trial, i, v, testLevel)
					}
				}
			}
		})
	}
}

func TestBinAlignedSineLightsOneBin(t *testing.T) {
	for _, sel := range []Selection{UpperHalf, LowerHalf} {
		b := mustBinner(t, testSize, testBins, sel)
		for k := 1; k < testSize/2; k++ {
			t.Run(fmt.Sprintf("%v/bin%d", sel, k), func(t *testing.T) {
				out := make([]int, testBins)
				b.Bin(transform(t, utils.GenerateBinSine(testSize, k, 0.3, 0.5)), out)

				want := (testSize/2 - k) / b.PerBin()
				lit := utils.NonZero(out)
				if len(lit) != 1 || lit[0] != want {
					t.Fatalf("levels %v: lit %v, want only display bin %d", out, lit, want)
				}
				// 0.3 * 64 / 2 = 9.6
				if out[want] != 10 {
					t.Errorf("level = %d, want 10", out[want])
				}
			})
		}
	}
}

func TestBinSelectionsAgreeOnRealInput(t *testing.T) {
	upper := mustBinner(t, testSize, testBins, UpperHalf)
	lower := mustBinner(t, testSize, testBins, LowerHalf)

	samples := make([]float64, testSize)
	for k := 1; k <= 9; k += 4 {
		tone := utils.GenerateBinSine(testSize, k, 0.1, 0)
		for i := range samples {
			samples[i] += tone[i]
		}
	}
	spec := transform(t, samples)

	a := make([]int, testBins)
	b := make([]int, testBins)
	upper.Bin(spec, a)
	lower.Bin(spec, b)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("display bin %d: upper %d, lower %d", i, a[i], b[i])
		}
	}
}

func TestBinZeroInput(t *testing.T) {
	b := mustBinner(t, testSize, testBins, UpperHalf)
	out := make([]int, testBins)
	for i := range out {
		out[i] = 9
	}
	b.Bin(transform(t, utils.GenerateConstant(testSize, 0)), out)
	if lit := utils.NonZero(out); len(lit) != 0 {
		t.Errorf("zero input lit bins %v: %v", lit, out)
	}
}

func TestBinArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		a, b   complex128 // The two raw bins behind display bin 0.
		expect int
	}{
		{"Opposite phases cancel", complex(5, 0), complex(-5, 0), 0},
		{"Coherent sum", complex(3, 0), complex(4, 0), 7},
		{"Pythagorean", complex(3, 0), complex(0, 4), 5},
		{"Rounds half up", complex(1.25, 0), complex(1.25, 0), 3},
		{"Rounds down", complex(1.2, 0), complex(1.2, 0), 2},
		{"Clamps", complex(100, 0), complex(100, 0), testLevel},
	}

	b := mustBinner(t, testSize, testBins, UpperHalf)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := make([]complex128, testSize)
			spec[b.Index(0, 0)] = tt.a
			spec[b.Index(0, 1)] = tt.b
			out := make([]int, testBins)
			b.Bin(spec, out)
			if out[0] != tt.expect {
				t.Errorf("level = %d, want %d", out[0], tt.expect)
			}
		})
	}
}

func TestParseSelection(t *testing.T) {
	if s, err := ParseSelection("lower"); err != nil || s != LowerHalf {
		t.Errorf("ParseSelection(lower) = %v, %v", s, err)
	}
	if s, err := ParseSelection(""); err != nil || s != UpperHalf {
		t.Errorf("ParseSelection(\"\") = %v, %v", s, err)
	}
	if _, err := ParseSelection("sideways"); !errors.Is(err, config.ErrUnknownSelection) {
		t.Errorf("expected ErrUnknownSelection, got %v", err)
	}
}

func TestBinHotPath(t *testing.T) {
	b := mustBinner(t, testSize, testBins, UpperHalf)
	spec := transform(t, utils.GenerateBinSine(testSize, 6, 0.3, 0.5))
	out := make([]int, testBins)

	allocs := testing.AllocsPerRun(100, func() {
		b.Bin(spec, out)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Bin hot path, got %.1f", allocs)
	}
}

func BenchmarkBin(b *testing.B) {
	binner := mustBinner(b, testSize, testBins, UpperHalf)
	spec := transform(b, utils.GenerateBinSine(testSize, 6, 0.3, 0.5))
	out := make([]int, testBins)

	b.ReportAllocs()
	b.ResetTimer()
	for bn := 0; bn < b.N; bn++ {
		binner.Bin(spec, out)
	}
}
