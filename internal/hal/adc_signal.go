// SPDX-License-Identifier: MIT
package hal

import "math"

// ToneADC produces a sine that completes exactly bin cycles every n
// conversions, so a window of n samples lands on a single FFT bin.
type ToneADC struct {
	n         int
	bin       int
	amplitude float64
	offset    float64
	k         int
	value     float64
}

// NewToneADC returns a tone centred at 0.5. The first conversion is already
// complete, so the first ReadSample returns sample zero.
func NewToneADC(n, bin int, amplitude float64) *ToneADC {
	t := &ToneADC{n: n, bin: bin, amplitude: amplitude, offset: 0.5}
	t.StartConversion()
	return t
}

func (t *ToneADC) ReadSample() float64 { return t.value }

func (t *ToneADC) StartConversion() {
	phase := 2 * math.Pi * float64(t.bin) * float64(t.k) / float64(t.n)
	t.value = t.offset + t.amplitude*math.Sin(phase)
	t.k = (t.k + 1) % t.n
}

// ConstantADC always converts to the same value.
type ConstantADC float64

func (c ConstantADC) ReadSample() float64 { return float64(c) }
func (ConstantADC) StartConversion()      {}
