// SPDX-License-Identifier: MIT
package audio

import "spectrum/internal/hal"

// Sampler fills the sample buffer from the ADC at whatever rate the loop
// achieves. Each slot takes the latest conversion and then requests the
// next one without waiting for it to complete.
type Sampler struct {
	adc hal.ADC
}

func NewSampler(adc hal.ADC) *Sampler {
	return &Sampler{adc: adc}
}

// Fill overwrites every element of buf with a real-valued reading.
func (s *Sampler) Fill(buf []complex128) {
	for k := range buf {
		buf[k] = complex(s.adc.ReadSample(), 0)
		s.adc.StartConversion()
	}
}
