// SPDX-License-Identifier: MIT

// Package transport publishes rendered spectrum frames off the device.
package transport

import (
	"time"

	"spectrum/internal/config"
)

// Frame is one main-loop iteration: the display bins before scaling, plus
// the scale they were drawn with.
type Frame struct {
	Sequence   uint64                  `json:"seq"`
	Timestamp  time.Time               `json:"ts"`
	Bins       [config.DisplayBins]int `json:"bins"`
	Scale      int                     `json:"scale"`
	Percent    int                     `json:"percent"`
	Multiplier int                     `json:"multiplier"`
	Holding    bool                    `json:"holding"` // Readout shown instead of bars.
}

// Levels returns the bar heights as drawn: each bin times the multiplier.
// Levels above MaxLevel are reported as is.
func (f *Frame) Levels() [config.DisplayBins]int {
	var out [config.DisplayBins]int
	for i, b := range f.Bins {
		out[i] = b * f.Multiplier
	}
	return out
}

// Transport receives every frame the engine produces. Send is called from
// the main loop and must not block.
type Transport interface {
	Send(frame Frame) error
	Close() error
}

// FrameSource is polled by transports that publish on their own schedule.
type FrameSource interface {
	LatestFrame() (Frame, bool)
}
