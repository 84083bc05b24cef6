// SPDX-License-Identifier: MIT
package config

import "time"

// Pipeline geometry and timing. These are fixed at compile time; only the
// peripherals around the pipeline are configured at runtime.
const (
	FFTSize     = 64 // Samples per acquisition, power of two.
	DisplayBins = 16 // One per LCD column.
	Divisions   = 4  // Scale steps; the readout moves in 100/Divisions percent.

	MaxLevel   = 15 // Tallest bar: two rows of eight half-pixel steps.
	HalfLevels = 8  // Levels a single character row can show.

	DefaultScaleIndex = 1

	SettleDelay  = 300 * time.Millisecond // Button re-check after the falling edge.
	HoldDelay    = 300 * time.Millisecond // Repeat suppression after a confirmed press.
	PowerOnDelay = 100 * time.Millisecond // LCD controller settle before the first command.

	ReadoutAddress  = 0x05 // DDRAM address of the "Volume: NN%" readout.
	SecondRowOffset = 0x40 // DDRAM offset of the LCD's second line.
	DisplayColumns  = 16
	DisplayRows     = 2
)

// Runtime defaults.
const (
	DefaultLogLevel         = "info"
	DefaultSource           = SourceTone
	DefaultDeviceID         = MinDeviceID
	DefaultSampleRate       = 44100
	DefaultFramesPerBuffer  = 256
	DefaultToneBin          = 4
	DefaultToneAmplitude    = 0.3
	DefaultUI               = UITerminal
	DefaultFrameInterval    = 16 * time.Millisecond
	DefaultOverflow         = OverflowSkip
	DefaultSelection        = SelectionUpper
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond
	DefaultWSAddress        = ":8080"

	MinDeviceID   = -1 // System default input device.
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

// Source kinds for the analog input.
const (
	SourceTone      = "tone"
	SourceZero      = "zero"
	SourceFile      = "file"
	SourcePortAudio = "portaudio"
)

// Frontends.
const (
	UITerminal = "tui"
	UIHeadless = "headless"
)

// Out-of-range level policies for the bar renderer.
const (
	OverflowSkip  = "skip"
	OverflowClamp = "clamp"
)

// Spectrum half the binner reads.
const (
	SelectionUpper = "upper"
	SelectionLower = "lower"
)
