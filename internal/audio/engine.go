// SPDX-License-Identifier: MIT
/*
Package audio runs the analyzer's main loop:

	Sampler -> Transform -> Binner -> Scale poll -> Renderer

Thread Safety:
  - Step and Run belong to one goroutine, the main loop
  - The scale controller is the only state touched from the button edge context
  - Buffers are allocated once so Step does not allocate
  - LatestFrame may be called from any goroutine
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectrum/internal/config"
	"spectrum/internal/display"
	"spectrum/internal/fft"
	"spectrum/internal/hal"
	"spectrum/internal/log"
	"spectrum/internal/scale"
	"spectrum/internal/spectrum"
	"spectrum/internal/transport"
)

type Engine struct {
	// Core configuration and collaborators.
	config *config.Config
	board  hal.Board

	// Pipeline stages.
	sampler   *Sampler
	transform *fft.Config
	binner    *spectrum.Binner
	scale     *scale.Controller
	renderer  *display.BarGraph

	// Buffers reused every iteration.
	samples  []complex128
	spectrum []complex128
	bins     []int

	transports []transport.Transport

	frameMu  sync.Mutex
	latest   transport.Frame
	hasFrame bool
	sequence uint64

	started atomic.Bool
	skipped atomic.Uint64 // Columns dropped for overflowing.

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	recordMu    sync.Mutex
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewEngine builds the pipeline for board. The board's ADC, Display and
// Button are required; Clock and Delay default to the wall clock. Heartbeat
// may be nil.
func NewEngine(cfg *config.Config, board hal.Board) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if board.ADC == nil || board.Display == nil || board.Button == nil {
		return nil, errors.New("engine needs an ADC, a display and a button")
	}
	if board.Clock == nil {
		board.Clock = hal.SystemClock{}
	}
	if board.Delay == nil {
		board.Delay = hal.SleepDelay{}
	}

	transform, err := fft.NewConfig(config.FFTSize, fft.Forward)
	if err != nil {
		return nil, fmt.Errorf("failed to configure transform: %w", err)
	}

	selection, err := spectrum.ParseSelection(cfg.Binner.Selection)
	if err != nil {
		return nil, err
	}
	binner, err := spectrum.NewBinner(config.FFTSize, config.DisplayBins, config.MaxLevel, selection)
	if err != nil {
		return nil, fmt.Errorf("failed to configure binner: %w", err)
	}

	overflow, err := display.ParseOverflow(cfg.Display.Overflow)
	if err != nil {
		return nil, err
	}

	ctrl, err := scale.New(config.Divisions, cfg.Scale.Initial, board.Button, board.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to configure scale: %w", err)
	}

	return &Engine{
		config:    cfg,
		board:     board,
		sampler:   NewSampler(board.ADC),
		transform: transform,
		binner:    binner,
		scale:     ctrl,
		renderer:  display.NewBarGraph(board.Display, config.DisplayColumns, overflow),
		samples:   make([]complex128, config.FFTSize),
		spectrum:  make([]complex128, config.FFTSize),
		bins:      make([]int, config.DisplayBins),
	}, nil
}

// AddTransport registers a frame consumer. Call before Run.
func (e *Engine) AddTransport(t transport.Transport) {
	e.transports = append(e.transports, t)
}

// Scale exposes the volume controller.
func (e *Engine) Scale() *scale.Controller { return e.scale }

// Start powers the display up: settle delay, display on, glyph upload, and
// then the button edge handler.
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	d := e.board.Display
	e.board.Delay.DelayMilliseconds(uint32(config.PowerOnDelay / time.Millisecond))
	d.WriteCommand(hal.CmdDisplayControl | hal.DisplayOn)
	display.UploadGlyphs(d)
	e.scale.Attach()
	log.Infof("Engine: Started (N=%d, bins=%d, scale %d%%)", config.FFTSize, config.DisplayBins, e.scale.Percent())
}

// Step runs one iteration of the main loop and returns its frame.
func (e *Engine) Step() transport.Frame {
	if e.board.Heartbeat != nil {
		e.board.Heartbeat.Toggle()
	}

	e.sampler.Fill(e.samples)
	e.record(e.samples)

	e.transform.Transform(e.spectrum, e.samples)
	e.binner.Bin(e.spectrum, e.bins)

	now := e.board.Clock.Now()
	e.scale.Poll(now)
	state := e.scale.State()

	// The readout stays up for the hold window.
	holding := e.scale.Holding(now)
	if !holding {
		if n := e.renderer.Draw(e.bins, state.Multiplier); n > 0 {
			e.skipped.Add(uint64(n))
		}
	}

	e.sequence++
	frame := transport.Frame{
		Sequence:   e.sequence,
		Timestamp:  now,
		Scale:      state.Index,
		Percent:    state.Percent,
		Multiplier: state.Multiplier,
		Holding:    holding,
	}
	copy(frame.Bins[:], e.bins)

	e.frameMu.Lock()
	e.latest = frame
	e.hasFrame = true
	e.frameMu.Unlock()

	for _, t := range e.transports {
		if err := t.Send(frame); err != nil {
			log.Warnf("Engine: Transport error: %v", err)
		}
	}
	return frame
}

// Run starts the engine if needed and steps it until ctx is done. With a
// positive frame interval each iteration waits for the next tick.
func (e *Engine) Run(ctx context.Context) error {
	e.Start()

	interval := e.config.Display.FrameInterval
	if interval <= 0 {
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
				e.Step()
			}
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.Step()
		}
	}
}

// LatestFrame returns the most recent frame. ok is false before the first Step.
func (e *Engine) LatestFrame() (transport.Frame, bool) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.latest, e.hasFrame
}

// Skipped counts bar columns not drawn because their level overflowed.
func (e *Engine) Skipped() uint64 { return e.skipped.Load() }

// Close detaches the button and finishes any recording. Transports are
// owned by the caller.
func (e *Engine) Close() error {
	e.scale.Detach()
	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}
	return nil
}

var _ transport.FrameSource = (*Engine)(nil)
