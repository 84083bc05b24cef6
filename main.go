// SPDX-License-Identifier: MIT

//go:build !tinygo

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"

	"spectrum/cmd"
	"spectrum/internal/audio"
	"spectrum/internal/config"
	"spectrum/internal/display"
	"spectrum/internal/hal"
	applog "spectrum/internal/log"
	"spectrum/internal/transport"
	"spectrum/internal/transport/udp"
	"spectrum/internal/tui"
	"spectrum/pkg/build"
)

// main is the entry point for the spectrum analyzer. Errors are logged only
// after run has returned and its deferred cleanup has finished.
func main() {
	if err := run(); err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}

// run drives the program. The flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and the configuration file
//   - Execute one-off commands if requested
//   - Open the input source, the button and the virtual LCD
//
// 2. Concurrent Phase (Hot Path):
//   - Start the engine loop
//   - Start frame transports and recording if enabled
//   - Run the terminal frontend or wait headless
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the loop, transports and recording
//   - Clean up resources
func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build: %v", err)
	}

	// One thread for the engine loop, one for the frontend and I/O.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		return err
	}
	if cfg == nil {
		// --help or --version.
		return nil
	}
	if !applog.SetLevelString(cfg.LogLevel) {
		applog.Warnf("Unknown log level %q, keeping %s", cfg.LogLevel, applog.GetLevel())
	}

	// Handle one-off commands that don't require the engine to be running.
	if cfg.Command != "" {
		return executeCommand(cfg.Command, os.Stdout)
	}

	clock := hal.SystemClock{}
	lcd := hal.NewLCD()
	heartbeat := &hal.VirtualPin{}

	src, err := openSource(cfg, clock)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer src.Close()

	button, virtual, err := openButton(cfg, clock)
	if err != nil {
		return fmt.Errorf("button: %w", err)
	}
	defer button.Close()

	engine, err := audio.NewEngine(cfg, hal.Board{
		ADC:       src.adc,
		Display:   lcd,
		Button:    button,
		Clock:     clock,
		Delay:     hal.SleepDelay{},
		Heartbeat: heartbeat,
	})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer func() {
		if engine.Recording() {
			applog.Infof("Recording saved to: %s", cfg.Recording.OutputFile)
		}
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing engine: %v", err)
		}
		if n := engine.Skipped(); n > 0 {
			applog.Infof("%d bar columns overflowed the display and were skipped", n)
		}
	}()

	applog.Infof("Spectrum %s: source %s, ui %s, scale %d%%",
		build.GetBuildInfo().Version, src.name, cfg.Display.UI, engine.Scale().Percent())

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	closeTransports, err := startTransports(cfg, engine)
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	defer closeTransports()

	if cfg.Recording.Enabled {
		rate := cfg.Recording.SampleRate
		if src.rate > 0 {
			rate = int(src.rate)
		}
		if err := engine.StartRecording(cfg.Recording.OutputFile, rate); err != nil {
			return fmt.Errorf("recording: %w", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Run(ctx); err != nil {
			applog.Errorf("Engine: %v", err)
		}
	}()

	if cfg.Display.UI == config.UITerminal {
		if err := runTerminal(lcd, engine, virtual, heartbeat, src); err != nil {
			applog.Errorf("TUI: %v", err)
		}
		stop()
	} else {
		applog.Infof("Running headless, press Ctrl+C to stop")
		<-ctx.Done()
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// Transports and the engine are closed by the defers above, after the
	// loop has stopped.
	wg.Wait()
	return nil
}

// executeCommand handles one-off commands that don't require the engine
// to be running.
func executeCommand(command string, w io.Writer) error {
	switch command {
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(w)

	case cmd.CommandPick:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		device, rate, ok, err := tui.PickDevice()
		if err != nil || !ok {
			return err
		}
		_, err = fmt.Fprintf(w, "%s --source %s --device %d --sample-rate %.0f\n",
			build.GetBuildInfo().Name, config.SourcePortAudio, device.ID, rate)
		return err

	case cmd.CommandGlyphs:
		return display.WriteGlyphArt(w)
	}
	return fmt.Errorf("unknown command %q", command)
}

// source is the opened analog input.
type source struct {
	adc     hal.ADC
	name    string
	rate    float64        // Zero when the source has no natural rate.
	capture *audio.Capture // Non-nil for live input.
}

func (s *source) Close() {
	if s.capture == nil {
		return
	}
	if err := s.capture.Close(); err != nil {
		applog.Warnf("Capture: %v", err)
	}
	if err := audio.Terminate(); err != nil {
		applog.Warnf("PortAudio: %v", err)
	}
	s.capture = nil
}

func openSource(cfg *config.Config, clock hal.Clock) (*source, error) {
	switch cfg.Source.Kind {
	case config.SourceTone:
		return &source{
			adc:  hal.NewToneADC(config.FFTSize, cfg.Source.ToneBin, cfg.Source.ToneAmplitude),
			name: fmt.Sprintf("tone (bin %d)", cfg.Source.ToneBin),
		}, nil

	case config.SourceZero:
		return &source{adc: hal.ConstantADC(0), name: "zero"}, nil

	case config.SourceFile:
		adc, err := hal.OpenFileADC(cfg.Source.File, clock)
		if err != nil {
			return nil, err
		}
		return &source{
			adc:  adc,
			name: fmt.Sprintf("file %s (%.0f Hz)", filepath.Base(cfg.Source.File), adc.SampleRate()),
			rate: adc.SampleRate(),
		}, nil

	case config.SourcePortAudio:
		if err := audio.Initialize(); err != nil {
			return nil, err
		}
		capture, err := audio.OpenCapture(cfg.Source.Device, cfg.Source.SampleRate, cfg.Source.FramesPerBuffer)
		if err != nil {
			audio.Terminate()
			return nil, err
		}
		if err := capture.Start(); err != nil {
			capture.Close()
			audio.Terminate()
			return nil, err
		}
		return &source{
			adc:     capture,
			name:    fmt.Sprintf("portaudio %s (%.0f Hz)", capture.DeviceName(), capture.SampleRate()),
			rate:    capture.SampleRate(),
			capture: capture,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownSource, cfg.Source.Kind)
}

type closableButton interface {
	hal.Button
	Close() error
}

type virtualButton struct{ *hal.VirtualButton }

func (virtualButton) Close() error { return nil }

// openButton returns the GPIO button when a pin is configured. Otherwise it
// returns a virtual button, also as the second value so the terminal can
// press it.
func openButton(cfg *config.Config, clock hal.Clock) (closableButton, *hal.VirtualButton, error) {
	if cfg.Scale.ButtonGPIO != "" {
		b, err := hal.OpenGPIOButton(cfg.Scale.ButtonGPIO)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	}
	v := hal.NewVirtualButton(clock)
	return virtualButton{v}, v, nil
}

// startTransports wires the configured frame consumers to the engine and
// returns their shutdown function.
func startTransports(cfg *config.Config, engine *audio.Engine) (func(), error) {
	var closers []func() error

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				applog.Warnf("Transport: close: %v", err)
			}
		}
	}

	if applog.Enabled(applog.LevelDebug) {
		lt := transport.NewLoggingTransport()
		engine.AddTransport(lt)
		closers = append(closers, lt.Close)
	}

	if cfg.Transport.WSEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WSAddress)
		if err := ws.Start(); err != nil {
			ws.Close()
			closeAll()
			return nil, fmt.Errorf("websocket: %w", err)
		}
		engine.AddTransport(ws)
		closers = append(closers, ws.Close)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll()
			return nil, err
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, engine)
		if err != nil {
			sender.Close()
			closeAll()
			return nil, err
		}
		publisher.Start()
		closers = append(closers, sender.Close, publisher.Stop)
	}

	return closeAll, nil
}

// runTerminal runs the LCD emulator with logs redirected to a file so they
// don't tear the screen.
func runTerminal(lcd *hal.LCD, engine *audio.Engine, button *hal.VirtualButton, heartbeat *hal.VirtualPin, src *source) error {
	logPath := filepath.Join(os.TempDir(), "spectrum.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	applog.SetOutput(f)
	defer func() {
		applog.SetOutput(os.Stderr)
		f.Close()
		applog.Infof("Logs written to %s", logPath)
	}()

	opts := []tui.LCDOption{tui.WithHeartbeat(heartbeat.Toggles)}
	if src.capture != nil {
		opts = append(opts, tui.WithPeak(src.capture.Peak))
	}

	// A nil *VirtualButton must not become a non-nil interface.
	var tap tui.Button
	if button != nil {
		tap = button
	}

	model := tui.NewLCDModel(lcd, engine, tap, opts...)
	if err := tui.RunLCD(model); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
