// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownSource    = errors.New("unknown source kind")
	ErrUnknownUI        = errors.New("unknown ui")
	ErrUnknownOverflow  = errors.New("unknown overflow policy")
	ErrUnknownSelection = errors.New("unknown binner selection")
)

// Config is the runtime configuration, loaded from YAML and then overridden
// by ENV_* variables and command line flags.
type Config struct {
	LogLevel  string          `yaml:"log_level"`         // Logging level ("debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // One-off command instead of running the analyzer.
	Source    SourceConfig    `yaml:"source"`            // Analog input feeding the sampler.
	Display   DisplayConfig   `yaml:"display"`           // Frontend and renderer policy.
	Binner    BinnerConfig    `yaml:"binner"`            // Spectrum half selection.
	Scale     ScaleConfig     `yaml:"scale"`             // Volume button.
	Recording RecordingConfig `yaml:"recording"`         // WAV tap of acquired buffers.
	Transport TransportConfig `yaml:"transport"`         // Frame publication.
}

// SourceConfig selects and parameterizes the ADC collaborator.
type SourceConfig struct {
	Kind            string  `yaml:"kind"`              // tone, zero, file or portaudio.
	File            string  `yaml:"file"`              // Audio file for kind=file (wav, mp3, flac, ogg).
	Device          int     `yaml:"device"`            // PortAudio input device (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // PortAudio capture rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // PortAudio callback size.
	ToneBin         int     `yaml:"tone_bin"`          // Transform bin the synthetic tone lands in.
	ToneAmplitude   float64 `yaml:"tone_amplitude"`    // Peak deviation around 0.5.
}

// DisplayConfig holds frontend settings.
type DisplayConfig struct {
	UI            string        `yaml:"ui"`             // tui or headless.
	FrameInterval time.Duration `yaml:"frame_interval"` // Minimum time per loop iteration, 0 to spin.
	Overflow      string        `yaml:"overflow"`       // skip or clamp levels above 15.
}

// BinnerConfig holds the magnitude binner options.
type BinnerConfig struct {
	Selection string `yaml:"selection"` // upper or lower spectrum half.
}

// ScaleConfig holds the volume button settings.
type ScaleConfig struct {
	Initial    int    `yaml:"initial"`     // Scale index at power-on.
	ButtonGPIO string `yaml:"button_gpio"` // periph.io pin name; empty uses the virtual button.
}

// RecordingConfig holds the capture tap settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
	SampleRate int    `yaml:"sample_rate"` // Header rate; acquisition has no fixed rate.
}

// TransportConfig holds frame publication settings.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	WSEnabled        bool          `yaml:"ws_enabled"`
	WSAddress        string        `yaml:"ws_address"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Source: SourceConfig{
			Kind:            DefaultSource,
			Device:          DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			ToneBin:         DefaultToneBin,
			ToneAmplitude:   DefaultToneAmplitude,
		},
		Display: DisplayConfig{
			UI:            DefaultUI,
			FrameInterval: DefaultFrameInterval,
			Overflow:      DefaultOverflow,
		},
		Binner: BinnerConfig{Selection: DefaultSelection},
		Scale:  ScaleConfig{Initial: DefaultScaleIndex},
		Recording: RecordingConfig{
			OutputFile: "capture-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav",
			SampleRate: DefaultSampleRate,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WSAddress:        DefaultWSAddress,
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. An empty path
// searches "spectrum.yaml" in the working directory and falls back to the
// defaults when it is absent. ENV_* overrides are applied after the file and
// the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("spectrum.yaml"); err == nil {
			path = "spectrum.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every enumerated field and numeric range.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceTone:
		if c.Source.ToneBin < 0 || c.Source.ToneBin > FFTSize/2 {
			return fmt.Errorf("source.tone_bin %d outside [0, %d]", c.Source.ToneBin, FFTSize/2)
		}
		if c.Source.ToneAmplitude < 0 || c.Source.ToneAmplitude >= 0.5 {
			return fmt.Errorf("source.tone_amplitude %g outside [0, 0.5)", c.Source.ToneAmplitude)
		}
	case SourceZero:
	case SourceFile:
		if c.Source.File == "" {
			return errors.New("source.file must be set when source.kind is file")
		}
	case SourcePortAudio:
		if c.Source.SampleRate < MinSampleRate || c.Source.SampleRate > MaxSampleRate {
			return fmt.Errorf("source.sample_rate %g outside [%d, %d]", c.Source.SampleRate, MinSampleRate, MaxSampleRate)
		}
		if c.Source.FramesPerBuffer <= 0 {
			return fmt.Errorf("source.frames_per_buffer must be positive, got %d", c.Source.FramesPerBuffer)
		}
		if c.Source.Device < MinDeviceID {
			return fmt.Errorf("source.device %d is invalid", c.Source.Device)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, c.Source.Kind)
	}

	switch c.Display.UI {
	case UITerminal, UIHeadless:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownUI, c.Display.UI)
	}
	if c.Display.FrameInterval < 0 {
		return fmt.Errorf("display.frame_interval must not be negative, got %s", c.Display.FrameInterval)
	}
	switch c.Display.Overflow {
	case OverflowSkip, OverflowClamp:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOverflow, c.Display.Overflow)
	}

	switch c.Binner.Selection {
	case SelectionUpper, SelectionLower:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSelection, c.Binner.Selection)
	}

	if c.Scale.Initial < 0 || c.Scale.Initial >= Divisions {
		return fmt.Errorf("scale.initial %d outside [0, %d)", c.Scale.Initial, Divisions)
	}

	if c.Recording.Enabled {
		if c.Recording.OutputFile == "" {
			return errors.New("recording.output_file must be set when recording is enabled")
		}
		if c.Recording.SampleRate <= 0 {
			return fmt.Errorf("recording.sample_rate must be positive, got %d", c.Recording.SampleRate)
		}
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return errors.New("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WSEnabled && c.Transport.WSAddress == "" {
		return errors.New("transport.ws_address must be set when the websocket transport is enabled")
	}

	return nil
}

// applyEnvOverrides applies the ENV_* variables on top of the file values.
func (c *Config) applyEnvOverrides() {
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	// ENV_SOURCE
	if val, ok := os.LookupEnv("ENV_SOURCE"); ok {
		c.Source.Kind = strings.ToLower(val)
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		}
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WSEnabled = true
		c.Transport.WSAddress = val
	}
}
