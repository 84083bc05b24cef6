// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"time"

	"spectrum/internal/config"
	"spectrum/pkg/build"

	"github.com/spf13/cobra"
)

// One-off commands handled by main instead of running the analyzer.
const (
	CommandList   = "list"
	CommandPick   = "pick"
	CommandGlyphs = "glyphs"
)

// flagValues collects the raw flag values. Only flags the user actually set
// override the configuration file.
type flagValues struct {
	configPath      string
	logLevel        string
	verbose         bool
	source          string
	file            string
	device          int
	sampleRate      float64
	framesPerBuffer int
	ui              string
	frameInterval   time.Duration
	overflow        string
	selection       string
	scale           int
	button          string
	record          bool
	output          string
	udpAddress      string
	wsAddress       string
}

// ParseArgs parses os.Args into a validated configuration.
func ParseArgs() (*config.Config, error) {
	return Parse(os.Args[1:])
}

// Parse builds the configuration from args: defaults, then the YAML file,
// then ENV_* variables, then flags.
func Parse(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildInfo()
	var (
		fv      flagValues
		options *config.Config
		command string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(fv.configPath)
			if err != nil {
				return err
			}
			fv.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			options = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   CommandList,
			Short: "List available audio input devices",
			Run:   func(cmd *cobra.Command, args []string) { command = CommandList },
		},
		&cobra.Command{
			Use:   CommandPick,
			Short: "Choose an input device and sample rate interactively",
			Run:   func(cmd *cobra.Command, args []string) { command = CommandPick },
		},
		&cobra.Command{
			Use:   CommandGlyphs,
			Short: "Print the custom bar glyphs uploaded to the LCD",
			Run:   func(cmd *cobra.Command, args []string) { command = CommandGlyphs },
		},
	)

	flags := rootCmd.PersistentFlags()

	// Configuration
	flags.StringVarP(&fv.configPath, "config", "c", "",
		"YAML configuration file (default ./spectrum.yaml when present)")
	flags.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel,
		"Logging level: debug, info, warn or error")
	flags.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output (same as --log-level debug)")

	// Analog input
	flags.StringVarP(&fv.source, "source", "s", config.DefaultSource,
		"Input source: tone, zero, file or portaudio")
	flags.StringVarP(&fv.file, "file", "f", "",
		"Audio file for --source file (wav, mp3, flac, ogg)")
	flags.IntVarP(&fv.device, "device", "d", config.DefaultDeviceID,
		"Input device ID for --source portaudio. Use 'list' to see available devices.")
	flags.Float64Var(&fv.sampleRate, "sample-rate", config.DefaultSampleRate,
		"Capture sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per capture buffer (affects latency)")

	// Display and pipeline options
	flags.StringVar(&fv.ui, "ui", config.DefaultUI,
		"Frontend: tui or headless")
	flags.DurationVar(&fv.frameInterval, "frame-interval", config.DefaultFrameInterval,
		"Minimum time per main loop iteration, 0 to spin")
	flags.StringVar(&fv.overflow, "overflow", config.DefaultOverflow,
		"Bars above full height: skip or clamp")
	flags.StringVar(&fv.selection, "selection", config.DefaultSelection,
		"Spectrum half read by the binner: upper or lower")
	flags.IntVar(&fv.scale, "scale", config.DefaultScaleIndex,
		"Scale index at power-on")
	flags.StringVar(&fv.button, "button", "",
		"GPIO pin name of the volume button (default virtual button)")

	// Recording
	flags.BoolVarP(&fv.record, "record", "r", false,
		"Record acquired samples to a WAV file")
	flags.StringVarP(&fv.output, "output", "o", "",
		"Output file name. Default is capture-DD-MM-YYYY-HHMMSS.wav")

	// Transports
	flags.StringVar(&fv.udpAddress, "udp", "",
		"Publish frames over UDP to host:port")
	flags.StringVar(&fv.wsAddress, "ws", "",
		"Serve frames over WebSocket on this address")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	// --help and --version return without running any hook.
	if options == nil {
		return nil, nil
	}
	options.Command = command
	return options, nil
}

// apply copies every flag the user set into cfg.
func (fv *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if fv.verbose {
		cfg.LogLevel = "debug"
	}
	if changed("source") {
		cfg.Source.Kind = fv.source
	}
	if changed("file") {
		cfg.Source.File = fv.file
		if !changed("source") {
			cfg.Source.Kind = config.SourceFile
		}
	}
	if changed("device") {
		cfg.Source.Device = fv.device
	}
	if changed("sample-rate") {
		cfg.Source.SampleRate = fv.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Source.FramesPerBuffer = fv.framesPerBuffer
	}
	if changed("ui") {
		cfg.Display.UI = fv.ui
	}
	if changed("frame-interval") {
		cfg.Display.FrameInterval = fv.frameInterval
	}
	if changed("overflow") {
		cfg.Display.Overflow = fv.overflow
	}
	if changed("selection") {
		cfg.Binner.Selection = fv.selection
	}
	if changed("scale") {
		cfg.Scale.Initial = fv.scale
	}
	if changed("button") {
		cfg.Scale.ButtonGPIO = fv.button
	}
	if changed("record") {
		cfg.Recording.Enabled = fv.record
	}
	if changed("output") {
		cfg.Recording.OutputFile = fv.output
		cfg.Recording.Enabled = true
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = fv.udpAddress != ""
		cfg.Transport.UDPTargetAddress = fv.udpAddress
	}
	if changed("ws") {
		cfg.Transport.WSEnabled = fv.wsAddress != ""
		cfg.Transport.WSAddress = fv.wsAddress
	}
}
