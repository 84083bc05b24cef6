// SPDX-License-Identifier: MIT

//go:build !tinygo

package hal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyFile         = errors.New("audio file contains no samples")
)

// DefaultResyncGap is how long the file ADC may go without a conversion
// before playback jumps to where the wall clock says it should be.
const DefaultResyncGap = 5 * time.Millisecond

// FileADC plays a decoded audio file as if it were sampled live: each
// conversion yields the next sample, and the playback position follows the
// clock across the idle time between sample blocks. The file loops.
type FileADC struct {
	mu      sync.Mutex
	samples []float64
	rate    float64
	clock   Clock
	gap     time.Duration
	start   time.Time
	last    time.Time
	pos     int
	value   float64
}

// OpenFileADC decodes a .wav, .mp3, .flac or .ogg file into memory.
func OpenFileADC(path string, clock Clock) (*FileADC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	samples, rate, err := decodeFile(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return NewFileADC(samples, rate, clock)
}

// NewFileADC plays samples already normalized to [0,1).
func NewFileADC(samples []float64, sampleRate float64, clock Clock) (*FileADC, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyFile
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	if clock == nil {
		clock = SystemClock{}
	}
	a := &FileADC{
		samples: samples,
		rate:    sampleRate,
		clock:   clock,
		gap:     DefaultResyncGap,
		start:   clock.Now(),
		value:   samples[0],
	}
	return a, nil
}

// SetResyncGap changes the idle time that triggers a resync. Zero disables it.
func (a *FileADC) SetResyncGap(d time.Duration) {
	a.mu.Lock()
	a.gap = d
	a.mu.Unlock()
}

func (a *FileADC) SampleRate() float64 { return a.rate }
func (a *FileADC) Len() int            { return len(a.samples) }

func (a *FileADC) ReadSample() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

func (a *FileADC) StartConversion() {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.clock.Now()
	if a.gap > 0 && !a.last.IsZero() && now.Sub(a.last) > a.gap {
		elapsed := now.Sub(a.start).Seconds()
		a.pos = int(elapsed*a.rate) % len(a.samples)
	}
	a.last = now
	a.value = a.samples[a.pos]
	a.pos = (a.pos + 1) % len(a.samples)
}

func decodeFile(r io.Reader, ext string) ([]float64, float64, error) {
	switch strings.ToLower(ext) {
	case ".wav":
		return decodeWAV(r)
	case ".mp3":
		return decodeMP3(r)
	case ".flac":
		return decodeFLAC(r)
	case ".ogg":
		return decodeOGG(r)
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// toUnit maps a signed sample in [-1,1] onto the ADC range [0,1).
func toUnit(s float64) float64 {
	v := 0.5 + 0.5*s
	switch {
	case v < 0:
		return 0
	case v >= 1:
		return 1 - 1.0/65536
	}
	return v
}

// mixdown averages interleaved frames to mono.
func mixdown(dst []float64, frame []float64) []float64 {
	var sum float64
	for _, s := range frame {
		sum += s
	}
	return append(dst, toUnit(sum/float64(len(frame))))
}

func decodeWAV(r io.Reader) ([]float64, float64, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, 0, errors.New("wav decoding needs a seekable reader")
	}
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = int(dec.BitDepth)
	}
	full := float64(int64(1) << (depth - 1))

	out := make([]float64, 0, len(buf.Data)/channels)
	frame := make([]float64, channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		for ch := range frame {
			s := buf.Data[i+ch]
			if depth == 8 {
				s -= 128 // 8-bit WAV is unsigned
			}
			frame[ch] = float64(s) / full
		}
		out = mixdown(out, frame)
	}
	return out, float64(buf.Format.SampleRate), nil
}

func decodeMP3(r io.Reader) ([]float64, float64, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding MP3: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	out := make([]float64, 0, len(raw)/4)
	frame := make([]float64, 2)
	for i := 0; i+4 <= len(raw); i += 4 {
		frame[0] = float64(int16(binary.LittleEndian.Uint16(raw[i:]))) / 32768
		frame[1] = float64(int16(binary.LittleEndian.Uint16(raw[i+2:]))) / 32768
		out = mixdown(out, frame)
	}
	return out, float64(dec.SampleRate()), nil
}

func decodeFLAC(r io.Reader) ([]float64, float64, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	full := float64(int64(1) << (info.BitsPerSample - 1))

	out := make([]float64, 0, info.NSamples)
	frame := make([]float64, channels)
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decoding FLAC frame: %w", err)
		}
		n := int(f.Subframes[0].NSamples)
		for i := 0; i < n; i++ {
			for ch := range frame {
				frame[ch] = float64(f.Subframes[ch].Samples[i]) / full
			}
			out = mixdown(out, frame)
		}
	}
	return out, float64(info.SampleRate), nil
}

func decodeOGG(r io.Reader) ([]float64, float64, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding OGG: %w", err)
	}

	channels := reader.Channels()
	chunk := make([]float32, 4096*channels)
	frame := make([]float64, channels)
	var out []float64
	for {
		n, err := reader.Read(chunk)
		for i := 0; i+channels <= n; i += channels {
			for ch := range frame {
				frame[ch] = float64(chunk[i+ch])
			}
			out = mixdown(out, frame)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decoding OGG: %w", err)
		}
	}
	return out, float64(reader.SampleRate()), nil
}
