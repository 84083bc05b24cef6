// SPDX-License-Identifier: MIT

//go:build !tinygo

package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"spectrum/internal/log"
)

// captureRingSize holds about 370 ms of mono audio at 44.1 kHz. Must be a
// power of two.
const captureRingSize = 1 << 14

// Capture is a live ADC backed by a PortAudio input stream. The stream
// callback pushes mono samples into a ring; each StartConversion pops one.
// When the main loop falls behind it skips ahead to the newest audio, and
// when it runs ahead it re-reads the last value, like a free-running
// converter would.
type Capture struct {
	device     *portaudio.DeviceInfo
	stream     *portaudio.Stream
	channels   int
	sampleRate float64
	latency    time.Duration

	ring    [captureRingSize]atomic.Int32
	written atomic.Uint64
	read    uint64
	value   float64

	peak    atomic.Int32
	overrun atomic.Uint64
}

// OpenCapture opens, but does not start, a mono input stream on deviceID.
// PortAudio must already be initialized.
func OpenCapture(deviceID int, sampleRate float64, framesPerBuffer int) (*Capture, error) {
	device, err := InputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		device:     device,
		channels:   1,
		sampleRate: sampleRate,
		latency:    device.DefaultLowInputLatency,
		value:      0.5,
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.channels,
			Device:   device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %s: %w", device.Name, err)
	}
	c.stream = stream

	log.Infof("Capture: %s at %.0f Hz, %d frames per buffer", device.Name, sampleRate, framesPerBuffer)
	return c, nil
}

// processInputStream runs on PortAudio's thread. It must not allocate.
func (c *Capture) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w := c.written.Load()
	for i, sample := range in {
		c.ring[(w+uint64(i))&(captureRingSize-1)].Store(sample)
	}
	c.written.Store(w + uint64(len(in)))
	c.peak.Store(Peak(in))
}

func (c *Capture) Start() error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

func (c *Capture) Stop() error {
	return c.stream.Stop()
}

// Close stops and releases the stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		log.Warnf("Capture: Error stopping stream: %v", err)
	}
	err := c.stream.Close()
	c.stream = nil
	return err
}

func (c *Capture) ReadSample() float64 { return c.value }

// StartConversion is called only from the main loop.
func (c *Capture) StartConversion() {
	w := c.written.Load()
	if c.read >= w {
		return
	}
	if w-c.read > captureRingSize/2 {
		c.read = w - 1
		c.overrun.Add(1)
	}
	c.value = normalize(c.ring[c.read&(captureRingSize-1)].Load())
	c.read++
}

// normalize maps a signed 32-bit sample onto [0,1).
func normalize(sample int32) float64 {
	return (float64(sample) + 1<<31) / (1 << 32)
}

func (c *Capture) SampleRate() float64 { return c.sampleRate }
func (c *Capture) DeviceName() string  { return c.device.Name }

// Peak is the largest input amplitude of the last callback, as a fraction of
// full scale.
func (c *Capture) Peak() float64 { return PeakLevel(c.peak.Load()) }

// Overruns counts how often the main loop fell far enough behind to skip.
func (c *Capture) Overruns() uint64 { return c.overrun.Load() }
