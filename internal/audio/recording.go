// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"spectrum/internal/config"
	"spectrum/internal/log"
)

const recordBitDepth = 16

// StartRecording writes every acquired sample buffer to a mono 16-bit WAV
// file. sampleRate only fills in the header since acquisition is not
// clocked; zero uses config.DefaultSampleRate.
func (e *Engine) StartRecording(filename string, sampleRate int) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}
	if sampleRate <= 0 {
		sampleRate = config.DefaultSampleRate
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}

	e.recordMu.Lock()
	e.outputFile = file
	e.wavEncoder = wav.NewEncoder(file, sampleRate, recordBitDepth, 1, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, config.FFTSize),
		SourceBitDepth: recordBitDepth,
	}
	e.recordMu.Unlock()

	atomic.StoreInt32(&e.isRecording, 1)
	log.Infof("Engine: Recording to %s (%d Hz header)", filename, sampleRate)
	return nil
}

// StopRecording finalizes the WAV header and closes the file.
func (e *Engine) StopRecording() error {
	if !atomic.CompareAndSwapInt32(&e.isRecording, 1, 0) {
		return nil
	}

	e.recordMu.Lock()
	defer e.recordMu.Unlock()

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}
	return nil
}

// Recording reports whether buffers are being written.
func (e *Engine) Recording() bool {
	return atomic.LoadInt32(&e.isRecording) == 1
}

// record appends the real parts of samples to the open recording.
func (e *Engine) record(samples []complex128) {
	if atomic.LoadInt32(&e.isRecording) == 0 {
		return
	}

	e.recordMu.Lock()
	defer e.recordMu.Unlock()
	if e.wavEncoder == nil {
		return
	}

	e.sampleBuf.Data = e.sampleBuf.Data[:len(samples)]
	for i, s := range samples {
		e.sampleBuf.Data[i] = toPCM16(real(s))
	}
	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		log.Errorf("Engine: Error writing to WAV file: %v", err)
	}
}

// toPCM16 maps an ADC reading in [0,1) to a signed 16-bit sample.
func toPCM16(v float64) int {
	s := math.Round((v - 0.5) * 2 * math.MaxInt16)
	return int(math.Max(math.MinInt16, math.Min(math.MaxInt16, s)))
}
