// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"spectrum/internal/config"
	applog "spectrum/internal/log"
	"spectrum/internal/transport"
)

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

// UDPPublisher polls a FrameSource on a ticker and sends each new frame as a
// compact binary packet. Ticks that find no new frame send nothing.
type UDPPublisher struct {
	sender   *UDPSender
	source   transport.FrameSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex

	sequenceNum uint32
	lastFrame   uint64
	sentAny     bool

	packetBuffer *bytes.Buffer
}

// NewUDPPublisher validates its inputs; an interval <= 0 falls back to
// config.DefaultUDPSendInterval.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, source transport.FrameSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: frame source cannot be nil")
	}

	if interval <= 0 {
		interval = config.DefaultUDPSendInterval
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bins: %d)", interval, config.DisplayBins)

	return &UDPPublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize(config.DisplayBins))),
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishLatest()
			case <-doneChan:
				applog.Debugf("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop ends the publishing goroutine and waits for it. Safe to call twice.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

|<-- 4 Bytes -->|<---- 8 Bytes ---->|<- 1 ->|<- 1 ->|<- 1 ->|<-- N Bytes -->|
+---------------+-------------------+-------+-------+-------+---------------+
|   Sequence    |     Timestamp     | Scale |Percent| Count |     Bins      |
|   (uint32)    |  (int64, ns UTC)  |(uint8)|(uint8)|(uint8)|  (N * uint8)  |
+---------------+-------------------+-------+-------+-------+---------------+

Bins are the unscaled display magnitudes (0-15), bin 0 first.
*/

const headerSize = 4 + 8 + 1 + 1 + 1

// PacketSize is the encoded size of a packet carrying bins values.
func PacketSize(bins int) int { return headerSize + bins }

// Packet is the decoded form of a frame packet.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Scale     uint8
	Percent   uint8
	Bins      []uint8
}

// publishLatest sends the source's newest frame if it has not been sent.
func (p *UDPPublisher) publishLatest() {
	frame, ok := p.source.LatestFrame()
	if !ok || (p.sentAny && frame.Sequence == p.lastFrame) {
		return
	}

	p.sequenceNum++
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, &frame); err != nil {
		applog.Errorf("UDPPublisher: Error packing frame %d: %v", frame.Sequence, err)
		return
	}

	packetBytes := p.packetBuffer.Bytes()
	if err := p.sender.Send(packetBytes); err != nil {
		// The sender has already logged it.
		return
	}
	p.lastFrame = frame.Sequence
	p.sentAny = true
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packetBytes))
}

// EncodePacket resets buf and writes frame into it.
func EncodePacket(buf *bytes.Buffer, seq uint32, frame *transport.Frame) error {
	buf.Reset()

	var bins [config.DisplayBins]uint8
	for i, b := range frame.Bins {
		bins[i] = clampUint8(b)
	}

	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, frame.Timestamp.UnixNano())
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, [3]uint8{
			clampUint8(frame.Scale),
			clampUint8(frame.Percent),
			uint8(len(bins)),
		})
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, bins)
	}
	return err
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < headerSize {
		return Packet{}, ErrShortPacket
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(data[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(data[4:12])),
		Scale:     data[12],
		Percent:   data[13],
	}
	count := int(data[14])
	if len(data) < headerSize+count {
		return Packet{}, fmt.Errorf("%w: want %d bins, have %d bytes", ErrShortPacket, count, len(data)-headerSize)
	}
	p.Bins = append([]uint8(nil), data[headerSize:headerSize+count]...)
	return p, nil
}

func clampUint8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xFF:
		return 0xFF
	}
	return uint8(v)
}

// Close stops the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
