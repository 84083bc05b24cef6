// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	applog "spectrum/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp sender closed")

// UDPSender writes frame packets to one fixed listener, typically a
// visualizer on the LAN.
type UDPSender struct {
	mu     sync.Mutex // Guards conn against a concurrent Close.
	conn   *net.UDPConn
	target *net.UDPAddr

	packets atomic.Uint64
	bytes   atomic.Uint64
}

// NewUDPSender dials targetAddress ("host:port").
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	// Any local port will do.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("UDPSender: Sending frames to %s", conn.RemoteAddr())
	return &UDPSender{conn: conn, target: addr}, nil
}

// Send writes one packet as a single datagram. It is safe for concurrent use.
func (s *UDPSender) Send(packet []byte) error {
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return ErrSenderClosed
	}
	n, err := s.conn.Write(packet)
	s.mu.Unlock()

	if err != nil {
		applog.Warnf("UDPSender: Error sending packet: %v", err)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	s.packets.Add(1)
	s.bytes.Add(uint64(n))
	return nil
}

// Packets and Bytes count what has been written so far.
func (s *UDPSender) Packets() uint64 { return s.packets.Load() }
func (s *UDPSender) Bytes() uint64   { return s.bytes.Load() }

// Target returns the resolved destination address.
func (s *UDPSender) Target() *net.UDPAddr { return s.target }

// Close closes the connection. Later calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	applog.Infof("UDPSender: Closed after %d packets to %s", s.packets.Load(), s.target)
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
