// SPDX-License-Identifier: MIT
package transport

import (
	"spectrum/internal/log"
)

// LoggingTransport writes frames to the debug log.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the frame when debug logging is on.
func (lt *LoggingTransport) Send(frame Frame) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	log.Debugf("Frame %d: scale=%d bins=%v holding=%v",
		frame.Sequence, frame.Scale, frame.Bins, frame.Holding)
	return nil
}

func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: LoggingTransport closed")
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
