// SPDX-License-Identifier: MIT

// Package hal defines the hardware collaborators the analyzer drives (the
// analog input, the character LCD, the volume button, time) and provides
// host implementations of each. Microcontroller implementations live behind
// the tinygo build tag.
package hal

import (
	"math/bits"
	"time"
)

// ADC is the analog input. Conversions are pipelined: ReadSample returns the
// most recent completed conversion and StartConversion requests the next one.
// The two are not synchronized, so a read may return the previous value again.
type ADC interface {
	ReadSample() float64 // Normalized to [0,1).
	StartConversion()
}

// Display is an HD44780-style character LCD.
type Display interface {
	WriteCommand(code byte)
	WriteChar(c byte)
	GotoPosition(addr byte)
	WriteString(s string)
}

// Button is the active-low volume button.
type Button interface {
	// Pressed samples the pin now.
	Pressed() bool
	// SetEdgeHandler registers the falling-edge callback. The callback may run
	// on an interrupt or watcher goroutine and must return quickly.
	SetEdgeHandler(fn func(at time.Time))
}

// Clock is the time source for debounce deadlines and file playback.
type Clock interface {
	Now() time.Time
}

// Delay is the blocking delay primitive.
type Delay interface {
	DelayMicroseconds(n uint32)
	DelayMilliseconds(n uint32)
}

// HD44780 instruction set, as far as the analyzer uses it.
const (
	CmdClear          = 0x01
	CmdHome           = 0x02
	CmdEntryMode      = 0x04 // | EntryIncrement
	CmdDisplayControl = 0x08 // | DisplayOn | CursorOn | BlinkOn
	CmdShift          = 0x10
	CmdFunctionSet    = 0x20
	CmdSetCGRAM       = 0x40 // | address (6 bits)
	CmdSetDDRAM       = 0x80 // | address (7 bits)

	EntryIncrement = 0x02
	DisplayOn      = 0x04
	CursorOn       = 0x02
	BlinkOn        = 0x01
)

// Instruction returns the Cmd* opcode of code: its highest set bit. The
// lower bits are the opcode's arguments, so 0x0C is DisplayControl with
// DisplayOn, not EntryMode.
func Instruction(code byte) byte {
	if code == 0 {
		return 0
	}
	return 1 << (bits.Len8(code) - 1)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SleepDelay implements Delay with time.Sleep.
type SleepDelay struct{}

func (SleepDelay) DelayMicroseconds(n uint32) { time.Sleep(time.Duration(n) * time.Microsecond) }
func (SleepDelay) DelayMilliseconds(n uint32) { time.Sleep(time.Duration(n) * time.Millisecond) }

// Heartbeat is an output pin flipped once per loop iteration, so an LED or a
// scope shows the loop is running and at what rate.
type Heartbeat interface {
	Toggle()
}

// Board groups the collaborators one analyzer instance drives.
type Board struct {
	ADC       ADC
	Display   Display
	Button    Button
	Clock     Clock
	Delay     Delay
	Heartbeat Heartbeat // Optional.
}
