// SPDX-License-Identifier: MIT
package hal

import (
	"strings"
	"sync"
)

const (
	lcdColumns   = 16
	lcdRows      = 2
	lcdLineWidth = 0x28 // DDRAM bytes per line in two-line mode.
	lcdLine2     = 0x40
	cgramSize    = 64
)

// fillRunes maps the number of lit glyph rows (0-8) to a block character.
var fillRunes = []rune(" ▁▂▃▄▅▆▇█")

// LCD emulates a 16x2 HD44780 controller: DDRAM, CGRAM, the address counter
// and the instructions in this package. It is safe for one writer and any
// number of Snapshot readers.
type LCD struct {
	mu        sync.Mutex
	ddram     [0x80]byte
	cgram     [cgramSize]byte
	ac        byte
	cgramMode bool
	increment bool
	on        bool
	writes    uint64
}

// NewLCD returns a controller in its power-on state: blank DDRAM, display
// off, address counter incrementing.
func NewLCD() *LCD {
	l := &LCD{increment: true}
	l.clear()
	return l
}

func (l *LCD) clear() {
	for i := range l.ddram {
		l.ddram[i] = ' '
	}
	l.ac = 0
	l.cgramMode = false
	l.increment = true
}

// WriteCommand executes one instruction.
func (l *LCD) WriteCommand(code byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch Instruction(code) {
	case CmdSetDDRAM:
		l.ac = code &^ CmdSetDDRAM
		l.cgramMode = false
	case CmdSetCGRAM:
		l.ac = code &^ CmdSetCGRAM
		l.cgramMode = true
	case CmdFunctionSet, CmdShift:
		// Bus width and shifting are fixed for the emulator.
	case CmdDisplayControl:
		l.on = code&DisplayOn != 0
	case CmdEntryMode:
		l.increment = code&EntryIncrement != 0
	case CmdHome:
		l.ac = 0
		l.cgramMode = false
	case CmdClear:
		l.clear()
	}
}

// WriteChar stores c at the address counter and advances it.
func (l *LCD) WriteChar(c byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.writes++
	if l.cgramMode {
		l.cgram[l.ac%cgramSize] = c & 0x1F
		if l.increment {
			l.ac = (l.ac + 1) % cgramSize
		} else {
			l.ac = (l.ac + cgramSize - 1) % cgramSize
		}
		return
	}

	l.ddram[l.ac&0x7F] = c
	l.ac = nextDDRAM(l.ac, l.increment)
}

// nextDDRAM steps the address counter across the two 40-byte lines the way
// the controller does: 0x27 wraps to 0x40 and 0x67 back to 0x00.
func nextDDRAM(ac byte, increment bool) byte {
	if increment {
		switch ac {
		case lcdLineWidth - 1:
			return lcdLine2
		case lcdLine2 + lcdLineWidth - 1:
			return 0
		}
		return ac + 1
	}
	switch ac {
	case 0:
		return lcdLine2 + lcdLineWidth - 1
	case lcdLine2:
		return lcdLineWidth - 1
	}
	return ac - 1
}

// GotoPosition moves the cursor to a DDRAM address (0x40 starts line two).
func (l *LCD) GotoPosition(addr byte) {
	l.WriteCommand(CmdSetDDRAM | addr&0x7F)
}

// WriteString writes each byte of s.
func (l *LCD) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		l.WriteChar(s[i])
	}
}

// Snapshot copies the visible 16x2 area and the glyph memory.
func (l *LCD) Snapshot() Screen {
	l.mu.Lock()
	defer l.mu.Unlock()

	var s Screen
	for r := 0; r < lcdRows; r++ {
		copy(s.Cells[r][:], l.ddram[r*lcdLine2:r*lcdLine2+lcdColumns])
	}
	s.CGRAM = l.cgram
	s.On = l.on
	s.Writes = l.writes
	return s
}

// Screen is a point-in-time copy of what the LCD shows.
type Screen struct {
	Cells  [lcdRows][lcdColumns]byte
	CGRAM  [cgramSize]byte
	On     bool
	Writes uint64 // Data writes since power-on.
}

// Cell returns the character code at row r, column c.
func (s Screen) Cell(r, c int) byte {
	return s.Cells[r][c]
}

// Rune decodes a character code for a terminal: codes 0-15 are the custom
// glyphs (8-15 mirror 0-7), drawn by how many of their rows are lit.
func (s Screen) Rune(code byte) rune {
	if code < 16 {
		glyph := s.CGRAM[int(code&0x07)*8 : int(code&0x07)*8+8]
		lit := 0
		for _, row := range glyph {
			if row != 0 {
				lit++
			}
		}
		return fillRunes[lit]
	}
	if code < 0x20 || code > 0x7E {
		return '?'
	}
	return rune(code)
}

// Row renders row r as text.
func (s Screen) Row(r int) string {
	var b strings.Builder
	for c := 0; c < lcdColumns; c++ {
		b.WriteRune(s.Rune(s.Cells[r][c]))
	}
	return b.String()
}

// String renders both rows separated by a newline.
func (s Screen) String() string {
	return s.Row(0) + "\n" + s.Row(1)
}
