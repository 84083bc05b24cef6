// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"strings"

	"spectrum/internal/config"
	"spectrum/internal/hal"
)

// Overflow selects what happens to a column whose scaled level exceeds the
// top of the bar.
type Overflow int

const (
	// Skip leaves the column untouched, so it keeps whatever it showed last.
	Skip Overflow = iota
	// Clamp draws the column at full height.
	Clamp
)

func (o Overflow) String() string {
	switch o {
	case Skip:
		return config.OverflowSkip
	case Clamp:
		return config.OverflowClamp
	default:
		return fmt.Sprintf("Overflow(%d)", int(o))
	}
}

func ParseOverflow(name string) (Overflow, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.OverflowSkip:
		return Skip, nil
	case config.OverflowClamp:
		return Clamp, nil
	default:
		return Skip, fmt.Errorf("%w: %q", config.ErrUnknownOverflow, name)
	}
}

const (
	blank      = ' '
	levelCount = config.DisplayRows * config.HalfLevels
)

// Cells splits a bar level across the two rows. Levels below 8 leave the top
// cell blank and draw the partial glyph below. From 8 up the bottom cell is
// full and the top cell carries the remainder. ok is false for levels that
// do not fit in two cells.
func Cells(level int) (top, bottom byte, ok bool) {
	if level < 0 {
		level = 0
	}
	if level >= levelCount {
		return 0, 0, false
	}
	if level < config.HalfLevels {
		return blank, byte(level), true
	}
	return byte(level - config.HalfLevels), FullGlyph, true
}

// BarGraph renders display bins as vertical bars, bin 0 in the rightmost
// column.
type BarGraph struct {
	display  hal.Display
	columns  int
	overflow Overflow
}

func NewBarGraph(d hal.Display, columns int, overflow Overflow) *BarGraph {
	return &BarGraph{display: d, columns: columns, overflow: overflow}
}

func (r *BarGraph) Columns() int       { return r.columns }
func (r *BarGraph) Overflow() Overflow { return r.overflow }

// Draw renders bins scaled by multiplier and returns how many columns were
// skipped for overflowing. Bins beyond the column count are ignored.
func (r *BarGraph) Draw(bins []int, multiplier int) int {
	skipped := 0
	for i, mag := range bins {
		if i >= r.columns {
			break
		}
		if !r.DrawColumn(r.columns-1-i, mag*multiplier) {
			skipped++
		}
	}
	return skipped
}

// DrawColumn draws one bar at column pos. It reports false when the level
// overflowed and the column was left as it was.
func (r *BarGraph) DrawColumn(pos, level int) bool {
	top, bottom, ok := Cells(level)
	if !ok {
		if r.overflow != Clamp {
			return false
		}
		top, bottom, _ = Cells(levelCount - 1)
	}

	r.display.GotoPosition(byte(pos))
	r.display.WriteChar(top)
	r.display.GotoPosition(byte(pos + config.SecondRowOffset))
	r.display.WriteChar(bottom)
	return true
}
