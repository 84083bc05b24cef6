// SPDX-License-Identifier: MIT

// Package display draws the spectrum on a two-row character LCD. Eight custom
// glyphs fill 1-8 pixel rows of a cell from the bottom; stacking two cells
// gives 16 bar heights per column.
package display

import (
	"fmt"
	"io"
	"strings"

	"spectrum/internal/hal"
)

const (
	GlyphCount  = 8
	GlyphHeight = 8
	GlyphWidth  = 5

	rowLit = 0x1F
)

// FullGlyph is the completely filled cell.
const FullGlyph = GlyphCount - 1

// Glyphs holds the CGRAM bitmaps, top row first. Glyph i lights its bottom
// i+1 rows.
var Glyphs = buildGlyphs()

func buildGlyphs() [GlyphCount][GlyphHeight]byte {
	var g [GlyphCount][GlyphHeight]byte
	for i := range g {
		for row := GlyphHeight - 1 - i; row < GlyphHeight; row++ {
			g[i][row] = rowLit
		}
	}
	return g
}

// UploadGlyphs writes the glyph table into CGRAM slots 0-7 and returns the
// cursor to the first DDRAM cell.
func UploadGlyphs(d hal.Display) {
	for i, glyph := range Glyphs {
		d.WriteCommand(hal.CmdSetCGRAM | byte(i*GlyphHeight))
		for _, row := range glyph {
			d.WriteChar(row)
		}
	}
	d.GotoPosition(0)
}

// WriteGlyphArt prints every glyph as a 5x8 block of '#' and '.'.
func WriteGlyphArt(w io.Writer) error {
	var b strings.Builder
	for row := 0; row < GlyphHeight; row++ {
		for i, glyph := range Glyphs {
			if i > 0 {
				b.WriteString("  ")
			}
			for bit := GlyphWidth - 1; bit >= 0; bit-- {
				if glyph[row]&(1<<bit) != 0 {
					b.WriteByte('#')
				} else {
					b.WriteByte('.')
				}
			}
		}
		b.WriteByte('\n')
	}
	for i := range Glyphs {
		if i > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "%-5d", i)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
