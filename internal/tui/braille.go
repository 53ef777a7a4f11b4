package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// brailleBuf is a 2x4 micro-pixel canvas per terminal cell. Each cell keeps
// the colour of the last pixel drawn into it, and may carry a glyph that
// replaces the braille pattern entirely.
type brailleBuf struct {
	w, h  int // in cells
	m     [][]uint8
	ink   [][]lipgloss.Color
	glyph [][]string
}

func newBrailleBuf(w, h int) *brailleBuf {
	b := &brailleBuf{w: w, h: h}
	b.m = make([][]uint8, h)
	b.ink = make([][]lipgloss.Color, h)
	b.glyph = make([][]string, h)
	for i := 0; i < h; i++ {
		b.m[i] = make([]uint8, w)
		b.ink[i] = make([]lipgloss.Color, w)
		b.glyph[i] = make([]string, w)
	}
	return b
}

// dot bits by [column][row] inside a cell
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// setPixel sets a micro-pixel at micro coords (2x4 per cell).
func (b *brailleBuf) setPixel(mx, my int, c lipgloss.Color) {
	if mx < 0 || my < 0 {
		return
	}
	cx, cy := mx/2, my/4
	if cx >= b.w || cy >= b.h {
		return
	}
	b.m[cy][cx] |= brailleBits[mx%2][my%4]
	b.ink[cy][cx] = c
}

// setGlyph places a rendered glyph over a cell.
func (b *brailleBuf) setGlyph(cx, cy int, s string) {
	if cx < 0 || cy < 0 || cx >= b.w || cy >= b.h {
		return
	}
	b.glyph[cy][cx] = s
}

// drawLineMicro draws a line on the microgrid using Bresenham.
func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int, c lipgloss.Color) {
	// skip segments entirely off one side of the canvas
	wm, hm := b.w*2, b.h*4
	if (x0 < 0 && x1 < 0) || (y0 < 0 && y1 < 0) || (x0 >= wm && x1 >= wm) || (y0 >= hm && y1 >= hm) {
		return
	}
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.setPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// toLines renders the buffer, grouping runs of equally coloured cells into
// one styled span.
func (b *brailleBuf) toLines() []string {
	out := make([]string, b.h)
	for y := 0; y < b.h; y++ {
		var sb, run strings.Builder
		var runInk lipgloss.Color
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runInk == "" {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(lipgloss.NewStyle().Foreground(runInk).Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < b.w; x++ {
			if g := b.glyph[y][x]; g != "" {
				flush()
				sb.WriteString(g)
				continue
			}
			mask := b.m[y][x]
			ink := b.ink[y][x]
			if mask == 0 {
				ink = ""
			}
			if ink != runInk {
				flush()
				runInk = ink
			}
			if mask == 0 {
				run.WriteRune(' ')
			} else {
				run.WriteRune(rune(0x2800 + int(mask)))
			}
		}
		flush()
		out[y] = sb.String()
	}
	return out
}
