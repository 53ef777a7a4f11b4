package tui

import (
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"geoedit/internal/datasource"
	"geoedit/internal/edit"
	"geoedit/internal/geom"
)

// view maps lon/lat onto the map area using the dataset bbox, a zoom factor
// around the bbox centre and a pan offset in cells. Screen coordinates are
// continuous cell units: cell (c, r) covers [c, c+1) x [r, r+1).
type view struct {
	bbox    geom.BBox
	zoom    float64
	offsetX float64
	offsetY float64
	w, h    int
}

func (v view) valid() bool {
	return v.bbox.Valid() && v.w > 0 && v.h > 0 && v.zoom > 0
}

func (v view) ToScreen(p [2]float64) (float64, float64) {
	if !v.valid() {
		return 0, 0
	}
	nx := (p[0] - v.bbox.MinX) / (v.bbox.MaxX - v.bbox.MinX)
	ny := (p[1] - v.bbox.MinY) / (v.bbox.MaxY - v.bbox.MinY)
	// zoom around centre (0.5, 0.5)
	zx := 0.5 + (nx-0.5)*v.zoom
	zy := 0.5 + (ny-0.5)*v.zoom
	return zx*float64(v.w) + v.offsetX, (1.0-zy)*float64(v.h) + v.offsetY
}

// ToWorld converts a screen position back to lon/lat.
func (v view) ToWorld(x, y float64) [2]float64 {
	if !v.valid() {
		return [2]float64{}
	}
	zx := (x - v.offsetX) / float64(v.w)
	zy := 1.0 - (y-v.offsetY)/float64(v.h)
	nx := 0.5 + (zx-0.5)/v.zoom
	ny := 0.5 + (zy-0.5)/v.zoom
	return [2]float64{
		v.bbox.MinX + nx*(v.bbox.MaxX-v.bbox.MinX),
		v.bbox.MinY + ny*(v.bbox.MaxY-v.bbox.MinY),
	}
}

func (v view) Size() (float64, float64) { return float64(v.w), float64(v.h) }

// viewport is the world box currently on screen, for reloads.
func (v view) viewport() datasource.Viewport {
	lo := v.ToWorld(0, float64(v.h))
	hi := v.ToWorld(float64(v.w), 0)
	return datasource.Viewport{
		BBox: geom.BBox{MinX: lo[0], MinY: lo[1], MaxX: hi[0], MaxY: hi[1]},
		Zoom: v.zoom,
	}
}

// worldRadius converts a radius in cells into world units. Cells are not
// square in world units, so the larger axis is used.
func (v view) worldRadius(cells float64) float64 {
	a := v.ToWorld(0, 0)
	b := v.ToWorld(cells, cells)
	return math.Max(math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1]))
}

// micro maps lon/lat onto the braille microgrid, clamped so that far
// off-screen vertices cannot overflow.
func (v view) micro(p [2]float64) (int, int) {
	sx, sy := v.ToScreen(p)
	const lim = 1 << 20
	return int(math.Floor(clamp(sx*2, -lim, lim))), int(math.Floor(clamp(sy*4, -lim, lim)))
}

func (v view) cell(p [2]float64) (int, int) {
	sx, sy := v.ToScreen(p)
	return int(math.Floor(sx)), int(math.Floor(sy))
}

// drawOrder puts areas under lines under points, then by id.
func drawOrder(gs []*geom.Geometry) {
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Kind != gs[j].Kind {
			return gs[i].Kind > gs[j].Kind
		}
		return gs[i].ID < gs[j].ID
	})
}

// renderMap draws every registered geometry, then the selection and its
// handles on top.
func (m Model) renderMap(w, h int) string {
	v := m.view
	v.w, v.h = w, h
	sel := m.sess.Selected()
	frame, key, ok := m.canvas.cached(v, sel)
	if ok {
		return frame
	}
	br := newBrailleBuf(w, h)
	if !v.valid() {
		return strings.Join(br.toLines(), "\n")
	}
	gs := m.canvas.geometries()
	drawOrder(gs)
	for _, g := range gs {
		if g == sel {
			continue
		}
		m.drawGeometry(br, v, g, m.styles.For(g).Color)
	}
	if sel != nil {
		m.drawGeometry(br, v, sel, m.styles.Selected.Color)
		for _, hd := range m.sess.Overlay().Handles() {
			st := m.styles.Vertex
			if hd.Role == edit.RoleMidpoint {
				st = m.styles.Midpoint
			}
			cx, cy := v.cell(hd.Pos)
			br.setGlyph(cx, cy, st.Render(string(st.Glyph)))
		}
	}
	// drop target for drag-to-delete
	br.setGlyph(w-1, 0, trashStyle.Render("✖"))

	frame = strings.Join(br.toLines(), "\n")
	m.canvas.store(key, frame)
	return frame
}

func (m Model) drawGeometry(br *brailleBuf, v view, g *geom.Geometry, c lipgloss.Color) {
	switch g.Kind {
	case geom.KindPoint:
		if len(g.Vertices) == 0 {
			return
		}
		st := m.styles.For(g)
		cx, cy := v.cell(g.Vertices[0])
		br.setGlyph(cx, cy, lipgloss.NewStyle().Foreground(c).Render(string(st.Glyph)))
	case geom.KindLine:
		drawPath(br, v, g.Vertices, false, c)
	case geom.KindPolygon:
		fillRing(br, v, g.Vertices, g.Holes, c)
		drawPath(br, v, g.Vertices, true, c)
		for _, hole := range g.Holes {
			drawPath(br, v, hole, true, c)
		}
	}
}

func drawPath(br *brailleBuf, v view, path [][2]float64, closed bool, c lipgloss.Color) {
	n := len(path)
	if n == 0 {
		return
	}
	last := n - 1
	if closed {
		last = n
	}
	if n == 1 {
		mx, my := v.micro(path[0])
		br.setPixel(mx, my, c)
		return
	}
	for i := 0; i < last; i++ {
		ax, ay := v.micro(path[i])
		bx, by := v.micro(path[(i+1)%n])
		br.drawLineMicro(ax, ay, bx, by, c)
	}
}

// fillRing shades a polygon with a sparse even-odd scanline pattern so the
// outline stays readable. Holes take part in the parity.
func fillRing(br *brailleBuf, v view, outer [][2]float64, holes [][][2]float64, c lipgloss.Color) {
	var rings [][][2]int
	for _, r := range append([][][2]float64{outer}, holes...) {
		if len(r) < 3 {
			continue
		}
		mr := make([][2]int, len(r))
		for i, p := range r {
			mx, my := v.micro(p)
			mr[i] = [2]int{mx, my}
		}
		rings = append(rings, mr)
	}
	if len(rings) == 0 {
		return
	}
	hMic := br.h * 4
	wMic := br.w * 2
	for yMic := 0; yMic < hMic; yMic += 2 {
		var xs []int
		for _, r := range rings {
			for i := 0; i < len(r); i++ {
				a := r[i]
				b := r[(i+1)%len(r)]
				if a[1] == b[1] { // horizontal edge: skip
					continue
				}
				y0, y1 := a[1], b[1]
				x0, x1 := a[0], b[0]
				if (yMic >= y0 && yMic < y1) || (yMic >= y1 && yMic < y0) {
					t := float64(yMic-y0) / float64(y1-y0)
					xs = append(xs, int(float64(x0)+t*float64(x1-x0)))
				}
			}
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			start, end := max(0, xs[i]), min(wMic-1, xs[i+1])
			for xMic := start + (yMic/2)%2; xMic <= end; xMic += 2 {
				br.setPixel(xMic, yMic, c)
			}
		}
	}
}
