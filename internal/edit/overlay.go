// Package edit implements interactive geometry editing: the handle overlay
// drawn over the selected geometry and the session that turns pointer input
// into store edits.
package edit

import (
	"math"

	"geoedit/internal/geom"
)

// Role tells a real vertex handle from a virtual midpoint handle.
type Role int

const (
	RoleVertex Role = iota
	RoleMidpoint
)

func (r Role) String() string {
	if r == RoleMidpoint {
		return "midpoint"
	}
	return "vertex"
}

// Handle is a draggable point over the selected geometry. For a vertex
// handle Index is the vertex index; for a midpoint it is the index of the
// segment's first vertex.
type Handle struct {
	Pos   [2]float64
	Role  Role
	Index int
}

// Surface displays handles.
type Surface interface {
	SetHandles(hs []Handle)
	RequestRedraw()
}

// Projection converts between world and screen coordinates. Screen y grows
// downwards.
type Projection interface {
	ToScreen(p [2]float64) (x, y float64)
	ToWorld(x, y float64) [2]float64
	Size() (w, h float64)
}

type nopSurface struct{}

func (nopSurface) SetHandles([]Handle) {}
func (nopSurface) RequestRedraw()      {}

// Overlay keeps the handle list of one geometry. Its length and positions
// depend only on the geometry's kind and vertices:
//
//	point:   1 handle
//	line:    2N-1 handles, V M V ... V
//	polygon: 2N handles, V M ... V M (the last midpoint sits on the closing edge)
type Overlay struct {
	surface    Surface
	handles    []Handle
	registered int
}

func NewOverlay(s Surface) *Overlay {
	if s == nil {
		s = nopSurface{}
	}
	return &Overlay{surface: s}
}

// HandleCount is the handle list length for g.
func HandleCount(g *geom.Geometry) int {
	n := len(g.Vertices)
	if n == 0 {
		return 0
	}
	switch g.Kind {
	case geom.KindPoint:
		return 1
	case geom.KindLine:
		return 2*n - 1
	case geom.KindPolygon:
		return 2 * n
	}
	return 0
}

// Sync brings the handles in line with g: the list is grown or shrunk at the
// tail, then every handle is repositioned in index order. The surface gets a
// new list only when the count changed since it last got one; otherwise it
// is asked to redraw.
func (o *Overlay) Sync(g *geom.Geometry) {
	if g == nil {
		o.Clear()
		return
	}
	n := HandleCount(g)
	for len(o.handles) < n {
		o.handles = append(o.handles, Handle{})
	}
	o.handles = o.handles[:n]
	nv := len(g.Vertices)
	for i := range o.handles {
		k := i / 2
		if i%2 == 0 {
			o.handles[i] = Handle{Pos: g.Vertices[k], Role: RoleVertex, Index: k}
			continue
		}
		o.handles[i] = Handle{Pos: geom.Midpoint(g.Vertices[k], g.Vertices[(k+1)%nv]), Role: RoleMidpoint, Index: k}
	}
	if n != o.registered {
		o.registered = n
		o.surface.SetHandles(o.Handles())
		return
	}
	o.surface.RequestRedraw()
}

// Insert splices hs in before position i. Positions are fixed by the next Sync.
func (o *Overlay) Insert(i int, hs ...Handle) {
	if i < 0 || i > len(o.handles) {
		return
	}
	o.handles = append(o.handles[:i], append(append([]Handle(nil), hs...), o.handles[i:]...)...)
}

// Remove cuts n handles starting at i.
func (o *Overlay) Remove(i, n int) {
	if i < 0 || n <= 0 || i+n > len(o.handles) {
		return
	}
	o.handles = append(o.handles[:i], o.handles[i+n:]...)
}

// Clear drops every handle.
func (o *Overlay) Clear() {
	o.handles = nil
	if o.registered != 0 {
		o.registered = 0
		o.surface.SetHandles(nil)
	}
}

// Handles returns a copy of the handle list.
func (o *Overlay) Handles() []Handle {
	return append([]Handle(nil), o.handles...)
}

func (o *Overlay) Len() int { return len(o.handles) }

// At returns handle i.
func (o *Overlay) At(i int) Handle { return o.handles[i] }

// Nearest finds the handle closest to screen position (x, y) within
// threshold. A vertex wins over a midpoint at the same distance.
func (o *Overlay) Nearest(proj Projection, x, y, threshold float64) (int, bool) {
	best, bestD := -1, math.Inf(1)
	for i, h := range o.handles {
		sx, sy := proj.ToScreen(h.Pos)
		d := math.Hypot(sx-x, sy-y)
		if d > threshold {
			continue
		}
		if d < bestD || (d == bestD && h.Role == RoleVertex && o.handles[best].Role == RoleMidpoint) {
			best, bestD = i, d
		}
	}
	return best, best >= 0
}
