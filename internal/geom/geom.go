package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// New builds a geometry of the given kind. Vertices are copied.
func New(kind Kind, vertices [][2]float64) *Geometry {
	g := &Geometry{Kind: kind, Vertices: make([][2]float64, len(vertices))}
	copy(g.Vertices, vertices)
	return g
}

// Clone returns a deep copy. Properties are copied one level deep.
func (g *Geometry) Clone() *Geometry {
	if g == nil {
		return nil
	}
	c := &Geometry{ID: g.ID, Kind: g.Kind, Style: g.Style}
	c.Vertices = append([][2]float64(nil), g.Vertices...)
	if len(g.Holes) > 0 {
		c.Holes = make([][][2]float64, len(g.Holes))
		for i, h := range g.Holes {
			c.Holes[i] = append([][2]float64(nil), h...)
		}
	}
	if g.Properties != nil {
		c.Properties = make(map[string]any, len(g.Properties))
		for k, v := range g.Properties {
			c.Properties[k] = v
		}
	}
	return c
}

// Validate checks the vertex floor of the kind.
func (g *Geometry) Validate() error {
	switch g.Kind {
	case KindPoint:
		if len(g.Vertices) != 1 {
			return fmt.Errorf("%w: point has %d vertices", ErrTooFewVertices, len(g.Vertices))
		}
	case KindLine, KindPolygon:
		if len(g.Vertices) < g.Kind.MinVertices() {
			return fmt.Errorf("%w: %s has %d vertices", ErrTooFewVertices, g.Kind, len(g.Vertices))
		}
		if g.Kind == KindLine && len(g.Holes) > 0 {
			return fmt.Errorf("geom: line cannot have holes")
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

// BBox covers the vertices (holes lie inside the outer ring by construction).
func (g *Geometry) BBox() BBox {
	if len(g.Vertices) == 0 {
		return BBox{}
	}
	v := g.Vertices[0]
	bb := BBox{MinX: v[0], MinY: v[1], MaxX: v[0], MaxY: v[1]}
	for _, p := range g.Vertices[1:] {
		bb = bb.Extend(p)
	}
	for _, h := range g.Holes {
		for _, p := range h {
			bb = bb.Extend(p)
		}
	}
	return bb
}

// Translate shifts every vertex and hole vertex by (dx, dy).
func (g *Geometry) Translate(dx, dy float64) {
	for i := range g.Vertices {
		g.Vertices[i][0] += dx
		g.Vertices[i][1] += dy
	}
	for _, h := range g.Holes {
		for i := range h {
			h[i][0] += dx
			h[i][1] += dy
		}
	}
}

// SetVertex overwrites vertex i.
func (g *Geometry) SetVertex(i int, p [2]float64) error {
	if i < 0 || i >= len(g.Vertices) {
		return ErrVertexIndex
	}
	g.Vertices[i] = p
	return nil
}

// InsertVertex inserts p so that it becomes vertex i. Points cannot grow.
func (g *Geometry) InsertVertex(i int, p [2]float64) error {
	if g.Kind == KindPoint {
		return fmt.Errorf("geom: cannot insert into a point")
	}
	if i < 0 || i > len(g.Vertices) {
		return ErrVertexIndex
	}
	g.Vertices = append(g.Vertices, [2]float64{})
	copy(g.Vertices[i+1:], g.Vertices[i:])
	g.Vertices[i] = p
	return nil
}

// RemoveVertex deletes vertex i unless that would breach the kind's floor.
func (g *Geometry) RemoveVertex(i int) error {
	if i < 0 || i >= len(g.Vertices) {
		return ErrVertexIndex
	}
	if len(g.Vertices)-1 < g.Kind.MinVertices() {
		return ErrTooFewVertices
	}
	g.Vertices = append(g.Vertices[:i], g.Vertices[i+1:]...)
	return nil
}

// Midpoint returns the centre of the segment a-b.
func Midpoint(a, b [2]float64) [2]float64 {
	return [2]float64{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

// DistanceTo returns the planar distance from p to the geometry. Points inside
// a polygon (and outside its holes) are at distance 0.
func (g *Geometry) DistanceTo(p [2]float64) float64 {
	if len(g.Vertices) == 0 {
		return math.Inf(1)
	}
	pt := orb.Point(p)
	switch g.Kind {
	case KindPoint:
		return planar.Distance(orb.Point(g.Vertices[0]), pt)
	case KindLine:
		if len(g.Vertices) == 1 {
			return planar.Distance(orb.Point(g.Vertices[0]), pt)
		}
		return planar.DistanceFrom(ToOrb(g), pt)
	case KindPolygon:
		poly := orb.Polygon{closeRing(g.Vertices)}
		for _, h := range g.Holes {
			if len(h) > 0 {
				poly = append(poly, closeRing(h))
			}
		}
		if planar.PolygonContains(poly, pt) {
			return 0
		}
		return planar.DistanceFrom(poly, pt)
	}
	return math.Inf(1)
}

// Extent returns the box covering all geometries; false when there are none.
func Extent(gs []*Geometry) (BBox, bool) {
	var bb BBox
	ok := false
	for _, g := range gs {
		if len(g.Vertices) == 0 {
			continue
		}
		if !ok {
			bb, ok = g.BBox(), true
			continue
		}
		bb = bb.Union(g.BBox())
	}
	return bb, ok
}
