package geom

import (
	"fmt"

	"github.com/paulmach/orb"
)

// FromOrb converts an orb geometry into editable geometries. Multi geometries
// and collections expand into one Geometry per part. IDs are left at zero.
func FromOrb(og orb.Geometry) ([]*Geometry, error) {
	var out []*Geometry
	var walk func(orb.Geometry) error
	walk = func(og orb.Geometry) error {
		switch v := og.(type) {
		case orb.Point:
			out = append(out, New(KindPoint, [][2]float64{v}))
		case orb.MultiPoint:
			for _, p := range v {
				out = append(out, New(KindPoint, [][2]float64{p}))
			}
		case orb.LineString:
			out = append(out, &Geometry{Kind: KindLine, Vertices: points(v)})
		case orb.MultiLineString:
			for _, ls := range v {
				out = append(out, &Geometry{Kind: KindLine, Vertices: points(ls)})
			}
		case orb.Ring:
			out = append(out, &Geometry{Kind: KindPolygon, Vertices: openRing(v)})
		case orb.Polygon:
			out = append(out, fromPolygon(v))
		case orb.MultiPolygon:
			for _, p := range v {
				out = append(out, fromPolygon(p))
			}
		case orb.Collection:
			for _, c := range v {
				if err := walk(c); err != nil {
					return err
				}
			}
		case nil:
			return nil
		default:
			return fmt.Errorf("%w: %s", ErrUnsupportedType, og.GeoJSONType())
		}
		return nil
	}
	if err := walk(og); err != nil {
		return nil, err
	}
	return out, nil
}

// ToOrb converts a geometry into its orb equivalent. Polygon rings are closed.
func ToOrb(g *Geometry) orb.Geometry {
	switch g.Kind {
	case KindPoint:
		if len(g.Vertices) == 0 {
			return orb.Point{}
		}
		return orb.Point(g.Vertices[0])
	case KindLine:
		ls := make(orb.LineString, len(g.Vertices))
		for i, v := range g.Vertices {
			ls[i] = orb.Point(v)
		}
		return ls
	case KindPolygon:
		poly := orb.Polygon{closeRing(g.Vertices)}
		for _, h := range g.Holes {
			poly = append(poly, closeRing(h))
		}
		return poly
	}
	return nil
}

func fromPolygon(p orb.Polygon) *Geometry {
	g := &Geometry{Kind: KindPolygon}
	for i, r := range p {
		if i == 0 {
			g.Vertices = openRing(r)
			continue
		}
		g.Holes = append(g.Holes, openRing(r))
	}
	return g
}

func points(ls []orb.Point) [][2]float64 {
	out := make([][2]float64, len(ls))
	for i, p := range ls {
		out[i] = p
	}
	return out
}

// openRing drops the duplicated closing vertex, if present.
func openRing(r orb.Ring) [][2]float64 {
	pts := points(r)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func closeRing(vs [][2]float64) orb.Ring {
	r := make(orb.Ring, 0, len(vs)+1)
	for _, v := range vs {
		r = append(r, orb.Point(v))
	}
	if len(vs) > 0 {
		r = append(r, orb.Point(vs[0]))
	}
	return r
}

func toRing(pts [][2]float64) orb.Ring {
	r := make(orb.Ring, len(pts))
	for i, p := range pts {
		r[i] = p
	}
	return r
}
