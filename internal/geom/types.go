package geom

type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Contains reports whether p lies inside the box (edges included).
func (b BBox) Contains(p [2]float64) bool {
	return p[0] >= b.MinX && p[0] <= b.MaxX && p[1] >= b.MinY && p[1] <= b.MaxY
}

// Intersects reports whether the two boxes overlap (touching counts).
func (b BBox) Intersects(o BBox) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

// Extend grows the box to cover p.
func (b BBox) Extend(p [2]float64) BBox {
	if p[0] < b.MinX {
		b.MinX = p[0]
	}
	if p[1] < b.MinY {
		b.MinY = p[1]
	}
	if p[0] > b.MaxX {
		b.MaxX = p[0]
	}
	if p[1] > b.MaxY {
		b.MaxY = p[1]
	}
	return b
}

// Union returns the smallest box covering both.
func (b BBox) Union(o BBox) BBox {
	return b.Extend([2]float64{o.MinX, o.MinY}).Extend([2]float64{o.MaxX, o.MaxY})
}

// Buffer expands the box by d on every side.
func (b BBox) Buffer(d float64) BBox {
	return BBox{MinX: b.MinX - d, MinY: b.MinY - d, MaxX: b.MaxX + d, MaxY: b.MaxY + d}
}

// Valid reports whether the box has a non-zero area.
func (b BBox) Valid() bool {
	return b.MaxX > b.MinX && b.MaxY > b.MinY
}

// Kind tags the geometry variant.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "point":
		return KindPoint, nil
	case "line":
		return KindLine, nil
	case "polygon":
		return KindPolygon, nil
	}
	return 0, ErrUnknownKind
}

// MinVertices is the structural floor for the kind.
func (k Kind) MinVertices() int {
	switch k {
	case KindPoint:
		return 1
	case KindLine:
		return 2
	case KindPolygon:
		return 3
	}
	return 1
}

// Geometry is an editable point, line or polygon.
//
// Committed geometries carry ID >= 0. Geometries created locally and not yet
// persisted carry a negative synthetic ID. Polygon rings are stored open: the
// closing edge from the last vertex back to the first is implicit.
type Geometry struct {
	ID       int64          `json:"id"`
	Kind     Kind           `json:"kind"`
	Vertices [][2]float64   `json:"vertices"`
	Holes    [][][2]float64 `json:"holes,omitempty"`
	Style    string         `json:"style,omitempty"`

	// Properties is the opaque user payload carried alongside the shape.
	Properties map[string]any `json:"properties,omitempty"`
}

// IsSynthetic reports whether the geometry has not been persisted yet.
func (g *Geometry) IsSynthetic() bool { return g.ID < 0 }
