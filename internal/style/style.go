// Package style holds the immutable drawing configuration shared by the edit
// session and the terminal front end. Build it once with Default and pass it
// down; nothing in here is mutated after construction.
package style

import (
	"github.com/charmbracelet/lipgloss"

	"geoedit/internal/geom"
)

// Style is how one class of geometry is drawn.
type Style struct {
	Name  string
	Color lipgloss.Color
	// Glyph is used for points and handles; lines and areas are drawn in braille.
	Glyph rune
}

// Render paints s in the style's colour.
func (st Style) Render(s string) string {
	return lipgloss.NewStyle().Foreground(st.Color).Render(s)
}

type Set struct {
	Point    Style
	Line     Style
	Polygon  Style
	Selected Style
	Vertex   Style
	Midpoint Style

	named map[string]Style
}

// Default is the stock palette.
func Default() Set {
	return New(
		Style{Name: "park", Color: lipgloss.Color("#22C55E")},
		Style{Name: "water", Color: lipgloss.Color("#38BDF8")},
		Style{Name: "building", Color: lipgloss.Color("#F59E0B")},
		Style{Name: "road", Color: lipgloss.Color("#E6E6E6")},
	)
}

// New builds the stock palette plus the given named styles, which geometries
// reference through Geometry.Style.
func New(named ...Style) Set {
	s := Set{
		Point:    Style{Name: "point", Color: lipgloss.Color("#F472B6"), Glyph: '◆'},
		Line:     Style{Name: "line", Color: lipgloss.Color("#A3E635")},
		Polygon:  Style{Name: "polygon", Color: lipgloss.Color("#7C3AED")},
		Selected: Style{Name: "selected", Color: lipgloss.Color("#FFA500")},
		Vertex:   Style{Name: "vertex", Color: lipgloss.Color("#FFA500"), Glyph: '●'},
		Midpoint: Style{Name: "midpoint", Color: lipgloss.Color("#FDE68A"), Glyph: '○'},
		named:    make(map[string]Style, len(named)),
	}
	for _, st := range named {
		s.named[st.Name] = st
	}
	return s
}

// ForKind is the default style of a kind.
func (s Set) ForKind(k geom.Kind) Style {
	switch k {
	case geom.KindPoint:
		return s.Point
	case geom.KindLine:
		return s.Line
	case geom.KindPolygon:
		return s.Polygon
	}
	return s.Line
}

// Lookup resolves a style reference. Unknown names report false.
func (s Set) Lookup(name string) (Style, bool) {
	st, ok := s.named[name]
	return st, ok
}

// For resolves the style of g: its named style when known, the kind default
// otherwise. A named style without a glyph borrows the kind's.
func (s Set) For(g *geom.Geometry) Style {
	base := s.ForKind(g.Kind)
	st, ok := s.Lookup(g.Style)
	if !ok {
		return base
	}
	if st.Glyph == 0 {
		st.Glyph = base.Glyph
	}
	return st
}

// DefaultName is the style reference given to newly created geometries.
func (s Set) DefaultName(k geom.Kind) string { return s.ForKind(k).Name }
