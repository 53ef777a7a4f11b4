package geom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb/encoding/wkt"
)

// ParseWKT parses POINT, MULTIPOINT, LINESTRING, MULTILINESTRING, POLYGON,
// MULTIPOLYGON and GEOMETRYCOLLECTION text into editable geometries.
func ParseWKT(s string) ([]*Geometry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty wkt")
	}
	og, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("wkt: %w", err)
	}
	gs, err := FromOrb(og)
	if err != nil {
		return nil, err
	}
	if len(gs) == 0 {
		return nil, ErrNoGeometries
	}
	for _, g := range gs {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	return gs, nil
}

// FormatWKT renders g as WKT with a closed outer ring for polygons.
func FormatWKT(g *Geometry) string {
	return wkt.MarshalString(ToOrb(g))
}
