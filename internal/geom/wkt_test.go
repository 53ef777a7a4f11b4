package geom

import (
	"strings"
	"testing"
)

func TestParseWKTPolygonOpensRing(t *testing.T) {
	gs, err := ParseWKT("POLYGON((0 0,1 0,0 1,0 0))")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(gs) != 1 || gs[0].Kind != KindPolygon {
		t.Fatalf("got %d geometries", len(gs))
	}
	if len(gs[0].Vertices) != 3 {
		t.Fatalf("vertices: got %v, want 3 open-ring vertices", gs[0].Vertices)
	}
	out := FormatWKT(gs[0])
	if !strings.HasPrefix(out, "POLYGON((0 0,1 0,0 1,0 0))") {
		t.Fatalf("format: got %q", out)
	}
}

func TestParseWKTMulti(t *testing.T) {
	gs, err := ParseWKT("MULTILINESTRING((0 0,1 1),(2 2,3 3,4 4))")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(gs) != 2 || gs[1].Kind != KindLine || len(gs[1].Vertices) != 3 {
		t.Fatalf("got %+v", gs)
	}
}

func TestParseWKTErrors(t *testing.T) {
	for _, s := range []string{"", "   ", "LINESTRING(0 0)", "NOT WKT"} {
		if _, err := ParseWKT(s); err == nil {
			t.Fatalf("ParseWKT(%q): want error", s)
		}
	}
}
