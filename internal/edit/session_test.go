package edit

import (
	"context"
	"math"
	"testing"

	"geoedit/internal/datasource"
	"geoedit/internal/geom"
	"geoedit/internal/store"
	"geoedit/internal/style"
)

// identity maps world coordinates straight to screen coordinates.
type identity struct{}

func (identity) ToScreen(p [2]float64) (float64, float64) { return p[0], p[1] }
func (identity) ToWorld(x, y float64) [2]float64          { return [2]float64{x, y} }
func (identity) Size() (float64, float64)                 { return 100, 100 }

func newSession(t *testing.T, hooks Hooks, seed ...*geom.Geometry) (*Session, *store.Store) {
	t.Helper()
	st := store.New(datasource.NewMemory(seed...), nil, "")
	vp := datasource.Viewport{BBox: geom.BBox{MinX: -1000, MinY: -1000, MaxX: 1000, MaxY: 1000}}
	if err := st.Reload(context.Background(), vp); err != nil {
		t.Fatal(err)
	}
	s := NewSession(st, identity{}, nil, Config{HandleThreshold: 1, DefaultSize: 5, Styles: style.Default(), Hooks: hooks})
	return s, st
}

func committed(id int64, kind geom.Kind, verts ...[2]float64) *geom.Geometry {
	g := geom.New(kind, verts)
	g.ID = id
	return g
}

func TestMidpointPromotion(t *testing.T) {
	s, st := newSession(t, Hooks{}, committed(1, geom.KindLine, [2]float64{0, 0}, [2]float64{10, 0}))
	g, _ := st.Get(1)
	s.Select(g)
	if s.Overlay().Len() != 3 {
		t.Fatalf("handles: got %d, want 3", s.Overlay().Len())
	}
	if !s.PointerDown(5, 0) {
		t.Fatalf("pointer down on midpoint did not start a drag")
	}
	s.PointerMove(5, 3)
	want := [][2]float64{{0, 0}, {5, 3}, {10, 0}}
	if len(g.Vertices) != 3 {
		t.Fatalf("vertices: got %v, want %v", g.Vertices, want)
	}
	for i := range want {
		if g.Vertices[i] != want[i] {
			t.Fatalf("vertices: got %v, want %v", g.Vertices, want)
		}
	}
	if got := roles(s.Overlay().Handles()); got != "VMVMV" {
		t.Fatalf("handles: got %s, want VMVMV", got)
	}
	// further moves drag the promoted vertex
	s.PointerMove(6, 4)
	if g.Vertices[1] != [2]float64{6, 4} || len(g.Vertices) != 3 {
		t.Fatalf("second move: got %v", g.Vertices)
	}
	s.PointerUp(6, 4)
	if s.State() != Selected {
		t.Fatalf("state: got %v, want selected", s.State())
	}
	if !st.HasPendingChanges() {
		t.Fatalf("drag was not registered with the store")
	}
}

func TestFloorTriggeredDelete(t *testing.T) {
	hooks := Hooks{OnDragEnd: func(*geom.Geometry) bool { return true }}
	s, st := newSession(t, hooks, committed(1, geom.KindPolygon, [2]float64{0, 0}, [2]float64{10, 0}, [2]float64{0, 10}))
	g, _ := st.Get(1)
	s.Select(g)
	s.PointerDown(0, 0)
	s.PointerMove(0.5, 0.5)
	s.PointerUp(0.5, 0.5)
	if _, ok := st.Get(1); ok {
		t.Fatalf("polygon still visible after floor-triggered delete")
	}
	if s.State() != Idle || s.Selected() != nil {
		t.Fatalf("state: got %v, want idle", s.State())
	}
	if len(g.Vertices) != 3 {
		t.Fatalf("polygon was reduced to %d vertices", len(g.Vertices))
	}
}

func TestLineVertexDelete(t *testing.T) {
	hooks := Hooks{OnDragEnd: func(*geom.Geometry) bool { return true }}
	s, st := newSession(t, hooks, committed(1, geom.KindLine, [2]float64{0, 0}, [2]float64{5, 5}, [2]float64{10, 0}))
	g, _ := st.Get(1)
	s.Select(g)
	s.PointerDown(5, 5)
	s.PointerMove(5, 6)
	s.PointerUp(5, 6)
	if len(g.Vertices) != 2 || g.Vertices[1] != [2]float64{10, 0} {
		t.Fatalf("vertices: got %v", g.Vertices)
	}
	hs := s.Overlay().Handles()
	if roles(hs) != "VMV" || hs[1].Pos != [2]float64{5, 0} {
		t.Fatalf("handles: got %v", hs)
	}
	if s.State() != Selected {
		t.Fatalf("state: got %v, want selected", s.State())
	}
}

func TestLastLineVertexDelete(t *testing.T) {
	hooks := Hooks{OnDragEnd: func(*geom.Geometry) bool { return true }}
	s, st := newSession(t, hooks, committed(1, geom.KindLine, [2]float64{0, 0}, [2]float64{5, 0}, [2]float64{10, 0}))
	g, _ := st.Get(1)
	s.Select(g)
	s.PointerDown(10, 0)
	s.PointerMove(11, 0)
	s.PointerUp(11, 0)
	if len(g.Vertices) != 2 || g.Vertices[1] != [2]float64{5, 0} {
		t.Fatalf("vertices: got %v", g.Vertices)
	}
	if got := roles(s.Overlay().Handles()); got != "VMV" {
		t.Fatalf("handles: got %s", got)
	}
}

func TestWholeElementDragDoesNotCompound(t *testing.T) {
	s, st := newSession(t, Hooks{}, committed(1, geom.KindPolygon, [2]float64{0, 0}, [2]float64{10, 0}, [2]float64{10, 10}, [2]float64{0, 10}))
	g, _ := st.Get(1)
	s.Select(g)
	if !s.PointerDown(3, 3) {
		t.Fatalf("pointer down on body did not start a drag")
	}
	s.PointerMove(5, 5)
	s.PointerMove(6, 6)
	s.PointerUp(6, 6)
	if g.Vertices[0] != [2]float64{3, 3} || g.Vertices[2] != [2]float64{13, 13} {
		t.Fatalf("vertices: got %v, want a translation of (3,3)", g.Vertices)
	}
	if got := s.Overlay().At(0).Pos; got != [2]float64{3, 3} {
		t.Fatalf("handles not resynced: %v", got)
	}
}

func TestPointerDownMiss(t *testing.T) {
	s, st := newSession(t, Hooks{}, committed(1, geom.KindPoint, [2]float64{0, 0}))
	if s.PointerDown(0, 0) {
		t.Fatalf("pointer down without selection started a drag")
	}
	g, _ := st.Get(1)
	s.Select(g)
	if s.PointerDown(50, 50) {
		t.Fatalf("pointer down far away started a drag")
	}
	if s.State() != Selected {
		t.Fatalf("state: got %v, want selected", s.State())
	}
}

func TestClickWithoutMoveKeepsElement(t *testing.T) {
	deleted := false
	starts, ends := 0, 0
	hooks := Hooks{
		OnDragStart:      func(*geom.Geometry) { starts++ },
		OnDragEnd:        func(*geom.Geometry) bool { ends++; return true },
		OnElementDeleted: func(*geom.Geometry) { deleted = true },
	}
	s, st := newSession(t, hooks, committed(1, geom.KindPoint, [2]float64{0, 0}))
	g, _ := st.Get(1)
	s.Select(g)
	for _, release := range []func(){func() { s.PointerUp(0, 0) }, s.PointerCancel} {
		s.PointerDown(0, 0)
		release()
	}
	if deleted || st.HasPendingChanges() {
		t.Fatalf("click without move changed the element")
	}
	// the end hook pairs with the start hook; neither fires without motion
	if starts != 0 || ends != 0 {
		t.Fatalf("hooks: got %d starts and %d ends, want none", starts, ends)
	}
	if s.State() != Selected {
		t.Fatalf("state: got %v, want Selected", s.State())
	}
}

func TestSelectVeto(t *testing.T) {
	var deselected []int64
	hooks := Hooks{
		OnElementSelected:   func(g *geom.Geometry) bool { return g.ID != 2 },
		OnElementDeselected: func(g *geom.Geometry) { deselected = append(deselected, g.ID) },
	}
	s, st := newSession(t, hooks, committed(1, geom.KindPoint, [2]float64{0, 0}), committed(2, geom.KindPoint, [2]float64{5, 5}))
	a, _ := st.Get(1)
	b, _ := st.Get(2)
	if !s.Select(a) {
		t.Fatalf("select 1 vetoed")
	}
	if s.Select(b) {
		t.Fatalf("select 2 should be vetoed")
	}
	if s.State() != Idle || s.Overlay().Len() != 0 {
		t.Fatalf("after veto: state %v, %d handles", s.State(), s.Overlay().Len())
	}
	if len(deselected) != 1 || deselected[0] != 1 {
		t.Fatalf("deselect notifications: got %v", deselected)
	}
}

func TestCreateElement(t *testing.T) {
	var created *geom.Geometry
	s, st := newSession(t, Hooks{OnElementCreated: func(g *geom.Geometry) { created = g }})
	g := s.CreateElement(geom.KindPolygon, map[string]any{"name": "new"})
	if g == nil || created != g {
		t.Fatalf("created hook not fired")
	}
	if g.ID != -1 || len(g.Vertices) != 3 || g.Style != "polygon" {
		t.Fatalf("got %+v", g)
	}
	if g.Vertices[0] != [2]float64{50, 45} {
		t.Fatalf("apex: got %v, want [50 45]", g.Vertices[0])
	}
	if s.Selected() != g || s.Overlay().Len() != 6 {
		t.Fatalf("new element not selected")
	}
	if !st.HasPendingChanges() {
		t.Fatalf("create not pending")
	}
	p := s.CreateElement(geom.KindPoint, nil)
	if p.ID != -2 || p.Vertices[0] != [2]float64{50, 50} {
		t.Fatalf("point: got %+v", p)
	}
}

func TestSnapping(t *testing.T) {
	round := func(_ *geom.Geometry, _ int, p [2]float64) [2]float64 {
		return [2]float64{math.Round(p[0]), math.Round(p[1])}
	}
	s, st := newSession(t, Hooks{SnapElementVertex: round}, committed(1, geom.KindLine, [2]float64{0, 0}, [2]float64{10, 0}))
	g, _ := st.Get(1)
	s.Select(g)
	s.PointerDown(10, 0)
	s.PointerMove(12.4, 3.6)
	if g.Vertices[1] != [2]float64{12, 4} {
		t.Fatalf("snapped vertex: got %v", g.Vertices[1])
	}
}

func TestDeleteSelectedAndDiscard(t *testing.T) {
	s, st := newSession(t, Hooks{}, committed(1, geom.KindPoint, [2]float64{1, 1}))
	g, _ := st.Get(1)
	s.Select(g)
	if !s.DeleteSelected() {
		t.Fatalf("nothing deleted")
	}
	if st.Len() != 0 || s.Selected() != nil {
		t.Fatalf("element still visible or selected")
	}
	st.DiscardChanges()
	if _, ok := st.Get(1); !ok {
		t.Fatalf("discard did not restore the deleted element")
	}
	if s.DeleteSelected() {
		t.Fatalf("delete with empty selection reported true")
	}
}

func TestRebindAfterReload(t *testing.T) {
	s, st := newSession(t, Hooks{}, committed(1, geom.KindPoint, [2]float64{1, 1}))
	g, _ := st.Get(1)
	s.Select(g)
	vp := datasource.Viewport{BBox: geom.BBox{MinX: -1000, MinY: -1000, MaxX: 1000, MaxY: 1000}}
	if err := st.Reload(context.Background(), vp); err != nil {
		t.Fatal(err)
	}
	s.Rebind(st.Get)
	cur, _ := st.Get(1)
	if s.Selected() != cur {
		t.Fatalf("selection not rebound to the reloaded object")
	}
	if err := st.Reload(context.Background(), datasource.Viewport{BBox: geom.BBox{MinX: 50, MinY: 50, MaxX: 60, MaxY: 60}}); err != nil {
		t.Fatal(err)
	}
	s.Rebind(st.Get)
	if s.Selected() != nil {
		t.Fatalf("selection kept after element left the viewport")
	}
}
