package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"geoedit/internal/datasource"
	"geoedit/internal/geom"
)

// stubAdapter serves a fixed load result and records writes.
type stubAdapter struct {
	mu       sync.Mutex
	loaded   []*geom.Geometry
	nextID   int64
	failOn   map[int64]error
	inserted []*geom.Geometry
	updated  []int64
	deleted  []int64
}

func (a *stubAdapter) LoadElements(ctx context.Context, vp datasource.Viewport) ([]*geom.Geometry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*geom.Geometry, len(a.loaded))
	for i, g := range a.loaded {
		out[i] = g.Clone()
	}
	return out, nil
}

func (a *stubAdapter) InsertElement(ctx context.Context, g *geom.Geometry) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failOn[g.ID]; err != nil {
		return 0, err
	}
	a.inserted = append(a.inserted, g.Clone())
	id := a.nextID
	a.nextID++
	return id, nil
}

func (a *stubAdapter) UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failOn[id]; err != nil {
		return err
	}
	a.updated = append(a.updated, id)
	return nil
}

func (a *stubAdapter) DeleteElement(ctx context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failOn[id]; err != nil {
		return err
	}
	a.deleted = append(a.deleted, id)
	return nil
}

type recRenderer struct {
	attached map[int64]int
	redraws  int
}

func (r *recRenderer) Attach(g *geom.Geometry, layer string) { r.attached[g.ID]++ }
func (r *recRenderer) Detach(g *geom.Geometry)               { r.attached[g.ID]-- }
func (r *recRenderer) RequestRedraw()                        { r.redraws++ }

func withID(id int64, g *geom.Geometry) *geom.Geometry {
	g.ID = id
	return g
}

func point(x, y float64) *geom.Geometry {
	return geom.New(geom.KindPoint, [][2]float64{{x, y}})
}

func triangle() *geom.Geometry {
	return geom.New(geom.KindPolygon, [][2]float64{{0, 0}, {1, 0}, {0, 1}})
}

func ids(gs []*geom.Geometry) []int64 {
	out := make([]int64, len(gs))
	for i, g := range gs {
		out[i] = g.ID
	}
	return out
}

func sameIDs(got []int64, want ...int64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

var anyViewport = datasource.Viewport{BBox: geom.BBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}}

func TestCreateThenCommit(t *testing.T) {
	a := &stubAdapter{nextID: 42}
	s := New(a, nil, "")
	g := triangle()
	if id := s.Add(g); id != -1 {
		t.Fatalf("synthetic id: got %d, want -1", id)
	}
	if !s.HasPendingChanges() {
		t.Fatalf("pending: got false after add")
	}
	if err := s.SaveChanges(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.HasPendingChanges() {
		t.Fatalf("pending: got true after save")
	}
	got, ok := s.Get(42)
	if !ok {
		t.Fatalf("id 42 missing after save: %v", ids(s.Visible()))
	}
	if _, ok := s.Get(-1); ok {
		t.Fatalf("synthetic id still visible after save")
	}
	if len(got.Vertices) != 3 || got.Vertices[1] != [2]float64{1, 0} || got.Vertices[2] != [2]float64{0, 1} {
		t.Fatalf("vertices: got %v", got.Vertices)
	}
	if got == g {
		t.Fatalf("committed element should be a new object")
	}
}

func TestSyntheticIDAllocation(t *testing.T) {
	s := New(&stubAdapter{}, nil, "")
	a, b, c := point(0, 0), point(1, 1), point(2, 2)
	s.Add(a)
	s.Add(b)
	s.Remove(a)
	if id := s.Add(c); id != -3 {
		t.Fatalf("third id: got %d, want -3", id)
	}
	s.Remove(b)
	s.Remove(c)
	if id := s.Add(point(3, 3)); id != -1 {
		t.Fatalf("id after all creates dropped: got %d, want -1", id)
	}
}

func TestMergePrecedence(t *testing.T) {
	a := &stubAdapter{loaded: []*geom.Geometry{withID(1, point(0, 0)), withID(2, point(1, 1))}}
	s := New(a, nil, "")
	c := withID(-5, point(2, 2))
	s.pending[2] = nil
	s.pending[-5] = c

	if err := s.Reload(context.Background(), anyViewport); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := ids(s.Visible()); !sameIDs(got, -5, 1) {
		t.Fatalf("visible: got %v, want [-5 1]", got)
	}
	if g, _ := s.Get(-5); g != c {
		t.Fatalf("pending create should be kept as is")
	}
}

func TestPendingUpdateSurvivesReload(t *testing.T) {
	a := &stubAdapter{loaded: []*geom.Geometry{withID(1, point(0, 0))}}
	s := New(a, nil, "")
	ctx := context.Background()
	if err := s.Reload(ctx, anyViewport); err != nil {
		t.Fatal(err)
	}
	g, _ := s.Get(1)
	s.Update(g)
	g.Vertices[0] = [2]float64{5, 5}

	if err := s.Reload(ctx, anyViewport); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(1)
	if got != g || got.Vertices[0] != [2]float64{5, 5} {
		t.Fatalf("reload overwrote pending edit: %v", got.Vertices)
	}
}

func TestDiscard(t *testing.T) {
	a := &stubAdapter{loaded: []*geom.Geometry{withID(1, point(0, 0)), withID(2, point(1, 1))}}
	r := &recRenderer{attached: map[int64]int{}}
	s := New(a, r, "")
	ctx := context.Background()
	if err := s.Reload(ctx, anyViewport); err != nil {
		t.Fatal(err)
	}
	s.Add(triangle())

	moved, _ := s.Get(1)
	s.Update(moved)
	moved.Translate(10, 10)
	gone, _ := s.Get(2)
	s.Remove(gone)

	s.DiscardChanges()
	if s.HasPendingChanges() {
		t.Fatalf("pending after discard")
	}
	if got := ids(s.Visible()); !sameIDs(got, 1, 2) {
		t.Fatalf("visible: got %v, want [1 2]", got)
	}
	if g, _ := s.Get(1); g.Vertices[0] != [2]float64{0, 0} {
		t.Fatalf("edit not reverted: %v", g.Vertices[0])
	}
	if r.attached[-1] != 0 || r.attached[1] != 1 || r.attached[2] != 1 {
		t.Fatalf("renderer registry: got %v", r.attached)
	}
}

func TestRemoveSyntheticNeverReachesAdapter(t *testing.T) {
	a := &stubAdapter{}
	s := New(a, nil, "")
	g := triangle()
	s.Add(g)
	s.Remove(g)
	if s.HasPendingChanges() {
		t.Fatalf("pending after removing an unsaved create")
	}
	if err := s.SaveChanges(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(a.inserted)+len(a.deleted) != 0 {
		t.Fatalf("adapter touched: %d inserts, %d deletes", len(a.inserted), len(a.deleted))
	}
}

func TestSaveFailureLeavesRestPending(t *testing.T) {
	boom := errors.New("backend down")
	a := &stubAdapter{
		loaded: []*geom.Geometry{withID(1, point(0, 0)), withID(2, point(1, 1)), withID(3, point(2, 2))},
		nextID: 100,
		failOn: map[int64]error{2: boom},
	}
	s := New(a, nil, "")
	ctx := context.Background()
	if err := s.Reload(ctx, anyViewport); err != nil {
		t.Fatal(err)
	}
	s.Add(triangle())
	for _, id := range []int64{1, 2} {
		g, _ := s.Get(id)
		s.Update(g)
	}
	g3, _ := s.Get(3)
	s.Remove(g3)

	err := s.SaveChanges(ctx)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("err: got %v, want *PersistenceError", err)
	}
	if pe.Op != "update" || pe.ID != 2 || !errors.Is(err, boom) {
		t.Fatalf("persistence error: got %+v", pe)
	}
	if got := s.PendingIDs(); !sameIDs(got, 2, 3) {
		t.Fatalf("pending: got %v, want [2 3]", got)
	}
	if _, ok := s.Get(100); !ok {
		t.Fatalf("create committed before the failure should stay committed")
	}
	if !s.HasPendingChanges() {
		t.Fatalf("pending: got false after failed save")
	}

	delete(a.failOn, 2)
	if err := s.SaveChanges(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if _, ok := s.Get(3); ok {
		t.Fatalf("deleted element still visible")
	}
	if !sameIDs(a.updated, 1, 2) || !sameIDs(a.deleted, 3) {
		t.Fatalf("adapter calls: updated %v deleted %v", a.updated, a.deleted)
	}
}

func TestReloadErrorKeepsVisible(t *testing.T) {
	s := New(failingLoad{&stubAdapter{}}, nil, "")
	s.Add(point(0, 0))
	if err := s.Reload(context.Background(), anyViewport); err == nil {
		t.Fatalf("want load error")
	}
	if s.Len() != 1 {
		t.Fatalf("visible changed after failed reload: %d", s.Len())
	}
}

type failingLoad struct{ *stubAdapter }

func (failingLoad) LoadElements(context.Context, datasource.Viewport) ([]*geom.Geometry, error) {
	return nil, errors.New("timeout")
}

func TestHitTest(t *testing.T) {
	area := withID(1, geom.New(geom.KindPolygon, [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 10}}))
	marker := withID(2, point(5, 5))
	road := withID(3, geom.New(geom.KindLine, [][2]float64{{20, 0}, {20, 10}}))
	a := &stubAdapter{loaded: []*geom.Geometry{area, marker, road}}
	s := New(a, nil, "")
	if err := s.Reload(context.Background(), anyViewport); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		p    [2]float64
		want int64
	}{
		{[2]float64{5, 5}, 2},
		{[2]float64{2, 2}, 1},
		{[2]float64{20.5, 5}, 3},
	}
	for _, c := range cases {
		g, ok := s.HitTest(c.p, 1)
		if !ok || g.ID != c.want {
			t.Fatalf("HitTest(%v): got %v, want id %d", c.p, g, c.want)
		}
	}
	if _, ok := s.HitTest([2]float64{50, 50}, 1); ok {
		t.Fatalf("HitTest far away: want miss")
	}
}

func TestConcurrentReloadAndEdits(t *testing.T) {
	a := &stubAdapter{loaded: []*geom.Geometry{withID(1, point(0, 0)), withID(2, point(1, 1))}}
	s := New(a, nil, "")
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Reload(ctx, anyViewport)
			}
		}()
	}
	created := make([]*geom.Geometry, 0, 50)
	for j := 0; j < 50; j++ {
		g := point(float64(j), 0)
		s.Add(g)
		created = append(created, g)
	}
	wg.Wait()
	if err := s.Reload(ctx, anyViewport); err != nil {
		t.Fatal(err)
	}
	if got := s.Len(); got != 52 {
		t.Fatalf("visible: got %d, want 52", got)
	}
	for _, g := range created {
		if v, ok := s.Get(g.ID); !ok || v != g {
			t.Fatalf("create %d lost by concurrent reload", g.ID)
		}
	}
}

// blockingAdapter parks every insert and update until release is closed.
type blockingAdapter struct {
	*stubAdapter
	entered chan struct{}
	release chan struct{}
}

func newBlockingAdapter(a *stubAdapter) *blockingAdapter {
	return &blockingAdapter{stubAdapter: a, entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingAdapter) wait() {
	b.entered <- struct{}{}
	<-b.release
}

func (b *blockingAdapter) InsertElement(ctx context.Context, g *geom.Geometry) (int64, error) {
	b.wait()
	return b.stubAdapter.InsertElement(ctx, g)
}

func (b *blockingAdapter) UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error {
	b.wait()
	return b.stubAdapter.UpdateElement(ctx, id, g)
}

// saveWhile runs SaveChanges, calls edit once the first adapter write is in
// flight, then lets the save finish.
func saveWhile(t *testing.T, s *Store, b *blockingAdapter, edit func()) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.SaveChanges(context.Background()) }()
	<-b.entered
	edit()
	close(b.release)
	if err := <-done; err != nil {
		t.Fatalf("save: %v", err)
	}
}

func TestRemoveDuringSaveStaysPending(t *testing.T) {
	a := &stubAdapter{loaded: []*geom.Geometry{withID(7, point(1, 1))}}
	b := newBlockingAdapter(a)
	s := New(b, nil, "")
	if err := s.Reload(context.Background(), anyViewport); err != nil {
		t.Fatal(err)
	}
	g, _ := s.Get(7)
	s.Update(g)
	g.Vertices[0] = [2]float64{2, 2}

	saveWhile(t, s, b, func() { s.Remove(g) })

	if got := s.PendingIDs(); !sameIDs(got, 7) {
		t.Fatalf("pending: got %v, want [7]", got)
	}
	if _, ok := s.Get(7); ok {
		t.Fatalf("removed element visible again")
	}
	if err := s.SaveChanges(context.Background()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !sameIDs(a.deleted, 7) {
		t.Fatalf("deleted: got %v, want [7]", a.deleted)
	}
	if s.HasPendingChanges() {
		t.Fatalf("pending: got true after second save")
	}
}

func TestUpdateDuringSaveStaysPending(t *testing.T) {
	a := &stubAdapter{loaded: []*geom.Geometry{withID(7, point(1, 1))}}
	b := newBlockingAdapter(a)
	s := New(b, nil, "")
	if err := s.Reload(context.Background(), anyViewport); err != nil {
		t.Fatal(err)
	}
	g, _ := s.Get(7)
	s.Update(g)
	g.Vertices[0] = [2]float64{2, 2}

	saveWhile(t, s, b, func() {
		s.Update(g)
		g.Vertices[0] = [2]float64{3, 3}
	})

	if got := s.PendingIDs(); !sameIDs(got, 7) {
		t.Fatalf("pending: got %v, want [7]", got)
	}
	// discard goes back to what the backend holds now
	s.DiscardChanges()
	got, _ := s.Get(7)
	if got.Vertices[0] != [2]float64{2, 2} {
		t.Fatalf("after discard: got %v, want [2 2]", got.Vertices[0])
	}
}

func TestEditOfCreateDuringSaveMovesToNewID(t *testing.T) {
	a := &stubAdapter{nextID: 42}
	b := newBlockingAdapter(a)
	s := New(b, nil, "")
	g := point(1, 1)
	s.Add(g)

	saveWhile(t, s, b, func() {
		s.Update(g)
		g.Vertices[0] = [2]float64{5, 5}
	})

	if got := s.PendingIDs(); !sameIDs(got, 42) {
		t.Fatalf("pending: got %v, want [42]", got)
	}
	if _, ok := s.Get(-1); ok {
		t.Fatalf("synthetic id still visible")
	}
	got, ok := s.Get(42)
	if !ok || got.Vertices[0] != [2]float64{5, 5} {
		t.Fatalf("id 42: got %v %v, want the edited vertex [5 5]", got, ok)
	}
	// release is already closed, so the second save runs straight through
	if err := s.SaveChanges(context.Background()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !sameIDs(a.updated, 42) {
		t.Fatalf("updated: got %v, want [42]", a.updated)
	}
}

func TestRemoveOfCreateDuringSaveDeletesNewID(t *testing.T) {
	a := &stubAdapter{nextID: 42}
	b := newBlockingAdapter(a)
	s := New(b, nil, "")
	g := point(1, 1)
	s.Add(g)

	saveWhile(t, s, b, func() { s.Remove(g) })

	if got := s.PendingIDs(); !sameIDs(got, 42) {
		t.Fatalf("pending: got %v, want [42]", got)
	}
	if s.Len() != 0 {
		t.Fatalf("visible: got %v, want none", ids(s.Visible()))
	}
	if err := s.SaveChanges(context.Background()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !sameIDs(a.deleted, 42) {
		t.Fatalf("deleted: got %v, want [42]", a.deleted)
	}
}
