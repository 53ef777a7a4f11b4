// Package store reconciles what the data source returns with the edits the
// user has not saved yet.
//
// The visible set is what gets drawn. It is rebuilt by Reload from the latest
// load result plus the pending edits, and patched in place by Add, Update and
// Remove. Pending edits are keyed by id: a geometry under a negative id is a
// create, a geometry under a committed id is an update, and a nil entry under
// a committed id is a delete (tombstone).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/peterstace/simplefeatures/rtree"

	"geoedit/internal/datasource"
	"geoedit/internal/geom"
	"geoedit/internal/logger"
	"geoedit/internal/metrics"
)

// Renderer is told about every geometry entering or leaving the visible set.
// Calls are made without the store lock held.
type Renderer interface {
	Attach(g *geom.Geometry, layer string)
	Detach(g *geom.Geometry)
	RequestRedraw()
}

type nopRenderer struct{}

func (nopRenderer) Attach(*geom.Geometry, string) {}
func (nopRenderer) Detach(*geom.Geometry)         {}
func (nopRenderer) RequestRedraw()                {}

// DefaultLayer is the layer geometries are attached to when none is given.
const DefaultLayer = "elements"

type Store struct {
	adapter  datasource.Adapter
	renderer Renderer
	layer    string

	mu      sync.Mutex
	visible map[int64]*geom.Geometry
	pending map[int64]*geom.Geometry
	// base holds the pre-edit version of committed ids with a pending entry.
	base map[int64]*geom.Geometry
	// stamp records the sequence number of the latest write to each pending
	// id, so a save only settles entries nobody touched while it ran.
	stamp map[int64]uint64
	seq   uint64
}

// New creates an empty store. r may be nil.
func New(a datasource.Adapter, r Renderer, layer string) *Store {
	if r == nil {
		r = nopRenderer{}
	}
	if layer == "" {
		layer = DefaultLayer
	}
	return &Store{
		adapter:  a,
		renderer: r,
		layer:    layer,
		visible:  make(map[int64]*geom.Geometry),
		pending:  make(map[int64]*geom.Geometry),
		base:     make(map[int64]*geom.Geometry),
		stamp:    make(map[int64]uint64),
	}
}

// Adapter is the data source behind the store.
func (s *Store) Adapter() datasource.Adapter { return s.adapter }

// changes collects renderer calls made while the lock is held.
type changes struct {
	detach []*geom.Geometry
	attach []*geom.Geometry
}

func (c *changes) swap(old, cur *geom.Geometry) {
	if old == cur {
		return
	}
	if old != nil {
		c.detach = append(c.detach, old)
	}
	if cur != nil {
		c.attach = append(c.attach, cur)
	}
}

func (s *Store) notify(c changes) {
	for _, g := range c.detach {
		s.renderer.Detach(g)
	}
	for _, g := range c.attach {
		s.renderer.Attach(g, s.layer)
	}
	s.renderer.RequestRedraw()
}

// gauge requires s.mu.
func (s *Store) gauge() {
	metrics.StoreVisibleElements.Set(float64(len(s.visible)))
	metrics.StorePendingEdits.Set(float64(len(s.pending)))
}

// Reload asks the adapter for vp and replaces the visible set with the merge
// of the result and the pending edits. Pending entries win over loaded rows
// with the same id; tombstoned ids are left out; creates are always present.
// On error the visible set is left untouched.
//
// Overlapping reloads are not ordered: whichever finishes last wins.
func (s *Store) Reload(ctx context.Context, vp datasource.Viewport) error {
	loaded, err := s.adapter.LoadElements(ctx, vp)
	if err != nil {
		logger.L().Warn("reload_failed", "err", err)
		return err
	}

	s.mu.Lock()
	next := make(map[int64]*geom.Geometry, len(loaded)+len(s.pending))
	for _, g := range loaded {
		if p, ok := s.pending[g.ID]; ok {
			if p != nil {
				next[g.ID] = p
			}
			continue
		}
		next[g.ID] = g
	}
	for id, p := range s.pending {
		if id < 0 && p != nil {
			next[id] = p
		}
	}
	var c changes
	for id, old := range s.visible {
		if next[id] != old {
			c.swap(old, nil)
		}
	}
	for id, g := range next {
		if s.visible[id] != g {
			c.swap(nil, g)
		}
	}
	s.visible = next
	s.gauge()
	n := len(next)
	s.mu.Unlock()

	metrics.StoreMergesTotal.Inc()
	logger.L().Debug("reload_merged", "loaded", len(loaded), "visible", n)
	s.notify(c)
	return nil
}

// Add registers g as a new element under a fresh synthetic id, which is also
// written to g.ID and returned.
func (s *Store) Add(g *geom.Geometry) int64 {
	s.mu.Lock()
	id := int64(0)
	for pid := range s.pending {
		if pid < id {
			id = pid
		}
	}
	id--
	g.ID = id
	s.pending[id] = g
	s.mark(id)
	var c changes
	c.swap(s.visible[id], g)
	s.visible[id] = g
	s.gauge()
	s.mu.Unlock()
	s.notify(c)
	return id
}

// Update records g as the pending version of its id. Call it before mutating
// a committed geometry in place so that the pre-edit state can be restored
// by DiscardChanges.
func (s *Store) Update(g *geom.Geometry) {
	s.mu.Lock()
	if g.ID >= 0 {
		s.snapshot(g)
	}
	s.pending[g.ID] = g
	s.mark(g.ID)
	var c changes
	c.swap(s.visible[g.ID], g)
	s.visible[g.ID] = g
	s.gauge()
	s.mu.Unlock()
	s.notify(c)
}

// Remove marks g for deletion. A synthetic geometry is simply forgotten.
func (s *Store) Remove(g *geom.Geometry) {
	s.mu.Lock()
	if g.ID < 0 {
		delete(s.pending, g.ID)
		delete(s.stamp, g.ID)
	} else {
		s.snapshot(g)
		s.pending[g.ID] = nil
		s.mark(g.ID)
	}
	var c changes
	c.swap(s.visible[g.ID], nil)
	delete(s.visible, g.ID)
	s.gauge()
	s.mu.Unlock()
	s.notify(c)
}

// snapshot requires s.mu.
func (s *Store) snapshot(g *geom.Geometry) {
	if _, ok := s.base[g.ID]; ok {
		return
	}
	if v := s.visible[g.ID]; v != nil {
		s.base[g.ID] = v.Clone()
		return
	}
	s.base[g.ID] = g.Clone()
}

// mark requires s.mu.
func (s *Store) mark(id int64) {
	s.seq++
	s.stamp[id] = s.seq
}

// settle drops the pending entry of id if its stamp is still st. It requires
// s.mu and reports whether the entry was dropped.
func (s *Store) settle(id int64, st uint64) bool {
	if _, ok := s.pending[id]; !ok || s.stamp[id] != st {
		return false
	}
	delete(s.pending, id)
	delete(s.base, id)
	delete(s.stamp, id)
	return true
}

// HasPendingChanges reports whether any create, update or delete is unsaved.
func (s *Store) HasPendingChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// SaveChanges pushes every pending edit to the adapter in ascending id order.
// Each entry is dropped from the pending set as soon as its call succeeds,
// unless it was written again while the call was in flight; the newer edit
// then stays pending for the next save. The first failure stops the run and
// is returned as a *PersistenceError.
//
// SaveChanges must not run concurrently with itself or DiscardChanges.
func (s *Store) SaveChanges(ctx context.Context) error {
	txn := uuid.NewString()
	s.mu.Lock()
	ids := make([]int64, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	logger.L().Info("save_start", "txn", txn, "pending", len(ids))

	committed := 0
	for _, id := range ids {
		s.mu.Lock()
		g, ok := s.pending[id]
		if g != nil {
			g = g.Clone()
		}
		st := s.stamp[id]
		s.mu.Unlock()
		if !ok {
			continue
		}
		var err error
		switch {
		case g == nil:
			err = s.commitDelete(ctx, id, st)
		case id < 0:
			err = s.commitCreate(ctx, id, st, g)
		default:
			err = s.commitUpdate(ctx, id, st, g)
		}
		if err != nil {
			metrics.StoreSavesTotal.WithLabelValues("error").Inc()
			logger.L().Warn("save_failed", "txn", txn, "id", id, "committed", committed, "err", err)
			return err
		}
		committed++
	}
	metrics.StoreSavesTotal.WithLabelValues("ok").Inc()
	logger.L().Info("save_done", "txn", txn, "committed", committed)
	return nil
}

// commitCreate inserts g and moves the element from its synthetic id to the
// id the adapter assigned. An element edited during the insert stays pending
// as an update of the new id; one removed during the insert becomes a
// tombstone for it.
func (s *Store) commitCreate(ctx context.Context, id int64, st uint64, g *geom.Geometry) error {
	newID, err := s.adapter.InsertElement(ctx, g)
	if err != nil {
		return &PersistenceError{Op: "insert", ID: id, Err: err}
	}
	g.ID = newID
	s.mu.Lock()
	var c changes
	cur, ok := s.pending[id]
	if s.settle(id, st) {
		if old, ok := s.visible[id]; ok {
			c.swap(old, nil)
			delete(s.visible, id)
			c.swap(s.visible[newID], g)
			s.visible[newID] = g
		}
	} else {
		delete(s.pending, id)
		delete(s.stamp, id)
		s.base[newID] = g
		if ok {
			nu := cur.Clone()
			nu.ID = newID
			s.pending[newID] = nu
			c.swap(s.visible[id], nil)
			delete(s.visible, id)
			c.swap(s.visible[newID], nu)
			s.visible[newID] = nu
		} else {
			s.pending[newID] = nil
		}
		s.mark(newID)
	}
	s.gauge()
	s.mu.Unlock()
	s.notify(c)
	return nil
}

func (s *Store) commitUpdate(ctx context.Context, id int64, st uint64, g *geom.Geometry) error {
	if err := s.adapter.UpdateElement(ctx, id, g); err != nil {
		return &PersistenceError{Op: "update", ID: id, Err: err}
	}
	s.mu.Lock()
	if !s.settle(id, st) {
		// the backend now holds g; a discard goes back to it
		if _, ok := s.pending[id]; ok {
			s.base[id] = g
		}
	}
	s.gauge()
	s.mu.Unlock()
	return nil
}

func (s *Store) commitDelete(ctx context.Context, id int64, st uint64) error {
	if err := s.adapter.DeleteElement(ctx, id); err != nil {
		return &PersistenceError{Op: "delete", ID: id, Err: err}
	}
	s.mu.Lock()
	var c changes
	if s.settle(id, st) {
		c.swap(s.visible[id], nil)
		delete(s.visible, id)
	}
	s.gauge()
	s.mu.Unlock()
	s.notify(c)
	return nil
}

// DiscardChanges drops every pending edit. Created elements leave the visible
// set; edited and deleted committed elements go back to their pre-edit
// version.
func (s *Store) DiscardChanges() {
	s.mu.Lock()
	var c changes
	for id := range s.pending {
		old := s.visible[id]
		if id < 0 {
			c.swap(old, nil)
			delete(s.visible, id)
			continue
		}
		if b := s.base[id]; b != nil {
			c.swap(old, b)
			s.visible[id] = b
		}
	}
	n := len(s.pending)
	s.pending = make(map[int64]*geom.Geometry)
	s.base = make(map[int64]*geom.Geometry)
	s.stamp = make(map[int64]uint64)
	s.gauge()
	s.mu.Unlock()
	logger.L().Info("discard_done", "dropped", n)
	s.notify(c)
}

// Visible returns the visible set ordered by id. The geometries are shared,
// not copied.
func (s *Store) Visible() []*geom.Geometry {
	s.mu.Lock()
	out := make([]*geom.Geometry, 0, len(s.visible))
	for _, g := range s.visible {
		out = append(out, g)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Get(id int64) (*geom.Geometry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.visible[id]
	return g, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visible)
}

func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// PendingIDs lists the ids with a pending entry, ascending.
func (s *Store) PendingIDs() []int64 {
	s.mu.Lock()
	ids := make([]int64, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HitTest returns the visible geometry closest to p within radius (world
// units). On ties points beat lines and lines beat polygons, so a marker on
// top of an area stays clickable.
func (s *Store) HitTest(p [2]float64, radius float64) (*geom.Geometry, bool) {
	s.mu.Lock()
	cands := make([]*geom.Geometry, 0, len(s.visible))
	for _, g := range s.visible {
		cands = append(cands, g)
	}
	s.mu.Unlock()
	if len(cands) == 0 {
		return nil, false
	}

	items := make([]rtree.BulkItem, 0, len(cands))
	for i, g := range cands {
		bb := g.BBox()
		items = append(items, rtree.BulkItem{
			Box:      rtree.Box{MinX: bb.MinX, MinY: bb.MinY, MaxX: bb.MaxX, MaxY: bb.MaxY},
			RecordID: i,
		})
	}
	tree := rtree.BulkLoad(items)
	q := geom.BBox{MinX: p[0], MinY: p[1], MaxX: p[0], MaxY: p[1]}.Buffer(radius)

	var (
		best  *geom.Geometry
		bestD float64
	)
	err := tree.RangeSearch(rtree.Box{MinX: q.MinX, MinY: q.MinY, MaxX: q.MaxX, MaxY: q.MaxY}, func(i int) error {
		g := cands[i]
		d := g.DistanceTo(p)
		if d > radius {
			return nil
		}
		if best == nil || d < bestD || (d == bestD && g.Kind < best.Kind) || (d == bestD && g.Kind == best.Kind && g.ID < best.ID) {
			best, bestD = g, d
		}
		return nil
	})
	if err != nil {
		logger.L().Warn("hit_test_failed", "err", err)
		return nil, false
	}
	return best, best != nil
}
