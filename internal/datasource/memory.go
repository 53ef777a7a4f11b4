package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/peterstace/simplefeatures/rtree"

	"geoedit/internal/geom"
)

// Memory is an in-process backend indexed by an R-tree. Geometries are cloned
// on the way in and out so callers never share state with it.
type Memory struct {
	mu     sync.Mutex
	items  map[int64]*geom.Geometry
	boxes  map[int64]rtree.Box
	index  rtree.RTree
	nextID int64
}

// NewMemory seeds the backend. Seed geometries with an id >= 0 keep it;
// others get the next free id.
func NewMemory(seed ...*geom.Geometry) *Memory {
	m := &Memory{
		items:  make(map[int64]*geom.Geometry),
		boxes:  make(map[int64]rtree.Box),
		nextID: 1,
	}
	for _, g := range seed {
		if g.ID >= m.nextID {
			m.nextID = g.ID + 1
		}
	}
	var bulk []rtree.BulkItem
	for _, g := range seed {
		c := g.Clone()
		if c.ID < 0 || m.items[c.ID] != nil {
			c.ID = m.nextID
			m.nextID++
		}
		m.items[c.ID] = c
		box := toBox(c.BBox())
		m.boxes[c.ID] = box
		bulk = append(bulk, rtree.BulkItem{Box: box, RecordID: int(c.ID)})
	}
	if len(bulk) > 0 {
		m.index = *rtree.BulkLoad(bulk)
	}
	return m
}

func (m *Memory) LoadElements(ctx context.Context, vp Viewport) ([]*geom.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*geom.Geometry
	err := m.index.RangeSearch(toBox(vp.BBox), func(recordID int) error {
		if g := m.items[int64(recordID)]; g != nil {
			out = append(out, g.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertElement(ctx context.Context, g *geom.Geometry) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	c := g.Clone()
	c.ID = id
	m.put(c)
	return id, nil
}

func (m *Memory) UpdateElement(ctx context.Context, id int64, g *geom.Geometry) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[id] == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	m.drop(id)
	c := g.Clone()
	c.ID = id
	m.put(c)
	return nil
}

func (m *Memory) DeleteElement(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[id] == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	m.drop(id)
	return nil
}

// Extent reports the bounds of everything stored.
func (m *Memory) Extent(ctx context.Context) (geom.BBox, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.index.Extent()
	if !ok {
		return geom.BBox{}, false, nil
	}
	return geom.BBox{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}, true, nil
}

// All returns a clone of every stored geometry in id order.
func (m *Memory) All() []*geom.Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allLocked()
}

func (m *Memory) allLocked() []*geom.Geometry {
	out := make([]*geom.Geometry, 0, len(m.items))
	for _, g := range m.items {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len is the number of stored geometries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// put and drop require m.mu.
func (m *Memory) put(g *geom.Geometry) {
	box := toBox(g.BBox())
	m.items[g.ID] = g
	m.boxes[g.ID] = box
	m.index.Insert(box, int(g.ID))
}

func (m *Memory) drop(id int64) {
	if box, ok := m.boxes[id]; ok {
		m.index.Delete(box, int(id))
	}
	delete(m.items, id)
	delete(m.boxes, id)
}

func toBox(b geom.BBox) rtree.Box {
	return rtree.Box{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}
