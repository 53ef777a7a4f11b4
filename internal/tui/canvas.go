package tui

import (
	"sort"
	"sync"

	"geoedit/internal/edit"
	"geoedit/internal/geom"
)

// canvas is the drawing registry behind the map. The store attaches and
// detaches geometries, possibly from a background reload, and the edit
// session reports handle changes here. It is shared by every copy of Model.
type canvas struct {
	mu    sync.Mutex
	items map[int64]entry
	gen   uint64

	// last rendered frame
	frameKey frameKey
	frame    string
}

type entry struct {
	g     *geom.Geometry
	layer string
}

type frameKey struct {
	v   view
	gen uint64
	sel *geom.Geometry
}

func newCanvas() *canvas {
	return &canvas{items: make(map[int64]entry)}
}

func (c *canvas) Attach(g *geom.Geometry, layer string) {
	c.mu.Lock()
	c.items[g.ID] = entry{g: g, layer: layer}
	c.gen++
	c.mu.Unlock()
}

// Detach ignores g when another object has taken its id since.
func (c *canvas) Detach(g *geom.Geometry) {
	c.mu.Lock()
	if e, ok := c.items[g.ID]; ok && e.g == g {
		delete(c.items, g.ID)
	}
	c.gen++
	c.mu.Unlock()
}

// SetHandles only invalidates the frame: handle positions move without a new
// list, so the map reads them from the session overlay when drawing.
func (c *canvas) SetHandles([]edit.Handle) {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

// RequestRedraw invalidates the cached frame. Geometries are edited in place
// during a drag, so this is the only signal that their shape changed.
func (c *canvas) RequestRedraw() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

// geometries returns the attached geometries ordered by id.
func (c *canvas) geometries() []*geom.Geometry {
	c.mu.Lock()
	out := make([]*geom.Geometry, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, e.g)
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *canvas) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// cached returns the frame rendered for v and sel if nothing changed since.
func (c *canvas) cached(v view, sel *geom.Geometry) (string, frameKey, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := frameKey{v: v, gen: c.gen, sel: sel}
	if c.frame != "" && c.frameKey == k {
		return c.frame, k, true
	}
	return "", k, false
}

func (c *canvas) store(k frameKey, frame string) {
	c.mu.Lock()
	c.frameKey, c.frame = k, frame
	c.mu.Unlock()
}
