package edit

import (
	"geoedit/internal/geom"
	"geoedit/internal/logger"
	"geoedit/internal/style"
)

// State of the session.
type State int

const (
	Idle State = iota
	Selected
	Dragging
)

func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

// Elements receives create, update and delete registrations. *store.Store
// implements it.
type Elements interface {
	Add(g *geom.Geometry) int64
	Update(g *geom.Geometry)
	Remove(g *geom.Geometry)
}

// Hooks are optional callbacks fired by the session. A nil hook is skipped.
type Hooks struct {
	OnElementCreated      func(g *geom.Geometry)
	OnBeforeElementChange func(g *geom.Geometry)
	OnElementChanged      func(g *geom.Geometry)
	OnElementDeleted      func(g *geom.Geometry)
	// OnElementSelected may veto the selection by returning false.
	OnElementSelected   func(g *geom.Geometry) bool
	OnElementDeselected func(g *geom.Geometry)
	OnDragStart         func(g *geom.Geometry)
	OnDrag              func(g *geom.Geometry)
	// OnDragEnd returns true to delete the dragged vertex (or, for a whole
	// element drag, the element) instead of keeping it.
	OnDragEnd func(g *geom.Geometry) bool
	// SnapElement adjusts the translation of a whole element drag.
	SnapElement func(g *geom.Geometry, delta [2]float64) [2]float64
	// SnapElementVertex adjusts the position of a dragged vertex.
	SnapElementVertex func(g *geom.Geometry, index int, p [2]float64) [2]float64
	UpdateUI          func()
}

type Config struct {
	// HandleThreshold is the hit radius for handles and element bodies, in
	// screen units.
	HandleThreshold float64
	// DefaultSize is the half extent, in screen units, of the line and
	// triangle made by CreateElement.
	DefaultSize float64
	Styles      style.Set
	Hooks       Hooks
}

// Session is the editing state machine. It is driven from a single goroutine.
type Session struct {
	elements Elements
	proj     Projection
	overlay  *Overlay
	cfg      Config

	state    State
	selected *geom.Geometry

	// drag state; dragHandle is -1 for a whole element drag
	dragHandle  int
	dragStarted bool
	startWorld  [2]float64
	startVerts  [][2]float64
	startHoles  [][][2]float64
}

func NewSession(el Elements, proj Projection, surface Surface, cfg Config) *Session {
	if cfg.HandleThreshold <= 0 {
		cfg.HandleThreshold = 1
	}
	if cfg.DefaultSize <= 0 {
		cfg.DefaultSize = 6
	}
	return &Session{
		elements:   el,
		proj:       proj,
		overlay:    NewOverlay(surface),
		cfg:        cfg,
		dragHandle: -1,
	}
}

func (s *Session) State() State             { return s.state }
func (s *Session) Selected() *geom.Geometry { return s.selected }
func (s *Session) Overlay() *Overlay        { return s.overlay }
func (s *Session) Dragging() bool           { return s.state == Dragging }

// SetProjection replaces the projection, e.g. after a pan or zoom.
func (s *Session) SetProjection(p Projection) { s.proj = p }

// Select makes g the selection, or clears it for nil. The previous selection
// is deselected first. Returns false when nothing ends up selected.
func (s *Session) Select(g *geom.Geometry) bool {
	s.resetDrag()
	if prev := s.selected; prev != nil {
		s.selected = nil
		s.state = Idle
		s.overlay.Clear()
		if h := s.cfg.Hooks.OnElementDeselected; h != nil {
			h(prev)
		}
	}
	if g == nil {
		s.updateUI()
		return false
	}
	s.selected = g
	s.state = Selected
	s.overlay.Sync(g)
	if h := s.cfg.Hooks.OnElementSelected; h != nil && !h(g) {
		s.selected = nil
		s.state = Idle
		s.overlay.Clear()
		s.updateUI()
		return false
	}
	s.updateUI()
	return true
}

// Rebind swaps the selection for the store's current object with the same
// id, after a reload may have replaced it. A selection that is no longer
// visible is cleared. Ignored while dragging.
func (s *Session) Rebind(get func(id int64) (*geom.Geometry, bool)) {
	if s.selected == nil || s.state == Dragging {
		return
	}
	g, ok := get(s.selected.ID)
	switch {
	case !ok:
		s.Select(nil)
	case g != s.selected:
		s.selected = g
		s.overlay.Sync(g)
	}
}

// PointerDown starts a drag when (x, y) is on a handle or on the selected
// element's body. It reports whether a drag began, so the caller can treat
// the press as a selection click otherwise.
func (s *Session) PointerDown(x, y float64) bool {
	if s.selected == nil {
		return false
	}
	s.resetDrag()
	s.state = Selected
	if i, ok := s.overlay.Nearest(s.proj, x, y, s.cfg.HandleThreshold); ok {
		s.beginDrag(i, x, y)
		return true
	}
	if s.onBody(x, y) {
		s.beginDrag(-1, x, y)
		return true
	}
	return false
}

func (s *Session) beginDrag(handle int, x, y float64) {
	g := s.selected
	s.state = Dragging
	s.dragHandle = handle
	s.dragStarted = false
	s.startWorld = s.proj.ToWorld(x, y)
	s.startVerts = append([][2]float64(nil), g.Vertices...)
	s.startHoles = nil
	for _, h := range g.Holes {
		s.startHoles = append(s.startHoles, append([][2]float64(nil), h...))
	}
}

// onBody hit tests the selected element in screen space.
func (s *Session) onBody(x, y float64) bool {
	g := s.selected
	scr := &geom.Geometry{Kind: g.Kind, Vertices: make([][2]float64, len(g.Vertices))}
	for i, v := range g.Vertices {
		sx, sy := s.proj.ToScreen(v)
		scr.Vertices[i] = [2]float64{sx, sy}
	}
	for _, h := range g.Holes {
		ring := make([][2]float64, len(h))
		for i, v := range h {
			sx, sy := s.proj.ToScreen(v)
			ring[i] = [2]float64{sx, sy}
		}
		scr.Holes = append(scr.Holes, ring)
	}
	return scr.DistanceTo([2]float64{x, y}) <= s.cfg.HandleThreshold
}

// PointerMove updates the element being dragged. The first move registers
// the element with the store as an update.
func (s *Session) PointerMove(x, y float64) {
	if s.state != Dragging {
		return
	}
	g := s.selected
	hk := s.cfg.Hooks
	if !s.dragStarted {
		if hk.OnBeforeElementChange != nil {
			hk.OnBeforeElementChange(g)
		}
		s.elements.Update(g)
		s.dragStarted = true
		if hk.OnDragStart != nil {
			hk.OnDragStart(g)
		}
	}

	w := s.proj.ToWorld(x, y)
	if s.dragHandle < 0 {
		delta := [2]float64{w[0] - s.startWorld[0], w[1] - s.startWorld[1]}
		if hk.SnapElement != nil {
			delta = hk.SnapElement(g, delta)
		}
		for i, v := range s.startVerts {
			g.Vertices[i] = [2]float64{v[0] + delta[0], v[1] + delta[1]}
		}
		for r, ring := range s.startHoles {
			for i, v := range ring {
				g.Holes[r][i] = [2]float64{v[0] + delta[0], v[1] + delta[1]}
			}
		}
	} else {
		if s.overlay.At(s.dragHandle).Role == RoleMidpoint {
			s.promote(s.dragHandle, w)
		}
		vi := s.dragHandle / 2
		p := w
		if hk.SnapElementVertex != nil {
			p = hk.SnapElementVertex(g, vi, p)
		}
		if err := g.SetVertex(vi, p); err != nil {
			logger.L().Warn("drag_vertex_failed", "id", g.ID, "vertex", vi, "err", err)
		}
	}

	s.overlay.Sync(g)
	if hk.OnDrag != nil {
		hk.OnDrag(g)
	}
	if hk.OnElementChanged != nil {
		hk.OnElementChanged(g)
	}
	s.updateUI()
}

// promote turns midpoint handle i into a real vertex at p. The midpoint sits
// between vertices k and k+1; the new vertex becomes k+1 and gets a midpoint
// on each side. Later moves drag the new vertex.
func (s *Session) promote(i int, p [2]float64) {
	g := s.selected
	k := i / 2
	if err := g.InsertVertex(k+1, p); err != nil {
		logger.L().Warn("promote_midpoint_failed", "id", g.ID, "handle", i, "err", err)
		return
	}
	s.overlay.Insert(i+1,
		Handle{Pos: p, Role: RoleVertex, Index: k + 1},
		Handle{Role: RoleMidpoint, Index: k + 1},
	)
	s.dragHandle = i + 1
}

// PointerUp ends the drag.
func (s *Session) PointerUp(x, y float64) { s.endDrag() }

// PointerCancel ends the drag like PointerUp.
func (s *Session) PointerCancel() { s.endDrag() }

func (s *Session) endDrag() {
	if s.state != Dragging {
		return
	}
	g := s.selected
	handle, started := s.dragHandle, s.dragStarted
	s.resetDrag()
	s.state = Selected
	if !started {
		return
	}
	if h := s.cfg.Hooks.OnDragEnd; h == nil || !h(g) {
		s.updateUI()
		return
	}
	if handle < 0 || g.Kind == geom.KindPoint {
		s.deleteElement(g)
		return
	}
	s.removeVertex(g, handle)
}

// removeVertex drops the vertex under handle i and collapses its two
// neighbouring midpoints into one. Below the kind's floor the whole element
// is deleted instead.
func (s *Session) removeVertex(g *geom.Geometry, i int) {
	vi := i / 2
	n := len(g.Vertices)
	if n-1 < g.Kind.MinVertices() {
		s.deleteElement(g)
		return
	}
	if err := g.RemoveVertex(vi); err != nil {
		logger.L().Warn("remove_vertex_failed", "id", g.ID, "vertex", vi, "err", err)
		return
	}
	switch {
	case g.Kind == geom.KindLine && vi == n-1:
		s.overlay.Remove(i-1, 2)
	default:
		s.overlay.Remove(i, 2)
	}
	s.overlay.Sync(g)
	if h := s.cfg.Hooks.OnElementChanged; h != nil {
		h(g)
	}
	s.updateUI()
}

func (s *Session) deleteElement(g *geom.Geometry) {
	s.Select(nil)
	s.elements.Remove(g)
	logger.L().Debug("element_deleted", "id", g.ID, "kind", g.Kind.String())
	if h := s.cfg.Hooks.OnElementDeleted; h != nil {
		h(g)
	}
	s.updateUI()
}

// DeleteSelected removes the selected element. Returns false when nothing is
// selected.
func (s *Session) DeleteSelected() bool {
	g := s.selected
	if g == nil {
		return false
	}
	s.deleteElement(g)
	return true
}

// CreateElement adds a new element of the given kind around the screen
// centre: a point on it, a horizontal line through it or a triangle around
// it. The element gets the kind's default style and is selected.
func (s *Session) CreateElement(kind geom.Kind, props map[string]any) *geom.Geometry {
	w, h := s.proj.Size()
	cx, cy, d := w/2, h/2, s.cfg.DefaultSize
	var scr [][2]float64
	switch kind {
	case geom.KindPoint:
		scr = [][2]float64{{cx, cy}}
	case geom.KindLine:
		scr = [][2]float64{{cx - d, cy}, {cx + d, cy}}
	case geom.KindPolygon:
		scr = [][2]float64{{cx, cy - d}, {cx - d, cy + d}, {cx + d, cy + d}}
	default:
		return nil
	}
	verts := make([][2]float64, len(scr))
	for i, p := range scr {
		verts[i] = s.proj.ToWorld(p[0], p[1])
	}
	g := geom.New(kind, verts)
	g.Style = s.cfg.Styles.DefaultName(kind)
	g.Properties = props
	return s.AddGeometry(g)
}

// AddGeometry registers an externally built geometry as a new element and
// selects it.
func (s *Session) AddGeometry(g *geom.Geometry) *geom.Geometry {
	s.elements.Add(g)
	logger.L().Debug("element_created", "id", g.ID, "kind", g.Kind.String())
	if h := s.cfg.Hooks.OnElementCreated; h != nil {
		h(g)
	}
	s.Select(g)
	return g
}

func (s *Session) resetDrag() {
	s.dragHandle = -1
	s.dragStarted = false
	s.startVerts = nil
	s.startHoles = nil
}

func (s *Session) updateUI() {
	if h := s.cfg.Hooks.UpdateUI; h != nil {
		h()
	}
}
