package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"geoedit/internal/datasource"
	"geoedit/internal/geom"
	"geoedit/internal/logger"
	"geoedit/internal/store"
)

const (
	zoomStep = 1.2
	zoomMin  = 0.05
	zoomMax  = 4096
)

type extentMsg struct {
	st   *store.Store
	bbox geom.BBox
	ok   bool
	err  error
}

type reloadedMsg struct {
	st  *store.Store
	err error
}

type savedMsg struct {
	st  *store.Store
	err error
}

func (m Model) extentCmd() tea.Cmd {
	st, timeout := m.store, m.timeout
	return func() tea.Msg {
		ex, ok := st.Adapter().(datasource.Extenter)
		if !ok {
			return extentMsg{st: st}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		bb, found, err := ex.Extent(ctx)
		return extentMsg{st: st, bbox: bb, ok: found, err: err}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	if !m.view.valid() {
		return nil
	}
	st, vp, timeout := m.store, m.view.viewport(), m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return reloadedMsg{st: st, err: st.Reload(ctx, vp)}
	}
}

func (m Model) saveCmd() tea.Cmd {
	st, timeout := m.store, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return savedMsg{st: st, err: st.SaveChanges(ctx)}
	}
}

// fitExtent frames bb, padding degenerate boxes such as a single point.
func fitExtent(bb geom.BBox) geom.BBox {
	if !bb.Valid() {
		bb = bb.Buffer(0.01)
	}
	dx, dy := bb.MaxX-bb.MinX, bb.MaxY-bb.MinY
	return geom.BBox{MinX: bb.MinX - dx*0.05, MinY: bb.MinY - dy*0.05, MaxX: bb.MaxX + dx*0.05, MaxY: bb.MaxY + dy*0.05}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, m.reloadCmd()
	case extentMsg:
		if msg.st != m.store {
			return m, nil
		}
		bb := worldBBox
		switch {
		case msg.err != nil:
			m.status = "extent error: " + msg.err.Error()
		case msg.ok:
			bb = fitExtent(msg.bbox)
		}
		v := m.view
		v.bbox, v.zoom, v.offsetX, v.offsetY = bb, 1.0, 0, 0
		m.setView(v)
		return m, m.reloadCmd()
	case reloadedMsg:
		if msg.st != m.store {
			return m, nil
		}
		if msg.err != nil {
			m.status = "reload error: " + msg.err.Error()
			return m, nil
		}
		m.sess.Rebind(m.store.Get)
		if m.showAttrs {
			m.refreshAttrsFromCurrent()
		}
		return m, nil
	case savedMsg:
		if msg.st != m.store {
			return m, nil
		}
		m.saving = false
		if msg.err != nil {
			m.status = "save error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("saved  (%d elements visible)", m.store.Len())
		}
		return m, m.reloadCmd()
	case tea.KeyMsg:
		// If list is visible and filtering, send keys to list and ignore global commands
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			return m.updatePaste(msg)
		}
		return m.updateKeys(msg)
	case tea.MouseMsg:
		return m.updateMouse(msg)
	}
	// Pass messages to list when visible
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updatePaste(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pasteMode = false
		m.ta.Blur()
		return m, nil
	case "enter":
		w := strings.TrimSpace(m.ta.Value())
		if w == "" {
			m.status = "paste: empty"
			return m, nil
		}
		gs, err := geom.ParseWKT(w)
		if err != nil {
			m.status = "wkt error: " + err.Error()
			return m, nil
		}
		for _, g := range gs {
			g.Style = m.styles.DefaultName(g.Kind)
			m.sess.AddGeometry(g)
		}
		m.ed.take()
		m.status = fmt.Sprintf("added %d element(s) from WKT  (unsaved)", len(gs))
		m.pasteMode = false
		m.ta.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	var cmd tea.Cmd
	// the sidebar list owns up/down while it is open
	if m.showSidebar && (key.Matches(msg, k.Up) || key.Matches(msg, k.Down)) {
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	switch {
	case key.Matches(msg, k.Quit):
		if m.store.HasPendingChanges() {
			logger.L().Warn("quit_with_pending", "pending", m.store.PendingCount())
		}
		return m, tea.Quit
	case key.Matches(msg, k.Up), key.Matches(msg, k.Down), key.Matches(msg, k.Left), key.Matches(msg, k.Right):
		v := m.view
		switch {
		case key.Matches(msg, k.Up):
			v.offsetY--
		case key.Matches(msg, k.Down):
			v.offsetY++
		case key.Matches(msg, k.Left):
			v.offsetX -= 2
		default:
			v.offsetX += 2
		}
		m.setView(v)
		cmd = m.reloadCmd()
	case key.Matches(msg, k.ZoomIn):
		cmd = m.zoomBy(zoomStep)
	case key.Matches(msg, k.ZoomOut):
		cmd = m.zoomBy(1 / zoomStep)
	case key.Matches(msg, k.Fit):
		cmd = m.extentCmd()
	case key.Matches(msg, k.Reload):
		cmd = m.reloadCmd()
	case key.Matches(msg, k.NewPoint):
		m.create(geom.KindPoint)
	case key.Matches(msg, k.NewLine):
		m.create(geom.KindLine)
	case key.Matches(msg, k.NewPolygon):
		m.create(geom.KindPolygon)
	case key.Matches(msg, k.Delete):
		if !m.sess.DeleteSelected() {
			m.status = "nothing selected"
		}
	case key.Matches(msg, k.Deselect):
		m.sess.Select(nil)
		m.status = "view mode"
	case key.Matches(msg, k.Save):
		switch {
		case m.saving:
			m.status = "save in progress"
		case !m.store.HasPendingChanges():
			m.status = "nothing to save"
		default:
			m.sess.Select(nil)
			m.saving = true
			m.status = fmt.Sprintf("saving %d change(s)…", m.store.PendingCount())
			cmd = m.saveCmd()
		}
	case key.Matches(msg, k.Discard):
		if m.saving {
			m.status = "save in progress"
			break
		}
		n := m.store.PendingCount()
		m.sess.Select(nil)
		m.store.DiscardChanges()
		m.status = fmt.Sprintf("discarded %d change(s)", n)
	case key.Matches(msg, k.Paste):
		m.pasteMode = true
		m.ta.SetValue("")
		m.status = "paste mode"
		m.ta.Focus()
	case key.Matches(msg, k.Attrs):
		m.showAttrs = !m.showAttrs
		if m.showAttrs {
			m.refreshAttrsFromCurrent()
		}
	case key.Matches(msg, k.Sidebar):
		m.showSidebar = !m.showSidebar
		if m.showSidebar {
			m.refreshDir()
		}
		m.resize()
		cmd = m.reloadCmd()
	case key.Matches(msg, k.Open):
		if m.showSidebar {
			if it, ok := m.l.SelectedItem().(fileItem); ok {
				cmd = m.loadPath(it.path)
			}
		}
	case key.Matches(msg, k.Help):
		m.helpVisible = !m.helpVisible
	default:
		if m.showSidebar {
			m.l, cmd = m.l.Update(msg)
		}
	}
	if n := m.ed.take(); n != "" {
		m.status = n
	}
	return m, cmd
}

func (m *Model) create(kind geom.Kind) {
	if m.saving {
		m.status = "save in progress"
		return
	}
	m.sess.CreateElement(kind, nil)
}

func (m *Model) zoomBy(f float64) tea.Cmd {
	z := m.view.zoom * f
	if z < zoomMin || z > zoomMax {
		return nil
	}
	v := m.view
	v.zoom = z
	m.setView(v)
	m.status = fmt.Sprintf("zoom: %.2fx", z)
	return m.reloadCmd()
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	ox, oy, w, h := m.layout()
	cx, cy := msg.X-ox, msg.Y-oy
	inside := cx >= 0 && cx < w && cy >= 0 && cy < h
	if !inside && !m.sess.Dragging() {
		m.hoverHasGeo = false
		if m.showSidebar {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	// the centre of the cell under the pointer
	sx, sy := float64(cx)+0.5, float64(cy)+0.5
	if inside && m.view.valid() {
		p := m.view.ToWorld(sx, sy)
		m.hoverHasGeo, m.hoverLon, m.hoverLat = true, p[0], p[1]
	}

	var cmd tea.Cmd
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		cmd = m.zoomBy(zoomStep)
	case msg.Button == tea.MouseButtonWheelDown:
		cmd = m.zoomBy(1 / zoomStep)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if m.saving || m.showAttrs || m.pasteMode {
			break
		}
		if !m.sess.PointerDown(sx, sy) {
			g, ok := m.store.HitTest(m.view.ToWorld(sx, sy), m.view.worldRadius(m.threshold))
			if ok {
				m.sess.Select(g)
			} else {
				m.sess.Select(nil)
			}
		}
	case msg.Action == tea.MouseActionMotion:
		if m.sess.Dragging() {
			m.ed.overTrash = m.onTrash(cx, cy)
			m.sess.PointerMove(sx, sy)
		}
	case msg.Action == tea.MouseActionRelease:
		m.ed.overTrash = m.onTrash(cx, cy)
		m.sess.PointerUp(sx, sy)
		m.ed.overTrash = false
	}
	if n := m.ed.take(); n != "" {
		m.status = n
	}
	return m, cmd
}

// onTrash reports whether the map cell is the drop target in the top right
// corner.
func (m Model) onTrash(cx, cy int) bool {
	return cx == m.view.w-1 && cy == 0
}
