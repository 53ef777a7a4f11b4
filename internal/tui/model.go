package tui

import (
	"fmt"
	"os"
	"time"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"geoedit/internal/datasource"
	"geoedit/internal/edit"
	"geoedit/internal/geom"
	"geoedit/internal/store"
	"geoedit/internal/style"
)

// worldBBox is shown when the data source cannot report an extent.
var worldBBox = geom.BBox{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2
)

type Options struct {
	Adapter datasource.Adapter
	// Name labels the dataset in the header.
	Name   string
	Styles *style.Set
	// HandleThreshold is the grab radius in cells.
	HandleThreshold float64
	Cwd             string
	// Wrap decorates adapters opened from the file sidebar.
	Wrap func(a datasource.Adapter, name string) datasource.Adapter
	// Timeout bounds every data source round trip.
	Timeout time.Duration
}

// editState is shared between the model copies and the session hooks.
type editState struct {
	overTrash bool
	note      string
}

func (e *editState) take() string {
	n := e.note
	e.note = ""
	return n
}

type Model struct {
	width  int
	height int

	showSidebar bool
	helpVisible bool

	status string

	// File explorer
	cwd     string
	l       list.Model
	items   []list.Item
	selPath string

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// attributes table
	showAttrs bool
	tbl       table.Model

	// hover state
	hoverHasGeo bool
	hoverLon    float64
	hoverLat    float64

	keys      KeyMap
	styles    style.Set
	threshold float64
	timeout   time.Duration
	wrap      func(datasource.Adapter, string) datasource.Adapter

	// Editing
	name   string
	view   view
	store  *store.Store
	sess   *edit.Session
	canvas *canvas
	ed     *editState
	saving bool
}

func New(opts Options) Model {
	m := Model{
		helpVisible: true,
		status:      "geoedit ready",
		keys:        DefaultKeyMap(),
		styles:      style.Default(),
		threshold:   opts.HandleThreshold,
		timeout:     opts.Timeout,
		wrap:        opts.Wrap,
		cwd:         opts.Cwd,
		ed:          &editState{},
		view:        view{bbox: worldBBox, zoom: 1.0},
	}
	if opts.Styles != nil {
		m.styles = *opts.Styles
	}
	if m.threshold <= 0 {
		m.threshold = 1
	}
	if m.timeout <= 0 {
		m.timeout = 10 * time.Second
	}
	if m.cwd == "" {
		m.cwd, _ = os.Getwd()
	}
	// list setup
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Files"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	// textarea setup
	m.ta = textarea.New()
	m.ta.Placeholder = "Paste WKT here (POINT, LINESTRING, POLYGON, MULTI*). Enter adds it as new elements; Esc cancels."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)

	a := opts.Adapter
	if a == nil {
		a = datasource.NewMemory()
	}
	m.bind(a, opts.Name)
	m.refreshDir()
	return m
}

// bind points the editor at a data source. The store, session and canvas
// start empty; messages still in flight for the previous store are dropped.
func (m *Model) bind(a datasource.Adapter, name string) {
	m.name = name
	m.canvas = newCanvas()
	m.store = store.New(a, m.canvas, "")
	m.sess = edit.NewSession(m.store, m.view, m.canvas, edit.Config{
		HandleThreshold: m.threshold,
		Styles:          m.styles,
		Hooks:           m.hooks(),
	})
}

func (m *Model) hooks() edit.Hooks {
	ed := m.ed
	return edit.Hooks{
		OnElementCreated: func(g *geom.Geometry) {
			ed.note = fmt.Sprintf("created %s #%d", g.Kind, g.ID)
		},
		OnElementDeleted: func(g *geom.Geometry) {
			ed.note = fmt.Sprintf("deleted %s #%d", g.Kind, g.ID)
		},
		OnElementSelected: func(g *geom.Geometry) bool {
			if ed.note == "" {
				ed.note = fmt.Sprintf("selected %s #%d (%d vertices)", g.Kind, g.ID, len(g.Vertices))
			}
			return true
		},
		// a drag released over the trash cell deletes
		OnDragEnd: func(g *geom.Geometry) bool { return ed.overTrash },
	}
}

// setView replaces the projection used for drawing and editing.
func (m *Model) setView(v view) {
	m.view = v
	m.sess.SetProjection(v)
}

// layout returns the map origin and size for the current window.
func (m Model) layout() (x, y, w, h int) {
	sw := 0
	if m.showSidebar {
		sw = sidebarWidth + 1
	}
	contentHeight := max(4, m.height-headerHeight-footerHeight)
	contentWidth := max(10, m.width)
	return sw, headerHeight, max(8, contentWidth-sw-1), contentHeight
}

func (m *Model) resize() {
	_, _, w, h := m.layout()
	v := m.view
	v.w, v.h = w, h
	m.setView(v)
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, h-2)
	}
}

func (m Model) Init() tea.Cmd { return m.extentCmd() }
