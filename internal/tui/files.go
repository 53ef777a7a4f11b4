package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"geoedit/internal/datasource"
	"geoedit/internal/geom"
	"geoedit/internal/logger"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch ext := strings.ToLower(filepath.Ext(name)); ext {
		case ".geojson", ".json", ".csv", ".kml", ".wkt":
			items = append(items, fileItem{title: name, desc: ext, path: filepath.Join(m.cwd, name)})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.items = items
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no supported files in current directory"
	}
}

// loadPath opens a GeoJSON file as the edited dataset, or imports the
// geometries of a CSV, KML or WKT file as unsaved creates.
func (m *Model) loadPath(p string) tea.Cmd {
	ext := strings.ToLower(filepath.Ext(p))
	var (
		gs  []*geom.Geometry
		err error
	)
	switch ext {
	case ".geojson", ".json":
		return m.openDataset(p)
	case ".csv":
		gs, err = geom.LoadCSV(p)
	case ".kml":
		gs, err = geom.LoadKML(p)
	case ".wkt":
		var data []byte
		data, err = os.ReadFile(p)
		if err == nil {
			gs, err = geom.ParseWKT(string(data))
		}
	default:
		m.status = "unsupported file: " + ext
		return nil
	}
	if err != nil {
		m.status = "load error: " + err.Error()
		return nil
	}
	m.importGeometries(gs)
	m.status = fmt.Sprintf("imported %d element(s) from %s  (unsaved)", len(gs), filepath.Base(p))
	return nil
}

func (m *Model) openDataset(p string) tea.Cmd {
	if m.store.HasPendingChanges() {
		m.status = "save or discard pending changes first"
		return nil
	}
	f, err := datasource.OpenFile(p)
	if err != nil {
		m.status = "load error: " + err.Error()
		return nil
	}
	name := filepath.Base(p)
	var a datasource.Adapter = f
	if m.wrap != nil {
		a = m.wrap(a, name)
	}
	m.selPath = p
	m.bind(a, name)
	m.status = "opened: " + name
	logger.L().Info("dataset_opened", "path", p)
	return m.extentCmd()
}

func (m *Model) importGeometries(gs []*geom.Geometry) {
	for _, g := range gs {
		if g.Style == "" {
			g.Style = m.styles.DefaultName(g.Kind)
		}
		m.store.Add(g)
	}
	if m.showAttrs {
		m.refreshAttrsFromCurrent()
	}
}
