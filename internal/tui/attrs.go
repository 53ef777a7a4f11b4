package tui

import (
	"fmt"

	table "github.com/charmbracelet/bubbles/table"

	"geoedit/internal/geom"
)

const maxColW = 24

// refreshAttrsFromCurrent shows the properties of the selection, or a
// summary of every visible element when nothing is selected.
func (m *Model) refreshAttrsFromCurrent() {
	var (
		cols []string
		rows [][]string
	)
	if g := m.sess.Selected(); g != nil {
		cols, rows = selectionAttrs(g)
	} else {
		cols, rows = m.summaryAttrs()
	}
	// If there are no rows, disable attributes view to avoid rendering panics
	if len(rows) == 0 {
		m.showAttrs = false
		m.status = "no elements in view"
		return
	}
	tcols := make([]table.Column, 0, len(cols))
	for _, c := range cols {
		tcols = append(tcols, table.Column{Title: c, Width: min(maxColW, len(c)+2)})
	}
	trows := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		for i, v := range r {
			if i < len(tcols) && len(v)+2 > tcols[i].Width {
				tcols[i].Width = min(maxColW, len(v)+2)
			}
		}
		trows = append(trows, table.Row(r))
	}
	// Avoid transient mismatch: clear rows, set columns, then set rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(trows)
}

func selectionAttrs(g *geom.Geometry) ([]string, [][]string) {
	rows := [][]string{
		{"id", fmt.Sprintf("%d", g.ID)},
		{"kind", g.Kind.String()},
		{"style", g.Style},
		{"vertices", fmt.Sprintf("%d", len(g.Vertices))},
	}
	if len(g.Holes) > 0 {
		rows = append(rows, []string{"holes", fmt.Sprintf("%d", len(g.Holes))})
	}
	for _, k := range sortedKeys(g.Properties) {
		rows = append(rows, []string{k, formatValue(g.Properties[k])})
	}
	return []string{"key", "value"}, rows
}

func (m *Model) summaryAttrs() ([]string, [][]string) {
	pending := make(map[int64]bool)
	for _, id := range m.store.PendingIDs() {
		pending[id] = true
	}
	var rows [][]string
	for _, g := range m.store.Visible() {
		state := ""
		switch {
		case g.IsSynthetic():
			state = "new"
		case pending[g.ID]:
			state = "modified"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", g.ID), g.Kind.String(), g.Style,
			fmt.Sprintf("%d", len(g.Vertices)), state,
		})
	}
	return []string{"id", "kind", "style", "vertices", "state"}, rows
}
