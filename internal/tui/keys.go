package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the editor key bindings.
type KeyMap struct {
	Up, Down, Left, Right key.Binding
	ZoomIn, ZoomOut, Fit  key.Binding

	NewPoint, NewLine, NewPolygon key.Binding
	Delete, Deselect              key.Binding

	Save, Discard, Reload key.Binding

	Paste, Attrs, Sidebar, Open key.Binding
	Help, Quit                  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "pan up")),
		Down:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "pan down")),
		Left:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "pan left")),
		Right: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "pan right")),

		ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Fit:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit data")),

		NewPoint:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new point")),
		NewLine:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "new line")),
		NewPolygon: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "new polygon")),
		Delete:     key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		Deselect:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deselect")),

		Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Discard: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "discard")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),

		Paste:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paste wkt")),
		Attrs:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "attrs")),
		Sidebar: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "files")),
		Open:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Help:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.ZoomIn, k.ZoomOut, k.NewPoint, k.NewLine, k.NewPolygon, k.Delete,
		k.Save, k.Discard, k.Paste, k.Attrs, k.Sidebar, k.Help, k.Quit,
	}
}
