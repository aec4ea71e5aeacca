package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	Analyze   key.Binding
	NextRow   key.Binding
	PrevRow   key.Binding
	NextField key.Binding
	PrevField key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the default key bindings. Letters are left free
// for the text inputs.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Analyze: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "analyze"),
		),
		NextRow: key.NewBinding(
			key.WithKeys("ctrl+n", "pgdown"),
			key.WithHelp("Ctrl+N", "next row"),
		),
		PrevRow: key.NewBinding(
			key.WithKeys("ctrl+p", "pgup"),
			key.WithHelp("Ctrl+P", "previous row"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("Tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("Shift+Tab", "previous field"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("Esc", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Analyze, k.NextField, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Analyze, k.NextRow, k.PrevRow},
		{k.NextField, k.PrevField},
		{k.Help, k.Quit},
	}
}
