package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Exhibit actions
	Favourite key.Binding
	Rate      key.Binding

	// Route actions
	StartRoute  key.Binding
	CancelRoute key.Binding
	Recalculate key.Binding
	AddStop     key.Binding
	RemoveStop  key.Binding

	// Session actions
	ToggleTracking key.Binding
	Sync           key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Exhibits / activity"),
		),

		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "Up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "Down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "Top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "Bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+b"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+f"),
			key.WithHelp("pgdn", "Page down"),
		),

		Favourite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Toggle favourite"),
		),
		Rate: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5"),
			key.WithHelp("1-5", "Rate exhibit"),
		),

		StartRoute: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Navigate here"),
		),
		CancelRoute: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Cancel route"),
		),
		Recalculate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Recalculate route"),
		),
		AddStop: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add as stop"),
		),
		RemoveStop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove stop"),
		),

		ToggleTracking: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Toggle tracking"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Sync offline changes"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Favourite, k.Rate, k.StartRoute, k.CancelRoute, k.Sync, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown},
		{k.Favourite, k.Rate, k.StartRoute, k.AddStop, k.RemoveStop},
		{k.CancelRoute, k.Recalculate, k.ToggleTracking, k.Sync},
		{k.Tab, k.CycleTheme, k.Help, k.Quit},
	}
}
