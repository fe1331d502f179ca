package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// palette is the set of colours a theme chooses.
type palette struct {
	Background string
	Surface    string // header and footer bars
	Selection  string
	OnSelected string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
}

// Theme is a named palette plus badge colours for statuses.
type Theme struct {
	Name string
	palette

	// StatusColors maps route, tracker, connectivity and mutation outcome
	// names to badge colours.
	StatusColors map[string]string
}

// Styles holds the lipgloss styles derived from a Theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	statusColors map[string]string
	badgeText    string
	muted        string
}

// Styles builds the lipgloss styles for t.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),

		Footer:   fg(t.Muted).Background(lipgloss.Color(t.Surface)).Padding(0, 1),
		Logo:     fg(t.Warning).Bold(true),
		Selected: fg(t.OnSelected).Background(lipgloss.Color(t.Selection)),

		statusColors: t.StatusColors,
		badgeText:    t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns a badge style for status. Unknown statuses use the
// muted colour.
func (s Styles) StatusStyle(status string) lipgloss.Style {
	color, ok := s.statusColors[status]
	if !ok {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.badgeText)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

var themeOrder = []string{"Gallery", "Nocturne", "Parchment"}

var themes = map[string]Theme{
	"Gallery":   galleryTheme(),
	"Nocturne":  nocturneTheme(),
	"Parchment": parchmentTheme(),
}

// GetTheme returns a theme by name, or the first theme for unknown names.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[themeOrder[0]]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns the available theme names in cycle order.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}

func newTheme(name string, p palette) Theme {
	return Theme{
		Name:    name,
		palette: p,
		StatusColors: map[string]string{
			"Idle":                 p.Faint,
			"Tracking":             p.Accent,
			"Planning":             p.Info,
			"Creating":             p.Accent,
			"Active":               p.Success,
			"Recalculating":        p.Accent,
			"Cancelled":            p.Faint,
			"SupersededByNewRoute": p.Faint,
			"Fallback":             p.Warning,
			"committed":            p.Success,
			"queued":               p.Warning,
			"rolled_back":          p.Danger,
			"online":               p.Success,
			"offline":              p.Danger,
		},
	}
}

// Nightfox: https://github.com/EdenEast/nightfox.nvim
func galleryTheme() Theme {
	return newTheme("Gallery", palette{
		Background: "#131a24",
		Surface:    "#192330",
		Selection:  "#2b3b51",
		OnSelected: "#cdcecf",
		Text:       "#cdcecf",
		Muted:      "#738091",
		Faint:      "#71839b",
		Accent:     "#719cd6",
		Success:    "#81b29a",
		Warning:    "#dbc074",
		Danger:     "#c94f6d",
		Info:       "#63cdcf",
	})
}

// Kanagawa: https://github.com/rebelot/kanagawa.nvim
func nocturneTheme() Theme {
	return newTheme("Nocturne", palette{
		Background: "#16161D",
		Surface:    "#1F1F28",
		Selection:  "#2D4F67",
		OnSelected: "#DCD7BA",
		Text:       "#DCD7BA",
		Muted:      "#C8C093",
		Faint:      "#727169",
		Accent:     "#7E9CD8",
		Success:    "#98BB6C",
		Warning:    "#E6C384",
		Danger:     "#E46876",
		Info:       "#7FB4CA",
	})
}

// Light palette for bright galleries.
func parchmentTheme() Theme {
	return newTheme("Parchment", palette{
		Background: "#f4ecd8",
		Surface:    "#ebe1c8",
		Selection:  "#8b5e3c",
		OnSelected: "#fdf8ec",
		Text:       "#3b2f22",
		Muted:      "#6e5f49",
		Faint:      "#8f8068",
		Accent:     "#8b5e3c",
		Success:    "#4d7c3a",
		Warning:    "#b07d12",
		Danger:     "#a33b2b",
		Info:       "#2f6f7a",
	})
}
