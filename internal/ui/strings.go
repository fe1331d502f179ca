package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// truncate cuts value to at most limit cells, ending in "..." when cut.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || lipgloss.Width(value) <= limit {
		return value
	}
	suffix := "..."
	if limit <= len(suffix) {
		suffix = ""
	}
	var b strings.Builder
	budget := limit - len(suffix)
	for _, r := range value {
		if lipgloss.Width(b.String()+string(r)) > budget {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + suffix
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ternary(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
