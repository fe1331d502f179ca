package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/docent/internal/logtail"
	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/route"
	"github.com/five82/docent/internal/tracker"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading docent..."
	}
	styles := m.theme.Styles()

	var body string
	switch m.currentView {
	case ViewActivity:
		body = m.activity.View()
	default:
		body = m.renderExhibits(styles)
	}
	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(styles),
		body,
		m.renderFooter(styles),
	)
}

func (m Model) renderHeader(styles Styles) string {
	bg := NewBgStyle(m.theme.Surface)

	connection := "online"
	if m.snapshot.IsOffline() {
		connection = "offline"
	}
	parts := []string{
		bg.Render("docent", styles.Logo),
		styles.StatusStyle(connection).Render(connection),
	}
	if m.session != nil {
		parts = append(parts, bg.Render("visitor "+m.session.UserID, styles.MutedText))
		if n := m.session.Queue.Outstanding(); n > 0 {
			parts = append(parts, bg.Render(fmt.Sprintf("%d unsynced", n), styles.WarningText))
		}
	}
	if m.snapshot.HasExhibits {
		summary := fmt.Sprintf("%d exhibits on %d floors", len(m.snapshot.Exhibits), len(m.snapshot.Floors()))
		parts = append(parts, bg.Render(summary, styles.MutedText))
	}
	if !m.lastUpdated.IsZero() {
		parts = append(parts, bg.Render("updated "+m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}
	line1 := bg.FillLine(bg.Join(parts, "  "), m.width)

	line2 := bg.FillLine(m.routeLine(styles, bg), m.width)
	line3 := bg.FillLine(m.trackerLine(styles, bg), m.width)
	return lipgloss.JoinVertical(lipgloss.Left, line1, line2, line3)
}

func (m Model) routeLine(styles Styles, bg BgStyle) string {
	if m.session == nil {
		return ""
	}
	st, ok := m.session.Route.Current()
	if !ok {
		hint := "No route. Select an exhibit and press enter."
		if e, found := m.snapshot.Exhibit(m.lastDest); found {
			hint = "No route. Last destination: " + e.Title
		}
		return bg.Render(hint, styles.MutedText)
	}
	status := st.Status.String()
	if st.Fallback {
		status = "Fallback"
	}
	title := st.DestinationTitle
	if title == "" {
		title = st.DestinationID
	}
	parts := []string{
		styles.StatusStyle(status).Render(status),
		bg.Render("to "+title, styles.Text),
	}
	if st.Status == route.Active && !st.Fallback {
		parts = append(parts, bg.Render(formatRoute(st), styles.MutedText))
	}
	if len(st.Instructions) > 0 {
		parts = append(parts, bg.Render(truncate(st.Instructions[0], 60), styles.InfoText))
	}
	if st.LastError != "" {
		parts = append(parts, bg.Render(truncate(st.LastError, 40), styles.DangerText))
	}
	return bg.Join(parts, "  ")
}

func formatRoute(st route.State) string {
	s := fmt.Sprintf("%.0f m, %s", st.Distance, formatDuration(st.EstimatedTime))
	if st.ArrivalTime != "" {
		s += ", arrive " + st.ArrivalTime
	}
	if n := len(st.Stops); n > 0 {
		s += fmt.Sprintf(", %d stops", n)
	}
	return s
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
}

func (m Model) trackerLine(styles Styles, bg BgStyle) string {
	if m.session == nil {
		return ""
	}
	snap := m.session.Tracker.Snapshot()
	parts := []string{styles.StatusStyle(snap.Status.String()).Render(snap.Status.String())}
	if !snap.Last.IsZero() {
		parts = append(parts, bg.Render(fmt.Sprintf("%.5f, %.5f", snap.Last.Lat, snap.Last.Lng), styles.Text))
	}
	if snap.Status == tracker.Tracking {
		src := ternary(snap.LastSource == "", "waiting for fix", snap.LastSource)
		parts = append(parts, bg.Render(src, styles.MutedText))
		parts = append(parts, bg.Render(fmt.Sprintf("%d pushes, %d skipped", snap.Pushes, snap.Skipped), styles.FaintText))
	}
	if snap.Warning != nil {
		parts = append(parts, bg.Render("location unavailable", styles.WarningText))
	}
	if snap.LastPushError != nil {
		parts = append(parts, bg.Render("last push failed", styles.DangerText))
	}
	return bg.Join(parts, "  ")
}

func (m Model) renderExhibits(styles Styles) string {
	exhibits := m.snapshot.Exhibits
	if len(exhibits) == 0 {
		msg := "Waiting for the exhibit catalogue..."
		if m.snapshot.LastError != nil {
			msg = "Catalogue unavailable: " + m.snapshot.LastError.Error()
		}
		return styles.MutedText.Render(msg)
	}

	visible := maxInt(m.bodyHeight()-1, 1)
	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := start + visible
	if end > len(exhibits) {
		end = len(exhibits)
	}

	titleWidth := maxInt(m.width-40, 16)
	header := styles.FaintText.Render(fmt.Sprintf("   %s %s %s %s",
		padRight("Exhibit", titleWidth), padRight("Category", 18), padRight("Floor", 6), "Rating"))

	var current route.State
	var hasRoute bool
	if m.session != nil {
		current, hasRoute = m.session.Route.Current()
	}

	rows := []string{header}
	for i := start; i < end; i++ {
		rows = append(rows, m.renderExhibitRow(styles, exhibits[i], i == m.selectedRow, titleWidth, current, hasRoute))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderExhibitRow(styles Styles, e museum.Exhibit, selected bool, titleWidth int, current route.State, hasRoute bool) string {
	fav, rating := " ", 0
	if m.session != nil {
		fav = ternary(m.session.Cache.IsFavourite(e.ID), "★", " ")
		rating = m.session.Cache.RatingFor(e.ID)
	}
	marker := " "
	if hasRoute {
		if current.DestinationID == e.ID {
			marker = "→"
		} else if isStop(current, e.ID) {
			marker = "·"
		}
	}

	line := fmt.Sprintf("%s%s %s %s %s %s",
		marker, fav,
		padRight(truncate(e.Title, titleWidth), titleWidth),
		padRight(truncate(e.Category, 18), 18),
		padRight(fmt.Sprintf("%d", e.Floor), 6),
		ratingStars(rating))

	if selected {
		return styles.Selected.Width(m.width).Render(line)
	}
	return styles.Text.Render(line)
}

func isStop(st route.State, exhibitID string) bool {
	for _, s := range st.Stops {
		if s.ExhibitID == exhibitID {
			return true
		}
	}
	return false
}

func ratingStars(rating int) string {
	if rating <= 0 {
		return ""
	}
	return strings.Repeat("●", rating) + strings.Repeat("○", museum.MaxRating-rating)
}

func (m *Model) setActivity(lines []string) {
	styles := m.theme.Styles()
	rendered := make([]string, 0, len(lines))
	for _, line := range lines {
		rendered = append(rendered, renderLogLine(styles, logtail.Parse(line)))
	}
	atBottom := m.activity.AtBottom()
	m.activity.SetContent(strings.Join(rendered, "\n"))
	if atBottom || m.activity.YOffset == 0 {
		m.activity.GotoBottom()
	}
}

func renderLogLine(styles Styles, e logtail.Entry) string {
	var parts []string
	if e.Time != "" {
		parts = append(parts, styles.FaintText.Render(e.Time))
	}
	if e.Component != "" {
		parts = append(parts, styles.AccentText.Render("["+e.Component+"]"))
	}
	msg := styles.Text.Render(e.Message)
	if e.Warning {
		msg = styles.WarningText.Render(e.Message)
	}
	parts = append(parts, msg)
	return strings.Join(parts, " ")
}

func (m Model) renderFooter(styles Styles) string {
	notice := m.notice
	style := styles.MutedText
	switch {
	case m.busy:
		notice, style = "Working...", styles.InfoText
	case m.noticeErr:
		style = styles.DangerText
	case notice != "":
		style = styles.SuccessText
	}
	view := ternary(m.currentView == ViewActivity, "activity", "exhibits")
	line := styles.Footer.Width(m.width).Render(style.Render(truncate(notice, maxInt(m.width-16, 10))) + "  " + styles.FaintText.Render("["+view+"]"))
	return lipgloss.JoinVertical(lipgloss.Left, line, m.help.View(m.keys))
}
