package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/prefs"
	"github.com/five82/docent/internal/tracker"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.activity.Height = m.bodyHeight()
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		name := m.theme.Name
		return m, savePrefsCmd(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name })
	case key.Matches(msg, m.keys.Tab):
		if m.currentView == ViewExhibits {
			m.currentView = ViewActivity
			if m.logPath != "" {
				return m, readLogCmd(m.logPath)
			}
			return m, nil
		}
		m.currentView = ViewExhibits
		return m, nil
	}

	if m.currentView == ViewActivity {
		var cmd tea.Cmd
		m.activity, cmd = m.activity.Update(msg)
		return m, cmd
	}
	return m.handleExhibitKey(msg)
}

func (m Model) handleExhibitKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snapshot.Exhibits)
	page := maxInt(m.bodyHeight()-2, 1)

	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectedRow--
	case key.Matches(msg, m.keys.Down):
		m.selectedRow++
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = n - 1
	case key.Matches(msg, m.keys.PageUp):
		m.selectedRow -= page
	case key.Matches(msg, m.keys.PageDown):
		m.selectedRow += page
	default:
		return m.handleAction(msg)
	}
	m.clampSelection()
	return m, nil
}

func (m Model) handleAction(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	ctx := m.ctx
	sess := m.session

	switch {
	case key.Matches(msg, m.keys.CancelRoute):
		return m.start(cancelRouteCmd(ctx, sess))
	case key.Matches(msg, m.keys.Recalculate):
		return m.start(recalculateCmd(ctx, sess))
	case key.Matches(msg, m.keys.Sync):
		return m.start(syncCmd(ctx, sess))
	case key.Matches(msg, m.keys.ToggleTracking):
		if sess.Tracker.Status() == tracker.Tracking {
			sess.StopTracking()
			m.notice, m.noticeErr = "Tracking stopped", false
		} else if err := sess.StartTracking(); err != nil {
			m.notice, m.noticeErr = "Tracking not started: "+err.Error(), true
		} else {
			m.notice, m.noticeErr = "Tracking started", false
		}
		return m, nil
	}

	e, ok := m.selectedExhibit()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Favourite):
		return m.start(favouriteCmd(ctx, sess, e))
	case key.Matches(msg, m.keys.Rate):
		rating, err := strconv.Atoi(msg.String())
		if err != nil {
			return m, nil
		}
		return m.start(rateCmd(ctx, sess, e, rating))
	case key.Matches(msg, m.keys.StartRoute):
		return m.start(startRouteCmd(ctx, sess, e))
	case key.Matches(msg, m.keys.AddStop):
		return m.start(stopCmd(ctx, sess, e, true))
	case key.Matches(msg, m.keys.RemoveStop):
		return m.start(stopCmd(ctx, sess, e, false))
	}
	return m, nil
}

func (m Model) start(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.busy = true
	return m, cmd
}

func (m Model) selectedExhibit() (museum.Exhibit, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Exhibits) {
		return museum.Exhibit{}, false
	}
	return m.snapshot.Exhibits[m.selectedRow], true
}
