package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/docent/internal/prefs"
	"github.com/five82/docent/internal/session"
	"github.com/five82/docent/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewExhibits View = iota
	ViewActivity
)

// activityLines bounds the log tail shown in the activity view.
const activityLines = 400

// Options configures the UI.
type Options struct {
	Context         context.Context
	Session         *session.Session
	Store           *state.Store
	LogPath         string
	PollTick        time.Duration
	ThemeName       string
	LastDestination string
	PrefsPath       string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	session   *session.Session
	store     *state.Store
	logPath   string
	prefsPath string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	help        help.Model

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	selectedRow int
	lastDest    string

	// Last action result shown in the footer
	notice    string
	noticeErr bool
	busy      bool

	// Activity view
	activity viewport.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = ThemeNames()[0]
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return Model{
		ctx:         ctx,
		session:     opts.Session,
		store:       opts.Store,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewExhibits,
		help:        help.New(),
		lastDest:    opts.LastDestination,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
	}
	// Fetch snapshot immediately on start
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.logPath != "" {
		cmds = append(cmds, readLogCmd(m.logPath))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.activity = viewport.New(msg.Width, m.bodyHeight())
		} else {
			m.activity.Width = msg.Width
			m.activity.Height = m.bodyHeight()
		}
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.clampSelection()
		return m, nil

	case logLinesMsg:
		m.setActivity(msg)
		return m, nil

	case actionMsg:
		m.busy = false
		m.notice = msg.text
		m.noticeErr = msg.err != nil
		if msg.err != nil {
			m.notice = msg.text + ": " + msg.err.Error()
		}
		if msg.destination != "" {
			m.lastDest = msg.destination
			dest := m.lastDest
			return m, savePrefsCmd(m.prefsPath, func(p *prefs.Prefs) { p.LastDestination = dest })
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.logPath != "" && m.currentView == ViewActivity {
		cmds = append(cmds, readLogCmd(m.logPath))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) clampSelection() {
	n := len(m.snapshot.Exhibits)
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

func (m Model) bodyHeight() int {
	// header (3 lines) + notice line + help
	h := m.height - 4 - lipgloss.Height(m.help.View(m.keys))
	if h < 3 {
		return 3
	}
	return h
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
