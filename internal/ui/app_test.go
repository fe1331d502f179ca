package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/state"
)

func newTestModel(t *testing.T, exhibits int) Model {
	t.Helper()
	m := New(Options{PrefsPath: t.TempDir() + "/prefs.toml"})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	snap := state.Snapshot{HasExhibits: true}
	for i := 0; i < exhibits; i++ {
		snap.Exhibits = append(snap.Exhibits, museum.Exhibit{
			ID:    string(rune('a' + i)),
			Title: "Exhibit " + string(rune('A'+i)),
			Floor: i % 3,
		})
	}
	updated, _ = m.Update(snapshotMsg(snap))
	return updated.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	updated, _ := m.Update(k)
	return updated.(Model)
}

func TestNavigation_ClampsToExhibits(t *testing.T) {
	m := newTestModel(t, 3)
	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	m = press(t, m, up)
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow after up at top = %d, want 0", m.selectedRow)
	}
	for i := 0; i < 5; i++ {
		m = press(t, m, down)
	}
	if m.selectedRow != 2 {
		t.Fatalf("selectedRow after overscroll = %d, want 2", m.selectedRow)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow after top = %d, want 0", m.selectedRow)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	if m.selectedRow != 2 {
		t.Fatalf("selectedRow after bottom = %d, want 2", m.selectedRow)
	}
}

func TestSnapshot_ShrinkingListClampsSelection(t *testing.T) {
	m := newTestModel(t, 5)
	m.selectedRow = 4

	updated, _ := m.Update(snapshotMsg(state.Snapshot{
		HasExhibits: true,
		Exhibits:    []museum.Exhibit{{ID: "only", Title: "Only"}},
	}))
	m = updated.(Model)
	if m.selectedRow != 0 {
		t.Fatalf("selectedRow = %d, want 0", m.selectedRow)
	}
}

func TestTab_SwitchesViews(t *testing.T) {
	m := newTestModel(t, 1)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.currentView != ViewActivity {
		t.Fatalf("currentView = %v, want activity", m.currentView)
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.currentView != ViewExhibits {
		t.Fatalf("currentView = %v, want exhibits", m.currentView)
	}
}

func TestActionMsg_SetsNotice(t *testing.T) {
	m := newTestModel(t, 1)
	m.busy = true

	updated, _ := m.Update(actionMsg{text: "Favourite", err: errors.New("boom")})
	m = updated.(Model)
	if m.busy {
		t.Fatal("busy still set after action result")
	}
	if !m.noticeErr || m.notice != "Favourite: boom" {
		t.Fatalf("notice = %q (err=%v), want failure notice", m.notice, m.noticeErr)
	}

	updated, cmd := m.Update(actionMsg{text: "Route started", destination: "b"})
	m = updated.(Model)
	if m.lastDest != "b" {
		t.Fatalf("lastDest = %q, want b", m.lastDest)
	}
	if cmd == nil {
		t.Fatal("expected a prefs save command after starting a route")
	}
}

func TestView_RendersCatalogue(t *testing.T) {
	m := newTestModel(t, 2)
	out := m.View()
	for _, want := range []string{"docent", "Exhibit A", "Exhibit B", "online"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestView_EmptyCatalogueShowsError(t *testing.T) {
	m := newTestModel(t, 0)
	updated, _ := m.Update(snapshotMsg(state.Snapshot{
		LastError:           errors.New("connection refused"),
		ConsecutiveFailures: 2,
	}))
	m = updated.(Model)
	out := m.View()
	if !strings.Contains(out, "connection refused") {
		t.Errorf("View() missing fetch error")
	}
	if !strings.Contains(out, "offline") {
		t.Errorf("View() missing offline badge")
	}
}

func TestRatingStars(t *testing.T) {
	tests := []struct {
		rating int
		want   string
	}{
		{0, ""},
		{1, "●○○○○"},
		{5, "●●●●●"},
	}
	for _, tt := range tests {
		if got := ratingStars(tt.rating); got != tt.want {
			t.Errorf("ratingStars(%d) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}
