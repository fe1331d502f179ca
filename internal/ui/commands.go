package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/docent/internal/logtail"
	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/mutator"
	"github.com/five82/docent/internal/prefs"
	"github.com/five82/docent/internal/session"
	"github.com/five82/docent/internal/state"
)

// actionTimeout bounds a single remote action started from the keyboard.
const actionTimeout = 15 * time.Second

type tickMsg time.Time

type snapshotMsg state.Snapshot

type logLinesMsg []string

// actionMsg reports the result of a user action.
type actionMsg struct {
	text        string
	err         error
	destination string // set when a route was started, to remember it
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func readLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, activityLines)
		if err != nil {
			return logLinesMsg{"unable to read " + path + ": " + err.Error()}
		}
		return logLinesMsg(lines)
	}
}

func savePrefsCmd(path string, fn func(*prefs.Prefs)) tea.Cmd {
	return func() tea.Msg {
		// Preferences are best effort; a failed save is not worth a notice.
		_ = prefs.Update(path, fn)
		return nil
	}
}

func withTimeout(ctx context.Context, fn func(context.Context) actionMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, actionTimeout)
		defer cancel()
		return fn(ctx)
	}
}

func outcomeSuffix(o mutator.Outcome) string {
	if o == mutator.Queued {
		return " (saved offline, press s to sync)"
	}
	return ""
}

func favouriteCmd(ctx context.Context, sess *session.Session, e museum.Exhibit) tea.Cmd {
	return withTimeout(ctx, func(ctx context.Context) actionMsg {
		rec := museum.FavouriteRecord{ExhibitID: e.ID, Title: e.Title, Subtitle: e.Subtitle}
		on, outcome, err := sess.Mutator.ToggleFavourite(ctx, rec)
		if err != nil {
			return actionMsg{text: "Favourite not saved", err: err}
		}
		verb := "Removed " + e.Title + " from favourites"
		if on {
			verb = "Added " + e.Title + " to favourites"
		}
		return actionMsg{text: verb + outcomeSuffix(outcome)}
	})
}

func rateCmd(ctx context.Context, sess *session.Session, e museum.Exhibit, rating int) tea.Cmd {
	return withTimeout(ctx, func(ctx context.Context) actionMsg {
		outcome, err := sess.Mutator.RateExhibit(ctx, e.ID, e.Title, rating)
		if err != nil {
			return actionMsg{text: "Rating not saved", err: err}
		}
		return actionMsg{text: fmt.Sprintf("Rated %s %d/5%s", e.Title, rating, outcomeSuffix(outcome))}
	})
}

func startRouteCmd(ctx context.Context, sess *session.Session, e museum.Exhibit) tea.Cmd {
	return withTimeout(ctx, func(ctx context.Context) actionMsg {
		st, err := sess.StartRoute(ctx, e.ID, e.Title)
		if err != nil {
			return actionMsg{text: "Route not started", err: err}
		}
		text := fmt.Sprintf("Navigating to %s, %.0f m", e.Title, st.Distance)
		if st.Fallback {
			text = "Route guidance unavailable, heading directly to " + e.Title
		}
		return actionMsg{text: text, destination: e.ID}
	})
}

func cancelRouteCmd(ctx context.Context, sess *session.Session) tea.Cmd {
	return withTimeout(ctx, func(ctx context.Context) actionMsg {
		if err := sess.CancelRoute(ctx); err != nil {
			return actionMsg{text: "Route cancelled (server not notified)", err: err}
		}
		return actionMsg{text: "Route cancelled"}
	})
}

func recalculateCmd(ctx context.Context, sess *session.Session) tea.Cmd {
	return withTimeout(ctx, func(ctx context.Context) actionMsg {
		st, err := sess.Route.Recalculate(ctx)
		if err != nil {
			return actionMsg{text: "Route not recalculated", err: err}
		}
		return actionMsg{text: fmt.Sprintf("Route recalculated, %.0f m", st.Distance)}
	})
}

func stopCmd(ctx context.Context, sess *session.Session, e museum.Exhibit, add bool) tea.Cmd {
	return withTimeout(ctx, func(ctx context.Context) actionMsg {
		var err error
		if add {
			_, err = sess.Route.AddStops(ctx, e.ID)
		} else {
			_, err = sess.Route.RemoveStops(ctx, e.ID)
		}
		if err != nil {
			return actionMsg{text: "Stops unchanged", err: err}
		}
		if add {
			return actionMsg{text: "Added stop " + e.Title}
		}
		return actionMsg{text: "Removed stop " + e.Title}
	})
}

func syncCmd(ctx context.Context, sess *session.Session) tea.Cmd {
	return withTimeout(ctx, func(ctx context.Context) actionMsg {
		rep, err := sess.Sync(ctx)
		switch {
		case err != nil:
			return actionMsg{text: "Still offline, changes kept", err: err}
		case rep.Sent == 0:
			return actionMsg{text: "Nothing to sync"}
		case len(rep.Rejected) > 0:
			return actionMsg{text: fmt.Sprintf("Synced %d of %d changes, %d refused by the museum", rep.Applied, rep.Sent, len(rep.Rejected))}
		default:
			return actionMsg{text: fmt.Sprintf("Synced %d changes", rep.Applied)}
		}
	})
}
