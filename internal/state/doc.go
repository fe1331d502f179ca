// Package state holds the catalogue snapshot shared between the background
// poller and the UI.
//
// # Overview
//
// The catalogue is the one piece of server data docent does not cache on
// disk. It is read-only for the visitor, cheap to refetch and only needed
// while the UI is open, so it lives in memory here while favourites,
// ratings and the pending queue go through the cache and pending packages.
//
// # Writers and Readers
//
// The poller is the single writer. Each refresh calls Update with the
// exhibits it fetched, or with an error:
//
//   - Success replaces the exhibit list, sorted by floor and then title,
//     clears LastError and resets ConsecutiveFailures.
//   - Failure keeps the previous exhibits, records LastError and increments
//     ConsecutiveFailures.
//
// Either way LastUpdated is stamped, so the UI can show how stale the
// catalogue is.
//
// Readers call Snapshot, which returns a copy with its own exhibit slice.
// Neither side holds the lock across network I/O or rendering.
//
// # Offline Detection
//
// IsOffline reports true after two consecutive failures. One missed refresh
// is treated as noise; the header switches to offline on the second.
// HasExhibits distinguishes "never loaded" from "loaded, but empty".
//
// # Lookup Helpers
//
//   - Exhibit finds an exhibit by ID, for resolving a remembered
//     destination to its title
//   - Floors lists the distinct floors, lowest first, for the header summary
//
// # Usage
//
//	store := &state.Store{}
//	app.StartPoller(ctx, store, client, 10*time.Second, logger)
//
//	snap := store.Snapshot()
//	if snap.IsOffline() {
//		// show the cached view
//	}
//
// The zero Store is ready to use.
package state
