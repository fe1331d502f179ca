// Package ui provides the terminal interface for docent, built on Bubble Tea.
//
// The model polls state.Store for the exhibit catalogue and reads the
// session's local cache directly for favourites, ratings, the current route
// and tracker status. Every remote action runs as a tea.Cmd bounded by a
// timeout, and its result comes back as an actionMsg shown in the footer.
//
// Two views are available: the exhibit list and an activity view that tails
// the docent log file. Tab switches between them.
//
// # Key Bindings
//
//   - j/k or arrows: move the selection
//   - f: toggle favourite
//   - 1-5: rate the selected exhibit
//   - enter: start a route to the selected exhibit
//   - a/x: add or remove the exhibit as a stop on the active route
//   - r: recalculate the route
//   - c: cancel the route
//   - t: start or stop coordinate tracking
//   - s: replay operations saved while offline
//   - T: cycle theme
//   - h or ?: toggle full help
//   - q or Ctrl+C: quit
package ui
