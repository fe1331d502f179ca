// Package route owns the session's single navigation route.
//
// The lifecycle is a pure function, Transition, over a State and an Event:
//
//	Planning -> Creating -> Active <-> Recalculating
//	    ^           |
//	    +-----------+ (create failed)
//
// Any non-terminal state may move to Cancelled or SupersededByNewRoute.
//
// Controller sequences the remote calls around Transition. At most one route
// is live: planning a new destination supersedes the current route locally
// without deleting it on the server. Results of remote calls that return after
// their route was cancelled or superseded are discarded.
//
// When the server cannot create a route the controller can activate a
// Fallback route, a direct route to the destination marked as such. Fallback
// routes have no route ID and cannot be recalculated or edited.
package route
