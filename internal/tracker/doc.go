// Package tracker pushes the visitor's position to the museum service while a
// route is being followed.
//
// # States
//
// A Tracker is Idle or Tracking. Start subscribes to the geolocation source
// and arms a ticker (5 seconds by default); Stop cancels it. Stop is the one
// teardown routine used by the stop-tracking action, route cancellation and
// session logout, and is safe to call repeatedly.
//
// # Ticks
//
// Each tick tries to take the single in-flight slot. If a previous push is
// still running the tick is dropped: only the freshest position matters, so
// there is nothing to queue. Otherwise the tracker takes the device's latest
// fix, or wanders randomly from the last acknowledged position when the
// device is unavailable, and pushes it.
//
// A successful push becomes the last known coordinate. A failed push keeps
// the previous one and tracking continues; coordinate updates are never added
// to the pending operation queue.
//
// A push still in flight when Stop runs is not awaited. Its result is
// discarded on arrival because the tracker's epoch has moved on.
package tracker
