// Package mutator makes favourite and rating changes appear instantly while
// keeping them eventually consistent with the museum service.
//
// Every mutation follows the same steps:
//
//  1. Apply the change to the local cache and remember the previous state.
//  2. Call the matching museum endpoint.
//  3. Success: nothing else to do.
//  4. Connectivity failure: keep the local change and enqueue the operation
//     for a later manual sync.
//  5. Rejection: restore the previous state and return the error. Rejected
//     changes are never queued.
//
// When the pending queue already holds operations for the same exhibit, the
// new operation is queued behind them without calling the server, so replay
// order always matches the order the visitor acted in.
package mutator
