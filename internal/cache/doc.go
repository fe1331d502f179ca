// Package cache implements the local mirror of the visitor's favourites and
// ratings.
//
// # Overview
//
// The cache is what the UI reads: it reflects optimistic mutations the
// moment they are applied and keeps working while the museum service is
// unreachable. Each collection is an ordered list unique by exhibit ID and is
// written back to a storage.Store as one JSON snapshot after every mutation.
//
// # Guarantees
//
//   - Operations are synchronous and never return errors. A failed durable
//     write is logged and memory stays authoritative.
//   - Upsert followed by Get always returns the written record.
//   - A second Upsert for the same exhibit replaces the first in place, so
//     there is at most one rating per exhibit.
//   - Get returns copies; callers cannot mutate cached state.
//
// Clear is used on logout: it removes the durable keys instead of writing an
// empty snapshot.
package cache
