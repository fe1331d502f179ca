// Package logtail reads the end of docent's log file for the activity pane.
//
// Read keeps a ring buffer of maxLines entries while scanning, so memory is
// bounded by the requested tail rather than the file size. Parse splits a
// standard library log line into timestamp, component and message so the UI
// can style each part.
package logtail
