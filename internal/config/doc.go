// Package config loads docent's runtime configuration.
//
// # Overview
//
// Load returns a Config with every field populated. Callers never need to
// check for zero values: anything the file and environment leave unset keeps
// its default.
//
// # Resolution order
//
//  1. Built-in defaults (see Default).
//  2. The TOML file, ~/.config/docent/config.toml unless a path is given.
//     A missing file is not an error; invalid TOML is.
//  3. A .env file in the working directory, loaded into the process
//     environment without overriding variables that are already set.
//  4. DOCENT_API_URL, DOCENT_USER_ID, DOCENT_DATA_DIR, DOCENT_STORAGE and
//     DOCENT_METRICS_ADDR. Blank values are ignored.
//
// Command-line flags are applied by the caller after Load (see app.Options).
//
// # Fields
//
//   - api_url: base URL of the museum service (default http://127.0.0.1:8787)
//   - user_id: the signed-in visitor; no default, docent refuses to start
//     without one
//   - data_dir: where storage and docent.log live (default
//     ~/.local/share/docent)
//   - storage: sqlite, file or memory (default sqlite); matched case
//     insensitively
//   - track_interval_seconds: how often the tracker pushes a position
//     (default 5)
//   - poll_interval_seconds: catalogue refresh interval (default 10)
//   - metrics_addr: listen address for /metrics; empty disables it
//
// The [geolocation] table:
//
//   - high_accuracy: request the most precise fix (default true)
//   - timeout_seconds: give up on a fix after this long (default 10)
//   - simulate: use a simulated device that wanders from the visitor's last
//     position (default true)
//
// Booleans in [geolocation] are only overridden when present, so a file may
// set one without restating the others.
//
// # Paths
//
// Paths may start with ~, which expands to the user's home directory.
// LogPath derives the log file location from data_dir.
//
// # Durations
//
// Intervals are configured in whole seconds. Zero or negative values keep
// the default.
//
// # Example
//
//	api_url = "http://127.0.0.1:8787"
//	user_id = "visitor-7"
//	storage = "sqlite"          # sqlite, file or memory
//	track_interval_seconds = 5
//	poll_interval_seconds = 10
//	metrics_addr = "127.0.0.1:9100"
//
//	[geolocation]
//	high_accuracy = true
//	timeout_seconds = 10
//	simulate = true
//
// With a .env next to it for local development:
//
//	DOCENT_API_URL=http://127.0.0.1:9999
//	DOCENT_STORAGE=memory
//
// # Errors
//
// Load fails only when the file exists but cannot be read or parsed, when
// .env exists but is malformed, or when ~ cannot be expanded. Errors wrap the
// underlying cause.
package config
