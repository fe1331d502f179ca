// Package app is the composition root for docent.
//
// # Overview
//
// Nothing in this package knows how a favourite is reconciled or how a route
// moves between states. It loads configuration, opens storage and the log
// file, builds the museum client, and hands them to session.New. The domain
// packages do the rest.
//
// There are two entry points:
//
//   - Open builds an Env: the resolved config, the logger, the museum
//     client, the metrics recorder, the storage backend and the visitor's
//     Session. The one-shot CLI commands (sync, queue, logout) call Open
//     with LogToStderr set and close the Env when they finish.
//   - Run calls Open and then starts the interactive pieces on top of it.
//
// # Startup
//
// Run performs these steps in order:
//
//  1. config.Load merges defaults, config.toml, .env and DOCENT_* variables.
//  2. The data directory is created and the log file opened for append.
//  3. storage.Open opens the sqlite, file or memory backend.
//  4. museum.NewClient validates the API URL.
//  5. The visitor's last position is fetched to seed geolocation. Failure
//     falls back to a fixed origin and is only logged.
//  6. session.New opens the cache and pending queue for the user.
//  7. The catalogue poller starts, followed by one synchronous refresh so
//     the first frame has exhibits when the service is reachable.
//  8. Session.Hydrate replaces the cache with the server's favourites and
//     ratings. It declines while offline operations are outstanding.
//  9. ui.Run takes over the terminal until the visitor quits.
//
// # Components
//
//   - env.go: Options, Env, Open and Close
//   - app.go: Run and the errgroup tying the UI, poller and metrics together
//   - poller.go: the catalogue poller and its backoff
//
// # Data Flow
//
//	┌──────────────┐
//	│   Open()     │
//	└──────┬───────┘
//	       ├─────> config.Load()        config.toml, .env, DOCENT_*
//	       ├─────> storage.Open()       sqlite / file / memory
//	       ├─────> museum.NewClient()   HTTP client
//	       └─────> session.New()        cache, queue, mutator, tracker, route
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> metrics.Serve()      optional, errgroup member
//	       ├─────> StartPoller()        catalogue into state.Store
//	       ├─────> Session.Hydrate()    one-off cache refresh
//	       └─────> ui.Run()             blocks, errgroup member
//
// The UI reads state.Store snapshots on its own tick and calls the session
// directly for mutations, routes and sync. The poller never touches the
// session, and the session never touches the store.
//
// # Polling Behavior
//
// The poller waits one interval (default 10 seconds, or --poll) between
// refreshes. Each failure doubles the wait up to 30 seconds; the first
// success resets it. A refresh cut short by cancellation is not recorded as a
// failure, so quitting never flashes the offline banner.
//
// # Error Handling
//
// Fatal errors, returned from Open or Run:
//   - invalid config.toml or an unknown storage driver
//   - no user configured (ErrNoUser)
//   - data directory, log file or storage that cannot be opened
//   - an unparseable API URL
//
// Recoverable errors, logged while the app keeps running:
//   - catalogue refresh failures
//   - the initial hydrate failing, in which case the local cache is shown
//   - the last-position lookup failing
//
// The museum service does not have to be reachable at startup. Favourites,
// ratings and a fallback route all work offline.
//
// # Usage Example
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := app.Run(ctx, app.Options{UserID: "visitor-7"}); err != nil {
//		log.Fatalf("docent: %v", err)
//	}
//
// # Shutdown
//
// Env.Close closes the session, which stops tracking and clears the route
// locally, then closes storage and the log file. Cached data and pending
// operations stay on disk for the next run. Logout is the only path that
// deletes them.
package app
