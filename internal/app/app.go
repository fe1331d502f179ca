package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/five82/docent/internal/prefs"
	"github.com/five82/docent/internal/state"
	"github.com/five82/docent/internal/ui"
)

// Run boots the docent TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	env, err := Open(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	store := &state.Store{}
	logger := env.Logger

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if addr := env.Config.MetricsAddr; addr != "" {
		g.Go(func() error { return env.Metrics.Serve(gctx, addr) })
	}

	// Start background poller
	StartPoller(gctx, store, env.Client, env.Config.PollInterval, logger)

	// Do initial refresh to populate store before UI starts
	refresh(gctx, store, env.Client, logger)
	if _, err := env.Session.Hydrate(gctx); err != nil {
		logger.Printf("app: initial cache refresh failed, using local cache: %v", err)
	}

	g.Go(func() error {
		defer cancel()
		return ui.Run(ui.Options{
			Context:         gctx,
			Session:         env.Session,
			Store:           store,
			LogPath:         env.Config.LogPath(),
			PollTick:        env.Config.PollInterval,
			ThemeName:       userPrefs.Theme,
			LastDestination: userPrefs.LastDestination,
			PrefsPath:       opts.PrefsPath,
		})
	})
	return g.Wait()
}
