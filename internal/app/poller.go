package app

import (
	"context"
	"log"
	"time"

	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/state"
)

const (
	defaultPollInterval = 10 * time.Second
	maxBackoff          = 30 * time.Second
)

// ExhibitFetcher is the catalogue endpoint the poller reads.
type ExhibitFetcher interface {
	FetchExhibits(ctx context.Context) ([]museum.Exhibit, error)
}

// StartPoller launches a background goroutine that refreshes the store,
// backing off exponentially while the service is failing. It returns
// immediately.
func StartPoller(ctx context.Context, store *state.Store, client ExhibitFetcher, interval time.Duration, logger *log.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			refresh(ctx, store, client, logger)
			timer.Reset(calculateBackoff(store.Snapshot().ConsecutiveFailures, interval))
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func refresh(ctx context.Context, store *state.Store, client ExhibitFetcher, logger *log.Logger) {
	exhibits, err := client.FetchExhibits(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		store.Update(nil, err)
		logger.Printf("app: exhibit refresh failed: %v", err)
		return
	}
	store.Update(exhibits, nil)
}
