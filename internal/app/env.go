package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/docent/internal/config"
	"github.com/five82/docent/internal/geo"
	"github.com/five82/docent/internal/metrics"
	"github.com/five82/docent/internal/museum"
	"github.com/five82/docent/internal/session"
	"github.com/five82/docent/internal/storage"
)

// defaultOrigin is used when the server has no position for the visitor.
var defaultOrigin = museum.Coordinate{Lat: 51.5194, Lng: -0.1270}

// ErrNoUser is returned when neither flags, config nor environment name a user.
var ErrNoUser = errors.New("no user configured: set user_id in config.toml, DOCENT_USER_ID or --user")

// Options configure the docent application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/docent/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	UserID     string // overrides the configured user
	// LogToStderr keeps logging on stderr instead of the log file. The
	// one-shot CLI commands use it; the TUI owns the terminal and cannot.
	LogToStderr bool
}

// Env is a signed-in visitor's wired components.
type Env struct {
	Config  config.Config
	Logger  *log.Logger
	Client  *museum.Client
	Metrics *metrics.Recorder
	KV      storage.Store
	Session *session.Session

	logFile io.Closer
}

// Open loads configuration and builds the session over the configured
// storage backend.
func Open(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load docent config: %w", err)
	}
	if v := strings.TrimSpace(opts.UserID); v != "" {
		cfg.UserID = v
	}
	if cfg.UserID == "" {
		return nil, ErrNoUser
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	env := &Env{Config: cfg, Metrics: metrics.New()}
	if opts.LogToStderr {
		env.Logger = log.New(os.Stderr, "", log.LstdFlags)
	} else {
		f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		env.logFile = f
		env.Logger = log.New(f, "", log.LstdFlags)
	}

	driver, err := storage.ParseDriver(cfg.Storage)
	if err != nil {
		env.Close()
		return nil, err
	}
	kv, err := storage.Open(driver, cfg.DataDir)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("open %s storage: %w", driver, err)
	}
	env.KV = kv

	client, err := museum.NewClient(cfg.APIURL)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("init museum client: %w", err)
	}
	env.Client = client

	origin := lastKnownPosition(ctx, client, cfg.UserID, env.Logger)

	var source *geo.Source
	if cfg.Geolocation.Simulate {
		source = geo.NewSource(geo.NewSimulated(origin), geo.WatchOptions{
			HighAccuracy: cfg.Geolocation.HighAccuracy,
			Timeout:      cfg.Geolocation.Timeout,
		})
	} else {
		env.Logger.Printf("app: no geolocation device on this platform, tracking will wander from the last position")
	}

	sess, err := session.New(cfg.UserID, kv, client, session.Options{
		Logger:        env.Logger,
		Metrics:       env.Metrics,
		Geolocation:   source,
		TrackInterval: cfg.TrackInterval,
		Origin:        origin,
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Session = sess
	env.Logger.Printf("app: session for %s using %s storage in %s", cfg.UserID, driver, filepath.Clean(cfg.DataDir))
	return env, nil
}

// Close stops the session and releases storage and the log file. Durable
// state is kept.
func (e *Env) Close() {
	if e == nil {
		return
	}
	if e.Session != nil {
		e.Session.Close()
	}
	if e.KV != nil {
		if err := e.KV.Close(); err != nil && e.Logger != nil {
			e.Logger.Printf("app: close storage: %v", err)
		}
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

func lastKnownPosition(ctx context.Context, client *museum.Client, userID string, logger *log.Logger) museum.Coordinate {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	c, err := client.FetchCoordinates(ctx, userID)
	if err != nil || c.Validate() != nil || c.IsZero() {
		if err != nil && !errors.Is(err, museum.ErrNotFound) {
			logger.Printf("app: last position unavailable, starting at the entrance: %v", err)
		}
		return defaultOrigin
	}
	return c
}
