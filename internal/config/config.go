package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is docent's runtime configuration.
type Config struct {
	APIURL        string
	UserID        string
	DataDir       string
	Storage       string
	TrackInterval time.Duration
	PollInterval  time.Duration
	Geolocation   Geolocation
	MetricsAddr   string // empty disables the metrics endpoint
}

// Geolocation configures the position source used while navigating.
type Geolocation struct {
	HighAccuracy bool
	Timeout      time.Duration
	// Simulate uses a wandering simulated device instead of a real one.
	Simulate bool
}

const (
	defaultConfigPath    = "~/.config/docent/config.toml"
	defaultDataDir       = "~/.local/share/docent"
	defaultAPIURL        = "http://127.0.0.1:8787"
	defaultStorage       = "sqlite"
	defaultTrackInterval = 5 * time.Second
	defaultPollInterval  = 10 * time.Second
	defaultGeoTimeout    = 10 * time.Second
	envFile              = ".env"
)

// Environment variables that override the file.
const (
	EnvAPIURL      = "DOCENT_API_URL"
	EnvUserID      = "DOCENT_USER_ID"
	EnvDataDir     = "DOCENT_DATA_DIR"
	EnvStorage     = "DOCENT_STORAGE"
	EnvMetricsAddr = "DOCENT_METRICS_ADDR"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:        defaultAPIURL,
		DataDir:       mustExpand(defaultDataDir),
		Storage:       defaultStorage,
		TrackInterval: defaultTrackInterval,
		PollInterval:  defaultPollInterval,
		Geolocation: Geolocation{
			HighAccuracy: true,
			Timeout:      defaultGeoTimeout,
			Simulate:     true,
		},
	}
}

// Load parses the config file, falling back to defaults when it is missing,
// then applies a .env file from the working directory and DOCENT_*
// environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg, err := loadFile(resolved)
	if err != nil {
		return Config{}, err
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	applyEnv(&cfg, os.LookupEnv)

	cfg.DataDir = mustExpand(cfg.DataDir)
	return cfg, nil
}

func loadFile(resolved string) (Config, error) {
	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL               string `toml:"api_url"`
		UserID               string `toml:"user_id"`
		DataDir              string `toml:"data_dir"`
		Storage              string `toml:"storage"`
		TrackIntervalSeconds int    `toml:"track_interval_seconds"`
		PollIntervalSeconds  int    `toml:"poll_interval_seconds"`
		MetricsAddr          string `toml:"metrics_addr"`
		Geolocation          struct {
			HighAccuracy   *bool `toml:"high_accuracy"`
			TimeoutSeconds int   `toml:"timeout_seconds"`
			Simulate       *bool `toml:"simulate"`
		} `toml:"geolocation"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.UserID = strings.TrimSpace(raw.UserID)
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(raw.Storage); v != "" {
		cfg.Storage = strings.ToLower(v)
	}
	if raw.TrackIntervalSeconds > 0 {
		cfg.TrackInterval = time.Duration(raw.TrackIntervalSeconds) * time.Second
	}
	if raw.PollIntervalSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollIntervalSeconds) * time.Second
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if raw.Geolocation.HighAccuracy != nil {
		cfg.Geolocation.HighAccuracy = *raw.Geolocation.HighAccuracy
	}
	if raw.Geolocation.TimeoutSeconds > 0 {
		cfg.Geolocation.Timeout = time.Duration(raw.Geolocation.TimeoutSeconds) * time.Second
	}
	if raw.Geolocation.Simulate != nil {
		cfg.Geolocation.Simulate = *raw.Geolocation.Simulate
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvAPIURL, &cfg.APIURL)
	set(EnvUserID, &cfg.UserID)
	set(EnvDataDir, &cfg.DataDir)
	set(EnvStorage, &cfg.Storage)
	set(EnvMetricsAddr, &cfg.MetricsAddr)
	cfg.Storage = strings.ToLower(cfg.Storage)
}

// LogPath returns the path of docent's own log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir + "/docent.log")
	}
	return filepath.Join(c.DataDir, "docent.log")
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
