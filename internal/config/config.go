package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scraper modes. Selected once at startup; the engine only ever sees the
// Fetcher interface.
const (
	ModeLive   = "live"
	ModeReplay = "replay"
)

// Config is the application's configuration model.
type Config struct {
	Scraper Scraper `yaml:"scraper"`
	Storage Storage `yaml:"storage"`
	Metrics Metrics `yaml:"metrics"`
	Loop    Loop    `yaml:"loop"`
}

type Scraper struct {
	// "live" talks to the Apify actor, "replay" serves synthetic posts.
	Mode string `yaml:"mode"`
	// Apify API token. If empty, read from env APIFY_TOKEN.
	Token string `yaml:"token"`
	// Actor id of the tweet scraper to call.
	ActorID string `yaml:"actorId"`
	// Cap on items per keyword search; bounds cost and latency.
	MaxItems int `yaml:"maxItems"`
}

type Storage struct {
	DBPath string `yaml:"dbPath"`
}

type Metrics struct {
	// Listen address for /metrics, e.g. ":9090". Empty disables the server.
	Addr string `yaml:"addr"`
}

type Loop struct {
	// How often the scheduler polls for due projects, in minutes.
	PollMinutes int `yaml:"pollMinutes"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Scraper: Scraper{
			Mode:     ModeReplay,
			ActorID:  "61RPP7dywgiy0JPD0",
			MaxItems: 100,
		},
		Storage: Storage{DBPath: "./pulseboard.db"},
		Metrics: Metrics{Addr: ""},
		Loop:    Loop{PollMinutes: 5},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Scraper.Token == "" {
		c.Scraper.Token = os.Getenv("APIFY_TOKEN")
	}
	if v := os.Getenv("PULSEBOARD_DB"); v != "" && c.Storage.DBPath == "" {
		c.Storage.DBPath = v
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Validate rejects configurations the process cannot run with.
func (c *Config) Validate() error {
	switch c.Scraper.Mode {
	case ModeLive, ModeReplay:
	default:
		return fmt.Errorf("scraper.mode must be %q or %q, got %q", ModeLive, ModeReplay, c.Scraper.Mode)
	}
	if c.Scraper.Mode == ModeLive && c.Scraper.Token == "" {
		return errors.New("scraper.token (or APIFY_TOKEN) is required in live mode")
	}
	if c.Scraper.MaxItems <= 0 {
		return errors.New("scraper.maxItems must be positive")
	}
	if c.Storage.DBPath == "" {
		return errors.New("storage.dbPath is required")
	}
	return nil
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
