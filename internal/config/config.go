package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultBackendURL    = "http://localhost:8000"
	DefaultPlaceholder   = "Open Gmail"
	defaultCaptureMS     = 2000
	defaultStatusSec     = 30
	defaultJitterSec     = 10
	defaultHistoryTail   = 10
	defaultStateDirLinux = ".local/state/catcher"
	defaultConfigDir     = ".config/catcher"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Backend struct {
		BaseURL    string  `toml:"base_url"`
		TimeoutSec float64 `toml:"timeout_sec"` // 0 = no client timeout
	} `toml:"backend"`

	Polling struct {
		StatusIntervalSec int `toml:"status_interval_sec"`
		JitterIntervalSec int `toml:"jitter_interval_sec"`
	} `toml:"polling"`

	Voice struct {
		CaptureMS   int    `toml:"capture_ms"`
		Placeholder string `toml:"placeholder"`
	} `toml:"voice"`

	Hooks []HookConfig `toml:"hooks"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir    string `toml:"state_dir"`
		LogPath     string `toml:"log_path"`
		HistoryPath string `toml:"history_path"`
		SocketPath  string `toml:"socket_path"`
		PidPath     string `toml:"pid_path"`
		ConfigPath  string `toml:"-"`
	} `toml:"paths"`

	UI struct {
		HistoryTail int      `toml:"history_tail"`
		Examples    []string `toml:"examples"`
		AltScreen   bool     `toml:"alt_screen"`
	} `toml:"ui"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`

	History struct {
		Enabled bool `toml:"enabled"`
	} `toml:"history"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/catcher for state/logs
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "catcher")
	}

	cfg := &Config{}

	cfg.Backend.BaseURL = DefaultBackendURL
	cfg.Backend.TimeoutSec = 0

	cfg.Polling.StatusIntervalSec = defaultStatusSec
	cfg.Polling.JitterIntervalSec = defaultJitterSec

	cfg.Voice.CaptureMS = defaultCaptureMS
	cfg.Voice.Placeholder = DefaultPlaceholder

	cfg.Hooks = []HookConfig{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.LogPath = filepath.Join(stateDir, "catcher.log")
	cfg.Paths.HistoryPath = filepath.Join(stateDir, "history.log")
	cfg.Paths.SocketPath = filepath.Join(stateDir, "catcher.sock")
	cfg.Paths.PidPath = filepath.Join(stateDir, "catcher.pid")

	cfg.UI.HistoryTail = defaultHistoryTail
	cfg.UI.Examples = []string{
		`"Open Gmail"`,
		`"Search YouTube for lo-fi music"`,
		`"Google vendor pricing"`,
		`"Open Notion Q3 doc"`,
	}

	cfg.Metrics.Enabled = false
	cfg.Metrics.Addr = "127.0.0.1:9318"

	cfg.History.Enabled = true

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects settings the controller cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url is empty")
	}
	if c.Backend.TimeoutSec < 0 {
		return fmt.Errorf("backend.timeout_sec must be >= 0 (got %v)", c.Backend.TimeoutSec)
	}
	if c.Polling.StatusIntervalSec <= 0 || c.Polling.JitterIntervalSec <= 0 {
		return fmt.Errorf("polling intervals must be positive (status=%d jitter=%d)",
			c.Polling.StatusIntervalSec, c.Polling.JitterIntervalSec)
	}
	if c.Voice.CaptureMS <= 0 {
		return fmt.Errorf("voice.capture_ms must be positive (got %d)", c.Voice.CaptureMS)
	}
	return nil
}

// StatusInterval is the period of the /status poll.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Polling.StatusIntervalSec) * time.Second
}

// JitterInterval is the period of the stat perturbation.
func (c *Config) JitterInterval() time.Duration {
	return time.Duration(c.Polling.JitterIntervalSec) * time.Second
}

// CaptureWindow is how long simulated voice capture stays active.
func (c *Config) CaptureWindow() time.Duration {
	return time.Duration(c.Voice.CaptureMS) * time.Millisecond
}

// BackendTimeout returns the per-request timeout, zero meaning none.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(float64(time.Second) * c.Backend.TimeoutSec)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, filepath.Dir(cfg.Paths.LogPath), filepath.Dir(cfg.Paths.HistoryPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CATCHER_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("CATCHER_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("CATCHER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CATCHER_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CATCHER_HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = truthy(v)
	}
	if v := os.Getenv("CATCHER_REDACT_PII"); v != "" {
		on := truthy(v)
		for i := range cfg.Hooks {
			cfg.Hooks[i].RedactPII = on
		}
	}
}

func truthy(v string) bool {
	return v != "0" && strings.ToLower(v) != "false"
}
