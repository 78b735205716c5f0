package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = "/tmp/config" // avoid creation
	cfg.Hooks = []HookConfig{{Command: "/bin/echo"}}

	t.Setenv("CATCHER_BACKEND_URL", "http://10.0.0.2:9000")
	t.Setenv("CATCHER_METRICS_ADDR", "1.2.3.4:9999")
	t.Setenv("CATCHER_LOG_LEVEL", "debug")
	t.Setenv("CATCHER_LOG_FORMAT", "json")
	t.Setenv("CATCHER_HISTORY_ENABLED", "false")
	t.Setenv("CATCHER_REDACT_PII", "1")

	applyEnvOverrides(cfg)

	if cfg.Backend.BaseURL != "http://10.0.0.2:9000" {
		t.Fatalf("backend override failed: %q", cfg.Backend.BaseURL)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "1.2.3.4:9999" {
		t.Fatalf("metrics override failed: %+v", cfg.Metrics)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging overrides failed: %+v", cfg.Logging)
	}
	if cfg.History.Enabled {
		t.Fatalf("history should be disabled via env")
	}
	if !cfg.Hooks[0].RedactPII {
		t.Fatalf("redact override should apply to every hook")
	}
}

func TestDefaultsMatchBrowserTimings(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if cfg.StatusInterval() != 30*time.Second {
		t.Fatalf("status interval = %s", cfg.StatusInterval())
	}
	if cfg.JitterInterval() != 10*time.Second {
		t.Fatalf("jitter interval = %s", cfg.JitterInterval())
	}
	if cfg.CaptureWindow() != 2*time.Second {
		t.Fatalf("capture window = %s", cfg.CaptureWindow())
	}
	if cfg.Voice.Placeholder != "Open Gmail" {
		t.Fatalf("placeholder = %q", cfg.Voice.Placeholder)
	}
	if cfg.BackendTimeout() != 0 {
		t.Fatalf("default timeout should be unset")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	cfg.Paths.ConfigPath = path
	cfg.Backend.BaseURL = "http://backend.local:8000"
	cfg.Hooks = []HookConfig{{Match: []string{"gmail"}, Command: "/bin/echo"}}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Backend.BaseURL != "http://backend.local:8000" {
		t.Fatalf("expected base url to persist, got %q", loaded.Backend.BaseURL)
	}
	if len(loaded.Hooks) != 1 || loaded.Hooks[0].Command != "/bin/echo" {
		t.Fatalf("expected hook to persist: %+v", loaded.Hooks)
	}
	if loaded.Paths.ConfigPath != path {
		t.Fatalf("config path not recorded")
	}
}

func TestLoadWritesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != DefaultBackendURL {
		t.Fatalf("unexpected base url %q", cfg.Backend.BaseURL)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}
}

func TestLoadRejectsInvalidIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[polling]\nstatus_interval_sec = 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadValidatesOverridesOnFirstRun(t *testing.T) {
	t.Setenv("CATCHER_BACKEND_URL", "   ")
	path := filepath.Join(t.TempDir(), "config.toml")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected blank backend url to be rejected")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template should still be written: %v", err)
	}
}
