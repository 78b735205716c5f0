package daemon

import (
	"fmt"
	"os"
	"testing"
	"time"

	"catcher/internal/config"
)

func TestWaitForShutdownSucceedsWhenPidFileRemoved(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.ConfigPath = dir + "/config.toml"
	cfg.Paths.PidPath = dir + "/catcher.pid"
	if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
		t.Fatalf("save cfg: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.PidPath, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.Remove(cfg.Paths.PidPath)
	}()
	if err := waitForShutdown(cfg.Paths.ConfigPath, 2*time.Second); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestWaitForShutdownTimesOutOnAlivePid(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.ConfigPath = dir + "/config.toml"
	cfg.Paths.PidPath = dir + "/catcher.pid"
	if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
		t.Fatalf("save cfg: %v", err)
	}
	selfPid := os.Getpid()
	if err := os.WriteFile(cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", selfPid)), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if err := waitForShutdown(cfg.Paths.ConfigPath, 300*time.Millisecond); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestRuntimeEnvFromFlags(t *testing.T) {
	cmd := NewStartCmd(new(string))
	if env := runtimeEnv(cmd); len(env) != 0 {
		t.Fatalf("expected no env without flags, got %v", env)
	}
	if err := cmd.Flags().Set("metrics-addr", "127.0.0.1:9999"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := cmd.Flags().Set("backend-url", "http://backend:8000"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	env := runtimeEnv(cmd)
	want := []string{"CATCHER_BACKEND_URL=http://backend:8000", "CATCHER_METRICS_ADDR=127.0.0.1:9999"}
	if len(env) != len(want) || env[0] != want[0] || env[1] != want[1] {
		t.Fatalf("env = %v, want %v", env, want)
	}
}

func TestEnsureNotRunningDetectsLivePid(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := config.Default()
	cfg.Paths.PidPath = dir + "/catcher.pid"
	if err := ensureNotRunning(cfg); err != nil {
		t.Fatalf("no pid file should be fine: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if err := ensureNotRunning(cfg); err == nil {
		t.Fatalf("expected already running error")
	}
}
