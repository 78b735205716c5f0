// Package doctor runs environment checks for the catcher CLI.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"catcher/internal/api"
	"catcher/internal/config"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(ctx context.Context, cfg *config.Config) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkDirWritable("state dir", cfg.Paths.StateDir),
		checkBackend(ctx, cfg),
	}
	for i := range cfg.Hooks {
		results = append(results, checkHookExecutable(fmt.Sprintf("hooks[%d]", i), cfg.Hooks[i].Command))
	}
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkDirWritable(label, dir string) Result {
	if dir == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return Result{Name: label, Pass: true, Detail: filepath.Clean(dir)}
}

func checkBackend(ctx context.Context, cfg *config.Config) Result {
	label := "backend"
	client, err := api.New(cfg.Backend.BaseURL, api.WithTimeout(5*time.Second))
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	h, err := client.Health(ctx)
	if api.IsStatus(err, http.StatusNotFound) {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("%s has no /health endpoint; check backend.base_url", client.BaseURL())}
	}
	if err != nil {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("%s: %v", client.BaseURL(), err)}
	}
	if h.Status != "healthy" {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("%s reports %q", client.BaseURL(), h.Status)}
	}
	return Result{Name: label, Pass: true, Detail: client.BaseURL()}
}

func checkHookExecutable(label, cmd string) Result {
	if cmd == "" {
		return Result{Name: label, Pass: false, Detail: "command not set"}
	}
	path := os.ExpandEnv(cmd)
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory; set command to an executable file"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable; chmod +x or choose another command"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}
