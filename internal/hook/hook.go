package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"catcher/internal/config"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// Job represents a hook invocation request.
type Job struct {
	Command   string // the command text the user sent
	Text      string // the backend's result
	URL       string // parsed_command.url, when the backend supplied one
	Timestamp time.Time

	hook *config.HookConfig // pinned by Queue.Submit
}

// Runner executes hooks with cooldown and prefix handling.
type Runner struct {
	cfg      *config.Config
	logger   logrus.FieldLogger
	lastRun  time.Time
	mu       sync.Mutex
	hostname string
	selected *config.HookConfig
}

func NewRunner(cfg *config.Config, logger logrus.FieldLogger) *Runner {
	host, _ := os.Hostname()
	r := &Runner{
		cfg:      cfg,
		logger:   logger,
		hostname: host,
	}
	if len(cfg.Hooks) > 0 {
		r.selected = &cfg.Hooks[0]
	}
	return r
}

// SelectHook sets the hook used by the next Run.
func (r *Runner) SelectHook(hk *config.HookConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = hk
}

// ShouldRun returns whether cooldown allows a new hook.
func (r *Runner) ShouldRun() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil || r.selected.CooldownSec <= 0 {
		return true
	}
	return time.Since(r.lastRun).Seconds() >= r.selected.CooldownSec
}

// Run executes the selected hook with the job's result as the last argument.
func (r *Runner) Run(ctx context.Context, job Job) error {
	r.mu.Lock()
	r.lastRun = time.Now()
	hk := job.hook
	if hk == nil {
		hk = r.selected
	}
	r.mu.Unlock()

	if hk == nil || hk.Command == "" {
		return fmt.Errorf("no hook command configured")
	}
	args, err := hookArgs(hk)
	if err != nil {
		return err
	}

	prefix := strings.ReplaceAll(hk.Prefix, "${hostname}", r.hostname)
	text := job.Text
	if hk.RedactPII {
		text = redactPII(text)
	}
	payload := strings.TrimSpace(prefix + text)
	args = append(args, payload)

	runCtx := ctx
	var cancel context.CancelFunc
	if hk.TimeoutSec > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(float64(time.Second)*hk.TimeoutSec))
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, os.ExpandEnv(hk.Command), args...)
	cmd.Env = os.Environ()
	for k, v := range hk.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("CATCHER_COMMAND=%s", job.Command),
		fmt.Sprintf("CATCHER_TEXT=%s", text),
		fmt.Sprintf("CATCHER_URL=%s", job.URL),
		fmt.Sprintf("CATCHER_PREFIX=%s", prefix),
	)

	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		r.logger.Infof("hook output: %s", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("hook failed: %w", err)
	}
	return nil
}

func hookArgs(hk *config.HookConfig) ([]string, error) {
	args := append([]string{}, hk.Args...)
	if hk.ArgsLine != "" {
		extra, err := ParseArgs(hk.ArgsLine)
		if err != nil {
			return nil, fmt.Errorf("parse hook args_line: %w", err)
		}
		args = append(args, extra...)
	}
	return args, nil
}

// ParseArgs splits a hook argument string shell-style.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}

var (
	emailRE = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`\+?\d[\d\s\-\(\)]{6,}\d`)
)

func redactPII(s string) string {
	s = emailRE.ReplaceAllString(s, "[redacted-email]")
	s = phoneRE.ReplaceAllString(s, "[redacted-phone]")
	return s
}
