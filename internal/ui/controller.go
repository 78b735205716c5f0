// Package ui holds the dashboard controller: the transient modal, loading,
// recording and response state, and the actions that drive the backend.
package ui

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"catcher/internal/api"
	"catcher/internal/clock"
	"catcher/internal/config"

	"github.com/sirupsen/logrus"
)

// Controller owns the dashboard state. All methods are safe for concurrent use;
// network actions block the calling goroutine until the request settles.
type Controller struct {
	backend Backend
	clock   clock.Clock
	rand    clock.Rand
	view    View
	logger  logrus.FieldLogger

	captureWindow time.Duration
	statusEvery   time.Duration
	jitterEvery   time.Duration
	placeholder   string
	examples      []string

	onRequest func(Action, time.Duration, error)
	onCommand func(string, *api.CommandResult)
	onPanel   func(Panel)

	mu        sync.Mutex
	pending   int
	modalOpen bool
	input     string
	recording bool
	response  Panel
	stats     Stats
	status    *api.Status
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects the clock used for voice capture and polling.
func WithClock(c clock.Clock) Option { return func(ctl *Controller) { ctl.clock = c } }

// WithRand injects the random source for the stat displays.
func WithRand(r clock.Rand) Option { return func(ctl *Controller) { ctl.rand = r } }

// WithView sets the renderer.
func WithView(v View) Option { return func(ctl *Controller) { ctl.view = v } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(ctl *Controller) { ctl.logger = l } }

// WithConfig applies the polling, voice and example settings from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(ctl *Controller) {
		ctl.captureWindow = cfg.CaptureWindow()
		ctl.statusEvery = cfg.StatusInterval()
		ctl.jitterEvery = cfg.JitterInterval()
		if cfg.Voice.Placeholder != "" {
			ctl.placeholder = cfg.Voice.Placeholder
		}
		ctl.examples = append([]string(nil), cfg.UI.Examples...)
	}
}

// WithRequestObserver is told about every settled backend request.
func WithRequestObserver(f func(Action, time.Duration, error)) Option {
	return func(ctl *Controller) { ctl.onRequest = f }
}

// WithCommandObserver is told about every successful command result.
func WithCommandObserver(f func(command string, res *api.CommandResult)) Option {
	return func(ctl *Controller) { ctl.onCommand = f }
}

// WithPanelObserver is told about every panel shown, errors included.
func WithPanelObserver(f func(Panel)) Option {
	return func(ctl *Controller) { ctl.onPanel = f }
}

// New returns a controller for backend with browser-equivalent defaults:
// 2s capture window, 30s status poll, 10s stat jitter.
func New(backend Backend, opts ...Option) *Controller {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := &Controller{
		backend:       backend,
		clock:         clock.Real(),
		rand:          clock.NewRand(time.Now().UnixNano()),
		logger:        logger,
		captureWindow: 2 * time.Second,
		statusEvery:   30 * time.Second,
		jitterEvery:   10 * time.Second,
		placeholder:   config.DefaultPlaceholder,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Recording reports whether simulated voice capture is active.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Loading reports whether any request is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

// Examples returns the example commands offered in the modal.
func (c *Controller) Examples() []string {
	return append([]string(nil), c.examples...)
}

// Yesterday fetches and shows yesterday's recap.
func (c *Controller) Yesterday(ctx context.Context) Panel {
	return c.briefing(ctx, ActionYesterday, api.Yesterday, titleYesterday, errYesterday)
}

// Today fetches and shows today's plan.
func (c *Controller) Today(ctx context.Context) Panel {
	return c.briefing(ctx, ActionToday, api.Today, titleToday, errToday)
}

func (c *Controller) briefing(ctx context.Context, action Action, day api.Day, title, failure string) Panel {
	c.beginRequest()
	defer c.endRequest()

	started := c.clock.Now()
	b, err := c.backend.Briefing(ctx, day)
	c.observe(action, started, err)
	if err != nil {
		c.logger.WithError(err).WithField("action", action).Debug("briefing failed")
		return c.showError(failure)
	}
	return c.showResponse(title, b.Text)
}

// OpenCommand shows the command modal.
func (c *Controller) OpenCommand() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modalOpen = true
	c.renderLocked()
}

// CloseCommand hides the modal, clears the input and stops voice capture.
func (c *Controller) CloseCommand() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeModalLocked()
	c.renderLocked()
}

func (c *Controller) closeModalLocked() {
	c.modalOpen = false
	c.input = ""
	c.recording = false
}

// SetInput replaces the modal input text.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
	c.renderLocked()
}

// PickExample copies an example command into the input, without its quotes.
func (c *Controller) PickExample(example string) {
	c.SetInput(strings.ReplaceAll(example, `"`, ""))
}

// Execute sends the trimmed input as a command. An empty input is a no-op:
// nothing is sent and ok is false.
func (c *Controller) Execute(ctx context.Context) (p Panel, ok bool) {
	c.mu.Lock()
	command := strings.TrimSpace(c.input)
	c.mu.Unlock()
	if command == "" {
		return Panel{}, false
	}

	c.beginRequest()
	defer c.endRequest()

	started := c.clock.Now()
	res, err := c.backend.Command(ctx, command)
	c.observe(ActionExecute, started, err)
	if err != nil {
		c.logger.WithError(err).Debug("command failed")
		return c.showError(errCommand), true
	}

	c.mu.Lock()
	c.closeModalLocked()
	c.mu.Unlock()
	p = c.showResponse(titleCommand, res.Result)
	if c.onCommand != nil {
		c.onCommand(command, res)
	}
	return p, true
}

// ToggleVoice starts simulated capture, or stops it if active.
func (c *Controller) ToggleVoice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		c.recording = false
	} else {
		c.startCaptureLocked()
	}
	c.renderLocked()
}

// StartCapture begins simulated voice capture. After the capture window the
// capture stops and the placeholder text replaces the input, even if the
// capture was stopped by hand in the meantime.
func (c *Controller) StartCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCaptureLocked()
	c.renderLocked()
}

// StopCapture ends simulated voice capture.
func (c *Controller) StopCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = false
	c.renderLocked()
}

func (c *Controller) startCaptureLocked() {
	c.recording = true
	c.clock.AfterFunc(c.captureWindow, c.finishCapture)
}

func (c *Controller) finishCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recording = false
	c.input = c.placeholder
	c.renderLocked()
}

// CloseResponse hides the response panel.
func (c *Controller) CloseResponse() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.response.Visible = false
	c.renderLocked()
}

func (c *Controller) showResponse(title, body string) Panel {
	return c.show(Panel{Title: title, Body: body})
}

func (c *Controller) showError(message string) Panel {
	return c.show(Panel{Title: titleError, Body: message, Error: true})
}

func (c *Controller) show(p Panel) Panel {
	p.Visible = true
	p.At = c.clock.Now()
	c.mu.Lock()
	c.response = p
	c.renderLocked()
	c.mu.Unlock()
	if c.onPanel != nil {
		c.onPanel(p)
	}
	return p
}

func (c *Controller) beginRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending++
	c.renderLocked()
}

func (c *Controller) endRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending > 0 {
		c.pending--
	}
	c.renderLocked()
}

func (c *Controller) observe(action Action, started time.Time, err error) {
	if c.onRequest != nil {
		c.onRequest(action, c.clock.Now().Sub(started), err)
	}
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Loading:   c.pending > 0,
		Pending:   c.pending,
		ModalOpen: c.modalOpen,
		Input:     c.input,
		Recording: c.recording,
		Response:  c.response,
		Stats:     c.stats,
	}
	if c.status != nil {
		st := *c.status
		s.Backend = &st
	}
	return s
}

func (c *Controller) renderLocked() {
	if c.view != nil {
		c.view.Render(c.snapshotLocked())
	}
}
