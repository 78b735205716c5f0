package run

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"catcher/internal/api"
	"catcher/internal/config"
	"catcher/internal/control"
	"catcher/internal/hook"
	"catcher/internal/ui"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Server hosts a dashboard controller, its timers, the hook worker, metrics,
// and the control socket.
type Server struct {
	cfg        *config.Config
	logger     *logrus.Logger
	ctl        *ui.Controller
	hooks      *hook.Queue
	metrics    *metrics
	backendURL string
	startedAt  time.Time

	historyMu sync.Mutex
	history   []control.HistoryEntry
}

// NewServer wires a controller for backend. Extra options are applied after
// the server's own, so tests can swap the clock.
func NewServer(cfg *config.Config, logger *logrus.Logger, backend ui.Backend, opts ...ui.Option) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		hooks:     hook.NewQueue(cfg, logger),
		metrics:   newMetrics(),
		startedAt: time.Now(),
		history:   make([]control.HistoryEntry, 0, cfg.UI.HistoryTail),
	}
	if c, ok := backend.(*api.Client); ok {
		s.backendURL = c.BaseURL()
	}
	s.hooks.OnDone = s.metrics.observeHookDone

	base := []ui.Option{
		ui.WithConfig(cfg),
		ui.WithLogger(logger),
		ui.WithView(ui.ViewFunc(s.render)),
		ui.WithRequestObserver(s.metrics.observeRequest),
		ui.WithCommandObserver(s.onCommand),
		ui.WithPanelObserver(s.recordPanel),
	}
	s.ctl = ui.New(backend, append(base, opts...)...)
	return s
}

// Controller exposes the hosted controller.
func (s *Server) Controller() *ui.Controller { return s.ctl }

// Serve runs the daemon until interrupted.
func Serve(cfg *config.Config, logger *logrus.Logger) error {
	if err := config.MustStatePaths(cfg); err != nil {
		return err
	}
	backend, err := control.NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(cfg.Paths.PidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("remove pid file: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv := NewServer(cfg, logger, backend)
	logger.WithField("backend", backend.BaseURL()).Info("catcher daemon starting")
	err = srv.Run(ctx)
	logger.Info("catcher daemon stopped")
	return err
}

// Run starts every daemon loop and blocks until ctx is done or one fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.controlLoop(ctx, ln) })
	g.Go(func() error { return s.hooks.Run(ctx) })
	g.Go(func() error {
		if err := s.ctl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if s.cfg.Metrics.Enabled {
		g.Go(func() error { return s.metricsServe(ctx, s.cfg.Metrics.Addr, s.logger) })
	}
	return g.Wait()
}

func (s *Server) listen() (net.Listener, error) {
	if err := os.Remove(s.cfg.Paths.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Debugf("remove stale socket: %v", err)
	}
	ln, err := net.Listen("unix", s.cfg.Paths.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("control listen: %w", err)
	}
	return ln, nil
}

// render is the daemon's view: it logs transitions and mirrors them into
// gauges. It runs under the controller lock.
func (s *Server) render(st ui.State) {
	s.metrics.observeState(st)
	s.logger.WithFields(logrus.Fields{
		"loading":   st.Loading,
		"modal":     st.ModalOpen,
		"recording": st.Recording,
		"input":     st.Input,
	}).Debug("state")
}

func (s *Server) onCommand(command string, res *api.CommandResult) {
	job := hook.Job{Command: command, Text: res.Result, Timestamp: time.Now()}
	if res.ParsedCommand != nil {
		job.URL = res.ParsedCommand.URL
	}
	s.metrics.observeHook(s.hooks.Submit(job))
}

func (s *Server) recordPanel(p ui.Panel) {
	fields := logrus.Fields{"title": p.Title, "error": p.Error}
	if p.Error {
		s.logger.WithFields(fields).Warn(p.Body)
	} else {
		s.logger.WithFields(fields).Info("panel shown")
	}
	if !s.cfg.History.Enabled {
		return
	}
	entry := control.HistoryEntry{
		Title:     p.Title,
		Body:      p.Body,
		Error:     p.Error,
		Timestamp: p.At,
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, entry)
	if tail := s.cfg.UI.HistoryTail; tail > 0 && len(s.history) > tail {
		s.history = s.history[len(s.history)-tail:]
	}
	if s.cfg.Paths.HistoryPath == "" {
		return
	}
	f, err := os.OpenFile(s.cfg.Paths.HistoryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.logger.Warnf("open history: %v", err)
		return
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(entry); err != nil {
		s.logger.Warnf("write history: %v", err)
	}
}

func (s *Server) copyHistory() []control.HistoryEntry {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	out := make([]control.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Server) controlLoop(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("control accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && ctx.Err() == nil {
			s.logger.Warnf("control connection close: %v", err)
		}
	}()
	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		return
	}
	var req control.Request
	if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
		_ = json.NewEncoder(conn).Encode(control.SimpleResponse{Message: fmt.Sprintf("bad request: %v", err)})
		return
	}
	if err := json.NewEncoder(conn).Encode(s.handle(ctx, req)); err != nil && ctx.Err() == nil {
		s.logger.Warnf("control reply: %v", err)
	}
}

// handle answers one control request.
func (s *Server) handle(ctx context.Context, req control.Request) any {
	switch {
	case req.Op == control.OpStatus:
		return control.Status{
			Running:    true,
			UptimeSec:  time.Since(s.startedAt).Seconds(),
			BackendURL: s.backendURL,
			State:      control.SnapshotOf(s.ctl.State()),
			History:    s.copyHistory(),
		}
	case req.Op == control.OpHealth:
		return control.SimpleResponse{OK: true, Message: "ok"}
	case control.IsAction(req.Op):
		s.logger.WithField("op", req.Op).Debug("control request")
		return control.Apply(ctx, s.ctl, req)
	default:
		return control.SimpleResponse{Message: fmt.Sprintf("unknown op %q", req.Op)}
	}
}
