package hook

import (
	"context"

	"catcher/internal/config"

	"github.com/sirupsen/logrus"
)

// Outcome of Queue.Submit.
type Outcome int

const (
	Queued Outcome = iota
	Skipped         // no hook configured, or cooldown active
	Dropped         // queue full
)

// Queue feeds jobs to a single worker so hooks never block the controller.
type Queue struct {
	cfg    *config.Config
	runner *Runner
	logger logrus.FieldLogger
	ch     chan Job

	// OnDone, when set, is called after each job with its error.
	OnDone func(error)
}

// NewQueue sizes the queue to the largest hooks[].queue_size (minimum 16).
func NewQueue(cfg *config.Config, logger logrus.FieldLogger) *Queue {
	return &Queue{
		cfg:    cfg,
		runner: NewRunner(cfg, logger),
		logger: logger,
		ch:     make(chan Job, queueSize(cfg)),
	}
}

func queueSize(cfg *config.Config) int {
	maxQ := 16
	for i := range cfg.Hooks {
		if cfg.Hooks[i].QueueSize > maxQ {
			maxQ = cfg.Hooks[i].QueueSize
		}
	}
	return maxQ
}

// Submit selects the hook for job.Command and enqueues the job.
func (q *Queue) Submit(job Job) Outcome {
	hk := SelectHookConfig(q.cfg, job.Command)
	if hk == nil {
		return Skipped
	}
	q.runner.SelectHook(hk)
	if !q.runner.ShouldRun() {
		q.logger.Debug("hook skipped (cooldown)")
		return Skipped
	}
	job.hook = hk
	select {
	case q.ch <- job:
		return Queued
	default:
		q.logger.Warn("hook queue full, dropping job")
		return Dropped
	}
}

// Run drains the queue until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-q.ch:
			err := q.runner.Run(ctx, job)
			if err != nil {
				q.logger.Errorf("hook: %v", err)
			}
			if q.OnDone != nil {
				q.OnDone(err)
			}
		}
	}
}
