package ui

import (
	"context"
	"sync"

	"catcher/internal/api"

	"github.com/sirupsen/logrus"
)

// Display ranges for a status refresh: value = base + Intn(span).
var statRanges = [NumStats]struct{ base, span int }{
	StatEmails:   {1, 10},
	StatSlack:    {5, 20},
	StatTasks:    {2, 8},
	StatMeetings: {1, 5},
}

// RefreshStatus polls /status. On success the counters are replaced with
// fresh random values; the payload itself is only kept for reference.
// On failure the counters are left alone and a warning is logged.
func (c *Controller) RefreshStatus(ctx context.Context) error {
	started := c.clock.Now()
	st, err := c.backend.Status(ctx)
	c.observe(ActionRefreshStatus, started, err)
	if err != nil {
		c.logger.WithError(err).Warn("failed to load system status")
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"total_events": st.TotalEvents,
		"unprocessed":  st.UnprocessedEvents,
		"state":        st.State,
	}).Debug("system status")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = st
	for i := Stat(0); i < NumStats; i++ {
		c.stats[i] = statRanges[i].base + c.rand.Intn(statRanges[i].span)
	}
	c.renderLocked()
	return nil
}

// PerturbStats nudges every counter by -1, 0 or +1, never below zero.
func (c *Controller) PerturbStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := Stat(0); i < NumStats; i++ {
		v := c.stats[i] + c.rand.Intn(3) - 1
		if v < 0 {
			v = 0
		}
		c.stats[i] = v
	}
	c.renderLocked()
}

// BackendStatus returns the last /status payload, or nil.
func (c *Controller) BackendStatus() *api.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return nil
	}
	st := *c.status
	return &st
}

// Run loads the status once, then keeps two independent timers until ctx is
// done: the status poll and the stat jitter.
func (c *Controller) Run(ctx context.Context) error {
	statusTick := c.clock.NewTicker(c.statusEvery)
	defer statusTick.Stop()
	jitterTick := c.clock.NewTicker(c.jitterEvery)
	defer jitterTick.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.RefreshStatus(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-statusTick.C():
				_ = c.RefreshStatus(ctx)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-jitterTick.C():
				c.PerturbStats()
			}
		}
	}()
	wg.Wait()
	return ctx.Err()
}
