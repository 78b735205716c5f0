package ui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"catcher/internal/api"
	"catcher/internal/clock"
	"catcher/internal/config"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	commands []string
	err      error
	// gate, when set, is received from before every call returns.
	gate   chan struct{}
	during func()
}

func (f *fakeBackend) record(name string) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate, during, err := f.gate, f.during, f.err
	f.mu.Unlock()
	if during != nil {
		during()
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeBackend) Briefing(ctx context.Context, day api.Day) (*api.Briefing, error) {
	if err := f.record("GET /briefing/" + string(day)); err != nil {
		return nil, err
	}
	return &api.Briefing{Text: "<b>" + string(day) + "</b> briefing"}, nil
}

func (f *fakeBackend) Command(ctx context.Context, command string) (*api.CommandResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()
	if err := f.record("POST /command"); err != nil {
		return nil, err
	}
	return &api.CommandResult{Result: "done: " + command}, nil
}

func (f *fakeBackend) Status(ctx context.Context) (*api.Status, error) {
	if err := f.record("GET /status"); err != nil {
		return nil, err
	}
	return &api.Status{TotalEvents: 12, State: "running"}, nil
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) Render(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) All() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func newTestController(t *testing.T, b Backend, opts ...Option) (*Controller, *clock.Fake, *stateLog) {
	t.Helper()
	fc := clock.NewFake(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	view := &stateLog{}
	base := []Option{WithClock(fc), WithRand(clock.NewSeqRand(1)), WithView(view)}
	return New(b, append(base, opts...)...), fc, view
}

func TestEachActionIssuesOneRequest(t *testing.T) {
	cases := []struct {
		name string
		run  func(*Controller)
		want string
	}{
		{"yesterday", func(c *Controller) { c.Yesterday(context.Background()) }, "GET /briefing/yesterday"},
		{"today", func(c *Controller) { c.Today(context.Background()) }, "GET /briefing/today"},
		{"execute", func(c *Controller) {
			c.SetInput("Open Gmail")
			c.Execute(context.Background())
		}, "POST /command"},
		{"status", func(c *Controller) { _ = c.RefreshStatus(context.Background()) }, "GET /status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBackend{}
			c, _, _ := newTestController(t, b)
			tc.run(c)
			assert.Equal(t, []string{tc.want}, b.Calls())
		})
	}
}

func TestBriefingShowsTextVerbatim(t *testing.T) {
	b := &fakeBackend{}
	c, _, _ := newTestController(t, b)

	p := c.Yesterday(context.Background())
	assert.Equal(t, "Yesterday's Recap", p.Title)
	assert.Equal(t, "<b>yesterday</b> briefing", p.Body)
	assert.True(t, p.Visible)
	assert.False(t, p.Error)

	p = c.Today(context.Background())
	assert.Equal(t, "Today's Plan", p.Title)
	assert.Equal(t, p, c.State().Response)
}

func TestLoadingSpansRequest(t *testing.T) {
	for _, fail := range []bool{false, true} {
		b := &fakeBackend{}
		if fail {
			b.err = errors.New("connection refused")
		}
		c, _, view := newTestController(t, b)
		var during []bool
		b.during = func() { during = append(during, c.Loading()) }

		c.Yesterday(context.Background())
		c.Today(context.Background())
		c.SetInput("Open Gmail")
		c.Execute(context.Background())

		assert.Equal(t, []bool{true, true, true}, during, "fail=%v", fail)
		assert.False(t, c.Loading(), "fail=%v", fail)

		// The panel is rendered before loading clears, as in a finally block.
		states := view.All()
		last := states[len(states)-1]
		assert.False(t, last.Loading)
		assert.True(t, states[len(states)-2].Loading)
		assert.True(t, states[len(states)-2].Response.Visible)
	}
}

func TestLoadingCountsOverlappingRequests(t *testing.T) {
	b := &fakeBackend{gate: make(chan struct{})}
	c, _, _ := newTestController(t, b)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.Yesterday(context.Background()) }()
	go func() { defer wg.Done(); c.Today(context.Background()) }()

	require.Eventually(t, func() bool { return c.State().Pending == 2 }, time.Second, time.Millisecond)
	b.gate <- struct{}{}
	require.Eventually(t, func() bool { return c.State().Pending == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.Loading())
	b.gate <- struct{}{}
	wg.Wait()
	assert.False(t, c.Loading())
	assert.Len(t, b.Calls(), 2)
}

func TestExecuteEmptyIsNoop(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		b := &fakeBackend{}
		c, _, view := newTestController(t, b)
		c.OpenCommand()
		c.SetInput(input)

		_, ok := c.Execute(context.Background())
		assert.False(t, ok)
		assert.Empty(t, b.Calls())
		for _, s := range view.All() {
			assert.False(t, s.Loading)
		}
		assert.True(t, c.State().ModalOpen)
	}
}

func TestExecuteTrimsAndClosesModal(t *testing.T) {
	b := &fakeBackend{}
	var observed []string
	c, _, _ := newTestController(t, b, WithCommandObserver(func(cmd string, res *api.CommandResult) {
		observed = append(observed, cmd+" => "+res.Result)
	}))
	c.OpenCommand()
	c.SetInput("  Open Gmail  ")

	p, ok := c.Execute(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Command Result", p.Title)
	assert.Equal(t, "done: Open Gmail", p.Body)
	assert.Equal(t, []string{"Open Gmail"}, b.commands)
	assert.Equal(t, []string{"Open Gmail => done: Open Gmail"}, observed)

	st := c.State()
	assert.False(t, st.ModalOpen)
	assert.Empty(t, st.Input)
}

func TestExecuteFailureKeepsModal(t *testing.T) {
	b := &fakeBackend{err: errors.New("boom")}
	called := false
	c, _, _ := newTestController(t, b, WithCommandObserver(func(string, *api.CommandResult) { called = true }))
	c.OpenCommand()
	c.SetInput("Open Slack")

	p, ok := c.Execute(context.Background())
	require.True(t, ok)
	assert.True(t, p.Error)
	assert.Equal(t, "Failed to execute command", p.Body)
	assert.False(t, called)

	st := c.State()
	assert.True(t, st.ModalOpen)
	assert.Equal(t, "Open Slack", st.Input)
}

func TestNon2xxShowsGenericError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"sqlite3.OperationalError: no such table: voice_briefings"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()
	client, err := api.New(srv.URL)
	require.NoError(t, err)
	c, _, _ := newTestController(t, client)

	checks := []struct {
		run  func() Panel
		want string
	}{
		{func() Panel { return c.Yesterday(context.Background()) }, "Failed to get yesterday's recap"},
		{func() Panel { return c.Today(context.Background()) }, "Failed to get today's plan"},
		{func() Panel {
			c.SetInput("Open Gmail")
			p, _ := c.Execute(context.Background())
			return p
		}, "Failed to execute command"},
	}
	for _, chk := range checks {
		p := chk.run()
		assert.True(t, p.Error)
		assert.Equal(t, "Error", p.Title)
		assert.Equal(t, chk.want, p.Body)
		assert.NotContains(t, p.Body, "sqlite3")
	}
	assert.False(t, c.Loading())
}

func TestVoiceCaptureInjectsPlaceholder(t *testing.T) {
	c, fc, _ := newTestController(t, &fakeBackend{})
	c.OpenCommand()

	c.ToggleVoice()
	assert.True(t, c.Recording())

	c.SetInput("typing meanwhile")
	fc.Advance(1999 * time.Millisecond)
	assert.True(t, c.Recording())
	assert.Equal(t, "typing meanwhile", c.State().Input)

	fc.Advance(time.Millisecond)
	assert.False(t, c.Recording())
	assert.Equal(t, "Open Gmail", c.State().Input)
}

func TestVoiceTimerFiresAfterManualStop(t *testing.T) {
	c, fc, _ := newTestController(t, &fakeBackend{})
	c.ToggleVoice()
	c.ToggleVoice()
	assert.False(t, c.Recording())

	fc.Advance(2 * time.Second)
	assert.False(t, c.Recording())
	assert.Equal(t, "Open Gmail", c.State().Input)
}

func TestCloseCommandStopsCaptureAndClears(t *testing.T) {
	c, _, _ := newTestController(t, &fakeBackend{})
	c.OpenCommand()
	c.SetInput("half typed")
	c.StartCapture()

	c.CloseCommand()
	st := c.State()
	assert.False(t, st.ModalOpen)
	assert.False(t, st.Recording)
	assert.Empty(t, st.Input)
}

func TestVoiceUsesConfiguredWindow(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Voice.CaptureMS = 500
	cfg.Voice.Placeholder = "Open Notion"
	c, fc, _ := newTestController(t, &fakeBackend{}, WithConfig(cfg))

	c.StartCapture()
	fc.Advance(500 * time.Millisecond)
	assert.Equal(t, "Open Notion", c.State().Input)
}

func TestRefreshStatusUsesLocalRandomness(t *testing.T) {
	b := &fakeBackend{}
	c, _, _ := newTestController(t, b, WithRand(clock.NewSeqRand(0, 0, 0, 0)))

	require.NoError(t, c.RefreshStatus(context.Background()))
	assert.Equal(t, Stats{1, 5, 2, 1}, c.State().Stats)
	require.NotNil(t, c.BackendStatus())
	assert.Equal(t, 12, c.BackendStatus().TotalEvents)

	c2, _, _ := newTestController(t, b, WithRand(clock.NewSeqRand(9, 19, 7, 4)))
	require.NoError(t, c2.RefreshStatus(context.Background()))
	assert.Equal(t, Stats{10, 24, 9, 5}, c2.State().Stats)
}

func TestRefreshStatusFailureLogsAndKeepsStats(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	b := &fakeBackend{}
	c, _, _ := newTestController(t, b, WithLogger(logger), WithRand(clock.NewSeqRand(3)))
	require.NoError(t, c.RefreshStatus(context.Background()))
	before := c.State().Stats

	b.err = errors.New("dial tcp: connection refused")
	require.Error(t, c.RefreshStatus(context.Background()))
	assert.Equal(t, before, c.State().Stats)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.False(t, c.State().Response.Visible)
}

func TestPerturbNeverBelowZero(t *testing.T) {
	c, _, _ := newTestController(t, &fakeBackend{}, WithRand(clock.NewSeqRand(0)))
	for i := 0; i < 50; i++ {
		c.PerturbStats()
	}
	assert.Equal(t, Stats{}, c.State().Stats)

	c2, _, _ := newTestController(t, &fakeBackend{}, WithRand(clock.NewRand(7)))
	require.NoError(t, c2.RefreshStatus(context.Background()))
	for i := 0; i < 5000; i++ {
		c2.PerturbStats()
		for _, v := range c2.State().Stats {
			require.GreaterOrEqual(t, v, 0)
		}
	}
}

func TestPerturbMovesByAtMostOne(t *testing.T) {
	c, _, _ := newTestController(t, &fakeBackend{}, WithRand(clock.NewSeqRand(4, 4, 4, 4, 2, 0, 1, 2)))
	require.NoError(t, c.RefreshStatus(context.Background()))
	assert.Equal(t, Stats{5, 9, 6, 5}, c.State().Stats)
	c.PerturbStats()
	assert.Equal(t, Stats{6, 8, 6, 6}, c.State().Stats)
}

func TestRunPollsAndJitters(t *testing.T) {
	b := &fakeBackend{}
	c, fc, _ := newTestController(t, b, WithRand(clock.NewSeqRand(2)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	statusCalls := func() int {
		n := 0
		for _, call := range b.Calls() {
			if call == "GET /status" {
				n++
			}
		}
		return n
	}
	require.Eventually(t, func() bool { return fc.Tickers() == 2 && statusCalls() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return c.State().Stats == Stats{3, 7, 4, 3} }, time.Second, time.Millisecond)

	fc.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return c.State().Stats == Stats{4, 8, 5, 4} }, time.Second, time.Millisecond)

	fc.Advance(20 * time.Second)
	require.Eventually(t, func() bool { return statusCalls() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, 0, fc.Tickers())
}

func TestDispatchRoutesEvents(t *testing.T) {
	b := &fakeBackend{}
	c, _, _ := newTestController(t, b, WithConfig(func() *config.Config {
		cfg, _ := config.Default()
		return cfg
	}()))
	ctx := context.Background()

	res := c.Dispatch(ctx, Event{Action: ActionOpenCommand})
	assert.True(t, res.State.ModalOpen)
	assert.Nil(t, res.Panel)

	res = c.Dispatch(ctx, Event{Action: ActionPickExample, Index: 1})
	require.NoError(t, res.Err)
	assert.Equal(t, "Search YouTube for lo-fi music", res.State.Input)

	res = c.Dispatch(ctx, Event{Action: ActionPickExample, Text: `"Google vendor pricing"`})
	assert.Equal(t, "Google vendor pricing", res.State.Input)

	res = c.Dispatch(ctx, Event{Action: ActionPickExample, Index: 99})
	assert.Error(t, res.Err)

	res = c.Dispatch(ctx, Event{Action: ActionExecute})
	require.NotNil(t, res.Panel)
	assert.Equal(t, "done: Google vendor pricing", res.Panel.Body)

	res = c.Dispatch(ctx, Event{Action: ActionExecute})
	assert.Nil(t, res.Panel, "empty input after close")

	res = c.Dispatch(ctx, Event{Action: ActionCloseResponse})
	assert.False(t, res.State.Response.Visible)

	res = c.Dispatch(ctx, Event{Action: ActionToggleVoice})
	assert.True(t, res.State.Recording)

	res = c.Dispatch(ctx, Event{Action: Action("explode")})
	assert.Error(t, res.Err)

	assert.Equal(t, []string{"POST /command"}, b.Calls())
}
