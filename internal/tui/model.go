// Package tui renders the dashboard controller in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"catcher/internal/ui"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const defaultWrap = 80

type model struct {
	ctx        context.Context
	ctl        *ui.Controller
	feed       *Feed
	backendURL string
	glamStyle  string

	state     ui.State
	examples  []string
	exampleAt int
	shownAt   string
	statusErr error

	width  int
	height int

	input    textinput.Model
	spinner  spinner.Model
	body     viewport.Model
	renderer *glamour.TermRenderer

	theme theme
}

// actionDoneMsg reports a finished network action. State arrives separately
// through the feed.
type actionDoneMsg struct {
	action ui.Action
	err    error
}

func newModel(ctx context.Context, ctl *ui.Controller, feed *Feed, backendURL, glamStyle string) model {
	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 500
	input.Placeholder = "e.g. Open Gmail"

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#667eea"))

	m := model{
		ctx:        ctx,
		ctl:        ctl,
		feed:       feed,
		backendURL: backendURL,
		glamStyle:  glamStyle,
		state:      ctl.State(),
		examples:   ctl.Examples(),
		exampleAt:  -1,
		input:      input,
		spinner:    sp,
		body:       viewport.New(defaultWrap, 12),
		theme:      newTheme(),
	}
	m.renderer = newRenderer(glamStyle, defaultWrap)
	return m
}

func newRenderer(style string, wrap int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.feed.wait())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		wrap := min(max(msg.Width-6, 20), 100)
		m.body.Width = wrap
		m.body.Height = max(msg.Height-16, 5)
		m.input.Width = max(msg.Width-10, 10)
		m.renderer = newRenderer(m.glamStyle, wrap)
		m.shownAt = ""
		m.syncResponse()
		return m, nil

	case stateMsg:
		// The snapshot may predate keys already handled; the controller is
		// the source of truth.
		m.applyState(m.ctl.State())
		return m, m.feed.wait()

	case actionDoneMsg:
		if msg.action == ui.ActionRefreshStatus {
			m.statusErr = msg.err
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.state.ModalOpen {
			return m.handleModalKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "y":
		return m, m.action(ui.ActionYesterday)
	case "t":
		return m, m.action(ui.ActionToday)
	case "r":
		return m, m.action(ui.ActionRefreshStatus)
	case "c":
		m.ctl.OpenCommand()
		m.exampleAt = -1
		m.state = m.ctl.State()
		cmd := m.input.Focus()
		return m, cmd
	case "x":
		m.ctl.CloseResponse()
		m.state = m.ctl.State()
		return m, nil
	}
	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	return m, cmd
}

func (m model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.ctl.CloseCommand()
		m.input.Blur()
		m.input.SetValue("")
		m.state = m.ctl.State()
		return m, nil
	case "enter":
		m.ctl.SetInput(m.input.Value())
		return m, m.action(ui.ActionExecute)
	case "ctrl+r":
		m.ctl.ToggleVoice()
		m.state = m.ctl.State()
		return m, nil
	case "up", "down":
		if len(m.examples) == 0 {
			return m, nil
		}
		step := 1
		if msg.String() == "up" {
			step = len(m.examples) - 1
		}
		if m.exampleAt < 0 {
			m.exampleAt = 0
			if step != 1 {
				m.exampleAt = len(m.examples) - 1
			}
		} else {
			m.exampleAt = (m.exampleAt + step) % len(m.examples)
		}
		m.ctl.PickExample(m.examples[m.exampleAt])
		m.applyState(m.ctl.State())
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctl.SetInput(m.input.Value())
	m.state = m.ctl.State()
	return m, cmd
}

// action runs a network event off the event loop.
func (m model) action(a ui.Action) tea.Cmd {
	ctx, ctl := m.ctx, m.ctl
	return func() tea.Msg {
		res := ctl.Dispatch(ctx, ui.Event{Action: a})
		return actionDoneMsg{action: a, err: res.Err}
	}
}

func (m *model) applyState(s ui.State) {
	m.state = s
	if m.input.Value() != s.Input {
		m.input.SetValue(s.Input)
		m.input.CursorEnd()
	}
	if s.ModalOpen && !m.input.Focused() {
		m.input.Focus()
	}
	if !s.ModalOpen && m.input.Focused() {
		m.input.Blur()
	}
	m.syncResponse()
}

// syncResponse re-renders the panel body when a new panel has been shown.
func (m *model) syncResponse() {
	p := m.state.Response
	key := p.At.String() + p.Title
	if key == m.shownAt {
		return
	}
	m.shownAt = key
	body := p.Body
	if m.renderer != nil && !p.Error {
		if out, err := m.renderer.Render(p.Body); err == nil {
			body = strings.TrimRight(out, "\n")
		}
	}
	m.body.SetContent(body)
	m.body.GotoTop()
}

func (m model) View() string {
	t := m.theme
	var b strings.Builder

	header := t.header.Render("Context Catcher")
	status := t.subtle.Render(m.backendURL)
	if m.statusErr != nil {
		status = t.errorTitle.Render("status unavailable")
	}
	if m.state.Loading {
		status = t.loading.Render(m.spinner.View() + " loading")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, header, "  ", status))
	b.WriteString("\n\n")

	b.WriteString(m.statsView())
	b.WriteString("\n")
	if st := m.state.Backend; st != nil {
		b.WriteString(t.subtle.Render(fmt.Sprintf("events %d · unprocessed %d · threads %d · briefings %d",
			st.TotalEvents, st.UnprocessedEvents, st.TotalThreads, st.TotalBriefings)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state.ModalOpen {
		b.WriteString(m.modalView())
		b.WriteString("\n")
	}
	if m.state.Response.Visible {
		b.WriteString(m.responseView())
		b.WriteString("\n")
	}

	if m.state.ModalOpen {
		b.WriteString(t.help.Render("enter run · ctrl+r voice · ↑/↓ example · esc close"))
	} else {
		b.WriteString(t.help.Render("y yesterday · t today · c command · x close panel · r refresh · q quit"))
	}
	return t.root.Render(b.String())
}

var statLabels = [ui.NumStats]string{
	ui.StatEmails:   "Emails",
	ui.StatSlack:    "Slack",
	ui.StatTasks:    "Tasks",
	ui.StatMeetings: "Meetings",
}

func (m model) statsView() string {
	t := m.theme
	boxes := make([]string, 0, ui.NumStats)
	for i := ui.Stat(0); i < ui.NumStats; i++ {
		boxes = append(boxes, t.stat.Render(
			t.statValue.Render(fmt.Sprintf("%d", m.state.Stats[i]))+"\n"+t.statLabel.Render(statLabels[i]),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (m model) modalView() string {
	t := m.theme
	var b strings.Builder
	b.WriteString(t.panelTitle.Render("Command"))
	if m.state.Recording {
		b.WriteString("  " + t.recording.Render("● recording"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	for i, ex := range m.examples {
		style := t.example
		if i == m.exampleAt {
			style = t.exampleSel
		}
		b.WriteString("\n" + style.Render("  "+ex))
	}
	return t.modal.Render(b.String())
}

func (m model) responseView() string {
	t := m.theme
	p := m.state.Response
	if p.Error {
		return t.errorPanel.Render(t.errorTitle.Render(p.Title) + "\n" + p.Body)
	}
	return t.panel.Render(t.panelTitle.Render(p.Title) + "\n" + m.body.View())
}
