package tui

import (
	"sync"

	"catcher/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// Feed is the controller's view for the terminal UI. It keeps only the
// latest snapshot so Render never blocks the controller.
type Feed struct {
	ch   chan ui.State
	done chan struct{}
	once sync.Once
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan ui.State, 1), done: make(chan struct{})}
}

// Close releases any pending wait. Render stays safe to call afterwards.
func (f *Feed) Close() {
	f.once.Do(func() { close(f.done) })
}

// Render replaces any unread snapshot with s. The controller serialises
// calls, so drain-then-send cannot race another producer.
func (f *Feed) Render(s ui.State) {
	select {
	case <-f.ch:
	default:
	}
	select {
	case f.ch <- s:
	default:
	}
}

type stateMsg ui.State

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-f.ch:
			return stateMsg(s)
		case <-f.done:
			return nil
		}
	}
}
