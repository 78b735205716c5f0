package ui

import (
	"context"
	"time"

	"catcher/internal/api"
)

// Backend is what the controller needs from the assistant backend.
// *api.Client satisfies it.
type Backend interface {
	Briefing(ctx context.Context, day api.Day) (*api.Briefing, error)
	Command(ctx context.Context, command string) (*api.CommandResult, error)
	Status(ctx context.Context) (*api.Status, error)
}

// View receives a snapshot after every state change. Render is called with
// the controller lock held so snapshots arrive in order; it must not block
// and must not call back into the Controller.
type View interface {
	Render(State)
}

// ViewFunc adapts a function to View.
type ViewFunc func(State)

func (f ViewFunc) Render(s State) { f(s) }

// Stat indexes the four counters on the dashboard.
type Stat int

const (
	StatEmails Stat = iota
	StatSlack
	StatTasks
	StatMeetings
	NumStats
)

var statNames = [NumStats]string{"emails", "slack", "tasks", "meetings"}

func (s Stat) String() string {
	if s < 0 || s >= NumStats {
		return "unknown"
	}
	return statNames[s]
}

// Stats holds the displayed counters. Every value is >= 0.
type Stats [NumStats]int

// Map returns the counters keyed by name.
func (s Stats) Map() map[string]int {
	out := make(map[string]int, NumStats)
	for i := Stat(0); i < NumStats; i++ {
		out[i.String()] = s[i]
	}
	return out
}

// Panel is the shared response panel. Body is markup and is shown verbatim.
type Panel struct {
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	Error   bool      `json:"error"`
	Visible bool      `json:"visible"`
	At      time.Time `json:"at"`
}

// State is a snapshot of everything the controller displays.
type State struct {
	Loading   bool
	Pending   int
	ModalOpen bool
	Input     string
	Recording bool
	Response  Panel
	Stats     Stats
	Backend   *api.Status
}

const (
	titleYesterday = "Yesterday's Recap"
	titleToday     = "Today's Plan"
	titleCommand   = "Command Result"
	titleError     = "Error"

	errYesterday = "Failed to get yesterday's recap"
	errToday     = "Failed to get today's plan"
	errCommand   = "Failed to execute command"
)
