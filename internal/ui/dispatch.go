package ui

import (
	"context"
	"fmt"
)

// Action names a user-triggered event.
type Action string

const (
	ActionYesterday     Action = "yesterday"
	ActionToday         Action = "today"
	ActionOpenCommand   Action = "open"
	ActionCloseCommand  Action = "close"
	ActionSetInput      Action = "input"
	ActionPickExample   Action = "example"
	ActionExecute       Action = "execute"
	ActionToggleVoice   Action = "voice"
	ActionCloseResponse Action = "dismiss"
	ActionRefreshStatus Action = "refresh"
)

// Event is one UI event. Text carries the input for ActionSetInput and the
// example for ActionPickExample; Index selects an example when Text is empty.
type Event struct {
	Action Action
	Text   string
	Index  int
}

// Result is the outcome of Dispatch. Panel is set when the event itself
// produced a response panel.
type Result struct {
	State State
	Panel *Panel
	Err   error
}

// Dispatch routes ev to its handler. Network events block until settled.
func (c *Controller) Dispatch(ctx context.Context, ev Event) Result {
	var res Result
	switch ev.Action {
	case ActionYesterday:
		p := c.Yesterday(ctx)
		res.Panel = &p
	case ActionToday:
		p := c.Today(ctx)
		res.Panel = &p
	case ActionOpenCommand:
		c.OpenCommand()
	case ActionCloseCommand:
		c.CloseCommand()
	case ActionSetInput:
		c.SetInput(ev.Text)
	case ActionPickExample:
		text := ev.Text
		if text == "" {
			if ev.Index < 0 || ev.Index >= len(c.examples) {
				res.Err = fmt.Errorf("example %d out of range (have %d)", ev.Index, len(c.examples))
				break
			}
			text = c.examples[ev.Index]
		}
		c.PickExample(text)
	case ActionExecute:
		if p, ok := c.Execute(ctx); ok {
			res.Panel = &p
		}
	case ActionToggleVoice:
		c.ToggleVoice()
	case ActionCloseResponse:
		c.CloseResponse()
	case ActionRefreshStatus:
		res.Err = c.RefreshStatus(ctx)
	default:
		res.Err = fmt.Errorf("unknown action %q", ev.Action)
	}
	res.State = c.State()
	return res
}
