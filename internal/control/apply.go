package control

import (
	"context"
	"fmt"
	"strings"

	"catcher/internal/ui"
)

// IsAction reports whether op drives the controller.
func IsAction(op string) bool {
	switch op {
	case OpYesterday, OpToday, OpOpen, OpClose, OpInput, OpExample,
		OpCommand, OpVoice, OpDismiss, OpRefresh:
		return true
	}
	return false
}

// Apply runs an action op against ctl. "command" sets the input to req.Text
// and executes it in one step; blank text is rejected before anything is
// sent, whatever input the controller already holds.
func Apply(ctx context.Context, ctl *ui.Controller, req Request) Response {
	var res ui.Result
	switch req.Op {
	case OpYesterday:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionYesterday})
	case OpToday:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionToday})
	case OpOpen:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionOpenCommand})
	case OpClose:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionCloseCommand})
	case OpInput:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionSetInput, Text: req.Text})
	case OpExample:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionPickExample, Text: req.Text, Index: req.Index})
	case OpCommand:
		if strings.TrimSpace(req.Text) == "" {
			return Response{Message: "empty command", State: SnapshotOf(ctl.State())}
		}
		ctl.SetInput(req.Text)
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionExecute})
		if res.Err == nil && res.Panel == nil {
			res.Err = fmt.Errorf("empty command")
		}
	case OpVoice:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionToggleVoice})
	case OpDismiss:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionCloseResponse})
	case OpRefresh:
		res = ctl.Dispatch(ctx, ui.Event{Action: ui.ActionRefreshStatus})
	default:
		return Response{Message: fmt.Sprintf("unknown op %q", req.Op), State: SnapshotOf(ctl.State())}
	}

	out := Response{OK: res.Err == nil, Panel: res.Panel, State: SnapshotOf(res.State)}
	if res.Err != nil {
		out.Message = res.Err.Error()
	}
	if res.Panel != nil && res.Panel.Error {
		out.OK = false
		out.Message = res.Panel.Body
	}
	return out
}
