package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"catcher/internal/api"
	"catcher/internal/config"
	"catcher/internal/logging"
	"catcher/internal/ui"

	"github.com/spf13/cobra"
)

// Send delivers an action to the daemon, or runs it on a one-shot local
// controller when no daemon is listening.
func Send(ctx context.Context, cfg *config.Config, req Request) (Response, error) {
	var resp Response
	err := Call(cfg.Paths.SocketPath, req, &resp)
	if err == nil {
		if req.Op == OpVoice && resp.State.Recording {
			resp.State, err = waitCapture(cfg, func() (Snapshot, error) {
				var st Status
				err := Call(cfg.Paths.SocketPath, Request{Op: OpStatus}, &st)
				return st.State, err
			})
		}
		return resp, err
	}
	if !errors.Is(err, ErrNoDaemon) {
		return resp, err
	}
	return sendLocal(ctx, cfg, req)
}

func sendLocal(ctx context.Context, cfg *config.Config, req Request) (Response, error) {
	logger, err := logging.Configure(cfg)
	if err != nil {
		return Response{}, err
	}
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return Response{}, err
	}
	ctl := ui.New(backend, ui.WithConfig(cfg), ui.WithLogger(logger))
	logger.WithField("op", req.Op).Debug("no daemon; running action locally")
	resp := Apply(ctx, ctl, req)
	if req.Op == OpVoice && resp.State.Recording {
		resp.State, err = waitCapture(cfg, func() (Snapshot, error) {
			return SnapshotOf(ctl.State()), nil
		})
	}
	return resp, err
}

// waitCapture polls until simulated voice capture has finished.
func waitCapture(cfg *config.Config, poll func() (Snapshot, error)) (Snapshot, error) {
	deadline := time.Now().Add(cfg.CaptureWindow() + 2*time.Second)
	for {
		st, err := poll()
		if err != nil || !st.Recording {
			return st, err
		}
		if time.Now().After(deadline) {
			return st, fmt.Errorf("voice capture did not finish")
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func newActionCmd(cfgPath *string, use, short string, op string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, *cfgPath, Request{Op: op})
		},
	}
}

func runAction(cmd *cobra.Command, cfgPath string, req Request) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	resp, err := Send(cmd.Context(), cfg, req)
	if err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Message)
	}
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
	}
	printResponse(cmd.OutOrStdout(), req.Op, resp)
	return nil
}

func printResponse(w io.Writer, op string, resp Response) {
	switch {
	case resp.Panel != nil:
		fmt.Fprintf(w, "%s\n\n%s\n", resp.Panel.Title, resp.Panel.Body)
	case op == OpVoice:
		fmt.Fprintf(w, "input: %q\n", resp.State.Input)
	case op == OpRefresh:
		s := resp.State.Stats
		fmt.Fprintf(w, "emails: %d  slack: %d  tasks: %d  meetings: %d\n", s["emails"], s["slack"], s["tasks"], s["meetings"])
	default:
		fmt.Fprintln(w, "ok")
	}
}

// NewYesterdayCmd shows yesterday's recap.
func NewYesterdayCmd(cfgPath *string) *cobra.Command {
	cmd := newActionCmd(cfgPath, "yesterday", "Show yesterday's recap", OpYesterday)
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewTodayCmd shows today's plan.
func NewTodayCmd(cfgPath *string) *cobra.Command {
	cmd := newActionCmd(cfgPath, "today", "Show today's plan", OpToday)
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewRunCmd sends a natural-language command.
func NewRunCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run \"<command>\"",
		Short: "Send a command to the assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, *cfgPath, Request{Op: OpCommand, Text: args[0]})
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewVoiceCmd runs a simulated voice capture and prints the captured input.
func NewVoiceCmd(cfgPath *string) *cobra.Command {
	cmd := newActionCmd(cfgPath, "voice", "Simulate voice capture into the command input", OpVoice)
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewRefreshCmd refreshes the dashboard counters.
func NewRefreshCmd(cfgPath *string) *cobra.Command {
	cmd := newActionCmd(cfgPath, "refresh", "Refresh system status and counters", OpRefresh)
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewEventsCmd lists recent captured events straight from the backend.
func NewEventsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent context events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			backend, err := NewBackend(cfg, logger)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			source, _ := cmd.Flags().GetString("source")
			list, err := backend.Events(cmd.Context(), limit, source)
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(list)
			}
			for _, ev := range list.Events {
				fmt.Fprintln(cmd.OutOrStdout(), formatEvent(ev))
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "maximum events")
	cmd.Flags().String("source", "", "filter by source (gmail, slack, ...)")
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// formatEvent prints an event with its timestamp normalised to minutes.
func formatEvent(ev api.Event) string {
	t, err := ev.Time()
	if err != nil {
		return ev.String()
	}
	return fmt.Sprintf("[%s] %s: %s", t.Format("2006-01-02 15:04"), ev.Source, ev.Content)
}

// NewThreadsCmd lists organised threads as JSON.
func NewThreadsCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "threads",
		Short: "List organised threads (JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			backend, err := NewBackend(cfg, logger)
			if err != nil {
				return err
			}
			list, err := backend.Threads(cmd.Context())
			if err != nil {
				return fmt.Errorf("list threads: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		},
	}
}
