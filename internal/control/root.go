package control

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"catcher/internal/config"
	"catcher/internal/doctor"
	"catcher/internal/hook"
	"catcher/internal/logging"

	"github.com/spf13/cobra"
)

// NewStatusCmd queries daemon status.
func NewStatusCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var status Status
			if err := Call(cfg.Paths.SocketPath, Request{Op: OpStatus}, &status); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

func printStatus(w io.Writer, status Status) {
	st := status.State
	fmt.Fprintf(w, "running: %v\nuptime: %.1fs\nbackend: %s\n", status.Running, status.UptimeSec, status.BackendURL)
	fmt.Fprintf(w, "emails: %d  slack: %d  tasks: %d  meetings: %d\n",
		st.Stats["emails"], st.Stats["slack"], st.Stats["tasks"], st.Stats["meetings"])
	if st.Backend != nil {
		fmt.Fprintf(w, "events: %d (%d unprocessed)  threads: %d  briefings: %d\n",
			st.Backend.TotalEvents, st.Backend.UnprocessedEvents, st.Backend.TotalThreads, st.Backend.TotalBriefings)
	}
	if st.Loading {
		fmt.Fprintln(w, "loading...")
	}
	if st.Recording {
		fmt.Fprintln(w, "recording...")
	}
	if st.ModalOpen {
		fmt.Fprintf(w, "command: %q\n", st.Input)
	}
	if st.Response.Visible {
		fmt.Fprintf(w, "[%s] %s\n", st.Response.Title, st.Response.Body)
	}
}

// NewHealthCmd pings the daemon's control socket.
func NewHealthCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Control-socket liveness ping",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var resp SimpleResponse
			if err := Call(cfg.Paths.SocketPath, Request{Op: OpHealth}, &resp); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("daemon unhealthy: %s", resp.Message)
			}
			cmd.Println(resp.Message)
			return nil
		},
	}
}

// NewHistoryCmd prints the panels the daemon has shown.
func NewHistoryCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent panels from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var status Status
			if err := Call(cfg.Paths.SocketPath, Request{Op: OpStatus}, &status); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, h := range status.History {
				mark := " "
				if h.Error {
					mark = "!"
				}
				fmt.Fprintf(out, "%s %s %-18s %s\n", h.Timestamp.Format("15:04:05"), mark, h.Title, oneLine(h.Body))
			}
			return nil
		},
	}
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 100 {
		s = s[:97] + "..."
	}
	return s
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			return tailFile(cmd.OutOrStdout(), cfg.Paths.LogPath, n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(w io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			fmt.Fprintln(w, l)
		}
	}
	return nil
}

// NewTestHookCmd triggers hook manually.
func NewTestHookCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test-hook \"some text\"",
		Short: "Send sample text through the command hook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			command, _ := cmd.Flags().GetString("command")
			r := hook.NewRunner(cfg, logger)
			if hk := hook.SelectHookConfig(cfg, command); hk != nil {
				r.SelectHook(hk)
			}
			job := hook.Job{Command: command, Text: args[0], Timestamp: time.Now()}
			return r.Run(cmd.Context(), job)
		},
	}
	cmd.Flags().String("command", "", "command text used to select the hook")
	return cmd
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, backend and hooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cmd.Context(), cfg)
			exitCode := 0
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					exitCode = 1
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-4s %s\n", r.Name, status, r.Detail)
			}
			if exitCode != 0 {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}

// NewServiceCmd manages the launchd plist (macOS).
func NewServiceCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage launchd service (macOS)",
	}
	cmd.AddCommand(newServiceInstallCmd(cfgPath))
	cmd.AddCommand(newServiceUninstallCmd())
	cmd.AddCommand(newServiceStatusCmd())
	return cmd
}
