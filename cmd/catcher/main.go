package main

import (
	"fmt"
	"os"

	"catcher/internal/control"
	"catcher/internal/daemon"
	"catcher/internal/tui"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "catcher",
		Short: "catcher: Context Catcher dashboard client",
		Long: `catcher drives a Context Catcher backend: yesterday's recap, today's plan and
natural-language commands, with live status counters and simulated voice capture.

Key commands:
  ui                        Terminal dashboard
  start|stop|restart        Daemon lifecycle
  status [--json]           Counters, panel and recent history
  yesterday|today           Briefings
  run "<command>"           Send a command
  voice|refresh             Simulated capture, status refresh
  events|threads            Raw context data
  doctor|backend            Checks and backend URL
  service install|uninstall|status   launchd helper (macOS)
  health|tail-log|history|test-hook   Liveness, logs, manual hook

Notable flags/env:
  --metrics-addr <addr>     Enable /metrics (Prometheus)
  --backend-url <url>       Override backend for a daemon run
  Env overrides: CATCHER_BACKEND_URL, CATCHER_METRICS_ADDR,
                 CATCHER_LOG_LEVEL/FORMAT, CATCHER_HISTORY_ENABLED,
                 CATCHER_REDACT_PII`,
		Example: `  catcher ui
  catcher start --metrics-addr 127.0.0.1:9318
  catcher today
  catcher run "Open Gmail"
  catcher events --source slack --limit 20
  catcher service install --env CATCHER_BACKEND_URL=http://localhost:8000
  catcher test-hook "Opening Gmail"`,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("catcher v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/catcher/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(tui.NewCmd(cfgPath))
	root.AddCommand(daemon.NewStartCmd(cfgPath))
	root.AddCommand(daemon.NewStopCmd(cfgPath))
	root.AddCommand(daemon.NewRestartCmd(cfgPath))
	root.AddCommand(control.NewStatusCmd(cfgPath))
	root.AddCommand(control.NewHealthCmd(cfgPath))
	root.AddCommand(control.NewYesterdayCmd(cfgPath))
	root.AddCommand(control.NewTodayCmd(cfgPath))
	root.AddCommand(control.NewRunCmd(cfgPath))
	root.AddCommand(control.NewVoiceCmd(cfgPath))
	root.AddCommand(control.NewRefreshCmd(cfgPath))
	root.AddCommand(control.NewEventsCmd(cfgPath))
	root.AddCommand(control.NewThreadsCmd(cfgPath))
	root.AddCommand(control.NewHistoryCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	root.AddCommand(control.NewTestHookCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewBackendCmd(cfgPath))
	root.AddCommand(control.NewServiceCmd(cfgPath))

	// Hidden internal serve command used by start.
	root.AddCommand(daemon.NewServeCmd(cfgPath))

	applyColorHelp(root)

	return root.Execute()
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		if cmd != root {
			write("%s%s%s: %s\n\n", bold, cmd.CommandPath(), reset, cmd.Short)
			write("%sUsage%s\n  %s\n", bold, reset, cmd.UseLine())
			if cmd.HasAvailableLocalFlags() {
				write("\n%sFlags%s\n%s", bold, reset, cmd.LocalFlags().FlagUsages())
			}
			for _, c := range cmd.Commands() {
				if !c.Hidden {
					write("  %s%-12s%s %s\n", green, c.Name(), reset, c.Short)
				}
			}
			return
		}

		write("%scatcher%s: Context Catcher dashboard client %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sBriefings, commands and live counters from your Context Catcher backend.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  catcher [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  ui                          terminal dashboard")
		writeln("  start|stop|restart          daemon lifecycle")
		writeln("  status [--json]             counters, panel, history")
		writeln("  yesterday|today             briefings")
		writeln("  run \"<command>\"             send a command")
		writeln("  voice                       simulated capture into the input")
		writeln("  events|threads              raw context data")
		writeln("  doctor                      check config/backend/hooks")
		writeln("  service install|uninstall|status manage launchd plist (macOS)")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  --metrics-addr <addr>   enable /metrics (Prometheus)")
		writeln("  --backend-url <url>     backend for this daemon run")
		writeln("  -c, --config <path>     config file (default ~/.config/catcher/config.toml)")
		writeln("  Env: CATCHER_BACKEND_URL=url, CATCHER_METRICS_ADDR=host:port,")
		writeln("       CATCHER_LOG_LEVEL=debug, CATCHER_LOG_FORMAT=json,")
		writeln("       CATCHER_HISTORY_ENABLED=0, CATCHER_REDACT_PII=1")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  catcher ui")
		writeln("  catcher start --metrics-addr 127.0.0.1:9318")
		writeln("  catcher run \"Open Gmail\"")
		writeln("  catcher events --source slack --limit 20")
		writeln("  catcher test-hook \"Opening Gmail\"")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
