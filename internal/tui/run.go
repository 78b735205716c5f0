package tui

import (
	"context"
	"errors"

	"catcher/internal/config"
	"catcher/internal/control"
	"catcher/internal/logging"
	"catcher/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Run shows the dashboard until the user quits or ctx is done. The
// controller's polling timers live exactly as long as the program.
func Run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	backend, err := control.NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	feed := NewFeed()
	ctl := ui.New(backend,
		ui.WithConfig(cfg),
		ui.WithLogger(logger),
		ui.WithView(feed),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(ctx, ctl, feed, backend.BaseURL(), "dark"), opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctl.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		defer feed.Close()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// NewCmd opens the terminal dashboard.
func NewCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			// The dashboard owns the terminal; logs go to the file only.
			cfg.Logging.Stdout = false
			logger, err := logging.Configure(cfg)
			if err != nil {
				return err
			}
			return Run(cmd.Context(), cfg, logger)
		},
	}
}
