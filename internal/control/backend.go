package control

import (
	"fmt"

	"catcher/internal/api"
	"catcher/internal/config"

	"github.com/spf13/cobra"
)

// NewBackendCmd groups backend subcommands.
func NewBackendCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Backend URL and reachability",
	}
	cmd.AddCommand(newBackendShowCmd(cfgPath))
	cmd.AddCommand(newBackendSetCmd(cfgPath))
	return cmd
}

func newBackendShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the backend URL and its /health answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			client, err := api.New(cfg.Backend.BaseURL, api.WithTimeout(cfg.BackendTimeout()))
			if err != nil {
				return err
			}
			cmd.Printf("backend: %s\n", client.BaseURL())
			h, err := client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health: %w", err)
			}
			cmd.Printf("health: %s (%s)\n", h.Status, h.Service)
			return nil
		},
	}
}

func newBackendSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <url>",
		Short: "Set backend base URL in config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := api.New(args[0]); err != nil {
				return err
			}
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			cfg.Backend.BaseURL = args[0]
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			cmd.Printf("backend set to %q in %s\n", args[0], cfg.Paths.ConfigPath)
			return nil
		},
	}
}
