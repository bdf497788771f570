package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"empirepilot/internal/admin"
	"empirepilot/internal/config"
)

func leadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Work with qualified leads",
	}

	var actor string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write qualified leads as CSV to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			setupLogger(cfg.Log.Level)

			repo, closeRepo, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			defer closeRepo()

			svc := admin.NewService(admin.Config{Store: repo, Logger: log.Logger})
			n, err := svc.ExportLeads(cmd.Context(), cmd.OutOrStdout(), actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d leads\n", n)
			return nil
		},
	}
	export.Flags().StringVar(&actor, "actor", "cli", "name recorded in the audit log")

	cmd.AddCommand(export)
	return cmd
}
