package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vet-clinic-records/internal/adapters/storage/postgres"
	"vet-clinic-records/internal/config"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema (goose)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if p := cmd.Root().PersistentPreRunE; p != nil {
				if err := p(cmd, args); err != nil {
					return err
				}
			}
			if cfg.Storage != config.StoragePostgres {
				return errors.New("migrate requires STORAGE=postgres and DATABASE_URL")
			}
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrateUp(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := postgres.Open(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()

				p, err := postgres.NewMigrator(db)
				if err != nil {
					return err
				}
				res, err := p.Down(cmd.Context())
				if err != nil {
					return fmt.Errorf("goose down: %w", err)
				}
				log.Info("migration rolled back", map[string]any{"version": res.Source.Version})
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := postgres.Open(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()

				p, err := postgres.NewMigrator(db)
				if err != nil {
					return err
				}
				statuses, err := p.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("goose status: %w", err)
				}
				for _, s := range statuses {
					fmt.Fprintf(cmd.OutOrStdout(), "%05d  %-8s  %s\n", s.Source.Version, s.State, s.Source.Path)
				}
				return nil
			},
		},
	)
	return cmd
}
