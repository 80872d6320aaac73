package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/greeting-store/pkg/configuration"
	"github.com/iota-uz/greeting-store/pkg/dbmigrate"
	"github.com/iota-uz/greeting-store/pkg/logging"
)

type migrateOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Applied    int    `json:"applied"`
	Version    int64  `json:"version"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()

			start := time.Now()
			applied, version, err := migrateUp(cmd.Context(), conf.Database, logging.Component(conf.Logger(), "migrate"))
			if err != nil {
				return err
			}
			return writeJSON(migrateOutput{
				Command:    "migrate up",
				DurationMS: time.Since(start).Milliseconds(),
				Applied:    applied,
				Version:    version,
			})
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()

			db, err := dbmigrate.Open(conf.Database.URL())
			if err != nil {
				return err
			}
			defer db.Close()

			m, err := dbmigrate.New(db, logging.Component(conf.Logger(), "migrate"))
			if err != nil {
				return err
			}
			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(statuses)
		},
	}
}

func migrateUp(ctx context.Context, opts configuration.DatabaseOptions, logger *logrus.Entry) (int, int64, error) {
	db, err := dbmigrate.Open(opts.URL())
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()

	m, err := dbmigrate.New(db, logger)
	if err != nil {
		return 0, 0, err
	}
	applied, err := m.Up(ctx)
	if err != nil {
		return 0, 0, err
	}
	version, err := m.Version(ctx)
	if err != nil {
		return applied, 0, err
	}
	return applied, version, nil
}
