package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/storage/db"
	"resume-optimizer/internal/shared/telemetry"
)

type cli struct {
	cfg         config.Config
	databaseURL string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "resumectl",
		Short:         "Operate the resume optimizer backend",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.cfg = config.Load()
			telemetry.SetLevel(c.cfg.LogLevel)
		},
	}
	root.PersistentFlags().StringVar(&c.databaseURL, "database-url", "", "Postgres URL (default $DATABASE_URL)")

	root.AddCommand(
		c.migrateCmd(),
		c.whitelistCmd(),
		c.usageCmd(),
		c.promptCmd(),
		c.renderCmd(),
	)
	return root
}

func (c *cli) openDB(ctx context.Context) (*sql.DB, error) {
	url := strings.TrimSpace(c.databaseURL)
	if url == "" {
		url = c.cfg.DatabaseURL
	}
	if url == "" {
		return nil, errors.New("database url is required (--database-url or DATABASE_URL)")
	}
	sqlDB, err := db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return nil, errors.Wrap(err, "connect database")
	}
	return sqlDB, nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sqlDB, err := c.openDB(ctx)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := db.RunMigrations(ctx, sqlDB); err != nil {
				return errors.Wrap(err, "run migrations")
			}
			version, err := db.MigrationVersion(ctx, sqlDB)
			if err != nil {
				return errors.Wrap(err, "read migration version")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied; version %d\n", version)
			return nil
		},
	}
}
