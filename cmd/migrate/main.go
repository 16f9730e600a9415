package main

// Run database migrations:
//   go run ./cmd/migrate            apply pending migrations
//   go run ./cmd/migrate -status    print the applied version only

import (
	"context"
	"flag"
	"os"
	"time"

	"resume-optimizer/internal/shared/config"
	"resume-optimizer/internal/shared/storage/db"
	"resume-optimizer/internal/shared/telemetry"
)

func main() {
	statusOnly := flag.Bool("status", false, "print the applied migration version and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		telemetry.Error("migrate.config", map[string]any{"error": "DATABASE_URL is required"})
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	os.Exit(run(ctx, cfg.DatabaseURL, *statusOnly))
}

func run(ctx context.Context, databaseURL string, statusOnly bool) int {
	sqlDB, err := db.Connect(ctx, databaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		telemetry.Error("migrate.connect", map[string]any{"error": err})
		return 1
	}
	defer sqlDB.Close()

	before, err := db.MigrationVersion(ctx, sqlDB)
	if err != nil {
		telemetry.Error("migrate.version", map[string]any{"error": err})
		return 1
	}
	if statusOnly {
		telemetry.Info("migrate.status", map[string]any{"version": before})
		return 0
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err, "from_version": before})
		return 1
	}
	after, err := db.MigrationVersion(ctx, sqlDB)
	if err != nil {
		telemetry.Error("migrate.version", map[string]any{"error": err})
		return 1
	}
	telemetry.Info("migrate.applied", map[string]any{"from_version": before, "to_version": after})
	return 0
}
