package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/mealmate/server/internal/config"
	"github.com/mealmate/server/internal/database"
	"github.com/mealmate/server/internal/logger"
)

func main() {
	logger.SetupDefault(os.Stderr, "info")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.DBDriver == config.DriverMemory {
		slog.Error("the memory driver has no schema to migrate")
		os.Exit(1)
	}

	slog.Info("connecting to database",
		"driver", cfg.DBDriver,
		"host", cfg.DBHost,
		"port", cfg.DBPort,
		"database", cfg.DBName,
	)

	m, err := database.NewMigrator(cfg.DBDriver, cfg.MigrateURL())
	if err != nil {
		slog.Error("failed to initialize migrations", "error", err)
		os.Exit(1)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			slog.Warn("failed to close migration resources", "source_error", sourceErr, "db_error", dbErr)
		}
	}()

	if err := run(m, os.Args[1], os.Args[2:]); err != nil {
		slog.Error("migration command failed", "command", os.Args[1], "error", err)
		m.Close()
		os.Exit(1)
	}
}

func run(m *migrate.Migrate, command string, args []string) error {
	switch command {
	case "up":
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database is already up to date")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("migrations applied")

	case "down":
		if err := m.Steps(-1); err != nil {
			return err
		}
		slog.Info("rolled back the last migration")

	case "goto":
		if len(args) < 1 {
			return errors.New("goto requires a version number")
		}
		version, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		err = m.Migrate(uint(version))
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database is already at version", "version", version)
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("migrated to version", "version", version)

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			slog.Info("no migrations have been applied")
			return nil
		}
		if err != nil {
			return err
		}
		slog.Info("current migration version", "version", version, "dirty", dirty)

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: migrate <command>")
	fmt.Println("Commands:")
	fmt.Println("  up      apply all pending migrations")
	fmt.Println("  down    roll back the last migration")
	fmt.Println("  goto N  migrate to version N")
	fmt.Println("  status  show the current migration version")
}
