package main

import (
	"fmt"
	"os"

	"github.com/Rrens/chat-archive/internal/config"
	"github.com/Rrens/chat-archive/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var source string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply chat-archive database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&source, "source", "", "migration source URL (defaults to the embedded migrations)")

	// withDSN loads the config and skips stores that manage their own schema
	withDSN := func(fn func(dsn string) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Storage.Driver == "sqlite" {
				fmt.Println("sqlite storage applies its schema on open, nothing to migrate")
				return nil
			}
			fmt.Printf("Connecting to database at %s:%d...\n", cfg.Database.Host, cfg.Database.Port)
			return fn(cfg.Database.DSN())
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withDSN(func(dsn string) error {
			if err := postgres.RunMigrations(dsn, source); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			fmt.Println("✅ migrations applied")
			return nil
		}),
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: withDSN(func(dsn string) error {
			if err := postgres.RollbackMigrations(dsn, source, steps); err != nil {
				return fmt.Errorf("failed to roll back migrations: %w", err)
			}
			fmt.Printf("✅ rolled back %d migration(s)\n", steps)
			return nil
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withDSN(func(dsn string) error {
			v, dirty, err := postgres.MigrationVersion(dsn, source)
			if err != nil {
				return fmt.Errorf("failed to read migration version: %w", err)
			}
			fmt.Printf("version %d (dirty: %t)\n", v, dirty)
			return nil
		}),
	}

	root.AddCommand(up, down, version)
	root.RunE = up.RunE

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
		os.Exit(1)
	}
}
