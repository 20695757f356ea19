package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/biweekly/internal/config"
	"github.com/Veraticus/biweekly/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run history database migrations",
		Long: `Initialize or update the history database schema to the latest version.

Generating a workbook migrates the database automatically. This command is
useful to check the schema version or to prepare a new database.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	settings := loadSettings()
	dbPath := settings.HistoryDatabase
	if dbPath == "" {
		dbPath = config.ExpandPath(defaultHistoryDatabase)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Database:        %s\nCurrent version: %d\nLatest version:  %d\n",
			store.Path(), current, storage.ExpectedSchemaVersion)
		return err
	}

	slog.Info("Running database migrations", "database", store.Path(), "from", current)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("Database migrations completed", "version", storage.ExpectedSchemaVersion)
	return nil
}
