package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS generations (
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					output_path TEXT NOT NULL,
					predecessor_path TEXT,
					source_sheet TEXT,
					anchor_kind TEXT NOT NULL,
					anchor_date TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (year, month)
				)`,
				`CREATE INDEX idx_generations_created ON generations(created_at)`,

				`CREATE TABLE IF NOT EXISTS sub_periods (
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					idx INTEGER NOT NULL,
					start_date TEXT NOT NULL,
					end_date TEXT NOT NULL,
					retained INTEGER NOT NULL DEFAULT 1,
					PRIMARY KEY (year, month, idx),
					FOREIGN KEY (year, month) REFERENCES generations(year, month) ON DELETE CASCADE
				)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Carried balances",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS carried_balances (
					year INTEGER NOT NULL,
					month INTEGER NOT NULL,
					category_row INTEGER NOT NULL,
					raw TEXT NOT NULL DEFAULT '',
					amount TEXT,
					PRIMARY KEY (year, month, category_row),
					FOREIGN KEY (year, month) REFERENCES generations(year, month) ON DELETE CASCADE
				)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     3,
		Description: "Generation run IDs",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE generations ADD COLUMN run_id TEXT NOT NULL DEFAULT ''`,
			})
		},
	},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SchemaVersion returns the schema version currently applied.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Debug("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
