package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/biweekly/internal/config"
	"github.com/Veraticus/biweekly/internal/storage"
	"github.com/spf13/viper"
)

const defaultHistoryDatabase = "~/.local/share/biweekly/history.db"

// loadSettings resolves the generator settings from the global viper instance.
func loadSettings() *config.Settings {
	return config.NewSettings(viper.GetViper(), slog.Default())
}

// initStorage opens the generation history database and brings its schema up to date.
func initStorage(ctx context.Context, settings *config.Settings) (*storage.SQLiteStorage, error) {
	dbPath := settings.HistoryDatabase
	if dbPath == "" {
		dbPath = config.ExpandPath(defaultHistoryDatabase)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}
