package config

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
)

//go:embed defaults
var defaultFiles embed.FS

const defaultsDir = "defaults"

// UserDir returns the per-user settings directory, <configDir>/biweekly/<username>.
func UserDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to determine current user: %w", err)
	}
	return filepath.Join(base, "biweekly", u.Username), nil
}

// Bootstrap makes sure dir exists and holds every default settings file.
// Files already present are never overwritten. It returns the names of the
// files it created.
func Bootstrap(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	entries, err := fs.ReadDir(defaultFiles, defaultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list default settings: %w", err)
	}

	var created []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		dst := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return created, fmt.Errorf("failed to check %s: %w", dst, err)
		}

		data, err := defaultFiles.ReadFile(defaultsDir + "/" + entry.Name())
		if err != nil {
			return created, fmt.Errorf("failed to read default %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(dst, data, 0o600); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		slog.Debug("Seeded default settings file", "file", dst)
		created = append(created, entry.Name())
	}

	return created, nil
}
