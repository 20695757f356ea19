// Package config loads the operator's settings and bootstraps the per-user
// settings directory.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath replaces a leading ~ with the home directory and expands
// $VAR references. Paths that cannot be expanded are returned as given.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~", strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}

// ResolvePath expands path and anchors it at base when it is still
// relative, so settings files can refer to files next to them.
func ResolvePath(base, path string) string {
	path = ExpandPath(path)
	if path == "" || base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
