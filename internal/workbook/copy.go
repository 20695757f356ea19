package workbook

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies src to dst through a temporary file in dst's directory,
// so dst only appears once the copy is complete. An existing dst is replaced.
func CopyFile(src, dst string) (err error) {
	in, err := os.Open(src) //nolint:gosec // template path comes from user config
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".biweekly-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temporary copy: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy template: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to finish temporary copy: %w", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to rename copy to %s: %w", dst, err)
	}
	return nil
}
