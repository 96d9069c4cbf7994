package paper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// IsPaused reports whether the pause flag file exists. An empty path is never paused.
func IsPaused(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// SetPaused creates or removes the pause flag file.
func SetPaused(path string, paused bool) error {
	if path == "" {
		return errors.New("pause file not configured")
	}
	if !paused {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove pause flag: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pause dir: %w", err)
	}
	stamp := []byte(time.Now().UTC().Format(time.RFC3339) + "\n")
	if err := os.WriteFile(path, stamp, 0o644); err != nil {
		return fmt.Errorf("write pause flag: %w", err)
	}
	return nil
}
