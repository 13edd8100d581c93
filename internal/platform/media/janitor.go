package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Janitor deletes stage artifacts older than the retention window. It sweeps
// the configured directories on an hourly interval, matching the lifetime of
// downloaded media and transcript files clients are expected to fetch
// promptly.
type Janitor struct {
	dirs      []string
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// NewJanitor creates a janitor sweeping dirs for files older than retention.
func NewJanitor(dirs []string, retention time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		dirs:      dirs,
		retention: retention,
		interval:  time.Hour,
		logger:    logger.With("component", "retention_janitor"),
	}
}

// Run sweeps periodically until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep walks the configured directories once and removes expired files.
// Empty per-task subdirectories left behind are removed as well.
func (j *Janitor) Sweep() {
	cutoff := time.Now().Add(-j.retention)
	deleted := 0

	for _, dir := range j.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				j.logger.Error("cleanup: reading directory", "dir", dir, "error", err)
			}
			continue
		}
		for _, entry := range entries {
			deleted += j.sweepEntry(filepath.Join(dir, entry.Name()), entry, cutoff)
		}
	}

	j.logger.Info("cleanup complete", "deleted", deleted)
}

func (j *Janitor) sweepEntry(path string, entry os.DirEntry, cutoff time.Time) int {
	info, err := entry.Info()
	if err != nil {
		return 0
	}

	if entry.IsDir() {
		deleted := 0
		children, err := os.ReadDir(path)
		if err != nil {
			return 0
		}
		for _, child := range children {
			deleted += j.sweepEntry(filepath.Join(path, child.Name()), child, cutoff)
		}
		// Drop the task directory once everything inside has expired.
		if rest, err := os.ReadDir(path); err == nil && len(rest) == 0 && info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				deleted++
			}
		}
		return deleted
	}

	if info.ModTime().Before(cutoff) {
		if err := os.Remove(path); err != nil {
			j.logger.Error("cleanup: deleting file", "path", path, "error", err)
			return 0
		}
		return 1
	}
	return 0
}
