// Package backup keeps dated copies of the ledger database.
// One file is written per calendar day; later runs on the same day replace it.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"compras/internal/metrics"
)

const (
	filePrefix = "backup_compras_"
	fileSuffix = ".sqlite"
	dayLayout  = "2006-01-02"
)

// Source produces a consistent copy of the database at path
type Source interface {
	Snapshot(ctx context.Context, path string) error
}

type Snapshotter struct {
	source Source
	dir    string
	keep   int
	logger *slog.Logger
}

func NewSnapshotter(source Source, dir string, keep int, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{source: source, dir: dir, keep: keep, logger: logger}
}

// FileName returns the snapshot file name for the day containing t
func FileName(t time.Time) string {
	return filePrefix + t.Format(dayLayout) + fileSuffix
}

// Run writes today's snapshot and prunes old ones. It returns the snapshot path.
func (s *Snapshotter) Run(ctx context.Context, now time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		metrics.Snapshots.WithLabelValues(metrics.OutcomeFailure).Inc()
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	path := filepath.Join(s.dir, FileName(now))
	if err := s.source.Snapshot(ctx, path); err != nil {
		metrics.Snapshots.WithLabelValues(metrics.OutcomeFailure).Inc()
		return "", fmt.Errorf("snapshot %s: %w", path, err)
	}
	metrics.Snapshots.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.InfoContext(ctx, "Snapshot written", "component", "backup", "path", path)

	if s.keep > 0 {
		removed, err := s.Prune(s.keep)
		if err != nil {
			s.logger.WarnContext(ctx, "Snapshot pruning failed", "component", "backup", "error", err)
		} else if len(removed) > 0 {
			s.logger.InfoContext(ctx, "Old snapshots removed", "component", "backup", "count", len(removed))
		}
	}

	return path, nil
}

// List returns the snapshot files in dir, newest first
func (s *Snapshotter) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isSnapshotName(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	// ISO dates sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(s.dir, n)
	}
	return paths, nil
}

// Prune deletes all but the newest keep snapshots and returns what it removed.
// Files that do not look like snapshots are never touched.
func (s *Snapshotter) Prune(keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	paths, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(paths) <= keep {
		return nil, nil
	}

	var removed []string
	for _, p := range paths[keep:] {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", p, err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

func isSnapshotName(name string) bool {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return false
	}
	day := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	_, err := time.Parse(dayLayout, day)
	return err == nil
}
