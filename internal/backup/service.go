package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"kinobot/internal/config"
	"kinobot/internal/fileutil"
	"kinobot/internal/logging"
	"kinobot/internal/metrics"
	"kinobot/internal/notifications"
	"kinobot/internal/services"
)

const (
	filePrefix = "catalog-"
	fileSuffix = ".json"
	// stampLayout sorts lexically in time order.
	stampLayout = "20060102T150405.000Z"
)

// Exporter produces the encoded catalog document.
type Exporter interface {
	Export(ctx context.Context) ([]byte, error)
}

// Snapshot describes one backup file.
type Snapshot struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Service writes and prunes snapshots.
type Service struct {
	source   Exporter
	dir      string
	keep     int
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a snapshot service for cfg.Backup.
func NewService(cfg *config.Config, source Exporter, notifier notifications.Service, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &Service{
		source:   source,
		dir:      cfg.Backup.Dir,
		keep:     cfg.Backup.Keep,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "backup"),
		now:      time.Now,
	}
}

// Snapshot writes the current catalog to a new file and prunes old ones.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		metrics.BackupRuns.WithLabelValues(metrics.ResultError).Inc()
		logging.WarnWithContext(s.logger, "catalog backup failed", "backup_failed",
			logging.String("dir", s.dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backup.dir exists and is writable"),
			logging.String(logging.FieldImpact, "no fresh restore point"),
		)
		if notifyErr := s.notifier.NotifyBackupFailed(ctx, err); notifyErr != nil {
			s.logger.Debug("backup failure notification failed", logging.Error(notifyErr))
		}
		return Snapshot{}, err
	}
	metrics.BackupRuns.WithLabelValues(metrics.ResultOK).Inc()

	removed, err := s.Prune()
	if err != nil {
		logging.WarnWithContext(s.logger, "backup pruning failed", "backup_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old snapshots remain on disk"),
		)
	}
	s.logger.Info("catalog backup written",
		logging.String("path", snap.Path),
		logging.Int64("bytes", snap.Size),
		logging.Int("pruned", len(removed)),
		logging.String(logging.FieldEventType, "backup_written"),
	)
	return snap, nil
}

func (s *Service) snapshot(ctx context.Context) (Snapshot, error) {
	data, err := s.source.Export(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export catalog: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Snapshot{}, services.Wrap(services.ErrStorageUnwritable, "backup", "mkdir", s.dir, err)
	}
	name := filePrefix + s.now().UTC().Format(stampLayout) + fileSuffix
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return Snapshot{}, fmt.Errorf("backup %s already exists", name)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return Snapshot{}, services.Wrap(services.ErrStorageUnwritable, "backup", "write", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("stat backup: %w", err)
	}
	return Snapshot{Name: name, Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// List returns the snapshots in backup.dir, newest first.
func (s *Service) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	var out []Snapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Snapshot{
			Name:    name,
			Path:    filepath.Join(s.dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Prune removes all but the newest keep snapshots and returns the removed paths.
func (s *Service) Prune() ([]string, error) {
	if s.keep <= 0 {
		return nil, nil
	}
	snaps, err := s.List()
	if err != nil || len(snaps) <= s.keep {
		return nil, err
	}
	var removed []string
	for _, snap := range snaps[s.keep:] {
		if err := os.Remove(snap.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", snap.Name, err)
		}
		removed = append(removed, snap.Path)
	}
	return removed, nil
}
