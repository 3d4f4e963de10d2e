package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"kinobot/internal/logging"
	"kinobot/internal/metrics"
	"kinobot/internal/notifications"
	"kinobot/internal/testsupport"
)

type fakeExporter struct {
	data []byte
	err  error
}

func (f fakeExporter) Export(context.Context) ([]byte, error) { return f.data, f.err }

type recordingNotifier struct {
	notifications.Service
	failures []error
}

func (r *recordingNotifier) NotifyBackupFailed(_ context.Context, err error) error {
	r.failures = append(r.failures, err)
	return nil
}

func newTestService(t *testing.T, source Exporter) (*Service, *time.Time) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Backup.Keep = 3
	svc := NewService(cfg, source, nil, logging.NewNop())
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func TestSnapshotWritesExport(t *testing.T) {
	payload := []byte(`{"4821":{"type":"single"}}`)
	svc, _ := newTestService(t, fakeExporter{data: payload})
	before := testutil.ToFloat64(metrics.BackupRuns.WithLabelValues(metrics.ResultOK))

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Name != "catalog-20260301T120000.000Z.json" {
		t.Fatalf("unexpected name %q", snap.Name)
	}
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Fatalf("backup content = %q", data)
	}
	if snap.Size != int64(len(payload)) {
		t.Fatalf("size = %d", snap.Size)
	}
	if got := testutil.ToFloat64(metrics.BackupRuns.WithLabelValues(metrics.ResultOK)); got != before+1 {
		t.Fatalf("ok runs = %v, want %v", got, before+1)
	}
}

func TestSnapshotPrunesToKeep(t *testing.T) {
	svc, clock := newTestService(t, fakeExporter{data: []byte(`{}`)})
	var names []string
	for i := 0; i < 5; i++ {
		*clock = clock.Add(time.Hour)
		snap, err := svc.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot %d: %v", i, err)
		}
		names = append(names, snap.Name)
	}
	if err := os.WriteFile(filepath.Join(svc.dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	snaps, err := svc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	for i, snap := range snaps {
		if want := names[len(names)-1-i]; snap.Name != want {
			t.Fatalf("snapshot %d = %s, want %s", i, snap.Name, want)
		}
	}
	if _, err := os.Stat(filepath.Join(svc.dir, "notes.txt")); err != nil {
		t.Fatal("unrelated files must survive pruning")
	}
}

func TestSnapshotRefusesToOverwrite(t *testing.T) {
	svc, _ := newTestService(t, fakeExporter{data: []byte(`{}`)})
	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Snapshot(context.Background()); err == nil {
		t.Fatal("expected second snapshot at the same instant to fail")
	}
}

func TestSnapshotFailureIsNotified(t *testing.T) {
	cause := errors.New("disk gone")
	svc, _ := newTestService(t, fakeExporter{err: cause})
	notifier := &recordingNotifier{Service: notifications.NewNoop()}
	svc.notifier = notifier
	before := testutil.ToFloat64(metrics.BackupRuns.WithLabelValues(metrics.ResultError))

	if _, err := svc.Snapshot(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("expected export error, got %v", err)
	}
	if len(notifier.failures) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.failures))
	}
	if got := testutil.ToFloat64(metrics.BackupRuns.WithLabelValues(metrics.ResultError)); got != before+1 {
		t.Fatalf("error runs = %v, want %v", got, before+1)
	}
	if snaps, _ := svc.List(); len(snaps) != 0 {
		t.Fatalf("failed snapshot left files: %+v", snaps)
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, fakeExporter{})
	svc.dir = filepath.Join(t.TempDir(), "absent")
	snaps, err := svc.List()
	if err != nil || len(snaps) != 0 {
		t.Fatalf("List = (%v, %v)", snaps, err)
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	svc, _ := newTestService(t, fakeExporter{})
	if _, err := NewScheduler(svc, "every tuesday", logging.NewNop()); err == nil {
		t.Fatal("expected schedule parse error")
	}
	sched, err := NewScheduler(svc, "@daily", logging.NewNop())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	sched.Start()
	sched.Stop()
}
