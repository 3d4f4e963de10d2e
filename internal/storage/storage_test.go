package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kinobot/internal/config"
	"kinobot/internal/storage"
)

func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()
	dir := t.TempDir()
	file, err := storage.NewFileBackend(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	db, err := storage.OpenSQLite(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return map[string]storage.Backend{"file": file, "sqlite": db}
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := backend.ReadDocument(ctx, "movies.json"); !errors.Is(err, storage.ErrNotExist) {
				t.Fatalf("expected ErrNotExist, got %v", err)
			}
			if err := backend.WriteDocument(ctx, "movies.json", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := backend.WriteDocument(ctx, "movies.json", []byte(`{"b":2}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := backend.ReadDocument(ctx, "movies.json")
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != `{"b":2}` {
				t.Fatalf("unexpected document %q", got)
			}
		})
	}
}

func TestBackendsRejectPathKeys(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../escape", "a/b", ".."} {
				if err := backend.WriteDocument(ctx, key, []byte("x")); err == nil {
					t.Fatalf("expected error for key %q", key)
				}
			}
		})
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.WriteDocument(ctx, "movies.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := storage.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.ReadDocument(ctx, "movies.json")
	if err != nil || string(got) != "{}" {
		t.Fatalf("unexpected read after reopen: %q %v", got, err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Dir = t.TempDir()
	cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.Dir, "catalog.db")

	backend, err := storage.Open(&cfg)
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := backend.(*storage.FileBackend); !ok {
		t.Fatalf("expected file backend, got %T", backend)
	}

	cfg.Storage.Driver = "sqlite"
	backend, err = storage.Open(&cfg)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer backend.Close()
	if _, ok := backend.(*storage.SQLiteBackend); !ok {
		t.Fatalf("expected sqlite backend, got %T", backend)
	}

	cfg.Storage.Driver = "redis"
	if _, err := storage.Open(&cfg); err == nil {
		t.Fatal("expected unsupported driver error")
	}
}
