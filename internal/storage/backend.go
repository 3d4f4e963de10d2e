package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kinobot/internal/config"
)

// ErrNotExist reports that no document has been written under a key yet.
var ErrNotExist = errors.New("document does not exist")

// Backend is the atomic key/document store the catalog persists into.
type Backend interface {
	// ReadDocument returns the bytes last written under key or ErrNotExist.
	ReadDocument(ctx context.Context, key string) ([]byte, error)
	// WriteDocument replaces the document under key as one unit.
	WriteDocument(ctx context.Context, key string, data []byte) error
	Close() error
}

// Open returns the backend selected by storage.driver.
func Open(cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, errors.New("storage: config is nil")
	}
	switch cfg.Storage.Driver {
	case "", "file":
		return NewFileBackend(cfg.Storage.Dir)
	case "sqlite":
		return OpenSQLite(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Storage.Driver)
	}
}

func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("storage: empty document key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("storage: invalid document key %q", key)
	}
	return nil
}
