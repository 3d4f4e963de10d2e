package testsupport

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/storage"
)

// ErrInjected is returned by MemoryBackend when a failure is requested.
var ErrInjected = errors.New("injected storage failure")

// MemoryBackend is an in-process storage.Backend with failure injection.
type MemoryBackend struct {
	mu         sync.Mutex
	docs       map[string][]byte
	writes     int
	FailWrites bool
	FailReads  bool
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) ReadDocument(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReads {
		return nil, ErrInjected
	}
	data, ok := m.docs[key]
	if !ok {
		return nil, storage.ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) WriteDocument(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return ErrInjected
	}
	m.docs[key] = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// Keys returns the stored keys with the given prefix, sorted.
func (m *MemoryBackend) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.docs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Seed stores raw bytes under key without counting a write.
func (m *MemoryBackend) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), data...)
}

// Raw returns the stored bytes for key.
func (m *MemoryBackend) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[key]
	return append([]byte(nil), data...), ok
}

// Writes reports how many successful writes happened.
func (m *MemoryBackend) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// DocumentKey is the catalog key used by NewStore.
const DocumentKey = "movies.json"

// NewStore returns a catalog store over a fresh MemoryBackend.
func NewStore(t testing.TB, opts ...catalog.Option) (*catalog.Store, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	return catalog.NewStore(backend, DocumentKey, opts...), backend
}

// MustOpenStore opens the configured backend and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()
	backend, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return catalog.NewStore(backend, cfg.Storage.Document)
}

// Single builds a complete single entry.
func Single(code, fingerprint string) catalog.Entry {
	return catalog.Entry{
		Code:    code,
		Kind:    catalog.KindSingle,
		Poster:  "poster-" + code,
		Caption: "Movie " + code,
		Video:   &catalog.Media{Ref: "ref-" + fingerprint, Fingerprint: fingerprint},
	}
}

// Series builds a series entry with one episode per fingerprint, numbered from 1.
func Series(code string, fingerprints ...string) catalog.Entry {
	entry := catalog.Entry{
		Code:     code,
		Kind:     catalog.KindSeries,
		Poster:   "poster-" + code,
		Caption:  "Series " + code,
		Episodes: make(map[int]catalog.Episode, len(fingerprints)),
	}
	for i, fp := range fingerprints {
		entry.Episodes[i+1] = catalog.Episode{
			Media: catalog.Media{Ref: "ref-" + fp, Fingerprint: fp},
			Title: "Episode",
		}
	}
	return entry
}
