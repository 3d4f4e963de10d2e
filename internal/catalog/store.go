package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"kinobot/internal/logging"
	"kinobot/internal/services"
	"kinobot/internal/storage"
)

// ErrCodeTaken is joined with services.ErrDuplicate when Insert finds the code in use.
var ErrCodeTaken = errors.New("code already taken")

// FailureNotifier receives storage failures that halt catalog mutation.
type FailureNotifier interface {
	NotifyStorageFailure(ctx context.Context, err error) error
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logging.NewComponentLogger(logger, "catalog") }
}

// WithNotifier routes unwritable-storage failures to operators.
func WithNotifier(n FailureNotifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithSizeObserver is called with the entry count after each successful write.
func WithSizeObserver(fn func(int)) Option {
	return func(s *Store) { s.onSize = fn }
}

// Store is the durable code → entry mapping.
type Store struct {
	backend  storage.Backend
	key      string
	logger   *slog.Logger
	notifier FailureNotifier
	onSize   func(int)
	now      func() time.Time

	mu sync.RWMutex

	corruptMu   sync.Mutex
	corruptSeen [sha256.Size]byte
}

// NewStore returns a store persisting the document key in backend.
func NewStore(backend storage.Backend, key string, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		key:     key,
		logger:  logging.NewComponentLogger(nil, "catalog"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the document key the store persists to.
func (s *Store) Key() string { return s.key }

// Get returns a copy of the entry for code.
func (s *Store) Get(ctx context.Context, code string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.load(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	entry, ok := doc[code]
	if !ok {
		return Entry{}, false, nil
	}
	return entry.Clone(), true, nil
}

// ForEach calls fn for every entry in code order until fn returns false.
func (s *Store) ForEach(ctx context.Context, fn func(Entry) bool) error {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, code := range sortedKeys(doc) {
		if !fn(doc[code]) {
			return nil
		}
	}
	return nil
}

// Snapshot returns a deep copy of the decoded catalog.
func (s *Store) Snapshot(ctx context.Context) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(Document, len(doc))
	for code, entry := range doc {
		out[code] = entry.Clone()
	}
	return out, nil
}

// Codes returns every code in ascending order.
func (s *Store) Codes(ctx context.Context) ([]string, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return sortedKeys(doc), nil
}

// FindMedia returns the slot already holding fingerprint, if any.
func (s *Store) FindMedia(ctx context.Context, fingerprint string) (Slot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.load(ctx)
	if err != nil {
		return Slot{}, false, err
	}
	slot, ok := IndexOf(doc).Find(fingerprint)
	return slot, ok, nil
}

// AllocateCode reserves a code that is free in the current document.
func (s *Store) AllocateCode(ctx context.Context, alloc *Allocator) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return alloc.Allocate(func(code string) bool {
		_, taken := doc[code]
		return taken
	})
}

// Put stores entry, replacing any entry under the same code.
func (s *Store) Put(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return services.Wrap(services.ErrMalformedInput, "catalog", "put", entry.Code, err)
	}
	return s.Mutate(ctx, func(doc Document) error {
		doc[entry.Code] = entry.Clone()
		return nil
	})
}

// Delete removes code and returns the removed entry.
func (s *Store) Delete(ctx context.Context, code string) (Entry, error) {
	var removed Entry
	err := s.Mutate(ctx, func(doc Document) error {
		entry, ok := doc[code]
		if !ok {
			return services.Wrap(services.ErrNotFound, "catalog", "delete", "code "+code, nil)
		}
		removed = entry
		delete(doc, code)
		return nil
	})
	return removed, err
}

// Update applies fn to a copy of the entry for code and stores the result.
// fn receives an index over the same document, so uniqueness checks and the
// write happen in one critical section.
func (s *Store) Update(ctx context.Context, code string, fn func(*Entry, Index) error) (Entry, error) {
	var updated Entry
	err := s.Mutate(ctx, func(doc Document) error {
		current, ok := doc[code]
		if !ok {
			return services.Wrap(services.ErrNotFound, "catalog", "update", "code "+code, nil)
		}
		next := current.Clone()
		if err := fn(&next, IndexOf(doc)); err != nil {
			return err
		}
		next.Code = code
		if err := next.Validate(); err != nil {
			return services.Wrap(services.ErrMalformedInput, "catalog", "update", "code "+code, err)
		}
		doc[code] = next
		updated = next.Clone()
		return nil
	})
	return updated, err
}

// Insert adds a new complete entry, re-checking code and fingerprint
// uniqueness inside the write critical section.
func (s *Store) Insert(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return services.Wrap(services.ErrMalformedInput, "catalog", "insert", entry.Code, err)
	}
	if !entry.Complete() {
		return services.Wrap(services.ErrMalformedInput, "catalog", "insert", "entry "+entry.Code+" has no media", nil)
	}
	return s.Mutate(ctx, func(doc Document) error {
		if _, exists := doc[entry.Code]; exists {
			return services.Wrap(services.ErrDuplicate, "catalog", "insert", "code "+entry.Code, ErrCodeTaken)
		}
		if err := checkFingerprints(IndexOf(doc), entry, false); err != nil {
			return err
		}
		doc[entry.Code] = entry.Clone()
		return nil
	})
}

// checkFingerprints rejects entry when any of its fingerprints repeats inside
// the entry or exists elsewhere in the index. With sameCode set, slots of the
// entry's own code are ignored.
func checkFingerprints(ix Index, entry Entry, sameCode bool) error {
	seen := make(map[string]struct{})
	for _, fp := range entry.Fingerprints() {
		if _, dup := seen[fp]; dup {
			return services.Wrap(services.ErrDuplicate, "catalog", "insert", "media repeated within "+entry.Code, nil)
		}
		seen[fp] = struct{}{}
		for _, slot := range ix.slots(fp) {
			if sameCode && slot.Code == entry.Code {
				continue
			}
			return services.Wrap(services.ErrDuplicate, "catalog", "insert", "media already stored under "+slot.Code, nil)
		}
	}
	return nil
}

// Mutate runs one read → decode → modify → encode → write cycle. Nothing is
// written when fn returns an error.
func (s *Store) Mutate(ctx context.Context, fn func(Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	data, err := Encode(doc)
	if err != nil {
		return services.Wrap(services.ErrStorageUnwritable, "catalog", "encode", s.key, err)
	}
	if err := s.backend.WriteDocument(ctx, s.key, data); err != nil {
		wrapped := services.Wrap(services.ErrStorageUnwritable, "catalog", "write", s.key, err)
		logging.ErrorWithContext(s.logger, "catalog write failed", "catalog_write_failed",
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "check free space and permissions of the storage directory"),
		)
		if s.notifier != nil {
			if notifyErr := s.notifier.NotifyStorageFailure(ctx, wrapped); notifyErr != nil {
				s.logger.Warn("storage failure notification failed", logging.Error(notifyErr))
			}
		}
		return wrapped
	}
	if s.onSize != nil {
		s.onSize(len(doc))
	}
	return nil
}

// load reads and decodes the document. An unparseable document is preserved
// (see preserveCorrupt) and treated as empty; read errors are returned.
func (s *Store) load(ctx context.Context) (Document, error) {
	data, err := s.backend.ReadDocument(ctx, s.key)
	if errors.Is(err, storage.ErrNotExist) {
		return make(Document), nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read document: %w", err)
	}

	doc, issues, err := Decode(data)
	if err != nil {
		s.preserveCorrupt(ctx, data, services.Wrap(services.ErrStorageCorrupt, "catalog", "decode", s.key, err))
		return make(Document), nil
	}
	if len(issues) > 0 {
		reasons := make([]string, 0, len(issues))
		for _, issue := range issues {
			reasons = append(reasons, issue.String())
		}
		sort.Strings(reasons)
		s.preserveCorrupt(ctx, data, services.Wrap(services.ErrStorageCorrupt, "catalog", "decode",
			fmt.Sprintf("%d unreadable entries dropped", len(issues)), errors.New(fmt.Sprint(reasons))))
	}
	return doc, nil
}

func (s *Store) preserveCorrupt(ctx context.Context, data []byte, cause error) {
	sum := sha256.Sum256(data)
	s.corruptMu.Lock()
	defer s.corruptMu.Unlock()
	if sum == s.corruptSeen {
		return
	}
	s.corruptSeen = sum

	corruptKey, fresh := s.corruptKey(ctx, data)
	if !fresh {
		return
	}
	attrs := []logging.Attr{
		logging.Error(cause),
		logging.String("preserved_as", corruptKey),
		logging.String(logging.FieldErrorHint, "inspect the preserved copy and restore with 'kinobot catalog import'"),
		logging.String(logging.FieldImpact, "unreadable entries are unavailable until restored"),
	}
	if err := s.backend.WriteDocument(ctx, corruptKey, data); err != nil {
		attrs = append(attrs, logging.String("preserve_error", err.Error()))
	}
	logging.WarnWithContext(s.logger, "catalog document unreadable; continuing without the affected entries", "catalog_corrupt", attrs...)
}

// corruptKey picks where data is preserved. The first copy lives at
// <key>.corrupt and is never overwritten; later, different corruptions get
// <key>.corrupt-<UTC stamp>. fresh is false when data is already the first copy.
func (s *Store) corruptKey(ctx context.Context, data []byte) (key string, fresh bool) {
	first := s.key + ".corrupt"
	existing, err := s.backend.ReadDocument(ctx, first)
	switch {
	case errors.Is(err, storage.ErrNotExist):
		return first, true
	case err == nil && bytes.Equal(existing, data):
		return first, false
	}
	return fmt.Sprintf("%s-%s", first, s.now().UTC().Format("20060102T150405.000000000Z")), true
}
