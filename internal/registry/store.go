package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/storage"
)

const lockRetryDelay = 25 * time.Millisecond

// Store reads and mutates the registry file. Every mutation is a locked
// read-modify-write: an in-process mutex plus an exclusive flock on a sibling
// ".lock" file, so concurrent callers and processes serialise instead of
// losing updates.
type Store struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLockTimeout bounds how long a mutation waits for the file lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// New returns a Store backed by the registry file at path. Nothing is touched
// on disk until the first operation.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: 5 * time.Second,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the registry file location.
func (s *Store) Path() string { return s.path }

// Exists reports whether the registry file is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("registry: stat: %w: %w", apperr.ErrIO, err)
}

// Init writes an empty registry if none exists yet, giving callers an
// "initialised but empty" state distinct from "never written".
func (s *Store) Init() error {
	return s.mutate("init", false, func(*Document) error { return nil })
}

// List returns every entry in insertion order. A missing registry file is
// ErrNotFound, not an empty list; an unreadable document is ErrParse.
func (s *Store) List() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, s.readErr(err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return doc.Graphs, nil
}

// Find returns the first entry with the given identity.
func (s *Store) Find(basePath, name string) (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Matches(basePath, name) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("registry: graph %q in %s: %w", name, basePath, apperr.ErrNotFound)
}

// Add appends a new entry with created_at = last_opened = now. Duplicate
// identities are not rejected.
func (s *Store) Add(basePath, name string) error {
	return s.mutate("add", false, func(doc *Document) error {
		now := s.timestamp()
		doc.Graphs = append(doc.Graphs, Entry{
			Name:       name,
			Path:       basePath,
			CreatedAt:  now,
			LastOpened: now,
		})
		s.logger.Debug("registry: added", slog.String("name", name), slog.String("path", basePath))
		return nil
	})
}

// Touch sets last_opened to now on the first entry with the identity.
// Later duplicates are left alone. Touching an unknown identity is a no-op.
func (s *Store) Touch(basePath, name string) error {
	return s.mutate("touch", true, func(doc *Document) error {
		i := doc.indexOf(basePath, name)
		if i < 0 {
			return nil
		}
		now := s.timestamp()
		if now.Before(doc.Graphs[i].LastOpened) {
			now = doc.Graphs[i].LastOpened
		}
		doc.Graphs[i].LastOpened = now
		return nil
	})
}

// Remove deletes every entry with the identity.
func (s *Store) Remove(basePath, name string) error {
	return s.mutate("remove", true, func(doc *Document) error {
		kept := doc.Graphs[:0]
		for _, e := range doc.Graphs {
			if !e.Matches(basePath, name) {
				kept = append(kept, e)
			}
		}
		removed := len(doc.Graphs) - len(kept)
		doc.Graphs = kept
		s.logger.Debug("registry: removed",
			slog.String("name", name), slog.String("path", basePath), slog.Int("count", removed))
		return nil
	})
}

// Report summarises one validation pass.
type Report struct {
	Checked int
	Invalid []Entry
	Removed int
}

// Validate checks that every entry's graph root exists and records the result
// in its validated flag. With repair, invalid entries are dropped. The file is
// rewritten either way.
func (s *Store) Validate(repair bool) (Report, error) {
	var rep Report
	err := s.mutate("validate", true, func(doc *Document) error {
		kept := make([]Entry, 0, len(doc.Graphs))
		for _, e := range doc.Graphs {
			ok := dirExists(e.Root())
			e.Validated = &ok
			rep.Checked++
			s.logger.Debug("registry: validated",
				slog.String("name", e.Name), slog.String("path", e.Path), slog.Bool("exists", ok))
			if !ok {
				rep.Invalid = append(rep.Invalid, e)
				if repair {
					rep.Removed++
					continue
				}
			}
			kept = append(kept, e)
		}
		doc.Graphs = kept
		if rep.Removed > 0 {
			s.logger.Info("registry: pruned missing graphs", slog.Int("removed", rep.Removed))
		}
		return nil
	})
	return rep, err
}

// mutate runs fn against the current document under the lock and writes the
// result back. With requireExisting, a missing file fails with ErrNotFound.
func (s *Store) mutate(op string, requireExisting bool, fn func(*Document) error) error {
	if requireExisting {
		ok, err := s.Exists()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("registry: %s: %s: %w", op, s.path, apperr.ErrNotFound)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquire(op)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.load(requireExisting)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("registry: %s: %w", op, err)
	}
	return nil
}

// load reads the document for a mutation. A corrupt document is replaced by
// an empty one rather than failing the operation.
func (s *Store) load(requireExisting bool) (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !requireExisting {
			return &Document{Graphs: []Entry{}}, nil
		}
		return nil, s.readErr(err)
	}
	doc, err := Decode(data)
	if err != nil {
		s.logger.Warn("registry: corrupt document reset to empty",
			slog.String("path", s.path), slog.String("error", err.Error()))
		return &Document{Graphs: []Entry{}}, nil
	}
	return doc, nil
}

func (s *Store) acquire(op string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("registry: %s: mkdir: %w: %w", op, apperr.ErrIO, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: lock: %w: %w", op, apperr.ErrIO, err)
	}
	if !ok {
		return nil, fmt.Errorf("registry: %s: lock not acquired: %w", op, apperr.ErrIO)
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("registry: unlock failed", slog.String("error", err.Error()))
		}
	}, nil
}

func (s *Store) readErr(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("registry: %s does not exist: %w", s.path, apperr.ErrNotFound)
	}
	return fmt.Errorf("registry: read: %w: %w", apperr.ErrIO, err)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
