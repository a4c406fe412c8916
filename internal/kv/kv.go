// Package kv is the local durable key-value storage the progress and notes
// ledgers live in. Every write carries the version the writer last read, so
// two processes sharing one base directory cannot silently clobber each other.
package kv

import (
	"database/sql"
	"sync"

	"github.com/hpungsan/pmprep/internal/db"
	"github.com/hpungsan/pmprep/internal/errors"
)

// Entry is a stored value and the version it was read at.
// A missing key reads as Found=false with the tombstone's version (or 0).
type Entry struct {
	Value   string
	Version int64
	Found   bool
}

// Store is a synchronous get/put/delete key-value interface.
type Store interface {
	Get(key string) (Entry, error)
	// Put writes value if the key is still at version expected.
	// Returns the new version or a CONFLICT error.
	Put(key, value string, expected int64) (int64, error)
	Delete(key string) error
}

// SQLite is a Store backed by the kv table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an initialized database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) Get(key string) (Entry, error) {
	e, err := db.GetKV(s.db, key)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Value: e.Value, Version: e.Version, Found: !e.Deleted}, nil
}

func (s *SQLite) Put(key, value string, expected int64) (int64, error) {
	return db.PutKV(s.db, key, value, expected)
}

func (s *SQLite) Delete(key string) error {
	return db.DeleteKV(s.db, key)
}

type memEntry struct {
	value   string
	version int64
	deleted bool
}

// Memory is an in-process Store. Write and read failures can be injected
// to exercise unavailable-storage paths.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*memEntry
	writeErr error
	readErr  error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memEntry)}
}

// FailWrites makes every subsequent Put/Delete fail with err (nil restores).
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// FailReads makes every subsequent Get fail with err (nil restores).
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Raw returns the stored value for key regardless of versioning, for tests.
func (m *Memory) Raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.deleted {
		return "", false
	}
	return e.value, true
}

func (m *Memory) Get(key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return Entry{}, errors.NewInternal(m.readErr)
	}
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, nil
	}
	return Entry{Value: e.value, Version: e.version, Found: !e.deleted}, nil
}

func (m *Memory) Put(key, value string, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, errors.NewPersistence(key, m.writeErr)
	}
	var current int64
	if e, ok := m.entries[key]; ok {
		current = e.version
	}
	if current != expected {
		return 0, errors.NewConflict(key, expected)
	}
	m.entries[key] = &memEntry{value: value, version: expected + 1}
	return expected + 1, nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return errors.NewPersistence(key, m.writeErr)
	}
	if e, ok := m.entries[key]; ok && !e.deleted {
		e.value = ""
		e.deleted = true
		e.version++
	}
	return nil
}

// Update runs a read-modify-write of key: fn receives the current entry and
// returns the value to store. A version conflict re-reads and re-runs fn, up
// to attempts times; exhausting them is a PERSISTENCE_FAILED error. An error
// from fn aborts without writing.
func Update(s Store, key string, attempts int, fn func(current Entry) (string, error)) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		current, err := s.Get(key)
		if err != nil {
			// Unreadable storage is treated as empty; the versioned write
			// below still refuses to clobber anything that exists.
			current = Entry{}
		}
		value, err := fn(current)
		if err != nil {
			return err
		}
		if _, err := s.Put(key, value, current.Version); err != nil {
			if errors.Is(err, errors.ErrConflict) {
				lastErr = err
				continue
			}
			if errors.Is(err, errors.ErrPersistenceFailed) {
				return err
			}
			return errors.NewPersistence(key, err)
		}
		return nil
	}
	return errors.NewPersistence(key, lastErr)
}
