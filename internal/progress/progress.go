// Package progress is the local completion ledger: question id -> completed.
package progress

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/kv"
	"github.com/hpungsan/pmprep/internal/logger"
)

// StorageKey is the kv key holding the JSON-serialized ledger.
const StorageKey = "pm-prep-progress"

// maxWriteAttempts bounds the retry loop on version conflicts.
const maxWriteAttempts = 3

// Ledger maps question id to completion. Only completed questions are
// present; a missing key means not completed.
type Ledger map[string]bool

// Clone returns an independent copy of l.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Summary is the completion count over a set of questions.
type Summary struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Store reads and writes the ledger through a kv.Store.
type Store struct {
	kv  kv.Store
	log *logger.Logger
}

// New creates a progress Store.
func New(store kv.Store, log *logger.Logger) *Store {
	return &Store{kv: store, log: logger.OrNop(log).With("component", "progress")}
}

// GetAll returns the whole ledger. Unavailable storage or an unparsable
// value yields an empty ledger; it never fails.
func (s *Store) GetAll() Ledger {
	e, err := s.kv.Get(StorageKey)
	if err != nil {
		s.log.Warn("progress storage unavailable, treating ledger as empty", "key", StorageKey, "error", err)
		return Ledger{}
	}
	return s.parse(e)
}

// parse decodes a stored entry, treating missing or malformed values as empty.
func (s *Store) parse(e kv.Entry) Ledger {
	if !e.Found {
		return Ledger{}
	}
	ledger, err := decode(e.Value)
	if err != nil {
		s.log.Warn("progress ledger unparsable, treating as empty", "key", StorageKey, "error", errors.NewParse(StorageKey, err))
		return Ledger{}
	}
	return ledger
}

// SetCompletion marks id completed (insert) or not completed (remove key)
// and returns the new ledger snapshot. On error nothing was persisted and
// callers must not advance their own state.
func (s *Store) SetCompletion(id string, completed bool) (Ledger, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewInvalidRequest("question id is required")
	}

	var ledger Ledger
	err := kv.Update(s.kv, StorageKey, maxWriteAttempts, func(current kv.Entry) (string, error) {
		ledger = s.parse(current)
		if completed {
			ledger[id] = true
		} else {
			delete(ledger, id)
		}
		data, err := json.Marshal(ledger)
		if err != nil {
			return "", errors.NewPersistence(StorageKey, err)
		}
		return string(data), nil
	})
	if err != nil {
		s.log.Warn("progress write failed", "question_id", id, "completed", completed, "error", err)
		return nil, err
	}
	return ledger, nil
}

// Replace overwrites the whole ledger with l, dropping false entries.
// Used to mirror an authoritative remote store.
func (s *Store) Replace(l Ledger) (Ledger, error) {
	next := make(Ledger, len(l))
	for id, done := range l {
		if done && strings.TrimSpace(id) != "" {
			next[id] = true
		}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return nil, errors.NewPersistence(StorageKey, err)
	}
	err = kv.Update(s.kv, StorageKey, maxWriteAttempts, func(kv.Entry) (string, error) {
		return string(data), nil
	})
	if err != nil {
		s.log.Warn("progress replace failed", "entries", len(next), "error", err)
		return nil, err
	}
	return next, nil
}

// ComputeProgress counts completed questions among ids against the stored ledger.
func (s *Store) ComputeProgress(ids []string) Summary {
	return Compute(s.GetAll(), ids)
}

// ClearAll empties the ledger. Returns false if the clear could not be persisted.
func (s *Store) ClearAll() bool {
	if err := s.kv.Delete(StorageKey); err != nil {
		s.log.Warn("progress clear failed", "error", err)
		return false
	}
	return true
}

// Compute counts completed questions among ids (duplicates counted once).
// Percentage is 0 when there are no ids and is always within [0, 100].
func Compute(ledger Ledger, ids []string) Summary {
	seen := make(map[string]struct{}, len(ids))
	completed := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if ledger[id] {
			completed++
		}
	}

	total := len(seen)
	percentage := 0.0
	if total > 0 {
		percentage = float64(completed) / float64(total) * 100
	}
	return Summary{
		Completed:  completed,
		Total:      total,
		Percentage: clampPercentage(percentage),
	}
}

func clampPercentage(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// decode parses a stored ledger, dropping any false entries.
func decode(raw string) (Ledger, error) {
	var parsed map[string]bool
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}
	ledger := make(Ledger, len(parsed))
	for id, done := range parsed {
		if done {
			ledger[id] = true
		}
	}
	return ledger, nil
}
