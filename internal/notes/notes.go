// Package notes stores free-form rich-text notes, one per question plus a
// single overall note.
package notes

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/kv"
	"github.com/hpungsan/pmprep/internal/logger"
)

// StorageKey is the kv key holding the JSON-serialized notes map.
const StorageKey = "pm-prep-notes"

const maxWriteAttempts = 3

// questionPrefix namespaces per-question keys. OverallKey carries no such
// prefix, so no question id can ever map onto it.
const questionPrefix = "question:"

// Key addresses one note.
type Key string

// OverallKey is the reserved key of the note not tied to any question.
const OverallKey Key = "overall"

// QuestionKey returns the key of the note attached to question id.
func QuestionKey(id string) Key {
	return Key(questionPrefix + id)
}

// ParseKey maps user input to a Key: "overall" is the overall note,
// "question:<id>" names a question explicitly, and anything else is a
// question id. The explicit form reaches a question whose id is "overall".
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.NewInvalidRequest("note key is required")
	}
	if s == string(OverallKey) {
		return OverallKey, nil
	}
	if id, ok := strings.CutPrefix(s, questionPrefix); ok {
		if strings.TrimSpace(id) == "" {
			return "", errors.NewInvalidRequest("question id is required after " + questionPrefix)
		}
		return QuestionKey(id), nil
	}
	return QuestionKey(s), nil
}

// QuestionID returns the question id of k and whether k is a question key.
func (k Key) QuestionID() (string, bool) {
	return strings.CutPrefix(string(k), questionPrefix)
}

// Arg returns the shortest input that ParseKey maps back to k.
func (k Key) Arg() string {
	id, ok := k.QuestionID()
	if !ok {
		return string(k)
	}
	if id == string(OverallKey) || strings.HasPrefix(id, questionPrefix) {
		return string(k)
	}
	return id
}

// Note is a saved note. It exists only after at least one save.
type Note struct {
	Content    string    `json:"content"`
	LastEdited time.Time `json:"lastEdited"`
}

// Store reads and writes notes through a kv.Store.
type Store struct {
	kv  kv.Store
	log *logger.Logger
	now func() time.Time
}

// New creates a notes Store.
func New(store kv.Store, log *logger.Logger) *Store {
	return &Store{
		kv:  store,
		log: logger.OrNop(log).With("component", "notes"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the note under key. ok is false when no note was ever saved
// (or it was cleared), which is distinct from a note with empty content.
func (s *Store) Get(key Key) (note Note, ok bool) {
	note, ok = s.load()[key]
	return note, ok
}

// All returns every saved note.
func (s *Store) All() map[Key]Note {
	return s.load()
}

// Save overwrites the note under key and stamps LastEdited with the current
// time, even when content is unchanged.
func (s *Store) Save(key Key, content string) (Note, error) {
	if key == "" {
		return Note{}, errors.NewInvalidRequest("note key is required")
	}
	note := Note{Content: content, LastEdited: s.now()}
	err := kv.Update(s.kv, StorageKey, maxWriteAttempts, func(current kv.Entry) (string, error) {
		all := s.parse(current)
		all[key] = note
		return encode(all)
	})
	if err != nil {
		s.log.Warn("note save failed", "note_key", string(key), "error", err)
		return Note{}, err
	}
	return note, nil
}

// Clear removes the note under key. Returns false if the removal could not
// be persisted. Clearing an absent note succeeds.
func (s *Store) Clear(key Key) bool {
	err := kv.Update(s.kv, StorageKey, maxWriteAttempts, func(current kv.Entry) (string, error) {
		all := s.parse(current)
		delete(all, key)
		return encode(all)
	})
	if err != nil {
		s.log.Warn("note clear failed", "note_key", string(key), "error", err)
		return false
	}
	return true
}

func (s *Store) load() map[Key]Note {
	e, err := s.kv.Get(StorageKey)
	if err != nil {
		s.log.Warn("notes storage unavailable, treating as empty", "key", StorageKey, "error", err)
		return map[Key]Note{}
	}
	return s.parse(e)
}

func (s *Store) parse(e kv.Entry) map[Key]Note {
	if !e.Found {
		return map[Key]Note{}
	}
	var all map[Key]Note
	if err := json.Unmarshal([]byte(e.Value), &all); err != nil {
		s.log.Warn("notes unparsable, treating as empty", "key", StorageKey, "error", errors.NewParse(StorageKey, err))
		return map[Key]Note{}
	}
	if all == nil {
		all = map[Key]Note{}
	}
	return all
}

func encode(all map[Key]Note) (string, error) {
	data, err := json.Marshal(all)
	if err != nil {
		return "", errors.NewPersistence(StorageKey, err)
	}
	return string(data), nil
}
