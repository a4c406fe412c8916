package questionstore

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/pmprep/internal/db"
	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/question"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any bad line or id collision (atomic)
	ImportModeReplace ImportMode = "replace" // skip bad lines, overwrite collisions
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 1 << 20

// ImportInput contains parameters for Import.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of Import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one rejected line.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type record struct {
	line int
	q    question.Question
}

// Import loads questions from a JSONL file, one question object per line.
// Blank lines are ignored. Records without an _id get a fresh ULID.
func (s *Store) Import(input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}

	file, err := os.Open(input.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("import file not found: %s", input.Path))
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, lineErrors := s.parse(file)

	out := &ImportOutput{Errors: lineErrors}
	if input.Mode == ImportModeError && len(lineErrors) > 0 {
		return out, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range records {
		if input.Mode == ImportModeError {
			exists, err := db.QuestionExists(tx, r.q.ID)
			if err != nil {
				return nil, err
			}
			if exists {
				return &ImportOutput{Errors: []ImportError{{
					Line:    r.line,
					ID:      r.q.ID,
					Code:    "ID_COLLISION",
					Message: fmt.Sprintf("question with id %q already exists", r.q.ID),
				}}}, nil
			}
		}
		if err := db.InsertQuestion(tx, r.q); err != nil {
			return nil, err
		}
		out.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	out.Skipped = len(lineErrors)
	s.log.Info("questions imported", "path", input.Path, "mode", string(input.Mode), "imported", out.Imported, "skipped", out.Skipped)
	return out, nil
}

// parse reads every line, returning valid records and per-line problems.
// A duplicate id within the file is reported on its second occurrence.
func (s *Store) parse(r io.Reader) ([]record, []ImportError) {
	var (
		records []record
		errs    []ImportError
		seen    = make(map[string]int)
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var q question.Question
		if err := json.Unmarshal([]byte(line), &q); err != nil {
			errs = append(errs, ImportError{Line: lineNum, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = newID()
		}
		if err := s.validate(q); err != nil {
			errs = append(errs, ImportError{Line: lineNum, ID: q.ID, Code: "INVALID_RECORD", Message: errors.As(err).Message})
			continue
		}
		if first, dup := seen[q.ID]; dup {
			errs = append(errs, ImportError{Line: lineNum, ID: q.ID, Code: "DUPLICATE_ID", Message: fmt.Sprintf("id already used on line %d", first)})
			continue
		}
		seen[q.ID] = lineNum
		records = append(records, record{line: lineNum, q: q})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: lineNum, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return records, errs
}

func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
