// Package questionstore is the server side of the question catalog: a sqlite
// repository of questions and their stored completion flags.
package questionstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/pmprep/internal/db"
	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/logger"
	"github.com/hpungsan/pmprep/internal/question"
)

// Store serves questions out of the questions table.
type Store struct {
	db       *sql.DB
	taxonomy question.Taxonomy
	log      *logger.Logger
}

// New creates a Store. A nil taxonomy means question.DefaultTaxonomy.
func New(database *sql.DB, taxonomy question.Taxonomy, log *logger.Logger) *Store {
	if taxonomy == nil {
		taxonomy = question.DefaultTaxonomy()
	}
	return &Store{db: database, taxonomy: taxonomy, log: logger.OrNop(log).With("component", "questionstore")}
}

// List returns the questions matching f.
func (s *Store) List(f question.Filter) ([]question.Question, error) {
	return db.ListQuestions(s.db, f.Clean())
}

// Get returns one question.
func (s *Store) Get(id string) (*question.Question, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	return db.GetQuestion(s.db, id)
}

// Categories returns the distinct stored categories, sorted.
func (s *Store) Categories() ([]string, error) {
	return db.DistinctCategories(s.db)
}

// SubCategories returns the distinct stored subcategories, sorted,
// optionally scoped to category.
func (s *Store) SubCategories(category string) ([]string, error) {
	return db.DistinctSubCategories(s.db, strings.TrimSpace(category))
}

// Toggle flips the stored completion flag of id and returns the new value.
// An unknown id is NOT_FOUND. The flip is a single statement.
func (s *Store) Toggle(id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.NewInvalidRequest("id is required")
	}
	next, err := db.ToggleQuestionCompleted(s.db, id)
	if err != nil {
		return false, err
	}
	s.log.Debug("question toggled", "question_id", id, "is_completed", next)
	return next, nil
}

// Put validates and stores q. Unlike Import it fails on the first problem.
func (s *Store) Put(q question.Question) error {
	if err := s.validate(q); err != nil {
		return err
	}
	return db.InsertQuestion(s.db, q)
}

func (s *Store) validate(q question.Question) error {
	if strings.TrimSpace(q.ID) == "" {
		return errors.NewInvalidRequest("id is required")
	}
	if strings.TrimSpace(q.Question) == "" {
		return errors.NewInvalidRequest("question text is required")
	}
	if !s.taxonomy.Contains(q.Category, q.SubCategory) {
		return errors.NewInvalidRequest(fmt.Sprintf("category %q / subCategory %q is not in the taxonomy", q.Category, q.SubCategory))
	}
	return nil
}
