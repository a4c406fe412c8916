package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/question"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// InsertQuestion stores q, replacing any row with the same id. An existing
// row keeps its completion flag.
func InsertQuestion(ex Execer, q question.Question) error {
	now := time.Now().Unix()
	_, err := ex.Exec(`
		INSERT INTO questions (
			id, category, sub_category, question, how_to_answer, example_answer,
			is_completed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			sub_category = excluded.sub_category,
			question = excluded.question,
			how_to_answer = excluded.how_to_answer,
			example_answer = excluded.example_answer,
			updated_at = excluded.updated_at
	`, q.ID, q.Category, q.SubCategory, q.Question, q.HowToAnswer, q.ExampleAnswer,
		boolToInt(q.IsCompleted), now, now)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetQuestion retrieves a question by id.
func GetQuestion(db *sql.DB, id string) (*question.Question, error) {
	row := db.QueryRow(`
		SELECT id, category, sub_category, question, how_to_answer, example_answer, is_completed
		FROM questions WHERE id = ?
	`, id)
	q, err := scanQuestion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return q, nil
}

// Queryer is satisfied by *sql.DB and *sql.Tx.
type Queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

// QuestionExists reports whether a question with id is stored.
func QuestionExists(q Queryer, id string) (bool, error) {
	var n int
	if err := q.QueryRow(`SELECT COUNT(*) FROM questions WHERE id = ?`, id).Scan(&n); err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// ListQuestions returns questions matching f in insertion order.
func ListQuestions(db *sql.DB, f question.Filter) ([]question.Question, error) {
	query := `
		SELECT id, category, sub_category, question, how_to_answer, example_answer, is_completed
		FROM questions
	`
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.SubCategory != "" {
		where = append(where, "sub_category = ?")
		args = append(args, f.SubCategory)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := make([]question.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// DistinctCategories returns the distinct category values, sorted.
func DistinctCategories(db *sql.DB) ([]string, error) {
	return distinct(db, `SELECT DISTINCT category FROM questions ORDER BY category`)
}

// DistinctSubCategories returns distinct subcategories, optionally scoped to category.
func DistinctSubCategories(db *sql.DB, category string) ([]string, error) {
	if category == "" {
		return distinct(db, `SELECT DISTINCT sub_category FROM questions ORDER BY sub_category`)
	}
	return distinct(db, `SELECT DISTINCT sub_category FROM questions WHERE category = ? ORDER BY sub_category`, category)
}

// ToggleQuestionCompleted flips the stored completion flag of id in one
// statement and returns the new value, so concurrent toggles never lose a flip.
func ToggleQuestionCompleted(db *sql.DB, id string) (bool, error) {
	var completed int
	err := db.QueryRow(`
		UPDATE questions SET is_completed = 1 - is_completed, updated_at = ?
		WHERE id = ?
		RETURNING is_completed
	`, time.Now().Unix(), id).Scan(&completed)
	if err == sql.ErrNoRows {
		return false, errors.NewNotFound(id)
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return completed != 0, nil
}

func distinct(db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*question.Question, error) {
	var (
		q         question.Question
		completed int
	)
	if err := row.Scan(&q.ID, &q.Category, &q.SubCategory, &q.Question,
		&q.HowToAnswer, &q.ExampleAnswer, &completed); err != nil {
		return nil, err
	}
	q.IsCompleted = completed != 0
	return &q, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
