package questionstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pmprep/internal/db"
	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/question"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database, nil, nil)
}

func writeJSONL(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	return path
}

func mustPut(t *testing.T, s *Store, qs ...question.Question) {
	t.Helper()
	for _, q := range qs {
		require.NoError(t, s.Put(q))
	}
}

func TestPut_Validates(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		q    question.Question
	}{
		{"missing id", question.Question{Category: "Behavioral", SubCategory: "Achievement & Success", Question: "x"}},
		{"missing text", question.Question{ID: "q1", Category: "Behavioral", SubCategory: "Achievement & Success"}},
		{"unknown category", question.Question{ID: "q1", Category: "Cooking", SubCategory: "Soups", Question: "x"}},
		{"sub from other category", question.Question{ID: "q1", Category: "Behavioral", SubCategory: "Root Cause Analysis", Question: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(tt.q)
			assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestToggle(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s, question.Question{ID: "q1", Category: "Behavioral", SubCategory: "Achievement & Success", Question: "Win?"})

	on, err := s.Toggle("q1")
	require.NoError(t, err)
	assert.True(t, on)

	q, err := s.Get("q1")
	require.NoError(t, err)
	assert.True(t, q.IsCompleted)

	off, err := s.Toggle("q1")
	require.NoError(t, err)
	assert.False(t, off)
}

func TestToggle_UnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Toggle("nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = s.Toggle("")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestPut_KeepsCompletionOnReimport(t *testing.T) {
	s := newTestStore(t)
	q := question.Question{ID: "q1", Category: "Behavioral", SubCategory: "Achievement & Success", Question: "Win?"}
	mustPut(t, s, q)
	_, err := s.Toggle("q1")
	require.NoError(t, err)

	q.Question = "Biggest win?"
	mustPut(t, s, q)

	got, err := s.Get("q1")
	require.NoError(t, err)
	assert.Equal(t, "Biggest win?", got.Question)
	assert.True(t, got.IsCompleted)
}

func TestCategoriesAndSubCategories(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s,
		question.Question{ID: "a", Category: "Strategy", SubCategory: "Market Entry & Expansion", Question: "x"},
		question.Question{ID: "b", Category: "Behavioral", SubCategory: "Interpersonal & Collaboration", Question: "x"},
		question.Question{ID: "c", Category: "Behavioral", SubCategory: "Achievement & Success", Question: "x"},
	)

	cats, err := s.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Behavioral", "Strategy"}, cats)

	subs, err := s.SubCategories("Behavioral")
	require.NoError(t, err)
	assert.Equal(t, []string{"Achievement & Success", "Interpersonal & Collaboration"}, subs)

	all, err := s.SubCategories(" ")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestImport_ErrorMode(t *testing.T) {
	s := newTestStore(t)
	path := writeJSONL(t,
		`{"_id":"q1","category":"Behavioral","subCategory":"Achievement & Success","question":"Win?"}`,
		``,
		`{"category":"Execution","subCategory":"Root Cause Analysis","question":"Why did DAU drop?"}`,
	)

	out, err := s.Import(ImportInput{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Imported)
	assert.Empty(t, out.Errors)

	qs, err := s.List(question.Filter{Category: "Execution"})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	_, err = ulid.ParseStrict(qs[0].ID)
	assert.NoError(t, err, "generated id is a ULID")
}

func TestImport_ErrorModeIsAtomic(t *testing.T) {
	s := newTestStore(t)
	path := writeJSONL(t,
		`{"_id":"q1","category":"Behavioral","subCategory":"Achievement & Success","question":"Win?"}`,
		`{not json}`,
	)

	out, err := s.Import(ImportInput{Path: path, Mode: ImportModeError})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Imported)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 2, out.Errors[0].Line)
	assert.Equal(t, "PARSE_ERROR", out.Errors[0].Code)

	qs, err := s.List(question.Filter{})
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestImport_ErrorModeCollision(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s, question.Question{ID: "q2", Category: "Behavioral", SubCategory: "Achievement & Success", Question: "Old"})
	path := writeJSONL(t,
		`{"_id":"q1","category":"Behavioral","subCategory":"Achievement & Success","question":"Win?"}`,
		`{"_id":"q2","category":"Behavioral","subCategory":"Achievement & Success","question":"New"}`,
	)

	out, err := s.Import(ImportInput{Path: path})
	require.NoError(t, err)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "ID_COLLISION", out.Errors[0].Code)

	// q1 was rolled back with the rest.
	_, err = s.Get("q1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	q2, err := s.Get("q2")
	require.NoError(t, err)
	assert.Equal(t, "Old", q2.Question)
}

func TestImport_ReplaceMode(t *testing.T) {
	s := newTestStore(t)
	mustPut(t, s, question.Question{ID: "q2", Category: "Behavioral", SubCategory: "Achievement & Success", Question: "Old"})
	path := writeJSONL(t,
		`{"_id":"q1","category":"Behavioral","subCategory":"Achievement & Success","question":"Win?"}`,
		`{"_id":"q2","category":"Behavioral","subCategory":"Achievement & Success","question":"New"}`,
		`{"_id":"q3","category":"Cooking","subCategory":"Soups","question":"Broth?"}`,
		`{"_id":"q1","category":"Behavioral","subCategory":"Achievement & Success","question":"Dup"}`,
	)

	out, err := s.Import(ImportInput{Path: path, Mode: ImportModeReplace})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Imported)
	assert.Equal(t, 2, out.Skipped)
	require.Len(t, out.Errors, 2)
	assert.Equal(t, "INVALID_RECORD", out.Errors[0].Code)
	assert.Equal(t, 3, out.Errors[0].Line)
	assert.Equal(t, "DUPLICATE_ID", out.Errors[1].Code)

	q2, err := s.Get("q2")
	require.NoError(t, err)
	assert.Equal(t, "New", q2.Question)
	q1, err := s.Get("q1")
	require.NoError(t, err)
	assert.Equal(t, "Win?", q1.Question)
}

func TestImport_InvalidInput(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Import(ImportInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = s.Import(ImportInput{Path: "x.jsonl", Mode: "rename"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = s.Import(ImportInput{Path: filepath.Join(t.TempDir(), "missing.jsonl")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
