package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pmprep/internal/errors"
)

func TestKV_PutGet(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	e, err := GetKV(database, "missing")
	require.NoError(t, err)
	require.True(t, e.Deleted)
	require.Equal(t, int64(0), e.Version)

	v, err := PutKV(database, "k", `{"a":true}`, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	e, err = GetKV(database, "k")
	require.NoError(t, err)
	require.False(t, e.Deleted)
	require.Equal(t, `{"a":true}`, e.Value)
	require.Equal(t, int64(1), e.Version)

	v, err = PutKV(database, "k", `{}`, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), v)
}

func TestKV_StaleVersionConflicts(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	_, err = PutKV(database, "k", "one", 0)
	require.NoError(t, err)

	// Second create on an existing key
	_, err = PutKV(database, "k", "two", 0)
	require.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)

	_, err = PutKV(database, "k", "two", 1)
	require.NoError(t, err)

	// Writer still holding version 1
	_, err = PutKV(database, "k", "three", 1)
	require.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)

	e, err := GetKV(database, "k")
	require.NoError(t, err)
	require.Equal(t, "two", e.Value)
}

func TestKV_DeleteKeepsVersionMonotonic(t *testing.T) {
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	_, err = PutKV(database, "k", "one", 0)
	require.NoError(t, err)

	require.NoError(t, DeleteKV(database, "k"))
	// Deleting twice is fine
	require.NoError(t, DeleteKV(database, "k"))
	require.NoError(t, DeleteKV(database, "never-written"))

	e, err := GetKV(database, "k")
	require.NoError(t, err)
	require.True(t, e.Deleted)
	require.Equal(t, int64(2), e.Version)

	// A writer that read version 1 before the delete must not resurrect its view
	_, err = PutKV(database, "k", "stale", 1)
	require.True(t, errors.Is(err, errors.ErrConflict))

	v, err := PutKV(database, "k", "fresh", e.Version)
	require.NoError(t, err)
	require.Equal(t, int64(3), v)
}
