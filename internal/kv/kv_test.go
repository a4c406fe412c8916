package kv

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pmprep/internal/db"
	"github.com/hpungsan/pmprep/internal/errors"
)

// stores returns every Store implementation, each fresh.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return map[string]Store{
		"sqlite": NewSQLite(database),
		"memory": NewMemory(),
	}
}

func TestStore_Contract(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			e, err := s.Get("k")
			require.NoError(t, err)
			require.False(t, e.Found)

			v, err := s.Put("k", "one", e.Version)
			require.NoError(t, err)

			e, err = s.Get("k")
			require.NoError(t, err)
			require.True(t, e.Found)
			require.Equal(t, "one", e.Value)
			require.Equal(t, v, e.Version)

			_, err = s.Put("k", "stale", v-1)
			require.True(t, errors.Is(err, errors.ErrConflict))

			require.NoError(t, s.Delete("k"))
			e, err = s.Get("k")
			require.NoError(t, err)
			require.False(t, e.Found)
			require.Greater(t, e.Version, v, "delete must advance the version")

			_, err = s.Put("k", "two", e.Version)
			require.NoError(t, err)
		})
	}
}

func TestMemory_FailureInjection(t *testing.T) {
	m := NewMemory()
	boom := fmt.Errorf("quota exceeded")

	m.FailWrites(boom)
	_, err := m.Put("k", "v", 0)
	require.True(t, errors.Is(err, errors.ErrPersistenceFailed))
	require.True(t, errors.Is(m.Delete("k"), errors.ErrPersistenceFailed))
	_, ok := m.Raw("k")
	require.False(t, ok)

	m.FailWrites(nil)
	_, err = m.Put("k", "v", 0)
	require.NoError(t, err)

	m.FailReads(boom)
	_, err = m.Get("k")
	require.Error(t, err)

	m.FailReads(nil)
	raw, ok := m.Raw("k")
	require.True(t, ok)
	require.Equal(t, "v", raw)
}

func TestUpdate(t *testing.T) {
	m := NewMemory()

	err := Update(m, "k", 3, func(cur Entry) (string, error) {
		require.False(t, cur.Found)
		return "one", nil
	})
	require.NoError(t, err)

	err = Update(m, "k", 3, func(cur Entry) (string, error) {
		return cur.Value + "+two", nil
	})
	require.NoError(t, err)
	raw, _ := m.Raw("k")
	require.Equal(t, "one+two", raw)

	abort := fmt.Errorf("abort")
	err = Update(m, "k", 3, func(Entry) (string, error) { return "", abort })
	require.ErrorIs(t, err, abort)
	raw, _ = m.Raw("k")
	require.Equal(t, "one+two", raw)
}

func TestUpdate_ConflictExhaustion(t *testing.T) {
	m := NewMemory()
	calls := 0

	err := Update(m, "k", 2, func(cur Entry) (string, error) {
		calls++
		// Another writer sneaks in between our read and write
		_, putErr := m.Put("k", "theirs", cur.Version)
		require.NoError(t, putErr)
		return "ours", nil
	})
	require.True(t, errors.Is(err, errors.ErrPersistenceFailed), "got %v", err)
	require.Equal(t, 2, calls)
	raw, _ := m.Raw("k")
	require.Equal(t, "theirs", raw)
}

func TestUpdate_WriteFailure(t *testing.T) {
	m := NewMemory()
	m.FailWrites(fmt.Errorf("quota exceeded"))

	err := Update(m, "k", 3, func(Entry) (string, error) { return "v", nil })
	require.True(t, errors.Is(err, errors.ErrPersistenceFailed))
}
