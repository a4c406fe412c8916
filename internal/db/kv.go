package db

import (
	"database/sql"
	"time"

	"github.com/hpungsan/pmprep/internal/errors"
)

// KVEntry is a row of the kv table. Deleted rows are tombstones that keep
// their version so that compare-and-swap writes stay monotonic across clears.
type KVEntry struct {
	Key     string
	Value   string
	Version int64
	Deleted bool
}

// GetKV returns the entry for key. A missing row yields a zero entry with
// Version 0 and Deleted true.
func GetKV(db *sql.DB, key string) (KVEntry, error) {
	var (
		e       KVEntry
		deleted int
	)
	err := db.QueryRow(
		`SELECT key, value, version, deleted FROM kv WHERE key = ?`, key,
	).Scan(&e.Key, &e.Value, &e.Version, &deleted)
	if err == sql.ErrNoRows {
		return KVEntry{Key: key, Deleted: true}, nil
	}
	if err != nil {
		return KVEntry{}, errors.NewInternal(err)
	}
	e.Deleted = deleted != 0
	return e, nil
}

// PutKV writes value under key if the stored version equals expected
// (0 means no row exists yet). Returns the new version, or a CONFLICT error
// when another writer got there first.
func PutKV(db *sql.DB, key, value string, expected int64) (int64, error) {
	now := time.Now().Unix()

	var (
		result sql.Result
		err    error
	)
	if expected == 0 {
		result, err = db.Exec(`
			INSERT INTO kv (key, value, version, deleted, updated_at)
			VALUES (?, ?, 1, 0, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, value, now)
	} else {
		result, err = db.Exec(`
			UPDATE kv
			SET value = ?, version = version + 1, deleted = 0, updated_at = ?
			WHERE key = ? AND version = ?
		`, value, now, key, expected)
	}
	if err != nil {
		return 0, errors.NewPersistence(key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewPersistence(key, err)
	}
	if rowsAffected == 0 {
		return 0, errors.NewConflict(key, expected)
	}
	return expected + 1, nil
}

// DeleteKV tombstones key. Deleting a missing key is not an error.
func DeleteKV(db *sql.DB, key string) error {
	_, err := db.Exec(`
		UPDATE kv
		SET value = '', version = version + 1, deleted = 1, updated_at = ?
		WHERE key = ? AND deleted = 0
	`, time.Now().Unix(), key)
	if err != nil {
		return errors.NewPersistence(key, err)
	}
	return nil
}
