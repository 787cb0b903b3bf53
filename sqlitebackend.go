package shopping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteBackend keeps the list as a JSON payload in a single-row table, together with an integer revision that
// each save increments. The revision check is part of the UPDATE statement, so unlike FileBackend it holds
// across processes.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLiteBackend opens (creating if needed) the database at path.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		path = "einkaufsliste.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: the list is tiny and the driver serialises writers anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS list (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		revision INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create list table: %w", err)
	}
	return &SQLiteBackend{db: db, path: path}, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load implements Backend.
func (b *SQLiteBackend) Load(ctx context.Context) ([]*Item, Revision, error) {
	var rev int64
	var payload []byte
	err := b.db.QueryRowContext(ctx, `SELECT revision, payload FROM list WHERE id = 1`).Scan(&rev, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", b.path, err)
	}
	return loadOrEmpty(payload, b.path), formatRevision(rev), nil
}

// Save implements Backend.
func (b *SQLiteBackend) Save(ctx context.Context, items []*Item, expected Revision) (Revision, error) {
	payload, err := encodeItems(items)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	var res sql.Result
	var next int64
	if expected == "" {
		next = 1
		res, err = b.db.ExecContext(ctx,
			`INSERT INTO list (id, revision, payload) VALUES (1, ?, ?) ON CONFLICT (id) DO NOTHING`, next, payload)
	} else {
		prev, perr := strconv.ParseInt(string(expected), 10, 64)
		if perr != nil {
			return "", fmt.Errorf("save %s: revision %q: %w", b.path, expected, ErrConflict)
		}
		next = prev + 1
		res, err = b.db.ExecContext(ctx,
			`UPDATE list SET revision = ?, payload = ? WHERE id = 1 AND revision = ?`, next, payload, prev)
	}
	if err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	if n != 1 {
		return "", fmt.Errorf("save %s: %w", b.path, ErrConflict)
	}
	return formatRevision(next), nil
}

// Overwrite writes the list without checking the revision (last writer wins).
func (b *SQLiteBackend) Overwrite(ctx context.Context, items []*Item) (Revision, error) {
	payload, err := encodeItems(items)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	var next int64
	err = b.db.QueryRowContext(ctx, `INSERT INTO list (id, revision, payload) VALUES (1, 1, ?)
		ON CONFLICT (id) DO UPDATE SET revision = revision + 1, payload = excluded.payload
		RETURNING revision`, payload).Scan(&next)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", b.path, err)
	}
	return formatRevision(next), nil
}

func formatRevision(rev int64) Revision {
	return Revision(strconv.FormatInt(rev, 10))
}
