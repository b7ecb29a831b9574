package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// defaultLimit bounds List calls that pass no limit.
const defaultLimit = 100

const schema = `
CREATE TABLE IF NOT EXISTS records (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS idx_records_kind_created ON records (kind, created_at);
`

// Store is a SQLite-backed record store. Records are kept as JSON
// documents keyed by (kind, id); a put replaces the whole document.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Schema initialization is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("repo: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: init schema: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutRecord inserts or wholly replaces the record with the given kind
// and id.
func (s *Store) PutRecord(ctx context.Context, kind, id string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("repo: marshal %s/%s: %w", kind, id, err)
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (kind, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		kind, id, string(data), ts, ts)
	if err != nil {
		return fmt.Errorf("repo: put %s/%s: %w", kind, id, err)
	}
	return nil
}

// GetRecord loads the record with the given kind and id into out.
func (s *Store) GetRecord(ctx context.Context, kind, id string, out any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE kind = ? AND id = ?`, kind, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
	}
	if err != nil {
		return fmt.Errorf("repo: get %s/%s: %w", kind, id, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("repo: decode %s/%s: %w", kind, id, err)
	}
	return nil
}

// ListRecords returns raw record documents of one kind in insertion
// order.
func (s *Store) ListRecords(ctx context.Context, kind string, opts ListOpts) ([]json.RawMessage, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM records WHERE kind = ?
		ORDER BY created_at, id LIMIT ? OFFSET ?`,
		kind, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("repo: list %s: %w", kind, err)
	}
	defer rows.Close()

	out := []json.RawMessage{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("repo: list %s: %w", kind, err)
		}
		out = append(out, json.RawMessage(data))
	}
	return out, rows.Err()
}

// DeleteRecord removes a record. Deleting a missing record is not an
// error.
func (s *Store) DeleteRecord(ctx context.Context, kind, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return fmt.Errorf("repo: delete %s/%s: %w", kind, id, err)
	}
	return nil
}
