package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/store"
)

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS lookup_lists (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS lookup_values (
	list TEXT NOT NULL,
	value TEXT NOT NULL,
	tag TEXT NOT NULL DEFAULT '',
	priority INTEGER,
	PRIMARY KEY(list, value),
	FOREIGN KEY(list) REFERENCES lookup_lists(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	redacted TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at);

CREATE TABLE IF NOT EXISTS record_spans (
	record_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	tag TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	label TEXT NOT NULL,
	PRIMARY KEY(record_id, seq),
	FOREIGN KEY(record_id) REFERENCES records(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertLookupValues adds values to a list, creating the list if needed
func (s *sqliteStore) UpsertLookupValues(ctx context.Context, list string, values []store.LookupValue) error {
	if list == "" {
		return fmt.Errorf("upsert lookup values: empty list name: %w", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO lookup_lists (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, list); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO lookup_values (list, value, tag, priority)
VALUES (?, ?, ?, ?)
ON CONFLICT(list, value) DO UPDATE SET
	tag=excluded.tag,
	priority=excluded.priority
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range values {
		value := strings.TrimSpace(v.Value)
		if value == "" {
			continue
		}
		var priority sql.NullInt64
		if v.Priority != nil {
			priority = sql.NullInt64{Int64: int64(*v.Priority), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, list, value, v.Tag, priority); err != nil {
			return fmt.Errorf("upsert %q: %w", list, err)
		}
	}

	return tx.Commit()
}

// LookupValues returns the values of a list sorted by value
func (s *sqliteStore) LookupValues(ctx context.Context, list string) ([]store.LookupValue, error) {
	exists, err := s.listExists(ctx, list)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("lookup list %q: %w", list, internalerr.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT value, tag, priority FROM lookup_values WHERE list = ? ORDER BY value`, list)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.LookupValue
	for rows.Next() {
		var (
			v        store.LookupValue
			priority sql.NullInt64
		)
		if err := rows.Scan(&v.Value, &v.Tag, &priority); err != nil {
			return nil, err
		}
		if priority.Valid {
			p := int(priority.Int64)
			v.Priority = &p
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *sqliteStore) listExists(ctx context.Context, list string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lookup_lists WHERE name = ?`, list).Scan(&n)
	return n > 0, err
}

// LookupLists returns all list names
func (s *sqliteStore) LookupLists(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM lookup_lists ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// DeleteLookupList removes a list; its values go with it
func (s *sqliteStore) DeleteLookupList(ctx context.Context, list string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lookup_lists WHERE name = ?`, list)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("lookup list %q: %w", list, internalerr.ErrNotFound)
	}
	return nil
}

// SaveRecord stores a record and its spans
func (s *sqliteStore) SaveRecord(ctx context.Context, r store.Record) error {
	if r.ID == "" {
		return fmt.Errorf("save record: empty id: %w", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO records (id, source, created_at, redacted)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING
`, r.ID, r.Source, r.CreatedAt.UTC().Format(timeFormat), r.Redacted)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("record %s: %w", r.ID, internalerr.ErrDuplicate)
	}

	for i, sp := range r.Spans {
		_, err := tx.ExecContext(ctx, `
INSERT INTO record_spans (record_id, seq, tag, start_offset, end_offset, priority, label)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, r.ID, i, sp.Tag, sp.Start, sp.End, sp.Priority, sp.Label)
		if err != nil {
			return fmt.Errorf("save span %d of %s: %w", i, r.ID, err)
		}
	}

	return tx.Commit()
}

// GetRecord returns a record by ID
func (s *sqliteStore) GetRecord(ctx context.Context, id string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, created_at, redacted FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, fmt.Errorf("record %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Record{}, err
	}

	if r.Spans, err = s.loadSpans(ctx, id); err != nil {
		return store.Record{}, err
	}
	return r, nil
}

// ListRecords returns up to limit records, newest first
func (s *sqliteStore) ListRecords(ctx context.Context, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, source, created_at, redacted FROM records
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}

	var out []store.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].Spans, err = s.loadSpans(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (store.Record, error) {
	var (
		r       store.Record
		created string
	)
	if err := row.Scan(&r.ID, &r.Source, &created, &r.Redacted); err != nil {
		return store.Record{}, err
	}
	t, err := time.Parse(timeFormat, created)
	if err != nil {
		return store.Record{}, fmt.Errorf("record %s: bad created_at %q: %w", r.ID, created, err)
	}
	r.CreatedAt = t
	return r, nil
}

func (s *sqliteStore) loadSpans(ctx context.Context, id string) ([]store.Span, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT tag, start_offset, end_offset, priority, label FROM record_spans
WHERE record_id = ?
ORDER BY seq
`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Span
	for rows.Next() {
		var sp store.Span
		if err := rows.Scan(&sp.Tag, &sp.Start, &sp.End, &sp.Priority, &sp.Label); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
