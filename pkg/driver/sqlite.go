package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	_ "modernc.org/sqlite" // cgo-free SQLite

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	entity  TEXT    NOT NULL,
	id      INTEGER NOT NULL,
	display TEXT    NOT NULL DEFAULT '',
	data    TEXT    NOT NULL DEFAULT '{}',
	PRIMARY KEY (entity, id)
);
`

// SQLiteDriver stores records in a single SQLite table with the field values
// in a JSON column. Predicates are compiled to SQL by CompileSQL.
type SQLiteDriver struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteDriver opens the database at path and applies the schema.
func NewSQLiteDriver(ctx context.Context, path string, logger *slog.Logger) (*SQLiteDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema failed: %w", err)
	}

	return &SQLiteDriver{db: db, path: path, logger: logger}, nil
}

func (s *SQLiteDriver) Provider() Provider { return ProviderSQLite }

func (s *SQLiteDriver) Close() error { return s.db.Close() }

// Upsert writes records in one transaction.
func (s *SQLiteDriver) Upsert(ctx context.Context, records ...*types.Record) error {
	if err := validateAll(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (entity, id, display, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (entity, id) DO UPDATE SET display = excluded.display, data = excluded.data`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		data, err := encodeValues(r.Values)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.Entity, r.ID, r.Display, string(data)); err != nil {
			return fmt.Errorf("failed to write record %s/%d: %w", r.Entity, r.ID, err)
		}
	}
	return tx.Commit()
}

// Get reads one record.
func (s *SQLiteDriver) Get(ctx context.Context, entity string, id int64) (*types.Record, error) {
	var display, data string
	err := s.db.QueryRowContext(ctx,
		`SELECT display, data FROM records WHERE entity = ? AND id = ?`, entity, id).Scan(&display, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	if err != nil {
		return nil, err
	}
	values, err := decodeValues([]byte(data))
	if err != nil {
		return nil, err
	}
	return &types.Record{ID: id, Entity: entity, Display: display, Values: values}, nil
}

// Delete removes one record.
func (s *SQLiteDriver) Delete(ctx context.Context, entity string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE entity = ? AND id = ?`, entity, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	return nil
}

// Stats counts records per entity.
func (s *SQLiteDriver) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity, COUNT(*) FROM records GROUP BY entity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &Stats{ByEntity: make(map[string]int64)}
	for rows.Next() {
		var entity string
		var n int64
		if err := rows.Scan(&entity, &n); err != nil {
			return nil, err
		}
		stats.ByEntity[entity] = n
		stats.Records += n
	}
	return stats, rows.Err()
}

// Instances lists the records of entity as options.
func (s *SQLiteDriver) Instances(ctx context.Context, entity string) ([]types.Option, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, display FROM records WHERE entity = ? ORDER BY id`, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []types.Option{}
	for rows.Next() {
		var id int64
		var display string
		if err := rows.Scan(&id, &display); err != nil {
			return nil, err
		}
		options = append(options, types.Option{ID: strconv.FormatInt(id, 10), Label: display})
	}
	return options, rows.Err()
}

// Execute runs the compiled predicate, returning the total count and the
// requested page.
func (s *SQLiteDriver) Execute(ctx context.Context, entity string, p predicate.Predicate, page types.Page) (*types.ResultSet, error) {
	cond, args, err := CompileSQL(p)
	if err != nil {
		return nil, fmt.Errorf("failed to compile predicate: %w", err)
	}
	where := " FROM records r0 WHERE r0.entity = ? AND (" + cond + ")"
	whereArgs := append([]any{entity}, args...)

	rs := &types.ResultSet{Records: []types.Record{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+where, whereArgs...).Scan(&rs.Count); err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	query := "SELECT r0.id, r0.display, r0.data" + where + " ORDER BY r0.id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(whereArgs, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec types.Record
		var data string
		if err := rows.Scan(&rec.ID, &rec.Display, &data); err != nil {
			return nil, err
		}
		rec.Entity = entity
		if rec.Values, err = decodeValues([]byte(data)); err != nil {
			return nil, err
		}
		rs.Records = append(rs.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("sqlite search", "entity", entity, "predicate", p.String(), "count", rs.Count)
	return rs, nil
}
