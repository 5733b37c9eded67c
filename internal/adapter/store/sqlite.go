// Package store persists the latest assembled master series per client to
// SQLite, so dashboards can recover the last good forecast across restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tidecast/hydro-forecast-etl/internal/domain"
)

// Schema for the forecast tables. Applied by Init.
const Schema = `
CREATE TABLE IF NOT EXISTS forecast_builds (
	client_id TEXT PRIMARY KEY,
	reference TEXT NOT NULL,
	built_at TEXT NOT NULL,
	snapshot_keys TEXT NOT NULL,
	columns TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS forecast_rows (
	client_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	ts TEXT NOT NULL,
	series TEXT NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (client_id, seq, series)
);
CREATE INDEX IF NOT EXISTS idx_forecast_rows_client_ts ON forecast_rows(client_id, ts);
`

// listSep joins key and column lists in forecast_builds. U+001F so it can
// never collide with a column name containing spaces or commas.
const listSep = "\x1f"

// SQLite stores one master series per client, replaced wholesale on every
// successful build.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path and applies the schema.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection; used by tests with an in-memory
// database.
func NewWithDB(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("store schema: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save replaces the stored master series for the client in one transaction.
// It implements pipeline.Store.
func (s *SQLite) Save(ctx context.Context, clientID string, series domain.MasterSeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM forecast_rows WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("store save: clear rows: %w", err)
	}

	keys := make([]string, len(series.Keys))
	for i, k := range series.Keys {
		keys[i] = string(k)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO forecast_builds (client_id, reference, built_at, snapshot_keys, columns)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			reference = excluded.reference,
			built_at = excluded.built_at,
			snapshot_keys = excluded.snapshot_keys,
			columns = excluded.columns`,
		clientID,
		series.Reference.UTC().Format(time.RFC3339),
		series.BuiltAt.UTC().Format(time.RFC3339),
		strings.Join(keys, listSep),
		strings.Join(series.Columns, listSep),
	); err != nil {
		return fmt.Errorf("store save: build meta: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO forecast_rows (client_id, seq, ts, series, value)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store save: prepare: %w", err)
	}
	defer insert.Close()

	for seq, row := range series.Rows {
		ts := row.Timestamp.UTC().Format(time.RFC3339)
		for i, col := range series.Columns {
			if _, err := insert.ExecContext(ctx, clientID, seq, ts, col, row.Values[i]); err != nil {
				return fmt.Errorf("store save: row %d: %w", seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store save: commit: %w", err)
	}
	return nil
}

// Load reconstructs the stored master series for the client. The second
// return is false when nothing has been stored yet.
func (s *SQLite) Load(ctx context.Context, clientID string) (domain.MasterSeries, bool, error) {
	var (
		referenceStr, builtAtStr string
		keysStr, columnsStr      string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT reference, built_at, snapshot_keys, columns
		FROM forecast_builds WHERE client_id = ?`, clientID).
		Scan(&referenceStr, &builtAtStr, &keysStr, &columnsStr)
	if err == sql.ErrNoRows {
		return domain.MasterSeries{}, false, nil
	}
	if err != nil {
		return domain.MasterSeries{}, false, fmt.Errorf("store load: %w", err)
	}

	reference, err := time.Parse(time.RFC3339, referenceStr)
	if err != nil {
		return domain.MasterSeries{}, false, fmt.Errorf("store load: reference: %w", err)
	}
	builtAt, err := time.Parse(time.RFC3339, builtAtStr)
	if err != nil {
		return domain.MasterSeries{}, false, fmt.Errorf("store load: built_at: %w", err)
	}

	columns := strings.Split(columnsStr, listSep)
	keyStrs := strings.Split(keysStr, listSep)
	keys := make([]domain.SnapshotKey, len(keyStrs))
	for i, k := range keyStrs {
		keys[i] = domain.SnapshotKey(k)
	}

	colIndex := make(map[string]int, len(columns))
	for i, c := range columns {
		colIndex[c] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, ts, series, value FROM forecast_rows
		WHERE client_id = ? ORDER BY seq, series`, clientID)
	if err != nil {
		return domain.MasterSeries{}, false, fmt.Errorf("store load: rows: %w", err)
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		var (
			seq    int
			tsStr  string
			series string
			value  float64
		)
		if err := rows.Scan(&seq, &tsStr, &series, &value); err != nil {
			return domain.MasterSeries{}, false, fmt.Errorf("store load: scan: %w", err)
		}

		for seq >= len(out) {
			ts, err := time.Parse(time.RFC3339, tsStr)
			if err != nil {
				return domain.MasterSeries{}, false, fmt.Errorf("store load: ts: %w", err)
			}
			out = append(out, domain.Row{Timestamp: ts, Values: make([]float64, len(columns))})
		}

		idx, ok := colIndex[series]
		if !ok {
			return domain.MasterSeries{}, false, fmt.Errorf("store load: unknown series %q", series)
		}
		out[seq].Values[idx] = value
	}
	if err := rows.Err(); err != nil {
		return domain.MasterSeries{}, false, fmt.Errorf("store load: %w", err)
	}

	return domain.MasterSeries{
		Reference: reference,
		BuiltAt:   builtAt,
		Keys:      keys,
		Columns:   columns,
		Rows:      out,
	}, true, nil
}
