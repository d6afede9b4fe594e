package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/internal/crawler"
	"sjsage522/keypriceworker/logger"
)

// SnapshotStore keeps every finalized table, one row per table row, keyed
// by pipeline, capture date and position
type SnapshotStore struct {
	db *sql.DB
}

// Open opens the SQLite database at path and ensures the schema exists
func Open(path string) (*SnapshotStore, error) {
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
	  pipeline TEXT NOT NULL,
	  captured_on TEXT NOT NULL,
	  position INTEGER NOT NULL,
	  row_json TEXT NOT NULL,
	  stored_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  PRIMARY KEY (pipeline, captured_on, position)
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_pipeline ON snapshots(pipeline, captured_on);
	`)
	return err
}

// SaveTable stores a finalized table under pipeline. A snapshot of the same
// pipeline and capture date is replaced.
func (s *SnapshotStore) SaveTable(ctx context.Context, pipeline string, t *crawler.Table) (int64, error) {
	capturedOn := helpers.DateStamp(t.CapturedOn)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE pipeline = ? AND captured_on = ?`,
		pipeline, capturedOn); err != nil {
		return 0, fmt.Errorf("failed to clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshots (pipeline, captured_on, position, row_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for i := 0; i < t.Len(); i++ {
		data, err := json.Marshal(t.RowMap(i))
		if err != nil {
			return 0, fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, pipeline, capturedOn, i, string(data)); err != nil {
			return 0, fmt.Errorf("failed to insert row %d: %w", i, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	logger.ForStore().Debug().
		Str("pipeline", pipeline).
		Str("captured_on", capturedOn).
		Int64("rows", count).
		Msg("Snapshot stored")
	return count, nil
}

// LoadRows returns the stored rows of a snapshot in table order
func (s *SnapshotStore) LoadRows(ctx context.Context, pipeline, capturedOn string) ([]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_json FROM snapshots WHERE pipeline = ? AND captured_on = ? ORDER BY position`,
		pipeline, capturedOn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []map[string]string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		row := make(map[string]string)
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Close closes the database
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
