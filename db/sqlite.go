package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"phronesis/models"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// sortable, fixed-width UTC layout for created_at
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteResultStore keeps result rows in a local SQLite file
type SQLiteResultStore struct {
	db *sql.DB
}

// NewSQLiteResultStore opens (creating if needed) the database at path and
// applies the schema
func NewSQLiteResultStore(ctx context.Context, path string) (*SQLiteResultStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path not set")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteResultStore{db: db}, nil
}

func (s *SQLiteResultStore) AppendResult(ctx context.Context, row models.ResultRow) error {
	report, err := json.Marshal(row.Report)
	if err != nil {
		return fmt.Errorf("%w: encoding report: %v", ErrPersistence, err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO results
		(session_id, timestamp, location, tool, title, core_value, monetization, verdict, confidence, report, transcript, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.SessionID, row.Timestamp, row.Location, row.Tool,
		row.Title, row.CoreValue, row.Monetization, row.Verdict, row.Confidence,
		string(report), row.Transcript, row.CreatedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("%w: insert result for %s: %v", ErrPersistence, row.SessionID, err)
	}
	return nil
}

func (s *SQLiteResultStore) ListResults(ctx context.Context, limit, offset int) ([]models.ResultRow, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count: %v", ErrPersistence, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		session_id, timestamp, location, tool, title, core_value, monetization, verdict, confidence, report, transcript, created_at
		FROM results ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: query: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []models.ResultRow
	for rows.Next() {
		var (
			r         models.ResultRow
			report    string
			createdAt string
		)
		if err := rows.Scan(&r.SessionID, &r.Timestamp, &r.Location, &r.Tool,
			&r.Title, &r.CoreValue, &r.Monetization, &r.Verdict, &r.Confidence,
			&report, &r.Transcript, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("%w: scan: %v", ErrPersistence, err)
		}
		if err := json.Unmarshal([]byte(report), &r.Report); err != nil {
			return nil, 0, fmt.Errorf("%w: decoding report of %s: %v", ErrPersistence, r.SessionID, err)
		}
		if r.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, 0, fmt.Errorf("%w: created_at of %s: %v", ErrPersistence, r.SessionID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterate: %v", ErrPersistence, err)
	}
	return out, total, nil
}

func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}
