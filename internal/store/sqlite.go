// This file implements the SQLite-backed completion store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/KayitWorks/KayitFlow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the SQLite database at the DSN
// path and applies migrations.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordCompletion(ctx context.Context, rec models.CompletionRecord) error {
	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		slog.Error("SQLiteStore RecordCompletion marshal failed", "error", err, "user", rec.UserID)
		return fmt.Errorf("failed to marshal answers for %s: %w", rec.UserID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO completions (id, user_id, answers, completed_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.UserID, string(answersJSON), rec.CompletedAt)
	if err != nil {
		slog.Error("SQLiteStore RecordCompletion failed", "error", err, "user", rec.UserID)
		return fmt.Errorf("failed to insert completion for %s: %w", rec.UserID, err)
	}
	slog.Debug("SQLiteStore RecordCompletion succeeded", "user", rec.UserID, "record_id", rec.ID)
	return nil
}

func (s *SQLiteStore) GetCompletion(ctx context.Context, userID string) (*models.CompletionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, answers, completed_at FROM completions WHERE user_id = ?`, userID)

	rec, err := scanCompletionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetCompletion not found", "user", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetCompletion failed", "error", err, "user", userID)
		return nil, fmt.Errorf("failed to read completion for %s: %w", userID, err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListCompletions(ctx context.Context) ([]models.CompletionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, answers, completed_at FROM completions ORDER BY completed_at DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListCompletions query failed", "error", err)
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	return collectCompletions(rows)
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
