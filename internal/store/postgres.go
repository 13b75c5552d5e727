// This file implements the PostgreSQL-backed completion store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/KayitWorks/KayitFlow/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the PostgreSQL database at the DSN and applies migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RecordCompletion(ctx context.Context, rec models.CompletionRecord) error {
	answersJSON, err := json.Marshal(rec.Answers)
	if err != nil {
		slog.Error("PostgresStore RecordCompletion marshal failed", "error", err, "user", rec.UserID)
		return fmt.Errorf("failed to marshal answers for %s: %w", rec.UserID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO completions (id, user_id, answers, completed_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.UserID, string(answersJSON), rec.CompletedAt)
	if err != nil {
		slog.Error("PostgresStore RecordCompletion failed", "error", err, "user", rec.UserID)
		return fmt.Errorf("failed to insert completion for %s: %w", rec.UserID, err)
	}
	slog.Debug("PostgresStore RecordCompletion succeeded", "user", rec.UserID, "record_id", rec.ID)
	return nil
}

func (s *PostgresStore) GetCompletion(ctx context.Context, userID string) (*models.CompletionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, answers, completed_at FROM completions WHERE user_id = $1`, userID)

	rec, err := scanCompletionRow(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetCompletion not found", "user", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetCompletion failed", "error", err, "user", userID)
		return nil, fmt.Errorf("failed to read completion for %s: %w", userID, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListCompletions(ctx context.Context) ([]models.CompletionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, answers, completed_at FROM completions ORDER BY completed_at DESC`)
	if err != nil {
		slog.Error("PostgresStore ListCompletions query failed", "error", err)
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	return collectCompletions(rows)
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
