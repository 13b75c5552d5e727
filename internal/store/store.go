// Package store provides completion-record storage backends for KayitFlow.
//
// Registrations are written once per user and read back for status queries
// and duplicate detection. Backends exist for memory, SQLite and PostgreSQL.
package store

import (
	"context"
	"strings"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// DSN type identifiers returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeSQLite   = "sqlite"
)

// CompletionStore persists finished registrations.
type CompletionStore interface {
	// RecordCompletion writes one completion record.
	RecordCompletion(ctx context.Context, rec models.CompletionRecord) error

	// GetCompletion returns the record for a user, or (nil, nil) when none exists.
	GetCompletion(ctx context.Context, userID string) (*models.CompletionRecord, error)

	// ListCompletions returns all records, newest first.
	ListCompletions(ctx context.Context) ([]models.CompletionRecord, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType inspects a connection string and reports which backend it addresses.
// Anything that does not look like PostgreSQL is treated as an SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DSNTypePostgres
	}
	// Key=value DSNs like "host=... dbname=..." are also PostgreSQL.
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=") {
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

// NewStore selects and opens a backend from the DSN. An empty DSN yields the
// in-memory store.
func NewStore(opts ...Option) (CompletionStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == DSNTypePostgres {
		return NewPostgresStore(WithDSN(cfg.DSN))
	}
	return NewSQLiteStore(WithDSN(cfg.DSN))
}
