package migration

import (
	"context"

	"rankstat/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// step is one named schema statement
type step struct {
	name string
	sql  string
}

// MigrationRunner creates the result store schema. Statements are portable between
// PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
	steps   []step
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		steps: []step{
			{name: "result_logs", sql: `
		CREATE TABLE IF NOT EXISTS result_logs (
			id VARCHAR(36) PRIMARY KEY,
			log_text TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
			{name: "result_analytics", sql: `
		CREATE TABLE IF NOT EXISTS result_analytics (
			id VARCHAR(36) PRIMARY KEY,
			log_id VARCHAR(36) NOT NULL REFERENCES result_logs(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
			{name: "result_statistics", sql: `
		CREATE TABLE IF NOT EXISTS result_statistics (
			id VARCHAR(36) PRIMARY KEY,
			analytic_id VARCHAR(36) NOT NULL REFERENCES result_analytics(id) ON DELETE CASCADE,
			position INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			output_data TEXT NOT NULL,
			components TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`},
			{name: "idx_analytics_log_id", sql: "CREATE INDEX IF NOT EXISTS idx_analytics_log_id ON result_analytics(log_id)"},
			{name: "idx_statistics_analytic_id", sql: "CREATE INDEX IF NOT EXISTS idx_statistics_analytic_id ON result_statistics(analytic_id, position)"},
		},
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all statements in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, s := range r.steps {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to create %s", s.name))
		}
	}
	return nil
}
