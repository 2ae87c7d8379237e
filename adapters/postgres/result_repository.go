package postgres

import (
	"context"
	"fmt"
	"sync"

	"rankstat/domain/core"
	"rankstat/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepository persists formatted output to the result_* tables.
// Queries are written with ? placeholders and rebound for the connected driver,
// so the same repository serves PostgreSQL and SQLite.
type ResultRepository struct {
	db *sqlx.DB

	// serializes statistic inserts so positions read and written in one process never collide
	mu sync.Mutex
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// AddLog inserts the command log that heads a submission's output
func (r *ResultRepository) AddLog(ctx context.Context, logText string) (core.LogID, error) {
	id := core.LogID(core.NewID())
	query := r.db.Rebind(`INSERT INTO result_logs (id, log_text) VALUES (?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, id, logText); err != nil {
		return "", fmt.Errorf("failed to insert log: %w", err)
	}
	return id, nil
}

// AddAnalytic inserts an analytic under an existing log
func (r *ResultRepository) AddAnalytic(ctx context.Context, logID core.LogID, analytic ports.Analytic) (core.AnalyticID, error) {
	id := core.AnalyticID(core.NewID())
	query := r.db.Rebind(`INSERT INTO result_analytics (id, log_id, title, note) VALUES (?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, id, logID, analytic.Title, analytic.Note); err != nil {
		return "", fmt.Errorf("failed to insert analytic: %w", err)
	}
	return id, nil
}

// AddStatistic inserts one output table under an existing analytic.
// Tables keep the order in which they were added: each goes one past the
// highest position already stored for the analytic.
func (r *ResultRepository) AddStatistic(ctx context.Context, analyticID core.AnalyticID, statistic ports.Statistic) (core.StatisticID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin statistic insert: %w", err)
	}
	defer tx.Rollback()

	var position int
	positionQuery := tx.Rebind(`SELECT COALESCE(MAX(position), -1) + 1 FROM result_statistics WHERE analytic_id = ?`)
	if err := tx.GetContext(ctx, &position, positionQuery, analyticID); err != nil {
		return "", fmt.Errorf("failed to read statistic position: %w", err)
	}

	id := core.StatisticID(core.NewID())
	query := tx.Rebind(`INSERT INTO result_statistics (
		id, analytic_id, position, title, output_data, components, description
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = tx.ExecContext(ctx, query,
		id, analyticID, position,
		statistic.Title, statistic.OutputData, statistic.Components, statistic.Description,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert statistic: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit statistic: %w", err)
	}
	return id, nil
}

// Statistics returns the tables stored under an analytic in insertion order
func (r *ResultRepository) Statistics(ctx context.Context, analyticID core.AnalyticID) ([]ports.StoredStatistic, error) {
	query := r.db.Rebind(`SELECT
		id, analytic_id, title, output_data, components, description
	FROM result_statistics WHERE analytic_id = ? ORDER BY position`)

	var out []ports.StoredStatistic
	if err := r.db.SelectContext(ctx, &out, query, analyticID); err != nil {
		return nil, fmt.Errorf("failed to list statistics: %w", err)
	}
	return out, nil
}

var (
	_ ports.ResultSink   = (*ResultRepository)(nil)
	_ ports.ResultReader = (*ResultRepository)(nil)
)
