package ports

import (
	"context"

	"rankstat/domain/core"
)

// Analytic groups the statistics of one submission under a log entry
type Analytic struct {
	Title string `json:"title" db:"title"`
	Note  string `json:"note" db:"note"`
}

// Statistic is one persisted output table
type Statistic struct {
	Title       string `json:"title" db:"title"`
	OutputData  string `json:"output_data" db:"output_data"`
	Components  string `json:"components" db:"components"`
	Description string `json:"description" db:"description"`
}

// ResultSink persists formatted output. Calls must be made in order:
// AddLog, then AddAnalytic, then AddStatistic for each table.
type ResultSink interface {
	AddLog(ctx context.Context, logText string) (core.LogID, error)
	AddAnalytic(ctx context.Context, logID core.LogID, analytic Analytic) (core.AnalyticID, error)
	AddStatistic(ctx context.Context, analyticID core.AnalyticID, statistic Statistic) (core.StatisticID, error)
}

// StoredStatistic is a statistic read back from the result store
type StoredStatistic struct {
	ID         core.StatisticID `json:"id" db:"id"`
	AnalyticID core.AnalyticID  `json:"analytic_id" db:"analytic_id"`
	Statistic
}

// ResultReader reads persisted output back
type ResultReader interface {
	Statistics(ctx context.Context, analyticID core.AnalyticID) ([]StoredStatistic, error)
}
