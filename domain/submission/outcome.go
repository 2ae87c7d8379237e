package submission

import (
	"rankstat/domain/core"
	"rankstat/domain/table"
)

// Progress is reported after every job outcome
type Progress struct {
	SubmissionID core.SubmissionID `json:"submissionId"`
	State        State             `json:"state"`
	Processed    int               `json:"processed"`
	Expected     int               `json:"expected"`
}

// Fraction is the completed share of dispatched jobs
func (p Progress) Fraction() float64 {
	if p.Expected == 0 {
		return 0
	}
	return float64(p.Processed) / float64(p.Expected)
}

// Persisted records the result sink identifiers of a stored submission
type Persisted struct {
	LogID        core.LogID         `json:"logId"`
	AnalyticID   core.AnalyticID    `json:"analyticId"`
	StatisticIDs []core.StatisticID `json:"statisticIds"`
}

// Outcome is the terminal report of a submission
type Outcome struct {
	SubmissionID core.SubmissionID `json:"submissionId"`
	State        State             `json:"state"`
	Tables       []table.Output    `json:"tables,omitempty"`
	Notes        []string          `json:"notes,omitempty"`
	JobErrors    []string          `json:"jobErrors,omitempty"`
	Persisted    *Persisted        `json:"persisted,omitempty"`
	Error        string            `json:"error,omitempty"`
	Err          error             `json:"-"`
}

// HasTables reports whether the outcome carries visible output
func (o Outcome) HasTables() bool {
	return len(o.Tables) > 0
}
