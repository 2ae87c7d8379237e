package memory

import (
	"context"
	"fmt"
	"sync"

	"rankstat/domain/core"
	"rankstat/ports"
)

// LogEntry is a stored command log
type LogEntry struct {
	ID   core.LogID
	Text string
}

// AnalyticEntry is a stored analytic
type AnalyticEntry struct {
	ID    core.AnalyticID
	LogID core.LogID
	ports.Analytic
}

// Sink keeps persisted results in memory
type Sink struct {
	mu         sync.RWMutex
	logs       []LogEntry
	analytics  []AnalyticEntry
	statistics []ports.StoredStatistic
}

// NewSink creates an empty sink
func NewSink() *Sink {
	return &Sink{}
}

// AddLog implements ports.ResultSink
func (s *Sink) AddLog(ctx context.Context, logText string) (core.LogID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := core.LogID(core.NewID())
	s.logs = append(s.logs, LogEntry{ID: id, Text: logText})
	return id, nil
}

// AddAnalytic implements ports.ResultSink
func (s *Sink) AddAnalytic(ctx context.Context, logID core.LogID, analytic ports.Analytic) (core.AnalyticID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasLog(logID) {
		return "", fmt.Errorf("%w: log %s", core.ErrNotFound, logID)
	}
	id := core.AnalyticID(core.NewID())
	s.analytics = append(s.analytics, AnalyticEntry{ID: id, LogID: logID, Analytic: analytic})
	return id, nil
}

// AddStatistic implements ports.ResultSink
func (s *Sink) AddStatistic(ctx context.Context, analyticID core.AnalyticID, statistic ports.Statistic) (core.StatisticID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasAnalytic(analyticID) {
		return "", fmt.Errorf("%w: analytic %s", core.ErrNotFound, analyticID)
	}
	id := core.StatisticID(core.NewID())
	s.statistics = append(s.statistics, ports.StoredStatistic{ID: id, AnalyticID: analyticID, Statistic: statistic})
	return id, nil
}

// Logs returns the stored logs in insertion order
func (s *Sink) Logs() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

// Analytics returns the stored analytics in insertion order
func (s *Sink) Analytics() []AnalyticEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AnalyticEntry(nil), s.analytics...)
}

// Statistics implements ports.ResultReader
func (s *Sink) Statistics(ctx context.Context, analyticID core.AnalyticID) ([]ports.StoredStatistic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ports.StoredStatistic
	for _, st := range s.statistics {
		if st.AnalyticID == analyticID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Sink) hasLog(id core.LogID) bool {
	for _, l := range s.logs {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (s *Sink) hasAnalytic(id core.AnalyticID) bool {
	for _, a := range s.analytics {
		if a.ID == id {
			return true
		}
	}
	return false
}
