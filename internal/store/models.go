package store

import (
	"time"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

// Run is one analysis run
type Run struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitempty"`
	Scorer         string    `json:"scorer"`
	ExcludeNeutral bool      `json:"exclude_neutral"`
	Sources        []string  `json:"sources"`
	Records        int       `json:"records"`
	Skipped        int       `json:"skipped"`
}

// RunResult holds the statistics saved for a run
type RunResult struct {
	Run         Run
	Days        []types.DailyAggregate
	Correlation types.Correlation
}

// DayHistory is one date's aggregate as computed by a given run
type DayHistory struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	types.DailyAggregate
}
