package models

import "time"

// DispatchRun is one row in the append-only run ledger. Created as
// "running" when a dispatch starts and finalized exactly once.
type DispatchRun struct {
	ID              int64      `db:"id" json:"id"`
	WindowStart     time.Time  `db:"window_start" json:"window_start"`
	WindowEnd       time.Time  `db:"window_end" json:"window_end"`
	Status          string     `db:"status" json:"status"` // running, completed, failed
	TotalPosts      int        `db:"total_posts" json:"total_posts"`
	SuccessfulPosts int        `db:"successful_posts" json:"successful_posts"`
	FailedPosts     int        `db:"failed_posts" json:"failed_posts"`
	DurationMs      int64      `db:"duration_ms" json:"duration_ms"`
	ErrorMessage    string     `db:"error_message" json:"error_message,omitempty"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

func ValidRunStatus(s string) bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

type DispatchStats struct {
	TotalRuns      int        `json:"total_runs"`
	SuccessfulRuns int        `json:"successful_runs"`
	FailedRuns     int        `json:"failed_runs"`
	RunsLast24h    int        `json:"runs_last_24h"`
	SuccessRate    float64    `json:"success_rate"`
	AvgDurationMs  float64    `json:"avg_duration_ms"`
	LastRunStatus  string     `json:"last_run_status,omitempty"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// UpcomingSlot is one bucket of the forward-looking queue view: how many
// scheduled posts are due at a given instant.
type UpcomingSlot struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	PostCount    int       `json:"post_count"`
}
