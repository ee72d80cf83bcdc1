package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahilm27/linklater/internal/models"
)

type DispatchRunRepository interface {
	Create(ctx context.Context, run *models.DispatchRun) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.DispatchRun, error)
	Finalize(ctx context.Context, id int64, status string, total, successful, failed int, durationMs int64, errorMessage string) error
	FinalizeLatestRunning(ctx context.Context, errorMessage string) error
	ListRecent(ctx context.Context, limit int) ([]*models.DispatchRun, error)
	GetStats(ctx context.Context) (*models.DispatchStats, error)
}

type dispatchRunRepository struct {
	db *sql.DB
}

func NewDispatchRunRepository(db *sql.DB) DispatchRunRepository {
	return &dispatchRunRepository{db: db}
}

const runColumns = `id, window_start, window_end, status, total_posts, successful_posts,
	failed_posts, duration_ms, COALESCE(error_message, ''), started_at, completed_at`

func (r *dispatchRunRepository) Create(ctx context.Context, run *models.DispatchRun) (int64, error) {
	if !models.ValidRunStatus(run.Status) {
		return 0, fmt.Errorf("invalid run status %q", run.Status)
	}

	query := `
		INSERT INTO dispatch_runs (window_start, window_end, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, run.WindowStart, run.WindowEnd, run.Status, run.StartedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *dispatchRunRepository) GetByID(ctx context.Context, id int64) (*models.DispatchRun, error) {
	query := `SELECT ` + runColumns + ` FROM dispatch_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return run, nil
}

func scanRun(row interface{ Scan(...any) error }) (*models.DispatchRun, error) {
	var run models.DispatchRun
	err := row.Scan(&run.ID, &run.WindowStart, &run.WindowEnd, &run.Status, &run.TotalPosts,
		&run.SuccessfulPosts, &run.FailedPosts, &run.DurationMs, &run.ErrorMessage,
		&run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Finalize moves a run to its terminal state. Runs are never mutated
// after this.
func (r *dispatchRunRepository) Finalize(ctx context.Context, id int64, status string, total, successful, failed int, durationMs int64, errorMessage string) error {
	if !models.ValidRunStatus(status) {
		return fmt.Errorf("invalid run status %q", status)
	}

	query := `
		UPDATE dispatch_runs
		SET status = $1,
			total_posts = $2,
			successful_posts = $3,
			failed_posts = $4,
			duration_ms = $5,
			error_message = NULLIF($6, ''),
			completed_at = $7
		WHERE id = $8 AND status = $9
	`
	_, err := r.db.ExecContext(ctx, query, status, total, successful, failed, durationMs,
		errorMessage, time.Now(), id, models.RunStatusRunning)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// FinalizeLatestRunning marks the most recent still-running row as
// failed. Used on the run-level error path so the ledger never stays
// stuck in "running".
func (r *dispatchRunRepository) FinalizeLatestRunning(ctx context.Context, errorMessage string) error {
	query := `
		UPDATE dispatch_runs
		SET status = $1,
			error_message = $2,
			completed_at = $3
		WHERE id = (
			SELECT id FROM dispatch_runs
			WHERE status = $4
			ORDER BY started_at DESC
			LIMIT 1
		)
	`
	_, err := r.db.ExecContext(ctx, query, models.RunStatusFailed, errorMessage, time.Now(), models.RunStatusRunning)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *dispatchRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.DispatchRun, error) {
	query := `SELECT ` + runColumns + ` FROM dispatch_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var runs []*models.DispatchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *dispatchRunRepository) GetStats(ctx context.Context) (*models.DispatchStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE started_at > NOW() - INTERVAL '24 hours'),
			COALESCE(AVG(duration_ms) FILTER (WHERE status = $1), 0)
		FROM dispatch_runs
	`

	var stats models.DispatchStats
	err := r.db.QueryRowContext(ctx, query, models.RunStatusCompleted, models.RunStatusFailed).Scan(
		&stats.TotalRuns, &stats.SuccessfulRuns, &stats.FailedRuns, &stats.RunsLast24h, &stats.AvgDurationMs)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRuns) / float64(stats.TotalRuns) * 100
	}

	lastQuery := `SELECT status, started_at FROM dispatch_runs ORDER BY started_at DESC LIMIT 1`
	var lastAt time.Time
	err = r.db.QueryRowContext(ctx, lastQuery).Scan(&stats.LastRunStatus, &lastAt)
	if err != nil && err != sql.ErrNoRows {
		slog.Info(err.Error())
		return nil, err
	}
	if err == nil {
		stats.LastRunAt = &lastAt
	}

	return &stats, nil
}
