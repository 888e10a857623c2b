package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRepository records scrape passes. It implements scraper.RunLog.
type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Started inserts the run row at pass start.
func (r *RunRepository) Started(ctx context.Context, id uuid.UUID, trigger string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scrape_runs (run_id, trigger_source, started_at) VALUES ($1, $2, $3)`,
		id, trigger, at)
	if err != nil {
		return fmt.Errorf("insert scrape run: %w", err)
	}
	return nil
}

// Completed finalizes the run row with its counts.
func (r *RunRepository) Completed(ctx context.Context, id uuid.UUID, found, stored int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE scrape_runs
		 SET finished_at = now(), records_found = $2, records_stored = $3
		 WHERE run_id = $1`,
		id, found, stored)
	if err != nil {
		return fmt.Errorf("complete scrape run: %w", err)
	}
	return nil
}

// Run is one recorded scrape pass.
type Run struct {
	RunID         uuid.UUID
	Trigger       string
	StartedAt     time.Time
	FinishedAt    *time.Time
	RecordsFound  int
	RecordsStored int
	ErrorMessage  string
}

// Recent returns the latest scrape passes, newest first.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx,
		`SELECT run_id, trigger_source, started_at, finished_at,
		        records_found, records_stored, COALESCE(error_message, '')
		 FROM scrape_runs
		 ORDER BY started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list scrape runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.RunID, &run.Trigger, &run.StartedAt, &run.FinishedAt,
			&run.RecordsFound, &run.RecordsStored, &run.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan scrape run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Failed finalizes the run row with an error message.
func (r *RunRepository) Failed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE scrape_runs
		 SET finished_at = now(), error_message = $2
		 WHERE run_id = $1`,
		id, pgtype.Text{String: errMsg, Valid: errMsg != ""})
	if err != nil {
		return fmt.Errorf("fail scrape run: %w", err)
	}
	return nil
}
