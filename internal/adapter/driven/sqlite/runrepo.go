package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
	"github.com/ericfisherdev/reviewlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Record inserts a completed collection run and returns it with its assigned ID.
func (r *RunRepo) Record(ctx context.Context, run model.CollectionRun) (model.CollectionRun, error) {
	const query = `
		INSERT INTO collection_runs
			(repo_full_name, window_start, window_end, row_count, output_path, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Writer.ExecContext(ctx, query,
		run.RepoFullName,
		run.WindowStart.UTC(),
		run.WindowEnd.UTC(),
		run.RowCount,
		run.OutputPath,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return model.CollectionRun{}, fmt.Errorf("record run for %s: %w", run.RepoFullName, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.CollectionRun{}, fmt.Errorf("read run id: %w", err)
	}
	run.ID = id
	return run, nil
}

// ListByRepo returns all runs recorded for a repository, most recent first.
func (r *RunRepo) ListByRepo(ctx context.Context, repoFullName string) ([]model.CollectionRun, error) {
	const query = `
		SELECT id, repo_full_name, window_start, window_end, row_count, output_path, started_at, finished_at
		FROM collection_runs
		WHERE repo_full_name = ?
		ORDER BY finished_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", repoFullName, err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// ListAll returns every recorded run, most recent first.
func (r *RunRepo) ListAll(ctx context.Context) ([]model.CollectionRun, error) {
	const query = `
		SELECT id, repo_full_name, window_start, window_end, row_count, output_path, started_at, finished_at
		FROM collection_runs
		ORDER BY finished_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]model.CollectionRun, error) {
	var runs []model.CollectionRun

	for rows.Next() {
		var run model.CollectionRun
		if err := rows.Scan(
			&run.ID,
			&run.RepoFullName,
			&run.WindowStart,
			&run.WindowEnd,
			&run.RowCount,
			&run.OutputPath,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}
