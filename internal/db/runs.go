package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRun records the start of a run. A nil id is replaced by a fresh one.
func (db *DB) CreateRun(ctx context.Context, id uuid.UUID, version, stage string) (uuid.UUID, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO corpus_runs (id, version, stage, status)
		 VALUES ($1, $2, $3, $4)`,
		id, version, stage, RunStatusRunning,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a run finished. manifest is stored as JSON when non-nil;
// runErr, when non-nil, marks the run failed and keeps its message.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, manifest any, runErr error) error {
	status := RunStatusCompleted
	var message *string
	if runErr != nil {
		status = RunStatusFailed
		s := runErr.Error()
		message = &s
	}

	var content []byte
	if manifest != nil {
		var err error
		content, err = json.Marshal(manifest)
		if err != nil {
			return fmt.Errorf("failed to marshal manifest: %w", err)
		}
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE corpus_runs
		 SET status = $1, manifest = $2, error = $3, completed_at = NOW()
		 WHERE id = $4`,
		status, content, message, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to complete run: run %s not found", runID)
	}
	return nil
}

const runColumns = `id, version, stage, status, manifest, COALESCE(error, ''), created_at, completed_at`

func scanRun(row pgx.Row) (*Run, error) {
	var r Run
	var manifest []byte
	if err := row.Scan(&r.ID, &r.Version, &r.Stage, &r.Status, &manifest, &r.Error, &r.CreatedAt, &r.CompletedAt); err != nil {
		return nil, err
	}
	if len(manifest) > 0 {
		r.Manifest = manifest
	}
	return &r, nil
}

// GetRun retrieves a run by ID. It returns nil when there is no such run.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	r, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM corpus_runs WHERE id = $1`, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first. An empty version
// lists runs of every version.
func (db *DB) ListRuns(ctx context.Context, version string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` FROM corpus_runs
		 WHERE $1 = '' OR version = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		version, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
