package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jawiki-corpus/internal/titles"
)

// titleRows returns the dictionary as copy rows sorted by raw title.
func titleRows(version string, dict titles.Dictionary) [][]any {
	raws := make([]string, 0, len(dict))
	for raw := range dict {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	rows := make([][]any, len(raws))
	for i, raw := range raws {
		rows[i] = []any{version, raw, dict[raw]}
	}
	return rows
}

// SaveTitles replaces the stored dictionary of a dump version.
func (db *DB) SaveTitles(ctx context.Context, version string, dict titles.Dictionary) (int64, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM titles WHERE version = $1`, version); err != nil {
		return 0, fmt.Errorf("failed to clear titles: %w", err)
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"titles"},
		[]string{"version", "raw", "normalized"},
		pgx.CopyFromRows(titleRows(version, dict)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to copy titles: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit titles: %w", err)
	}
	return n, nil
}

// LoadTitles reads the stored dictionary of a dump version. It returns an
// empty dictionary when none was saved.
func (db *DB) LoadTitles(ctx context.Context, version string) (titles.Dictionary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT raw, normalized FROM titles WHERE version = $1`, version)
	if err != nil {
		return nil, fmt.Errorf("failed to load titles: %w", err)
	}
	defer rows.Close()

	dict := titles.Dictionary{}
	for rows.Next() {
		var raw, normalized string
		if err := rows.Scan(&raw, &normalized); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		dict[raw] = normalized
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load titles: %w", err)
	}
	return dict, nil
}
