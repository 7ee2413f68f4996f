package main

import (
	"context"

	"github.com/jonathan/jawiki-corpus/internal/db"
	"github.com/jonathan/jawiki-corpus/internal/pipeline"
)

// openDB connects when a database URL is configured. It returns nil otherwise.
func (e *env) openDB(ctx context.Context) (*db.DB, error) {
	if e.cfg.DatabaseURL == "" {
		return nil, nil
	}
	database, err := db.Connect(ctx, e.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// withRunner opens the ledger if configured and hands fn a runner bound to it.
func (e *env) withRunner(ctx context.Context, fn func(r *pipeline.Runner) error) error {
	database, err := e.openDB(ctx)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}
	r := &pipeline.Runner{
		Config:  e.cfg,
		Logger:  e.logger,
		Printer: e.printer,
		DB:      database,
		OnProgress: func(ev pipeline.ProgressEvent) {
			e.logger.Debug("stage", "stage", ev.Stage, "version", ev.Version, "message", ev.Message, "run_id", ev.RunID)
		},
	}
	return fn(r)
}

// withVersion is withRunner for stages that work on a local dump.
func (e *env) withVersion(ctx context.Context, fn func(r *pipeline.Runner, version string) error) error {
	return e.withRunner(ctx, func(r *pipeline.Runner) error {
		version, err := r.LocalVersion()
		if err != nil {
			return err
		}
		return fn(r, version)
	})
}
