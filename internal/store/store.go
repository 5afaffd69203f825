package store

import (
	"context"
	"errors"
	"time"

	"loanplan/internal/model"
)

// Store is the persistence interface used by the API server. Snapshot tables
// are produced by the ETL layer and read-only here; runs are owned by this
// service.
type Store interface {
	// LoadSnapshot assembles the read-only input snapshot for one
	// (office, ISO week start) planning run.
	LoadSnapshot(ctx context.Context, office string, weekStart time.Time) (model.Snapshot, error)

	// Runs
	SaveRun(ctx context.Context, run model.RunResult) error
	GetRun(ctx context.Context, runID string) (model.RunResult, error)
	ListRuns(ctx context.Context, office, cursor string, limit int) ([]model.RunSummary, string, error)
}

var ErrNotFound = errors.New("not found")
