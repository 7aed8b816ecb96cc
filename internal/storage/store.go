package storage

import (
	"context"

	"bipedevo/internal/model"
)

// Store persists run state and run summaries. Run state round-trips
// losslessly: genome matrix, fitness tensor, progress counter, gene
// specification and run configuration.
type Store interface {
	Init(ctx context.Context) error
	SaveRunState(ctx context.Context, state model.RunState) error
	GetRunState(ctx context.Context, runID string) (model.RunState, bool, error)
	SaveRunSummary(ctx context.Context, summary model.RunSummary) error
	GetRunSummary(ctx context.Context, runID string) (model.RunSummary, bool, error)
	ListRunSummaries(ctx context.Context) ([]model.RunSummary, error)
}

// Resetter is implemented by stores that can drop all persisted data.
type Resetter interface {
	Reset(ctx context.Context) error
}
