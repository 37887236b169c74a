package store

import (
	"context"
	"errors"

	"cacheplan/internal/model"
)

// Store is the persistence interface for optimization runs and optimizer
// defaults.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, run model.Run) (string, error)
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, name, cursor string, limit int) ([]model.Run, string, error)

	// Optimizer config overlay
	GetOptimizerConfig(ctx context.Context) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const defaultLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultLimit
	}
	return limit
}
