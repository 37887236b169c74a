package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cacheplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	runs   map[string]model.Run // id -> run
	order  []string             // ids, oldest first
	optCfg map[string]any
}

func NewMemory() *Memory {
	return &Memory{runs: map[string]model.Run{}}
}

func (m *Memory) SaveRun(ctx context.Context, run model.Run) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Assignment = run.Assignment.Clone()
	if _, exists := m.runs[run.ID]; !exists {
		m.order = append(m.order, run.ID)
	}
	m.runs[run.ID] = run
	return run.ID, nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

// ListRuns returns runs newest first. The cursor is the id of the last run of
// the previous page.
func (m *Memory) ListRuns(ctx context.Context, name, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	ids := append([]string(nil), m.order...)
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	start := 0
	if cursor != "" {
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.Run{}
	next := ""
	for _, id := range ids[start:] {
		r := m.runs[id]
		if name != "" && r.Name != name {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, r)
	}
	return out, next, nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.optCfg == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m.optCfg))
	for k, v := range m.optCfg {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCfg = cfg
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
