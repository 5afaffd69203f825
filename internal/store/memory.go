package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"loanplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set, and by
// tests. Snapshots are seeded with PutSnapshot.
type Memory struct {
	mu        sync.Mutex
	snapshots map[string]model.Snapshot // office|weekStart -> snapshot
	runs      map[string]model.RunResult
	runOrder  []string // run ids, insertion order
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: map[string]model.Snapshot{},
		runs:      map[string]model.RunResult{},
	}
}

func snapKey(office string, weekStart time.Time) string {
	return fmt.Sprintf("%s|%s", office, weekStart.UTC().Format("2006-01-02"))
}

// PutSnapshot registers the input snapshot for an (office, week) pair.
func (m *Memory) PutSnapshot(snap model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapKey(snap.Office, snap.WeekStart)] = snap
}

func (m *Memory) LoadSnapshot(ctx context.Context, office string, weekStart time.Time) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[snapKey(office, weekStart)]
	if !ok {
		return model.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (m *Memory) SaveRun(ctx context.Context, run model.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.runs[run.RunID]; !exists {
		m.runOrder = append(m.runOrder, run.RunID)
	}
	m.runs[run.RunID] = run
	return nil
}

func (m *Memory) GetRun(ctx context.Context, runID string) (model.RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return model.RunResult{}, ErrNotFound
	}
	return run, nil
}

func (m *Memory) ListRuns(ctx context.Context, office, cursor string, limit int) ([]model.RunSummary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.runOrder {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []model.RunSummary{}
	var next string
	for i := start; i < len(m.runOrder) && len(out) < limit; i++ {
		r := m.runs[m.runOrder[i]]
		if office != "" && r.Office != office {
			continue
		}
		out = append(out, model.RunSummary{
			RunID:       r.RunID,
			Office:      r.Office,
			WeekStart:   r.WeekStart,
			Status:      r.Status,
			Assignments: len(r.Assignments),
			Objective:   r.Objective,
			CreatedAt:   r.CreatedAt,
		})
		next = m.runOrder[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}
