package report

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps runs in process. Useful for tests and for serve without Mongo.
type Memory struct {
	mu   sync.Mutex
	runs []Run
	// Err, when set, fails Record and Ping.
	Err error
}

var _ Recorder = (*Memory)(nil)

func (m *Memory) Record(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) List(_ context.Context, scenario string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = defaultLimit
	}
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		if scenario == "" || r.Scenario == scenario {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}
