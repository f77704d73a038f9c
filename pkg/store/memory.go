package store

import (
	"context"
	"sync"
	"time"

	"tableflip.dev/pomo/pkg/milestone"
)

var _ Store = (*Memory)(nil)

// Memory keeps milestones in process memory. It backs tests and ephemeral
// sessions.
type Memory struct {
	mu    sync.Mutex
	items collection
	now   func() time.Time
}

// NewMemory returns an empty store, optionally seeded with records.
func NewMemory(seed ...milestone.Milestone) *Memory {
	m := &Memory{now: time.Now}
	m.items = append(m.items, seed...)
	m.items.normalize()
	return m
}

func (m *Memory) List(_ context.Context, projectID string) ([]milestone.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.forProject(projectID), nil
}

func (m *Memory) Get(_ context.Context, id string) (milestone.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.get(id)
}

func (m *Memory) Create(_ context.Context, projectID string, d milestone.Draft) (milestone.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.create(projectID, d, m.now())
}

func (m *Memory) Update(_ context.Context, id string, p milestone.Patch) (milestone.Milestone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.update(id, p, m.now())
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items.remove(id)
	return nil
}
