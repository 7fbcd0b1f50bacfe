package repository

import (
	"context"
	"sort"
	"sync"

	"backend/models"
	"backend/workflow"
)

// MemoryStore is an in-memory workflow.Store used by tests and local
// development. It honours the same conditional-write contract as the
// Postgres repository: Save only lands when the stored status still matches
// the expected one, checked and applied under one lock.
type MemoryStore struct {
	mu      sync.Mutex
	indents map[string]models.Indent
	serial  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indents: make(map[string]models.Indent)}
}

func (m *MemoryStore) Create(_ context.Context, ind *models.Indent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serial++
	ind.SerialNumber = m.serial
	m.indents[ind.ID] = cloneIndent(*ind)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*models.Indent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ind, ok := m.indents[id]
	if !ok {
		return nil, workflow.ErrNotFound
	}
	c := cloneIndent(ind)
	return &c, nil
}

func (m *MemoryStore) Save(_ context.Context, ind *models.Indent, expected models.IndentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.indents[ind.ID]
	if !ok {
		return workflow.ErrNotFound
	}
	if stored.Status != expected {
		return workflow.ErrStatusConflict
	}
	m.indents[ind.ID] = cloneIndent(*ind)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indents[id]; !ok {
		return workflow.ErrNotFound
	}
	delete(m.indents, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, f workflow.ListFilter) ([]models.Indent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Indent
	for _, ind := range m.indents {
		if f.RequestorID != 0 && ind.RequestorID != f.RequestorID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, ind.Status) {
			continue
		}
		if len(f.ExcludeTypes) > 0 && containsType(f.ExcludeTypes, ind.TypeOfIndent) {
			continue
		}
		out = append(out, cloneIndent(ind))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

func cloneIndent(ind models.Indent) models.Indent {
	ind.Waypoints = append([]string(nil), ind.Waypoints...)
	ind.ApproverSkipList = append([]models.Role(nil), ind.ApproverSkipList...)
	ind.ApprovalLogs = append([]models.ApprovalLogEntry(nil), ind.ApprovalLogs...)
	return ind
}

func containsStatus(ss []models.IndentStatus, s models.IndentStatus) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func containsType(ts []models.IndentType, t models.IndentType) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}
