package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/firmkeeper/internal/model"
)

type memoryRow struct {
	seq    int64
	tenant string
	doc    string
}

// Memory is an in-process store with the same contract as Store.
// Documents are stored encoded so callers never share entity values.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	rows  map[model.EntityType]map[string]memoryRow
	audit []model.AuditRecord
	seq   int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	m := &Memory{rows: make(map[model.EntityType]map[string]memoryRow, len(model.AllEntityTypes))}
	for _, t := range model.AllEntityTypes {
		m.rows[t] = make(map[string]memoryRow)
	}
	return m
}

// Put inserts or replaces an entity, keeping the original seq on replace.
func (m *Memory) Put(_ context.Context, e model.Entity) error {
	doc, err := marshalDoc(e)
	if err != nil {
		return fmt.Errorf("put %s %s: %w", e.EntityType(), e.EntityID(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table, ok := m.rows[e.EntityType()]
	if !ok {
		return fmt.Errorf("put: unknown entity type %q", e.EntityType())
	}
	row, exists := table[e.EntityID()]
	if !exists {
		m.seq++
		row.seq = m.seq
	}
	row.tenant = e.Tenant()
	row.doc = doc
	table[e.EntityID()] = row
	return nil
}

// Repository returns the repository for entity type t.
func (m *Memory) Repository(t model.EntityType) model.Repository {
	return &memoryRepository{m: m, entityType: t}
}

// Repositories returns a repository for every entity type.
func (m *Memory) Repositories() model.Repositories {
	repos := make(model.Repositories, len(model.AllEntityTypes))
	for _, t := range model.AllEntityTypes {
		repos[t] = m.Repository(t)
	}
	return repos
}

// Add appends a record to the audit trail.
func (m *Memory) Add(_ context.Context, rec model.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, rec)
	return nil
}

// AuditRecords returns the tenant's audit trail, oldest first.
func (m *Memory) AuditRecords(_ context.Context, tenantID string) ([]model.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AuditRecord
	for _, rec := range m.audit {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memoryRepository struct {
	m          *Memory
	entityType model.EntityType
}

func (r *memoryRepository) Find(_ context.Context, tenantID string, filter model.Filter) ([]model.Entity, error) {
	r.m.mu.Lock()
	rows := make([]memoryRow, 0)
	for _, row := range r.m.rows[r.entityType] {
		if row.tenant == tenantID {
			rows = append(rows, row)
		}
	}
	r.m.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	var out []model.Entity
	for _, row := range rows {
		e, err := unmarshalEntity(r.entityType, row.doc)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", r.entityType, err)
		}
		ok, err := model.Matches(e, filter)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", r.entityType, err)
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (model.Entity, error) {
	r.m.mu.Lock()
	row, ok := r.m.rows[r.entityType][id]
	r.m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return unmarshalEntity(r.entityType, row.doc)
}

func (r *memoryRepository) Update(_ context.Context, id string, patch model.Patch) (model.Entity, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	row, ok := r.m.rows[r.entityType][id]
	if !ok {
		return nil, nil
	}
	current, err := unmarshalEntity(r.entityType, row.doc)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.entityType, id, err)
	}
	patched, err := model.ApplyPatch(current, patch)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.entityType, id, err)
	}
	if row.doc, err = marshalDoc(patched); err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.entityType, id, err)
	}
	r.m.rows[r.entityType][id] = row
	return patched, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.rows[r.entityType][id]; !ok {
		return false, nil
	}
	delete(r.m.rows[r.entityType], id)
	return true, nil
}
