package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for local runs and tests.
type Memory struct {
	mu   sync.RWMutex
	recs map[ID]CaseRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{recs: make(map[ID]CaseRecord)}
}

func (m *Memory) ListAll(ctx context.Context) ([]CaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]CaseRecord, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	m.mu.RUnlock()
	SortByDate(out)
	return out, nil
}

func (m *Memory) Create(ctx context.Context, f Fields) (ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := f.Normalize()
	if err != nil {
		return "", err
	}
	id := ID(uuid.NewString())

	m.mu.Lock()
	m.recs[id] = f.WithID(id)
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) Update(ctx context.Context, id ID, f Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := f.Normalize()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return fmt.Errorf("updating %s: %w", id, ErrNotFound)
	}
	m.recs[id] = f.WithID(id)
	return nil
}

func (m *Memory) Delete(ctx context.Context, id ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[id]; !ok {
		return fmt.Errorf("deleting %s: %w", id, ErrNotFound)
	}
	delete(m.recs, id)
	return nil
}

// CreateBatch validates every entry before writing any of them.
func (m *Memory) CreateBatch(ctx context.Context, fs []Fields) ([]ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	normalized := make([]Fields, len(fs))
	for i, f := range fs {
		n, err := f.Normalize()
		if err != nil {
			return nil, fmt.Errorf("batch entry %d: %w", i, err)
		}
		normalized[i] = n
	}

	ids := make([]ID, len(normalized))
	m.mu.Lock()
	for i, f := range normalized {
		id := ID(uuid.NewString())
		m.recs[id] = f.WithID(id)
		ids[i] = id
	}
	m.mu.Unlock()
	return ids, nil
}
