package metrics

import (
	"context"
	"time"

	"github.com/denguewatch/denguewatch/internal/records"
)

// Store times every call to the wrapped store.
type Store struct {
	inner records.Store
	m     *Metrics
}

// InstrumentStore wraps inner so each round-trip is observed by m.
func InstrumentStore(inner records.Store, m *Metrics) *Store {
	return &Store{inner: inner, m: m}
}

func (s *Store) ListAll(ctx context.Context) (recs []records.CaseRecord, err error) {
	defer func(start time.Time) { s.m.ObserveStoreOp("list", start, err) }(time.Now())
	return s.inner.ListAll(ctx)
}

func (s *Store) Create(ctx context.Context, f records.Fields) (id records.ID, err error) {
	defer func(start time.Time) { s.m.ObserveStoreOp("create", start, err) }(time.Now())
	return s.inner.Create(ctx, f)
}

func (s *Store) Update(ctx context.Context, id records.ID, f records.Fields) (err error) {
	defer func(start time.Time) { s.m.ObserveStoreOp("update", start, err) }(time.Now())
	return s.inner.Update(ctx, id, f)
}

func (s *Store) Delete(ctx context.Context, id records.ID) (err error) {
	defer func(start time.Time) { s.m.ObserveStoreOp("delete", start, err) }(time.Now())
	return s.inner.Delete(ctx, id)
}

func (s *Store) CreateBatch(ctx context.Context, fs []records.Fields) (ids []records.ID, err error) {
	defer func(start time.Time) { s.m.ObserveStoreOp("create_batch", start, err) }(time.Now())
	return s.inner.CreateBatch(ctx, fs)
}
