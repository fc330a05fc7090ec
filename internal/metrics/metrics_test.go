package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denguewatch/denguewatch/internal/records"
)

func TestNewUsesPrivateRegistry(t *testing.T) {
	a, b := New(), New()
	a.RecordsCreated.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RecordsCreated))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsCreated))
}

func TestObserveImport(t *testing.T) {
	m := New()
	m.ObserveImport(3, 1)
	m.ObserveImport(2, 0)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("rejected")))
}

type failingStore struct{ records.Store }

func (failingStore) Delete(context.Context, records.ID) error { return errors.New("boom") }

func TestInstrumentedStoreCountsErrors(t *testing.T) {
	m := New()
	s := InstrumentStore(records.NewMemory(), m)
	ctx := context.Background()

	_, err := s.Create(ctx, records.Fields{Location: "Cebu", Cases: 1, Date: "2024-01-05", Region: "Visayas"})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Delete(ctx, "missing"), records.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("delete")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("create")))

	f := InstrumentStore(failingStore{}, m)
	assert.Error(t, f.Delete(ctx, "x"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("delete")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordsDeleted.Inc()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "denguewatch_records_deleted_total 1")
}
