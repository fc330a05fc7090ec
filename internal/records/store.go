package records

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned by Update and Delete when no record has the id.
var ErrNotFound = errors.New("record not found")

// Store is the contract between the dashboard and the hosted record
// collection. Every method is a round-trip that may fail; failures are
// returned to the caller and never applied partially.
type Store interface {
	// ListAll returns every record ordered by date, then id.
	ListAll(ctx context.Context) ([]CaseRecord, error)
	// Create persists the fields and returns the assigned id.
	Create(ctx context.Context, f Fields) (ID, error)
	// Update replaces the fields of an existing record.
	Update(ctx context.Context, id ID, f Fields) error
	// Delete removes a record. Unknown ids yield ErrNotFound.
	Delete(ctx context.Context, id ID) error
	// CreateBatch persists all fields or none of them.
	CreateBatch(ctx context.Context, fs []Fields) ([]ID, error)
}

// SortByDate orders records by date and breaks ties by id so listings are
// stable across backends.
func SortByDate(recs []CaseRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Date != recs[j].Date {
			return recs[i].Date < recs[j].Date
		}
		return recs[i].ID < recs[j].ID
	})
}
