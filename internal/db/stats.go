package db

import (
	"context"
	"fmt"
)

// StoreStats holds row counts read straight from the database, used to spot a
// dashboard that has drifted from the store.
type StoreStats struct {
	Records  int64 `json:"records"`
	Regions  int64 `json:"regions"`
	Activity int64 `json:"activity_entries"`
}

// Stats queries aggregate counts from the database.
func (db *DB) Stats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT NULLIF(btrim(region), '')) FROM case_records`,
	).Scan(&stats.Records, &stats.Regions)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_log`,
	).Scan(&stats.Activity)
	if err != nil {
		return nil, fmt.Errorf("counting activity entries: %w", err)
	}

	return stats, nil
}
