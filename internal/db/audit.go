package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/denguewatch/denguewatch/internal/audit"
)

var _ audit.Sink = (*DB)(nil)

// AppendActivity inserts an activity entry and returns it with its sequence
// number.
func (db *DB) AppendActivity(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO activity_log (at, action, record_id, detail, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING seq`,
		e.At, e.Action, e.RecordID, nullJSON(e.Detail), e.PrevHash, e.Hash,
	).Scan(&e.Seq)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("creating activity entry: %w", err)
	}
	return e, nil
}

// ListActivity returns the most recent entries, newest first.
func (db *DB) ListActivity(ctx context.Context, limit int) ([]audit.Entry, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT seq, at, action, record_id, COALESCE(detail::text, ''), prev_hash, hash
		 FROM activity_log ORDER BY seq DESC LIMIT $1`,
		audit.ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e      audit.Entry
			detail string
		)
		if err := rows.Scan(&e.Seq, &e.At, &e.Action, &e.RecordID, &detail, &e.PrevHash, &e.Hash); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.At = e.At.UTC()
		if detail != "" {
			e.Detail = []byte(detail)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastActivityHash retrieves the hash of the most recent entry for chain
// linking. An empty log yields the empty hash.
func (db *DB) LastActivityHash(ctx context.Context) (string, error) {
	var hash string
	err := db.Pool.QueryRow(ctx,
		`SELECT hash FROM activity_log ORDER BY seq DESC LIMIT 1`,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last activity hash: %w", err)
	}
	return hash, nil
}

func nullJSON(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}
