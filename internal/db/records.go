package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/denguewatch/denguewatch/internal/records"
)

var _ records.Store = (*DB)(nil)

// caseRow is a normalized record ready for binding.
type caseRow struct {
	location string
	cases    int
	deaths   int
	date     time.Time
	region   string
}

func toRow(f records.Fields) (caseRow, error) {
	f, err := f.Normalize()
	if err != nil {
		return caseRow{}, err
	}
	d, err := time.Parse(records.DateLayout, f.Date)
	if err != nil {
		return caseRow{}, fmt.Errorf("parsing normalized date: %w", err)
	}
	return caseRow{location: f.Location, cases: f.Cases, deaths: f.Deaths, date: d, region: f.Region}, nil
}

// ListAll returns every case record ordered by date, then id.
func (db *DB) ListAll(ctx context.Context) ([]records.CaseRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id::text, location, cases, deaths, date, region
		 FROM case_records ORDER BY date, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing case records: %w", err)
	}
	defer rows.Close()

	var out []records.CaseRecord
	for rows.Next() {
		var (
			r    records.CaseRecord
			id   string
			date time.Time
		)
		if err := rows.Scan(&id, &r.Location, &r.Cases, &r.Deaths, &date, &r.Region); err != nil {
			return nil, fmt.Errorf("scanning case record: %w", err)
		}
		r.ID = records.ID(id)
		r.Date = date.Format(records.DateLayout)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing case records: %w", err)
	}
	return out, nil
}

// Create inserts a case record and returns its new id.
func (db *DB) Create(ctx context.Context, f records.Fields) (records.ID, error) {
	row, err := toRow(f)
	if err != nil {
		return "", err
	}
	id := uuid.New()
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO case_records (id, location, cases, deaths, date, region)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id.String(), row.location, row.cases, row.deaths, row.date, row.region,
	)
	if err != nil {
		return "", fmt.Errorf("creating case record: %w", err)
	}
	return records.ID(id.String()), nil
}

// Update replaces the fields of a case record.
func (db *DB) Update(ctx context.Context, id records.ID, f records.Fields) error {
	row, err := toRow(f)
	if err != nil {
		return err
	}
	key, ok := parseID(id)
	if !ok {
		return fmt.Errorf("updating %s: %w", id, records.ErrNotFound)
	}
	tag, err := db.Pool.Exec(ctx,
		`UPDATE case_records
		 SET location = $2, cases = $3, deaths = $4, date = $5, region = $6, updated_at = now()
		 WHERE id = $1`,
		key, row.location, row.cases, row.deaths, row.date, row.region,
	)
	if err != nil {
		return fmt.Errorf("updating case record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating %s: %w", id, records.ErrNotFound)
	}
	return nil
}

// Delete removes a case record.
func (db *DB) Delete(ctx context.Context, id records.ID) error {
	key, ok := parseID(id)
	if !ok {
		return fmt.Errorf("deleting %s: %w", id, records.ErrNotFound)
	}
	tag, err := db.Pool.Exec(ctx, `DELETE FROM case_records WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting case record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting %s: %w", id, records.ErrNotFound)
	}
	return nil
}

// CreateBatch inserts all records in one transaction.
func (db *DB) CreateBatch(ctx context.Context, fs []records.Fields) ([]records.ID, error) {
	rows := make([]caseRow, len(fs))
	for i, f := range fs {
		row, err := toRow(f)
		if err != nil {
			return nil, fmt.Errorf("batch entry %d: %w", i, err)
		}
		rows[i] = row
	}
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids := make([]records.ID, len(rows))
	batch := &pgx.Batch{}
	for i, row := range rows {
		id := uuid.New().String()
		ids[i] = records.ID(id)
		batch.Queue(
			`INSERT INTO case_records (id, location, cases, deaths, date, region)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, row.location, row.cases, row.deaths, row.date, row.region,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, fmt.Errorf("inserting batch entry %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("closing import batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return ids, nil
}

// parseID rejects ids that cannot exist in the uuid column.
func parseID(id records.ID) (string, bool) {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return "", false
	}
	return u.String(), true
}
