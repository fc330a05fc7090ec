package api

import (
	"context"
	"fmt"
	"io"

	"github.com/denguewatch/denguewatch/internal/audit"
	"github.com/denguewatch/denguewatch/internal/ingest"
	"github.com/denguewatch/denguewatch/internal/records"
)

// The methods below are shared by the JSON and HTML handlers. Each one only
// touches dashboard state after the store has confirmed the write.

func (s *Server) createRecord(ctx context.Context, f records.Fields) (records.CaseRecord, error) {
	f, err := f.Normalize()
	if err != nil {
		return records.CaseRecord{}, err
	}
	id, err := s.store.Create(ctx, f)
	if err != nil {
		return records.CaseRecord{}, fmt.Errorf("creating record: %w", err)
	}
	rec := f.WithID(id)
	s.state.ApplyCreated(rec)
	s.metrics.RecordsCreated.Inc()
	s.warnImplausible(rec)
	s.recordActivity(ctx, audit.ActionCreate, string(id), f)
	return rec, nil
}

func (s *Server) updateRecord(ctx context.Context, id records.ID, f records.Fields) (records.CaseRecord, error) {
	f, err := f.Normalize()
	if err != nil {
		return records.CaseRecord{}, err
	}
	if err := s.store.Update(ctx, id, f); err != nil {
		return records.CaseRecord{}, fmt.Errorf("updating record: %w", err)
	}
	rec := f.WithID(id)
	s.state.ApplyUpdated(rec)
	s.metrics.RecordsUpdated.Inc()
	s.warnImplausible(rec)
	s.recordActivity(ctx, audit.ActionUpdate, string(id), f)
	return rec, nil
}

func (s *Server) deleteRecord(ctx context.Context, id records.ID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	s.state.ApplyDeleted(id)
	s.metrics.RecordsDeleted.Inc()
	s.recordActivity(ctx, audit.ActionDelete, string(id), nil)
	return nil
}

// ImportResult is the outcome of one CSV upload.
type ImportResult struct {
	Accepted   int                `json:"accepted"`
	Rejected   int                `json:"rejected"`
	Rejections []ingest.Rejection `json:"rejections"`
	IDs        []records.ID       `json:"ids"`
	DryRun     bool               `json:"dry_run,omitempty"`
}

// importCSV parses the upload and writes every accepted row in one batch.
// A parse or store failure leaves both store and state untouched.
func (s *Server) importCSV(ctx context.Context, body io.Reader, policy ingest.Policy, dryRun bool) (*ImportResult, error) {
	res, err := ingest.Parse(body, policy)
	if err != nil {
		s.metrics.ImportFailures.Inc()
		return nil, err
	}
	out := &ImportResult{
		Accepted:   res.Accepted(),
		Rejected:   len(res.Rejected),
		Rejections: res.Rejected,
		IDs:        []records.ID{},
		DryRun:     dryRun,
	}
	if out.Rejections == nil {
		out.Rejections = []ingest.Rejection{}
	}
	if dryRun || out.Accepted == 0 {
		return out, nil
	}

	ids, err := s.store.CreateBatch(ctx, res.Records)
	if err != nil {
		s.metrics.ImportFailures.Inc()
		return nil, fmt.Errorf("importing records: %w", err)
	}
	recs := make([]records.CaseRecord, len(ids))
	for i, id := range ids {
		recs[i] = res.Records[i].WithID(id)
		s.warnImplausible(recs[i])
	}
	s.state.ApplyImported(recs)
	s.metrics.ObserveImport(out.Accepted, out.Rejected)
	out.IDs = ids

	s.log.Info("csv import committed", "accepted", out.Accepted, "rejected", out.Rejected, "policy", policy.String())
	s.recordActivity(ctx, audit.ActionImport, "", map[string]interface{}{
		"accepted": out.Accepted,
		"rejected": out.Rejected,
		"policy":   policy.String(),
	})
	return out, nil
}

func (s *Server) warnImplausible(rec records.CaseRecord) {
	if rec.Fields().DeathsExceedCases() {
		s.log.Warn("record has more deaths than cases", "id", rec.ID, "location", rec.Location, "cases", rec.Cases, "deaths", rec.Deaths)
	}
}

// recordActivity appends to the activity log. The mutation has already been
// confirmed, so a failure here is logged and not returned.
func (s *Server) recordActivity(ctx context.Context, action, recordID string, detail interface{}) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Log(ctx, action, recordID, detail); err != nil {
		s.log.Error("writing activity log", "action", action, "record_id", recordID, "error", err)
	}
}
