package dashboard

import (
	"context"
	"fmt"
	"io"

	"github.com/denguewatch/denguewatch/internal/ingest"
	"github.com/denguewatch/denguewatch/internal/logging"
	"github.com/denguewatch/denguewatch/internal/records"
)

// Loader fetches the full collection and installs it into a State.
type Loader struct {
	store records.Store
	state *State
	log   *logging.Logger
}

func NewLoader(store records.Store, state *State, log *logging.Logger) *Loader {
	return &Loader{store: store, state: state, log: log}
}

// Refresh fetches every record. On failure the state is left as it was. A
// result that arrives after a later refresh has been applied is dropped, and
// writes confirmed while the fetch was in flight are kept.
func (l *Loader) Refresh(ctx context.Context) error {
	seq := l.state.NextSeq()
	recs, err := l.store.ListAll(ctx)
	if err != nil {
		l.state.Abandon(seq)
		return fmt.Errorf("refreshing records: %w", err)
	}
	if !l.state.Replace(seq, recs) {
		l.log.Debug("discarding stale refresh", "seq", seq)
		return nil
	}
	l.log.Debug("records refreshed", "seq", seq, "count", len(recs))
	return nil
}

// ReadSnapshot reads a bundled CSV snapshot without rejecting rows: counts
// that do not parse are taken as zero so every row contributes to totals.
func ReadSnapshot(r io.Reader) ([]records.CaseRecord, error) {
	rows, err := ingest.ReadRows(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	out := make([]records.CaseRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Lenient())
	}
	return out, nil
}
