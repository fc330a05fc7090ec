package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/denguewatch/denguewatch/internal/aggregate"
	"github.com/denguewatch/denguewatch/internal/chart"
	"github.com/denguewatch/denguewatch/internal/records"
)

// TotalsResponse is the body of the totals endpoints.
type TotalsResponse struct {
	aggregate.Totals
	Records int `json:"records"`
}

// RegionsResponse lists per-region totals and the regions the map cannot
// draw.
type RegionsResponse struct {
	Regions   []aggregate.RegionTotals `json:"regions"`
	Unmatched []string                 `json:"unmatched"`
}

// handleTotals returns grand totals over the current records.
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	recs := s.state.Snapshot()
	writeJSON(w, http.StatusOK, TotalsResponse{Totals: aggregate.Sum(recs), Records: len(recs)})
}

// handleRegions returns per-region totals, largest first.
func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	byRegion := aggregate.ByRegion(s.state.Snapshot())
	resp := RegionsResponse{Regions: aggregate.Sorted(byRegion), Unmatched: []string{}}
	if s.bounds != nil {
		for _, rt := range resp.Regions {
			if !s.bounds.Has(rt.Region) {
				resp.Unmatched = append(resp.Unmatched, rt.Region)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMap returns the choropleth FeatureCollection. source=snapshot draws
// the bundled CSV snapshot instead of the live records.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if s.bounds == nil {
		writeError(w, http.StatusServiceUnavailable, "boundary set not loaded")
		return
	}
	var recs []records.CaseRecord
	switch r.URL.Query().Get("source") {
	case "", "records":
		recs = s.state.Snapshot()
	case "snapshot":
		if s.snapshot == nil {
			writeError(w, http.StatusNotFound, "no snapshot configured")
			return
		}
		recs = s.snapshot
	default:
		writeError(w, http.StatusBadRequest, "source must be records or snapshot")
		return
	}

	fc, unmatched := s.bounds.Join(aggregate.ByRegion(recs))
	s.metrics.UnmatchedRegions.Set(float64(len(unmatched)))
	if len(unmatched) > 0 {
		s.log.Warn("regions missing from boundary set", "regions", unmatched)
	}
	writeJSON(w, http.StatusOK, fc)
}

// handleChart returns the series for a line or bar chart.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, err := chart.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	q := r.URL.Query()
	f, err := chart.ParseFilter(q.Get("mode"), q.Get("month"), q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chart.Build(kind, s.state.Snapshot(), f))
}

// handleSnapshotTotals returns totals of the bundled CSV snapshot.
func (s *Server) handleSnapshotTotals(w http.ResponseWriter, r *http.Request) {
	if s.snapshot == nil {
		writeError(w, http.StatusNotFound, "no snapshot configured")
		return
	}
	writeJSON(w, http.StatusOK, TotalsResponse{Totals: aggregate.Sum(s.snapshot), Records: len(s.snapshot)})
}
