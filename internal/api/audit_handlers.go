package api

import (
	"net/http"

	"github.com/denguewatch/denguewatch/internal/audit"
)

// handleListActivity returns recent activity log entries, newest first.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeJSON(w, http.StatusOK, []audit.Entry{})
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.activity.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("listing activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
