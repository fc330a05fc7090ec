package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/denguewatch/denguewatch/internal/ingest"
	"github.com/denguewatch/denguewatch/internal/records"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

// writeStoreError maps a failed store or ingestion call onto a response.
// Validation problems are the caller's fault; anything else is reported as
// an upstream failure so the client knows nothing was applied.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr *records.ValidationError
		perr *ingest.ParseError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": verr.Error(),
			"field": verr.Field,
		})
	case errors.Is(err, records.ErrInvalid):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &perr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": perr.Error(),
			"line":  perr.Line,
		})
	case errors.Is(err, records.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, context.Canceled):
		s.log.Debug("request cancelled", "op", op, "request_id", requestID(r.Context()))
	default:
		s.log.Error("store operation failed", "op", op, "error", err, "request_id", requestID(r.Context()))
		writeError(w, http.StatusBadGateway, op+" failed; nothing was changed")
	}
}
