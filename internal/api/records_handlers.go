package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/denguewatch/denguewatch/internal/dashboard"
	"github.com/denguewatch/denguewatch/internal/ingest"
	"github.com/denguewatch/denguewatch/internal/records"
)

// handleListRecords returns one page of the search-filtered listing.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q, err := s.listQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dashboard.List(s.state.Snapshot(), q))
}

func (s *Server) listQuery(r *http.Request) (dashboard.Query, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return dashboard.Query{}, err
	}
	size, err := queryInt(r, "size", s.opts.PageSize)
	if err != nil {
		return dashboard.Query{}, err
	}
	if size > 500 {
		size = 500
	}
	return dashboard.Query{Search: r.URL.Query().Get("search"), Page: page, Size: size}, nil
}

// handleCreateRecord persists a new record.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var f records.Fields
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := s.createRecord(r.Context(), f)
	if err != nil {
		s.writeStoreError(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleUpdateRecord replaces the fields of an existing record.
func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id := records.ID(chi.URLParam(r, "id"))
	var f records.Fields
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := s.updateRecord(r.Context(), id, f)
	if err != nil {
		s.writeStoreError(w, r, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteRecord removes a record.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := records.ID(chi.URLParam(r, "id"))
	if err := s.deleteRecord(r.Context(), id); err != nil {
		s.writeStoreError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImport accepts a CSV file as multipart field "file" or as the raw
// request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	policy, err := s.importPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	body, closeBody, err := s.uploadBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer closeBody()

	res, err := s.importCSV(r.Context(), body, policy, dryRun)
	if err != nil {
		s.writeStoreError(w, r, "import", err)
		return
	}
	status := http.StatusCreated
	if dryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (s *Server) importPolicy(v string) (ingest.Policy, error) {
	if strings.TrimSpace(v) == "" {
		return s.opts.ImportPolicy, nil
	}
	return ingest.ParsePolicy(v)
}

// uploadBody returns the CSV stream of an import request.
func (s *Server) uploadBody(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() { r.Body.Close() }, nil
	}
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		return nil, nil, errInvalidUpload(err)
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errInvalidUpload(err)
	}
	return f, func() { f.Close() }, nil
}

type uploadError struct{ err error }

func (e uploadError) Error() string { return "invalid upload: " + e.err.Error() }

func errInvalidUpload(err error) error { return uploadError{err} }

// handleRefresh reloads the full collection from the store.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.loader.Refresh(r.Context()); err != nil {
		s.writeStoreError(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"records": s.state.Len()})
}
