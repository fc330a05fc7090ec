package api

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/denguewatch/denguewatch/internal/aggregate"
	"github.com/denguewatch/denguewatch/internal/dashboard"
	"github.com/denguewatch/denguewatch/internal/ingest"
	"github.com/denguewatch/denguewatch/internal/records"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexView struct {
	Flash       string
	Totals      aggregate.Totals
	Snapshot    *aggregate.Totals
	RecordCount int
	Search      string
	Page        dashboard.Page
	PrevURL     string
	NextURL     string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, http.StatusOK, r.URL.Query().Get("flash"))
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, flash string) {
	q, err := s.listQuery(r)
	if err != nil {
		q = dashboard.Query{Page: 1, Size: s.opts.PageSize}
	}
	recs := s.state.Snapshot()
	page := dashboard.List(recs, q)

	view := indexView{
		Flash:       flash,
		Totals:      aggregate.Sum(recs),
		RecordCount: len(recs),
		Search:      q.Search,
		Page:        page,
		PrevURL:     pageURL(q.Search, page.Page-1),
		NextURL:     pageURL(q.Search, page.Page+1),
	}
	if s.snapshot != nil {
		t := aggregate.Sum(s.snapshot)
		view.Snapshot = &t
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTmpl.Execute(w, view); err != nil {
		s.log.Error("rendering dashboard", "error", err)
	}
}

func pageURL(search string, page int) string {
	v := url.Values{}
	if search != "" {
		v.Set("search", search)
	}
	v.Set("page", strconv.Itoa(page))
	return "/?" + v.Encode()
}

// redirectHome sends the browser back to the dashboard with a message.
func redirectHome(w http.ResponseWriter, r *http.Request, flash string) {
	http.Redirect(w, r, "/?"+url.Values{"flash": {flash}}.Encode(), http.StatusSeeOther)
}

// formFields reads the add and edit forms. Count inputs that are not integers
// are reported as validation errors for that field.
func formFields(r *http.Request) (records.Fields, error) {
	if err := r.ParseForm(); err != nil {
		return records.Fields{}, formError{err}
	}
	f := records.Fields{
		Location: r.PostForm.Get("location"),
		Date:     r.PostForm.Get("date"),
		Region:   r.PostForm.Get("region"),
	}
	var err error
	if f.Cases, err = formCount(r, "cases"); err != nil {
		return f, err
	}
	if f.Deaths, err = formCount(r, "deaths"); err != nil {
		return f, err
	}
	return f, nil
}

// formError is a form body that could not be parsed at all.
type formError struct{ err error }

func (e formError) Error() string { return "invalid form: " + e.err.Error() }

func formCount(r *http.Request, field string) (int, error) {
	v := strings.TrimSpace(r.PostForm.Get(field))
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &records.ValidationError{Field: field, Reason: "must be a whole number"}
	}
	return n, nil
}

// formFailure re-renders the dashboard with the error so the page stays
// usable after a failed submission.
func (s *Server) formFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusBadGateway
	msg := op + " failed; nothing was changed"
	var (
		verr *records.ValidationError
		perr *ingest.ParseError
		uerr uploadError
		ferr formError
	)
	switch {
	case errors.As(err, &verr):
		status, msg = http.StatusUnprocessableEntity, verr.Error()
	case errors.As(err, &perr):
		status, msg = http.StatusBadRequest, perr.Error()
	case errors.As(err, &uerr):
		status, msg = http.StatusBadRequest, uerr.Error()
	case errors.As(err, &ferr):
		status, msg = http.StatusBadRequest, ferr.Error()
	case errors.Is(err, records.ErrNotFound):
		status, msg = http.StatusNotFound, "record not found"
	default:
		s.log.Error("form submission failed", "op", op, "error", err, "request_id", requestID(r.Context()))
	}
	s.renderIndex(w, r, status, msg)
}

func (s *Server) handleFormCreate(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(r)
	if err == nil {
		_, err = s.createRecord(r.Context(), f)
	}
	if err != nil {
		s.formFailure(w, r, "create", err)
		return
	}
	redirectHome(w, r, "Record added.")
}

func (s *Server) handleFormUpdate(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(r)
	if err == nil {
		_, err = s.updateRecord(r.Context(), records.ID(chi.URLParam(r, "id")), f)
	}
	if err != nil {
		s.formFailure(w, r, "update", err)
		return
	}
	redirectHome(w, r, "Record updated.")
}

func (s *Server) handleFormDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteRecord(r.Context(), records.ID(chi.URLParam(r, "id"))); err != nil {
		s.formFailure(w, r, "delete", err)
		return
	}
	redirectHome(w, r, "Record deleted.")
}

// formPolicy reads the import policy from the multipart form when there is
// one and from the query string otherwise. A raw body is the CSV itself and
// must not be parsed as a form.
func formPolicy(r *http.Request) string {
	if r.MultipartForm != nil {
		if v := r.MultipartForm.Value["policy"]; len(v) > 0 {
			return v[0]
		}
	}
	return r.URL.Query().Get("policy")
}

func (s *Server) handleFormImport(w http.ResponseWriter, r *http.Request) {
	body, closeBody, err := s.uploadBody(w, r)
	if err != nil {
		s.formFailure(w, r, "import", err)
		return
	}
	defer closeBody()

	policy, err := s.importPolicy(formPolicy(r))
	if err != nil {
		s.formFailure(w, r, "import", &records.ValidationError{Field: "policy", Reason: err.Error()})
		return
	}
	res, err := s.importCSV(r.Context(), body, policy, false)
	if err != nil {
		s.formFailure(w, r, "import", err)
		return
	}
	redirectHome(w, r, fmt.Sprintf("Imported %d rows, rejected %d.", res.Accepted, res.Rejected))
}
