package dashboard

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/denguewatch/denguewatch/internal/records"
)

// DefaultPageSize is the number of table rows shown per page.
const DefaultPageSize = 5

// Search keeps the records whose location contains term, ignoring case. An
// empty or blank term keeps everything.
func Search(recs []records.CaseRecord, term string) []records.CaseRecord {
	term = strings.TrimSpace(term)
	if term == "" {
		return recs
	}
	fold := cases.Fold()
	needle := fold.String(term)
	out := make([]records.CaseRecord, 0, len(recs))
	for _, r := range recs {
		if strings.Contains(fold.String(r.Location), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Page is one window of a record listing.
type Page struct {
	Items      []records.CaseRecord `json:"items"`
	Page       int                  `json:"page"`
	Size       int                  `json:"size"`
	TotalPages int                  `json:"total_pages"`
	TotalItems int                  `json:"total_items"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// Paginate cuts the 1-based page out of recs. The page number is clamped to
// the available range and there is always at least one (possibly empty)
// page.
func Paginate(recs []records.CaseRecord, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(recs)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	items := make([]records.CaseRecord, 0, end-start)
	items = append(items, recs[start:end]...)
	return Page{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalPages: pages,
		TotalItems: total,
	}
}

// Query is a table request: search first, then page.
type Query struct {
	Search string
	Page   int
	Size   int
}

// List applies q to recs.
func List(recs []records.CaseRecord, q Query) Page {
	return Paginate(Search(recs, q.Search), q.Page, q.Size)
}
