// Package ingest turns uploaded CSV files into normalized case record fields.
//
// Column headers are resolved through the alias table in aliases.go, so both
// plain exports ("location,cases,deaths,date,region") and HXL-tagged exports
// ("#adm2+name,#affected+infected,...") are accepted. Rows that cannot become a
// valid record are rejected individually and reported back; a file that cannot
// be read as CSV at all fails as a whole with a ParseError.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/denguewatch/denguewatch/internal/records"
)

// Policy decides how unparsable counts are treated.
type Policy int

const (
	// PolicyRequireAll rejects rows whose cases or deaths are not integers.
	PolicyRequireAll Policy = iota
	// PolicyBestEffort reads unparsable counts as zero.
	PolicyBestEffort
)

func (p Policy) String() string {
	if p == PolicyBestEffort {
		return "best-effort"
	}
	return "require-all"
}

// ParsePolicy reads a policy name. The empty string selects PolicyRequireAll.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "require-all", "strict":
		return PolicyRequireAll, nil
	case "best-effort", "lenient":
		return PolicyBestEffort, nil
	default:
		return PolicyRequireAll, fmt.Errorf("unknown import policy %q", s)
	}
}

// ParseError reports a file that is not usable CSV. No rows are returned
// alongside it.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("csv parse error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("csv parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Row is one data row with its cells resolved to canonical fields but not yet
// converted.
type Row struct {
	Line     int
	Location string
	Cases    string
	Deaths   string
	Date     string
	Region   string
}

// Rejection describes a row that was excluded from the result.
type Rejection struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of parsing one file.
type Result struct {
	Records  []records.Fields
	Rejected []Rejection
}

// Accepted is the number of rows that produced a record.
func (r *Result) Accepted() int { return len(r.Records) }

// ReadRows parses the header and returns every non-blank data row. Columns the
// header does not name are left empty in each Row.
func ReadRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}

	var pending [][]string
	var pendingLines []int
	cols := resolveColumns(header)

	// An HXL export carries the tag row directly under the name row.
	first, err := cr.Read()
	switch {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, wrapCSVError(err)
	case isTagRow(first):
		cols = resolveColumns(header, first)
	default:
		line, _ := cr.FieldPos(0)
		pending = append(pending, first)
		pendingLines = append(pendingLines, line)
	}

	if !anyResolved(cols) {
		return nil, &ParseError{Line: 1, Err: fmt.Errorf("no recognised columns in header %q", strings.Join(header, ","))}
	}

	var rows []Row
	for i, rec := range pending {
		if !blank(rec) {
			rows = append(rows, toRow(pendingLines[i], rec, cols))
		}
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, toRow(line, rec, cols))
	}
	return rows, nil
}

// Parse reads a CSV file and converts its rows under the given policy.
func Parse(r io.Reader, policy Policy) (*Result, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	res := &Result{}
	for _, row := range rows {
		f, reason := row.fields(policy)
		if reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Line: row.Line, Reason: reason})
			continue
		}
		res.Records = append(res.Records, f)
	}
	return res, nil
}

func (row Row) fields(policy Policy) (records.Fields, string) {
	f := records.Fields{
		Location: row.Location,
		Date:     row.Date,
		Region:   row.Region,
	}
	var err error
	if f.Cases, err = parseCount(row.Cases, policy); err != nil {
		return f, "cases: " + err.Error()
	}
	if f.Deaths, err = parseCount(row.Deaths, policy); err != nil {
		return f, "deaths: " + err.Error()
	}
	f, err = f.Normalize()
	if err != nil {
		var verr *records.ValidationError
		if errors.As(err, &verr) {
			return f, verr.Field + ": " + verr.Reason
		}
		return f, err.Error()
	}
	return f, ""
}

// Lenient converts the row without rejecting anything: unparsable counts
// become zero and text fields are only trimmed. It is used for read-only
// snapshots where every row contributes to totals.
func (row Row) Lenient() records.CaseRecord {
	return records.CaseRecord{
		Location: strings.TrimSpace(row.Location),
		Cases:    LenientInt(row.Cases),
		Deaths:   LenientInt(row.Deaths),
		Date:     strings.TrimSpace(row.Date),
		Region:   strings.TrimSpace(row.Region),
	}
}

func parseCount(s string, policy Policy) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if policy == PolicyBestEffort {
		return LenientInt(s), nil
	}
	if s == "" {
		return 0, errors.New("missing value")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}

// LenientInt reads the leading integer of s and returns zero when there is
// none, so "12 cases" is 12 and "n/a" is 0.
func LenientInt(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func toRow(line int, rec []string, cols map[Field]int) Row {
	cell := func(f Field) string {
		idx := cols[f]
		if idx < 0 || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}
	return Row{
		Line:     line,
		Location: cell(FieldLocation),
		Cases:    cell(FieldCases),
		Deaths:   cell(FieldDeaths),
		Date:     cell(FieldDate),
		Region:   cell(FieldRegion),
	}
}

func isTagRow(rec []string) bool {
	seen := false
	for _, c := range rec {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !isTag(c) {
			return false
		}
		seen = true
	}
	return seen
}

func anyResolved(cols map[Field]int) bool {
	for _, idx := range cols {
		if idx >= 0 {
			return true
		}
	}
	return false
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func wrapCSVError(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &ParseError{Line: perr.Line, Err: perr.Err}
	}
	return &ParseError{Err: err}
}
