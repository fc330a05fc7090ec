// Package chart projects case records into the parallel label and value
// sequences used by the line and bar views.
package chart

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/denguewatch/denguewatch/internal/records"
)

// Mode selects which part of the date a filter compares.
type Mode string

const (
	Monthly Mode = "monthly"
	Yearly  Mode = "yearly"
)

// Kind is the presentation a series is built for.
type Kind string

const (
	// Line compares cases and deaths over time.
	Line Kind = "line"
	// Bar compares cases and deaths per labelled entry.
	Bar Kind = "bar"
)

// ParseKind validates a chart kind path segment.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case Line, Bar:
		return k, nil
	default:
		return "", fmt.Errorf("unknown chart kind %q", s)
	}
}

// Filter narrows records before projection. A zero Month or Year means no
// selection was made and every record passes.
type Filter struct {
	Mode  Mode `json:"mode"`
	Month int  `json:"month,omitempty"`
	Year  int  `json:"year,omitempty"`
}

// Active reports whether the filter excludes anything.
func (f Filter) Active() bool {
	switch f.Mode {
	case Monthly:
		return f.Month != 0
	case Yearly:
		return f.Year != 0
	}
	return false
}

// Match reports whether a record with the given date passes the filter.
// Unparsable dates only pass an inactive filter.
func (f Filter) Match(date string) bool {
	if !f.Active() {
		return true
	}
	t, err := records.ParseDate(date)
	if err != nil {
		return false
	}
	if f.Mode == Monthly {
		return t.Month() == time.Month(f.Month)
	}
	return t.Year() == f.Year
}

// ParseFilter reads query parameters. Empty mode defaults to monthly and
// empty month or year leaves the filter unselected.
func ParseFilter(mode, month, year string) (Filter, error) {
	var f Filter
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case "", Monthly:
		f.Mode = Monthly
	case Yearly:
		f.Mode = Yearly
	default:
		return f, fmt.Errorf("unknown filter mode %q", mode)
	}
	if month = strings.TrimSpace(month); month != "" {
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			return f, fmt.Errorf("month must be between 1 and 12, got %q", month)
		}
		f.Month = m
	}
	if year = strings.TrimSpace(year); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil || y < 1 {
			return f, fmt.Errorf("invalid year %q", year)
		}
		f.Year = y
	}
	return f, nil
}

// Series holds the projected values. Labels, Cases and Deaths always have the
// same length and index i of each describes the same record.
type Series struct {
	Kind   Kind     `json:"kind"`
	Filter Filter   `json:"filter"`
	Labels []string `json:"labels"`
	Cases  []int    `json:"cases"`
	Deaths []int    `json:"deaths"`
}

// Len is the number of points in the series.
func (s Series) Len() int { return len(s.Labels) }

// Build filters recs and projects the survivors in date order. The input slice
// is not modified.
func Build(kind Kind, recs []records.CaseRecord, f Filter) Series {
	kept := make([]records.CaseRecord, 0, len(recs))
	for _, r := range recs {
		if f.Match(r.Date) {
			kept = append(kept, r)
		}
	}
	records.SortByDate(kept)

	s := Series{
		Kind:   kind,
		Filter: f,
		Labels: make([]string, 0, len(kept)),
		Cases:  make([]int, 0, len(kept)),
		Deaths: make([]int, 0, len(kept)),
	}
	for _, r := range kept {
		s.Labels = append(s.Labels, r.Date)
		s.Cases = append(s.Cases, r.Cases)
		s.Deaths = append(s.Deaths, r.Deaths)
	}
	return s
}
