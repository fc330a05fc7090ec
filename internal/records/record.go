// Package records defines the dengue case record and the store contract that
// every persistence backend implements.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format stored and returned.
const DateLayout = "2006-01-02"

// ID identifies a persisted record. It is assigned by the store on creation.
type ID string

// CaseRecord is one observation of dengue cases and deaths for a location,
// region and date.
type CaseRecord struct {
	ID       ID     `json:"id"`
	Location string `json:"location"`
	Cases    int    `json:"cases"`
	Deaths   int    `json:"deaths"`
	Date     string `json:"date"`
	Region   string `json:"region"`
}

// Fields returns the value fields of the record without its id.
func (r CaseRecord) Fields() Fields {
	return Fields{
		Location: r.Location,
		Cases:    r.Cases,
		Deaths:   r.Deaths,
		Date:     r.Date,
		Region:   r.Region,
	}
}

// Fields is the payload for creating or updating a record.
type Fields struct {
	Location string `json:"location"`
	Cases    int    `json:"cases"`
	Deaths   int    `json:"deaths"`
	Date     string `json:"date"`
	Region   string `json:"region"`
}

// WithID builds a record from the fields and a store-assigned id.
func (f Fields) WithID(id ID) CaseRecord {
	return CaseRecord{
		ID:       id,
		Location: f.Location,
		Cases:    f.Cases,
		Deaths:   f.Deaths,
		Date:     f.Date,
		Region:   f.Region,
	}
}

// DeathsExceedCases reports whether the record claims more deaths than cases.
// The condition is accepted on write and only surfaced as a warning.
func (f Fields) DeathsExceedCases() bool {
	return f.Deaths > f.Cases
}

// MaxCount is the largest cases or deaths value a store column can hold.
const MaxCount = math.MaxInt32

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("invalid record")

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// Normalize trims free-text fields and rewrites the date into DateLayout.
// It returns a ValidationError when the fields cannot be stored.
func (f Fields) Normalize() (Fields, error) {
	f.Location = strings.TrimSpace(f.Location)
	f.Region = strings.TrimSpace(f.Region)
	f.Date = strings.TrimSpace(f.Date)

	if f.Location == "" {
		return f, &ValidationError{Field: "location", Reason: "must not be empty"}
	}
	if f.Cases < 0 {
		return f, &ValidationError{Field: "cases", Reason: "must not be negative"}
	}
	if f.Cases > MaxCount {
		return f, &ValidationError{Field: "cases", Reason: fmt.Sprintf("must not exceed %d", MaxCount)}
	}
	if f.Deaths < 0 {
		return f, &ValidationError{Field: "deaths", Reason: "must not be negative"}
	}
	if f.Deaths > MaxCount {
		return f, &ValidationError{Field: "deaths", Reason: fmt.Sprintf("must not exceed %d", MaxCount)}
	}
	if f.Date == "" {
		return f, &ValidationError{Field: "date", Reason: "must not be empty"}
	}
	d, err := ParseDate(f.Date)
	if err != nil {
		return f, &ValidationError{Field: "date", Reason: err.Error()}
	}
	f.Date = d.Format(DateLayout)
	if f.Region == "" {
		return f, &ValidationError{Field: "region", Reason: "must not be empty"}
	}
	return f, nil
}

// Validate reports whether the fields are complete enough to store.
func (f Fields) Validate() error {
	_, err := f.Normalize()
	return err
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate accepts ISO 8601 dates plus the slash formats spreadsheets
// commonly export.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// legacyFields mirrors the historical document shapes: "loc" and "Region"
// from the list view, "regions" from the add form, and counts stored as
// strings by the inline editor.
type legacyFields struct {
	Location *string `json:"location"`
	Loc      *string `json:"loc"`
	Cases    flexInt `json:"cases"`
	Deaths   flexInt `json:"deaths"`
	Date     string  `json:"date"`
	Region   *string `json:"region"`
	RegionUC *string `json:"Region"`
	Regions  *string `json:"regions"`
}

// UnmarshalJSON accepts the canonical schema and the legacy aliases.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw legacyFields
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*f = Fields{
		Location: firstNonNil(raw.Location, raw.Loc),
		Cases:    int(raw.Cases),
		Deaths:   int(raw.Deaths),
		Date:     raw.Date,
		Region:   firstNonNil(raw.Region, raw.RegionUC, raw.Regions),
	}
	return nil
}

func firstNonNil(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

// flexInt decodes a JSON number or a numeric string.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = 0
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err == nil {
		*n = flexInt(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("count must be a number: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*n = 0
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("count must be a number, got %q", s)
	}
	*n = flexInt(i)
	return nil
}
