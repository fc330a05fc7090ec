package ingest

import "strings"

// Field names a canonical case record attribute.
type Field string

const (
	FieldLocation Field = "location"
	FieldCases    Field = "cases"
	FieldDeaths   Field = "deaths"
	FieldDate     Field = "date"
	FieldRegion   Field = "region"
)

// fieldOrder is the column resolution order; it also fixes the order in which
// missing-column reasons are reported.
var fieldOrder = []Field{FieldLocation, FieldCases, FieldDeaths, FieldDate, FieldRegion}

// Aliases lists, per canonical field, the header names accepted for it in
// priority order. Plain names come from the two historical document schemas;
// tags follow the Humanitarian Exchange Language (HXL) convention used by
// humanitarian data exchange exports. Tags match when the hashtag is equal and
// the alias attributes are a subset of the column attributes.
var Aliases = map[Field][]string{
	FieldLocation: {"location", "loc", "#loc+name", "#adm2+name", "#loc"},
	FieldCases:    {"cases", "#affected+infected", "#affected+cases"},
	FieldDeaths:   {"deaths", "#affected+killed", "#affected+dead"},
	FieldDate:     {"date", "#date+reported", "#date"},
	FieldRegion:   {"region", "regions", "#adm1+name", "#region+name"},
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "")
}

func isTag(h string) bool {
	return strings.HasPrefix(h, "#")
}

// headerMatches compares one normalized header cell against one alias.
func headerMatches(cell, alias string) bool {
	if !isTag(alias) {
		return cell == alias
	}
	if !isTag(cell) {
		return false
	}
	aliasParts := strings.Split(alias, "+")
	cellParts := strings.Split(cell, "+")
	if aliasParts[0] != cellParts[0] {
		return false
	}
	attrs := make(map[string]bool, len(cellParts)-1)
	for _, a := range cellParts[1:] {
		attrs[a] = true
	}
	for _, a := range aliasParts[1:] {
		if !attrs[a] {
			return false
		}
	}
	return true
}

// resolveColumns maps each field to a column index, or -1 when no column
// matches. headers may hold several rows describing the same columns (a name
// row followed by an HXL tag row); a column matches if any of its rows does.
func resolveColumns(headers ...[]string) map[Field]int {
	cols := make(map[Field]int, len(fieldOrder))
	taken := make(map[int]bool)
	for _, f := range fieldOrder {
		cols[f] = -1
		for _, alias := range Aliases[f] {
			if idx := findColumn(headers, alias, taken); idx >= 0 {
				cols[f] = idx
				taken[idx] = true
				break
			}
		}
	}
	return cols
}

func findColumn(headers [][]string, alias string, taken map[int]bool) int {
	for _, row := range headers {
		for i, cell := range row {
			if taken[i] {
				continue
			}
			if headerMatches(normalizeHeader(cell), alias) {
				return i
			}
		}
	}
	return -1
}
