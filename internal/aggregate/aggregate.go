// Package aggregate reduces case records into grand totals and per-region
// totals. Results are recomputed from scratch on every call and depend only on
// the multiset of input records, never on their order.
package aggregate

import (
	"sort"
	"strings"

	"github.com/denguewatch/denguewatch/internal/records"
)

// Totals is a pair of summed counts.
type Totals struct {
	Cases  int `json:"cases"`
	Deaths int `json:"deaths"`
}

// Add returns the elementwise sum.
func (t Totals) Add(o Totals) Totals {
	return Totals{Cases: t.Cases + o.Cases, Deaths: t.Deaths + o.Deaths}
}

// Sum returns the grand totals of all records.
func Sum(recs []records.CaseRecord) Totals {
	var t Totals
	for _, r := range recs {
		t.Cases += r.Cases
		t.Deaths += r.Deaths
	}
	return t
}

// RegionKey is the join key used for a record's region.
func RegionKey(region string) string {
	return strings.TrimSpace(region)
}

// ByRegion sums records per trimmed region. Records with an empty region
// still count toward Sum but have no entry here.
func ByRegion(recs []records.CaseRecord) map[string]Totals {
	out := make(map[string]Totals)
	for _, r := range recs {
		key := RegionKey(r.Region)
		if key == "" {
			continue
		}
		out[key] = out[key].Add(Totals{Cases: r.Cases, Deaths: r.Deaths})
	}
	return out
}

// RegionTotals is one entry of a sorted per-region listing.
type RegionTotals struct {
	Region string `json:"region"`
	Totals
}

// Sorted lists the per-region totals by descending cases, then region name.
func Sorted(byRegion map[string]Totals) []RegionTotals {
	out := make([]RegionTotals, 0, len(byRegion))
	for region, t := range byRegion {
		out = append(out, RegionTotals{Region: region, Totals: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cases != out[j].Cases {
			return out[i].Cases > out[j].Cases
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// MaxCases is the largest per-region case count, or zero for an empty map.
func MaxCases(byRegion map[string]Totals) int {
	max := 0
	for _, t := range byRegion {
		if t.Cases > max {
			max = t.Cases
		}
	}
	return max
}
