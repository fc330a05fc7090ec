package aggregate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denguewatch/denguewatch/internal/records"
)

func sample() []records.CaseRecord {
	return []records.CaseRecord{
		{ID: "1", Location: "Cebu", Cases: 10, Deaths: 2, Date: "2024-01-05", Region: "Visayas"},
		{ID: "2", Location: "Iloilo", Cases: 5, Deaths: 0, Date: "2024-01-07", Region: " Visayas "},
		{ID: "3", Location: "Manila", Cases: 20, Deaths: 1, Date: "2024-02-01", Region: "NCR"},
		{ID: "4", Location: "Unknown", Cases: 3, Deaths: 1, Date: "2024-02-02", Region: "  "},
	}
}

func TestSum(t *testing.T) {
	assert.Equal(t, Totals{Cases: 38, Deaths: 4}, Sum(sample()))
	assert.Equal(t, Totals{}, Sum(nil))
}

func TestByRegionTrimsKeys(t *testing.T) {
	got := ByRegion(sample())
	assert.Equal(t, map[string]Totals{
		"Visayas": {Cases: 15, Deaths: 2},
		"NCR":     {Cases: 20, Deaths: 1},
	}, got)
}

func TestResultsIgnoreOrder(t *testing.T) {
	recs := sample()
	wantSum := Sum(recs)
	wantRegions := ByRegion(recs)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]records.CaseRecord(nil), recs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, wantSum, Sum(shuffled))
		assert.Equal(t, wantRegions, ByRegion(shuffled))
	}
}

func TestByRegionKeysMatchDistinctRegions(t *testing.T) {
	recs := sample()
	distinct := map[string]bool{}
	for _, r := range recs {
		if k := RegionKey(r.Region); k != "" {
			distinct[k] = true
		}
	}
	got := ByRegion(recs)
	require.Len(t, got, len(distinct))
	for k := range distinct {
		assert.Contains(t, got, k)
	}
}

func TestSortedAndMax(t *testing.T) {
	by := ByRegion(sample())
	sorted := Sorted(by)
	require.Len(t, sorted, 2)
	assert.Equal(t, "NCR", sorted[0].Region)
	assert.Equal(t, "Visayas", sorted[1].Region)
	assert.Equal(t, 20, MaxCases(by))
	assert.Equal(t, 0, MaxCases(nil))
}
