package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denguewatch/denguewatch/internal/records"
)

func TestParseAcceptsCompleteRow(t *testing.T) {
	in := "location,cases,deaths,date,region\nCebu,10,2,2024-01-05,Visayas\n"
	res, err := Parse(strings.NewReader(in), PolicyRequireAll)
	require.NoError(t, err)
	require.Equal(t, 1, res.Accepted())
	assert.Empty(t, res.Rejected)
	assert.Equal(t, records.Fields{Location: "Cebu", Cases: 10, Deaths: 2, Date: "2024-01-05", Region: "Visayas"}, res.Records[0])
}

func TestParseRejectsRowMissingDate(t *testing.T) {
	in := "location,cases,deaths,date,region\n" +
		"Cebu,10,2,,Visayas\n" +
		"Manila,4,0,2024-01-06,NCR\n"
	res, err := Parse(strings.NewReader(in), PolicyRequireAll)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted())
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 2, res.Rejected[0].Line)
	assert.Contains(t, res.Rejected[0].Reason, "date")
	assert.Equal(t, "Manila", res.Records[0].Location)
}

func TestParseLegacyHeaders(t *testing.T) {
	in := "loc,cases,deaths,date,Region\n Quezon City , 8 , 1 ,2024-03-01, NCR \n"
	res, err := Parse(strings.NewReader(in), PolicyRequireAll)
	require.NoError(t, err)
	require.Equal(t, 1, res.Accepted())
	assert.Equal(t, "Quezon City", res.Records[0].Location)
	assert.Equal(t, "NCR", res.Records[0].Region)
}

func TestParseHXLTagRow(t *testing.T) {
	in := "Municipality,Infected,Killed,Reported,Province\n" +
		"#adm2+name,#affected+infected+f,#affected+killed,#date+reported,#adm1+name\n" +
		"Iloilo City,15,1,2024-04-02,Western Visayas\n"
	res, err := Parse(strings.NewReader(in), PolicyRequireAll)
	require.NoError(t, err)
	require.Equal(t, 1, res.Accepted())
	assert.Equal(t, records.Fields{Location: "Iloilo City", Cases: 15, Deaths: 1, Date: "2024-04-02", Region: "Western Visayas"}, res.Records[0])
}

func TestParseTagOnlyHeader(t *testing.T) {
	in := "#loc+name,#affected+infected,#affected+killed,#date,#adm1+name\nTacloban,3,0,2024-05-01,Eastern Visayas\n"
	res, err := Parse(strings.NewReader(in), PolicyRequireAll)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted())
}

func TestParsePolicies(t *testing.T) {
	in := "location,cases,deaths,date,region\nCebu,many,2,2024-01-05,Visayas\n"

	strict, err := Parse(strings.NewReader(in), PolicyRequireAll)
	require.NoError(t, err)
	assert.Equal(t, 0, strict.Accepted())
	require.Len(t, strict.Rejected, 1)
	assert.Contains(t, strict.Rejected[0].Reason, "cases")

	lenient, err := Parse(strings.NewReader(in), PolicyBestEffort)
	require.NoError(t, err)
	require.Equal(t, 1, lenient.Accepted())
	assert.Equal(t, 0, lenient.Records[0].Cases)
	assert.Equal(t, 2, lenient.Records[0].Deaths)
}

func TestParseSkipsBlankRows(t *testing.T) {
	in := "location,cases,deaths,date,region\n\n,,,,\nCebu,1,0,2024-01-05,Visayas\n"
	res, err := Parse(strings.NewReader(in), PolicyRequireAll)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted())
	assert.Empty(t, res.Rejected)
}

func TestParseStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"unterminated quote", "location,cases,deaths,date,region\n\"Cebu,1,0,2024-01-05,Visayas\n"},
		{"no recognised columns", "foo,bar\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(strings.NewReader(tt.in), PolicyRequireAll)
			assert.Nil(t, res)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.NotEmpty(t, perr.Error())
		})
	}
}

func TestParsePolicyNames(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyRequireAll, p)

	p, err = ParsePolicy("Best-Effort")
	require.NoError(t, err)
	assert.Equal(t, PolicyBestEffort, p)

	_, err = ParsePolicy("yolo")
	assert.Error(t, err)
}

func TestLenientInt(t *testing.T) {
	cases := map[string]int{
		"12":       12,
		" 7 ":      7,
		"12 cases": 12,
		"1,204":    1204,
		"-3":       -3,
		"n/a":      0,
		"":         0,
	}
	for in, want := range cases {
		assert.Equal(t, want, LenientInt(in), "input %q", in)
	}
}

func TestRowLenientKeepsIncompleteRows(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("Region,cases,deaths\n Visayas ,x,3\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rec := rows[0].Lenient()
	assert.Equal(t, "Visayas", rec.Region)
	assert.Equal(t, 0, rec.Cases)
	assert.Equal(t, 3, rec.Deaths)
}
