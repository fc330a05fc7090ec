package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/denguewatch/denguewatch/assets"
	"github.com/denguewatch/denguewatch/internal/api"
	"github.com/denguewatch/denguewatch/internal/audit"
	"github.com/denguewatch/denguewatch/internal/dashboard"
	"github.com/denguewatch/denguewatch/internal/geo"
	"github.com/denguewatch/denguewatch/internal/logging"
	"github.com/denguewatch/denguewatch/internal/metrics"
	"github.com/denguewatch/denguewatch/internal/records"
)

type CLISuite struct {
	suite.Suite
	ts *httptest.Server
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.T().Setenv("HOME", s.T().TempDir())
	s.T().Setenv(serverEnv, "")

	bounds, err := geo.Parse(assets.Regions)
	s.Require().NoError(err)
	log := logging.Nop()
	srv := api.NewServer(api.Deps{
		Store:      records.NewMemory(),
		State:      dashboard.NewState(),
		Boundaries: bounds,
		Activity:   audit.NewLogger(audit.NewMemorySink(), log),
		Metrics:    metrics.New(),
		Log:        log,
	}, api.Options{PageSize: 5})
	s.Require().NoError(srv.Loader().Refresh(context.Background()))
	s.ts = httptest.NewServer(srv.Handler())
}

func (s *CLISuite) TearDownTest() {
	s.ts.Close()
}

// run executes the CLI and returns stdout.
func (s *CLISuite) run(args ...string) (string, error) {
	return s.runWithInput("", args...)
}

func (s *CLISuite) runWithInput(stdin string, args ...string) (string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(append([]string{"--server", s.ts.URL}, args...))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), err
}

func (s *CLISuite) add(location, region string, cases int) records.CaseRecord {
	out, err := s.run("-o", "json", "records", "add",
		"--location", location, "--cases", strconv.Itoa(cases), "--deaths", "0",
		"--date", "2024-03-01", "--region", region)
	s.Require().NoError(err)
	var rec records.CaseRecord
	s.Require().NoError(json.Unmarshal([]byte(out), &rec))
	return rec
}

func (s *CLISuite) TestAddListUpdateDelete() {
	rec := s.add("Cebu City", "Central Visayas", 12)
	s.NotEmpty(rec.ID)
	s.add("Manila", "National Capital Region", 30)

	out, err := s.run("-o", "json", "records", "list", "--search", "CEBU")
	s.Require().NoError(err)
	var page dashboard.Page
	s.Require().NoError(json.Unmarshal([]byte(out), &page))
	s.Require().Len(page.Items, 1)
	s.Equal("Cebu City", page.Items[0].Location)

	out, err = s.run("-o", "json", "records", "update", string(rec.ID),
		"--location", "Cebu City", "--cases", "15", "--deaths", "1",
		"--date", "2024-03-02", "--region", "Central Visayas")
	s.Require().NoError(err)
	var updated records.CaseRecord
	s.Require().NoError(json.Unmarshal([]byte(out), &updated))
	s.Equal(15, updated.Cases)

	_, err = s.run("records", "delete", string(rec.ID))
	s.Require().NoError(err)

	_, err = s.run("records", "delete", string(rec.ID))
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(404, apiErr.StatusCode)
}

func (s *CLISuite) TestAddValidationError() {
	_, err := s.run("records", "add",
		"--location", "Cebu", "--cases", "-1", "--deaths", "0",
		"--date", "2024-03-01", "--region", "Central Visayas")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(422, apiErr.StatusCode)
	s.Equal("cases", apiErr.Field)
}

func (s *CLISuite) TestAddRequiresAllFields() {
	_, err := s.run("records", "add", "--location", "Cebu")
	s.Error(err)
}

func (s *CLISuite) TestTableOutput() {
	s.add("Davao City", "Davao Region", 9)
	out, err := s.run("-o", "table", "records", "list")
	s.Require().NoError(err)
	s.Contains(out, "LOCATION")
	s.Contains(out, "Davao City")
	s.Contains(out, "page 1 of 1 (1 records)")
}

func (s *CLISuite) TestImportFileAndStdin() {
	path := filepath.Join(s.T().TempDir(), "cases.csv")
	csv := "loc,cases,deaths,date,Region\nIloilo,5,0,2024-02-01,Western Visayas\nbad,x,0,2024-02-01,Western Visayas\n"
	s.Require().NoError(os.WriteFile(path, []byte(csv), 0o600))

	out, err := s.run("-o", "json", "import", path, "--policy", "lenient", "--dry-run")
	s.Require().NoError(err)
	var res ImportResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &res))
	s.True(res.DryRun)
	s.Equal(2, res.Accepted)
	s.Equal(0, res.Rejected)

	out, err = s.runWithInput(csv, "-o", "table", "import", "-", "--policy", "strict")
	s.Require().NoError(err)
	s.Contains(out, "Imported 1 rows, rejected 1")
	s.Contains(out, "cases:")

	_, err = s.run("import", path, "--policy", "sometimes")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(400, apiErr.StatusCode)

	out, err = s.run("-o", "json", "stats", "totals")
	s.Require().NoError(err)
	var totals TotalsResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &totals))
	s.Equal(1, totals.Records)
	s.Equal(5, totals.Cases)
}

func (s *CLISuite) TestRegionsMarksUnmatched() {
	s.add("Manila", "National Capital Region", 30)
	s.add("Atlantis", "Lost Region", 2)

	out, err := s.run("-o", "table", "stats", "regions")
	s.Require().NoError(err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	s.Require().Len(lines, 3)
	s.Contains(lines[1], "National Capital Region")
	s.Contains(lines[2], "not on map")
}

func (s *CLISuite) TestChart() {
	s.add("Manila", "National Capital Region", 30)

	out, err := s.run("-o", "json", "chart", "bar", "--mode", "yearly", "--year", "2024")
	s.Require().NoError(err)
	var series struct {
		Labels []string `json:"labels"`
		Cases  []int    `json:"cases"`
	}
	s.Require().NoError(json.Unmarshal([]byte(out), &series))
	s.Equal([]string{"2024-03-01"}, series.Labels)
	s.Equal([]int{30}, series.Cases)

	_, err = s.run("chart", "pie")
	s.Error(err)

	_, err = s.run("chart", "line", "--mode", "monthly", "--month", "13", "--year", "2024")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(400, apiErr.StatusCode)
}

func (s *CLISuite) TestDoctor() {
	s.add("Manila", "National Capital Region", 30)
	var out, errOut bytes.Buffer
	err := runDoctor(context.Background(), &out, &errOut, NewClient(s.ts.URL))
	s.Require().NoError(err)
	s.Contains(out.String(), "1 loaded")
	s.Contains(errOut.String(), "All checks passed")
}

func TestCheckSync(t *testing.T) {
	c := checkSync(&HealthResponse{Records: 3})
	assert.True(t, c.ok)
	assert.False(t, c.warn)

	c = checkSync(&HealthResponse{Records: 3, Store: &StoreCounts{Records: 3}})
	assert.True(t, c.ok)
	assert.False(t, c.warn)

	c = checkSync(&HealthResponse{Records: 2, Store: &StoreCounts{Records: 3}})
	assert.True(t, c.warn)
	assert.Contains(t, c.detail, "records refresh")
}

func TestDoctorUnreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	var out, errOut bytes.Buffer
	err := runDoctor(context.Background(), &out, &errOut, NewClient(url))
	require.Error(t, err)
	assert.Contains(t, out.String(), "cannot connect")
}

func TestConfigSetServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(serverEnv, "")

	server, err := resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, defaultServer, server)

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"config", "set-server", "https://dengue.example.org"})
	require.NoError(t, root.Execute())

	server, err = resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "https://dengue.example.org", server)

	t.Setenv(serverEnv, "http://env:8080")
	server, err = resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "http://env:8080", server)

	server, err = resolveServer("http://flag:1")
	require.NoError(t, err)
	assert.Equal(t, "http://flag:1", server)

	root = NewRootCmd()
	root.SetArgs([]string{"config", "set-server", "not a url"})
	assert.Error(t, root.Execute())
}

func TestWantJSON(t *testing.T) {
	var buf bytes.Buffer
	asJSON, err := wantJSON("auto", &buf)
	require.NoError(t, err)
	assert.True(t, asJSON)

	asJSON, err = wantJSON("table", &buf)
	require.NoError(t, err)
	assert.False(t, asJSON)

	_, err = wantJSON("yaml", &buf)
	assert.Error(t, err)
}
