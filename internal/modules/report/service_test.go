package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/internal/modules/charts"
	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/aristath/carbonscreen/internal/modules/scoring"
	"github.com/aristath/carbonscreen/internal/modules/universe"
	testingpkg "github.com/aristath/carbonscreen/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInput(t *testing.T, dir string) Input {
	t.Helper()

	scorer, err := scoring.NewScorer(scoring.DefaultRules(), testingpkg.ReferenceDate, zerolog.Nop())
	require.NoError(t, err)
	detector, err := risk.NewDetector(risk.DefaultThresholds(), scorer, testingpkg.ReferenceDate, zerolog.Nop())
	require.NoError(t, err)

	records := []domain.ProjectRecord{testingpkg.NewHighRiskRecord(), testingpkg.NewHighQualityRecord()}
	records[0].Issued = 1_250_000
	projects := detector.ApplyAll(scorer.ScoreAll(records))
	summary := portfolio.NewAggregator(portfolio.DefaultOptions(), zerolog.Nop()).Summarize(projects)

	return Input{
		Run: RunInfo{
			RunID:         "run-abc",
			GeneratedAt:   time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC),
			ReferenceDate: testingpkg.ReferenceDate,
			Source:        "sample",
			Parsed:        3,
			Dropped:       1,
			Scored:        2,
		},
		Projects:    projects,
		Dropped:     []universe.DroppedRow{{Line: 4, ID: "VCS-9", Reason: "credits issued: non-numeric value \"n/a\""}},
		Flags:       risk.Summary(projects),
		Summary:     summary,
		Methodology: NewMethodology(scorer.Rules(), detector.Thresholds()),
		Charts: []charts.Artifact{
			{Name: charts.FileDistribution, Title: "CQI distribution by tier", Path: filepath.Join(dir, "charts", charts.FileDistribution)},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(dir, zerolog.Nop())

	artifacts, err := svc.WriteAll(newTestInput(t, dir))
	require.NoError(t, err)
	require.Len(t, artifacts, 8)

	for _, a := range artifacts {
		info, err := os.Stat(a.Path)
		require.NoError(t, err, a.Name)
		assert.Greater(t, info.Size(), int64(0), a.Name)
	}
}

func TestWriteAll_ScoredProjectsCSV(t *testing.T) {
	dir := t.TempDir()
	_, err := NewService(dir, zerolog.Nop()).WriteAll(newTestInput(t, dir))
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(dir, FileScoredProjects))
	require.Len(t, rows, 3)
	assert.Equal(t, ScoredProjectsHeader, rows[0])

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	redd := rows[1]
	assert.Equal(t, "VCS-1001", redd[col["project_id"]])
	assert.Equal(t, "1250000", redd[col["total_issued"]])
	assert.Equal(t, "2012", redd[col["vintage_years"]])
	assert.Contains(t, redd[col["flags"]], string(risk.FlagLowDemand))
	assert.Contains(t, redd[col["flags"]], string(risk.FlagAgingCredits))
	assert.Equal(t, string(domain.SeverityHigh), redd[col["max_severity"]])

	clean := rows[2]
	assert.Equal(t, "VCS-2002", clean[col["project_id"]])
	assert.Equal(t, "", clean[col["flags"]])
	assert.Equal(t, "0", clean[col["flag_count"]])
	assert.Equal(t, "2022-06-01", clean[col["registration_date"]])
}

func TestWriteScoredProjects_ScorePrecision(t *testing.T) {
	in := newTestInput(t, t.TempDir())
	var buf bytes.Buffer
	require.NoError(t, WriteScoredProjects(&buf, in.Projects))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(in.Projects)+1)

	first := 0
	for i, name := range rows[0] {
		if name == "vintage_score" {
			first = i
		}
	}
	require.NotZero(t, first)

	for i, p := range in.Projects {
		row := rows[i+1]
		for j, d := range domain.Dimensions {
			got, err := strconv.ParseFloat(row[first+j], 64)
			require.NoError(t, err)
			assert.Equal(t, p.Scores.Get(d), got, "%s %s", p.Record.ID, d)
		}
		cqi, err := strconv.ParseFloat(row[first+len(domain.Dimensions)], 64)
		require.NoError(t, err)
		assert.Equal(t, p.Composite, cqi, p.Record.ID)
	}
}

func TestWriteAll_ScoredProjectsReparse(t *testing.T) {
	in := newTestInput(t, t.TempDir())
	var buf bytes.Buffer
	require.NoError(t, WriteScoredProjects(&buf, in.Projects))

	parsed, err := universe.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, parsed.Records, len(in.Projects))
	for i, r := range parsed.Records {
		want := in.Projects[i].Record
		assert.Equal(t, want.ID, r.ID)
		assert.Equal(t, want.Issued, r.Issued)
		assert.Equal(t, want.Retired, r.Retired)
		assert.Equal(t, want.Type, r.Type)
		assert.Equal(t, want.VintageYears, r.VintageYears)
	}
}

func TestWriteAll_DroppedAndFlagSummary(t *testing.T) {
	dir := t.TempDir()
	_, err := NewService(dir, zerolog.Nop()).WriteAll(newTestInput(t, dir))
	require.NoError(t, err)

	dropped := readCSV(t, filepath.Join(dir, FileDroppedRows))
	require.Len(t, dropped, 2)
	assert.Equal(t, []string{"line", "project_id", "reason"}, dropped[0])
	assert.Equal(t, "4", dropped[1][0])
	assert.Contains(t, dropped[1][2], "non-numeric")

	flags := readCSV(t, filepath.Join(dir, FileFlagSummary))
	require.Greater(t, len(flags), 1)
	assert.Equal(t, "flag_code", flags[0][0])
	assert.Equal(t, "1", flags[1][3], "one project carries each flag")
	assert.Equal(t, "50", flags[1][4])
}

func TestWriteAll_SummaryJSON(t *testing.T) {
	dir := t.TempDir()
	_, err := NewService(dir, zerolog.Nop()).WriteAll(newTestInput(t, dir))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, FileSummaryJSON))
	require.NoError(t, err)

	var doc struct {
		Run       RunInfo `json:"run"`
		Portfolio struct {
			Projects int `json:"projects"`
		} `json:"portfolio"`
		Methodology struct {
			Dimensions []scoring.MethodologyRow `json:"dimensions"`
			Flags      []risk.RuleDescription   `json:"flags"`
		} `json:"methodology"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-abc", doc.Run.RunID)
	assert.Equal(t, 2, doc.Portfolio.Projects)
	assert.Len(t, doc.Methodology.Dimensions, len(domain.Dimensions))
	assert.Len(t, doc.Methodology.Flags, len(risk.Catalogue))

	weights := 0
	for _, d := range doc.Methodology.Dimensions {
		weights += d.Weight
	}
	assert.Equal(t, 100, weights)
}

func TestWriteAll_HTMLReport(t *testing.T) {
	dir := t.TempDir()
	_, err := NewService(dir, zerolog.Nop()).WriteAll(newTestInput(t, dir))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, FileReportHTML))
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "run-abc")
	assert.Contains(t, html, "Methodology")
	assert.Contains(t, html, `src="charts/cqi_distribution.html"`)
	assert.Contains(t, html, "1,250,000")
	assert.Contains(t, html, "VCS-2002")
	assert.Contains(t, html, string(risk.FlagLowDemand))
}

func TestWriteAll_FailureKeepsEarlierFiles(t *testing.T) {
	dir := t.TempDir()
	// a directory where a file should go makes the second write fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, FileFlagSummary), 0755))

	artifacts, err := NewService(dir, zerolog.Nop()).WriteAll(newTestInput(t, dir))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Contains(t, err.Error(), FileFlagSummary)

	require.Len(t, artifacts, 1)
	assert.FileExists(t, filepath.Join(dir, FileScoredProjects))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, newTestInput(t, t.TempDir())))
	out := buf.String()

	assert.Contains(t, out, "run run-abc")
	assert.Contains(t, out, "1,250,500 tCO2e")
	assert.Contains(t, out, "Top 2 by CQI")
	assert.Contains(t, out, "Bottom 2 by CQI")
	assert.Contains(t, out, "VCS-1001")
	assert.Contains(t, out, "Most frequent red flags")
	assert.True(t, strings.Contains(out, string(risk.FlagLowDemand)))
}

func TestPrintSummary_NoFlags(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, Input{Run: RunInfo{RunID: "r"}}))
	assert.Contains(t, buf.String(), "No red flags raised.")
}
