package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/aristath/carbonscreen/internal/modules/universe"
)

// ScoredProjectsHeader is the column order of scored_projects.csv: the
// registry columns, then the six sub-scores, composite, tier and flags.
// Scores are written at full precision. Registry columns the parser does not
// map are not carried through.
var ScoredProjectsHeader = []string{
	"project_id", "name", "proponent", "project_type", "project_type_raw", "methodology", "status",
	"country", "region", "registration_date", "crediting_start", "crediting_end", "vintage_years",
	"total_issued", "total_retired", "total_buffer_pool", "estimated_annual_reductions",
	"pdd", "validation_report", "monitoring_report", "verification_report", "source_line",
	"vintage_score", "issuance_retirement_score", "project_type_score", "transparency_score",
	"additionality_score", "geography_score", "cqi", "quality_tier", "flags", "flag_count", "max_severity",
}

// WriteScoredProjects writes one row per project in the given order
func WriteScoredProjects(w io.Writer, projects []domain.ScoredProject) error {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		r := p.Record
		row := []string{
			r.ID, r.Name, r.Proponent, string(r.Type), r.RawType, r.Methodology, r.Status,
			r.Country, r.Region, formatDate(r.RegistrationDate), formatDate(r.CreditingStart), formatDate(r.CreditingEnd),
			joinInts(r.VintageYears),
			formatInt(r.Issued), formatInt(r.Retired), formatInt(r.BufferPool), formatInt(r.EstimatedAnnual),
			formatBool(r.Docs.ProjectDesign), formatBool(r.Docs.ValidationReport),
			formatBool(r.Docs.MonitoringReport), formatBool(r.Docs.VerificationReport),
			strconv.Itoa(r.SourceLine),
		}
		for _, d := range domain.Dimensions {
			row = append(row, formatFloat(p.Scores.Get(d)))
		}
		row = append(row,
			formatFloat(p.Composite),
			string(p.Tier),
			joinFlags(p.Flags),
			strconv.Itoa(len(p.Flags)),
			string(p.MaxSeverity),
		)
		rows = append(rows, row)
	}
	return writeCSV(w, ScoredProjectsHeader, rows)
}

// WriteFlagSummary writes flag incidence, most frequent first
func WriteFlagSummary(w io.Writer, stats []risk.FlagStat) error {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			string(s.Code), s.Label, string(s.Severity), strconv.Itoa(s.Projects), formatFloat(s.PctOfPortfolio),
		})
	}
	return writeCSV(w, []string{"flag_code", "label", "severity", "project_count", "pct_of_portfolio"}, rows)
}

// WriteBreakdown writes a sector or country breakdown
func WriteBreakdown(w io.Writer, keyColumn string, breakdown []portfolio.Breakdown) error {
	rows := make([][]string, 0, len(breakdown))
	for _, b := range breakdown {
		rows = append(rows, []string{
			b.Key,
			strconv.Itoa(b.Projects),
			formatInt(b.Issued),
			formatInt(b.Retired),
			formatFloat(b.ShareOfIssued),
			formatFloat(b.MeanCQI),
			strconv.Itoa(b.Flagged),
			formatFloat(b.FlagIncidence),
		})
	}
	header := []string{keyColumn, "projects", "total_issued", "total_retired", "share_of_issued_pct",
		"mean_cqi", "flagged_projects", "flag_incidence_pct"}
	return writeCSV(w, header, rows)
}

// WriteVintageExposure writes issued volume per vintage year
func WriteVintageExposure(w io.Writer, buckets []portfolio.VintageBucket) error {
	rows := make([][]string, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, []string{b.Label, formatFloat(b.Issued), formatFloat(b.Share), strconv.Itoa(b.Projects)})
	}
	return writeCSV(w, []string{"vintage", "issued", "share_pct", "projects"}, rows)
}

// WriteDroppedRows writes the rows the loader rejected
func WriteDroppedRows(w io.Writer, dropped []universe.DroppedRow) error {
	rows := make([][]string, 0, len(dropped))
	for _, d := range dropped {
		rows = append(rows, []string{strconv.Itoa(d.Line), d.ID, d.Reason})
	}
	return writeCSV(w, []string{"line", "project_id", "reason"}, rows)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	return cw.WriteAll(rows)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ";")
}

func joinFlags(flags []domain.FlagCode) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ";")
}
