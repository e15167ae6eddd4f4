// Package report writes the screening results: CSV exports, a JSON summary,
// an HTML report and the console summary.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/internal/modules/charts"
	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/aristath/carbonscreen/internal/modules/scoring"
	"github.com/aristath/carbonscreen/internal/modules/universe"
	"github.com/rs/zerolog"
)

// ErrWriteFailed wraps every output file error
var ErrWriteFailed = errors.New("report write failed")

// Output file names
const (
	FileScoredProjects   = "scored_projects.csv"
	FileFlagSummary      = "flag_summary.csv"
	FileSectorBreakdown  = "sector_breakdown.csv"
	FileCountryBreakdown = "country_breakdown.csv"
	FileVintageExposure  = "vintage_exposure.csv"
	FileDroppedRows      = "dropped_rows.csv"
	FileSummaryJSON      = "summary.json"
	FileReportHTML       = "report.html"
)

// RunInfo describes where the data came from and how it was processed
type RunInfo struct {
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	ReferenceDate time.Time `json:"reference_date"`
	Source        string    `json:"source"`
	FetchedAt     time.Time `json:"fetched_at"`
	FromCache     bool      `json:"from_cache"`
	Stale         bool      `json:"stale_cache"`
	Parsed        int       `json:"rows_parsed"`
	Dropped       int       `json:"rows_dropped"`
	Filtered      int       `json:"rows_filtered"`
	Scored        int       `json:"projects_scored"`
}

// Methodology documents the rules the scores were computed with
type Methodology struct {
	Dimensions []scoring.MethodologyRow `json:"dimensions"`
	Tiers      scoring.TierCutoffs      `json:"tier_cutoffs"`
	Flags      []risk.RuleDescription   `json:"flags"`
}

// NewMethodology documents a rule set and its flag thresholds
func NewMethodology(rules scoring.Rules, thresholds risk.Thresholds) Methodology {
	return Methodology{
		Dimensions: rules.Describe(),
		Tiers:      rules.Tiers,
		Flags:      thresholds.Describe(),
	}
}

// Input is everything a report is built from
type Input struct {
	Run         RunInfo
	Projects    []domain.ScoredProject
	Dropped     []universe.DroppedRow
	Flags       []risk.FlagStat
	Summary     portfolio.Summary
	Methodology Methodology
	Charts      []charts.Artifact
}

// Artifact is one written output file
type Artifact struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type summaryDocument struct {
	Run         RunInfo           `json:"run"`
	Portfolio   portfolio.Summary `json:"portfolio"`
	Flags       []risk.FlagStat   `json:"flag_summary"`
	Methodology Methodology       `json:"methodology"`
	Charts      []charts.Artifact `json:"charts"`
}

// Service writes report files into a directory
type Service struct {
	dir string
	log zerolog.Logger
}

// NewService creates a new report service writing into dir
func NewService(dir string, log zerolog.Logger) *Service {
	return &Service{
		dir: dir,
		log: log.With().Str("service", "report").Logger(),
	}
}

// Dir returns the output directory
func (s *Service) Dir() string {
	return s.dir
}

// WriteAll writes every report file. It stops at the first failure and
// returns the files written so far; those are left in place.
func (s *Service) WriteAll(in Input) ([]Artifact, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWriteFailed, s.dir, err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{FileScoredProjects, func(w io.Writer) error { return WriteScoredProjects(w, in.Projects) }},
		{FileFlagSummary, func(w io.Writer) error { return WriteFlagSummary(w, in.Flags) }},
		{FileSectorBreakdown, func(w io.Writer) error { return WriteBreakdown(w, "project_type", in.Summary.Sectors) }},
		{FileCountryBreakdown, func(w io.Writer) error { return WriteBreakdown(w, "country", in.Summary.Countries) }},
		{FileVintageExposure, func(w io.Writer) error { return WriteVintageExposure(w, in.Summary.Vintages) }},
		{FileDroppedRows, func(w io.Writer) error { return WriteDroppedRows(w, in.Dropped) }},
		{FileSummaryJSON, func(w io.Writer) error { return writeSummaryJSON(w, in) }},
		{FileReportHTML, func(w io.Writer) error { return WriteHTML(w, s.htmlDocument(in)) }},
	}

	artifacts := make([]Artifact, 0, len(files))
	for _, f := range files {
		path := filepath.Join(s.dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			s.log.Error().Err(err).Str("file", f.name).Msg("Failed to write report file")
			return artifacts, fmt.Errorf("%w: %s: %w", ErrWriteFailed, f.name, err)
		}
		artifacts = append(artifacts, Artifact{Name: f.name, Path: path})
		s.log.Debug().Str("file", path).Msg("Wrote report file")
	}

	s.log.Info().Int("files", len(artifacts)).Str("dir", s.dir).Msg("Report written")
	return artifacts, nil
}

// htmlDocument links charts relative to the report directory
func (s *Service) htmlDocument(in Input) Document {
	links := make([]ChartLink, 0, len(in.Charts))
	for _, c := range in.Charts {
		href := c.Path
		if rel, err := filepath.Rel(s.dir, c.Path); err == nil {
			href = filepath.ToSlash(rel)
		}
		links = append(links, ChartLink{Title: c.Title, Href: href})
	}
	return Document{
		Run:         in.Run,
		Summary:     in.Summary,
		Flags:       in.Flags,
		Methodology: in.Methodology,
		Charts:      links,
		Dropped:     len(in.Dropped),
	}
}

func writeSummaryJSON(w io.Writer, in Input) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaryDocument{
		Run:         in.Run,
		Portfolio:   in.Summary,
		Flags:       in.Flags,
		Methodology: in.Methodology,
		Charts:      in.Charts,
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
