// Package pipeline runs one screening pass: load, score, flag, aggregate,
// then write charts, reports and the console summary.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aristath/carbonscreen/internal/di"
	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/internal/modules/charts"
	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/report"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/aristath/carbonscreen/internal/modules/universe"
	"github.com/aristath/carbonscreen/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result is everything one run produced. Scores are kept even when writing
// the outputs failed.
type Result struct {
	RunID    string
	Load     *universe.LoadResult
	Projects []domain.ScoredProject
	Flags    []risk.FlagStat
	Summary  portfolio.Summary
	Charts   []charts.Artifact
	Reports  []report.Artifact
}

// Pipeline runs screening passes against a wired container
type Pipeline struct {
	c   *di.Container
	now func() time.Time
	log zerolog.Logger
}

// New creates a pipeline
func New(c *di.Container, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		c:   c,
		now: time.Now,
		log: log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one screening pass and prints the console summary to out.
// Load failures return a nil Result. Output failures wrap report.ErrWriteFailed
// and return the computed Result alongside the error.
func (p *Pipeline) Run(ctx context.Context, out io.Writer) (*Result, error) {
	cfg := p.c.Config
	runID := uuid.New().String()
	log := p.log.With().Str("run_id", runID).Logger()
	started := p.now().UTC()

	if err := p.c.CleanupJob.Run(); err != nil {
		log.Warn().Err(err).Str("job", p.c.CleanupJob.Name()).Msg("Cache cleanup failed, continuing")
	}

	log.Info().Str("source", cfg.Source).Msg("Step 1/4: loading project universe")
	timer := utils.NewTimer("load", log)
	loaded, err := p.c.Loader.Load(ctx, universe.LoadOptions{
		Source:     cfg.Source,
		RunID:      runID,
		NoCache:    cfg.NoCache,
		AllowStale: cfg.AllowStale,
		Filters: universe.FilterOptions{
			Statuses:     cfg.Statuses,
			ProjectTypes: cfg.ProjectTypes,
			MinCredits:   cfg.MinCredits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfg.Source, err)
	}
	timer.Stop(len(loaded.Records))
	if len(loaded.Records) == 0 {
		log.Warn().Int("filtered", loaded.Filtered).Msg("No projects left after filters")
	}

	log.Info().Int("records", len(loaded.Records)).Msg("Step 2/4: scoring projects")
	timer = utils.NewTimer("score", log)
	scored := p.c.Scorer.ScoreAll(loaded.Records)
	timer.Stop(len(scored))

	log.Info().Msg("Step 3/4: detecting red flags")
	timer = utils.NewTimer("flags", log)
	projects := p.c.Detector.ApplyAll(scored)
	flagStats := risk.Summary(projects)
	timer.Stop(len(projects))

	log.Info().Msg("Step 4/4: aggregating portfolio")
	summary := p.c.Aggregator.Summarize(projects)
	log.Info().
		Float64("cqi_min", summary.Distribution.Min).
		Float64("cqi_max", summary.Distribution.Max).
		Int("flagged", summary.Flagged).
		Msg("Scores computed")

	result := &Result{
		RunID:    runID,
		Load:     loaded,
		Projects: projects,
		Flags:    flagStats,
		Summary:  summary,
	}

	input := report.Input{
		Run: report.RunInfo{
			RunID:         runID,
			GeneratedAt:   started,
			ReferenceDate: p.c.Reference,
			Source:        loaded.Source,
			FetchedAt:     loaded.FetchedAt,
			FromCache:     loaded.FromCache,
			Stale:         loaded.Stale,
			Parsed:        len(loaded.Records) + loaded.Filtered,
			Dropped:       len(loaded.Dropped),
			Filtered:      loaded.Filtered,
			Scored:        len(projects),
		},
		Projects:    projects,
		Dropped:     loaded.Dropped,
		Flags:       flagStats,
		Summary:     summary,
		Methodology: report.NewMethodology(p.c.Scorer.Rules(), p.c.Detector.Thresholds()),
	}

	writeErr := p.writeOutputs(result, &input, log)

	if err := report.PrintSummary(out, input); err != nil {
		log.Warn().Err(err).Msg("Failed to print console summary")
	}
	if writeErr != nil {
		return result, writeErr
	}

	log.Info().
		Str("output_dir", cfg.OutputDir).
		Int("files", len(result.Reports)+len(result.Charts)).
		Msg("Screening complete")
	return result, nil
}

func (p *Pipeline) writeOutputs(result *Result, input *report.Input, log zerolog.Logger) error {
	if p.c.Config.Charts {
		artifacts, err := p.c.Charts.RenderAll(charts.Input{
			Projects: result.Projects,
			Flags:    result.Flags,
			Summary:  result.Summary,
			RadarID:  p.c.Config.RadarProject,
		})
		result.Charts = artifacts
		if err != nil {
			return fmt.Errorf("%w: charts: %w", report.ErrWriteFailed, err)
		}
		input.Charts = artifacts
	}

	artifacts, err := p.c.Reports.WriteAll(*input)
	result.Reports = artifacts
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		log.Info().Str("file", a.Path).Msg("Wrote")
	}
	return nil
}
