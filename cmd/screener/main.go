// Package main is the entry point for the carbon-offset quality screener.
// It loads a registry export, scores every project, raises red flags and
// writes the portfolio report, charts and console summary.
//
// Exit codes:
//   - 0: success
//   - 1: configuration, load or parse failure
//   - 2: report write failure (scores were computed and summarised)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aristath/carbonscreen/internal/config"
	"github.com/aristath/carbonscreen/internal/di"
	"github.com/aristath/carbonscreen/internal/modules/report"
	"github.com/aristath/carbonscreen/internal/pipeline"
	"github.com/aristath/carbonscreen/internal/utils"
	"github.com/aristath/carbonscreen/pkg/embedded"
	"github.com/aristath/carbonscreen/pkg/logger"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitWriteFailed = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], config.Load, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one screening pass and returns the process exit code.
// Configuration comes from load and is then overridden by args.
func run(ctx context.Context, args []string, load func() (*config.Config, error), stdout, stderr io.Writer) int {
	cfg, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	if err := applyFlags(cfg, args, stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	// Logs go to stderr so the console summary on stdout stays clean
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: stderr,
	})
	logger.SetGlobalLogger(log)
	log.Info().
		Str("source", cfg.Source).
		Str("output_dir", cfg.OutputDir).
		Msg("Starting carbon offset screener")

	// Rules and reference date are validated here, before any data is fetched
	container, err := di.Wire(cfg, nil, time.Now(), log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return exitFailure
	}

	if _, err := pipeline.New(container, log).Run(ctx, stdout); err != nil {
		if errors.Is(err, report.ErrWriteFailed) {
			log.Error().Err(err).Msg("Failed to write reports")
			return exitWriteFailed
		}
		log.Error().Err(err).Msg("Screening failed")
		return exitFailure
	}
	return exitOK
}

// applyFlags overrides cfg with command-line flags. Flags that are not given
// keep the environment value.
func applyFlags(cfg *config.Config, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("screener", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		sample       bool
		noCharts     bool
		projectTypes string
		statuses     string
	)

	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "output directory for reports and charts")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "registry export: file path, http(s):// URL, s3://bucket/key or \"sample\"")
	fs.BoolVar(&sample, "sample", false, "screen the bundled sample registry (overrides -source)")
	fs.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache, "ignore cached downloads (a fresh download is still cached)")
	fs.BoolVar(&cfg.AllowStale, "allow-stale", cfg.AllowStale, "use an expired cached copy when the source is unavailable")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "directory for cached registry downloads")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "how long a cached download stays fresh")
	fs.IntVar(&cfg.TopN, "top", cfg.TopN, "number of projects in the top and bottom tables")
	fs.StringVar(&cfg.RulesFile, "rules", cfg.RulesFile, "YAML file overriding scoring rules and flag thresholds")
	fs.StringVar(&cfg.ReferenceDate, "reference-date", cfg.ReferenceDate, "date ages are measured against, YYYY-MM-DD (default today)")
	fs.Int64Var(&cfg.MinCredits, "min-credits", cfg.MinCredits, "minimum credits issued for a project to be screened")
	fs.StringVar(&projectTypes, "project-type", strings.Join(cfg.ProjectTypes, ","), "comma-separated project types to screen (default all)")
	fs.StringVar(&statuses, "status", strings.Join(cfg.Statuses, ","), "comma-separated registry statuses to screen")
	fs.StringVar(&cfg.RadarProject, "radar", cfg.RadarProject, "project ID to draw a sub-score radar chart for")
	fs.BoolVar(&noCharts, "no-charts", !cfg.Charts, "skip the interactive HTML charts")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if sample {
		cfg.Source = embedded.SampleRegistryName
	}
	cfg.Charts = !noCharts
	cfg.ProjectTypes = utils.ParseCSV(projectTypes)
	cfg.Statuses = utils.ParseCSV(statuses)

	return cfg.Validate()
}
