// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/carbonscreen/internal/clientdata"
	"github.com/aristath/carbonscreen/internal/clients/registry"
	"github.com/aristath/carbonscreen/internal/config"
	"github.com/aristath/carbonscreen/internal/modules/charts"
	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/report"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/aristath/carbonscreen/internal/modules/scoring"
	"github.com/aristath/carbonscreen/internal/modules/universe"
	"github.com/rs/zerolog"
)

// CachePrefix names registry cache files
const CachePrefix = "registry"

// Wire initializes all dependencies and returns a fully configured container.
// fetcher is optional: if nil, a registry client is built from cfg.
// Order of operations:
// 1. Load and validate rules
// 2. Initialize clients and repositories
// 3. Initialize services
func Wire(cfg *config.Config, fetcher registry.Fetcher, now time.Time, log zerolog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Step 1: Rules and reference date (fail before touching any data)
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	reference, err := cfg.Reference(now)
	if err != nil {
		return nil, err
	}

	container := &Container{
		Config:    cfg,
		Rules:     rules,
		Reference: reference,
	}

	// Step 2: Clients and repositories
	if fetcher == nil {
		fetcher = registry.NewClient(cfg.HTTPTimeout, registry.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		}, log)
	}
	container.Fetcher = fetcher
	container.CacheRepo = clientdata.NewRepository(cfg.CacheDir, CachePrefix)
	container.CleanupJob = clientdata.NewCleanupJob(container.CacheRepo, log)

	// Step 3: Services
	if err := initializeServices(container, log); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Debug().
		Time("reference_date", reference).
		Str("rules_file", cfg.RulesFile).
		Msg("Dependency injection wiring completed")

	return container, nil
}

func initializeServices(c *Container, log zerolog.Logger) error {
	c.Loader = universe.NewLoader(c.Fetcher, c.CacheRepo, c.Config.CacheTTL, log)

	scorer, err := scoring.NewScorer(c.Rules.Scoring, c.Reference, log)
	if err != nil {
		return fmt.Errorf("failed to create scorer: %w", err)
	}
	c.Scorer = scorer

	detector, err := risk.NewDetector(c.Rules.Flags, scorer, c.Reference, log)
	if err != nil {
		return fmt.Errorf("failed to create flag detector: %w", err)
	}
	c.Detector = detector

	c.Aggregator = portfolio.NewAggregator(portfolio.Options{
		TopN:              c.Config.TopN,
		HighQualityCutoff: c.Rules.Scoring.Tiers.High,
	}, log)
	c.Charts = charts.NewService(filepath.Join(c.Config.OutputDir, ChartsDirName), log)
	c.Reports = report.NewService(c.Config.OutputDir, log)
	return nil
}
