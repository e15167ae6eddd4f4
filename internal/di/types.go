/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds every service a
 * screening run needs. The Container is created by Wire() and handed to
 * the pipeline.
 */
package di

import (
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
)

// ChartsDirName is the chart subdirectory of the output directory
const ChartsDirName = "charts"

/**
 * Container holds all dependencies for one screening run.
 *
 * Architecture:
 * - Configuration: environment settings plus the validated rule set
 * - Clients: registry source fetcher (file, HTTP, S3, bundled sample)
 * - Repositories: on-disk registry cache
 * - Services: loader, scorer, flag detector, aggregator, charts, reports
 */
type Container struct {
	// Configuration
	Config    *config.Config
	Rules     config.Rules // Validated scoring rules and flag thresholds
	Reference time.Time    // Date vintage ages and crediting expiry are measured against

	// Clients
	Fetcher registry.Fetcher // Registry export source

	// Repositories
	CacheRepo  *clientdata.Repository // Parsed registry exports, keyed by source
	CleanupJob *clientdata.CleanupJob // Removes long-expired cache entries

	// Services
	Loader     *universe.Loader
	Scorer     *scoring.Scorer
	Detector   *risk.Detector
	Aggregator *portfolio.Aggregator
	Charts     *charts.Service
	Reports    *report.Service
}
