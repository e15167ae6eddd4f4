// Package charts renders portfolio charts as standalone HTML files.
package charts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/internal/modules/portfolio"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"
	"github.com/rs/zerolog"
)

// ErrUnknownProject is returned when a radar chart is requested for a project
// that is not in the scored set
var ErrUnknownProject = errors.New("project not found")

// Chart file names
const (
	FileDistribution = "cqi_distribution.html"
	FileHeatmap      = "country_type_heatmap.html"
	FileScatter      = "cqi_vs_issuance.html"
	FileFlags        = "flag_frequency.html"
	FileVintages     = "vintage_exposure.html"
)

var tierColors = map[domain.QualityTier]string{
	domain.TierVeryLow:  "#d73027",
	domain.TierLow:      "#fc8d59",
	domain.TierMedium:   "#fee08b",
	domain.TierHigh:     "#91cf60",
	domain.TierVeryHigh: "#1a9850",
}

// Artifact is one rendered chart
type Artifact struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// Input is everything the charts draw from
type Input struct {
	Projects []domain.ScoredProject
	Flags    []risk.FlagStat
	Summary  portfolio.Summary
	RadarID  string // Optional project id for the sub-score radar
}

// Service writes chart files into a directory
type Service struct {
	dir string
	log zerolog.Logger
}

// NewService creates a new charts service writing into dir
func NewService(dir string, log zerolog.Logger) *Service {
	return &Service{
		dir: dir,
		log: log.With().Str("service", "charts").Logger(),
	}
}

// RenderAll writes every portfolio chart, plus the radar when requested.
// An unknown radar id is logged and skipped; file errors stop rendering.
func (s *Service) RenderAll(in Input) ([]Artifact, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	jobs := []struct {
		file  string
		title string
		chart render.Renderer
	}{
		{FileDistribution, "CQI distribution by tier", distributionChart(in.Projects)},
		{FileHeatmap, "Mean CQI by country and project type", heatmapChart(in.Projects)},
		{FileScatter, "CQI vs issuance volume", scatterChart(in.Projects)},
		{FileFlags, "Red flag frequency", flagChart(in.Flags)},
		{FileVintages, "Vintage exposure", vintageChart(in.Summary.Vintages)},
	}

	artifacts := make([]Artifact, 0, len(jobs)+1)
	for _, job := range jobs {
		path, err := s.write(job.file, job.chart)
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, Artifact{Name: job.file, Title: job.title, Path: path})
	}

	if in.RadarID != "" {
		artifact, err := s.RenderRadar(in.Projects, in.RadarID)
		switch {
		case errors.Is(err, ErrUnknownProject):
			s.log.Warn().Str("project_id", in.RadarID).Msg("Radar chart skipped, project not in scored set")
		case err != nil:
			return artifacts, err
		default:
			artifacts = append(artifacts, artifact)
		}
	}

	s.log.Info().Int("charts", len(artifacts)).Str("dir", s.dir).Msg("Charts rendered")
	return artifacts, nil
}

// RenderRadar writes the six sub-scores of one project as a radar chart
func (s *Service) RenderRadar(projects []domain.ScoredProject, id string) (Artifact, error) {
	for _, p := range projects {
		if p.Record.ID != id {
			continue
		}
		file := fmt.Sprintf("radar_%s.html", safeFileName(id))
		path, err := s.write(file, radarChart(p))
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Name: file, Title: "Sub-scores for " + id, Path: path}, nil
	}
	return Artifact{}, fmt.Errorf("%w: %s", ErrUnknownProject, id)
}

func (s *Service) write(file string, chart render.Renderer) (string, error) {
	path := filepath.Join(s.dir, file)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", file, err)
	}
	if err := chart.Render(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to render %s: %w", file, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", file, err)
	}
	return path, nil
}

func baseOpts(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "960px", Height: "540px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
	}
}

func distributionChart(projects []domain.ScoredProject) *charts.Bar {
	h := BuildHistogram(projects)

	bar := charts.NewBar()
	bar.SetGlobalOptions(append(baseOpts("CQI distribution", fmt.Sprintf("%d projects", len(projects))),
		charts.WithXAxisOpts(opts.XAxis{Name: "CQI"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Projects"}),
	)...)
	bar.SetXAxis(h.Labels)
	for _, tier := range domain.Tiers {
		data := make([]opts.BarData, len(h.Labels))
		for i, n := range h.Counts[tier] {
			data[i] = opts.BarData{Value: n}
		}
		bar.AddSeries(string(tier), data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "tier"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: tierColors[tier]}),
		)
	}
	return bar
}

func heatmapChart(projects []domain.ScoredProject) *charts.HeatMap {
	h := BuildHeatmap(projects, MaxHeatmapCountries)

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(baseOpts("Mean CQI by country and project type", ""),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: h.Types}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: h.Countries}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min: 0,
			Max: 100,
			InRange: &opts.VisualMapInRange{
				Color: []string{tierColors[domain.TierVeryLow], tierColors[domain.TierMedium], tierColors[domain.TierVeryHigh]},
			},
		}),
	)...)
	hm.SetXAxis(h.Types)

	data := make([]opts.HeatMapData, 0, len(h.Cells))
	for _, c := range h.Cells {
		data = append(data, opts.HeatMapData{Value: [3]interface{}{c.X, c.Y, c.MeanCQI}})
	}
	hm.AddSeries("Mean CQI", data)
	return hm
}

func scatterChart(projects []domain.ScoredProject) *charts.Scatter {
	points := BuildScatter(projects)

	sc := charts.NewScatter()
	sc.SetGlobalOptions(append(baseOpts("CQI vs issuance volume", "Projects with issued credits"),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "log10(issued)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "CQI", Max: 100}),
	)...)
	for _, tier := range domain.Tiers {
		data := make([]opts.ScatterData, 0, len(points[tier]))
		for _, p := range points[tier] {
			data = append(data, opts.ScatterData{Name: p.ID, Value: []interface{}{p.LogIssued, p.Composite}})
		}
		sc.AddSeries(string(tier), data, charts.WithItemStyleOpts(opts.ItemStyle{Color: tierColors[tier]}))
	}
	return sc
}

func flagChart(stats []risk.FlagStat) *charts.Bar {
	labels := make([]string, 0, len(stats))
	data := make([]opts.BarData, 0, len(stats))
	for _, st := range stats {
		labels = append(labels, st.Label)
		data = append(data, opts.BarData{Name: string(st.Code), Value: st.Projects})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(append(baseOpts("Red flag frequency", "Projects carrying each flag"),
		charts.WithYAxisOpts(opts.YAxis{Name: "Projects"}),
	)...)
	bar.SetXAxis(labels).AddSeries("Projects", data)
	return bar
}

func vintageChart(buckets []portfolio.VintageBucket) *charts.Bar {
	labels := make([]string, 0, len(buckets))
	data := make([]opts.BarData, 0, len(buckets))
	for _, b := range buckets {
		labels = append(labels, b.Label)
		data = append(data, opts.BarData{Value: b.Issued})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(append(baseOpts("Vintage exposure", "Issued credits spread across vintage years"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Vintage"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "tCO2e"}),
	)...)
	bar.SetXAxis(labels).AddSeries("Issued", data)
	return bar
}

func radarChart(p domain.ScoredProject) *charts.Radar {
	indicators := make([]*opts.Indicator, 0, len(domain.Dimensions))
	values := make([]float64, 0, len(domain.Dimensions))
	for _, d := range domain.Dimensions {
		indicators = append(indicators, &opts.Indicator{Name: d.Label(), Max: 100})
		values = append(values, p.Scores.Get(d))
	}

	title := p.Record.ID
	if p.Record.Name != "" {
		title += " - " + p.Record.Name
	}
	radar := charts.NewRadar()
	radar.SetGlobalOptions(append(baseOpts(title, fmt.Sprintf("CQI %.1f (%s)", p.Composite, p.Tier)),
		charts.WithRadarComponentOpts(opts.RadarComponent{Indicator: indicators}),
	)...)
	radar.AddSeries(p.Record.ID, []opts.RadarData{{Name: p.Record.ID, Value: values}},
		charts.WithItemStyleOpts(opts.ItemStyle{Color: tierColors[p.Tier]}),
	)
	return radar
}

// safeFileName keeps ASCII letters, digits, dash and underscore
func safeFileName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
