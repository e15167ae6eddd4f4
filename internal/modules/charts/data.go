package charts

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/carbonscreen/internal/domain"
)

// HistogramBinWidth is the CQI width of one histogram bar
const HistogramBinWidth = 10

// MaxHeatmapCountries caps the heatmap rows; remaining countries are omitted
const MaxHeatmapCountries = 15

// Histogram counts projects per CQI bin, split by tier
type Histogram struct {
	Labels []string
	Counts map[domain.QualityTier][]int
}

// BuildHistogram bins composites into [0,10), [10,20) ... [90,100]
func BuildHistogram(projects []domain.ScoredProject) Histogram {
	bins := 100 / HistogramBinWidth
	h := Histogram{
		Labels: make([]string, bins),
		Counts: make(map[domain.QualityTier][]int, len(domain.Tiers)),
	}
	for i := 0; i < bins; i++ {
		h.Labels[i] = fmt.Sprintf("%d-%d", i*HistogramBinWidth, (i+1)*HistogramBinWidth)
	}
	for _, tier := range domain.Tiers {
		h.Counts[tier] = make([]int, bins)
	}

	for _, p := range projects {
		i := int(p.Composite) / HistogramBinWidth
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		if _, ok := h.Counts[p.Tier]; !ok {
			continue
		}
		h.Counts[p.Tier][i]++
	}
	return h
}

// HeatmapCell is the mean CQI of one country/type pair
type HeatmapCell struct {
	X, Y     int // indexes into Heatmap.Types and Heatmap.Countries
	MeanCQI  float64
	Projects int
}

// Heatmap is a country x project type grid of mean CQI
type Heatmap struct {
	Countries []string
	Types     []string
	Cells     []HeatmapCell
}

// BuildHeatmap keeps the countries with the most projects (ties by name)
// and only emits cells that have at least one project.
func BuildHeatmap(projects []domain.ScoredProject, maxCountries int) Heatmap {
	type acc struct {
		sum float64
		n   int
	}
	countryCount := make(map[string]int)
	for _, p := range projects {
		countryCount[countryLabel(p.Record.Country)]++
	}

	countries := make([]string, 0, len(countryCount))
	for c := range countryCount {
		countries = append(countries, c)
	}
	sort.Slice(countries, func(i, j int) bool {
		if countryCount[countries[i]] != countryCount[countries[j]] {
			return countryCount[countries[i]] > countryCount[countries[j]]
		}
		return countries[i] < countries[j]
	})
	if maxCountries > 0 && len(countries) > maxCountries {
		countries = countries[:maxCountries]
	}
	countryIdx := make(map[string]int, len(countries))
	for i, c := range countries {
		countryIdx[c] = i
	}

	cells := make(map[[2]string]*acc)
	typeSet := make(map[string]bool)
	for _, p := range projects {
		country := countryLabel(p.Record.Country)
		if _, ok := countryIdx[country]; !ok {
			continue
		}
		kind := string(p.Record.Type)
		typeSet[kind] = true
		key := [2]string{country, kind}
		if cells[key] == nil {
			cells[key] = &acc{}
		}
		cells[key].sum += p.Composite
		cells[key].n++
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	typeIdx := make(map[string]int, len(types))
	for i, t := range types {
		typeIdx[t] = i
	}

	h := Heatmap{Countries: countries, Types: types}
	for key, a := range cells {
		h.Cells = append(h.Cells, HeatmapCell{
			X:        typeIdx[key[1]],
			Y:        countryIdx[key[0]],
			MeanCQI:  math.Round(a.sum/float64(a.n)*10) / 10,
			Projects: a.n,
		})
	}
	sort.Slice(h.Cells, func(i, j int) bool {
		if h.Cells[i].Y != h.Cells[j].Y {
			return h.Cells[i].Y < h.Cells[j].Y
		}
		return h.Cells[i].X < h.Cells[j].X
	})
	return h
}

// ScatterPoint places one project by log10(issued) and CQI
type ScatterPoint struct {
	ID        string
	LogIssued float64
	Composite float64
}

// BuildScatter groups points by tier. Projects with nothing issued have no
// position on a log axis and are left out.
func BuildScatter(projects []domain.ScoredProject) map[domain.QualityTier][]ScatterPoint {
	out := make(map[domain.QualityTier][]ScatterPoint)
	for _, p := range projects {
		if p.Record.Issued <= 0 {
			continue
		}
		out[p.Tier] = append(out[p.Tier], ScatterPoint{
			ID:        p.Record.ID,
			LogIssued: math.Round(math.Log10(float64(p.Record.Issued))*100) / 100,
			Composite: p.Composite,
		})
	}
	return out
}

func countryLabel(country string) string {
	if country == "" {
		return "Unknown"
	}
	return country
}
