// Package portfolio rolls scored projects up into portfolio-level statistics:
// the CQI distribution, issuance concentration, vintage exposure and
// sector/country breakdowns. Inputs are never modified.
package portfolio

import (
	"math"
	"sort"
	"strconv"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Aggregator computes portfolio summaries
type Aggregator struct {
	opts Options
	log  zerolog.Logger
}

// NewAggregator creates an aggregator; non-positive options fall back to defaults
func NewAggregator(opts Options, log zerolog.Logger) *Aggregator {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.HighQualityCutoff <= 0 {
		opts.HighQualityCutoff = DefaultHighQualityCutoff
	}
	return &Aggregator{
		opts: opts,
		log:  log.With().Str("service", "portfolio").Logger(),
	}
}

// Options returns the options in effect
func (a *Aggregator) Options() Options {
	return a.opts
}

// Summarize builds a fresh Summary from the full set of projects
func (a *Aggregator) Summarize(projects []domain.ScoredProject) Summary {
	s := Summary{
		Projects: len(projects),
		Tiers:    tierCounts(projects),
	}
	for _, p := range projects {
		s.TotalIssued += p.Record.Issued
		s.TotalRetired += p.Record.Retired
		if len(p.Flags) > 0 {
			s.Flagged++
		}
	}

	s.Distribution = Describe(projects)
	s.Countries = breakdown(projects, s.TotalIssued, func(p domain.ScoredProject) string {
		return labelOrUnknown(p.Record.Country)
	})
	s.Sectors = breakdown(projects, s.TotalIssued, func(p domain.ScoredProject) string {
		return string(p.Record.Type)
	})
	s.Concentration = concentration(projects, s.TotalIssued, a.opts.TopN, s.Countries)
	s.Vintages = VintageExposure(projects)
	s.Top, s.Bottom = Rank(projects, a.opts.TopN)
	s.Card = a.card(s, projects)

	a.log.Info().
		Int("projects", s.Projects).
		Int("flagged", s.Flagged).
		Float64("mean_cqi", s.Distribution.Mean).
		Float64("top_n_share", s.Concentration.TopNShare).
		Msg("Portfolio summary computed")
	return s
}

// Describe computes CQI distribution statistics. Quantiles use the empirical
// (lower) definition on a sorted copy.
func Describe(projects []domain.ScoredProject) Distribution {
	n := len(projects)
	if n == 0 {
		return Distribution{}
	}

	values := make([]float64, n)
	weights := make([]float64, n)
	for i, p := range projects {
		values[i] = p.Composite
		weights[i] = float64(p.Record.Issued)
	}

	d := Distribution{
		Count: n,
		Mean:  round(stat.Mean(values, nil), 2),
	}
	if floats.Sum(weights) > 0 {
		d.WeightedMean = round(stat.Mean(values, weights), 2)
	} else {
		d.WeightedMean = d.Mean
	}
	if n > 1 {
		d.StdDev = round(stat.StdDev(values, nil), 2)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	d.Min = sorted[0]
	d.Max = sorted[n-1]
	d.Q1 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	d.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	d.Q3 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return d
}

// VintageExposure spreads each project's issued volume evenly across its
// vintage years. Projects without vintages land in a trailing unknown bucket.
func VintageExposure(projects []domain.ScoredProject) []VintageBucket {
	byYear := make(map[int]*VintageBucket)
	total := 0.0

	for _, p := range projects {
		issued := float64(p.Record.Issued)
		total += issued

		years := p.Record.VintageYears
		if len(years) == 0 {
			years = []int{0}
		}
		share := issued / float64(len(years))
		for _, y := range years {
			b, ok := byYear[y]
			if !ok {
				b = &VintageBucket{Year: y, Label: vintageLabel(y)}
				byYear[y] = b
			}
			b.Issued += share
			b.Projects++
		}
	}

	buckets := make([]VintageBucket, 0, len(byYear))
	for _, b := range byYear {
		b.Issued = round(b.Issued, 2)
		b.Share = pct(b.Issued, total)
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		yi, yj := buckets[i].Year, buckets[j].Year
		if yi == 0 || yj == 0 {
			return yj == 0 && yi != 0
		}
		return yi < yj
	})
	return buckets
}

// Rank returns the n highest and n lowest projects by composite. Ties
// resolve by project id so the order is stable across runs.
func Rank(projects []domain.ScoredProject, n int) (top, bottom []RankedProject) {
	ranked := make([]domain.ScoredProject, len(projects))
	copy(ranked, projects)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}
		return ranked[i].Record.ID < ranked[j].Record.ID
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	top = make([]RankedProject, 0, n)
	for _, p := range ranked[:n] {
		top = append(top, toRanked(p))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite < ranked[j].Composite
		}
		return ranked[i].Record.ID < ranked[j].Record.ID
	})
	bottom = make([]RankedProject, 0, n)
	for _, p := range ranked[:n] {
		bottom = append(bottom, toRanked(p))
	}
	return top, bottom
}

// HHI returns the Herfindahl-Hirschman index of project issuance shares
func HHI(projects []domain.ScoredProject) float64 {
	shares := make([]float64, len(projects))
	for i, p := range projects {
		shares[i] = float64(p.Record.Issued)
	}
	total := floats.Sum(shares)
	if total <= 0 {
		return 0
	}
	floats.Scale(1/total, shares)
	return round(floats.Dot(shares, shares), 4)
}

func concentration(projects []domain.ScoredProject, totalIssued int64, topN int, countries []Breakdown) Concentration {
	c := Concentration{TopN: topN, HHI: HHI(projects)}
	if totalIssued <= 0 {
		return c
	}

	volumes := make([]float64, len(projects))
	for i, p := range projects {
		volumes[i] = float64(p.Record.Issued)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(volumes)))
	if topN > len(volumes) {
		topN = len(volumes)
	}
	c.TopNShare = pct(floats.Sum(volumes[:topN]), float64(totalIssued))

	// countries are sorted by issued volume
	if len(countries) > 0 {
		c.LargestCountry = countries[0].Key
		c.LargestCountryShare = countries[0].ShareOfIssued
	}
	return c
}

// breakdown groups projects by key, largest issuance first (ties by key)
func breakdown(projects []domain.ScoredProject, totalIssued int64, key func(domain.ScoredProject) string) []Breakdown {
	groups := make(map[string]*Breakdown)
	cqiSums := make(map[string]float64)

	for _, p := range projects {
		k := key(p)
		b, ok := groups[k]
		if !ok {
			b = &Breakdown{Key: k}
			groups[k] = b
		}
		b.Projects++
		b.Issued += p.Record.Issued
		b.Retired += p.Record.Retired
		if len(p.Flags) > 0 {
			b.Flagged++
		}
		cqiSums[k] += p.Composite
	}

	out := make([]Breakdown, 0, len(groups))
	for k, b := range groups {
		b.MeanCQI = round(cqiSums[k]/float64(b.Projects), 2)
		b.ShareOfIssued = pct(float64(b.Issued), float64(totalIssued))
		b.FlagIncidence = pct(float64(b.Flagged), float64(b.Projects))
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Issued != out[j].Issued {
			return out[i].Issued > out[j].Issued
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (a *Aggregator) card(s Summary, projects []domain.ScoredProject) Card {
	c := Card{
		TotalProjects: s.Projects,
		AverageCQI:    s.Distribution.Mean,
		IssuedMt:      round(float64(s.TotalIssued)/1e6, 2),
		RetiredMt:     round(float64(s.TotalRetired)/1e6, 2),
	}
	if s.Projects == 0 {
		return c
	}

	high := 0
	for _, p := range projects {
		if p.Composite >= a.opts.HighQualityCutoff {
			high++
		}
	}
	c.PctHighQuality = pct(float64(high), float64(s.Projects))
	c.PctFlagged = pct(float64(s.Flagged), float64(s.Projects))
	if len(s.Countries) > 0 {
		c.TopCountry = s.Countries[0].Key
	}
	if len(s.Sectors) > 0 {
		c.TopType = s.Sectors[0].Key
	}
	return c
}

func tierCounts(projects []domain.ScoredProject) []TierCount {
	counts := make(map[domain.QualityTier]int, len(domain.Tiers))
	for _, p := range projects {
		counts[p.Tier]++
	}
	out := make([]TierCount, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		out = append(out, TierCount{Tier: tier, Projects: counts[tier]})
	}
	return out
}

func toRanked(p domain.ScoredProject) RankedProject {
	return RankedProject{
		ID:        p.Record.ID,
		Name:      p.Record.Name,
		Type:      p.Record.Type,
		Country:   p.Record.Country,
		Issued:    p.Record.Issued,
		Composite: p.Composite,
		Tier:      p.Tier,
		Flags:     append([]domain.FlagCode(nil), p.Flags...),
	}
}

func vintageLabel(year int) string {
	if year == 0 {
		return UnknownLabel
	}
	return strconv.Itoa(year)
}

func labelOrUnknown(s string) string {
	if s == "" {
		return UnknownLabel
	}
	return s
}

// pct returns part/total as a percentage with one decimal
func pct(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return round(part/total*100, 1)
}

// round rounds a float64 to n decimal places
func round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
