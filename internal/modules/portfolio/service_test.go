package portfolio

import (
	"testing"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(id, country string, kind domain.ProjectType, issued, retired int64, cqi float64, tier domain.QualityTier, vintages []int, flags ...domain.FlagCode) domain.ScoredProject {
	return domain.ScoredProject{
		Record: domain.ProjectRecord{
			ID:           id,
			Name:         "Project " + id,
			Country:      country,
			Type:         kind,
			Issued:       issued,
			Retired:      retired,
			VintageYears: vintages,
		},
		Composite: cqi,
		Tier:      tier,
		Flags:     flags,
	}
}

// fourProjects issues 1,000,000 credits in total: 60% / 30% / 10% / 0%
func fourProjects() []domain.ScoredProject {
	return []domain.ScoredProject{
		scored("a", "Kenya", domain.ProjectTypeCookstove, 600_000, 300_000, 80, domain.TierVeryHigh, []int{2020, 2021}),
		scored("b", "Kenya", domain.ProjectTypeREDD, 300_000, 0, 40, domain.TierLow, []int{2021}, "LOW_DEMAND"),
		scored("c", "Peru", domain.ProjectTypeREDD, 100_000, 50_000, 60, domain.TierMedium, nil, "AGING_CREDITS"),
		scored("d", "", domain.ProjectTypeRenewableEnergy, 0, 0, 90, domain.TierVeryHigh, []int{2022}),
	}
}

func newTestAggregator(topN int) *Aggregator {
	return NewAggregator(Options{TopN: topN, HighQualityCutoff: 70}, zerolog.Nop())
}

func TestNewAggregator_Defaults(t *testing.T) {
	a := NewAggregator(Options{}, zerolog.Nop())
	assert.Equal(t, DefaultOptions(), a.Options())
}

func TestSummarize_Totals(t *testing.T) {
	s := newTestAggregator(2).Summarize(fourProjects())

	assert.Equal(t, 4, s.Projects)
	assert.Equal(t, 2, s.Flagged)
	assert.Equal(t, int64(1_000_000), s.TotalIssued)
	assert.Equal(t, int64(350_000), s.TotalRetired)
	assert.Equal(t, []TierCount{
		{Tier: domain.TierVeryLow, Projects: 0},
		{Tier: domain.TierLow, Projects: 1},
		{Tier: domain.TierMedium, Projects: 1},
		{Tier: domain.TierHigh, Projects: 0},
		{Tier: domain.TierVeryHigh, Projects: 2},
	}, s.Tiers)
}

func TestDescribe(t *testing.T) {
	d := Describe(fourProjects())

	assert.Equal(t, 4, d.Count)
	assert.Equal(t, 67.5, d.Mean)
	assert.Equal(t, 66.0, d.WeightedMean)
	assert.Equal(t, 22.17, d.StdDev)
	assert.Equal(t, 40.0, d.Min)
	assert.Equal(t, 40.0, d.Q1)
	assert.Equal(t, 60.0, d.Median)
	assert.Equal(t, 80.0, d.Q3)
	assert.Equal(t, 90.0, d.Max)
}

func TestDescribe_EdgeCases(t *testing.T) {
	assert.Equal(t, Distribution{}, Describe(nil))

	single := Describe([]domain.ScoredProject{scored("x", "Chile", domain.ProjectTypeREDD, 10, 0, 55, domain.TierMedium, nil)})
	assert.Equal(t, 1, single.Count)
	assert.Equal(t, 0.0, single.StdDev, "no spread from one value")
	assert.Equal(t, 55.0, single.Median)

	unissued := Describe([]domain.ScoredProject{
		scored("x", "Chile", domain.ProjectTypeREDD, 0, 0, 20, domain.TierLow, nil),
		scored("y", "Chile", domain.ProjectTypeREDD, 0, 0, 40, domain.TierLow, nil),
	})
	assert.Equal(t, 30.0, unissued.WeightedMean, "falls back to the plain mean")
}

func TestSummarize_Concentration(t *testing.T) {
	s := newTestAggregator(2).Summarize(fourProjects())

	assert.Equal(t, 2, s.Concentration.TopN)
	assert.Equal(t, 90.0, s.Concentration.TopNShare)
	assert.Equal(t, 0.46, s.Concentration.HHI)
	assert.Equal(t, "Kenya", s.Concentration.LargestCountry)
	assert.Equal(t, 90.0, s.Concentration.LargestCountryShare)
}

func TestHHI(t *testing.T) {
	assert.Equal(t, 0.0, HHI(nil))

	equal := []domain.ScoredProject{
		scored("a", "", domain.ProjectTypeREDD, 50, 0, 0, domain.TierLow, nil),
		scored("b", "", domain.ProjectTypeREDD, 50, 0, 0, domain.TierLow, nil),
	}
	assert.Equal(t, 0.5, HHI(equal))

	single := []domain.ScoredProject{scored("a", "", domain.ProjectTypeREDD, 7, 0, 0, domain.TierLow, nil)}
	assert.Equal(t, 1.0, HHI(single))
}

func TestSummarize_Breakdowns(t *testing.T) {
	s := newTestAggregator(2).Summarize(fourProjects())

	require.Len(t, s.Countries, 3)
	assert.Equal(t, Breakdown{
		Key:           "Kenya",
		Projects:      2,
		Issued:        900_000,
		Retired:       300_000,
		ShareOfIssued: 90.0,
		MeanCQI:       60.0,
		Flagged:       1,
		FlagIncidence: 50.0,
	}, s.Countries[0])
	assert.Equal(t, "Peru", s.Countries[1].Key)
	assert.Equal(t, UnknownLabel, s.Countries[2].Key, "empty country grouped as unknown")

	require.Len(t, s.Sectors, 3)
	assert.Equal(t, string(domain.ProjectTypeCookstove), s.Sectors[0].Key)
	assert.Equal(t, string(domain.ProjectTypeREDD), s.Sectors[1].Key)
	assert.Equal(t, int64(400_000), s.Sectors[1].Issued)
	assert.Equal(t, 100.0, s.Sectors[1].FlagIncidence)
	assert.Equal(t, 50.0, s.Sectors[1].MeanCQI)
}

func TestVintageExposure(t *testing.T) {
	buckets := VintageExposure(fourProjects())

	require.Len(t, buckets, 4)
	assert.Equal(t, VintageBucket{Year: 2020, Label: "2020", Issued: 300_000, Share: 30.0, Projects: 1}, buckets[0])
	assert.Equal(t, VintageBucket{Year: 2021, Label: "2021", Issued: 600_000, Share: 60.0, Projects: 2}, buckets[1])
	assert.Equal(t, VintageBucket{Year: 2022, Label: "2022", Issued: 0, Share: 0, Projects: 1}, buckets[2])
	assert.Equal(t, VintageBucket{Year: 0, Label: UnknownLabel, Issued: 100_000, Share: 10.0, Projects: 1}, buckets[3])

	total := 0.0
	for _, b := range buckets {
		total += b.Issued
	}
	assert.Equal(t, 1_000_000.0, total, "issued volume is conserved")
}

func TestRank(t *testing.T) {
	top, bottom := Rank(fourProjects(), 2)

	require.Len(t, top, 2)
	assert.Equal(t, "d", top[0].ID)
	assert.Equal(t, "a", top[1].ID)

	require.Len(t, bottom, 2)
	assert.Equal(t, "b", bottom[0].ID)
	assert.Equal(t, "c", bottom[1].ID)
	assert.Equal(t, []domain.FlagCode{"LOW_DEMAND"}, bottom[0].Flags)
}

func TestRank_TiesBreakByID(t *testing.T) {
	projects := []domain.ScoredProject{
		scored("z", "", domain.ProjectTypeREDD, 1, 0, 50, domain.TierMedium, nil),
		scored("m", "", domain.ProjectTypeREDD, 1, 0, 50, domain.TierMedium, nil),
		scored("a", "", domain.ProjectTypeREDD, 1, 0, 50, domain.TierMedium, nil),
	}
	top, bottom := Rank(projects, 10)

	ids := func(rs []RankedProject) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}
	assert.Equal(t, []string{"a", "m", "z"}, ids(top))
	assert.Equal(t, []string{"a", "m", "z"}, ids(bottom))
	assert.Equal(t, "z", projects[0].Record.ID, "input order untouched")
}

func TestSummarize_Card(t *testing.T) {
	s := newTestAggregator(2).Summarize(fourProjects())

	assert.Equal(t, Card{
		TotalProjects:  4,
		AverageCQI:     67.5,
		PctHighQuality: 50.0,
		PctFlagged:     50.0,
		IssuedMt:       1.0,
		RetiredMt:      0.35,
		TopCountry:     "Kenya",
		TopType:        string(domain.ProjectTypeCookstove),
	}, s.Card)
}

func TestSummarize_Empty(t *testing.T) {
	s := newTestAggregator(10).Summarize(nil)

	assert.Equal(t, 0, s.Projects)
	assert.Len(t, s.Tiers, len(domain.Tiers))
	assert.Empty(t, s.Countries)
	assert.Empty(t, s.Vintages)
	assert.Empty(t, s.Top)
	assert.Equal(t, 0.0, s.Concentration.TopNShare)
	assert.Equal(t, Card{}, s.Card)
}
