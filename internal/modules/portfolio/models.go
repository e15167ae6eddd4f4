package portfolio

import "github.com/aristath/carbonscreen/internal/domain"

// Options tune the aggregation
type Options struct {
	TopN              int     // Size of the top/bottom lists and the concentration window
	HighQualityCutoff float64 // CQI at or above which a project counts as high quality
}

// Defaults
const (
	DefaultTopN              = 10
	DefaultHighQualityCutoff = 70.0
	UnknownLabel             = "Unknown"
)

// DefaultOptions returns the documented aggregation options
func DefaultOptions() Options {
	return Options{TopN: DefaultTopN, HighQualityCutoff: DefaultHighQualityCutoff}
}

// Summary is recomputed from the full set of scored projects on every run
type Summary struct {
	Projects      int             `json:"projects"`
	Flagged       int             `json:"flagged_projects"`
	TotalIssued   int64           `json:"total_issued"`
	TotalRetired  int64           `json:"total_retired"`
	Tiers         []TierCount     `json:"tiers"`
	Distribution  Distribution    `json:"cqi_distribution"`
	Concentration Concentration   `json:"concentration"`
	Vintages      []VintageBucket `json:"vintage_exposure"`
	Sectors       []Breakdown     `json:"sector_breakdown"`
	Countries     []Breakdown     `json:"country_breakdown"`
	Card          Card            `json:"summary_card"`
	Top           []RankedProject `json:"top_projects"`
	Bottom        []RankedProject `json:"bottom_projects"`
}

// TierCount is the number of projects in one quality tier
type TierCount struct {
	Tier     domain.QualityTier `json:"tier"`
	Projects int                `json:"projects"`
}

// Distribution describes the composite index across projects
type Distribution struct {
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	WeightedMean float64 `json:"issuance_weighted_mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Q1           float64 `json:"q1"`
	Median       float64 `json:"median"`
	Q3           float64 `json:"q3"`
	Max          float64 `json:"max"`
}

// Concentration measures how much issuance sits in few projects or places
type Concentration struct {
	TopN                int     `json:"top_n"`
	TopNShare           float64 `json:"top_n_share_pct"`  // % of total issued
	HHI                 float64 `json:"herfindahl_index"` // 1/N is perfectly equal, 1 is a single project
	LargestCountry      string  `json:"largest_country"`
	LargestCountryShare float64 `json:"largest_country_share_pct"`
}

// VintageBucket is the issued volume attributed to one vintage year
type VintageBucket struct {
	Year     int     `json:"year"` // 0 for projects without vintage data
	Label    string  `json:"label"`
	Issued   float64 `json:"issued"`
	Share    float64 `json:"share_pct"`
	Projects int     `json:"projects"`
}

// Breakdown aggregates projects sharing a key (project type or country)
type Breakdown struct {
	Key           string  `json:"key"`
	Projects      int     `json:"projects"`
	Issued        int64   `json:"issued"`
	Retired       int64   `json:"retired"`
	ShareOfIssued float64 `json:"share_of_issued_pct"`
	MeanCQI       float64 `json:"mean_cqi"`
	Flagged       int     `json:"flagged_projects"`
	FlagIncidence float64 `json:"flag_incidence_pct"`
}

// Card is the headline summary
type Card struct {
	TotalProjects  int     `json:"total_projects"`
	AverageCQI     float64 `json:"average_cqi"`
	PctHighQuality float64 `json:"pct_high_quality"`
	PctFlagged     float64 `json:"pct_flagged"`
	IssuedMt       float64 `json:"issued_mtco2e"`
	RetiredMt      float64 `json:"retired_mtco2e"`
	TopCountry     string  `json:"top_country"`
	TopType        string  `json:"top_project_type"`
}

// RankedProject is the compact form used in top/bottom lists
type RankedProject struct {
	ID        string             `json:"project_id"`
	Name      string             `json:"name"`
	Type      domain.ProjectType `json:"project_type"`
	Country   string             `json:"country"`
	Issued    int64              `json:"total_issued"`
	Composite float64            `json:"composite"`
	Tier      domain.QualityTier `json:"tier"`
	Flags     []domain.FlagCode  `json:"flags"`
}
