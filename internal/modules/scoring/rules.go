package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/carbonscreen/internal/domain"
)

// ErrInvalidRules is returned when a rule set fails validation
var ErrInvalidRules = errors.New("invalid scoring rules")

// Point is one breakpoint of a piecewise-linear curve
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Curve is a piecewise-linear mapping from a measured quantity to a score.
// Inputs below the first point take the first score, inputs above the last
// point take the last score.
type Curve struct {
	Points []Point `yaml:"points" json:"points"`
}

// Eval evaluates the curve at x
func (c Curve) Eval(x float64) float64 {
	pts := c.Points
	if len(pts) == 0 {
		return 0
	}
	if x <= pts[0].X {
		return pts[0].Y
	}
	last := pts[len(pts)-1]
	if x >= last.X {
		return last.Y
	}

	// First breakpoint strictly above x
	i := sort.Search(len(pts), func(i int) bool { return pts[i].X > x })
	lo, hi := pts[i-1], pts[i]
	t := (x - lo.X) / (hi.X - lo.X)
	return lo.Y + t*(hi.Y-lo.Y)
}

func (c Curve) validate(name string) error {
	if len(c.Points) == 0 {
		return fmt.Errorf("%w: %s has no points", ErrInvalidRules, name)
	}
	for i, p := range c.Points {
		if p.Y < MinScore || p.Y > MaxScore {
			return fmt.Errorf("%w: %s point %d score %.2f outside [0,100]", ErrInvalidRules, name, i, p.Y)
		}
		if i > 0 && p.X <= c.Points[i-1].X {
			return fmt.Errorf("%w: %s x values must be strictly increasing", ErrInvalidRules, name)
		}
	}
	return nil
}

// String renders the breakpoints as "x→y" pairs
func (c Curve) String() string {
	parts := make([]string, 0, len(c.Points))
	for _, p := range c.Points {
		parts = append(parts, fmt.Sprintf("%g→%g", p.X, p.Y))
	}
	return strings.Join(parts, ", ")
}

// Weights are the composite weights in whole percent
type Weights struct {
	Vintage            int `yaml:"vintage" json:"vintage"`
	IssuanceRetirement int `yaml:"issuance_retirement" json:"issuance_retirement"`
	ProjectType        int `yaml:"project_type" json:"project_type"`
	Transparency       int `yaml:"transparency" json:"transparency"`
	Additionality      int `yaml:"additionality" json:"additionality"`
	Geography          int `yaml:"geography" json:"geography"`
}

// Get returns the weight of a dimension in percent
func (w Weights) Get(d domain.Dimension) int {
	switch d {
	case domain.DimensionVintage:
		return w.Vintage
	case domain.DimensionIssuanceRetirement:
		return w.IssuanceRetirement
	case domain.DimensionProjectType:
		return w.ProjectType
	case domain.DimensionTransparency:
		return w.Transparency
	case domain.DimensionAdditionality:
		return w.Additionality
	case domain.DimensionGeography:
		return w.Geography
	}
	return 0
}

// Sum returns the total weight in percent
func (w Weights) Sum() int {
	total := 0
	for _, d := range domain.Dimensions {
		total += w.Get(d)
	}
	return total
}

// TierCutoffs are the lower composite bounds of each tier above Very Low
type TierCutoffs struct {
	Low      float64 `yaml:"low" json:"low"`
	Medium   float64 `yaml:"medium" json:"medium"`
	High     float64 `yaml:"high" json:"high"`
	VeryHigh float64 `yaml:"very_high" json:"very_high"`
}

// Rules is the complete scoring policy: weights, curves and lookup tables.
// A Rules value is treated as immutable once handed to NewScorer.
type Rules struct {
	Weights            Weights                        `yaml:"weights" json:"weights"`
	VintageCurve       Curve                          `yaml:"vintage_curve" json:"vintage_curve"`             // x = vintage age in years
	RetirementCurve    Curve                          `yaml:"retirement_curve" json:"retirement_curve"`       // x = retired/issued ratio
	AdditionalityCurve Curve                          `yaml:"additionality_curve" json:"additionality_curve"` // x = registration lag in years
	ProjectTypeScores  map[domain.ProjectType]float64 `yaml:"project_type_scores" json:"project_type_scores"`
	GovernanceScores   map[string]float64             `yaml:"governance_scores" json:"governance_scores"`
	JurisdictionAlias  map[string]string              `yaml:"jurisdiction_aliases" json:"jurisdiction_aliases"`
	DefaultTypeScore   float64                        `yaml:"default_project_type_score" json:"default_project_type_score"`
	DefaultGovernance  float64                        `yaml:"default_governance_score" json:"default_governance_score"`
	NeutralScore       float64                        `yaml:"neutral_score" json:"neutral_score"` // used when an input is missing
	Tiers              TierCutoffs                    `yaml:"tiers" json:"tiers"`
}

// Validate checks that the rules are internally consistent
func (r Rules) Validate() error {
	if sum := r.Weights.Sum(); sum != 100 {
		return fmt.Errorf("%w: weights sum to %d%%, want 100%%", ErrInvalidRules, sum)
	}
	for _, d := range domain.Dimensions {
		if r.Weights.Get(d) < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidRules, d)
		}
	}

	curves := []struct {
		name  string
		curve Curve
	}{
		{"vintage_curve", r.VintageCurve},
		{"retirement_curve", r.RetirementCurve},
		{"additionality_curve", r.AdditionalityCurve},
	}
	for _, c := range curves {
		if err := c.curve.validate(c.name); err != nil {
			return err
		}
	}

	for kind, score := range r.ProjectTypeScores {
		if score < MinScore || score > MaxScore {
			return fmt.Errorf("%w: project type %q score %.2f outside [0,100]", ErrInvalidRules, kind, score)
		}
	}
	for place, score := range r.GovernanceScores {
		if score < MinScore || score > MaxScore {
			return fmt.Errorf("%w: jurisdiction %q score %.2f outside [0,100]", ErrInvalidRules, place, score)
		}
	}
	for _, s := range []float64{r.DefaultTypeScore, r.DefaultGovernance, r.NeutralScore} {
		if s < MinScore || s > MaxScore {
			return fmt.Errorf("%w: default score %.2f outside [0,100]", ErrInvalidRules, s)
		}
	}

	t := r.Tiers
	if !(t.Low < t.Medium && t.Medium < t.High && t.High < t.VeryHigh) {
		return fmt.Errorf("%w: tier cutoffs must be strictly increasing", ErrInvalidRules)
	}
	return nil
}

// MethodologyRow documents one dimension for user-facing output
type MethodologyRow struct {
	Dimension domain.Dimension `json:"dimension"`
	Label     string           `json:"label"`
	Weight    int              `json:"weight_pct"`
	Rule      string           `json:"rule"`
}

// Describe documents every dimension with its weight and scoring rule
func (r Rules) Describe() []MethodologyRow {
	rules := map[domain.Dimension]string{
		domain.DimensionVintage: fmt.Sprintf(
			"Age of the latest vintage in years (registration year if none), piecewise linear: %s. Unknown: %g.",
			r.VintageCurve, r.NeutralScore),
		domain.DimensionIssuanceRetirement: fmt.Sprintf(
			"Retired/issued ratio, piecewise linear: %s. Nothing issued: %g.",
			r.RetirementCurve, r.NeutralScore),
		domain.DimensionProjectType: fmt.Sprintf(
			"Lookup by project type: %s. Unclassified: %g.",
			describeTypeTable(r.ProjectTypeScores), r.DefaultTypeScore),
		domain.DimensionTransparency: fmt.Sprintf(
			"Share of %d documentation indicators present (%s) x 100.",
			len(TransparencyIndicators), strings.Join(TransparencyIndicators, ", ")),
		domain.DimensionAdditionality: fmt.Sprintf(
			"Years between crediting start and registration, piecewise linear: %s. Registered before start scores as 0 years. Unknown: %g.",
			r.AdditionalityCurve, r.NeutralScore),
		domain.DimensionGeography: fmt.Sprintf(
			"Governance lookup over %d jurisdictions (0-100). Unclassified: %g.",
			len(r.GovernanceScores), r.DefaultGovernance),
	}

	rows := make([]MethodologyRow, 0, len(domain.Dimensions))
	for _, d := range domain.Dimensions {
		rows = append(rows, MethodologyRow{
			Dimension: d,
			Label:     d.Label(),
			Weight:    r.Weights.Get(d),
			Rule:      rules[d],
		})
	}
	return rows
}

func describeTypeTable(table map[domain.ProjectType]float64) string {
	kinds := make([]string, 0, len(table))
	for k := range table {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s %g", k, table[domain.ProjectType(k)]))
	}
	return strings.Join(parts, "; ")
}
