package risk

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/rs/zerolog"
)

// ErrInvalidThresholds is returned when flag thresholds fail validation
var ErrInvalidThresholds = errors.New("invalid flag thresholds")

// Thresholds parameterise the flag rules
type Thresholds struct {
	LowDemandRatio          float64              `yaml:"low_demand_ratio" json:"low_demand_ratio"`                 // retired/issued below this → LOW_DEMAND
	AgingVintageYears       int                  `yaml:"aging_vintage_years" json:"aging_vintage_years"`           // vintage age above this → AGING_CREDITS
	ControversyTransparency float64              `yaml:"controversy_transparency" json:"controversy_transparency"` // high-risk type with transparency below this
	MassiveIssuance         int64                `yaml:"massive_issuance" json:"massive_issuance"`                 // credits
	RegistrationLagYears    float64              `yaml:"registration_lag_years" json:"registration_lag_years"`     // lag above this → REGISTRATION_LAG
	WeakGovernance          float64              `yaml:"weak_governance" json:"weak_governance"`                   // geography score below this
	ExpiryWindowMonths      int                  `yaml:"expiry_window_months" json:"expiry_window_months"`         // crediting end within this window
	IncompleteTransparency  float64              `yaml:"incomplete_transparency" json:"incomplete_transparency"`   // transparency score below this
	HighRiskTypes           []domain.ProjectType `yaml:"high_risk_types" json:"high_risk_types"`
}

// DefaultThresholds returns the documented flag thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowDemandRatio:          0.10,
		AgingVintageYears:       8,
		ControversyTransparency: 60,
		MassiveIssuance:         50_000_000,
		RegistrationLagYears:    5,
		WeakGovernance:          45,
		ExpiryWindowMonths:      12,
		IncompleteTransparency:  40,
		HighRiskTypes: []domain.ProjectType{
			domain.ProjectTypeREDD,
			domain.ProjectTypeAvoidedDeforestation,
		},
	}
}

// Validate checks the thresholds are usable
func (t Thresholds) Validate() error {
	if t.LowDemandRatio < 0 || t.LowDemandRatio > 1 {
		return fmt.Errorf("%w: low_demand_ratio must be within [0,1]", ErrInvalidThresholds)
	}
	if t.AgingVintageYears < 0 || t.ExpiryWindowMonths < 0 || t.MassiveIssuance < 0 || t.RegistrationLagYears < 0 {
		return fmt.Errorf("%w: year, month and volume thresholds must not be negative", ErrInvalidThresholds)
	}
	for _, v := range []float64{t.ControversyTransparency, t.WeakGovernance, t.IncompleteTransparency} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: score thresholds must be within [0,100]", ErrInvalidThresholds)
		}
	}
	return nil
}

// Classifier reports whether lookup tables cover a type or jurisdiction
type Classifier interface {
	KnownProjectType(kind domain.ProjectType) bool
	KnownJurisdiction(country string) bool
}

type rule struct {
	code  domain.FlagCode
	check func(d *Detector, p domain.ScoredProject) bool
}

// rules run in catalogue order
var rules = []rule{
	{FlagLowDemand, func(d *Detector, p domain.ScoredProject) bool {
		ratio, ok := p.Record.RetirementRatio()
		return ok && ratio < d.thresholds.LowDemandRatio
	}},
	{FlagZeroRetirements, func(_ *Detector, p domain.ScoredProject) bool {
		return p.Record.Issued > 0 && p.Record.Retired == 0
	}},
	{FlagAgingCredits, func(d *Detector, p domain.ScoredProject) bool {
		age, ok := p.Record.VintageAge(d.reference)
		return ok && age > d.thresholds.AgingVintageYears
	}},
	{FlagControversyRisk, func(d *Detector, p domain.ScoredProject) bool {
		return d.highRisk[p.Record.Type] && p.Scores.Transparency < d.thresholds.ControversyTransparency
	}},
	{FlagMassiveIssuance, func(d *Detector, p domain.ScoredProject) bool {
		return p.Record.Issued > d.thresholds.MassiveIssuance
	}},
	{FlagRegistrationLag, func(d *Detector, p domain.ScoredProject) bool {
		lag, ok := p.Record.RegistrationLagYears()
		return ok && lag > d.thresholds.RegistrationLagYears
	}},
	{FlagWeakGovernance, func(d *Detector, p domain.ScoredProject) bool {
		return p.Scores.Geography < d.thresholds.WeakGovernance
	}},
	{FlagExpiredCrediting, func(d *Detector, p domain.ScoredProject) bool {
		end := p.Record.CreditingEnd
		return !end.IsZero() && !end.After(d.reference.AddDate(0, d.thresholds.ExpiryWindowMonths, 0))
	}},
	{FlagIncompleteData, func(d *Detector, p domain.ScoredProject) bool {
		return p.Scores.Transparency < d.thresholds.IncompleteTransparency
	}},
	{FlagInconsistentVolumes, func(_ *Detector, p domain.ScoredProject) bool {
		return p.Record.Retired > p.Record.Issued
	}},
	{FlagUnclassifiedType, func(d *Detector, p domain.ScoredProject) bool {
		return !d.classifier.KnownProjectType(p.Record.Type)
	}},
	{FlagUnclassifiedRegion, func(d *Detector, p domain.ScoredProject) bool {
		return !d.classifier.KnownJurisdiction(p.Record.Country)
	}},
}

// Detector evaluates the flag rules against scored projects
type Detector struct {
	thresholds Thresholds
	highRisk   map[domain.ProjectType]bool
	classifier Classifier
	reference  time.Time
	log        zerolog.Logger
}

// NewDetector creates a detector; ages and expiry are measured against reference
func NewDetector(thresholds Thresholds, classifier Classifier, reference time.Time, log zerolog.Logger) (*Detector, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}

	highRisk := make(map[domain.ProjectType]bool, len(thresholds.HighRiskTypes))
	for _, kind := range thresholds.HighRiskTypes {
		highRisk[kind] = true
	}

	return &Detector{
		thresholds: thresholds,
		highRisk:   highRisk,
		classifier: classifier,
		reference:  reference,
		log:        log.With().Str("service", "red_flags").Logger(),
	}, nil
}

// Thresholds returns the thresholds the detector applies
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Detect returns the flags raised by a project in catalogue order
func (d *Detector) Detect(p domain.ScoredProject) []domain.FlagCode {
	var flags []domain.FlagCode
	for _, r := range rules {
		if r.check(d, p) {
			flags = append(flags, r.code)
		}
	}
	return flags
}

// Apply returns a copy of the project carrying its flags
func (d *Detector) Apply(p domain.ScoredProject) domain.ScoredProject {
	flags := d.Detect(p)
	return p.WithFlags(flags, MaxSeverity(flags))
}

// ApplyAll flags every project, preserving order
func (d *Detector) ApplyAll(projects []domain.ScoredProject) []domain.ScoredProject {
	out := make([]domain.ScoredProject, 0, len(projects))
	flagged := 0
	for _, p := range projects {
		fp := d.Apply(p)
		if len(fp.Flags) > 0 {
			flagged++
		}
		out = append(out, fp)
	}

	d.log.Info().
		Int("flagged", flagged).
		Int("projects", len(out)).
		Msg("Flag detection complete")
	return out
}

// FlagStat is the incidence of one flag across a portfolio
type FlagStat struct {
	Code           domain.FlagCode `json:"flag_code"`
	Label          string          `json:"label"`
	Severity       domain.Severity `json:"severity"`
	Projects       int             `json:"project_count"`
	PctOfPortfolio float64         `json:"pct_of_portfolio"`
}

// Summary counts flag incidence, most frequent first (ties by code)
func Summary(projects []domain.ScoredProject) []FlagStat {
	counts := make(map[domain.FlagCode]int)
	for _, p := range projects {
		for _, code := range p.Flags {
			counts[code]++
		}
	}

	stats := make([]FlagStat, 0, len(counts))
	for code, n := range counts {
		stat := FlagStat{
			Code:     code,
			Label:    string(code),
			Severity: "unknown",
			Projects: n,
		}
		if def, ok := Lookup(code); ok {
			stat.Label = def.Label
			stat.Severity = def.Severity
		}
		if len(projects) > 0 {
			stat.PctOfPortfolio = roundPct(float64(n) / float64(len(projects)) * 100)
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Projects != stats[j].Projects {
			return stats[i].Projects > stats[j].Projects
		}
		return stats[i].Code < stats[j].Code
	})
	return stats
}

func roundPct(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// RuleDescription documents one flag rule with the thresholds in effect
type RuleDescription struct {
	Code     domain.FlagCode `json:"code"`
	Label    string          `json:"label"`
	Severity domain.Severity `json:"severity"`
	Rule     string          `json:"rule"`
}

// Describe documents every flag rule in catalogue order
func (t Thresholds) Describe() []RuleDescription {
	highRisk := make([]string, 0, len(t.HighRiskTypes))
	for _, kind := range t.HighRiskTypes {
		highRisk = append(highRisk, string(kind))
	}

	text := map[domain.FlagCode]string{
		FlagLowDemand:           fmt.Sprintf("Retired/issued below %.2f (credits issued only).", t.LowDemandRatio),
		FlagZeroRetirements:     "Credits issued and none retired.",
		FlagAgingCredits:        fmt.Sprintf("Latest vintage older than %d years.", t.AgingVintageYears),
		FlagControversyRisk:     fmt.Sprintf("Type in [%s] with transparency score below %g.", strings.Join(highRisk, ", "), t.ControversyTransparency),
		FlagMassiveIssuance:     fmt.Sprintf("More than %d credits issued.", t.MassiveIssuance),
		FlagRegistrationLag:     fmt.Sprintf("Registered more than %g years after crediting start.", t.RegistrationLagYears),
		FlagWeakGovernance:      fmt.Sprintf("Geography score below %g.", t.WeakGovernance),
		FlagExpiredCrediting:    fmt.Sprintf("Crediting period ended or ends within %d months.", t.ExpiryWindowMonths),
		FlagIncompleteData:      fmt.Sprintf("Transparency score below %g.", t.IncompleteTransparency),
		FlagInconsistentVolumes: "Retired credits exceed issued credits.",
		FlagUnclassifiedType:    "Project type missing from the type table; default score applied.",
		FlagUnclassifiedRegion:  "Jurisdiction missing from the governance table; default score applied.",
	}

	out := make([]RuleDescription, 0, len(Catalogue))
	for _, def := range Catalogue {
		out = append(out, RuleDescription{
			Code:     def.Code,
			Label:    def.Label,
			Severity: def.Severity,
			Rule:     text[def.Code],
		})
	}
	return out
}
