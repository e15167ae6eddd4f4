// Package domain provides core domain models and types.
package domain

import (
	"sort"
	"time"
)

// ProjectRecord is one registry row after parsing. Records are passed by
// value and never modified after the loader returns them.
type ProjectRecord struct {
	RegistrationDate time.Time     `json:"registration_date" msgpack:"registration_date"`
	CreditingStart   time.Time     `json:"crediting_start" msgpack:"crediting_start"`
	CreditingEnd     time.Time     `json:"crediting_end" msgpack:"crediting_end"`
	ID               string        `json:"project_id" msgpack:"project_id"`
	Name             string        `json:"name" msgpack:"name"`
	Proponent        string        `json:"proponent" msgpack:"proponent"`
	Country          string        `json:"country" msgpack:"country"`
	Region           string        `json:"region" msgpack:"region"`
	Type             ProjectType   `json:"project_type" msgpack:"project_type"`
	RawType          string        `json:"project_type_raw" msgpack:"project_type_raw"`
	Methodology      string        `json:"methodology" msgpack:"methodology"`
	Status           string        `json:"status" msgpack:"status"`
	VintageYears     []int         `json:"vintage_years" msgpack:"vintage_years"` // Ascending, unique
	Issued           int64         `json:"total_issued" msgpack:"total_issued"`
	Retired          int64         `json:"total_retired" msgpack:"total_retired"`
	BufferPool       int64         `json:"total_buffer_pool" msgpack:"total_buffer_pool"`
	EstimatedAnnual  int64         `json:"estimated_annual_reductions" msgpack:"estimated_annual_reductions"`
	Docs             Documentation `json:"documentation" msgpack:"documentation"`
	SourceLine       int           `json:"source_line" msgpack:"source_line"` // 1-based line in the source CSV
}

// Documentation records which public project documents the registry lists
type Documentation struct {
	ProjectDesign      bool `json:"pdd" msgpack:"pdd"`
	ValidationReport   bool `json:"validation_report" msgpack:"validation_report"`
	MonitoringReport   bool `json:"monitoring_report" msgpack:"monitoring_report"`
	VerificationReport bool `json:"verification_report" msgpack:"verification_report"`
}

// Count returns how many of the documents are available
func (d Documentation) Count() int {
	n := 0
	for _, ok := range []bool{d.ProjectDesign, d.ValidationReport, d.MonitoringReport, d.VerificationReport} {
		if ok {
			n++
		}
	}
	return n
}

// RetirementRatio returns retired/issued capped to [0,1].
// The second return value is false when nothing was issued.
func (r ProjectRecord) RetirementRatio() (float64, bool) {
	if r.Issued <= 0 {
		return 0, false
	}
	ratio := float64(r.Retired) / float64(r.Issued)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true
}

// NetCredits returns issued minus retired credits (never negative)
func (r ProjectRecord) NetCredits() int64 {
	if r.Retired >= r.Issued {
		return 0
	}
	return r.Issued - r.Retired
}

// LatestVintage returns the most recent vintage year, falling back to the
// registration year when no vintages are listed.
func (r ProjectRecord) LatestVintage() (int, bool) {
	if n := len(r.VintageYears); n > 0 {
		return r.VintageYears[n-1], true
	}
	if !r.RegistrationDate.IsZero() {
		return r.RegistrationDate.Year(), true
	}
	return 0, false
}

// VintageAge returns whole years between the latest vintage and the reference date
func (r ProjectRecord) VintageAge(ref time.Time) (int, bool) {
	year, ok := r.LatestVintage()
	if !ok {
		return 0, false
	}
	return ref.Year() - year, true
}

// RegistrationLagYears returns the gap between crediting start and registration in years.
// Negative values mean the project registered before activity started.
func (r ProjectRecord) RegistrationLagYears() (float64, bool) {
	if r.RegistrationDate.IsZero() || r.CreditingStart.IsZero() {
		return 0, false
	}
	return r.RegistrationDate.Sub(r.CreditingStart).Hours() / 24 / 365.25, true
}

// NormalizeVintages sorts and de-duplicates vintage years
func NormalizeVintages(years []int) []int {
	if len(years) == 0 {
		return nil
	}
	out := make([]int, len(years))
	copy(out, years)
	sort.Ints(out)

	unique := out[:1]
	for _, y := range out[1:] {
		if y != unique[len(unique)-1] {
			unique = append(unique, y)
		}
	}
	return unique
}

// Dimension names one of the six scoring dimensions
type Dimension string

const (
	DimensionVintage            Dimension = "vintage"
	DimensionIssuanceRetirement Dimension = "issuance_retirement"
	DimensionProjectType        Dimension = "project_type"
	DimensionTransparency       Dimension = "transparency"
	DimensionAdditionality      Dimension = "additionality"
	DimensionGeography          Dimension = "geography"
)

// Dimensions lists the scoring dimensions in report column order
var Dimensions = []Dimension{
	DimensionVintage,
	DimensionIssuanceRetirement,
	DimensionProjectType,
	DimensionTransparency,
	DimensionAdditionality,
	DimensionGeography,
}

// Label returns the human readable dimension name
func (d Dimension) Label() string {
	switch d {
	case DimensionVintage:
		return "Vintage"
	case DimensionIssuanceRetirement:
		return "Issuance/Retirement"
	case DimensionProjectType:
		return "Project Type"
	case DimensionTransparency:
		return "Transparency"
	case DimensionAdditionality:
		return "Additionality"
	case DimensionGeography:
		return "Geography"
	}
	return string(d)
}

// SubScores holds the six per-dimension scores, each in [0,100]
type SubScores struct {
	Vintage            float64 `json:"vintage_score"`
	IssuanceRetirement float64 `json:"issuance_retirement_score"`
	ProjectType        float64 `json:"project_type_score"`
	Transparency       float64 `json:"transparency_score"`
	Additionality      float64 `json:"additionality_score"`
	Geography          float64 `json:"geography_score"`
}

// Get returns the score for a dimension
func (s SubScores) Get(d Dimension) float64 {
	switch d {
	case DimensionVintage:
		return s.Vintage
	case DimensionIssuanceRetirement:
		return s.IssuanceRetirement
	case DimensionProjectType:
		return s.ProjectType
	case DimensionTransparency:
		return s.Transparency
	case DimensionAdditionality:
		return s.Additionality
	case DimensionGeography:
		return s.Geography
	}
	return 0
}

// QualityTier buckets the composite index
type QualityTier string

const (
	TierVeryLow  QualityTier = "Very Low"
	TierLow      QualityTier = "Low"
	TierMedium   QualityTier = "Medium"
	TierHigh     QualityTier = "High"
	TierVeryHigh QualityTier = "Very High"
)

// Tiers lists quality tiers from worst to best
var Tiers = []QualityTier{TierVeryLow, TierLow, TierMedium, TierHigh, TierVeryHigh}

// ScoredProject is a ProjectRecord with its derived scores and flags.
// Values are rebuilt rather than patched: WithFlags returns a copy.
type ScoredProject struct {
	Record      ProjectRecord `json:"record"`
	Scores      SubScores     `json:"scores"`
	Composite   float64       `json:"cqi"`
	Tier        QualityTier   `json:"quality_tier"`
	Flags       []FlagCode    `json:"flags"`
	MaxSeverity Severity      `json:"max_severity"`
}

// WithFlags returns a copy of the project carrying the given flags
func (p ScoredProject) WithFlags(flags []FlagCode, maxSeverity Severity) ScoredProject {
	out := p
	out.Flags = append([]FlagCode(nil), flags...)
	out.MaxSeverity = maxSeverity
	return out
}

// HasFlag reports whether the project carries the flag
func (p ScoredProject) HasFlag(code FlagCode) bool {
	for _, f := range p.Flags {
		if f == code {
			return true
		}
	}
	return false
}

// FlagCode identifies a red flag rule
type FlagCode string

// Severity of a red flag
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities: none < low < medium < high
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}
