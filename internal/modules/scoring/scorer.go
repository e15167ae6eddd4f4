// Package scoring computes the Composite Quality Index (CQI) of carbon offset projects.
//
// Each of the six dimensions is an independent pure function of a
// ProjectRecord, the Rules, and a reference date. Sub-scores are clamped to
// [0,100] and combined with fixed percentage weights.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/rs/zerolog"
)

// Scorer applies one immutable rule set at a fixed reference date
type Scorer struct {
	rules      Rules
	governance map[string]float64 // keyed by normalised jurisdiction
	aliases    map[string]string
	reference  time.Time
	log        zerolog.Logger
}

// NewScorer validates the rules and builds a scorer for the given reference date
func NewScorer(rules Rules, reference time.Time, log zerolog.Logger) (*Scorer, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	governance := make(map[string]float64, len(rules.GovernanceScores))
	for place, score := range rules.GovernanceScores {
		governance[normalizeJurisdiction(place)] = score
	}
	aliases := make(map[string]string, len(rules.JurisdictionAlias))
	for alias, place := range rules.JurisdictionAlias {
		aliases[normalizeJurisdiction(alias)] = normalizeJurisdiction(place)
	}

	return &Scorer{
		rules:      rules,
		governance: governance,
		aliases:    aliases,
		reference:  reference,
		log:        log.With().Str("service", "scoring").Logger(),
	}, nil
}

// Rules returns the rule set the scorer applies
func (s *Scorer) Rules() Rules {
	return s.rules
}

// ReferenceDate returns the date ages are measured against
func (s *Scorer) ReferenceDate() time.Time {
	return s.reference
}

// Score computes the sub-scores, composite and tier of one record.
// The returned project carries no flags; see the risk package.
func (s *Scorer) Score(r domain.ProjectRecord) domain.ScoredProject {
	scores := domain.SubScores{
		Vintage:            VintageScore(r, s.rules, s.reference),
		IssuanceRetirement: IssuanceRetirementScore(r, s.rules),
		ProjectType:        s.projectTypeScore(r.Type),
		Transparency:       TransparencyScore(r),
		Additionality:      AdditionalityScore(r, s.rules),
		Geography:          s.geographyScore(r.Country),
	}
	composite := Composite(scores, s.rules.Weights)

	return domain.ScoredProject{
		Record:      r,
		Scores:      scores,
		Composite:   composite,
		Tier:        TierFor(composite, s.rules.Tiers),
		MaxSeverity: domain.SeverityNone,
	}
}

// ScoreAll scores every record, preserving input order
func (s *Scorer) ScoreAll(records []domain.ProjectRecord) []domain.ScoredProject {
	out := make([]domain.ScoredProject, 0, len(records))
	for _, r := range records {
		out = append(out, s.Score(r))
	}

	if len(out) > 0 {
		lo, hi := out[0].Composite, out[0].Composite
		for _, p := range out[1:] {
			lo = math.Min(lo, p.Composite)
			hi = math.Max(hi, p.Composite)
		}
		s.log.Info().
			Int("projects", len(out)).
			Float64("cqi_min", lo).
			Float64("cqi_max", hi).
			Msg("Scored projects")
	}
	return out
}

// KnownProjectType reports whether the type has its own lookup entry
func (s *Scorer) KnownProjectType(kind domain.ProjectType) bool {
	_, ok := s.rules.ProjectTypeScores[kind]
	return ok
}

// KnownJurisdiction reports whether the jurisdiction has its own lookup entry
func (s *Scorer) KnownJurisdiction(country string) bool {
	_, ok := s.lookupGovernance(country)
	return ok
}

func (s *Scorer) projectTypeScore(kind domain.ProjectType) float64 {
	if score, ok := s.rules.ProjectTypeScores[kind]; ok {
		return Clamp(score)
	}
	return Clamp(s.rules.DefaultTypeScore)
}

func (s *Scorer) geographyScore(country string) float64 {
	if score, ok := s.lookupGovernance(country); ok {
		return Clamp(score)
	}
	return Clamp(s.rules.DefaultGovernance)
}

func (s *Scorer) lookupGovernance(country string) (float64, bool) {
	key := normalizeJurisdiction(country)
	if key == "" {
		return 0, false
	}
	if canonical, ok := s.aliases[key]; ok {
		key = canonical
	}
	score, ok := s.governance[key]
	return score, ok
}

// VintageScore decreases with the age of the latest vintage
func VintageScore(r domain.ProjectRecord, rules Rules, ref time.Time) float64 {
	age, ok := r.VintageAge(ref)
	if !ok {
		return Clamp(rules.NeutralScore)
	}
	if age < 0 {
		age = 0
	}
	return Clamp(rules.VintageCurve.Eval(float64(age)))
}

// IssuanceRetirementScore increases with the share of issued credits retired
func IssuanceRetirementScore(r domain.ProjectRecord, rules Rules) float64 {
	ratio, ok := r.RetirementRatio()
	if !ok {
		return Clamp(rules.NeutralScore)
	}
	return Clamp(rules.RetirementCurve.Eval(ratio))
}

// TransparencyScore is the share of documentation indicators present
func TransparencyScore(r domain.ProjectRecord) float64 {
	present := []bool{
		strings.TrimSpace(r.Proponent) != "",
		strings.TrimSpace(r.Region) != "",
		strings.TrimSpace(r.Methodology) != "",
		!r.CreditingStart.IsZero(),
		!r.CreditingEnd.IsZero(),
		r.EstimatedAnnual > 0,
		r.BufferPool > 0,
		r.Docs.ProjectDesign,
		r.Docs.ValidationReport,
		r.Docs.MonitoringReport,
		r.Docs.VerificationReport,
	}

	count := 0
	for _, ok := range present {
		if ok {
			count++
		}
	}
	return Clamp(round(float64(count)/float64(len(present))*100, 1))
}

// AdditionalityScore decreases as the gap between activity start and registration grows
func AdditionalityScore(r domain.ProjectRecord, rules Rules) float64 {
	lag, ok := r.RegistrationLagYears()
	if !ok {
		return Clamp(rules.NeutralScore)
	}
	if lag < 0 {
		lag = 0
	}
	return Clamp(rules.AdditionalityCurve.Eval(lag))
}

// Composite is the weighted sum of the sub-scores rounded to two decimals
func Composite(scores domain.SubScores, weights Weights) float64 {
	total := 0.0
	for _, d := range domain.Dimensions {
		total += float64(weights.Get(d)) * scores.Get(d)
	}
	return Clamp(round(total/100, 2))
}

// TierFor maps a composite index onto its quality tier
func TierFor(composite float64, cutoffs TierCutoffs) domain.QualityTier {
	switch {
	case composite >= cutoffs.VeryHigh:
		return domain.TierVeryHigh
	case composite >= cutoffs.High:
		return domain.TierHigh
	case composite >= cutoffs.Medium:
		return domain.TierMedium
	case composite >= cutoffs.Low:
		return domain.TierLow
	}
	return domain.TierVeryLow
}

// Clamp bounds a score to [0,100]; NaN maps to the floor
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// FormatScore renders a score with one decimal
func FormatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func normalizeJurisdiction(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
