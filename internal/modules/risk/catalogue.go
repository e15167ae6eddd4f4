// Package risk detects integrity red flags on scored carbon offset projects.
// Each rule is independent of the composite score; a project may score well
// and still carry flags.
package risk

import "github.com/aristath/carbonscreen/internal/domain"

// Flag codes
const (
	FlagLowDemand           domain.FlagCode = "LOW_DEMAND"
	FlagZeroRetirements     domain.FlagCode = "ZERO_RETIREMENTS"
	FlagAgingCredits        domain.FlagCode = "AGING_CREDITS"
	FlagControversyRisk     domain.FlagCode = "CONTROVERSY_RISK"
	FlagMassiveIssuance     domain.FlagCode = "MASSIVE_ISSUANCE"
	FlagRegistrationLag     domain.FlagCode = "REGISTRATION_LAG"
	FlagWeakGovernance      domain.FlagCode = "WEAK_GOVERNANCE"
	FlagExpiredCrediting    domain.FlagCode = "EXPIRED_CREDITING"
	FlagIncompleteData      domain.FlagCode = "INCOMPLETE_DATA"
	FlagInconsistentVolumes domain.FlagCode = "INCONSISTENT_VOLUMES"
	FlagUnclassifiedType    domain.FlagCode = "UNCLASSIFIED_TYPE"
	FlagUnclassifiedRegion  domain.FlagCode = "UNCLASSIFIED_REGION"
)

// FlagDefinition describes one catalogue entry
type FlagDefinition struct {
	Code        domain.FlagCode `json:"code"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Severity    domain.Severity `json:"severity"`
}

// Catalogue lists every flag in evaluation order
var Catalogue = []FlagDefinition{
	{
		Code:        FlagLowDemand,
		Label:       "Low Demand",
		Description: "Retired share of issued credits is below the low-demand threshold.",
		Severity:    domain.SeverityHigh,
	},
	{
		Code:        FlagZeroRetirements,
		Label:       "No Retirements Recorded",
		Description: "Credits were issued but none have been retired.",
		Severity:    domain.SeverityHigh,
	},
	{
		Code:        FlagAgingCredits,
		Label:       "Aging Credits",
		Description: "Latest vintage is older than the aging threshold; credits may face a market discount.",
		Severity:    domain.SeverityMedium,
	},
	{
		Code:        FlagControversyRisk,
		Label:       "Controversy Risk",
		Description: "High-risk project category (REDD+/avoided deforestation) with weak public documentation.",
		Severity:    domain.SeverityHigh,
	},
	{
		Code:        FlagMassiveIssuance,
		Label:       "Unusually High Issuance Volume",
		Description: "Total issuance exceeds the volume threshold; may indicate an inflated baseline.",
		Severity:    domain.SeverityMedium,
	},
	{
		Code:        FlagRegistrationLag,
		Label:       "Long Registration Lag",
		Description: "Significant delay between crediting period start and registration.",
		Severity:    domain.SeverityMedium,
	},
	{
		Code:        FlagWeakGovernance,
		Label:       "Weak Host Country Governance",
		Description: "Jurisdiction governance score is below the threshold.",
		Severity:    domain.SeverityMedium,
	},
	{
		Code:        FlagExpiredCrediting,
		Label:       "Expired or Expiring Crediting Period",
		Description: "Crediting period has ended or ends within the expiry window.",
		Severity:    domain.SeverityLow,
	},
	{
		Code:        FlagIncompleteData,
		Label:       "Incomplete Public Documentation",
		Description: "Transparency score is below the threshold; key registry fields are missing.",
		Severity:    domain.SeverityLow,
	},
	{
		Code:        FlagInconsistentVolumes,
		Label:       "Inconsistent Volumes",
		Description: "More credits retired than issued; registry data needs review.",
		Severity:    domain.SeverityHigh,
	},
	{
		Code:        FlagUnclassifiedType,
		Label:       "Unclassified Project Type",
		Description: "Project type is not in the risk lookup table; the default score was applied.",
		Severity:    domain.SeverityLow,
	},
	{
		Code:        FlagUnclassifiedRegion,
		Label:       "Unclassified Region",
		Description: "Jurisdiction is not in the governance lookup table; the default score was applied.",
		Severity:    domain.SeverityLow,
	},
}

var catalogueIndex = func() map[domain.FlagCode]FlagDefinition {
	m := make(map[domain.FlagCode]FlagDefinition, len(Catalogue))
	for _, def := range Catalogue {
		m[def.Code] = def
	}
	return m
}()

// Lookup returns the catalogue entry of a flag code
func Lookup(code domain.FlagCode) (FlagDefinition, bool) {
	def, ok := catalogueIndex[code]
	return def, ok
}

// MaxSeverity returns the worst severity among the flags
func MaxSeverity(flags []domain.FlagCode) domain.Severity {
	worst := domain.SeverityNone
	for _, code := range flags {
		def, ok := Lookup(code)
		if ok && def.Severity.Rank() > worst.Rank() {
			worst = def.Severity
		}
	}
	return worst
}
