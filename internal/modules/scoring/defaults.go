package scoring

import "github.com/aristath/carbonscreen/internal/domain"

// Score bounds
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Composite weights in percent (must sum to 100)
const (
	WeightVintage            = 20 // Credit age
	WeightIssuanceRetirement = 20 // Retired/issued ratio as a demand signal
	WeightProjectType        = 20 // Category permanence and additionality risk
	WeightTransparency       = 15 // Public documentation completeness
	WeightAdditionality      = 15 // Registration lag proxy
	WeightGeography          = 10 // Host jurisdiction governance
)

const (
	// NeutralScore is used when the input a dimension needs is missing
	NeutralScore = 50.0
	// DefaultProjectTypeScore applies to types absent from the lookup table
	DefaultProjectTypeScore = 50.0
	// DefaultGovernanceScore applies to jurisdictions absent from the lookup table
	DefaultGovernanceScore = 50.0
)

// DefaultRules returns the documented scoring policy.
// Each call returns fresh maps so callers may overlay their own values.
func DefaultRules() Rules {
	return Rules{
		Weights: Weights{
			Vintage:            WeightVintage,
			IssuanceRetirement: WeightIssuanceRetirement,
			ProjectType:        WeightProjectType,
			Transparency:       WeightTransparency,
			Additionality:      WeightAdditionality,
			Geography:          WeightGeography,
		},
		// Flat for two years, linear decay to 25 at eight years, near floor past that
		VintageCurve: Curve{Points: []Point{
			{X: 0, Y: 100},
			{X: 2, Y: 100},
			{X: 8, Y: 25},
			{X: 12, Y: 5},
		}},
		RetirementCurve: Curve{Points: []Point{
			{X: 0, Y: 0},
			{X: 0.05, Y: 10},
			{X: 0.20, Y: 30},
			{X: 0.50, Y: 60},
			{X: 0.80, Y: 100},
		}},
		AdditionalityCurve: Curve{Points: []Point{
			{X: 0, Y: 100},
			{X: 1, Y: 90},
			{X: 3, Y: 75},
			{X: 6, Y: 55},
			{X: 10, Y: 35},
			{X: 15, Y: 15},
		}},
		ProjectTypeScores: map[domain.ProjectType]float64{
			domain.ProjectTypeREDD:                 30,
			domain.ProjectTypeAvoidedDeforestation: 30,
			domain.ProjectTypeIFM:                  60,
			domain.ProjectTypeARR:                  60,
			domain.ProjectTypeALM:                  60,
			domain.ProjectTypeWRC:                  60,
			domain.ProjectTypeIndustrial:           65,
			domain.ProjectTypeCookstove:            70,
			domain.ProjectTypeMethaneCapture:       80,
			domain.ProjectTypeEnergyEfficiency:     85,
			domain.ProjectTypeRenewableEnergy:      90,
		},
		// World Governance Indicators tiers, simplified to 0-100
		GovernanceScores: map[string]float64{
			"brazil":                           55,
			"indonesia":                        50,
			"peru":                             60,
			"colombia":                         55,
			"mexico":                           60,
			"kenya":                            50,
			"tanzania":                         45,
			"cambodia":                         40,
			"india":                            55,
			"china":                            50,
			"vietnam":                          45,
			"madagascar":                       35,
			"democratic republic of the congo": 25,
			"uganda":                           40,
			"chile":                            75,
			"costa rica":                       75,
			"uruguay":                          75,
			"ghana":                            55,
			"senegal":                          55,
			"rwanda":                           60,
			"united states":                    85,
			"canada":                           85,
			"australia":                        85,
			"germany":                          90,
			"sweden":                           90,
		},
		JurisdictionAlias: map[string]string{
			"drc":                               "democratic republic of the congo",
			"dr congo":                          "democratic republic of the congo",
			"congo, democratic republic of":     "democratic republic of the congo",
			"congo, the democratic republic of": "democratic republic of the congo",
			"usa":                               "united states",
			"us":                                "united states",
			"united states of america":          "united states",
			"viet nam":                          "vietnam",
			"tanzania, united republic of":      "tanzania",
			"united republic of tanzania":       "tanzania",
		},
		DefaultTypeScore:  DefaultProjectTypeScore,
		DefaultGovernance: DefaultGovernanceScore,
		NeutralScore:      NeutralScore,
		Tiers: TierCutoffs{
			Low:      40,
			Medium:   55,
			High:     70,
			VeryHigh: 85,
		},
	}
}

// TransparencyIndicators names the fields counted by the transparency dimension
var TransparencyIndicators = []string{
	"proponent",
	"region",
	"methodology",
	"crediting period start",
	"crediting period end",
	"estimated annual reductions",
	"buffer pool",
	"project design document",
	"validation report",
	"monitoring report",
	"verification report",
}
