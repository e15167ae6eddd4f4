package domain

import "strings"

// ProjectType is the canonical project category
type ProjectType string

const (
	ProjectTypeREDD                 ProjectType = "REDD+"
	ProjectTypeAvoidedDeforestation ProjectType = "Avoided Deforestation"
	ProjectTypeIFM                  ProjectType = "Improved Forest Management"
	ProjectTypeARR                  ProjectType = "Afforestation/Reforestation"
	ProjectTypeALM                  ProjectType = "Agricultural Land Management"
	ProjectTypeWRC                  ProjectType = "Wetland Restoration"
	ProjectTypeRenewableEnergy      ProjectType = "Renewable Energy"
	ProjectTypeCookstove            ProjectType = "Cookstove"
	ProjectTypeMethaneCapture       ProjectType = "Methane Capture"
	ProjectTypeEnergyEfficiency     ProjectType = "Energy Efficiency"
	ProjectTypeIndustrial           ProjectType = "Industrial"
	ProjectTypeOther                ProjectType = "Other"
)

// typeKeywords is checked in order; the first substring match wins.
// Short registry codes (ARR, IFM, ...) only match a whole value.
var typeKeywords = []struct {
	keyword string
	exact   bool
	kind    ProjectType
}{
	{"redd", false, ProjectTypeREDD},
	{"avoided deforestation", false, ProjectTypeAvoidedDeforestation},
	{"avoided unplanned", false, ProjectTypeAvoidedDeforestation},
	{"avoided planned", false, ProjectTypeAvoidedDeforestation},
	{"improved forest", false, ProjectTypeIFM},
	{"ifm", true, ProjectTypeIFM},
	{"afforestation", false, ProjectTypeARR},
	{"reforestation", false, ProjectTypeARR},
	{"revegetation", false, ProjectTypeARR},
	{"arr", true, ProjectTypeARR},
	{"agricultur", false, ProjectTypeALM},
	{"alm", true, ProjectTypeALM},
	{"wetland", false, ProjectTypeWRC},
	{"wrc", true, ProjectTypeWRC},
	{"cookstove", false, ProjectTypeCookstove},
	{"cook stove", false, ProjectTypeCookstove},
	{"hfc", false, ProjectTypeIndustrial},
	{"renewable", false, ProjectTypeRenewableEnergy},
	{"wind", false, ProjectTypeRenewableEnergy},
	{"solar", false, ProjectTypeRenewableEnergy},
	{"hydro", false, ProjectTypeRenewableEnergy},
	{"geothermal", false, ProjectTypeRenewableEnergy},
	{"methane", false, ProjectTypeMethaneCapture},
	{"landfill", false, ProjectTypeMethaneCapture},
	{"biogas", false, ProjectTypeMethaneCapture},
	{"manure", false, ProjectTypeMethaneCapture},
	{"livestock", false, ProjectTypeMethaneCapture},
	{"waste", false, ProjectTypeMethaneCapture},
	{"energy efficiency", false, ProjectTypeEnergyEfficiency},
	{"energy demand", false, ProjectTypeEnergyEfficiency},
	{"industrial", false, ProjectTypeIndustrial},
	{"ozone", false, ProjectTypeIndustrial},
	{"chemical", false, ProjectTypeIndustrial},
}

// ParseProjectType maps a raw registry label onto a canonical ProjectType.
// Unrecognised or empty labels map to ProjectTypeOther.
func ParseProjectType(raw string) ProjectType {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return ProjectTypeOther
	}

	for _, k := range typeKeywords {
		if k.exact {
			if lower == k.keyword {
				return k.kind
			}
			continue
		}
		if strings.Contains(lower, k.keyword) {
			return k.kind
		}
	}
	return ProjectTypeOther
}
