package universe

import (
	"fmt"
	"strings"

	"github.com/aristath/carbonscreen/internal/utils"
)

// field is a canonical ProjectRecord column
type field int

const (
	fieldID field = iota
	fieldName
	fieldProponent
	fieldCountry
	fieldRegion
	fieldType
	fieldMethodology
	fieldStatus
	fieldRegistrationDate
	fieldCreditingStart
	fieldCreditingEnd
	fieldVintages
	fieldIssued
	fieldRetired
	fieldBufferPool
	fieldEstimatedAnnual
	fieldPDD
	fieldValidationReport
	fieldMonitoringReport
	fieldVerificationReport
)

var fieldNames = map[field]string{
	fieldID:      "project id",
	fieldIssued:  "credits issued",
	fieldRetired: "credits retired",
}

// requiredFields must be present in every export
var requiredFields = []field{fieldID, fieldIssued, fieldRetired}

// headerAliases maps normalised header names (see utils.NormalizeKey) to
// canonical fields. Verra export names and snake_case names are both accepted.
var headerAliases = map[string]field{
	"id":                                   fieldID,
	"project_id":                           fieldID,
	"resourceidentifier":                   fieldID,
	"name":                                 fieldName,
	"project_name":                         fieldName,
	"resourcename":                         fieldName,
	"proponent":                            fieldProponent,
	"project_proponent":                    fieldProponent,
	"country":                              fieldCountry,
	"country_area":                         fieldCountry,
	"jurisdiction":                         fieldCountry,
	"region":                               fieldRegion,
	"project_type":                         fieldType,
	"projecttype":                          fieldType,
	"type":                                 fieldType,
	"methodology":                          fieldMethodology,
	"methodologies":                        fieldMethodology,
	"status":                               fieldStatus,
	"registration_date":                    fieldRegistrationDate,
	"registrationdate":                     fieldRegistrationDate,
	"crediting_period_start":               fieldCreditingStart,
	"crediting_period_start_date":          fieldCreditingStart,
	"crediting_period_end":                 fieldCreditingEnd,
	"crediting_period_end_date":            fieldCreditingEnd,
	"vintages":                             fieldVintages,
	"vintage_years":                        fieldVintages,
	"vintage_year":                         fieldVintages,
	"vintage":                              fieldVintages,
	"total_credits_issued":                 fieldIssued,
	"total_issued":                         fieldIssued,
	"credits_issued":                       fieldIssued,
	"credits_issued_total":                 fieldIssued,
	"total_vcus_issued":                    fieldIssued,
	"totalvcus":                            fieldIssued,
	"total_credits_retired":                fieldRetired,
	"total_retired":                        fieldRetired,
	"credits_retired":                      fieldRetired,
	"credits_retired_total":                fieldRetired,
	"totalvcusretired":                     fieldRetired,
	"total_buffer_pool_credits":            fieldBufferPool,
	"total_buffer_pool":                    fieldBufferPool,
	"buffer_pool":                          fieldBufferPool,
	"credits_in_buffer":                    fieldBufferPool,
	"est_annual_ghg_reductions":            fieldEstimatedAnnual,
	"estimated_annual_reductions":          fieldEstimatedAnnual,
	"estimated_annual_emission_reductions": fieldEstimatedAnnual,
	"pdd":                                  fieldPDD,
	"project_design_document":              fieldPDD,
	"has_pdd":                              fieldPDD,
	"validation_report":                    fieldValidationReport,
	"has_validation_report":                fieldValidationReport,
	"monitoring_report":                    fieldMonitoringReport,
	"has_monitoring_report":                fieldMonitoringReport,
	"verification_report":                  fieldVerificationReport,
	"has_verification_report":              fieldVerificationReport,
}

// columnIndex maps canonical fields to their position in a row
type columnIndex map[field]int

// indexHeader resolves a header row. The first column claiming a field wins;
// unknown columns are ignored.
func indexHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex)
	for i, name := range header {
		// NormalizeKey also drops a leading byte order mark
		f, ok := headerAliases[utils.NormalizeKey(name)]
		if !ok {
			continue
		}
		if _, seen := idx[f]; !seen {
			idx[f] = i
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := idx[f]; !ok {
			missing = append(missing, fieldNames[f])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

// get returns the trimmed cell of f, or "" when the column is absent
func (c columnIndex) get(row []string, f field) string {
	i, ok := c[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
