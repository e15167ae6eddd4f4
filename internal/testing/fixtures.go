package testing

import (
	"fmt"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
)

// ReferenceDate is the fixed "today" used across tests
var ReferenceDate = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

// Date builds a UTC date
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FullDocs lists every public document
var FullDocs = domain.Documentation{
	ProjectDesign:      true,
	ValidationReport:   true,
	MonitoringReport:   true,
	VerificationReport: true,
}

// NewHighRiskRecord returns an old REDD+ project with nothing retired
func NewHighRiskRecord() domain.ProjectRecord {
	return domain.ProjectRecord{
		ID:           "VCS-1001",
		Name:         "Rimba Forest Conservation",
		Proponent:    "Forest Co",
		Country:      "Brazil",
		Type:         domain.ProjectTypeREDD,
		RawType:      "REDD+",
		Status:       "Registered",
		Issued:       1000,
		Retired:      0,
		VintageYears: []int{2012},
		SourceLine:   2,
	}
}

// NewHighQualityRecord returns a recent, well documented wind project with strong retirements
func NewHighQualityRecord() domain.ProjectRecord {
	return domain.ProjectRecord{
		ID:               "VCS-2002",
		Name:             "Nordsee Wind Park",
		Proponent:        "Wind GmbH",
		Country:          "Germany",
		Region:           "Europe",
		Type:             domain.ProjectTypeRenewableEnergy,
		RawType:          "Energy industries (renewable/non-renewable sources)",
		Methodology:      "ACM0002",
		Status:           "Registered",
		RegistrationDate: Date(2022, 6, 1),
		CreditingStart:   Date(2022, 1, 1),
		CreditingEnd:     Date(2032, 1, 1),
		Issued:           500,
		Retired:          480,
		BufferPool:       5,
		EstimatedAnnual:  100,
		VintageYears:     []int{2023},
		Docs:             FullDocs,
		SourceLine:       3,
	}
}

// NewRecordFixtures returns a small mixed universe
func NewRecordFixtures() []domain.ProjectRecord {
	records := []domain.ProjectRecord{NewHighRiskRecord(), NewHighQualityRecord()}

	kinds := []domain.ProjectType{
		domain.ProjectTypeCookstove,
		domain.ProjectTypeMethaneCapture,
		domain.ProjectTypeARR,
		domain.ProjectTypeIFM,
	}
	countries := []string{"Kenya", "India", "Peru", "Canada"}
	for i, kind := range kinds {
		records = append(records, domain.ProjectRecord{
			ID:               fmt.Sprintf("VCS-30%02d", i),
			Name:             fmt.Sprintf("Fixture Project %d", i),
			Proponent:        "Fixture Developer",
			Country:          countries[i],
			Type:             kind,
			RawType:          string(kind),
			Methodology:      "VM0007",
			Status:           "Registered",
			RegistrationDate: Date(2016+i, 3, 1),
			CreditingStart:   Date(2015+i, 1, 1),
			CreditingEnd:     Date(2035, 1, 1),
			Issued:           int64(10_000 * (i + 1)),
			Retired:          int64(2_500 * (i + 1)),
			VintageYears:     []int{2018 + i, 2019 + i},
			Docs:             domain.Documentation{ProjectDesign: true, ValidationReport: i%2 == 0},
			SourceLine:       4 + i,
		})
	}
	return records
}
