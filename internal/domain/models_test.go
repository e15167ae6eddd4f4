package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProjectRecord_RetirementRatio(t *testing.T) {
	tests := []struct {
		name     string
		issued   int64
		retired  int64
		expected float64
		ok       bool
	}{
		{name: "nothing issued", issued: 0, retired: 0, expected: 0, ok: false},
		{name: "half retired", issued: 1000, retired: 500, expected: 0.5, ok: true},
		{name: "zero retired", issued: 1000, retired: 0, expected: 0, ok: true},
		{name: "over retired is capped", issued: 100, retired: 150, expected: 1, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ProjectRecord{Issued: tt.issued, Retired: tt.retired}
			ratio, ok := r.RetirementRatio()
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, ratio, 1e-9)
		})
	}
}

func TestProjectRecord_LatestVintage(t *testing.T) {
	reg := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)

	year, ok := ProjectRecord{VintageYears: []int{2016, 2019}, RegistrationDate: reg}.LatestVintage()
	assert.True(t, ok)
	assert.Equal(t, 2019, year)

	year, ok = ProjectRecord{RegistrationDate: reg}.LatestVintage()
	assert.True(t, ok, "falls back to registration year")
	assert.Equal(t, 2015, year)

	_, ok = ProjectRecord{}.LatestVintage()
	assert.False(t, ok)
}

func TestProjectRecord_VintageAge(t *testing.T) {
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	age, ok := ProjectRecord{VintageYears: []int{2012}}.VintageAge(ref)
	assert.True(t, ok)
	assert.Equal(t, 12, age)
}

func TestProjectRecord_RegistrationLagYears(t *testing.T) {
	r := ProjectRecord{
		CreditingStart:   time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		RegistrationDate: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	lag, ok := r.RegistrationLagYears()
	assert.True(t, ok)
	assert.InDelta(t, 6.0, lag, 0.01)

	_, ok = ProjectRecord{RegistrationDate: r.RegistrationDate}.RegistrationLagYears()
	assert.False(t, ok)
}

func TestNormalizeVintages(t *testing.T) {
	in := []int{2018, 2015, 2018, 2016}
	out := NormalizeVintages(in)
	assert.Equal(t, []int{2015, 2016, 2018}, out)
	assert.Equal(t, []int{2018, 2015, 2018, 2016}, in, "input must not be modified")
	assert.Nil(t, NormalizeVintages(nil))
}

func TestScoredProject_WithFlagsCopies(t *testing.T) {
	base := ScoredProject{Record: ProjectRecord{ID: "VCS1"}, Composite: 50}
	flags := []FlagCode{"LOW_DEMAND"}

	flagged := base.WithFlags(flags, SeverityHigh)
	flags[0] = "CHANGED"

	assert.Empty(t, base.Flags)
	assert.Equal(t, []FlagCode{"LOW_DEMAND"}, flagged.Flags)
	assert.True(t, flagged.HasFlag("LOW_DEMAND"))
	assert.Equal(t, SeverityHigh, flagged.MaxSeverity)
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityNone.Rank(), SeverityLow.Rank())
	assert.Less(t, SeverityLow.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityHigh.Rank())
}

func TestDocumentation_Count(t *testing.T) {
	assert.Equal(t, 0, Documentation{}.Count())
	assert.Equal(t, 4, Documentation{true, true, true, true}.Count())
}

func TestParseProjectType(t *testing.T) {
	tests := []struct {
		raw      string
		expected ProjectType
	}{
		{"REDD+", ProjectTypeREDD},
		{"redd+ (avoided deforestation)", ProjectTypeREDD},
		{"Avoided Unplanned Deforestation and Degradation", ProjectTypeAvoidedDeforestation},
		{"Improved Forest Management", ProjectTypeIFM},
		{"ARR", ProjectTypeARR},
		{"Afforestation, Reforestation and Revegetation", ProjectTypeARR},
		{"Agriculture Forestry and Other Land Use", ProjectTypeALM},
		{"Renewable Energy", ProjectTypeRenewableEnergy},
		{"Wind power", ProjectTypeRenewableEnergy},
		{"HFC-23 destruction", ProjectTypeIndustrial},
		{"Improved Cookstoves", ProjectTypeCookstove},
		{"Methane Capture - Livestock", ProjectTypeMethaneCapture},
		{"Energy Efficiency", ProjectTypeEnergyEfficiency},
		{"", ProjectTypeOther},
		{"Blue sky thinking", ProjectTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseProjectType(tt.raw))
		})
	}
}
