package universe

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/pkg/embedded"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verraHeader = "ID,Name,Proponent,Project Type,Methodology,Status,Country/Area,Region,Registration Date," +
	"Crediting Period Start,Crediting Period End,Vintages,Total Credits Issued,Total Credits Retired," +
	"Total Buffer Pool Credits,Est. Annual GHG Reductions,PDD,Validation Report,Monitoring Report,Verification Report\n"

func parseString(t *testing.T, s string) ParseResult {
	t.Helper()
	result, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return result
}

func TestParse_VerraRow(t *testing.T) {
	result := parseString(t, verraHeader+
		`VCS1001,Rimba Raya,Forest Co,REDD+,VM0007,Registered,Indonesia,Asia,2013-05-01,2009-11-01,2039-10-31,2015;2016,"1,500,000",300000,150000,200000,Yes,Yes,No,x`+"\n")

	require.Len(t, result.Records, 1)
	assert.Empty(t, result.Dropped)

	r := result.Records[0]
	assert.Equal(t, "VCS1001", r.ID)
	assert.Equal(t, "Rimba Raya", r.Name)
	assert.Equal(t, "Forest Co", r.Proponent)
	assert.Equal(t, domain.ProjectTypeREDD, r.Type)
	assert.Equal(t, "REDD+", r.RawType)
	assert.Equal(t, "VM0007", r.Methodology)
	assert.Equal(t, "Registered", r.Status)
	assert.Equal(t, "Indonesia", r.Country)
	assert.Equal(t, "Asia", r.Region)
	assert.Equal(t, time.Date(2013, 5, 1, 0, 0, 0, 0, time.UTC), r.RegistrationDate)
	assert.Equal(t, time.Date(2009, 11, 1, 0, 0, 0, 0, time.UTC), r.CreditingStart)
	assert.Equal(t, time.Date(2039, 10, 31, 0, 0, 0, 0, time.UTC), r.CreditingEnd)
	assert.Equal(t, []int{2015, 2016}, r.VintageYears)
	assert.Equal(t, int64(1_500_000), r.Issued)
	assert.Equal(t, int64(300_000), r.Retired)
	assert.Equal(t, int64(150_000), r.BufferPool)
	assert.Equal(t, int64(200_000), r.EstimatedAnnual)
	assert.Equal(t, domain.Documentation{ProjectDesign: true, ValidationReport: true, VerificationReport: true}, r.Docs)
	assert.Equal(t, 2, r.SourceLine)
}

func TestParse_SnakeCaseHeaders(t *testing.T) {
	result := parseString(t, "project_id,project_type,country,total_issued,total_retired,vintage_years\n"+
		"P-1,Renewable Energy,Chile,100,40,2020-2022\n")

	require.Len(t, result.Records, 1)
	r := result.Records[0]
	assert.Equal(t, domain.ProjectTypeRenewableEnergy, r.Type)
	assert.Equal(t, []int{2020, 2021, 2022}, r.VintageYears)
	assert.True(t, r.RegistrationDate.IsZero(), "absent column stays unknown")
}

func TestParse_HeaderErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = Parse(strings.NewReader("ID,Name,Total Credits Issued\nVCS1,x,10\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "credits retired")
}

func TestParse_ByteOrderMark(t *testing.T) {
	result := parseString(t, "\ufeffID,Total Credits Issued,Total Credits Retired\nVCS1,10,5\n")
	require.Len(t, result.Records, 1)
	assert.Equal(t, "VCS1", result.Records[0].ID)
}

func TestParse_DropsMalformedRows(t *testing.T) {
	result := parseString(t, "ID,Total Credits Issued,Total Credits Retired\n"+
		"VCS1,100,10\n"+  // line 2: ok
		",100,10\n"+      // line 3: missing id
		"VCS3,lots,10\n"+ // line 4: non-numeric
		"VCS4,100,-5\n"+  // line 5: negative
		"VCS1,200,20\n"+  // line 6: duplicate
		"VCS6,100\n"+     // line 7: short row
		"VCS7,,\n")       // line 8: empty volumes count as zero

	ids := make([]string, 0, len(result.Records))
	for _, r := range result.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"VCS1", "VCS7"}, ids)

	require.Len(t, result.Dropped, 5)
	lines := []int{3, 4, 5, 6, 7}
	for i, d := range result.Dropped {
		assert.Equal(t, lines[i], d.Line)
		assert.NotEmpty(t, d.Reason)
	}
	assert.Contains(t, result.Dropped[0].Reason, "missing project id")
	assert.Contains(t, result.Dropped[1].Reason, "non-numeric")
	assert.Contains(t, result.Dropped[2].Reason, "negative")
	assert.Contains(t, result.Dropped[3].Reason, "duplicate")
	assert.Contains(t, result.Dropped[3].Reason, "line 2")
	assert.Contains(t, result.Dropped[4].Reason, "expected 3 fields")

	assert.Equal(t, int64(100), result.Records[0].Issued, "first occurrence kept")
	assert.Equal(t, int64(0), result.Records[1].Issued)
}

func TestParse_DroppingARowDoesNotAffectOthers(t *testing.T) {
	clean := "ID,Total Credits Issued,Total Credits Retired,Country/Area\nVCS1,100,10,Kenya\nVCS2,50,5,Peru\n"
	dirty := "ID,Total Credits Issued,Total Credits Retired,Country/Area\nVCS1,100,10,Kenya\nVCSX,n/a,5,Peru\nVCS2,50,5,Peru\n"

	a := parseString(t, clean)
	b := parseString(t, dirty)

	require.Len(t, b.Records, len(a.Records))
	assert.Len(t, b.Dropped, 1)
	for i := range a.Records {
		ra, rb := a.Records[i], b.Records[i]
		ra.SourceLine, rb.SourceLine = 0, 0
		assert.Equal(t, ra, rb)
	}
}

func TestParse_UnterminatedQuoteKeepsFollowingRows(t *testing.T) {
	result := parseString(t, "ID,Project Type,Total Credits Issued,Total Credits Retired\n"+
		"VCS1,REDD+,1000,0\n"+
		"VCS2,\"Wind,500,480\n"+
		"VCS3,Cookstove,800,100\n"+
		"VCS4,Wind,20,1\n")

	ids := make([]string, 0, len(result.Records))
	lines := make([]int, 0, len(result.Records))
	for _, r := range result.Records {
		ids = append(ids, r.ID)
		lines = append(lines, r.SourceLine)
	}
	assert.Equal(t, []string{"VCS1", "VCS3", "VCS4"}, ids)
	assert.Equal(t, []int{2, 4, 5}, lines)
	assert.Equal(t, int64(800), result.Records[1].Issued)

	require.Len(t, result.Dropped, 1)
	assert.Equal(t, 3, result.Dropped[0].Line)
	assert.Equal(t, "VCS2", result.Dropped[0].ID)
	assert.Equal(t, 4, len(result.Records)+len(result.Dropped), "every data row is accounted for")
}

func TestParse_DropsImplausibleVolumes(t *testing.T) {
	result := parseString(t, "ID,Total Credits Issued,Total Credits Retired\n"+
		"VCS1,4611686018427387903,0\n"+
		"VCS2,100,2000000000000\n"+
		"VCS3,100,10\n")

	require.Len(t, result.Records, 1)
	assert.Equal(t, "VCS3", result.Records[0].ID)
	require.Len(t, result.Dropped, 2)
	assert.Contains(t, result.Dropped[0].Reason, "credits issued")
	assert.Contains(t, result.Dropped[1].Reason, "credits retired")
}

func TestParse_SkipsBlankRows(t *testing.T) {
	result := parseString(t, "ID,Total Credits Issued,Total Credits Retired\nVCS1,1,0\n,,\n\nVCS2,2,0\n")
	assert.Len(t, result.Records, 2)
	assert.Empty(t, result.Dropped)
	assert.Equal(t, 5, result.Records[1].SourceLine)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1234", 1234, false},
		{"1,234,567", 1234567, false},
		{"1 234", 1234, false},
		{"1234.0", 1234, false},
		{"1234.5", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"1000000000000", MaxCreditVolume, false},
		{"1000000000001", 0, true},
		{"4611686018427387903", 0, true},
		{"1e18", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2015, 3, 14, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2015-03-14", "14/03/2015", "2015/03/14", "14-Mar-2015", "Mar 14, 2015", "2015-03-14T00:00:00Z"} {
		assert.True(t, want.Equal(parseDate(s)), s)
	}
	assert.True(t, parseDate("").IsZero())
	assert.True(t, parseDate("soon").IsZero())
}

func TestParseVintages(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"", nil},
		{"2015", []int{2015}},
		{"2016;2015", []int{2015, 2016}},
		{"2015, 2016, 2016", []int{2015, 2016}},
		{"2015-2018", []int{2015, 2016, 2017, 2018}},
		{"2015–2016", []int{2015, 2016}},
		{"2015.0", []int{2015}},
		{"2015;unknown;1800", []int{2015}},
		{"2018-2015", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVintages(tt.in))
		})
	}
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"Yes", "y", "TRUE", "1", "x", "Available", " yes "} {
		assert.True(t, ParseFlag(s), s)
	}
	for _, s := range []string{"", "No", "0", "false", "pending"} {
		assert.False(t, ParseFlag(s), s)
	}
}

func TestParse_EmbeddedSample(t *testing.T) {
	result, err := Parse(bytes.NewReader(embedded.SampleRegistry))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(result.Records), 40)
	require.Len(t, result.Dropped, 2)
	assert.Contains(t, result.Dropped[0].Reason, "duplicate")
	assert.Contains(t, result.Dropped[1].Reason, "non-numeric")

	for _, r := range result.Records {
		assert.NotEmpty(t, r.ID)
		assert.GreaterOrEqual(t, r.Issued, int64(0))
	}
}
