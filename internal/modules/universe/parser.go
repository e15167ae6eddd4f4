package universe

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/internal/utils"
)

// MaxCreditVolume bounds a single credit count. Larger values are data
// errors and would overflow portfolio totals.
const MaxCreditVolume = 1_000_000_000_000

// Plausible vintage range; tokens outside it are ignored
const (
	MinVintageYear = 1990
	MaxVintageYear = 2100
	maxVintageSpan = 60
)

// dateLayouts are tried in order. Slash dates are day-first, as in Verra exports.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2/1/2006",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Parse reads a registry CSV export. Rows that fail a required-field rule
// are dropped with a reason; optional fields that fail to parse are left
// unknown.
func Parse(r io.Reader) (ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to read registry export: %w", err)
	}
	reader := newCSVReader(bytes.NewReader(data))

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, ErrNoHeader
	}
	if err != nil {
		return ParseResult{}, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := indexHeader(header)
	if err != nil {
		return ParseResult{}, err
	}

	p := &rowParser{width: len(header), cols: cols, firstSeen: make(map[string]int)}
	var lines []string

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				p.drop(perr.StartLine, "", "malformed CSV: "+perr.Err.Error())
				continue
			}
			return ParseResult{}, fmt.Errorf("failed to read registry export: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if !p.add(row, line) {
			continue
		}
		swallowed := countNewlines(row)
		if swallowed == 0 {
			continue
		}

		// An unbalanced quote runs to the end of the input and pulls every
		// following physical line into this row. Screen each of them on its
		// own so none goes uncounted.
		if lines == nil {
			lines = strings.Split(strings.TrimRight(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), "\n")
		}
		if line+swallowed < len(lines) {
			continue
		}
		for n := line + 1; n <= len(lines); n++ {
			p.addLine(lines[n-1], n)
		}
	}

	return p.result, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// rowParser accumulates records and drops across the rows of one export
type rowParser struct {
	width     int
	cols      columnIndex
	firstSeen map[string]int
	result    ParseResult
}

// add screens one row and reports whether it was dropped
func (p *rowParser) add(row []string, line int) bool {
	if isBlank(row) {
		return false
	}

	record, reason := parseRow(row, p.width, p.cols)
	record.SourceLine = line
	if reason == "" {
		if first, dup := p.firstSeen[record.ID]; dup {
			reason = fmt.Sprintf("duplicate project id (first seen on line %d)", first)
		}
	}
	if reason != "" {
		p.drop(line, record.ID, reason)
		return true
	}

	p.firstSeen[record.ID] = line
	p.result.Records = append(p.result.Records, record)
	return false
}

// addLine screens a single physical line
func (p *rowParser) addLine(text string, line int) {
	row, err := newCSVReader(strings.NewReader(text)).Read()
	if errors.Is(err, io.EOF) {
		return
	}
	if err != nil {
		p.drop(line, "", "malformed CSV: "+err.Error())
		return
	}
	p.add(row, line)
}

func (p *rowParser) drop(line int, id, reason string) {
	p.result.Dropped = append(p.result.Dropped, DroppedRow{Line: line, ID: id, Reason: reason})
}

func countNewlines(row []string) int {
	n := 0
	for _, cell := range row {
		n += strings.Count(cell, "\n")
	}
	return n
}

// parseRow converts one row. A non-empty reason means the row is dropped.
func parseRow(row []string, width int, cols columnIndex) (domain.ProjectRecord, string) {
	r := domain.ProjectRecord{ID: cols.get(row, fieldID)}

	if len(row) != width {
		return r, fmt.Sprintf("expected %d fields, got %d", width, len(row))
	}
	if r.ID == "" {
		return r, "missing project id"
	}

	var err error
	if r.Issued, err = parseCount(cols.get(row, fieldIssued)); err != nil {
		return r, "credits issued: " + err.Error()
	}
	if r.Retired, err = parseCount(cols.get(row, fieldRetired)); err != nil {
		return r, "credits retired: " + err.Error()
	}

	r.Name = cols.get(row, fieldName)
	r.Proponent = cols.get(row, fieldProponent)
	r.Country = cols.get(row, fieldCountry)
	r.Region = cols.get(row, fieldRegion)
	r.RawType = cols.get(row, fieldType)
	r.Type = domain.ParseProjectType(r.RawType)
	r.Methodology = cols.get(row, fieldMethodology)
	r.Status = cols.get(row, fieldStatus)
	r.RegistrationDate = parseDate(cols.get(row, fieldRegistrationDate))
	r.CreditingStart = parseDate(cols.get(row, fieldCreditingStart))
	r.CreditingEnd = parseDate(cols.get(row, fieldCreditingEnd))
	r.VintageYears = ParseVintages(cols.get(row, fieldVintages))
	r.BufferPool = parseOptionalCount(cols.get(row, fieldBufferPool))
	r.EstimatedAnnual = parseOptionalCount(cols.get(row, fieldEstimatedAnnual))
	r.Docs = domain.Documentation{
		ProjectDesign:      ParseFlag(cols.get(row, fieldPDD)),
		ValidationReport:   ParseFlag(cols.get(row, fieldValidationReport)),
		MonitoringReport:   ParseFlag(cols.get(row, fieldMonitoringReport)),
		VerificationReport: ParseFlag(cols.get(row, fieldVerificationReport)),
	}
	return r, ""
}

// parseCount parses a credit volume. Thousands separators are stripped and an
// empty cell counts as zero; negative or non-numeric values are errors.
func parseCount(s string) (int64, error) {
	clean := strings.NewReplacer(",", "", " ", "", "_", "", "\u00a0", "").Replace(s)
	if clean == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(clean, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, fmt.Errorf("non-numeric value %q", s)
		}
		if math.Abs(f) > MaxCreditVolume {
			return 0, fmt.Errorf("value %q exceeds %d", s, int64(MaxCreditVolume))
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	if n > MaxCreditVolume {
		return 0, fmt.Errorf("value %d exceeds %d", n, int64(MaxCreditVolume))
	}
	return n, nil
}

// parseOptionalCount treats anything unparseable as unknown (zero)
func parseOptionalCount(s string) int64 {
	n, err := parseCount(s)
	if err != nil {
		return 0
	}
	return n
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseVintages reads vintage lists such as "2015;2016", "2015, 2016" or
// "2015-2018". Invalid tokens are ignored.
func ParseVintages(s string) []int {
	var years []int
	for _, token := range utils.ParseList(s, ";,| \t") {
		token = strings.ReplaceAll(token, "–", "-")
		if from, to, ok := strings.Cut(token, "-"); ok {
			lo, errLo := parseYear(from)
			hi, errHi := parseYear(to)
			if errLo != nil || errHi != nil || hi < lo || hi-lo > maxVintageSpan {
				continue
			}
			for y := lo; y <= hi; y++ {
				years = append(years, y)
			}
			continue
		}
		if y, err := parseYear(token); err == nil {
			years = append(years, y)
		}
	}
	return domain.NormalizeVintages(years)
}

func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	// Some exports write vintages as floats ("2015.0")
	s = strings.TrimSuffix(s, ".0")
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if y < MinVintageYear || y > MaxVintageYear {
		return 0, fmt.Errorf("year %d out of range", y)
	}
	return y, nil
}

// ParseFlag reads a documentation availability cell
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "x", "available", "✓":
		return true
	}
	return false
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
