// Package utils provides small parsing and timing helpers shared by the pipeline.
package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
func ParseCSV(s string) []string {
	return ParseList(s, ",")
}

// ParseList splits s on any of the separator runes and returns trimmed
// non-empty values. Returns nil when nothing remains.
func ParseList(s string, separators string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})

	var result []string
	for _, v := range fields {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// NormalizeKey lower-cases s and collapses every run of non-alphanumeric
// characters into a single underscore ("Country/Area" -> "country_area").
func NormalizeKey(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
