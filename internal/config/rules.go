package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/aristath/carbonscreen/internal/domain"
	"github.com/aristath/carbonscreen/internal/modules/risk"
	"github.com/aristath/carbonscreen/internal/modules/scoring"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRules is returned when a rules file cannot be read or fails validation
var ErrInvalidRules = errors.New("invalid rules")

// Rules bundles the scoring policy and the flag thresholds
type Rules struct {
	Scoring scoring.Rules   `yaml:"scoring"`
	Flags   risk.Thresholds `yaml:"flags"`
}

// DefaultRules returns the documented scoring policy and flag thresholds
func DefaultRules() Rules {
	return Rules{
		Scoring: scoring.DefaultRules(),
		Flags:   risk.DefaultThresholds(),
	}
}

// LoadRules returns the defaults overlaid with the YAML file at path.
// An empty path returns the defaults. Keys present in the file replace the
// default value; lookup table entries are merged.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("%w: read rules file: %w", ErrInvalidRules, err)
	}
	if err := decodeRules(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("%w: %s: %w", ErrInvalidRules, path, err)
	}
	return rules, nil
}

func decodeRules(data []byte, rules *Rules) error {
	// The type table is decoded on its own so file keys can be checked
	// before they are merged over the defaults
	defaults := rules.Scoring.ProjectTypeScores
	rules.Scoring.ProjectTypeScores = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(rules); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse rules file: %w", err)
	}

	overrides, err := canonicalTypes(rules.Scoring.ProjectTypeScores)
	if err != nil {
		return fmt.Errorf("project_type_scores: %w", err)
	}
	merged := make(map[domain.ProjectType]float64, len(defaults)+len(overrides))
	for kind, score := range defaults {
		merged[kind] = score
	}
	for kind, score := range overrides {
		merged[kind] = score
	}
	rules.Scoring.ProjectTypeScores = merged

	highRisk := make([]domain.ProjectType, 0, len(rules.Flags.HighRiskTypes))
	seen := make(map[domain.ProjectType]bool, len(rules.Flags.HighRiskTypes))
	for _, raw := range rules.Flags.HighRiskTypes {
		kind, err := canonicalType(string(raw))
		if err != nil {
			return fmt.Errorf("high_risk_types: %w", err)
		}
		if !seen[kind] {
			seen[kind] = true
			highRisk = append(highRisk, kind)
		}
	}
	rules.Flags.HighRiskTypes = highRisk

	if err := rules.Scoring.Validate(); err != nil {
		return err
	}
	return rules.Flags.Validate()
}

// canonicalTypes re-keys a type table so registry spellings ("REDD", "cookstoves")
// resolve to the canonical project type. Unrecognised names and two names for
// the same type are errors.
func canonicalTypes(table map[domain.ProjectType]float64) (map[domain.ProjectType]float64, error) {
	keys := make([]string, 0, len(table))
	for kind := range table {
		keys = append(keys, string(kind))
	}
	sort.Strings(keys)

	out := make(map[domain.ProjectType]float64, len(table))
	from := make(map[domain.ProjectType]string, len(table))
	for _, key := range keys {
		kind, err := canonicalType(key)
		if err != nil {
			return nil, err
		}
		if prev, dup := from[kind]; dup {
			return nil, fmt.Errorf("project types %q and %q both map to %s", prev, key, kind)
		}
		from[kind] = key
		out[kind] = table[domain.ProjectType(key)]
	}
	return out, nil
}

func canonicalType(raw string) (domain.ProjectType, error) {
	kind := domain.ParseProjectType(raw)
	if kind == domain.ProjectTypeOther && !strings.EqualFold(strings.TrimSpace(raw), string(domain.ProjectTypeOther)) {
		return "", fmt.Errorf("unknown project type %q", raw)
	}
	return kind, nil
}
