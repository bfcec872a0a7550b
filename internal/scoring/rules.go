package scoring

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the scoring configuration document. Every section is optional;
// missing keys fall back to the policy defaults.
type Rules struct {
	Version    string               `yaml:"version"`
	Weights    map[string]float64   `yaml:"weights"`
	Thresholds map[string]float64   `yaml:"thresholds"`
	Badges     map[string]BadgeRule `yaml:"badges"`
}

// BadgeRule awards a named badge when the rounded score reaches MinScore.
// When Freshness is set the item must also carry that freshness class.
type BadgeRule struct {
	MinScore  float64 `yaml:"min_score"`
	Freshness string  `yaml:"freshness,omitempty"`
}

// Weight returns the named weight or def when it is not configured
func (r *Rules) Weight(key string, def float64) float64 {
	if r == nil {
		return def
	}
	if v, ok := r.Weights[key]; ok {
		return v
	}
	return def
}

// Threshold returns the named threshold or def when it is not configured
func (r *Rules) Threshold(key string, def float64) float64 {
	if r == nil {
		return def
	}
	if v, ok := r.Thresholds[key]; ok {
		return v
	}
	return def
}

// HasThreshold reports whether the threshold is configured
func (r *Rules) HasThreshold(key string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Thresholds[key]
	return ok
}

// RulesSource supplies the scoring configuration once, at engine construction
type RulesSource interface {
	Load() (*Rules, error)
}

// FileRules reads the rules from a YAML file
type FileRules string

// Load reads and parses the file. Unknown keys are ignored.
func (f FileRules) Load() (*Rules, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring rules: %w", err)
	}
	return ParseRules(data)
}

func (f FileRules) String() string {
	return string(f)
}

type staticRules struct {
	rules *Rules
}

// StaticRules wraps an in-memory configuration
func StaticRules(r *Rules) RulesSource {
	return staticRules{rules: r}
}

func (s staticRules) Load() (*Rules, error) {
	if s.rules == nil {
		return &Rules{}, nil
	}
	return s.rules, nil
}

func (s staticRules) String() string {
	return "static"
}

// ParseRules parses a rules document, ignoring unknown keys.
// An empty document yields empty rules.
func ParseRules(data []byte) (*Rules, error) {
	return decodeRules(data, false)
}

// ParseRulesStrict parses a rules document and rejects unknown keys,
// reserved badge names and badge rules naming an unknown freshness class
func ParseRulesStrict(data []byte) (*Rules, error) {
	rules, err := decodeRules(data, true)
	if err != nil {
		return nil, err
	}
	for name, badge := range rules.Badges {
		if name == "" || name == BadgeElite || name == BadgeHigh {
			return nil, fmt.Errorf("badge %q: name is reserved", name)
		}
		switch badge.Freshness {
		case "", "fresh", "moderate", "stale":
		default:
			return nil, fmt.Errorf("badge %q: unknown freshness %q", name, badge.Freshness)
		}
	}
	return rules, nil
}

func decodeRules(data []byte, strict bool) (*Rules, error) {
	var rules Rules
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(strict)
	if err := decoder.Decode(&rules); err != nil {
		if errors.Is(err, io.EOF) {
			return &rules, nil
		}
		return nil, fmt.Errorf("failed to parse scoring rules: %w", err)
	}
	return &rules, nil
}
