package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Timeframe represents the evaluation window of a scan
type Timeframe string

const (
	Timeframe1h Timeframe = "1h" // short
	Timeframe4h Timeframe = "4h" // medium
	Timeframe1d Timeframe = "1d" // long

	// DefaultTimeframe is used when a request does not name one
	DefaultTimeframe = Timeframe1h
)

// Timeframes returns the accepted timeframes in ascending window order
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe1h, Timeframe4h, Timeframe1d}
}

// ParseTimeframe parses a timeframe, returning the default for an empty value
func ParseTimeframe(value string) (Timeframe, error) {
	if value == "" {
		return DefaultTimeframe, nil
	}
	tf := Timeframe(value)
	if !tf.IsValid() {
		return "", fmt.Errorf("%w: %q (use 1h, 4h or 1d)", ErrInvalidTimeframe, value)
	}
	return tf, nil
}

// IsValid reports whether the timeframe is one of the accepted values
func (t Timeframe) IsValid() bool {
	switch t {
	case Timeframe1h, Timeframe4h, Timeframe1d:
		return true
	}
	return false
}

// Duration returns the length of the window
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	}
	return 0
}

func (t Timeframe) String() string {
	return string(t)
}

var venuePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,64}$`)

// ParseVenue trims and validates a venue identifier
func ParseVenue(value string) (string, error) {
	venue := strings.TrimSpace(value)
	if venue == "" {
		return "", fmt.Errorf("%w: venue is required", ErrInvalidVenue)
	}
	// An all-dot venue is a relative path segment once joined into a URL
	if !venuePattern.MatchString(venue) || strings.Trim(venue, ".") == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidVenue, venue)
	}
	return venue, nil
}

// Freshness classifies how recent an item's underlying data is
type Freshness string

const (
	FreshnessFresh    Freshness = "fresh"
	FreshnessModerate Freshness = "moderate"
	FreshnessStale    Freshness = "stale"
)

// RawItem is one instrument snapshot as returned by a source
type RawItem struct {
	Symbol    string    `json:"symbol"`
	Venue     string    `json:"venue"`
	Timeframe Timeframe `json:"timeframe"`
	Timestamp time.Time `json:"timestamp,omitempty"` // as-of time of the data, zero when unknown
	Price     float64   `json:"price,omitempty"`
	Volume    float64   `json:"volume,omitempty"`
	ChangePct float64   `json:"change_pct,omitempty"`
	Closes    []float64 `json:"closes,omitempty"` // oldest first

	// Attributes holds source-specific fields the normalizer does not map
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Validate validates a RawItem
func (r *RawItem) Validate() error {
	if r.Symbol == "" {
		return ErrInvalidSymbol
	}
	return nil
}

// Attribute returns a source-specific attribute
func (r *RawItem) Attribute(key string) (interface{}, bool) {
	if r.Attributes == nil {
		return nil, false
	}
	v, ok := r.Attributes[key]
	return v, ok
}

// ScoredItem is the only record shape that leaves the scoring stage.
// Keep it to these five fields.
type ScoredItem struct {
	Symbol    string                 `json:"symbol"`
	Score     float64                `json:"score"`
	Badges    []string               `json:"badges"`
	Freshness Freshness              `json:"freshness"`
	Flags     map[string]interface{} `json:"flags"`
}

// HasBadge reports whether the item carries the badge
func (s *ScoredItem) HasBadge(badge string) bool {
	for _, b := range s.Badges {
		if b == badge {
			return true
		}
	}
	return false
}
