package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
)

var (
	// ErrUnsupportedFormat is returned when the message format is not supported
	ErrUnsupportedFormat = errors.New("unsupported message format")
	// ErrInvalidMessage is returned when the message cannot be parsed
	ErrInvalidMessage = errors.New("invalid message")
)

// Field aliases seen across venue feeds, in lookup order
var (
	symbolKeys    = []string{"symbol", "S", "sym", "ticker"}
	venueKeys     = []string{"venue", "exchange", "x"}
	timestampKeys = []string{"timestamp", "as_of", "t"}
	priceKeys     = []string{"price", "p", "close", "c"}
	volumeKeys    = []string{"volume", "v"}
	changeKeys    = []string{"change_pct", "chg", "cp"}
	closesKeys    = []string{"closes", "close_series"}
)

var mappedKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, group := range [][]string{symbolKeys, venueKeys, timestampKeys, priceKeys, volumeKeys, changeKeys, closesKeys, {"timeframe"}} {
		for _, k := range group {
			m[k] = true
		}
	}
	return m
}()

// Normalizer converts venue records into RawItems
type Normalizer interface {
	// Normalize converts one decoded record to a RawItem
	Normalize(record map[string]interface{}, venue string, timeframe models.Timeframe) (*models.RawItem, error)

	// GetProviderName returns the name of the source this normalizer handles
	GetProviderName() string
}

// DefaultNormalizer accepts the common field spellings used by venue feeds
type DefaultNormalizer struct {
	providerName string
}

// NewNormalizer creates a new normalizer for the given source
func NewNormalizer(providerName string) Normalizer {
	return &DefaultNormalizer{
		providerName: providerName,
	}
}

// GetProviderName returns the provider name
func (n *DefaultNormalizer) GetProviderName() string {
	return n.providerName
}

// Normalize converts a decoded record to a RawItem
func (n *DefaultNormalizer) Normalize(record map[string]interface{}, venue string, timeframe models.Timeframe) (*models.RawItem, error) {
	if len(record) == 0 {
		return nil, ErrInvalidMessage
	}

	item := &models.RawItem{
		Venue:     venue,
		Timeframe: timeframe,
	}

	if symbol, ok := lookupString(record, symbolKeys); ok {
		item.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	if v, ok := lookupString(record, venueKeys); ok && v != "" {
		item.Venue = v
	}
	// An unreadable timestamp leaves the item undated (classified stale)
	if ts, ok := lookup(record, timestampKeys); ok {
		if parsed, err := parseTimestamp(ts); err == nil {
			item.Timestamp = parsed
		}
	}

	var err error
	if item.Price, err = lookupFloat(record, priceKeys); err != nil {
		return nil, fmt.Errorf("%w: %s: price: %v", ErrInvalidMessage, item.Symbol, err)
	}
	if item.Volume, err = lookupFloat(record, volumeKeys); err != nil {
		return nil, fmt.Errorf("%w: %s: volume: %v", ErrInvalidMessage, item.Symbol, err)
	}
	if item.ChangePct, err = lookupFloat(record, changeKeys); err != nil {
		return nil, fmt.Errorf("%w: %s: change: %v", ErrInvalidMessage, item.Symbol, err)
	}
	if raw, ok := lookup(record, closesKeys); ok {
		closes, err := toFloatSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: closes: %v", ErrInvalidMessage, item.Symbol, err)
		}
		item.Closes = closes
	}

	for k, v := range record {
		if mappedKeys[k] {
			continue
		}
		if item.Attributes == nil {
			item.Attributes = make(map[string]interface{})
		}
		item.Attributes[k] = v
	}

	return item, nil
}

// decodeRecords accepts either a JSON array of records or an object with an
// "items" array
func decodeRecords(payload []byte) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, ErrInvalidMessage
	}

	if strings.HasPrefix(trimmed, "[") {
		var records []map[string]interface{}
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return records, nil
	}

	var envelope struct {
		Items []map[string]interface{} `json:"items"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return envelope.Items, nil
}

// normalizeAll normalizes records, dropping the ones that violate the item
// contract
func normalizeAll(n Normalizer, records []map[string]interface{}, venue string, timeframe models.Timeframe) []*models.RawItem {
	items := make([]*models.RawItem, 0, len(records))
	for _, record := range records {
		item, err := n.Normalize(record, venue, timeframe)
		if err != nil {
			logger.Warn("Dropping invalid record",
				logger.String("source", n.GetProviderName()),
				logger.String("venue", venue),
				logger.ErrorField(err),
			)
			continue
		}
		items = append(items, item)
	}
	return items
}

func lookup(record map[string]interface{}, keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := record[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func lookupString(record map[string]interface{}, keys []string) (string, bool) {
	v, ok := lookup(record, keys)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func lookupFloat(record map[string]interface{}, keys []string) (float64, error) {
	v, ok := lookup(record, keys)
	if !ok {
		return 0, nil
	}
	return toFloat(v)
}

// toFloat rejects NaN and infinities, which ParseFloat accepts as strings
func toFloat(v interface{}) (float64, error) {
	var (
		f   float64
		err error
	)
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		f, err = val.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", v)
	}
	return f, nil
}

func toFloatSlice(v interface{}) ([]float64, error) {
	switch val := v.(type) {
	case []float64:
		for _, f := range val {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("non-finite value %v", f)
			}
		}
		return val, nil
	case []interface{}:
		out := make([]float64, 0, len(val))
		for _, e := range val {
			f, err := toFloat(e)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

// parseTimestamp accepts RFC3339 strings and unix epochs in s, ms, us or ns
func parseTimestamp(v interface{}) (time.Time, error) {
	if s, ok := v.(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.UTC(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
		}
		v = f
	}

	f, err := toFloat(v)
	if err != nil {
		return time.Time{}, err
	}
	n := int64(f)
	switch {
	case n > 1e17:
		return time.Unix(0, n).UTC(), nil
	case n > 1e14:
		return time.UnixMicro(n).UTC(), nil
	case n > 1e11:
		return time.UnixMilli(n).UTC(), nil
	default:
		return time.Unix(n, 0).UTC(), nil
	}
}
