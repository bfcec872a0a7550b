package scoring

import (
	"math"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/pkg/indicator"
)

// Rule keys understood by the default policies
const (
	WeightMomentum  = "momentum"
	WeightLiquidity = "liquidity"

	ThresholdElite           = "elite"
	ThresholdHigh            = "high"
	ThresholdRSIPeriod       = "rsi_period"
	ThresholdLiquidityVolume = "liquidity_volume"
	ThresholdFreshSeconds    = "fresh_seconds"
	ThresholdModerateSeconds = "moderate_seconds"
	ThresholdMinVolume       = "min_volume"
	ThresholdWideMovePct     = "wide_move_pct"
)

// Defaults applied when the rules leave a key out
const (
	DefaultEliteThreshold  = 90.0
	DefaultHighThreshold   = 75.0
	DefaultMomentumWeight  = 0.6
	DefaultLiquidityWeight = 0.4
	DefaultRSIPeriod       = 14
	DefaultLiquidityVolume = 1_000_000.0
	DefaultFreshAge        = 5 * time.Minute
	DefaultModerateAge     = 30 * time.Minute
)

// ScorePolicy computes an unclamped score for an item
type ScorePolicy interface {
	Score(item *models.RawItem) float64
}

// FreshnessPolicy classifies an item's data age
type FreshnessPolicy interface {
	Classify(item *models.RawItem) models.Freshness
}

// FlagPolicy returns the informational flags for an item
type FlagPolicy interface {
	Flags(item *models.RawItem) map[string]interface{}
}

// CompositePolicy blends a momentum component and a liquidity component,
// each on a 0-100 scale
type CompositePolicy struct {
	momentumWeight  float64
	liquidityWeight float64
	rsiPeriod       int
	liquidityVolume float64
}

// NewCompositePolicy builds the default score policy from rules
func NewCompositePolicy(rules *Rules) *CompositePolicy {
	mw := rules.Weight(WeightMomentum, DefaultMomentumWeight)
	lw := rules.Weight(WeightLiquidity, DefaultLiquidityWeight)
	if mw < 0 || lw < 0 || mw+lw <= 0 {
		mw, lw = DefaultMomentumWeight, DefaultLiquidityWeight
	}

	period := int(rules.Threshold(ThresholdRSIPeriod, DefaultRSIPeriod))
	if period < 2 {
		period = DefaultRSIPeriod
	}

	volume := rules.Threshold(ThresholdLiquidityVolume, DefaultLiquidityVolume)
	if volume <= 0 {
		volume = DefaultLiquidityVolume
	}

	return &CompositePolicy{
		momentumWeight:  mw,
		liquidityWeight: lw,
		rsiPeriod:       period,
		liquidityVolume: volume,
	}
}

func (p *CompositePolicy) Score(item *models.RawItem) float64 {
	momentum := p.Momentum(item)
	liquidity := p.Liquidity(item)
	return (p.momentumWeight*momentum + p.liquidityWeight*liquidity) / (p.momentumWeight + p.liquidityWeight)
}

// Momentum is the RSI of the item's closes when there are enough of them,
// otherwise a linear mapping of the percent change around 50
func (p *CompositePolicy) Momentum(item *models.RawItem) float64 {
	if len(item.Closes) > p.rsiPeriod {
		if v, err := indicator.RSI(item.Closes, p.rsiPeriod); err == nil {
			return v
		}
	}
	return clamp(50+2.5*item.ChangePct, 0, 100)
}

// Liquidity maps volume linearly onto 0-100, saturating at the reference volume
func (p *CompositePolicy) Liquidity(item *models.RawItem) float64 {
	return clamp(100*item.Volume/p.liquidityVolume, 0, 100)
}

// AgePolicy buckets the age of an item's timestamp
type AgePolicy struct {
	fresh    time.Duration
	moderate time.Duration
	now      func() time.Time
}

// NewAgePolicy builds the default freshness policy from rules
func NewAgePolicy(rules *Rules, now func() time.Time) *AgePolicy {
	fresh := seconds(rules.Threshold(ThresholdFreshSeconds, DefaultFreshAge.Seconds()))
	moderate := seconds(rules.Threshold(ThresholdModerateSeconds, DefaultModerateAge.Seconds()))
	if fresh < 0 {
		fresh = DefaultFreshAge
	}
	if moderate < fresh {
		moderate = fresh
	}
	if now == nil {
		now = time.Now
	}
	return &AgePolicy{fresh: fresh, moderate: moderate, now: now}
}

func (p *AgePolicy) Classify(item *models.RawItem) models.Freshness {
	if item.Timestamp.IsZero() {
		return models.FreshnessStale
	}
	age := p.now().Sub(item.Timestamp)
	switch {
	case age <= p.fresh:
		return models.FreshnessFresh
	case age <= p.moderate:
		return models.FreshnessModerate
	default:
		return models.FreshnessStale
	}
}

// RiskFlagPolicy raises flags for thin, halted or violently moving items.
// Volume and move checks only apply when their thresholds are configured.
type RiskFlagPolicy struct {
	minVolume   float64
	wideMovePct float64
	checkVolume bool
	checkMove   bool
}

// NewRiskFlagPolicy builds the default flag policy from rules
func NewRiskFlagPolicy(rules *Rules) *RiskFlagPolicy {
	return &RiskFlagPolicy{
		minVolume:   rules.Threshold(ThresholdMinVolume, 0),
		wideMovePct: rules.Threshold(ThresholdWideMovePct, 0),
		checkVolume: rules.HasThreshold(ThresholdMinVolume),
		checkMove:   rules.HasThreshold(ThresholdWideMovePct) && rules.Threshold(ThresholdWideMovePct, 0) > 0,
	}
}

func (p *RiskFlagPolicy) Flags(item *models.RawItem) map[string]interface{} {
	flags := make(map[string]interface{})
	if p.checkVolume && item.Volume < p.minVolume {
		flags["low_liquidity"] = true
	}
	if halted, ok := item.Attribute("halted"); ok {
		if b, ok := halted.(bool); ok && b {
			flags["halted"] = true
		}
	}
	if p.checkMove && math.Abs(item.ChangePct) >= p.wideMovePct {
		flags["wide_move"] = true
	}
	return flags
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
