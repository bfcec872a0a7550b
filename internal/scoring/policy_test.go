package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/stretchr/testify/assert"
)

func series(start, step float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}
	return closes
}

func TestCompositePolicy_MomentumFallback(t *testing.T) {
	p := NewCompositePolicy(nil)

	assert.Equal(t, 50.0, p.Momentum(&models.RawItem{}))
	assert.Equal(t, 60.0, p.Momentum(&models.RawItem{ChangePct: 4}))
	assert.Equal(t, 100.0, p.Momentum(&models.RawItem{ChangePct: 100}))
	assert.Equal(t, 0.0, p.Momentum(&models.RawItem{ChangePct: -30}))

	// Too few closes for the RSI window
	assert.Equal(t, 55.0, p.Momentum(&models.RawItem{ChangePct: 2, Closes: series(10, 1, 5)}))

	// A flat series carries no direction
	assert.Equal(t, 45.0, p.Momentum(&models.RawItem{ChangePct: -2, Closes: series(10, 0, 20)}))
}

func TestCompositePolicy_MomentumRSI(t *testing.T) {
	p := NewCompositePolicy(nil)

	zigzag := func(drift float64) []float64 {
		closes := make([]float64, 20)
		price := 100.0
		for i := range closes {
			if i%2 == 0 {
				price += 1 + drift
			} else {
				price -= 1
			}
			closes[i] = price
		}
		return closes
	}

	rising := p.Momentum(&models.RawItem{Closes: zigzag(1)})
	falling := p.Momentum(&models.RawItem{Closes: zigzag(-1.5)})

	assert.Greater(t, rising, 50.0)
	assert.Less(t, falling, 50.0)
	assert.GreaterOrEqual(t, falling, 0.0)
	assert.LessOrEqual(t, rising, 100.0)
}

func TestCompositePolicy_MomentumIgnoresNonFiniteCloses(t *testing.T) {
	p := NewCompositePolicy(nil)

	closes := series(100, 1, 20)
	closes[10] = math.NaN()
	assert.InDelta(t, 60.0, p.Momentum(&models.RawItem{Closes: closes, ChangePct: 4}), 1e-9)
}

func TestCompositePolicy_Liquidity(t *testing.T) {
	p := NewCompositePolicy(nil)

	assert.Equal(t, 0.0, p.Liquidity(&models.RawItem{}))
	assert.Equal(t, 50.0, p.Liquidity(&models.RawItem{Volume: 500_000}))
	assert.Equal(t, 100.0, p.Liquidity(&models.RawItem{Volume: 5_000_000}))

	custom := NewCompositePolicy(&Rules{Thresholds: map[string]float64{ThresholdLiquidityVolume: 1000}})
	assert.Equal(t, 25.0, custom.Liquidity(&models.RawItem{Volume: 250}))
}

func TestCompositePolicy_Weights(t *testing.T) {
	item := &models.RawItem{Volume: 1_000_000} // momentum 50, liquidity 100

	assert.InDelta(t, 70.0, NewCompositePolicy(nil).Score(item), 1e-9)

	momentumOnly := NewCompositePolicy(&Rules{Weights: map[string]float64{WeightMomentum: 1, WeightLiquidity: 0}})
	assert.InDelta(t, 50.0, momentumOnly.Score(item), 1e-9)

	// Unusable weights fall back to the defaults
	broken := NewCompositePolicy(&Rules{Weights: map[string]float64{WeightMomentum: 0, WeightLiquidity: 0}})
	assert.InDelta(t, 70.0, broken.Score(item), 1e-9)
}

func TestAgePolicy_Classify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewAgePolicy(nil, func() time.Time { return now })

	tests := []struct {
		name string
		age  time.Duration
		want models.Freshness
	}{
		{"just now", 0, models.FreshnessFresh},
		{"at fresh bound", 5 * time.Minute, models.FreshnessFresh},
		{"ten minutes", 10 * time.Minute, models.FreshnessModerate},
		{"at moderate bound", 30 * time.Minute, models.FreshnessModerate},
		{"an hour", time.Hour, models.FreshnessStale},
		{"future timestamp", -time.Minute, models.FreshnessFresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &models.RawItem{Timestamp: now.Add(-tt.age)}
			assert.Equal(t, tt.want, p.Classify(item))
		})
	}

	assert.Equal(t, models.FreshnessStale, p.Classify(&models.RawItem{}), "undated items are stale")
}

func TestAgePolicy_ConfiguredBounds(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rules := &Rules{Thresholds: map[string]float64{ThresholdFreshSeconds: 60}}
	p := NewAgePolicy(rules, func() time.Time { return now })

	assert.Equal(t, models.FreshnessModerate, p.Classify(&models.RawItem{Timestamp: now.Add(-2 * time.Minute)}))
}

func TestRiskFlagPolicy(t *testing.T) {
	unconfigured := NewRiskFlagPolicy(nil)
	assert.Empty(t, unconfigured.Flags(&models.RawItem{Volume: 0, ChangePct: 50}))
	assert.Equal(t,
		map[string]interface{}{"halted": true},
		unconfigured.Flags(&models.RawItem{Attributes: map[string]interface{}{"halted": true}}),
	)
	assert.Empty(t, unconfigured.Flags(&models.RawItem{Attributes: map[string]interface{}{"halted": "yes"}}))

	configured := NewRiskFlagPolicy(&Rules{Thresholds: map[string]float64{
		ThresholdMinVolume:   1000,
		ThresholdWideMovePct: 8,
	}})
	assert.Equal(t,
		map[string]interface{}{"low_liquidity": true, "wide_move": true},
		configured.Flags(&models.RawItem{Volume: 999, ChangePct: -8}),
	)
	assert.Empty(t, configured.Flags(&models.RawItem{Volume: 1000, ChangePct: 7.9}))
}
