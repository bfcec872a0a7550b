package indicator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

var (
	// ErrNotReady is returned when there are not enough closes for the period
	ErrNotReady = errors.New("indicator not ready")
	// ErrNoDirection is returned for a series whose closes never change
	ErrNoDirection = errors.New("series has no direction")
	// ErrNonFinite is returned when a close is NaN or infinite
	ErrNonFinite = errors.New("series has a non-finite close")
)

// seriesOrigin anchors synthetic candle periods; only their order matters
var seriesOrigin = time.Unix(0, 0).UTC()

// CloseSeries converts a close series, oldest first, into a Techan
// TimeSeries of consecutive one-minute candles
func CloseSeries(closes []float64) *techan.TimeSeries {
	series := techan.NewTimeSeries()
	for i, c := range closes {
		timePeriod := techan.NewTimePeriod(seriesOrigin.Add(time.Duration(i)*time.Minute), time.Minute)
		candle := techan.NewCandle(timePeriod)
		candle.ClosePrice = big.NewDecimal(c)
		series.AddCandle(candle)
	}
	return series
}

// RSI calculates the Relative Strength Index of the last close
// RSI = 100 - (100 / (1 + RS))
// where RS = Average Gain / Average Loss over the period.
// It needs at least period+1 closes.
func RSI(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, fmt.Errorf("RSI period must be at least 2, got %d", period)
	}
	if len(closes) <= period {
		return 0, fmt.Errorf("%w: need %d closes, got %d", ErrNotReady, period+1, len(closes))
	}
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return 0, fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	// Zero gains and zero losses would divide zero by zero
	if flat(closes) {
		return 0, ErrNoDirection
	}

	series := CloseSeries(closes)
	rsi := techan.NewRelativeStrengthIndexIndicator(techan.NewClosePriceIndicator(series), period)

	value := rsi.Calculate(series.LastIndex()).Float()
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: RSI is not a number", ErrNotReady)
	}
	return math.Max(0, math.Min(100, value)), nil
}

func flat(closes []float64) bool {
	for _, c := range closes[1:] {
		if c != closes[0] {
			return false
		}
	}
	return true
}
