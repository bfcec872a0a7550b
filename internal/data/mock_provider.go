package data

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/config"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
)

const simulatedCloses = 20

// SimulatedSource serves a synthetic symbol universe for development and
// demos. Every value is derived from a hash of (venue, timeframe, symbol), so
// the same request always yields the same batch.
type SimulatedSource struct {
	name        string
	prefix      string
	count       int
	emptyVenues map[string]bool
	now         func() time.Time
}

// NewSimulatedSource creates a simulated source
func NewSimulatedSource(cfg config.SourceConfig) (Source, error) {
	if cfg.SymbolCount <= 0 {
		return nil, fmt.Errorf("simulated source %q: symbol count must be positive", cfg.Name)
	}
	empty := make(map[string]bool, len(cfg.EmptyVenues))
	for _, v := range cfg.EmptyVenues {
		empty[v] = true
	}
	return &SimulatedSource{
		name:        cfg.Name,
		prefix:      cfg.SymbolPrefix,
		count:       cfg.SymbolCount,
		emptyVenues: empty,
		now:         time.Now,
	}, nil
}

// Name returns the source name
func (s *SimulatedSource) Name() string {
	return s.name
}

// Fetch returns the synthetic universe, or nothing for venues configured as empty
func (s *SimulatedSource) Fetch(ctx context.Context, venue string, timeframe models.Timeframe) ([]*models.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulated source %s: %w", s.name, err)
	}
	if s.emptyVenues[venue] {
		return []*models.RawItem{}, nil
	}

	now := s.now().UTC()
	items := make([]*models.RawItem, 0, s.count)
	for i := 1; i <= s.count; i++ {
		symbol := fmt.Sprintf("%s%03d", s.prefix, i)
		items = append(items, s.generate(now, venue, timeframe, symbol))
	}

	// Arrival order varies per venue and timeframe but is stable across calls
	rng := rand.New(rand.NewSource(seed(venue, string(timeframe))))
	rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	return items, nil
}

func (s *SimulatedSource) generate(now time.Time, venue string, timeframe models.Timeframe, symbol string) *models.RawItem {
	rng := rand.New(rand.NewSource(seed(venue, string(timeframe), symbol)))

	price := 10 + rng.Float64()*290
	closes := make([]float64, simulatedCloses)
	drift := (rng.Float64() - 0.5) * 0.02
	for i := range closes {
		price *= 1 + drift + (rng.Float64()-0.5)*0.03
		closes[i] = math.Round(price*100) / 100
	}
	first, last := closes[0], closes[len(closes)-1]

	age := time.Duration(rng.Intn(3600)) * time.Second

	return &models.RawItem{
		Symbol:    symbol,
		Venue:     venue,
		Timeframe: timeframe,
		Timestamp: now.Add(-age),
		Price:     last,
		Volume:    float64(1000 + rng.Intn(2_000_000)),
		ChangePct: math.Round((last-first)/first*10000) / 100,
		Closes:    closes,
	}
}

func seed(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return int64(h.Sum64())
}
