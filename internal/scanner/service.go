package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/intake"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/internal/scoring"
	"github.com/mohamedkhairy/fire-scanner/internal/toplist"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
)

// Fetcher produces one non-empty batch of raw items or an error
type Fetcher interface {
	Fetch(ctx context.Context, venue string, timeframe models.Timeframe) (*intake.Result, error)
}

// Scorer turns raw items into scored items, one for one
type Scorer interface {
	ScoreItems(items []*models.RawItem) []models.ScoredItem
}

// ServiceConfig holds configuration for the scan service
type ServiceConfig struct {
	ResultLimit int // Number of ranked results returned (default: 50)
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ResultLimit: toplist.DefaultLimit,
	}
}

// ScanResult is the ranked outcome of one scan
type ScanResult struct {
	Venue     string
	Timeframe models.Timeframe
	Source    string
	FellBack  bool
	Items     []models.ScoredItem
}

// ServiceStats holds counters over the service lifetime
type ServiceStats struct {
	Scans     int64
	Fallbacks int64
	NoData    int64
	Failures  int64
}

// Service runs the fetch, score and rank pipeline for a single request.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	config  ServiceConfig
	fetcher Fetcher
	scorer  Scorer

	scans     atomic.Int64
	fallbacks atomic.Int64
	noData    atomic.Int64
	failures  atomic.Int64
}

// NewService creates a new scan service
func NewService(config ServiceConfig, fetcher Fetcher, scorer Scorer) *Service {
	if config.ResultLimit <= 0 {
		config.ResultLimit = toplist.DefaultLimit
	}
	return &Service{
		config:  config,
		fetcher: fetcher,
		scorer:  scorer,
	}
}

// Scan returns the top ranked items for a venue and timeframe. Inputs must
// already be valid; invalid ones are rejected before any source is called.
func (s *Service) Scan(ctx context.Context, venue string, timeframe models.Timeframe) (*ScanResult, error) {
	if _, err := models.ParseVenue(venue); err != nil {
		return nil, err
	}
	if !timeframe.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimeframe, timeframe)
	}

	start := time.Now()
	s.scans.Add(1)
	log := logger.WithContext(ctx)

	batch, err := s.fetcher.Fetch(ctx, venue, timeframe)
	if err != nil {
		outcome := "source_error"
		switch {
		case errors.Is(err, models.ErrNoDataAvailable):
			outcome = "no_data"
			s.noData.Add(1)
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
			s.failures.Add(1)
		default:
			s.failures.Add(1)
		}
		s.observe(timeframe, outcome, start)
		log.Info("Scan finished without results",
			logger.String("venue", venue),
			logger.String("timeframe", timeframe.String()),
			logger.String("outcome", outcome),
			logger.ErrorField(err),
		)
		return nil, err
	}
	if batch.FellBack {
		s.fallbacks.Add(1)
	}

	ranked := toplist.Rank(s.scorer.ScoreItems(batch.Items), s.config.ResultLimit)

	s.observe(timeframe, "ok", start)
	log.Info("Scan completed",
		logger.String("venue", venue),
		logger.String("timeframe", timeframe.String()),
		logger.String("source", batch.Source),
		logger.Bool("fell_back", batch.FellBack),
		logger.Int("items", len(batch.Items)),
		logger.Int("results", len(ranked)),
		logger.Duration("duration", time.Since(start)),
	)

	return &ScanResult{
		Venue:     venue,
		Timeframe: timeframe,
		Source:    batch.Source,
		FellBack:  batch.FellBack,
		Items:     ranked,
	}, nil
}

// GetStats returns a snapshot of the service counters
func (s *Service) GetStats() ServiceStats {
	return ServiceStats{
		Scans:     s.scans.Load(),
		Fallbacks: s.fallbacks.Load(),
		NoData:    s.noData.Load(),
		Failures:  s.failures.Load(),
	}
}

func (s *Service) observe(timeframe models.Timeframe, outcome string, start time.Time) {
	logger.ScanTotal.WithLabelValues(timeframe.String(), outcome).Inc()
	logger.ScanDuration.WithLabelValues(timeframe.String()).Observe(time.Since(start).Seconds())
}

var _ Scorer = (*scoring.Engine)(nil)
var _ Fetcher = (*intake.Coordinator)(nil)
