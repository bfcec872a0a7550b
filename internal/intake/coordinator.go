package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohamedkhairy/fire-scanner/internal/data"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
)

// SourceError reports a failed fetch. It matches models.ErrSourceUnavailable
// and unwraps to the source's own error, so context errors stay visible.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func (e *SourceError) Is(target error) bool {
	return target == models.ErrSourceUnavailable
}

// Result is a non-empty batch and the name of the source that served it
type Result struct {
	Items    []*models.RawItem
	Source   string
	FellBack bool
}

// Coordinator fetches from the primary source and consults the secondary
// only when the primary has nothing. Batches are never merged.
type Coordinator struct {
	primary   data.Source
	secondary data.Source
}

// NewCoordinator creates a new intake coordinator
func NewCoordinator(primary, secondary data.Source) *Coordinator {
	return &Coordinator{
		primary:   primary,
		secondary: secondary,
	}
}

// Fetch returns the first non-empty batch, models.ErrNoDataAvailable when
// both sources are empty, or a *SourceError when a source fails
func (c *Coordinator) Fetch(ctx context.Context, venue string, timeframe models.Timeframe) (*Result, error) {
	log := logger.WithContext(ctx)

	items, err := fetch(ctx, c.primary, venue, timeframe)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return &Result{Items: items, Source: c.primary.Name()}, nil
	}

	// A cancelled request must not be mistaken for an empty primary
	if err := ctx.Err(); err != nil {
		return nil, &SourceError{Source: c.primary.Name(), Err: err}
	}

	log.Info("Primary source returned no items, falling back",
		logger.String("primary", c.primary.Name()),
		logger.String("secondary", c.secondary.Name()),
		logger.String("venue", venue),
		logger.String("timeframe", string(timeframe)),
	)
	logger.FallbackTotal.Inc()

	items, err = fetch(ctx, c.secondary, venue, timeframe)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return &Result{Items: items, Source: c.secondary.Name(), FellBack: true}, nil
	}

	return nil, fmt.Errorf("%w for venue %s and timeframe %s", models.ErrNoDataAvailable, venue, timeframe)
}

func fetch(ctx context.Context, source data.Source, venue string, timeframe models.Timeframe) ([]*models.RawItem, error) {
	items, err := source.Fetch(ctx, venue, timeframe)
	switch {
	case err != nil:
		logger.SourceFetchTotal.WithLabelValues(source.Name(), "failed").Inc()
		logger.WithContext(ctx).Warn("Source fetch failed",
			logger.String("source", source.Name()),
			logger.String("venue", venue),
			logger.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			logger.ErrorField(err),
		)
		return nil, &SourceError{Source: source.Name(), Err: err}
	case len(items) == 0:
		logger.SourceFetchTotal.WithLabelValues(source.Name(), "empty").Inc()
	default:
		logger.SourceFetchTotal.WithLabelValues(source.Name(), "items").Inc()
	}
	return items, nil
}
