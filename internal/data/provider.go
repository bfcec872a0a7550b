package data

import (
	"context"
	"errors"
	"sort"

	"github.com/mohamedkhairy/fire-scanner/internal/config"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
)

// Source defines the interface for item sources.
//
// Fetch returns one complete batch for the venue and timeframe. An empty
// batch with a nil error means the source has no data right now; any
// failure, including cancellation of ctx, is reported as an error and never
// as an empty batch. Implementations keep no per-request state, so a single
// Source may serve concurrent fetches.
type Source interface {
	// Name returns the name of the source (e.g. "primary", "secondary")
	Name() string

	// Fetch returns the current batch of raw items
	Fetch(ctx context.Context, venue string, timeframe models.Timeframe) ([]*models.RawItem, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context, venue string, timeframe models.Timeframe) ([]*models.RawItem, error)
}

func (f SourceFunc) Name() string {
	return f.SourceName
}

func (f SourceFunc) Fetch(ctx context.Context, venue string, timeframe models.Timeframe) ([]*models.RawItem, error) {
	return f.Fn(ctx, venue, timeframe)
}

// SourceFactory creates sources from configuration
type SourceFactory interface {
	// CreateSource creates a new source based on cfg.Type
	CreateSource(cfg config.SourceConfig) (Source, error)

	// RegisterSource registers a custom source factory function
	RegisterSource(sourceType string, factoryFunc func(config.SourceConfig) (Source, error)) error

	// ListSources returns the registered source types
	ListSources() []string
}

// DefaultSourceFactory is the default implementation of SourceFactory
type DefaultSourceFactory struct {
	factories map[string]func(config.SourceConfig) (Source, error)
}

// NewSourceFactory creates a factory with the built-in source types
func NewSourceFactory() *DefaultSourceFactory {
	factory := &DefaultSourceFactory{
		factories: make(map[string]func(config.SourceConfig) (Source, error)),
	}

	factory.RegisterSource(config.SourceTypeMock, NewSimulatedSource)
	factory.RegisterSource(config.SourceTypeWebSocket, NewStreamSource)
	factory.RegisterSource(config.SourceTypeREST, NewPollingSource)

	return factory
}

// CreateSource creates a new source
func (f *DefaultSourceFactory) CreateSource(cfg config.SourceConfig) (Source, error) {
	factoryFunc, exists := f.factories[cfg.Type]
	if !exists {
		return nil, errors.New("unknown source type: " + cfg.Type)
	}

	return factoryFunc(cfg)
}

// RegisterSource registers a custom source factory function
func (f *DefaultSourceFactory) RegisterSource(sourceType string, factoryFunc func(config.SourceConfig) (Source, error)) error {
	if _, exists := f.factories[sourceType]; exists {
		return errors.New("source type already registered: " + sourceType)
	}
	f.factories[sourceType] = factoryFunc
	return nil
}

// ListSources returns the registered source types, sorted
func (f *DefaultSourceFactory) ListSources() []string {
	types := make([]string, 0, len(f.factories))
	for sourceType := range f.factories {
		types = append(types, sourceType)
	}
	sort.Strings(types)
	return types
}
