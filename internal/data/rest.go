package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohamedkhairy/fire-scanner/internal/config"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
)

const maxSnapshotBytes = 8 << 20

var (
	// ErrUnexpectedStatus is returned when the venue answers with a non-retryable status
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// PollingSource is the REST fallback source. It reads
// GET {base}/venues/{venue}/snapshot?timeframe={tf} and retries server errors
// with exponential backoff.
type PollingSource struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter // nil when unlimited
	retryConfig RetryConfig
	normalizer  Normalizer
}

// NewPollingSource creates a REST polling source
func NewPollingSource(cfg config.SourceConfig) (Source, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("polling source %q: url is required", cfg.Name)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("polling source %q: invalid url: %w", cfg.Name, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	initialDelay := cfg.RetryDelay
	if initialDelay <= 0 {
		initialDelay = 200 * time.Millisecond
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitRPS)
	}

	return &PollingSource{
		name:       cfg.Name,
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		retryConfig: RetryConfig{
			MaxRetries:   cfg.MaxRetries,
			InitialDelay: initialDelay,
			MaxDelay:     10 * initialDelay,
		},
		normalizer: NewNormalizer(cfg.Name),
	}, nil
}

// Name returns the source name
func (p *PollingSource) Name() string {
	return p.name
}

// Fetch polls the venue snapshot endpoint
func (p *PollingSource) Fetch(ctx context.Context, venue string, timeframe models.Timeframe) ([]*models.RawItem, error) {
	endpoint, err := url.JoinPath(p.baseURL, "venues", venue, "snapshot")
	if err != nil {
		return nil, fmt.Errorf("polling source %s: failed to build url: %w", p.name, err)
	}
	endpoint += "?" + url.Values{"timeframe": {string(timeframe)}}.Encode()

	delay := p.retryConfig.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= p.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying snapshot poll",
				logger.String("source", p.name),
				logger.String("venue", venue),
				logger.Int("attempt", attempt+1),
				logger.Duration("delay", delay),
				logger.ErrorField(lastErr),
			)
			if err := sleepContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("polling source %s: %w", p.name, err)
			}
			delay *= 2
			if delay > p.retryConfig.MaxDelay {
				delay = p.retryConfig.MaxDelay
			}
		}

		items, retryable, err := p.poll(ctx, endpoint, venue, timeframe)
		if err == nil {
			return items, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("polling source %s: %w", p.name, ctx.Err())
		}
		if !retryable {
			return nil, fmt.Errorf("polling source %s: %w", p.name, err)
		}
		lastErr = err
	}

	return nil, fmt.Errorf("polling source %s: giving up after %d attempts: %w", p.name, p.retryConfig.MaxRetries+1, lastErr)
}

// poll performs one request. The bool result reports whether a failure may be retried.
func (p *PollingSource) poll(ctx context.Context, endpoint, venue string, timeframe models.Timeframe) ([]*models.RawItem, bool, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, false, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug("Snapshot poll completed",
		logger.String("source", p.name),
		logger.String("venue", venue),
		logger.Int("status_code", resp.StatusCode),
		logger.Duration("duration", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return []*models.RawItem{}, false, nil
	case IsRetryableStatus(resp.StatusCode):
		return nil, true, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read body: %w", err)
	}
	records, err := decodeRecords(body)
	if err != nil {
		return nil, false, err
	}
	return normalizeAll(p.normalizer, records, venue, timeframe), false, nil
}

// IsRetryableStatus reports whether a status code should be retried
func IsRetryableStatus(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// sleepContext waits for d or until ctx is done, whichever comes first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
