package data

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohamedkhairy/fire-scanner/internal/config"
	"github.com/mohamedkhairy/fire-scanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPollingSource(t *testing.T, serverURL string, retries int) Source {
	t.Helper()
	source, err := NewPollingSource(config.SourceConfig{
		Name:       "secondary",
		Type:       config.SourceTypeREST,
		URL:        serverURL,
		Timeout:    time.Second,
		MaxRetries: retries,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return source
}

func TestPollingSource_Snapshot(t *testing.T) {
	requested := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested <- r.URL.Path + "?" + r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [{"symbol": "symr001", "volume": 10}, {"symbol": "SYMR002"}]}`)
	}))
	defer server.Close()

	source := newTestPollingSource(t, server.URL, 0)
	items, err := source.Fetch(context.Background(), "X", models.Timeframe4h)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "SYMR001", items[0].Symbol)
	assert.Equal(t, 10.0, items[0].Volume)
	assert.Equal(t, "/venues/X/snapshot?timeframe=4h", <-requested)
}

func TestPollingSource_NotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	items, err := newTestPollingSource(t, server.URL, 2).Fetch(context.Background(), "X", models.Timeframe1h)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestPollingSource_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"symbol": "SYMR001"}]`)
	}))
	defer server.Close()

	items, err := newTestPollingSource(t, server.URL, 2).Fetch(context.Background(), "X", models.Timeframe1h)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPollingSource_GivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	items, err := newTestPollingSource(t, server.URL, 1).Fetch(context.Background(), "X", models.Timeframe1h)
	assert.Nil(t, items)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPollingSource_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestPollingSource(t, server.URL, 3).Fetch(context.Background(), "X", models.Timeframe1h)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPollingSource_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>oops</html>`)
	}))
	defer server.Close()

	_, err := newTestPollingSource(t, server.URL, 0).Fetch(context.Background(), "X", models.Timeframe1h)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPollingSource_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	items, err := newTestPollingSource(t, server.URL, 3).Fetch(ctx, "X", models.Timeframe1h)
	assert.Nil(t, items)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewPollingSource_RequiresURL(t *testing.T) {
	_, err := NewPollingSource(config.SourceConfig{Name: "secondary", Type: config.SourceTypeREST})
	assert.Error(t, err)
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(http.StatusInternalServerError))
	assert.True(t, IsRetryableStatus(http.StatusTooManyRequests))
	assert.False(t, IsRetryableStatus(http.StatusBadRequest))
	assert.False(t, IsRetryableStatus(http.StatusOK))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := sleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
