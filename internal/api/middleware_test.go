package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/fire-scanner/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware()(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header to be set")
	}
}

func TestCORSMiddleware_OPTIONS(t *testing.T) {
	called := false
	handler := CORSMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("OPTIONS", "/scan", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d for OPTIONS, got %d", http.StatusOK, w.Code)
	}
	if called {
		t.Error("Preflight should not reach the handler")
	}
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/scan", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRequestIDMiddleware_ReusesCallerID(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/scan", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestLoggingMiddleware(t *testing.T) {
	handler := LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}
}

func TestLoggingMiddleware_RouteTemplate(t *testing.T) {
	var endpoint string
	router := mux.NewRouter()
	router.HandleFunc("/venues/{venue}", func(w http.ResponseWriter, r *http.Request) {
		endpoint = routeTemplate(r)
	})
	router.Use(mux.MiddlewareFunc(LoggingMiddleware()))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/venues/X", nil))
	assert.Equal(t, "/venues/{venue}", endpoint)

	assert.Equal(t, "unmatched", routeTemplate(httptest.NewRequest("GET", "/nowhere", nil)))
}

func TestErrorHandlingMiddleware(t *testing.T) {
	for name, value := range map[string]interface{}{
		"string panic": "test panic",
		"error panic":  assert.AnError,
		"int panic":    42,
	} {
		t.Run(name, func(t *testing.T) {
			handler := ErrorHandlingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(value)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

			require.Equal(t, http.StatusInternalServerError, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Internal server error", body["error"])
			assert.Equal(t, float64(http.StatusInternalServerError), body["code"])
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(2, false)(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "127.0.0.1:12345"

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected status %d, got %d", i+1, http.StatusOK, w.Code)
		}
	}

	// Third request should be rate limited
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, req)
	if w3.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status %d, got %d", http.StatusTooManyRequests, w3.Code)
	}

	// A new connection from the same host shares the bucket
	sameHost := httptest.NewRequest("GET", "/test", nil)
	sameHost.RemoteAddr = "127.0.0.1:54321"
	w5 := httptest.NewRecorder()
	handler.ServeHTTP(w5, sameHost)
	assert.Equal(t, http.StatusTooManyRequests, w5.Code)

	// Spoofed proxy headers are ignored
	spoofed := httptest.NewRequest("GET", "/test", nil)
	spoofed.RemoteAddr = "127.0.0.1:23456"
	spoofed.Header.Set("X-Forwarded-For", "203.0.113.50")
	w6 := httptest.NewRecorder()
	handler.ServeHTTP(w6, spoofed)
	assert.Equal(t, http.StatusTooManyRequests, w6.Code)

	// Other clients have their own bucket
	other := httptest.NewRequest("GET", "/test", nil)
	other.RemoteAddr = "10.0.0.1:80"
	w4 := httptest.NewRecorder()
	handler.ServeHTTP(w4, other)
	assert.Equal(t, http.StatusOK, w4.Code)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	handler := RateLimitMiddleware(0, false)(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestChainMiddleware(t *testing.T) {
	handler := ChainMiddleware(
		CORSMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(),
	)(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header to be set")
	}
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req, false))
	assert.Equal(t, "192.0.2.1", getClientIP(req, true))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "192.0.2.1", getClientIP(req, false))
	assert.Equal(t, "198.51.100.7", getClientIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	assert.Equal(t, "192.0.2.1", getClientIP(req, false))
	assert.Equal(t, "203.0.113.9", getClientIP(req, true))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", getClientIP(req, false))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", getClientIP(req, false))
}
