package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRateLimiter_AllowWithinBurst(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	limiter := NewInMemoryRateLimiter(100, 5)
	defer limiter.Close()

	// Burst capacity is 2 x rate.
	for i := 0; i < 10; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d should be allowed", i)
	}

	assert.False(t, limiter.Allow("10.0.0.1"), "request over burst should be denied")
}

func TestInMemoryRateLimiter_ClientsIsolated(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	limiter := NewInMemoryRateLimiter(1000, 2)
	defer limiter.Close()

	for i := 0; i < 4; i++ {
		limiter.Allow("10.0.0.1")
	}

	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "a different client has its own bucket")
}

func TestInMemoryRateLimiter_GlobalLimitCapsAllClients(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	limiter := NewInMemoryRateLimiter(1, 1000)
	defer limiter.Close()

	// Global burst is 2; exhaust it across distinct clients.
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
	assert.False(t, limiter.Allow("10.0.0.3"))
}

func TestInMemoryRateLimiter_DefaultsForInvalidRates(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	limiter := NewInMemoryRateLimiter(0, -1)
	defer limiter.Close()

	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestInMemoryRateLimiter_CloseIsIdempotent(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	limiter := NewInMemoryRateLimiter(10, 10)

	limiter.Close()
	limiter.Close()
}

func TestRateLimitMiddleware_RejectsWith429(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	limiter := NewInMemoryRateLimiter(1000, 1)
	defer limiter.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RateLimit(limiter, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var lastCode int

	// Burst of 2, so the third request from the same address is rejected.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/charts", nil)
		req.RemoteAddr = "10.0.0.1:12345"

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		lastCode = recorder.Code
	}

	require.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestClientKey(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.7:54321"

	assert.Equal(t, "192.168.1.7", clientKey(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientKey(req))
}
