package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mealmate/server/internal/api/middleware"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{PerMinute: 3, CleanupInterval: time.Hour})
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/kakao/token_exchange", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code)
	}

	blocked := send("10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "20", blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "RATE_LIMITED")

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code)
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{PerMinute: 10, CleanupInterval: time.Minute})
	defer rl.Stop()

	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, rl.Clients())

	rl.Cleanup()
	assert.Equal(t, 1, rl.Clients())

	mu.Lock()
	now = now.Add(3 * time.Minute)
	mu.Unlock()

	rl.Cleanup()
	assert.Equal(t, 0, rl.Clients())
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{})
	rl.Stop()
	rl.Stop()
}
