package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := NewRateLimiter(client, zerolog.Nop())
	// Small window for tests.
	rl.limits = map[string]RateLimit{
		"GET /ws": {3, time.Minute},
	}
	return rl
}

func doRequest(t *testing.T, handler http.Handler, path, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterAllowsThenBlocks(t *testing.T) {
	rl := newTestLimiter(t)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rec := doRequest(t, handler, "/ws", "10.0.0.1")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := doRequest(t, handler, "/ws", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := newTestLimiter(t)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 4; i++ {
		doRequest(t, handler, "/ws", "10.0.0.1")
	}

	// A different IP has its own budget.
	rec := doRequest(t, handler, "/ws", "10.0.0.2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected second client to be allowed, got %d", rec.Code)
	}
}

func TestRateLimiterSkipsUnmatchedPaths(t *testing.T) {
	rl := newTestLimiter(t)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 10; i++ {
		rec := doRequest(t, handler, "/metrics", "10.0.0.1")
		if rec.Code != http.StatusOK {
			t.Fatalf("unlimited path blocked at request %d: %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterPassThroughWithoutRedis(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop())
	handler := rl.Middleware(okHandler())

	for i := 0; i < 50; i++ {
		rec := doRequest(t, handler, "/ws", "10.0.0.1")
		if rec.Code != http.StatusOK {
			t.Fatalf("nil-client limiter must pass through, got %d", rec.Code)
		}
	}
}

func TestRateLimitHeaders(t *testing.T) {
	rl := newTestLimiter(t)
	handler := rl.Middleware(okHandler())

	rec := doRequest(t, handler, "/ws", "10.0.0.9")
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "3" {
		t.Fatalf("expected limit header 3, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining 2 after first request, got %q", got)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatal("expected reset header")
	}
}
