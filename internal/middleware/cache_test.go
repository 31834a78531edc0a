package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auth-service/internal/config"
)

func cacheFixture(t *testing.T) (*echo.Echo, *atomic.Int64) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "test:cache",
		MaxBodyBytes: 1 << 20,
	}

	var hits atomic.Int64
	e := echo.New()
	g := e.Group("", NewRedisCache(cfg, rdb))
	g.GET("/users", func(c echo.Context) error {
		n := hits.Add(1)
		return c.String(http.StatusOK, "call "+strconv.FormatInt(n, 10))
	})
	g.GET("/missing", func(c echo.Context) error {
		hits.Add(1)
		return c.String(http.StatusNotFound, "nope")
	})
	g.POST("/users", func(c echo.Context) error {
		hits.Add(1)
		return c.String(http.StatusOK, "posted")
	})
	return e, &hits
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCacheServesSecondRequestFromRedis(t *testing.T) {
	e, hits := cacheFixture(t)

	first := get(e, "/users")
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first: code=%d X-Cache=%q", first.Code, first.Header().Get("X-Cache"))
	}

	second := get(e, "/users")
	if second.Code != http.StatusOK || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second: code=%d X-Cache=%q", second.Code, second.Header().Get("X-Cache"))
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if hits.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", hits.Load())
	}
}

func TestCacheKeysIncludeQuery(t *testing.T) {
	e, hits := cacheFixture(t)

	get(e, "/users?page=1")
	get(e, "/users?page=2")
	if hits.Load() != 2 {
		t.Fatalf("handler ran %d times, want 2 (distinct queries)", hits.Load())
	}
	rec := get(e, "/users?page=1")
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Fatal("repeated query did not hit the cache")
	}
}

func TestCacheSkipsNonSuccessAndNonGET(t *testing.T) {
	e, hits := cacheFixture(t)

	// Non-200 responses are never stored.
	get(e, "/missing")
	get(e, "/missing")
	if hits.Load() != 2 {
		t.Fatalf("404 handler ran %d times, want 2", hits.Load())
	}

	// POST bypasses entirely.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/users", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Header().Get("X-Cache") != "" {
			t.Fatal("POST response carried an X-Cache header")
		}
	}
	if hits.Load() != 4 {
		t.Fatalf("handlers ran %d times, want 4", hits.Load())
	}
}

func TestCacheDisabledPassesThrough(t *testing.T) {
	var hits atomic.Int64
	e := echo.New()
	g := e.Group("", NewRedisCache(config.CacheConfig{Enabled: false}, nil))
	g.GET("/users", func(c echo.Context) error {
		hits.Add(1)
		return c.String(http.StatusOK, "ok")
	})

	get(e, "/users")
	get(e, "/users")
	if hits.Load() != 2 {
		t.Fatalf("disabled cache: handler ran %d times, want 2", hits.Load())
	}
}
