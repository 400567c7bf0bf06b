package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/cache"
	"github.com/oplego/lexharvest/internal/fetch"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

func TestCheckForUpdates_SkipsPageCache(t *testing.T) {
	var version atomic.Int32
	version.Store(1)
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, euPage("DIRECTIVA", fmt.Sprintf("%s versiunea %d", longBody, version.Load())))
	}))
	defer server.Close()

	f := fetch.NewFetcher(fetch.Options{
		HTTP: model.HTTPConfig{
			Timeout:      5 * time.Second,
			UserAgent:    "lexharvest-test/1.0",
			MaxBodyBytes: 1 << 20,
		},
		Cache:    cache.NewMemoryCache(time.Hour, time.Hour),
		CacheTTL: time.Hour,
		Logger:   zerolog.Nop(),
	})
	a := NewEUAdapter(Deps{
		Fetcher:   f,
		RateLimit: model.RateLimitConfig{MaxConcurrent: 1},
		Retry:     worker.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
		Logger:    zerolog.Nop(),
		BaseURL:   server.URL,
	})
	ctx := context.Background()

	raw, err := a.FetchAct(ctx, "31989L0391")
	if err != nil {
		t.Fatal(err)
	}
	// a second import within the TTL is served from cache
	if _, err := a.FetchAct(ctx, "31989L0391"); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request before the check, got %d", hits.Load())
	}

	version.Store(2)
	check, err := a.CheckForUpdates(ctx, "31989L0391", raw.ContentHash, raw.LanguageOriginal)
	if err != nil {
		t.Fatal(err)
	}
	if check.FetchErr != nil {
		t.Fatalf("unexpected fetch error: %v", check.FetchErr)
	}
	if !check.HasChanged || check.NewHash == raw.ContentHash {
		t.Errorf("expected the live page to show a change, got %+v", check)
	}
	if hits.Load() != 2 {
		t.Errorf("expected the check to hit the portal, got %d requests", hits.Load())
	}
}
