package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/cache"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

func newTestFetcher(c cache.Cache, robots bool) *Fetcher {
	return NewFetcher(Options{
		HTTP: model.HTTPConfig{
			Timeout:       5 * time.Second,
			UserAgent:     "lexharvest-test/1.0",
			MaxBodyBytes:  1 << 20,
			RespectRobots: robots,
		},
		Cache:    c,
		CacheTTL: time.Minute,
		Logger:   zerolog.Nop(),
	})
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><body>Legea 319/2006</body></html>")
	}))
	defer server.Close()

	page, err := newTestFetcher(nil, false).Fetch(context.Background(), server.URL+"/act")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.HTML != "<html><body>Legea 319/2006</body></html>" {
		t.Errorf("unexpected HTML: %s", page.HTML)
	}
	if gotUA != "lexharvest-test/1.0" {
		t.Errorf("expected configured user agent, got %q", gotUA)
	}
	if !strings.HasPrefix(page.ContentType, "text/html") {
		t.Errorf("unexpected content type %q", page.ContentType)
	}
}

func TestFetch_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
		message   string
	}{
		{http.StatusNotFound, true, "unexpected status: 404 Not Found"},
		{http.StatusForbidden, true, "unexpected status: 403 Forbidden"},
		{http.StatusTooManyRequests, false, "unexpected status: 429 Too Many Requests"},
		{http.StatusServiceUnavailable, false, "unexpected status: 503 Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := newTestFetcher(nil, false).Fetch(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			if worker.IsPermanent(err) != tt.permanent {
				t.Errorf("permanent = %v, want %v", worker.IsPermanent(err), tt.permanent)
			}
			if err.Error() != tt.message {
				t.Errorf("expected %q, got %q", tt.message, err.Error())
			}

			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tt.status {
				t.Errorf("expected StatusError with code %d", tt.status)
			}
		})
	}
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("a", 4096))
	}))
	defer server.Close()

	f := newTestFetcher(nil, false)
	f.maxBytes = 100

	page, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.HTML) != 100 {
		t.Errorf("expected body capped at 100 bytes, got %d", len(page.HTML))
	}
}

func TestFetch_CacheHit(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "<html>cached</html>")
	}))
	defer server.Close()

	f := newTestFetcher(cache.NewMemoryCache(time.Minute, time.Minute), false)
	ctx := context.Background()

	first, err := f.Fetch(ctx, server.URL)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.Fetch(ctx, server.URL)
	if err != nil {
		t.Fatal(err)
	}

	if hits.Load() != 1 {
		t.Errorf("expected a single network request, got %d", hits.Load())
	}
	if first.FromCache || !second.FromCache {
		t.Error("expected only the second fetch to come from cache")
	}
	if second.HTML != first.HTML {
		t.Error("cached page differs from original")
	}

	f.Invalidate(server.URL)
	if _, err := f.Fetch(ctx, server.URL); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("expected refetch after invalidate, got %d requests", hits.Load())
	}
}

func TestFetch_RobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /search\n")
			return
		}
		_, _ = fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	f := newTestFetcher(nil, true)
	ctx := context.Background()

	_, err := f.Fetch(ctx, server.URL+"/search?q=ssm")
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed, got %v", err)
	}
	if !worker.IsPermanent(err) {
		t.Error("robots refusal should not be retried")
	}

	if _, err := f.Fetch(ctx, server.URL+"/act/1"); err != nil {
		t.Errorf("expected allowed path to succeed, got %v", err)
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := newTestFetcher(nil, false).Fetch(ctx, server.URL); err == nil {
		t.Error("expected error on cancelled context")
	}
}
