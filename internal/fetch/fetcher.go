// Package fetch retrieves legislative portal pages politely.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/cache"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/util"
	"github.com/oplego/lexharvest/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx response
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

// Retryable reports whether another attempt could succeed
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests ||
		e.Code == http.StatusRequestTimeout ||
		e.Code >= 500
}

// Page is a fetched document
type Page struct {
	HTML         string
	StatusCode   int
	ContentType  string
	LastModified string
	FinalURL     string
	FromCache    bool
}

// Options configures a Fetcher
type Options struct {
	HTTP     model.HTTPConfig
	Cache    cache.Cache
	CacheTTL time.Duration
	Logger   zerolog.Logger
}

// Fetcher fetches HTML content from legislative portals. It sets the
// User-Agent, caps body size, honors robots.txt including crawl-delay, and
// serves repeated requests from a short-lived page cache.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	hosts      *worker.Limiters
	cache      cache.Cache
	cacheTTL   time.Duration
	log        zerolog.Logger
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(opts Options) *Fetcher {
	cfg := opts.HTTP
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 20_000_000
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		// Adapters bound request rates themselves; this registry only adds
		// the host's robots.txt crawl-delay on top.
		hosts:    worker.NewLimiters(4, 0),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		log:      opts.Logger,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, client)
	}

	return f
}

// Fetch retrieves the page at rawURL. Client errors other than 408 and 429
// are marked permanent so callers do not retry them.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	key := cache.CacheKey(rawURL)
	if f.cache != nil {
		if body, ok := f.cache.Get(key); ok {
			f.log.Debug().Str("url", rawURL).Msg("page cache hit")
			return &Page{HTML: string(body), StatusCode: http.StatusOK, FinalURL: rawURL, FromCache: true}, nil
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, worker.Permanent(fmt.Errorf("parse URL: %w", err))
	}

	limiter := f.hosts.For(parsed.Host)
	if f.robots != nil {
		verdict, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !verdict.Allowed {
			return nil, worker.Permanent(fmt.Errorf("fetch %s: %w", rawURL, ErrDisallowed))
		}
		if verdict.CrawlDelay > limiter.MinDelay() {
			f.log.Info().Str("host", parsed.Host).Dur("crawl_delay", verdict.CrawlDelay).Msg("honoring robots.txt crawl-delay")
			limiter = f.hosts.Configure(parsed.Host, 1, verdict.CrawlDelay)
		}
	}

	page, err := worker.WithLimit(ctx, limiter, func(ctx context.Context) (*Page, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(key, []byte(page.HTML), f.cacheTTL); err != nil {
			f.log.Warn().Err(err).Str("url", rawURL).Msg("page cache write failed")
		}
	}

	return page, nil
}

// Invalidate drops a cached page so the next Fetch goes to the network
func (f *Fetcher) Invalidate(rawURL string) {
	if f.cache != nil {
		_ = f.cache.Delete(cache.CacheKey(rawURL))
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, worker.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ro,en;q=0.8,de;q=0.6,bg;q=0.6,pl;q=0.6")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{Code: resp.StatusCode, URL: rawURL}
		if !statusErr.Retryable() {
			return nil, worker.Permanent(statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		HTML:         string(body),
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		FinalURL:     resp.Request.URL.String(),
	}, nil
}
