package adapters

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/fetch"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

// fakeFetcher serves canned pages by URL
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	errs     map[string]error
	fallback string
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*fetch.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[rawURL]++
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if html, ok := f.pages[rawURL]; ok {
		return &fetch.Page{HTML: html, StatusCode: 200, FinalURL: rawURL}, nil
	}
	if f.fallback != "" {
		return &fetch.Page{HTML: f.fallback, StatusCode: 200, FinalURL: rawURL}, nil
	}
	return nil, worker.Permanent(fmt.Errorf("unexpected status: 404 Not Found"))
}

func (f *fakeFetcher) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

const testBase = "http://portal.test"

func testDeps(f PageFetcher) Deps {
	return Deps{
		Fetcher:   f,
		RateLimit: model.RateLimitConfig{MaxConcurrent: 1},
		Retry:     worker.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
		Logger:    zerolog.Nop(),
		BaseURL:   testBase,
	}
}

func euURL(lang, celex string) string {
	return testBase + "/legal-content/" + lang + "/TXT/HTML/?uri=CELEX:" + celex
}

// euPage builds an EUR-Lex style document
func euPage(title string, articles ...string) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>EUR-Lex</title></head><body>`)
	b.WriteString(`<nav>Acasă | Căutare | Ajutor</nav><div id="document1">`)
	fmt.Fprintf(&b, `<p class="doc-ti">%s</p>`, title)
	b.WriteString(`<p>CONSILIUL COMUNITĂȚILOR EUROPENE, având în vedere Tratatul de instituire a Comunității Economice Europene.</p>`)
	for i, body := range articles {
		fmt.Fprintf(&b, `<p class="ti-art">Articolul %d</p><p class="sti-art">Titlu %d</p><p>%s</p>`, i+1, i+1, body)
	}
	b.WriteString(`</div><footer>Politica privind cookie-urile</footer></body></html>`)
	return b.String()
}

var longBody = strings.Repeat("Angajatorul are obligația de a asigura securitatea și sănătatea lucrătorilor în toate aspectele legate de muncă. ", 3)
