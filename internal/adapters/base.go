package adapters

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/fetch"
	"github.com/oplego/lexharvest/internal/legaltext"
	"github.com/oplego/lexharvest/internal/logger"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

// identity is what an adapter can tell about an act from its id and title
type identity struct {
	ActType string
	Number  string
	Year    int
}

// profile holds everything that differs between portals
type profile struct {
	jurisdiction model.Jurisdiction
	baseURL      string

	// languages are tried in order; the first is the official one
	languages   []string
	documentURL func(base, sourceID, lang string) string

	bodySelectors  []string
	titleSelectors []string
	stripSelectors []string

	identify func(sourceID, title string) identity

	// repealMarkers near the top of a document mean it is no longer in force
	repealMarkers []string

	adoptedLabels []string
	inForceLabels []string
	amendedLabels []string

	priority []PriorityAct
}

// BaseAdapter implements Adapter on top of a portal profile
type BaseAdapter struct {
	profile profile
	baseURL string
	fetcher PageFetcher
	limiter *worker.RateLimiter
	retry   worker.RetryPolicy
	log     zerolog.Logger
}

func newBaseAdapter(p profile, deps Deps) *BaseAdapter {
	base := p.baseURL
	if deps.BaseURL != "" {
		base = strings.TrimRight(deps.BaseURL, "/")
	}

	rl := deps.RateLimit
	if rl.MaxConcurrent <= 0 {
		rl.MaxConcurrent = 1
	}

	retry := deps.Retry
	if retry.BaseDelay <= 0 && retry.MaxRetries == 0 {
		retry = worker.DefaultRetryPolicy()
	}

	return &BaseAdapter{
		profile: p,
		baseURL: base,
		fetcher: deps.Fetcher,
		limiter: worker.NewRateLimiter(rl.MaxConcurrent, rl.MinDelay),
		retry:   retry,
		log:     logger.Component(deps.Logger, "adapter."+strings.ToLower(string(p.jurisdiction))),
	}
}

// Jurisdiction returns the jurisdiction served
func (b *BaseAdapter) Jurisdiction() model.Jurisdiction {
	return b.profile.jurisdiction
}

// PriorityActs returns a copy of the curated seed list
func (b *BaseAdapter) PriorityActs() []PriorityAct {
	out := make([]PriorityAct, len(b.profile.priority))
	copy(out, b.profile.priority)
	return out
}

// FetchAct fetches an act in the official language, falling back to the
// next configured language when that fails or yields too little text.
func (b *BaseAdapter) FetchAct(ctx context.Context, sourceID string) (*model.RawLegislation, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, worker.Permanent(fmt.Errorf("fetch: empty source id"))
	}

	var lastErr error
	for i, lang := range b.profile.languages {
		raw, err := b.fetchLanguage(ctx, sourceID, lang)
		if err == nil {
			if i > 0 {
				b.log.Info().Str("source_id", sourceID).Str("language", lang).Msg("using fallback language")
			}
			return raw, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(b.profile.languages) {
			b.log.Warn().Err(err).Str("source_id", sourceID).Str("language", lang).Msg("primary language failed, trying fallback")
		}
	}

	return nil, lastErr
}

func (b *BaseAdapter) fetchLanguage(ctx context.Context, sourceID, lang string) (*model.RawLegislation, error) {
	url := b.profile.documentURL(b.baseURL, sourceID, lang)

	page, err := worker.WithRetry(ctx, b.retry, func(ctx context.Context) (*fetch.Page, error) {
		return worker.WithLimit(ctx, b.limiter, func(ctx context.Context) (*fetch.Page, error) {
			return b.fetcher.Fetch(ctx, url)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sourceID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: parse html: %w", sourceID, err)
	}

	markupTitle := firstText(doc, b.profile.titleSelectors)
	text := extractBody(doc, b.profile.bodySelectors, b.profile.stripSelectors)
	if utf8.RuneCountInString(text) < MinTextLength {
		return nil, fmt.Errorf("fetch %s (%s): %w", sourceID, lang, ErrNoText)
	}

	raw := &model.RawLegislation{
		SourceID:         sourceID,
		SourceURL:        url,
		TextOriginal:     text,
		LanguageOriginal: strings.ToUpper(lang),
		CountryCode:      b.profile.jurisdiction.CountryCode(),
		ContentHash:      legaltext.HashContent(text),
		Sections:         legaltext.ExtractSections(text, b.profile.jurisdiction),
		InForce:          true,
		Metadata:         map[string]string{},
	}

	curated := b.curated(sourceID)
	raw.TitleOriginal = b.title(curated, markupTitle, text, sourceID)
	raw.ActShortName = curated.ShortName
	if page.FinalURL != "" && page.FinalURL != url {
		raw.Metadata["final_url"] = page.FinalURL
	}
	if page.LastModified != "" {
		raw.Metadata["last_modified"] = page.LastModified
	}

	if b.profile.identify != nil {
		id := b.profile.identify(sourceID, raw.TitleOriginal)
		raw.ActType = id.ActType
		raw.ActNumber = id.Number
		raw.ActYear = id.Year
	}

	b.applyDates(raw)
	raw.InForce = !b.repealed(raw.TitleOriginal, text)

	b.log.Debug().
		Str("source_id", sourceID).
		Str("language", raw.LanguageOriginal).
		Int("chars", utf8.RuneCountInString(text)).
		Int("sections", len(raw.Sections)).
		Msg("fetched act")

	return raw, nil
}

func (b *BaseAdapter) curated(sourceID string) PriorityAct {
	for _, p := range b.profile.priority {
		if p.SourceID == sourceID {
			return p
		}
	}
	return PriorityAct{}
}

// title falls back from the curated title to markup to the body heading
func (b *BaseAdapter) title(curated PriorityAct, markup, text, sourceID string) string {
	switch {
	case curated.Title != "":
		return curated.Title
	case markup != "":
		return markup
	}
	if heading := headingFromText(text); heading != "" {
		return heading
	}
	return sourceID
}

func (b *BaseAdapter) applyDates(raw *model.RawLegislation) {
	head := raw.TextOriginal
	if len(head) > 5000 {
		head = head[:5000]
	}

	raw.DateAdopted = labeledDate(head, b.profile.adoptedLabels)
	if raw.DateAdopted == nil {
		raw.DateAdopted = parseDate(raw.TitleOriginal)
	}
	raw.DateInForce = labeledDate(head, b.profile.inForceLabels)
	raw.DateLastAmended = labeledDate(head, b.profile.amendedLabels)

	if raw.ActYear == 0 && raw.DateAdopted != nil {
		raw.ActYear = raw.DateAdopted.Year()
	}
}

func (b *BaseAdapter) repealed(title, text string) bool {
	head := title + "\n" + text
	if len(head) > 600 {
		head = head[:600]
	}
	head = strings.ToLower(head)

	for _, marker := range b.profile.repealMarkers {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

// SearchActs fetches the priority acts whose curated title or short name
// contains the query. Individual fetch failures are logged and skipped.
func (b *BaseAdapter) SearchActs(ctx context.Context, params SearchParams) ([]*model.RawLegislation, error) {
	query := strings.ToLower(strings.TrimSpace(params.Query))

	var results []*model.RawLegislation
	for _, p := range b.profile.priority {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if params.Limit > 0 && len(results) >= params.Limit {
			break
		}
		if query != "" && !matchesQuery(p, query) {
			continue
		}

		raw, err := b.FetchAct(ctx, p.SourceID)
		if err != nil {
			b.log.Warn().Err(err).Str("source_id", p.SourceID).Msg("search: fetch failed")
			continue
		}
		results = append(results, raw)
	}

	return results, nil
}

func matchesQuery(p PriorityAct, query string) bool {
	return strings.Contains(strings.ToLower(p.Title), query) ||
		strings.Contains(strings.ToLower(p.ShortName), query) ||
		strings.Contains(strings.ToLower(p.SourceID), query)
}

// CheckForUpdates re-fetches an act and compares hashes. The act is fetched
// only in the language it was stored in, so that a fallback page never
// reads as a content change. A failed fetch is reported as unchanged with
// FetchErr set.
func (b *BaseAdapter) CheckForUpdates(ctx context.Context, sourceID, lastHash, language string) (UpdateCheck, error) {
	b.dropCached(sourceID)

	raw, err := b.fetchIn(ctx, sourceID, language)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return UpdateCheck{}, ctxErr
		}
		b.log.Warn().Err(err).Str("source_id", sourceID).Msg("update check fetch failed, assuming unchanged")
		return UpdateCheck{HasChanged: false, FetchErr: err}, nil
	}

	return UpdateCheck{
		HasChanged: raw.ContentHash != lastHash,
		NewHash:    raw.ContentHash,
		Act:        raw,
	}, nil
}

// fetchIn fetches an act in one configured language without fallback
func (b *BaseAdapter) fetchIn(ctx context.Context, sourceID, language string) (*model.RawLegislation, error) {
	if language == "" {
		return b.FetchAct(ctx, sourceID)
	}

	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, worker.Permanent(fmt.Errorf("fetch: empty source id"))
	}
	for _, lang := range b.profile.languages {
		if strings.EqualFold(lang, language) {
			return b.fetchLanguage(ctx, sourceID, lang)
		}
	}
	return nil, worker.Permanent(fmt.Errorf("fetch %s: %s portal does not serve language %q", sourceID, b.profile.jurisdiction, language))
}

// dropCached evicts an act's pages from the fetcher cache so a check sees
// the live document
func (b *BaseAdapter) dropCached(sourceID string) {
	inv, ok := b.fetcher.(pageInvalidator)
	if !ok {
		return
	}
	sourceID = strings.TrimSpace(sourceID)
	for _, lang := range b.profile.languages {
		inv.Invalidate(b.profile.documentURL(b.baseURL, sourceID, lang))
	}
}
