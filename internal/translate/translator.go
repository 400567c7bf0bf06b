package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/legaltext"
	"github.com/oplego/lexharvest/internal/logger"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

// DefaultTargetLanguage is the working language of the platform
const DefaultTargetLanguage = "RO"

// Usage counts characters sent to the translation API
type Usage struct {
	Chars int
	Calls int
}

// Options configures a Translator
type Options struct {
	Client               Client
	TargetLanguage       string
	RateLimit            model.RateLimitConfig
	Limiter              *worker.RateLimiter // shared limiter; overrides RateLimit
	Retry                worker.RetryPolicy
	PricePerMillionChars float64
	Logger               zerolog.Logger
}

// Translator turns a RawLegislation into a TranslatedLegislation. Each
// instance keeps its own usage counters.
type Translator struct {
	client  Client
	target  string
	limiter *worker.RateLimiter
	retry   worker.RetryPolicy
	price   float64
	log     zerolog.Logger

	mu    sync.Mutex
	usage Usage
}

// New creates a new translator
func New(opts Options) *Translator {
	target := strings.ToUpper(opts.TargetLanguage)
	if target == "" {
		target = DefaultTargetLanguage
	}

	limiter := opts.Limiter
	if limiter == nil {
		rl := opts.RateLimit
		if rl.MaxConcurrent <= 0 {
			rl.MaxConcurrent = 1
		}
		limiter = worker.NewRateLimiter(rl.MaxConcurrent, rl.MinDelay)
	}

	return &Translator{
		client:  opts.Client,
		target:  target,
		limiter: limiter,
		retry:   opts.Retry,
		price:   opts.PricePerMillionChars,
		log:     logger.Component(opts.Logger, "translate"),
	}
}

// Translate renders the act's title, full text and every section into the
// target language. Acts already in the target language pass through at no
// cost. Long texts are split on legal boundaries and reassembled in order.
func (t *Translator) Translate(ctx context.Context, raw *model.RawLegislation) (*model.TranslatedLegislation, error) {
	out := &model.TranslatedLegislation{RawLegislation: *raw}
	out.Sections = make([]model.RawSection, len(raw.Sections))
	copy(out.Sections, raw.Sections)

	if strings.EqualFold(raw.LanguageOriginal, t.target) {
		out.TitleRo = raw.TitleOriginal
		out.TextRo = raw.TextOriginal
		out.TranslationProvider = model.ProviderNone
		for i := range out.Sections {
			out.Sections[i].TextRo = out.Sections[i].Text
		}
		return out, nil
	}

	if t.client == nil {
		return nil, fmt.Errorf("translate %s: no translation client configured", raw.SourceID)
	}

	source := strings.ToUpper(raw.LanguageOriginal)
	j := model.Jurisdiction(raw.CountryCode)
	var chars int

	text, n, chunks, err := t.translateLong(ctx, raw.TextOriginal, source, j)
	if err != nil {
		return nil, fmt.Errorf("translate %s text: %w", raw.SourceID, err)
	}
	chars += n
	out.TextRo = text

	title, n, err := t.translate(ctx, raw.TitleOriginal, source)
	if err != nil {
		return nil, fmt.Errorf("translate %s title: %w", raw.SourceID, err)
	}
	chars += n
	out.TitleRo = title

	for i := range out.Sections {
		text, n, _, err := t.translateLong(ctx, out.Sections[i].Text, source, j)
		if err != nil {
			return nil, fmt.Errorf("translate %s section %s: %w", raw.SourceID, out.Sections[i].Number, err)
		}
		chars += n
		out.Sections[i].TextRo = text
	}

	out.TranslationProvider = t.client.Provider()
	out.TranslationChars = chars
	out.TranslationCostUSD = t.EstimateCost(chars)

	t.log.Debug().
		Str("source_id", raw.SourceID).
		Str("from", source).
		Int("chunks", chunks).
		Int("chars", chars).
		Msg("translated act")

	return out, nil
}

// translateLong splits text to the client's limit on legal boundaries,
// translates each chunk and reassembles them in order. It returns the
// characters billed and the number of chunks.
func (t *Translator) translateLong(ctx context.Context, text, source string, j model.Jurisdiction) (string, int, int, error) {
	chunks := legaltext.SplitText(text, t.client.MaxChars(), j)
	translated := make([]legaltext.Chunk, 0, len(chunks))
	chars := 0
	for _, chunk := range chunks {
		out, n, err := t.translate(ctx, chunk.Text, source)
		if err != nil {
			return "", 0, 0, fmt.Errorf("chunk %d/%d: %w", chunk.Index+1, len(chunks), err)
		}
		chars += n
		translated = append(translated, legaltext.Chunk{Index: chunk.Index, Text: out})
	}
	return legaltext.ReassembleChunks(translated), chars, len(chunks), nil
}

// translate sends one block under the rate limiter with retry and returns
// the characters billed. Blank input is not sent.
func (t *Translator) translate(ctx context.Context, text, source string) (string, int, error) {
	if strings.TrimSpace(text) == "" {
		return text, 0, nil
	}

	out, err := worker.WithRetry(ctx, t.retry, func(ctx context.Context) (string, error) {
		return worker.WithLimit(ctx, t.limiter, func(ctx context.Context) (string, error) {
			return t.client.Translate(ctx, text, source, t.target)
		})
	})
	if err != nil {
		return "", 0, err
	}

	n := utf8.RuneCountInString(text)

	t.mu.Lock()
	t.usage.Chars += n
	t.usage.Calls++
	t.mu.Unlock()

	return out, n, nil
}

// Usage returns the characters and calls since the last reset
func (t *Translator) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// ResetUsage zeroes the usage counters
func (t *Translator) ResetUsage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = Usage{}
}

// EstimateCost prices a character count
func (t *Translator) EstimateCost(chars int) float64 {
	return float64(chars) / 1e6 * t.price
}
