// Package structure classifies translated acts into compliance metadata.
package structure

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/llm"
	"github.com/oplego/lexharvest/internal/logger"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

// Usage counts tokens billed by the completion API
type Usage struct {
	InputTokens  int
	OutputTokens int
	Calls        int
}

// Options configures a Structurer
type Options struct {
	Provider       llm.Provider
	Model          string
	MaxTokens      int
	MaxPromptChars int
	RateLimit      model.RateLimitConfig
	Limiter        *worker.RateLimiter // shared limiter; overrides RateLimit
	Retry          worker.RetryPolicy

	// Prices per million tokens
	InputPrice  float64
	OutputPrice float64

	Logger zerolog.Logger
}

// Structurer turns a TranslatedLegislation into a StructuredLegislation
type Structurer struct {
	provider       llm.Provider
	model          string
	maxTokens      int
	maxPromptChars int
	limiter        *worker.RateLimiter
	retry          worker.RetryPolicy
	inputPrice     float64
	outputPrice    float64
	system         string
	log            zerolog.Logger

	mu    sync.Mutex
	usage Usage
}

// New creates a new structurer
func New(opts Options) *Structurer {
	maxPrompt := opts.MaxPromptChars
	if maxPrompt <= 0 {
		maxPrompt = MaxPromptChars
	}

	limiter := opts.Limiter
	if limiter == nil {
		rl := opts.RateLimit
		if rl.MaxConcurrent <= 0 {
			rl.MaxConcurrent = 1
		}
		limiter = worker.NewRateLimiter(rl.MaxConcurrent, rl.MinDelay)
	}

	return &Structurer{
		provider:       opts.Provider,
		model:          opts.Model,
		maxTokens:      opts.MaxTokens,
		maxPromptChars: maxPrompt,
		limiter:        limiter,
		retry:          opts.Retry,
		inputPrice:     opts.InputPrice,
		outputPrice:    opts.OutputPrice,
		system:         buildSystemPrompt(),
		log:            logger.Component(opts.Logger, "structure"),
	}
}

// Structure classifies an act. A failed completion call is an error; an
// unreadable reply is not, it yields the fallback flagged for manual review.
func (s *Structurer) Structure(ctx context.Context, act *model.TranslatedLegislation) (*model.StructuredLegislation, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("structure %s: no llm provider configured", act.SourceID)
	}

	req := llm.CompletionRequest{
		System:    s.system,
		User:      buildUserPrompt(act, s.maxPromptChars),
		Model:     s.model,
		MaxTokens: s.maxTokens,
		JSON:      true,
	}

	resp, err := worker.WithRetry(ctx, s.retry, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return worker.WithLimit(ctx, s.limiter, func(ctx context.Context) (*llm.CompletionResponse, error) {
			resp, err := s.provider.Complete(ctx, req)
			if err != nil && !llm.IsRetryable(err) {
				return nil, worker.Permanent(err)
			}
			return resp, err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("structure %s: llm completion: %w", act.SourceID, err)
	}

	s.mu.Lock()
	s.usage.InputTokens += resp.InputTokens
	s.usage.OutputTokens += resp.OutputTokens
	s.usage.Calls++
	s.mu.Unlock()

	result := ParseResponse(resp.Text)
	if result.NeedsManualReview {
		s.log.Warn().Str("source_id", act.SourceID).Msg("unreadable classifier reply, using fallback structure")
	}

	out := &model.StructuredLegislation{
		TranslatedLegislation: *act,
		Domains:               result.Domains,
		OpLegoModules:         result.OpLegoModules,
		SSMRelevanceScore:     result.SSMRelevanceScore,
		Keywords:              result.Keywords,
		SummaryRo:             result.SummaryRo,
		Obligations:           result.Obligations,
		CrossReferences:       result.CrossReferences,
		InputTokens:           resp.InputTokens,
		OutputTokens:          resp.OutputTokens,
		StructuringCostUSD:    s.EstimateCost(resp.InputTokens, resp.OutputTokens),
		NeedsManualReview:     result.NeedsManualReview,
	}

	s.log.Debug().
		Str("source_id", act.SourceID).
		Int("score", out.SSMRelevanceScore).
		Int("obligations", len(out.Obligations)).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Msg("structured act")

	return out, nil
}

// Usage returns token counts since the last reset
func (s *Structurer) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// ResetUsage zeroes the token counters
func (s *Structurer) ResetUsage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = Usage{}
}

// EstimateCost prices a token count
func (s *Structurer) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*s.inputPrice + float64(outputTokens)/1e6*s.outputPrice
}
