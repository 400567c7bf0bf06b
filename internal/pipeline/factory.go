package pipeline

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/llm"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/structure"
	"github.com/oplego/lexharvest/internal/translate"
	"github.com/oplego/lexharvest/internal/util"
	"github.com/oplego/lexharvest/internal/worker"
)

// RetryPolicy converts the configured backoff into a worker policy
func RetryPolicy(cfg model.RetryConfig) worker.RetryPolicy {
	p := worker.DefaultRetryPolicy()
	if cfg.MaxRetries >= 0 {
		p.MaxRetries = cfg.MaxRetries
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	return p
}

// NewTranslatorFactory builds translators from configuration. API clients
// and the rate limiter are created once and shared by every run; only the
// usage counters are per run. A nil factory is returned when translation is
// disabled.
func NewTranslatorFactory(cfg *model.Config, log zerolog.Logger) (TranslatorFactory, error) {
	if !cfg.Pipeline.TranslateEnabled {
		return nil, nil
	}

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		},
	}

	client, err := translate.NewClient(cfg.Translation, httpClient)
	if err != nil {
		return nil, fmt.Errorf("translation client: %w", err)
	}
	if client == nil {
		log.Warn().Msg("translation enabled without a provider; only acts already in the target language will pass")
	}

	rl := cfg.Translation.RateLimit
	if rl.MaxConcurrent <= 0 {
		rl.MaxConcurrent = 1
	}
	limiter := worker.NewRateLimiter(rl.MaxConcurrent, rl.MinDelay)

	opts := translate.Options{
		Client:               client,
		TargetLanguage:       cfg.Translation.TargetLanguage,
		Limiter:              limiter,
		Retry:                RetryPolicy(cfg.Retry),
		PricePerMillionChars: cfg.Translation.PricePerMillionChars,
		Logger:               log,
	}

	return func() (Translator, error) {
		return translate.New(opts), nil
	}, nil
}

// NewStructurerFactory builds structurers from configuration. A nil factory
// is returned when structuring is disabled.
func NewStructurerFactory(cfg *model.Config, log zerolog.Logger) (StructurerFactory, error) {
	if !cfg.Pipeline.StructureEnabled {
		return nil, nil
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("structuring enabled but llm.provider is empty")
	}

	rl := cfg.LLM.RateLimit
	if rl.MaxConcurrent <= 0 {
		rl.MaxConcurrent = 1
	}
	limiter := worker.NewRateLimiter(rl.MaxConcurrent, rl.MinDelay)

	opts := structure.Options{
		Provider:       provider,
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		MaxPromptChars: cfg.LLM.MaxPromptChars,
		Limiter:        limiter,
		Retry:          RetryPolicy(cfg.Retry),
		InputPrice:     cfg.LLM.InputPricePerMillionTok,
		OutputPrice:    cfg.LLM.OutputPricePerMillionTok,
		Logger:         log,
	}

	return func() (Structurer, error) {
		return structure.New(opts), nil
	}, nil
}
