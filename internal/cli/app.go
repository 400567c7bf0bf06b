package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/oplego/lexharvest/internal/adapters"
	"github.com/oplego/lexharvest/internal/cache"
	"github.com/oplego/lexharvest/internal/fetch"
	"github.com/oplego/lexharvest/internal/logger"
	"github.com/oplego/lexharvest/internal/metrics"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/pipeline"
	"github.com/oplego/lexharvest/internal/store"
)

// loadConfig layers the config file and environment over the defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// viper lowercases map keys
	for k, rl := range cfg.RateLimits {
		up := model.Jurisdiction(strings.ToUpper(string(k)))
		if up != k {
			delete(cfg.RateLimits, k)
			cfg.RateLimits[up] = rl
		}
	}

	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

// app holds the collaborators shared by the commands of one invocation
type app struct {
	cfg      *model.Config
	log      zerolog.Logger
	metrics  *metrics.Metrics
	adapters *adapters.Registry
	store    store.Store
}

// newApp loads configuration and builds the adapters. The store is opened
// only for commands that persist.
func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	a := &app{
		cfg:      cfg,
		log:      log,
		metrics:  metrics.New(),
		adapters: newRegistry(cfg, log),
	}

	if withStore {
		s, err := store.Open(ctx, cfg.Store, logger.Component(log, "store"))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = s
	}

	return a, nil
}

// newRegistry shares one fetcher across adapters. Each adapter gets its own
// rate limiter from the jurisdiction's limits.
func newRegistry(cfg *model.Config, log zerolog.Logger) *adapters.Registry {
	fetcher := fetch.NewFetcher(fetch.Options{
		HTTP:     cfg.HTTP,
		Cache:    cache.New(cfg.Cache),
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger.Component(log, "fetch"),
	})
	retry := pipeline.RetryPolicy(cfg.Retry)

	return adapters.NewRegistry(func(j model.Jurisdiction) adapters.Deps {
		return adapters.Deps{
			Fetcher:   fetcher,
			RateLimit: cfg.RateLimitFor(j),
			Retry:     retry,
			Logger:    logger.Component(log, "adapter."+strings.ToLower(string(j))),
		}
	})
}

// pipelineOptions builds the stage factories from config
func (a *app) pipelineOptions() (pipeline.Options, error) {
	newTranslator, err := pipeline.NewTranslatorFactory(a.cfg, a.log)
	if err != nil {
		return pipeline.Options{}, err
	}
	newStructurer, err := pipeline.NewStructurerFactory(a.cfg, a.log)
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Adapters:      a.adapters,
		Store:         a.store,
		NewTranslator: newTranslator,
		NewStructurer: newStructurer,
		Metrics:       a.metrics,
		Logger:        a.log,
	}, nil
}

func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close store")
	}
}
