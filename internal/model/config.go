package model

import "time"

// Config is the complete lexharvest configuration
type Config struct {
	HTTP        HTTPConfig                       `yaml:"http" mapstructure:"http"`
	RateLimits  map[Jurisdiction]RateLimitConfig `yaml:"rate_limits" mapstructure:"rate_limits"`
	Retry       RetryConfig                      `yaml:"retry" mapstructure:"retry"`
	Translation TranslationConfig                `yaml:"translation" mapstructure:"translation"`
	LLM         LLMConfig                        `yaml:"llm" mapstructure:"llm"`
	Store       StoreConfig                      `yaml:"store" mapstructure:"store"`
	Pipeline    PipelineConfig                   `yaml:"pipeline" mapstructure:"pipeline"`
	Cache       CacheConfig                      `yaml:"cache" mapstructure:"cache"`
	Schedule    ScheduleConfig                   `yaml:"schedule" mapstructure:"schedule"`
	Log         LogConfig                        `yaml:"log" mapstructure:"log"`
}

// HTTPConfig controls how source portals are fetched
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig bounds traffic toward one origin
type RateLimitConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MinDelay      time.Duration `yaml:"min_delay" mapstructure:"min_delay"`
}

// RetryConfig is the exponential backoff policy for network calls
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
}

// TranslationConfig configures the translation API client
type TranslationConfig struct {
	Provider             string          `yaml:"provider" mapstructure:"provider"` // "deepl" or "" (disabled)
	BaseURL              string          `yaml:"base_url" mapstructure:"base_url"`
	APIKey               string          `yaml:"-" mapstructure:"api_key"`
	TargetLanguage       string          `yaml:"target_language" mapstructure:"target_language"`
	MaxChunkChars        int             `yaml:"max_chunk_chars" mapstructure:"max_chunk_chars"`
	PricePerMillionChars float64         `yaml:"price_per_million_chars" mapstructure:"price_per_million_chars"`
	RateLimit            RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LLMConfig configures the classification completion API
type LLMConfig struct {
	Provider                 string          `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model                    string          `yaml:"model" mapstructure:"model"`
	APIKey                   string          `yaml:"-" mapstructure:"api_key"`
	BaseURL                  string          `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout                  int             `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens                int             `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxPromptChars           int             `yaml:"max_prompt_chars" mapstructure:"max_prompt_chars"`
	InputPricePerMillionTok  float64         `yaml:"input_price_per_million_tokens" mapstructure:"input_price_per_million_tokens"`
	OutputPricePerMillionTok float64         `yaml:"output_price_per_million_tokens" mapstructure:"output_price_per_million_tokens"`
	RateLimit                RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // postgres or sqlite
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// PipelineConfig toggles optional stages
type PipelineConfig struct {
	TranslateEnabled bool `yaml:"translate_enabled" mapstructure:"translate_enabled"`
	StructureEnabled bool `yaml:"structure_enabled" mapstructure:"structure_enabled"`
}

// CacheConfig controls the fetched page cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ScheduleConfig holds the cron spec for the weekly update-check
type ScheduleConfig struct {
	UpdateCheckCron string `yaml:"update_check_cron" mapstructure:"update_check_cron"`
	MetricsAddr     string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       60 * time.Second,
			UserAgent:     "lexharvest/1.0 (+https://github.com/oplego/lexharvest)",
			MaxBodyBytes:  20_000_000, // consolidated acts can be large
			RespectRobots: true,
		},
		RateLimits: map[Jurisdiction]RateLimitConfig{
			JurisdictionEU: {MaxConcurrent: 2, MinDelay: 1500 * time.Millisecond},
			JurisdictionRO: {MaxConcurrent: 1, MinDelay: 2 * time.Second},
			JurisdictionDE: {MaxConcurrent: 2, MinDelay: time.Second},
			JurisdictionBG: {MaxConcurrent: 1, MinDelay: 2 * time.Second},
			JurisdictionPL: {MaxConcurrent: 1, MinDelay: 2 * time.Second},
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
		},
		Translation: TranslationConfig{
			Provider:             "deepl",
			BaseURL:              "https://api.deepl.com",
			TargetLanguage:       "RO",
			MaxChunkChars:        50_000,
			PricePerMillionChars: 25.0,
			RateLimit:            RateLimitConfig{MaxConcurrent: 2, MinDelay: 500 * time.Millisecond},
		},
		LLM: LLMConfig{
			Provider:                 "openai",
			Model:                    "gpt-4o-mini",
			Timeout:                  120,
			MaxTokens:                4000,
			MaxPromptChars:           30_000,
			InputPricePerMillionTok:  0.15,
			OutputPricePerMillionTok: 0.60,
			RateLimit:                RateLimitConfig{MaxConcurrent: 1, MinDelay: time.Second},
		},
		Store: StoreConfig{
			Driver: "postgres",
		},
		Pipeline: PipelineConfig{
			TranslateEnabled: true,
			StructureEnabled: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".lexharvest-cache",
			TTL:     time.Hour,
		},
		Schedule: ScheduleConfig{
			UpdateCheckCron: "0 0 3 * * 1", // Mondays 03:00
			MetricsAddr:     ":9464",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// RateLimitFor returns the configured limits for a jurisdiction, falling back
// to one request at a time with a two second gap.
func (c *Config) RateLimitFor(j Jurisdiction) RateLimitConfig {
	if rl, ok := c.RateLimits[j]; ok && rl.MaxConcurrent > 0 {
		return rl
	}
	return RateLimitConfig{MaxConcurrent: 1, MinDelay: 2 * time.Second}
}
