package llm

import (
	"testing"

	"github.com/oplego/lexharvest/internal/model"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"disabled", Config{}, "", false},
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"claude alias", Config{Provider: "Claude", APIKey: "k"}, "anthropic", false},
		{"ollama", Config{Provider: "ollama"}, "ollama", false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"unknown", Config{Provider: "watson"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if tt.wantName == "" {
				if p != nil && !tt.wantErr {
					t.Errorf("expected nil provider, got %s", p.Name())
				}
				return
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(
		model.LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k", MaxTokens: 2000},
		model.HTTPConfig{HTTPSProxy: "http://proxy:3128"},
	)

	if cfg.Provider != "openai" || cfg.Model != "gpt-4o-mini" || cfg.APIKey != "k" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.MaxTokens != 2000 {
		t.Errorf("expected max tokens 2000, got %d", cfg.MaxTokens)
	}
	if cfg.Timeout != DefaultConfig().Timeout {
		t.Errorf("expected default timeout, got %d", cfg.Timeout)
	}
	if cfg.HTTPSProxy != "http://proxy:3128" {
		t.Errorf("expected proxy to be carried over, got %q", cfg.HTTPSProxy)
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{429: true, 408: true, 500: true, 503: true, 400: false, 401: false, 404: false} {
		if got := IsRetryableStatus(code); got != want {
			t.Errorf("status %d: expected %v, got %v", code, want, got)
		}
	}
}
