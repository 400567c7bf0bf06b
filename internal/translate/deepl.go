package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

const (
	deeplProURL  = "https://api.deepl.com"
	deeplFreeURL = "https://api-free.deepl.com"

	// DeepL accepts request bodies up to 128 KiB
	deeplDefaultMaxChars = 50_000
)

// DeepLConfig configures the DeepL client
type DeepLConfig struct {
	APIKey     string
	BaseURL    string
	MaxChars   int
	HTTPClient *http.Client
}

// DeepLClient talks to the DeepL v2 REST API
type DeepLClient struct {
	apiKey     string
	baseURL    string
	maxChars   int
	httpClient *http.Client
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

type deeplError struct {
	Message string `json:"message"`
}

// APIError is a non-2xx answer from the translation API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("deepl API error (%d): %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("deepl API error (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether repeating the request may succeed
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewDeepLClient creates a new DeepL client. Free-tier keys (suffix ":fx")
// default to the free endpoint.
func NewDeepLClient(cfg DeepLConfig) (*DeepLClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("DeepL API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deeplProURL
		if strings.HasSuffix(cfg.APIKey, ":fx") {
			baseURL = deeplFreeURL
		}
	}

	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = deeplDefaultMaxChars
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &DeepLClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxChars:   maxChars,
		httpClient: httpClient,
	}, nil
}

// Provider returns model.ProviderDeepL
func (c *DeepLClient) Provider() model.TranslationProvider {
	return model.ProviderDeepL
}

// MaxChars returns the per-request character ceiling
func (c *DeepLClient) MaxChars() int {
	return c.maxChars
}

// Translate sends one text block. 4xx answers other than 429 are marked
// permanent so that retry loops give up at once.
func (c *DeepLClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(targetLang))
	if sourceLang != "" {
		form.Set("source_lang", strings.ToUpper(sourceLang))
	}
	form.Set("preserve_formatting", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e deeplError
		if json.Unmarshal(body, &e) == nil {
			apiErr.Message = e.Message
		}
		if apiErr.Retryable() {
			return "", apiErr
		}
		return "", worker.Permanent(apiErr)
	}

	var out deeplResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal deepl response: %w", err)
	}
	if len(out.Translations) == 0 {
		return "", fmt.Errorf("no translations in deepl response")
	}

	return out.Translations[0].Text, nil
}
