// Package translate renders fetched acts into the working language.
package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// Client translates one block of text
type Client interface {
	// Provider identifies the service for the stored record
	Provider() model.TranslationProvider

	// MaxChars is the largest text accepted in one request
	MaxChars() int

	// Translate translates text from source to target language codes
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// NewClient builds the configured translation client. An empty provider
// disables translation and returns nil.
func NewClient(cfg model.TranslationConfig, httpClient *http.Client) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "deepl":
		return NewDeepLClient(DeepLConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			MaxChars:   cfg.MaxChunkChars,
			HTTPClient: httpClient,
		})
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown translation provider: %s (supported: deepl)", cfg.Provider)
	}
}
