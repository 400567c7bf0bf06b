// Package adapters fetches legislative acts from jurisdiction portals.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/fetch"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

// MinTextLength is the shortest body accepted as a real document
const MinTextLength = 200

var (
	// ErrNoText means the page had no usable document body
	ErrNoText = errors.New("no text found")

	// ErrUnknownJurisdiction is returned for codes without an adapter
	ErrUnknownJurisdiction = errors.New("unknown jurisdiction")
)

// Adapter fetches acts for one jurisdiction
type Adapter interface {
	// Jurisdiction returns the jurisdiction served
	Jurisdiction() model.Jurisdiction

	// FetchAct fetches and parses a single act
	FetchAct(ctx context.Context, sourceID string) (*model.RawLegislation, error)

	// SearchActs returns priority acts matching the query
	SearchActs(ctx context.Context, params SearchParams) ([]*model.RawLegislation, error)

	// CheckForUpdates re-fetches an act in language, the language its
	// stored text came from, and compares its content hash. An empty
	// language uses FetchAct's fallback order.
	CheckForUpdates(ctx context.Context, sourceID, lastHash, language string) (UpdateCheck, error)

	// PriorityActs returns the curated seed list in import order
	PriorityActs() []PriorityAct
}

// SearchParams filters SearchActs
type SearchParams struct {
	Query string
	Limit int
}

// UpdateCheck is the outcome of a change check. When the re-fetch fails,
// HasChanged is false and FetchErr carries the cause.
type UpdateCheck struct {
	HasChanged bool
	NewHash    string
	Act        *model.RawLegislation
	FetchErr   error
}

// PriorityAct is one curated seed entry
type PriorityAct struct {
	SourceID  string
	Title     string
	ShortName string
}

// PageFetcher retrieves raw pages
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// pageInvalidator is implemented by fetchers that cache pages
type pageInvalidator interface {
	Invalidate(rawURL string)
}

// Deps are the collaborators shared by all adapters
type Deps struct {
	Fetcher   PageFetcher
	RateLimit model.RateLimitConfig
	Retry     worker.RetryPolicy
	Logger    zerolog.Logger

	// BaseURL overrides the portal origin (tests, mirrors)
	BaseURL string
}

// New builds the adapter for a jurisdiction
func New(j model.Jurisdiction, deps Deps) (Adapter, error) {
	switch j {
	case model.JurisdictionEU:
		return NewEUAdapter(deps), nil
	case model.JurisdictionRO:
		return NewROAdapter(deps), nil
	case model.JurisdictionDE:
		return NewDEAdapter(deps), nil
	case model.JurisdictionBG:
		return NewBGAdapter(deps), nil
	case model.JurisdictionPL:
		return NewPLAdapter(deps), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJurisdiction, j)
	}
}

// Registry hands out one adapter per jurisdiction, so that every run in the
// process shares that jurisdiction's rate limiter.
type Registry struct {
	adapters map[model.Jurisdiction]Adapter
	mu       sync.Mutex
	depsFor  func(model.Jurisdiction) Deps
}

// NewRegistry creates a new adapter registry
func NewRegistry(depsFor func(model.Jurisdiction) Deps) *Registry {
	return &Registry{
		adapters: make(map[model.Jurisdiction]Adapter),
		depsFor:  depsFor,
	}
}

// Register installs an adapter, replacing any existing one
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Jurisdiction()] = a
}

// Get returns the adapter for j, building it on first use
func (r *Registry) Get(j model.Jurisdiction) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[j]; ok {
		return a, nil
	}
	if r.depsFor == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJurisdiction, j)
	}

	a, err := New(j, r.depsFor(j))
	if err != nil {
		return nil, err
	}
	r.adapters[j] = a
	return a, nil
}

// Jurisdictions returns every jurisdiction with an adapter
func (r *Registry) Jurisdictions() []model.Jurisdiction {
	if r.depsFor != nil {
		return model.AllJurisdictions()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Jurisdiction
	for _, j := range model.AllJurisdictions() {
		if _, ok := r.adapters[j]; ok {
			out = append(out, j)
		}
	}
	return out
}
