package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/adapters"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/store"
	"github.com/oplego/lexharvest/internal/structure"
	"github.com/oplego/lexharvest/internal/translate"
)

func rawAct(j model.Jurisdiction, id, hash string) *model.RawLegislation {
	return &model.RawLegislation{
		SourceID:         id,
		SourceURL:        "https://example.test/" + id,
		TitleOriginal:    "Act " + id,
		TextOriginal:     "Article 1\nThe employer shall assess risks. " + hash,
		LanguageOriginal: "EN",
		CountryCode:      j.CountryCode(),
		ContentHash:      hash,
		InForce:          true,
		Sections: []model.RawSection{
			{Number: "Article 1", Text: "The employer shall assess risks.", SortOrder: 0},
		},
	}
}

// fakeAdapter serves acts from a map
type fakeAdapter struct {
	j        model.Jurisdiction
	priority []adapters.PriorityAct
	acts     map[string]*model.RawLegislation
	errs     map[string]error

	mu        sync.Mutex
	fetches   map[string]int
	checkLang map[string]string
}

func newFakeAdapter(j model.Jurisdiction, ids ...string) *fakeAdapter {
	a := &fakeAdapter{
		j:         j,
		acts:      make(map[string]*model.RawLegislation),
		errs:      make(map[string]error),
		fetches:   make(map[string]int),
		checkLang: make(map[string]string),
	}
	for _, id := range ids {
		a.priority = append(a.priority, adapters.PriorityAct{SourceID: id})
		a.acts[id] = rawAct(j, id, "hash-"+id)
	}
	return a
}

func (a *fakeAdapter) Jurisdiction() model.Jurisdiction { return a.j }

func (a *fakeAdapter) FetchAct(_ context.Context, sourceID string) (*model.RawLegislation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fetches[sourceID]++
	if err, ok := a.errs[sourceID]; ok {
		return nil, err
	}
	raw, ok := a.acts[sourceID]
	if !ok {
		return nil, adapters.ErrNoText
	}
	cp := *raw
	return &cp, nil
}

func (a *fakeAdapter) SearchActs(_ context.Context, _ adapters.SearchParams) ([]*model.RawLegislation, error) {
	return nil, nil
}

func (a *fakeAdapter) CheckForUpdates(ctx context.Context, sourceID, lastHash, language string) (adapters.UpdateCheck, error) {
	a.mu.Lock()
	a.checkLang[sourceID] = language
	a.mu.Unlock()

	raw, err := a.FetchAct(ctx, sourceID)
	if err != nil {
		return adapters.UpdateCheck{FetchErr: err}, nil
	}
	return adapters.UpdateCheck{
		HasChanged: raw.ContentHash != lastHash,
		NewHash:    raw.ContentHash,
		Act:        raw,
	}, nil
}

func (a *fakeAdapter) PriorityActs() []adapters.PriorityAct {
	return a.priority
}

func (a *fakeAdapter) fetchCount(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetches[id]
}

// memStore is an in-memory store.Store
type memStore struct {
	mu       sync.Mutex
	acts     map[string]store.ActRecord
	stored   map[string]*model.StoredAct
	seq      int
	saveErrs map[string]error
	runs     []*model.ImportResult
	started  int
	finished int
}

func newMemStore() *memStore {
	return &memStore{
		acts:     make(map[string]store.ActRecord),
		stored:   make(map[string]*model.StoredAct),
		saveErrs: make(map[string]error),
	}
}

func actKey(cc, id string) string { return cc + "/" + id }

func (s *memStore) ActExists(_ context.Context, j model.Jurisdiction, sourceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.acts[actKey(j.CountryCode(), sourceID)]
	return ok, nil
}

func (s *memStore) write(rec store.ActRecord) {
	key := actKey(rec.Act.CountryCode, rec.Act.SourceID)
	s.acts[key] = rec
	s.seq++

	sa, ok := s.stored[key]
	if !ok {
		sa = &model.StoredAct{ID: int64(len(s.stored) + 1)}
		s.stored[key] = sa
	}
	sa.CountryCode = rec.Act.CountryCode
	sa.SourceID = rec.Act.SourceID
	sa.ContentHash = rec.Act.ContentHash
	sa.Status = rec.Status
	sa.ReviewStatus = rec.ReviewStatus
	sa.TitleRo = rec.Act.TitleRo
	sa.LanguageOriginal = rec.Act.LanguageOriginal
	sa.NeedsManualReview = rec.Act.NeedsManualReview
	sa.UpdatedAt = time.Date(2024, 1, 1, 0, s.seq, 0, 0, time.UTC)
}

func (s *memStore) SaveAct(_ context.Context, rec store.ActRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.saveErrs[rec.Act.SourceID]; ok {
		return false, err
	}
	_, existed := s.acts[actKey(rec.Act.CountryCode, rec.Act.SourceID)]
	s.write(rec)
	return !existed, nil
}

func (s *memStore) UpdateAct(_ context.Context, rec store.ActRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.saveErrs[rec.Act.SourceID]; ok {
		return err
	}
	if _, ok := s.acts[actKey(rec.Act.CountryCode, rec.Act.SourceID)]; !ok {
		return store.ErrNotFound
	}
	s.write(rec)
	return nil
}

func (s *memStore) GetAct(_ context.Context, j model.Jurisdiction, sourceID string) (*model.StoredAct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sa, ok := s.stored[actKey(j.CountryCode(), sourceID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sa
	return &cp, nil
}

func (s *memStore) ListActsForUpdate(_ context.Context, j model.Jurisdiction, status model.ProcessingStatus) ([]model.StoredAct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.StoredAct
	for _, sa := range s.stored {
		if sa.CountryCode == j.CountryCode() && sa.Status == status {
			out = append(out, *sa)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UpdatedAt.Before(out[b].UpdatedAt) })
	return out, nil
}

func (s *memStore) StartRun(_ context.Context, _ *model.ImportResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return nil
}

func (s *memStore) FinishRun(_ context.Context, run *model.ImportResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished++
	cp := *run
	s.runs = append(s.runs, &cp)
	return nil
}

func (s *memStore) ListRuns(_ context.Context, limit int) ([]*model.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.runs) {
		limit = len(s.runs)
	}
	return s.runs[:limit], nil
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Ping(context.Context) error    { return nil }
func (s *memStore) Close() error                  { return nil }

func (s *memStore) record(j model.Jurisdiction, id string) (store.ActRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.acts[actKey(j.CountryCode(), id)]
	return rec, ok
}

// fakeTranslator prefixes text and counts characters
type fakeTranslator struct {
	errs  map[string]error
	usage translate.Usage
}

func (t *fakeTranslator) Translate(_ context.Context, raw *model.RawLegislation) (*model.TranslatedLegislation, error) {
	if err, ok := t.errs[raw.SourceID]; ok {
		return nil, err
	}
	t.usage.Chars += len(raw.TextOriginal)
	t.usage.Calls++
	return &model.TranslatedLegislation{
		RawLegislation:      *raw,
		TitleRo:             "RO " + raw.TitleOriginal,
		TextRo:              "RO " + raw.TextOriginal,
		TranslationProvider: model.ProviderDeepL,
	}, nil
}

func (t *fakeTranslator) Usage() translate.Usage { return t.usage }

func (t *fakeTranslator) EstimateCost(chars int) float64 {
	return float64(chars) / 1_000_000 * 20
}

// fakeStructurer tags every act as SSM
type fakeStructurer struct {
	errs     map[string]error
	fallback map[string]bool
	usage    structure.Usage
}

func (s *fakeStructurer) Structure(_ context.Context, act *model.TranslatedLegislation) (*model.StructuredLegislation, error) {
	if err, ok := s.errs[act.SourceID]; ok {
		return nil, err
	}
	s.usage.InputTokens += 1000
	s.usage.OutputTokens += 200
	s.usage.Calls++

	out := &model.StructuredLegislation{
		TranslatedLegislation: *act,
		Domains:               []string{"ssm"},
		SSMRelevanceScore:     8,
	}
	if s.fallback[act.SourceID] {
		fb := structure.FallbackResult()
		out.Domains = fb.Domains
		out.SummaryRo = fb.SummaryRo
		out.NeedsManualReview = true
	}
	return out, nil
}

func (s *fakeStructurer) Usage() structure.Usage { return s.usage }

func (s *fakeStructurer) EstimateCost(in, out int) float64 {
	return float64(in)/1_000_000*1 + float64(out)/1_000_000*2
}

type harness struct {
	adapter    *fakeAdapter
	store      *memStore
	translator *fakeTranslator
	structurer *fakeStructurer
	opts       Options
}

func newHarness(ids ...string) *harness {
	h := &harness{
		adapter:    newFakeAdapter(model.JurisdictionEU, ids...),
		store:      newMemStore(),
		translator: &fakeTranslator{errs: map[string]error{}},
		structurer: &fakeStructurer{errs: map[string]error{}, fallback: map[string]bool{}},
	}

	registry := adapters.NewRegistry(nil)
	registry.Register(h.adapter)

	h.opts = Options{
		Adapters:      registry,
		Store:         h.store,
		NewTranslator: func() (Translator, error) { return h.translator, nil },
		NewStructurer: func() (Structurer, error) { return h.structurer, nil },
		Logger:        zerolog.Nop(),
	}
	return h
}

var errBoom = errors.New("boom")
