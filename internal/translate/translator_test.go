package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/worker"
)

// fakeClient prefixes every text with the target language
type fakeClient struct {
	mu       sync.Mutex
	maxChars int
	calls    []string
	failures int // transient failures before success
	err      error
}

func (f *fakeClient) Provider() model.TranslationProvider { return model.ProviderDeepL }
func (f *fakeClient) MaxChars() int                       { return f.maxChars }

func (f *fakeClient) Translate(_ context.Context, text, source, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, text)
	if f.err != nil {
		return "", f.err
	}
	if f.failures > 0 {
		f.failures--
		return "", errors.New("deepl API error (503): Service Unavailable")
	}
	return "[" + source + ">" + target + "] " + text, nil
}

func newTestTranslator(c Client) *Translator {
	return New(Options{
		Client:               c,
		TargetLanguage:       "RO",
		Retry:                worker.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond},
		PricePerMillionChars: 25,
		Logger:               zerolog.Nop(),
	})
}

func englishAct() *model.RawLegislation {
	return &model.RawLegislation{
		SourceID:         "31989L0391",
		TitleOriginal:    "Council Directive 89/391/EEC",
		TextOriginal:     "Article 1\nObject\nThis Directive applies.",
		LanguageOriginal: "EN",
		CountryCode:      "EU",
		Sections: []model.RawSection{
			{Number: "Article 1", Title: "Object", Text: "This Directive applies.", SortOrder: 0},
			{Number: "Article 2", Text: "", SortOrder: 1},
		},
	}
}

func TestTranslate_PassThroughForTargetLanguage(t *testing.T) {
	client := &fakeClient{maxChars: 100}
	tr := newTestTranslator(client)

	raw := &model.RawLegislation{
		SourceID:         "73772",
		TitleOriginal:    "Legea nr. 319/2006",
		TextOriginal:     "Art. 1. - Prezenta lege are ca scop...",
		LanguageOriginal: "ro",
		Sections:         []model.RawSection{{Number: "Art. 1", Text: "Prezenta lege are ca scop..."}},
	}

	out, err := tr.Translate(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}

	if out.TranslationProvider != model.ProviderNone {
		t.Errorf("expected provider none, got %s", out.TranslationProvider)
	}
	if out.TextRo != raw.TextOriginal || out.TitleRo != raw.TitleOriginal {
		t.Error("pass-through must copy the original text and title")
	}
	if out.Sections[0].TextRo != raw.Sections[0].Text {
		t.Error("pass-through must copy section text")
	}
	if out.TranslationChars != 0 || out.TranslationCostUSD != 0 {
		t.Errorf("expected zero cost, got %d chars %f", out.TranslationChars, out.TranslationCostUSD)
	}
	if len(client.calls) != 0 {
		t.Errorf("expected no API calls, got %d", len(client.calls))
	}
	if raw.Sections[0].TextRo != "" {
		t.Error("input sections must not be modified")
	}
}

func TestTranslate_TitleTextAndSections(t *testing.T) {
	client := &fakeClient{maxChars: 10_000}
	tr := newTestTranslator(client)

	raw := englishAct()
	out, err := tr.Translate(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}

	if out.TitleRo != "[EN>RO] Council Directive 89/391/EEC" {
		t.Errorf("unexpected title %q", out.TitleRo)
	}
	if !strings.HasPrefix(out.TextRo, "[EN>RO] Article 1") {
		t.Errorf("unexpected text %q", out.TextRo)
	}
	if out.Sections[0].TextRo != "[EN>RO] This Directive applies." {
		t.Errorf("unexpected section %q", out.Sections[0].TextRo)
	}
	if out.Sections[1].TextRo != "" {
		t.Error("empty section should stay empty")
	}
	// text + title + one non-empty section
	if len(client.calls) != 3 {
		t.Errorf("expected 3 calls, got %d", len(client.calls))
	}
	if out.TranslationProvider != model.ProviderDeepL {
		t.Errorf("expected deepl, got %s", out.TranslationProvider)
	}
	if raw.Sections[0].TextRo != "" {
		t.Error("input sections must not be modified")
	}

	wantChars := len(raw.TextOriginal) + len(raw.TitleOriginal) + len(raw.Sections[0].Text)
	if out.TranslationChars != wantChars {
		t.Errorf("expected %d chars, got %d", wantChars, out.TranslationChars)
	}
	if got := tr.Usage(); got.Chars != wantChars || got.Calls != 3 {
		t.Errorf("unexpected usage %+v", got)
	}
	if want := float64(wantChars) / 1e6 * 25; out.TranslationCostUSD != want {
		t.Errorf("expected cost %f, got %f", want, out.TranslationCostUSD)
	}
}

func TestTranslate_LongTextIsChunked(t *testing.T) {
	client := &fakeClient{maxChars: 1500}
	tr := newTestTranslator(client)

	var b strings.Builder
	for i := 1; i <= 6; i++ {
		b.WriteString("Article ")
		b.WriteString(string(rune('0' + i)))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("The employer shall ensure safety. ", 20))
		b.WriteString("\n\n")
	}
	raw := &model.RawLegislation{
		SourceID:         "long",
		TitleOriginal:    "Long act",
		TextOriginal:     strings.TrimSpace(b.String()),
		LanguageOriginal: "EN",
		CountryCode:      "EU",
	}

	out, err := tr.Translate(context.Background(), raw)
	if err != nil {
		t.Fatal(err)
	}

	chunkCalls := len(client.calls) - 1 // minus title
	if chunkCalls < 2 {
		t.Fatalf("expected several chunks, got %d", chunkCalls)
	}
	for _, call := range client.calls {
		if len([]rune(call)) > 1500 {
			t.Errorf("chunk exceeds client limit: %d", len([]rune(call)))
		}
	}
	if strings.Count(out.TextRo, "[EN>RO]") != chunkCalls {
		t.Errorf("expected %d translated chunks in output", chunkCalls)
	}
	if strings.Index(out.TextRo, "Article 1") > strings.Index(out.TextRo, "Article 6") {
		t.Error("chunks reassembled out of order")
	}
}

func TestTranslate_OversizedSectionIsChunked(t *testing.T) {
	client := &fakeClient{maxChars: 5000}
	tr := newTestTranslator(client)

	annexes := strings.Repeat("The substance shall be registered before placing on the market. ", 300) // ~19k chars
	raw := englishAct()
	raw.Sections[1].Text = annexes

	out, err := tr.Translate(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, call := range client.calls {
		if n := len([]rune(call)); n > 5000 {
			t.Errorf("request of %d chars exceeds client limit 5000", n)
		}
	}
	if got := strings.Count(out.Sections[1].TextRo, "[EN>RO]"); got < 4 {
		t.Errorf("expected the section to be sent in several chunks, got %d", got)
	}
	if out.TranslationChars < len(annexes)-10 {
		t.Errorf("TranslationChars = %d, section alone has %d", out.TranslationChars, len(annexes))
	}
}

func TestTranslate_RetriesTransientErrors(t *testing.T) {
	client := &fakeClient{maxChars: 10_000, failures: 2}
	tr := newTestTranslator(client)

	if _, err := tr.Translate(context.Background(), englishAct()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := tr.Usage().Calls; got != 3 {
		t.Errorf("failed attempts must not be counted, got %d calls", got)
	}
}

func TestTranslate_PermanentError(t *testing.T) {
	client := &fakeClient{maxChars: 10_000, err: worker.Permanent(errors.New("deepl API error (403): Forbidden"))}
	tr := newTestTranslator(client)

	_, err := tr.Translate(context.Background(), englishAct())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "translate 31989L0391 text: chunk 1/1") {
		t.Errorf("unexpected message: %v", err)
	}
	if len(client.calls) != 1 {
		t.Errorf("permanent errors must not be retried, got %d calls", len(client.calls))
	}
}

func TestTranslate_NoClient(t *testing.T) {
	tr := newTestTranslator(nil)
	if _, err := tr.Translate(context.Background(), englishAct()); err == nil {
		t.Fatal("expected error without a client")
	}
}

func TestResetUsage(t *testing.T) {
	tr := newTestTranslator(&fakeClient{maxChars: 10_000})
	if _, err := tr.Translate(context.Background(), englishAct()); err != nil {
		t.Fatal(err)
	}
	if tr.Usage().Chars == 0 {
		t.Fatal("expected usage to be recorded")
	}

	tr.ResetUsage()
	if got := tr.Usage(); got != (Usage{}) {
		t.Errorf("expected zero usage, got %+v", got)
	}
}
