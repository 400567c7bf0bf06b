package legaltext

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/oplego/lexharvest/internal/model"
)

// article builds one EU-style article with a body of roughly n characters
func article(num, n int) string {
	sentence := "The employer shall ensure the safety and health of workers in every aspect related to the work. "
	var b strings.Builder
	fmt.Fprintf(&b, "Article %d\nObligations %d\n", num, num)
	for b.Len() < n {
		b.WriteString(sentence)
	}
	return b.String()
}

func TestSplitText_FitsInOneChunk(t *testing.T) {
	tests := []string{
		"",
		"short text",
		strings.Repeat("x", 5000),
	}

	for _, text := range tests {
		chunks := SplitText(text, 5000, model.JurisdictionEU)
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		if chunks[0].Text != text || chunks[0].Index != 0 {
			t.Errorf("single chunk must equal input")
		}
	}
}

func TestSplitText_CutsAtArticleBoundary(t *testing.T) {
	var parts []string
	for i := 1; i <= 6; i++ {
		parts = append(parts, article(i, 1500))
	}
	text := strings.Join(parts, "\n")

	chunks := SplitText(text, 4000, model.JurisdictionEU)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if n := utf8.RuneCountInString(c.Text); n > 4000 {
			t.Errorf("chunk %d has %d chars, limit 4000", i, n)
		}
		if !strings.HasPrefix(c.Text, "Article ") {
			t.Errorf("chunk %d does not start at an article heading: %q", i, c.Text[:40])
		}
		if i < len(chunks)-1 && utf8.RuneCountInString(c.Text) < MinChunkChars {
			t.Errorf("chunk %d shorter than MinChunkChars", i)
		}
	}
}

func TestSplitText_ReassemblePreservesContent(t *testing.T) {
	var parts []string
	for i := 1; i <= 10; i++ {
		parts = append(parts, article(i, 900+i*100))
	}
	text := strings.Join(parts, "\n\n")

	chunks := SplitText(text, 3000, model.JurisdictionEU)
	got := ReassembleChunks(chunks)

	if strings.Join(strings.Fields(got), " ") != strings.Join(strings.Fields(text), " ") {
		t.Error("reassembled text lost or reordered content")
	}
}

func TestSplitText_FallsBackToParagraph(t *testing.T) {
	para := strings.Repeat("Lorem ipsum dolor sit amet consectetur. ", 40) // ~1600 chars
	text := para + "\n\n" + para + "\n\n" + para

	chunks := SplitText(text, 2500, model.JurisdictionDE)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.Text != strings.TrimSpace(para) {
			t.Errorf("expected paragraph-aligned chunk, got %d chars", len(c.Text))
		}
	}
}

func TestSplitText_FallsBackToSentence(t *testing.T) {
	text := strings.Repeat("Ein Satz über Arbeitsschutz. ", 200) // no paragraphs, no headings

	chunks := SplitText(text, 1500, model.JurisdictionDE)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, ".") {
			t.Errorf("chunk %d does not end at a sentence: %q", i, c.Text[len(c.Text)-20:])
		}
	}
}

func TestSplitText_HardCutIsRuneSafe(t *testing.T) {
	text := strings.Repeat("щ", 5000) // no boundary of any kind

	chunks := SplitText(text, 1200, model.JurisdictionBG)
	total := 0
	for _, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Fatal("chunk is not valid UTF-8")
		}
		n := utf8.RuneCountInString(c.Text)
		if n > 1200 {
			t.Errorf("chunk exceeds limit: %d", n)
		}
		total += n
	}
	if total != 5000 {
		t.Errorf("expected 5000 runes in total, got %d", total)
	}
}

func TestSplitText_ShortBoundaryRejected(t *testing.T) {
	// The only heading sits 100 chars in; cutting there would produce a tiny chunk.
	text := strings.Repeat("a", 100) + "\nArticle 2\n" + strings.Repeat("b. ", 1000)

	chunks := SplitText(text, 2000, model.JurisdictionEU)
	if utf8.RuneCountInString(chunks[0].Text) < MinChunkChars {
		t.Errorf("first chunk too short: %d", utf8.RuneCountInString(chunks[0].Text))
	}
}

func TestSplitText_NeverCutsInsideHeading(t *testing.T) {
	body := strings.Repeat("Angajatorul evalueaza riscurile. ", 50)
	prefix := "Art. 1\n" + body + "\nArt. "
	text := prefix + "2\nAngajatul respecta instructiunile. " + strings.Repeat("Lucratorul poarta echipament. ", 40)

	// the window edge lands right after "Art. "
	chunks := SplitText(text, utf8.RuneCountInString(prefix), model.JurisdictionRO)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if strings.HasSuffix(chunks[0].Text, "Art.") {
		t.Errorf("chunk 0 ends inside a heading: %q", chunks[0].Text[len(chunks[0].Text)-20:])
	}
	if !strings.HasPrefix(chunks[1].Text, "Art. 2") {
		t.Errorf("chunk 1 should start at the heading, got %q", chunks[1].Text[:20])
	}
}

func TestSplitText_HardCutPulledOutOfHeading(t *testing.T) {
	body := strings.Repeat("Der Arbeitgeber beurteilt die Gefährdung", 40) // no sentence ends
	prefix := body + "\n§ "
	text := prefix + "5. Pflichten der Beschäftigten. " + strings.Repeat("Die Beschäftigten unterstützen den Arbeitgeber. ", 40)

	chunks := SplitText(text, utf8.RuneCountInString(prefix), model.JurisdictionDE)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].Text, "§ 5.") {
		t.Errorf("chunk 1 should start at the heading, got %q", chunks[1].Text[:20])
	}
}

func TestSplitText_NearestBoundaryAcrossPatterns(t *testing.T) {
	filler := func(n int) string {
		return strings.Repeat("Angajatorul asigura securitatea. ", n)
	}
	text := "Art. 1\n" + filler(35) +
		"\nCAPITOLUL II\nArt. 4\n" + filler(20) +
		"\nArt. 5\n" + filler(60)

	chunks := SplitText(text, 2200, model.JurisdictionRO)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].Text, "Art. 5") {
		t.Errorf("expected cut at the nearest article, chunk 1 starts %q", chunks[1].Text[:20])
	}
}

func TestReassembleChunks_SortsByIndex(t *testing.T) {
	chunks := []Chunk{
		{Index: 2, Text: "three"},
		{Index: 0, Text: "one"},
		{Index: 1, Text: "two"},
	}

	if got := ReassembleChunks(chunks); got != "one\n\ntwo\n\nthree" {
		t.Errorf("unexpected reassembly: %q", got)
	}
	if chunks[0].Index != 2 {
		t.Error("input slice was reordered")
	}
}
