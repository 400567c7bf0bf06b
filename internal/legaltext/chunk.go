// Package legaltext splits, reassembles, sections and hashes legal text.
package legaltext

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/oplego/lexharvest/internal/model"
)

// MinChunkChars is the smallest chunk a boundary cut may produce
const MinChunkChars = 1000

// Chunk is one piece of a split document
type Chunk struct {
	Index int
	Text  string
}

var sentenceEnd = regexp.MustCompile(`[.!?;:][)"'»”]?\s`)

// SplitText splits text into chunks of at most maxChars characters. Cuts are
// placed before an article or chapter heading when possible, else at a
// paragraph break, else after a sentence; a cut is only taken when the chunk
// before it has at least MinChunkChars characters. Text that already fits is
// returned unchanged as a single chunk.
func SplitText(text string, maxChars int, j model.Jurisdiction) []Chunk {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []Chunk{{Index: 0, Text: text}}
	}

	patterns := boundaryPatterns(j)

	var chunks []Chunk
	rest := text
	for rest != "" {
		if utf8.RuneCountInString(rest) <= maxChars {
			appendChunk(&chunks, rest)
			break
		}

		cut := findCut(rest, runeOffset(rest, maxChars), patterns)
		appendChunk(&chunks, rest[:cut])
		rest = rest[cut:]
	}

	if len(chunks) == 0 {
		return []Chunk{{Index: 0, Text: text}}
	}
	return chunks
}

func appendChunk(chunks *[]Chunk, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	*chunks = append(*chunks, Chunk{Index: len(*chunks), Text: s})
}

// findCut returns the byte offset to cut rest at, no later than limit.
// Heading cuts take the heading nearest the limit across all patterns.
// Paragraph, sentence and hard cuts are pulled back to the line start when
// they would fall inside a heading.
func findCut(rest string, limit int, patterns []*regexp.Regexp) int {
	window := rest[:limit]

	best := -1
	for _, re := range patterns {
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(window, -1) {
			if loc[0] > best && longEnough(window[:loc[0]]) {
				best = loc[0]
			}
		}
	}
	if best > 0 {
		return best
	}

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		if cut := outsideHeading(rest, idx, patterns); longEnough(rest[:cut]) {
			return cut
		}
	}

	locs := sentenceEnd.FindAllStringIndex(window, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		if window[locs[i][0]] == '.' && abbreviated(window[:locs[i][0]]) {
			continue
		}
		if cut := outsideHeading(rest, locs[i][1], patterns); longEnough(rest[:cut]) {
			return cut
		}
		break
	}

	if cut := outsideHeading(rest, limit, patterns); cut > 0 {
		return cut
	}
	return limit
}

// outsideHeading moves cut to the start of a heading that spans it
func outsideHeading(rest string, cut int, patterns []*regexp.Regexp) int {
	lineStart := strings.LastIndexByte(rest[:cut], '\n') + 1
	lineEnd := len(rest)
	if i := strings.IndexByte(rest[cut:], '\n'); i >= 0 {
		lineEnd = cut + i
	}
	line := rest[lineStart:lineEnd]

	for _, re := range patterns {
		if re == nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(line, -1) {
			if lineStart+loc[0] < cut && cut < lineStart+loc[1] {
				return lineStart + loc[0]
			}
		}
	}
	return cut
}

// abbreviations whose period does not end a sentence
var abbreviations = map[string]bool{
	"art": true, "alin": true, "lit": true, "pct": true, "nr": true,
	"abs": true, "ziff": true, "ust": true, "pkt": true,
	"чл": true, "ал": true, "т": true, "no": true, "par": true,
}

// abbreviated reports whether s ends with a known abbreviation
func abbreviated(s string) bool {
	word := s
	if i := strings.LastIndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		_, size := utf8.DecodeRuneInString(s[i:])
		word = s[i+size:]
	}
	return abbreviations[strings.ToLower(word)]
}

func longEnough(s string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= MinChunkChars
}

// runeOffset returns the byte offset of the n-th rune in s
func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// ReassembleChunks joins chunks in index order separated by a blank line
func ReassembleChunks(chunks []Chunk) string {
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Index < sorted[b].Index })

	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n\n")
}
