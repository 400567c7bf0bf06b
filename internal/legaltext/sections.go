package legaltext

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/oplego/lexharvest/internal/model"
)

const maxTitleChars = 200

// ExtractSections finds every numbered unit (article, paragraph) in text.
// The body of a unit runs until the next heading. Text before the first
// heading (preamble, recitals) is not a section.
func ExtractSections(text string, j model.Jurisdiction) []model.RawSection {
	re, ok := sectionHeadings[j]
	if !ok {
		return nil
	}

	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	sections := make([]model.RawSection, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		number := strings.TrimRight(strings.TrimSpace(text[loc[0]:loc[1]]), " .-–")
		title, body := splitTitle(strings.TrimSpace(text[loc[1]:end]))
		if title == "" && body == "" {
			continue
		}

		sections = append(sections, model.RawSection{
			Number:    number,
			Title:     title,
			Text:      body,
			SortOrder: len(sections),
		})
	}

	return sections
}

// splitTitle treats a short first line as the unit title, unless it is the
// only line or opens a numbered paragraph.
func splitTitle(body string) (string, string) {
	first, rest, found := strings.Cut(body, "\n")
	if !found {
		return "", body
	}

	first = strings.TrimSpace(first)
	rest = strings.TrimSpace(rest)
	if rest == "" || first == "" {
		return "", body
	}
	if utf8.RuneCountInString(first) >= maxTitleChars || strings.HasPrefix(first, "(") {
		return "", body
	}

	return first, rest
}

// HashContent returns the hex SHA-256 of text. It is the only change signal
// used by the update-check.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
