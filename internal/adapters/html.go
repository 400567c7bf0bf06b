package adapters

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// boilerplate is removed before any body selector is tried
const boilerplate = "script, style, noscript, nav, header, footer, form, iframe, button, .noprint, .cookie-consent, #cookie-banner"

var (
	blockElements = map[string]bool{
		"address": true, "article": true, "aside": true, "blockquote": true,
		"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"hr": true, "li": true, "main": true, "ol": true, "p": true, "pre": true,
		"section": true, "table": true, "tr": true, "ul": true,
	}
	skipElements = map[string]bool{
		"script": true, "style": true, "noscript": true, "template": true, "head": true,
	}

	inlineSpace = regexp.MustCompile(`[ \t\f\v\p{Zs}\x{200B}\x{FEFF}]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// nodeText renders a subtree as plain text, one block element per line
func nodeText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
			return
		case html.ElementNode:
			if skipElements[node.Data] {
				return
			}
			switch {
			case node.Data == "br":
				b.WriteString("\n")
				return
			case node.Data == "td" || node.Data == "th":
				b.WriteString(" ")
			case blockElements[node.Data]:
				b.WriteString("\n")
				defer b.WriteString("\n")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return b.String()
}

// selectionText renders every node of a selection
func selectionText(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	for _, n := range sel.Nodes {
		parts = append(parts, nodeText(n))
	}
	return NormalizeText(strings.Join(parts, "\n"))
}

// NormalizeText decodes leftover entities, collapses runs of inline
// whitespace, trims every line and keeps at most one blank line in a row.
func NormalizeText(s string) string {
	// Portals sometimes double-escape (&amp;nbsp;)
	if strings.Contains(s, "&") {
		s = html.UnescapeString(s)
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}

	out := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

// extractBody removes boilerplate and returns the text of the first
// candidate selector yielding at least MinTextLength characters. Failing
// that it returns the longest candidate, then the whole body.
func extractBody(doc *goquery.Document, candidates []string, strip []string) string {
	doc.Find(boilerplate).Remove()
	for _, s := range strip {
		doc.Find(s).Remove()
	}

	best := ""
	for _, selector := range candidates {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		text := selectionText(sel.First())
		if utf8.RuneCountInString(text) >= MinTextLength {
			return text
		}
		if len(text) > len(best) {
			best = text
		}
	}

	if best != "" {
		return best
	}
	return selectionText(doc.Find("body"))
}

// firstText returns the first non-empty text among selectors, limited to
// plausible title lengths
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		found := ""
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.Join(strings.Fields(NormalizeText(s.Text())), " ")
			if text != "" && utf8.RuneCountInString(text) <= 500 {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// headingFromText picks the first short line of the body as a title
func headingFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) < 300 {
			return line
		}
		return ""
	}
	return ""
}
