package adapters

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses spaces", "a   b\t\tc", "a b c"},
		{"non-breaking space", "Art. 5", "Art. 5"},
		{"leftover entity", "a&nbsp;b &amp; c", "a b & c"},
		{"blank lines", "one\n\n\n\n\ntwo", "one\n\ntwo"},
		{"trims lines", "  one  \n  two  ", "one\ntwo"},
		{"windows newlines", "one\r\ntwo", "one\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.in); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSelectionText_BlockLayout(t *testing.T) {
	doc := mustDoc(t, `<div id="x"><p>One</p><p>Two<br>Three</p><script>var x;</script><table><tr><td>A</td><td>B</td></tr></table></div>`)

	got := selectionText(doc.Find("#x"))
	want := "One\n\nTwo\nThree\n\nA B"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBody_SelectorChain(t *testing.T) {
	long := strings.Repeat("Text juridic relevant. ", 20)

	tests := []struct {
		name     string
		html     string
		contains string
		excludes string
	}{
		{
			name:     "first candidate",
			html:     `<body><nav>Meniu</nav><div id="a">` + long + `</div><div id="b">other</div></body>`,
			contains: "Text juridic",
			excludes: "Meniu",
		},
		{
			name:     "second candidate when first missing",
			html:     `<body><div id="b">` + long + `</div></body>`,
			contains: "Text juridic",
		},
		{
			name:     "longest short candidate",
			html:     `<body><div id="a">scurt</div><div id="b">ceva mai lung</div><p>restul paginii</p></body>`,
			contains: "ceva mai lung",
			excludes: "restul",
		},
		{
			name:     "whole body",
			html:     `<body><header>Antet</header><p>` + long + `</p><footer>Subsol</footer></body>`,
			contains: "Text juridic",
			excludes: "Subsol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractBody(mustDoc(t, tt.html), []string{"#a", "#b"}, nil)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("expected %q in %q", tt.contains, got)
			}
			if tt.excludes != "" && strings.Contains(got, tt.excludes) {
				t.Errorf("did not expect %q in %q", tt.excludes, got)
			}
		})
	}
}

func TestFirstText(t *testing.T) {
	doc := mustDoc(t, `<body><h1>  </h1><p class="t">Legea   nr. 319/2006</p></body>`)

	if got := firstText(doc, []string{"h1", "p.t"}); got != "Legea nr. 319/2006" {
		t.Errorf("unexpected title %q", got)
	}
	if got := firstText(doc, []string{".missing"}); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}

func TestHeadingFromText(t *testing.T) {
	if got := headingFromText("\n\nLEGE nr. 319\nrest"); got != "LEGE nr. 319" {
		t.Errorf("unexpected heading %q", got)
	}
	if got := headingFromText(strings.Repeat("x", 400) + "\nrest"); got != "" {
		t.Errorf("long first line should not be a heading, got %d chars", len(got))
	}
}
