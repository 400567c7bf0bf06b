package legaltext

import (
	"regexp"

	"github.com/oplego/lexharvest/internal/model"
)

// sectionHeadings match the start of one numbered legal unit on its own line.
// Group 1 is the unit number.
var sectionHeadings = map[model.Jurisdiction]*regexp.Regexp{
	model.JurisdictionEU: regexp.MustCompile(`(?m)^[ \t]*(?:Articolul|Article)[ \t]+(\d+[a-z]?)\.?[ \t]*`),
	model.JurisdictionRO: regexp.MustCompile(`(?m)^[ \t]*(?:Art\.|Articolul)[ \t]*(\d+(?:\^\d+)?)[ \t]*\.?[ \t]*[-–]?[ \t]*`),
	model.JurisdictionDE: regexp.MustCompile(`(?m)^[ \t]*§[ \t]*(\d+[a-z]?)\.?[ \t]*`),
	model.JurisdictionBG: regexp.MustCompile(`(?m)^[ \t]*Чл\.[ \t]*(\d+[а-я]?)\.?[ \t]*`),
	model.JurisdictionPL: regexp.MustCompile(`(?m)^[ \t]*Art\.[ \t]*(\d+[a-z]?)\.?[ \t]*`),
}

// chapterHeadings are coarser units that are also safe places to cut
var chapterHeadings = map[model.Jurisdiction]*regexp.Regexp{
	model.JurisdictionEU: regexp.MustCompile(`(?m)^[ \t]*(?:CAPITOLUL|Capitolul|CHAPTER|Chapter|TITLUL|TITLE|SECȚIUNEA|SECTION)[ \t]+[IVXLC\d]+`),
	model.JurisdictionRO: regexp.MustCompile(`(?m)^[ \t]*(?:CAPITOLUL|Capitolul|TITLUL|Titlul|SECȚIUNEA|Secțiunea|SECŢIUNEA)[ \t]+[IVXLC\d]+`),
	model.JurisdictionDE: regexp.MustCompile(`(?m)^[ \t]*(?:Abschnitt|Kapitel|Teil|Titel)[ \t]+\d+|^[ \t]*(?:Erster|Zweiter|Dritter|Vierter|Fünfter|Sechster|Siebter|Achter|Neunter|Zehnter)[ \t]+(?:Abschnitt|Teil)`),
	model.JurisdictionBG: regexp.MustCompile(`(?m)^[ \t]*(?:Глава|ГЛАВА|Раздел|РАЗДЕЛ)[ \t]+[\p{L}IVXLC\d]+`),
	model.JurisdictionPL: regexp.MustCompile(`(?m)^[ \t]*(?:Rozdział|ROZDZIAŁ|DZIAŁ|Dział|Oddział)[ \t]+[IVXLC\d]+`),
}

// boundaryPatterns returns the cut points for a jurisdiction, coarsest first.
// Unknown jurisdictions get the union of article patterns.
func boundaryPatterns(j model.Jurisdiction) []*regexp.Regexp {
	section, ok := sectionHeadings[j]
	if !ok {
		out := make([]*regexp.Regexp, 0, len(sectionHeadings))
		for _, known := range model.AllJurisdictions() {
			out = append(out, sectionHeadings[known])
		}
		return out
	}
	return []*regexp.Regexp{chapterHeadings[j], section}
}
