package structure

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oplego/lexharvest/internal/model"
)

// MaxPromptChars is the default text budget sent to the classifier.
// Classification needs representative content, not the whole act.
const MaxPromptChars = 30_000

func buildSystemPrompt() string {
	var entities, refTypes []string
	for _, e := range ResponsibleEntities {
		entities = append(entities, string(e))
	}
	for _, r := range ReferenceTypes {
		refTypes = append(refTypes, string(r))
	}

	return fmt.Sprintf(`Ești un jurist specializat în securitate și sănătate în muncă (SSM).
Analizezi acte normative și extragi metadate de conformitate pentru o platformă SSM.

Răspunde EXCLUSIV cu un obiect JSON valid, fără text suplimentar, cu schema:
{
  "domains": [string],            // din lista de domenii de mai jos
  "opLegoModules": [string],      // din lista de module de mai jos
  "ssmRelevanceScore": integer,   // 1 (irelevant) - 10 (esențial pentru SSM)
  "keywords": [string],           // maximum %d, în limba română
  "summaryRo": string,            // 3-5 propoziții, în limba română
  "obligations": [{
    "description": string,
    "responsibleEntity": string,  // una din: %s
    "deadline": string,
    "frequency": string,
    "penalty": string,
    "sourceArticle": string
  }],
  "crossReferences": [{
    "targetReferenceText": string,
    "targetCelex": string,        // doar pentru acte UE
    "referenceType": string,      // una din: %s
    "sourceSection": string,
    "targetSection": string
  }]
}

Domenii permise: %s
Module permise: %s

Reguli:
1. Folosește doar valorile permise; nu inventa domenii sau module.
2. Extrage obligațiile concrete, cu articolul sursă.
3. Nu specula: dacă o informație lipsește, omite câmpul.`,
		MaxKeywords,
		strings.Join(entities, ", "),
		strings.Join(refTypes, ", "),
		strings.Join(Domains, ", "),
		strings.Join(Modules, ", "),
	)
}

// buildUserPrompt describes the act and includes at most maxChars of its
// text, preferring the translation.
func buildUserPrompt(act *model.TranslatedLegislation, maxChars int) string {
	title := act.TitleRo
	if title == "" {
		title = act.TitleOriginal
	}
	text := act.TextRo
	if strings.TrimSpace(text) == "" {
		text = act.TextOriginal
	}

	truncated := false
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		text = string([]rune(text)[:maxChars])
		truncated = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Jurisdicție: %s\n", act.CountryCode)
	fmt.Fprintf(&b, "Identificator: %s\n", act.SourceID)
	fmt.Fprintf(&b, "Titlu: %s\n", title)
	if act.ActType != "" {
		fmt.Fprintf(&b, "Tip act: %s\n", act.ActType)
	}
	if act.ActNumber != "" {
		fmt.Fprintf(&b, "Număr: %s\n", act.ActNumber)
	}
	if act.ActYear > 0 {
		fmt.Fprintf(&b, "An: %d\n", act.ActYear)
	}
	fmt.Fprintf(&b, "În vigoare: %t\n", act.InForce)
	fmt.Fprintf(&b, "Număr articole: %d\n", len(act.Sections))

	b.WriteString("\nText:\n")
	b.WriteString(text)
	if truncated {
		b.WriteString("\n\n[text trunchiat]")
	}

	return b.String()
}
