package structure

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/oplego/lexharvest/internal/model"
)

const (
	// MaxKeywords caps the keyword list
	MaxKeywords = 15

	// DefaultScore is used when the relevance score is missing or unreadable
	DefaultScore = 5

	maxSummaryChars    = 2000
	maxObligations     = 100
	maxCrossReferences = 100
	maxFieldChars      = 1000
)

// FallbackSummary marks records that need a human look
const FallbackSummary = "Necesită revizuire manuală: clasificarea automată nu a putut fi interpretată."

// Result is the validated classifier output
type Result struct {
	Domains           []string
	OpLegoModules     []string
	SSMRelevanceScore int
	Keywords          []string
	SummaryRo         string
	Obligations       []model.Obligation
	CrossReferences   []model.CrossReference

	// NeedsManualReview is set when the fallback was used
	NeedsManualReview bool
}

// FallbackResult is the minimal valid structure used when the reply
// cannot be parsed
func FallbackResult() Result {
	return Result{
		Domains:           []string{DefaultDomain},
		OpLegoModules:     []string{},
		SSMRelevanceScore: DefaultScore,
		Keywords:          []string{},
		SummaryRo:         FallbackSummary,
		Obligations:       []model.Obligation{},
		CrossReferences:   []model.CrossReference{},
		NeedsManualReview: true,
	}
}

var (
	codeFence = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\\n?(.*?)\\s*```\\s*$")
	celexID   = regexp.MustCompile(`^[0-9CE]\d{4}[A-Z]{1,2}\d{4}`)
)

// ParseResponse validates a classifier reply field by field. It never fails:
// an unreadable reply yields FallbackResult.
func ParseResponse(text string) Result {
	raw, err := decodeObject(text)
	if err != nil {
		return FallbackResult()
	}

	res := Result{
		Domains:           filterVocabulary(lookup(raw, "domains"), domainSet),
		OpLegoModules:     filterVocabulary(lookup(raw, "opLegoModules", "op_lego_modules", "modules"), moduleSet),
		SSMRelevanceScore: clampScore(lookup(raw, "ssmRelevanceScore", "ssm_relevance_score", "relevanceScore")),
		Keywords:          keywords(lookup(raw, "keywords")),
		SummaryRo:         truncate(strings.TrimSpace(toString(lookup(raw, "summaryRo", "summary_ro", "summary"))), maxSummaryChars),
		Obligations:       obligations(lookup(raw, "obligations")),
		CrossReferences:   crossReferences(lookup(raw, "crossReferences", "cross_references")),
	}
	if len(res.Domains) == 0 {
		res.Domains = []string{DefaultDomain}
	}

	return res
}

// decodeObject strips an optional code fence and decodes a JSON object
func decodeObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	// Tolerate prose around the object
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start > 0 && end > start {
		text = text[start : end+1]
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode classifier reply: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode classifier reply: not an object")
	}
	return raw, nil
}

// lookup returns the first present key
func lookup(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// toStrings accepts an array or a single comma-separated string
func toStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(toString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func filterVocabulary(v any, known map[string]bool) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, s := range toStrings(v) {
		s = strings.ToLower(s)
		if known[s] && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func clampScore(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return DefaultScore
		}
		f = parsed
	default:
		return DefaultScore
	}
	if math.IsNaN(f) {
		return DefaultScore
	}

	// clamp before converting; out-of-range floats do not convert to int
	return int(math.Round(math.Max(1, math.Min(10, f))))
}

func keywords(v any) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, k := range toStrings(v) {
		key := strings.ToLower(k)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, truncate(k, 100))
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

func obligations(v any) []model.Obligation {
	out := []model.Obligation{}
	items, _ := v.([]any)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		desc := strings.TrimSpace(toString(lookup(m, "description", "text")))
		if desc == "" {
			continue
		}

		entity := strings.ToLower(strings.TrimSpace(toString(lookup(m, "responsibleEntity", "responsible_entity", "entity"))))
		if !entitySet[entity] {
			entity = string(model.EntityOther)
		}

		out = append(out, model.Obligation{
			Description:       truncate(desc, maxFieldChars),
			ResponsibleEntity: model.ResponsibleEntity(entity),
			Deadline:          field(m, "deadline"),
			Frequency:         field(m, "frequency"),
			Penalty:           field(m, "penalty"),
			SourceArticle:     field(m, "sourceArticle", "source_article", "article"),
		})
		if len(out) == maxObligations {
			break
		}
	}
	return out
}

func crossReferences(v any) []model.CrossReference {
	out := []model.CrossReference{}
	items, _ := v.([]any)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}

		target := field(m, "targetReferenceText", "target_reference_text", "target", "reference")
		if target == "" {
			continue
		}

		refType := strings.ToLower(field(m, "referenceType", "reference_type", "type"))
		if !refTypeSet[refType] {
			refType = string(model.RefReferences)
		}

		celex := strings.ToUpper(field(m, "targetCelex", "target_celex", "celex"))
		if !celexID.MatchString(celex) {
			celex = ""
		}

		out = append(out, model.CrossReference{
			TargetReferenceText: target,
			TargetCELEX:         celex,
			ReferenceType:       model.ReferenceType(refType),
			SourceSection:       field(m, "sourceSection", "source_section"),
			TargetSection:       field(m, "targetSection", "target_section"),
		})
		if len(out) == maxCrossReferences {
			break
		}
	}
	return out
}

// field reads an optional string attribute
func field(m map[string]any, keys ...string) string {
	return truncate(strings.TrimSpace(toString(lookup(m, keys...))), maxFieldChars)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
