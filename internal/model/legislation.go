package model

import (
	"fmt"
	"strings"
	"time"
)

// Jurisdiction identifies a legislative source. The set is closed: adding a
// jurisdiction means adding a constant here and a registry entry in adapters.
type Jurisdiction string

const (
	JurisdictionEU Jurisdiction = "EU" // EUR-Lex, CELEX identifiers
	JurisdictionRO Jurisdiction = "RO" // legislatie.just.ro
	JurisdictionDE Jurisdiction = "DE" // gesetze-im-internet.de
	JurisdictionBG Jurisdiction = "BG" // lex.bg
	JurisdictionPL Jurisdiction = "PL" // isap.sejm.gov.pl
)

// AllJurisdictions returns every supported jurisdiction in a stable order
func AllJurisdictions() []Jurisdiction {
	return []Jurisdiction{
		JurisdictionEU,
		JurisdictionRO,
		JurisdictionDE,
		JurisdictionBG,
		JurisdictionPL,
	}
}

// ParseJurisdiction converts a user-supplied code into a Jurisdiction
func ParseJurisdiction(s string) (Jurisdiction, error) {
	j := Jurisdiction(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllJurisdictions() {
		if j == known {
			return j, nil
		}
	}
	return "", fmt.Errorf("unknown jurisdiction: %q (supported: EU, RO, DE, BG, PL)", s)
}

// CountryCode returns the code stored in the acts table
func (j Jurisdiction) CountryCode() string {
	return string(j)
}

// TranslationProvider records which service produced the Romanian text
type TranslationProvider string

const (
	ProviderDeepL TranslationProvider = "deepl"
	ProviderNone  TranslationProvider = "none" // source language already Romanian
)

// ReviewStatus is the human review state of a persisted act
type ReviewStatus string

const (
	ReviewPending       ReviewStatus = "pending"
	ReviewNeedsRevision ReviewStatus = "needs_revision"
	ReviewApproved      ReviewStatus = "approved"
)

// ProcessingStatus tracks how far an act got through the pipeline
type ProcessingStatus string

const (
	StatusRaw        ProcessingStatus = "raw"
	StatusTranslated ProcessingStatus = "translated"
	StatusProcessed  ProcessingStatus = "processed"
)

// RawSection is one article/paragraph as it appears in the source document.
// SortOrder is 0-based and reflects document order.
type RawSection struct {
	Number    string `json:"section_number"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`
	SortOrder int    `json:"sort_order"`
	TextRo    string `json:"text_ro,omitempty"` // filled by the translator
}

// RawLegislation is one fetched act before translation
type RawLegislation struct {
	SourceID         string       `json:"source_id"` // e.g. CELEX number
	SourceURL        string       `json:"source_url"`
	TitleOriginal    string       `json:"title_original"`
	ActType          string       `json:"act_type"`
	ActNumber        string       `json:"act_number"`
	ActYear          int          `json:"act_year,omitempty"`
	ActShortName     string       `json:"act_short_name,omitempty"`
	DateAdopted      *time.Time   `json:"date_adopted,omitempty"`
	DateInForce      *time.Time   `json:"date_in_force,omitempty"`
	DateLastAmended  *time.Time   `json:"date_last_amended,omitempty"`
	InForce          bool         `json:"in_force"`
	TextOriginal     string       `json:"text_original"`
	LanguageOriginal string       `json:"language_original"`
	CountryCode      string       `json:"country_code"`
	ContentHash      string       `json:"content_hash"`
	Sections         []RawSection `json:"sections"`

	// Metadata holds adapter-specific facts. Fields the pipeline reads are
	// promoted to typed fields above.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TranslatedLegislation is a RawLegislation with its Romanian rendition
type TranslatedLegislation struct {
	RawLegislation

	TitleRo             string              `json:"title_ro"`
	TextRo              string              `json:"text_ro"`
	TranslationProvider TranslationProvider `json:"translation_provider"`
	TranslationChars    int                 `json:"translation_chars"`
	TranslationCostUSD  float64             `json:"translation_cost_usd"`
}

// StructuredLegislation carries the classifier output for a translated act
type StructuredLegislation struct {
	TranslatedLegislation

	Domains           []string         `json:"domains"`
	OpLegoModules     []string         `json:"op_lego_modules"`
	SSMRelevanceScore int              `json:"ssm_relevance_score"`
	Keywords          []string         `json:"keywords"`
	SummaryRo         string           `json:"summary_ro"`
	Obligations       []Obligation     `json:"obligations"`
	CrossReferences   []CrossReference `json:"cross_references"`

	InputTokens        int     `json:"input_tokens"`
	OutputTokens       int     `json:"output_tokens"`
	StructuringCostUSD float64 `json:"structuring_cost_usd"`

	// NeedsManualReview is set when the classifier output could not be parsed
	// and the minimal fallback structure was used.
	NeedsManualReview bool `json:"needs_manual_review"`
}

// ResponsibleEntity is the role an obligation applies to
type ResponsibleEntity string

const (
	EntityEmployer              ResponsibleEntity = "employer"
	EntityEmployee              ResponsibleEntity = "employee"
	EntitySSMService            ResponsibleEntity = "ssm_service"
	EntityOccupationalPhysician ResponsibleEntity = "occupational_physician"
	EntityAuthority             ResponsibleEntity = "authority"
	EntityManufacturer          ResponsibleEntity = "manufacturer"
	EntityOther                 ResponsibleEntity = "other"
)

// Obligation is one duty extracted from the text
type Obligation struct {
	Description       string            `json:"description"`
	ResponsibleEntity ResponsibleEntity `json:"responsible_entity"`
	Deadline          string            `json:"deadline,omitempty"`
	Frequency         string            `json:"frequency,omitempty"`
	Penalty           string            `json:"penalty,omitempty"`
	SourceArticle     string            `json:"source_article,omitempty"`
}

// ReferenceType classifies a legal relationship between acts
type ReferenceType string

const (
	RefImplements  ReferenceType = "implements"
	RefAmends      ReferenceType = "amends"
	RefRepeals     ReferenceType = "repeals"
	RefReferences  ReferenceType = "references"
	RefTransposes  ReferenceType = "transposes"
	RefSupplements ReferenceType = "supplements"
	RefCites       ReferenceType = "cites"
)

// CrossReference is a detected relationship to another act
type CrossReference struct {
	TargetReferenceText string        `json:"target_reference_text"`
	TargetCELEX         string        `json:"target_celex,omitempty"`
	ReferenceType       ReferenceType `json:"reference_type"`
	SourceSection       string        `json:"source_section,omitempty"`
	TargetSection       string        `json:"target_section,omitempty"`
}

// StoredAct is the persisted view of an act used by the update-check
type StoredAct struct {
	ID                int64
	CountryCode       string
	SourceID          string
	ContentHash       string
	Status            ProcessingStatus
	ReviewStatus      ReviewStatus
	TitleOriginal     string
	TitleRo           string
	LanguageOriginal  string
	NeedsManualReview bool
	UpdatedAt         time.Time
}
