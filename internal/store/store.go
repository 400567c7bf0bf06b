// Package store persists imported acts, their sections and cross references,
// and the run log. Two backends share one schema: Postgres for production
// and SQLite for local runs and tests.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/model"
)

// ErrNotFound is returned when an act or run does not exist
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary used by the pipelines
type Store interface {
	// ActExists reports whether (jurisdiction, sourceID) was already imported
	ActExists(ctx context.Context, j model.Jurisdiction, sourceID string) (bool, error)

	// SaveAct upserts the act together with its sections and cross
	// references in a single transaction. created is false when an existing
	// record was replaced.
	SaveAct(ctx context.Context, rec ActRecord) (created bool, err error)

	// UpdateAct replaces an existing act. It returns ErrNotFound when the act
	// was never saved.
	UpdateAct(ctx context.Context, rec ActRecord) error

	GetAct(ctx context.Context, j model.Jurisdiction, sourceID string) (*model.StoredAct, error)

	// ListActsForUpdate returns acts in the given status, least recently
	// updated first.
	ListActsForUpdate(ctx context.Context, j model.Jurisdiction, status model.ProcessingStatus) ([]model.StoredAct, error)

	StartRun(ctx context.Context, run *model.ImportResult) error
	FinishRun(ctx context.Context, run *model.ImportResult) error
	ListRuns(ctx context.Context, limit int) ([]*model.ImportResult, error)

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// ActRecord is one act ready to be written
type ActRecord struct {
	Act          *model.StructuredLegislation
	Status       model.ProcessingStatus
	ReviewStatus model.ReviewStatus
}

// Open connects to the backend named by cfg.Driver
func Open(ctx context.Context, cfg model.StoreConfig, log zerolog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "postgresql", "pgx":
		s, err := NewPostgresStore(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "sqlite3":
		s, err := NewSQLiteStore(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q (supported: postgres, sqlite)", cfg.Driver)
	}
}

// actColumns lists the act columns in argument order. country_code and
// source_id come first so updates can address them as the first two args.
var actColumns = []string{
	"country_code",
	"source_id",
	"source_url",
	"title_original",
	"title_ro",
	"act_type",
	"act_number",
	"act_year",
	"act_short_name",
	"date_adopted",
	"date_in_force",
	"date_last_amended",
	"in_force",
	"language_original",
	"text_original",
	"text_ro",
	"content_hash",
	"translation_provider",
	"domains",
	"op_lego_modules",
	"ssm_relevance_score",
	"keywords",
	"summary_ro",
	"obligations",
	"metadata",
	"needs_manual_review",
	"status",
	"review_status",
}

// placeholder renders the n-th (1-based) bind parameter
type placeholder func(n int) string

func dollar(n int) string   { return fmt.Sprintf("$%d", n) }
func question(n int) string { return fmt.Sprintf("?%d", n) }

// upsertActQuery inserts or replaces an act keyed on (country_code,
// source_id). The timestamp is bound as the argument after the columns.
func upsertActQuery(ph placeholder, nowExpr string) string {
	values := make([]string, len(actColumns))
	for i := range actColumns {
		values[i] = ph(i + 1)
	}

	sets := make([]string, 0, len(actColumns))
	for _, col := range actColumns[2:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	return fmt.Sprintf(`INSERT INTO legislation_acts (%s, created_at, updated_at)
VALUES (%s, %s, %s)
ON CONFLICT (country_code, source_id) DO UPDATE SET %s, updated_at = excluded.updated_at
RETURNING id`,
		strings.Join(actColumns, ", "),
		strings.Join(values, ", "), nowExpr, nowExpr,
		strings.Join(sets, ", "))
}

// updateActQuery rewrites an existing act in place
func updateActQuery(ph placeholder, nowExpr string) string {
	sets := make([]string, 0, len(actColumns))
	for i, col := range actColumns[2:] {
		sets = append(sets, fmt.Sprintf("%s = %s", col, ph(i+3)))
	}

	return fmt.Sprintf(`UPDATE legislation_acts SET %s, updated_at = %s
WHERE country_code = %s AND source_id = %s
RETURNING id`,
		strings.Join(sets, ", "), nowExpr, ph(1), ph(2))
}

// actArgs flattens a record into actColumns order. dates formats the
// nullable date columns for the backend.
func actArgs(rec ActRecord, dates func(*time.Time) any) ([]any, error) {
	act := rec.Act
	if act == nil {
		return nil, errors.New("nil act")
	}
	if act.SourceID == "" || act.CountryCode == "" {
		return nil, errors.New("act is missing country code or source id")
	}

	status := rec.Status
	if status == "" {
		status = model.StatusRaw
	}
	review := rec.ReviewStatus
	if review == "" {
		review = model.ReviewPending
	}

	domains, err := jsonList(act.Domains)
	if err != nil {
		return nil, fmt.Errorf("encode domains: %w", err)
	}
	modules, err := jsonList(act.OpLegoModules)
	if err != nil {
		return nil, fmt.Errorf("encode modules: %w", err)
	}
	keywords, err := jsonList(act.Keywords)
	if err != nil {
		return nil, fmt.Errorf("encode keywords: %w", err)
	}
	obligations, err := jsonList(act.Obligations)
	if err != nil {
		return nil, fmt.Errorf("encode obligations: %w", err)
	}
	metadata := act.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	return []any{
		act.CountryCode,
		act.SourceID,
		act.SourceURL,
		act.TitleOriginal,
		act.TitleRo,
		act.ActType,
		act.ActNumber,
		nullableInt(act.ActYear),
		act.ActShortName,
		dates(act.DateAdopted),
		dates(act.DateInForce),
		dates(act.DateLastAmended),
		act.InForce,
		act.LanguageOriginal,
		act.TextOriginal,
		act.TextRo,
		act.ContentHash,
		string(act.TranslationProvider),
		domains,
		modules,
		nullableInt(act.SSMRelevanceScore),
		keywords,
		act.SummaryRo,
		obligations,
		meta,
		act.NeedsManualReview,
		string(status),
		string(review),
	}, nil
}

// jsonList encodes a slice, writing [] rather than null for nil
func jsonList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
