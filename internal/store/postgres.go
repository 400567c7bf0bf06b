package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/model"
)

// PostgresStore is the production backend on a pgx pool
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

var (
	pgUpsertAct = upsertActQuery(dollar, "now()")
	pgUpdateAct = updateActQuery(dollar, "now()")
)

// NewPostgresStore opens a pool against dsn and verifies it with a ping
func NewPostgresStore(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required (set store.dsn or DATABASE_URL)")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log = log.With().Str("component", "store.postgres").Logger()
	log.Debug().Str("host", cfg.ConnConfig.Host).Str("database", cfg.ConnConfig.Database).Msg("database pool created")

	return &PostgresStore{pool: pool, log: log}, nil
}

// Migrate applies the embedded schema through a database/sql view of the pool
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer func() { _ = db.Close() }()

	return migrateUp(ctx, db, "postgres", s.log)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ActExists(ctx context.Context, j model.Jurisdiction, sourceID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM legislation_acts WHERE country_code = $1 AND source_id = $2)`,
		j.CountryCode(), sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check act %s/%s: %w", j, sourceID, err)
	}
	return exists, nil
}

func (s *PostgresStore) SaveAct(ctx context.Context, rec ActRecord) (bool, error) {
	args, err := actArgs(rec, pgDate)
	if err != nil {
		return false, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM legislation_acts WHERE country_code = $1 AND source_id = $2)`,
		rec.Act.CountryCode, rec.Act.SourceID,
	).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("check act %s: %w", rec.Act.SourceID, err)
	}

	var id int64
	if err := tx.QueryRow(ctx, pgUpsertAct, args...).Scan(&id); err != nil {
		return false, fmt.Errorf("upsert act %s: %w", rec.Act.SourceID, err)
	}

	if err := pgReplaceChildren(ctx, tx, id, rec.Act); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit act %s: %w", rec.Act.SourceID, err)
	}
	return !existing, nil
}

func (s *PostgresStore) UpdateAct(ctx context.Context, rec ActRecord) error {
	args, err := actArgs(rec, pgDate)
	if err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx, pgUpdateAct, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update act %s: %w", rec.Act.SourceID, err)
	}

	if err := pgReplaceChildren(ctx, tx, id, rec.Act); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit act %s: %w", rec.Act.SourceID, err)
	}
	return nil
}

// pgReplaceChildren rewrites the sections and cross references of an act
func pgReplaceChildren(ctx context.Context, tx pgx.Tx, actID int64, act *model.StructuredLegislation) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM legislation_sections WHERE act_id = $1`, actID)
	batch.Queue(`DELETE FROM legislation_cross_references WHERE act_id = $1`, actID)

	for _, sec := range act.Sections {
		batch.Queue(`INSERT INTO legislation_sections
			(act_id, section_number, title, text_original, text_ro, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			actID, sec.Number, sec.Title, sec.Text, sec.TextRo, sec.SortOrder)
	}
	for _, ref := range act.CrossReferences {
		batch.Queue(`INSERT INTO legislation_cross_references
			(act_id, target_reference_text, target_celex, reference_type, source_section, target_section)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			actID, ref.TargetReferenceText, ref.TargetCELEX, string(ref.ReferenceType), ref.SourceSection, ref.TargetSection)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write sections for %s: %w", act.SourceID, err)
	}
	return nil
}

func (s *PostgresStore) GetAct(ctx context.Context, j model.Jurisdiction, sourceID string) (*model.StoredAct, error) {
	var act model.StoredAct
	var status, review string
	err := s.pool.QueryRow(ctx, `
		SELECT id, country_code, source_id, content_hash, status, review_status,
		       title_original, title_ro, language_original, needs_manual_review, updated_at
		FROM legislation_acts
		WHERE country_code = $1 AND source_id = $2`,
		j.CountryCode(), sourceID,
	).Scan(&act.ID, &act.CountryCode, &act.SourceID, &act.ContentHash, &status, &review,
		&act.TitleOriginal, &act.TitleRo, &act.LanguageOriginal, &act.NeedsManualReview, &act.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get act %s/%s: %w", j, sourceID, err)
	}
	act.Status = model.ProcessingStatus(status)
	act.ReviewStatus = model.ReviewStatus(review)
	return &act, nil
}

func (s *PostgresStore) ListActsForUpdate(ctx context.Context, j model.Jurisdiction, status model.ProcessingStatus) ([]model.StoredAct, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, country_code, source_id, content_hash, status, review_status,
		       title_original, title_ro, language_original, needs_manual_review, updated_at
		FROM legislation_acts
		WHERE country_code = $1 AND status = $2
		ORDER BY updated_at ASC, id ASC`,
		j.CountryCode(), string(status))
	if err != nil {
		return nil, fmt.Errorf("list acts for %s: %w", j, err)
	}
	defer rows.Close()

	var acts []model.StoredAct
	for rows.Next() {
		var act model.StoredAct
		var st, review string
		if err := rows.Scan(&act.ID, &act.CountryCode, &act.SourceID, &act.ContentHash, &st, &review,
			&act.TitleOriginal, &act.TitleRo, &act.LanguageOriginal, &act.NeedsManualReview, &act.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan act: %w", err)
		}
		act.Status = model.ProcessingStatus(st)
		act.ReviewStatus = model.ReviewStatus(review)
		acts = append(acts, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list acts for %s: %w", j, err)
	}
	return acts, nil
}

func (s *PostgresStore) StartRun(ctx context.Context, run *model.ImportResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO legislation_import_runs (run_id, jurisdiction, run_type, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		run.RunID, string(run.Jurisdiction), string(run.RunType), string(run.Status), run.StartedAt)
	if err != nil {
		return fmt.Errorf("start run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun writes the final state of the run, inserting it if StartRun
// never made it to the database.
func (s *PostgresStore) FinishRun(ctx context.Context, run *model.ImportResult) error {
	errs, warnings, err := encodeRunLists(run)
	if err != nil {
		return err
	}

	var finished *time.Time
	if !run.FinishedAt.IsZero() {
		finished = &run.FinishedAt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO legislation_import_runs (
			run_id, jurisdiction, run_type, status,
			acts_found, acts_new, acts_updated, acts_translated, acts_structured, acts_skipped,
			translation_chars, input_tokens, output_tokens, estimated_cost_usd,
			errors, warnings, started_at, finished_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			acts_found = EXCLUDED.acts_found,
			acts_new = EXCLUDED.acts_new,
			acts_updated = EXCLUDED.acts_updated,
			acts_translated = EXCLUDED.acts_translated,
			acts_structured = EXCLUDED.acts_structured,
			acts_skipped = EXCLUDED.acts_skipped,
			translation_chars = EXCLUDED.translation_chars,
			input_tokens = EXCLUDED.input_tokens,
			output_tokens = EXCLUDED.output_tokens,
			estimated_cost_usd = EXCLUDED.estimated_cost_usd,
			errors = EXCLUDED.errors,
			warnings = EXCLUDED.warnings,
			finished_at = EXCLUDED.finished_at,
			duration_ms = EXCLUDED.duration_ms`,
		run.RunID, string(run.Jurisdiction), string(run.RunType), string(run.Status),
		run.ActsFound, run.ActsNew, run.ActsUpdated, run.ActsTranslated, run.ActsStructured, run.ActsSkipped,
		run.TranslationChars, run.InputTokens, run.OutputTokens, run.EstimatedCostUSD,
		errs, warnings, run.StartedAt, finished, run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.RunID, err)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]*model.ImportResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, jurisdiction, run_type, status,
		       acts_found, acts_new, acts_updated, acts_translated, acts_structured, acts_skipped,
		       translation_chars, input_tokens, output_tokens, estimated_cost_usd,
		       errors, warnings, started_at, finished_at, duration_ms
		FROM legislation_import_runs
		ORDER BY started_at DESC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.ImportResult
	for rows.Next() {
		var (
			run                          model.ImportResult
			jurisdiction, runType, state string
			errs, warnings               []byte
			finished                     *time.Time
			durationMS                   int64
		)
		if err := rows.Scan(&run.RunID, &jurisdiction, &runType, &state,
			&run.ActsFound, &run.ActsNew, &run.ActsUpdated, &run.ActsTranslated, &run.ActsStructured, &run.ActsSkipped,
			&run.TranslationChars, &run.InputTokens, &run.OutputTokens, &run.EstimatedCostUSD,
			&errs, &warnings, &run.StartedAt, &finished, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Jurisdiction = model.Jurisdiction(jurisdiction)
		run.RunType = model.RunType(runType)
		run.Status = model.RunStatus(state)
		if finished != nil {
			run.FinishedAt = *finished
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if err := decodeRunLists(&run, errs, warnings); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func pgDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func encodeRunLists(run *model.ImportResult) ([]byte, []byte, error) {
	errs, err := jsonList(run.Errors)
	if err != nil {
		return nil, nil, fmt.Errorf("encode run errors: %w", err)
	}
	warnings, err := jsonList(run.Warnings)
	if err != nil {
		return nil, nil, fmt.Errorf("encode run warnings: %w", err)
	}
	return errs, warnings, nil
}

func decodeRunLists(run *model.ImportResult, errs, warnings []byte) error {
	run.Errors = []model.ImportError{}
	run.Warnings = []string{}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &run.Errors); err != nil {
			return fmt.Errorf("decode run errors: %w", err)
		}
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
			return fmt.Errorf("decode run warnings: %w", err)
		}
	}
	return nil
}
