package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/oplego/lexharvest/internal/model"
)

const (
	// fixed width so that text ordering matches time ordering
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"
	sqliteDateLayout = "2006-01-02"

	defaultSQLitePath = "lexharvest.db"
)

var (
	sqliteUpsertAct = upsertActQuery(question, question(len(actColumns)+1))
	sqliteUpdateAct = updateActQuery(question, question(len(actColumns)+1))
)

// SQLiteStore is a single-file backend for local runs and tests
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dsn. ":memory:" gives a
// private in-memory database.
func NewSQLiteStore(ctx context.Context, dsn string, log zerolog.Logger) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = defaultSQLitePath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: serializes writers and keeps :memory: databases alive
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}

	return &SQLiteStore{
		db:  db,
		log: log.With().Str("component", "store.sqlite").Logger(),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrateUp(ctx, s.db, "sqlite3", s.log)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ActExists(ctx context.Context, j model.Jurisdiction, sourceID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM legislation_acts WHERE country_code = ? AND source_id = ?)`,
		j.CountryCode(), sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check act %s/%s: %w", j, sourceID, err)
	}
	return exists, nil
}

func (s *SQLiteStore) SaveAct(ctx context.Context, rec ActRecord) (bool, error) {
	args, err := s.actArgs(rec)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM legislation_acts WHERE country_code = ? AND source_id = ?)`,
		rec.Act.CountryCode, rec.Act.SourceID,
	).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("check act %s: %w", rec.Act.SourceID, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, sqliteUpsertAct, args...).Scan(&id); err != nil {
		return false, fmt.Errorf("upsert act %s: %w", rec.Act.SourceID, err)
	}

	if err := sqliteReplaceChildren(ctx, tx, id, rec.Act); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit act %s: %w", rec.Act.SourceID, err)
	}
	return !existing, nil
}

func (s *SQLiteStore) UpdateAct(ctx context.Context, rec ActRecord) error {
	args, err := s.actArgs(rec)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	if err := tx.QueryRowContext(ctx, sqliteUpdateAct, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update act %s: %w", rec.Act.SourceID, err)
	}

	if err := sqliteReplaceChildren(ctx, tx, id, rec.Act); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit act %s: %w", rec.Act.SourceID, err)
	}
	return nil
}

// actArgs appends the write timestamp and stores JSON columns as text
func (s *SQLiteStore) actArgs(rec ActRecord) ([]any, error) {
	args, err := actArgs(rec, sqliteDate)
	if err != nil {
		return nil, err
	}
	for i, a := range args {
		if b, ok := a.([]byte); ok {
			args[i] = string(b)
		}
	}
	return append(args, s.now().UTC().Format(sqliteTimeLayout)), nil
}

func sqliteReplaceChildren(ctx context.Context, tx *sql.Tx, actID int64, act *model.StructuredLegislation) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM legislation_sections WHERE act_id = ?`, actID); err != nil {
		return fmt.Errorf("clear sections for %s: %w", act.SourceID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM legislation_cross_references WHERE act_id = ?`, actID); err != nil {
		return fmt.Errorf("clear cross references for %s: %w", act.SourceID, err)
	}

	for _, sec := range act.Sections {
		_, err := tx.ExecContext(ctx, `INSERT INTO legislation_sections
			(act_id, section_number, title, text_original, text_ro, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			actID, sec.Number, sec.Title, sec.Text, sec.TextRo, sec.SortOrder)
		if err != nil {
			return fmt.Errorf("write section %s for %s: %w", sec.Number, act.SourceID, err)
		}
	}
	for _, ref := range act.CrossReferences {
		_, err := tx.ExecContext(ctx, `INSERT INTO legislation_cross_references
			(act_id, target_reference_text, target_celex, reference_type, source_section, target_section)
			VALUES (?, ?, ?, ?, ?, ?)`,
			actID, ref.TargetReferenceText, ref.TargetCELEX, string(ref.ReferenceType), ref.SourceSection, ref.TargetSection)
		if err != nil {
			return fmt.Errorf("write cross reference for %s: %w", act.SourceID, err)
		}
	}
	return nil
}

const sqliteActSelect = `
	SELECT id, country_code, source_id, content_hash, status, review_status,
	       title_original, title_ro, language_original, needs_manual_review, updated_at
	FROM legislation_acts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAct(row rowScanner) (model.StoredAct, error) {
	var (
		act                     model.StoredAct
		status, review, updated string
	)
	if err := row.Scan(&act.ID, &act.CountryCode, &act.SourceID, &act.ContentHash, &status, &review,
		&act.TitleOriginal, &act.TitleRo, &act.LanguageOriginal, &act.NeedsManualReview, &updated); err != nil {
		return act, err
	}
	act.Status = model.ProcessingStatus(status)
	act.ReviewStatus = model.ReviewStatus(review)

	t, err := time.Parse(sqliteTimeLayout, updated)
	if err != nil {
		return act, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	act.UpdatedAt = t
	return act, nil
}

func (s *SQLiteStore) GetAct(ctx context.Context, j model.Jurisdiction, sourceID string) (*model.StoredAct, error) {
	row := s.db.QueryRowContext(ctx, sqliteActSelect+` WHERE country_code = ? AND source_id = ?`,
		j.CountryCode(), sourceID)
	act, err := scanSQLiteAct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get act %s/%s: %w", j, sourceID, err)
	}
	return &act, nil
}

func (s *SQLiteStore) ListActsForUpdate(ctx context.Context, j model.Jurisdiction, status model.ProcessingStatus) ([]model.StoredAct, error) {
	rows, err := s.db.QueryContext(ctx, sqliteActSelect+`
		WHERE country_code = ? AND status = ?
		ORDER BY updated_at ASC, id ASC`,
		j.CountryCode(), string(status))
	if err != nil {
		return nil, fmt.Errorf("list acts for %s: %w", j, err)
	}
	defer func() { _ = rows.Close() }()

	var acts []model.StoredAct
	for rows.Next() {
		act, err := scanSQLiteAct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan act: %w", err)
		}
		acts = append(acts, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list acts for %s: %w", j, err)
	}
	return acts, nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, run *model.ImportResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO legislation_import_runs (run_id, jurisdiction, run_type, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.RunID.String(), string(run.Jurisdiction), string(run.RunType), string(run.Status),
		run.StartedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("start run %s: %w", run.RunID, err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.ImportResult) error {
	errs, warnings, err := encodeRunLists(run)
	if err != nil {
		return err
	}

	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(sqliteTimeLayout)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO legislation_import_runs (
			run_id, jurisdiction, run_type, status,
			acts_found, acts_new, acts_updated, acts_translated, acts_structured, acts_skipped,
			translation_chars, input_tokens, output_tokens, estimated_cost_usd,
			errors, warnings, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			status = excluded.status,
			acts_found = excluded.acts_found,
			acts_new = excluded.acts_new,
			acts_updated = excluded.acts_updated,
			acts_translated = excluded.acts_translated,
			acts_structured = excluded.acts_structured,
			acts_skipped = excluded.acts_skipped,
			translation_chars = excluded.translation_chars,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			estimated_cost_usd = excluded.estimated_cost_usd,
			errors = excluded.errors,
			warnings = excluded.warnings,
			finished_at = excluded.finished_at,
			duration_ms = excluded.duration_ms`,
		run.RunID.String(), string(run.Jurisdiction), string(run.RunType), string(run.Status),
		run.ActsFound, run.ActsNew, run.ActsUpdated, run.ActsTranslated, run.ActsStructured, run.ActsSkipped,
		run.TranslationChars, run.InputTokens, run.OutputTokens, run.EstimatedCostUSD,
		string(errs), string(warnings), run.StartedAt.UTC().Format(sqliteTimeLayout), finished,
		run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.RunID, err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*model.ImportResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, jurisdiction, run_type, status,
		       acts_found, acts_new, acts_updated, acts_translated, acts_structured, acts_skipped,
		       translation_chars, input_tokens, output_tokens, estimated_cost_usd,
		       errors, warnings, started_at, finished_at, duration_ms
		FROM legislation_import_runs
		ORDER BY started_at DESC
		LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*model.ImportResult
	for rows.Next() {
		var (
			run                                 model.ImportResult
			runID, jurisdiction, runType, state string
			errs, warnings, started             string
			finished                            sql.NullString
			durationMS                          int64
		)
		if err := rows.Scan(&runID, &jurisdiction, &runType, &state,
			&run.ActsFound, &run.ActsNew, &run.ActsUpdated, &run.ActsTranslated, &run.ActsStructured, &run.ActsSkipped,
			&run.TranslationChars, &run.InputTokens, &run.OutputTokens, &run.EstimatedCostUSD,
			&errs, &warnings, &started, &finished, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := run.RunID.UnmarshalText([]byte(runID)); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", runID, err)
		}
		run.Jurisdiction = model.Jurisdiction(jurisdiction)
		run.RunType = model.RunType(runType)
		run.Status = model.RunStatus(state)
		if run.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		if finished.Valid {
			if run.FinishedAt, err = time.Parse(sqliteTimeLayout, finished.String); err != nil {
				return nil, fmt.Errorf("parse finished_at %q: %w", finished.String, err)
			}
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if err := decodeRunLists(&run, []byte(errs), []byte(warnings)); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func sqliteDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteDateLayout)
}
