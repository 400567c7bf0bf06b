// Package pipeline drives acts from a source portal into the store:
// fetch, translate, structure, save. Runs are sequential per jurisdiction
// and every run leaves one entry in the run log.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/oplego/lexharvest/internal/adapters"
	"github.com/oplego/lexharvest/internal/logger"
	"github.com/oplego/lexharvest/internal/metrics"
	"github.com/oplego/lexharvest/internal/model"
	"github.com/oplego/lexharvest/internal/store"
	"github.com/oplego/lexharvest/internal/structure"
	"github.com/oplego/lexharvest/internal/translate"
)

// finishTimeout bounds the final run log write after cancellation
const finishTimeout = 10 * time.Second

// Translator is the translation stage
type Translator interface {
	Translate(ctx context.Context, raw *model.RawLegislation) (*model.TranslatedLegislation, error)
	Usage() translate.Usage
	EstimateCost(chars int) float64
}

// Structurer is the classification stage
type Structurer interface {
	Structure(ctx context.Context, act *model.TranslatedLegislation) (*model.StructuredLegislation, error)
	Usage() structure.Usage
	EstimateCost(inputTokens, outputTokens int) float64
}

// TranslatorFactory builds a fresh translator so usage is counted per run
type TranslatorFactory func() (Translator, error)

// StructurerFactory builds a fresh structurer so usage is counted per run
type StructurerFactory func() (Structurer, error)

// AdapterSource resolves adapters by jurisdiction; adapters.Registry
// satisfies it.
type AdapterSource interface {
	Get(j model.Jurisdiction) (adapters.Adapter, error)
	Jurisdictions() []model.Jurisdiction
}

// Options wires the collaborators shared by Importer and UpdateChecker.
// A nil factory disables its stage.
type Options struct {
	Adapters      AdapterSource
	Store         store.Store
	NewTranslator TranslatorFactory
	NewStructurer StructurerFactory
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
}

// run is the state of one pipeline execution
type run struct {
	opts       Options
	result     *model.ImportResult
	translator Translator
	structurer Structurer
	log        zerolog.Logger
}

// startRun opens the run log and builds fresh stage instances. The
// returned run is never nil; a non-nil error means the run cannot proceed.
func startRun(ctx context.Context, opts Options, j model.Jurisdiction, runType model.RunType) (*run, error) {
	result := model.NewImportResult(j, runType)
	r := &run{
		opts:   opts,
		result: result,
		log:    logger.Run(logger.Component(opts.Logger, "pipeline"), result.RunID.String(), string(j), string(runType)),
	}

	if err := opts.Store.StartRun(ctx, result); err != nil {
		return r, fmt.Errorf("open run log: %w", err)
	}

	if opts.NewTranslator != nil {
		t, err := opts.NewTranslator()
		if err != nil {
			return r, fmt.Errorf("create translator: %w", err)
		}
		r.translator = t
	}
	if opts.NewStructurer != nil {
		s, err := opts.NewStructurer()
		if err != nil {
			return r, fmt.Errorf("create structurer: %w", err)
		}
		r.structurer = s
	}

	r.log.Info().Msg("run started")
	return r, nil
}

// process runs the translate and structure stages over a fetched act
func (r *run) process(ctx context.Context, raw *model.RawLegislation) (store.ActRecord, error) {
	status := model.StatusRaw

	translated := &model.TranslatedLegislation{RawLegislation: *raw}
	if r.translator != nil {
		t, err := r.translator.Translate(ctx, raw)
		if err != nil {
			return store.ActRecord{}, TranslateError(raw.SourceID, err)
		}
		translated = t
		status = model.StatusTranslated
		r.result.ActsTranslated++
	}

	structured := &model.StructuredLegislation{TranslatedLegislation: *translated}
	if r.structurer != nil {
		s, err := r.structurer.Structure(ctx, translated)
		if err != nil {
			return store.ActRecord{}, StructureError(raw.SourceID, err)
		}
		structured = s
		status = model.StatusProcessed
		r.result.ActsStructured++
		if s.NeedsManualReview {
			r.result.AddWarning(fmt.Sprintf("%s: classifier output unreadable, flagged for manual review", raw.SourceID))
		}
	}

	return store.ActRecord{
		Act:          structured,
		Status:       status,
		ReviewStatus: model.ReviewPending,
	}, nil
}

// fail records a per-act failure and lets the loop continue
func (r *run) fail(sourceID string, err error) {
	stage := ClassifyError(err)
	r.result.AddError(sourceID, stage, errorMessage(err))
	r.opts.Metrics.RecordStageError(string(r.result.Jurisdiction), string(stage))
	r.opts.Metrics.RecordAct(string(r.result.Jurisdiction), "failed")
	r.log.Warn().Err(err).Str("source_id", sourceID).Str("stage", string(stage)).Msg("act failed")
}

// cancelled reports whether the run must stop before the next act
func (r *run) cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		r.result.AddWarning("cancelled")
		return err
	}
	return nil
}

// finish totals usage and cost, sets the terminal status and writes the
// run log once.
func (r *run) finish(ctx context.Context, fatal error) {
	if r.translator != nil {
		u := r.translator.Usage()
		r.result.TranslationChars = u.Chars
		r.result.EstimatedCostUSD += r.translator.EstimateCost(u.Chars)
	}
	if r.structurer != nil {
		u := r.structurer.Usage()
		r.result.InputTokens = u.InputTokens
		r.result.OutputTokens = u.OutputTokens
		r.result.EstimatedCostUSD += r.structurer.EstimateCost(u.InputTokens, u.OutputTokens)
	}

	r.result.Finish(fatal)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := r.opts.Store.FinishRun(writeCtx, r.result); err != nil {
		r.log.Error().Err(err).Msg("failed to write run log")
	}

	res := r.result
	r.opts.Metrics.RecordRun(string(res.Jurisdiction), string(res.RunType), string(res.Status),
		res.Duration, res.TranslationChars, res.InputTokens, res.OutputTokens, res.EstimatedCostUSD)

	r.log.Info().
		Str("status", string(res.Status)).
		Int("found", res.ActsFound).
		Int("new", res.ActsNew).
		Int("updated", res.ActsUpdated).
		Int("skipped", res.ActsSkipped).
		Int("errors", len(res.Errors)).
		Float64("cost_usd", res.EstimatedCostUSD).
		Dur("duration", res.Duration).
		Msg("run finished")
}
