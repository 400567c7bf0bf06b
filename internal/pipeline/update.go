package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/oplego/lexharvest/internal/model"
)

// UpdateChecker re-fetches processed acts and re-imports the ones whose
// source text changed. Changed acts always go back to human review.
type UpdateChecker struct {
	opts Options
}

// NewUpdateChecker creates a new update checker
func NewUpdateChecker(opts Options) *UpdateChecker {
	return &UpdateChecker{opts: opts}
}

// CheckJurisdiction checks every processed act of j, least recently updated
// first. An act whose re-fetch fails is treated as unchanged and noted as a
// run warning.
func (u *UpdateChecker) CheckJurisdiction(ctx context.Context, j model.Jurisdiction) (*model.ImportResult, error) {
	r, err := startRun(ctx, u.opts, j, model.RunUpdateCheck)
	if err != nil {
		r.finish(ctx, err)
		return r.result, err
	}

	adapter, err := u.opts.Adapters.Get(j)
	if err != nil {
		r.finish(ctx, err)
		return r.result, err
	}

	acts, err := u.opts.Store.ListActsForUpdate(ctx, j, model.StatusProcessed)
	if err != nil {
		err = fmt.Errorf("list acts: %w", err)
		r.finish(ctx, err)
		return r.result, err
	}
	r.result.ActsFound = len(acts)
	jur := string(j)

	var fatal error
	for _, act := range acts {
		if fatal = r.cancelled(ctx); fatal != nil {
			break
		}

		check, err := adapter.CheckForUpdates(ctx, act.SourceID, act.ContentHash, act.LanguageOriginal)
		if err != nil {
			r.fail(act.SourceID, FetchError(act.SourceID, err))
			continue
		}
		if check.FetchErr != nil {
			r.result.AddWarning(fmt.Sprintf("%s: update check failed, assumed unchanged: %v", act.SourceID, check.FetchErr))
			r.result.ActsSkipped++
			u.opts.Metrics.RecordAct(jur, "unchecked")
			continue
		}
		if !check.HasChanged {
			r.result.ActsSkipped++
			u.opts.Metrics.RecordAct(jur, "unchanged")
			continue
		}

		u.opts.Metrics.RecordChanged(jur)
		r.log.Info().
			Str("source_id", act.SourceID).
			Str("old_hash", act.ContentHash).
			Str("new_hash", check.NewHash).
			Msg("act changed")

		raw := check.Act
		if raw == nil {
			raw, err = adapter.FetchAct(ctx, act.SourceID)
			if err != nil {
				r.fail(act.SourceID, FetchError(act.SourceID, err))
				continue
			}
		}

		rec, err := r.process(ctx, raw)
		if err != nil {
			r.fail(act.SourceID, err)
			continue
		}
		rec.ReviewStatus = model.ReviewNeedsRevision

		if err := u.opts.Store.UpdateAct(ctx, rec); err != nil {
			r.fail(act.SourceID, SaveError(act.SourceID, err))
			continue
		}
		r.result.ActsUpdated++
		u.opts.Metrics.RecordAct(jur, "updated")
	}
	if fatal == nil {
		fatal = r.cancelled(ctx)
	}

	r.finish(ctx, fatal)
	return r.result, fatal
}

// CheckAll runs CheckJurisdiction for every registered jurisdiction in turn
// and returns one result per jurisdiction checked. Run-level failures are
// joined into the returned error; cancellation stops the sweep.
func (u *UpdateChecker) CheckAll(ctx context.Context) ([]*model.ImportResult, error) {
	jurisdictions := u.opts.Adapters.Jurisdictions()
	results := make([]*model.ImportResult, 0, len(jurisdictions))

	var errs []error
	for _, j := range jurisdictions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := u.CheckJurisdiction(ctx, j)
		results = append(results, result)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", j, err))
			if ctx.Err() != nil {
				break
			}
		}
	}

	return results, errors.Join(errs...)
}
