package pipeline

import (
	"context"

	"github.com/oplego/lexharvest/internal/model"
)

// Importer runs the initial import of a jurisdiction's priority acts and
// one-off imports of single acts.
type Importer struct {
	opts Options
}

// NewImporter creates a new importer
func NewImporter(opts Options) *Importer {
	return &Importer{opts: opts}
}

// RunInitialImport imports every priority act of j that is not stored yet.
// Per-act failures are recorded and the loop moves on; the returned error is
// non-nil only when the run as a whole failed. The result is always
// returned and always written to the run log.
func (i *Importer) RunInitialImport(ctx context.Context, j model.Jurisdiction) (*model.ImportResult, error) {
	r, err := startRun(ctx, i.opts, j, model.RunInitialImport)
	if err != nil {
		r.finish(ctx, err)
		return r.result, err
	}

	adapter, err := i.opts.Adapters.Get(j)
	if err != nil {
		r.finish(ctx, err)
		return r.result, err
	}

	priority := adapter.PriorityActs()
	r.result.ActsFound = len(priority)
	jur := string(j)

	var fatal error
	for _, p := range priority {
		if fatal = r.cancelled(ctx); fatal != nil {
			break
		}

		exists, err := i.opts.Store.ActExists(ctx, j, p.SourceID)
		if err != nil {
			r.fail(p.SourceID, SaveError(p.SourceID, err))
			continue
		}
		if exists {
			r.result.ActsSkipped++
			i.opts.Metrics.RecordAct(jur, "skipped")
			r.log.Debug().Str("source_id", p.SourceID).Msg("already imported, skipping")
			continue
		}

		if err := i.importOne(ctx, r, p.SourceID, jur, adapter.FetchAct); err != nil {
			r.fail(p.SourceID, err)
		}
	}
	if fatal == nil {
		fatal = r.cancelled(ctx)
	}

	r.finish(ctx, fatal)
	return r.result, fatal
}

// ImportSingleAct imports one act regardless of whether it is already
// stored; an existing record is replaced.
func (i *Importer) ImportSingleAct(ctx context.Context, j model.Jurisdiction, sourceID string) (*model.ImportResult, error) {
	r, err := startRun(ctx, i.opts, j, model.RunSingleImport)
	if err != nil {
		r.finish(ctx, err)
		return r.result, err
	}

	adapter, err := i.opts.Adapters.Get(j)
	if err != nil {
		r.finish(ctx, err)
		return r.result, err
	}

	r.result.ActsFound = 1
	jur := string(j)

	if err := i.importOne(ctx, r, sourceID, jur, adapter.FetchAct); err != nil {
		r.fail(sourceID, err)
	}

	r.finish(ctx, nil)
	return r.result, nil
}

func (i *Importer) importOne(ctx context.Context, r *run, sourceID, jur string,
	fetch func(context.Context, string) (*model.RawLegislation, error)) error {
	raw, err := fetch(ctx, sourceID)
	if err != nil {
		return FetchError(sourceID, err)
	}

	rec, err := r.process(ctx, raw)
	if err != nil {
		return err
	}

	created, err := i.opts.Store.SaveAct(ctx, rec)
	if err != nil {
		return SaveError(sourceID, err)
	}
	if created {
		r.result.ActsNew++
		i.opts.Metrics.RecordAct(jur, "new")
	} else {
		r.result.ActsUpdated++
		i.opts.Metrics.RecordAct(jur, "updated")
	}
	r.log.Info().Str("source_id", sourceID).Str("status", string(rec.Status)).Msg("act imported")
	return nil
}
