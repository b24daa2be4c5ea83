package pipeline

import (
	"context"

	infrabigquery "github.com/gmendonca/nfe-pipeline/internal/infra/bigquery"
	"github.com/gmendonca/nfe-pipeline/internal/logger"
)

// Deps are the collaborators a run needs. Audit may be nil when no
// BigQuery project is configured.
type Deps struct {
	Client Extractor
	Loader Persister
	Audit  infrabigquery.RunRepository
}

// Result summarizes a finished run.
type Result struct {
	RecordsCollected  int
	RowsWritten       int
	PartitionsTouched int
	Empty             bool
}

// Run executes the full extract, normalize and persist sequence for the
// given params and records the outcome in the run audit table when one
// is configured.
func Run(ctx context.Context, deps Deps, params Params) (*Result, error) {
	log := logger.FromContext(ctx)

	var runID string
	audited := false
	if deps.Audit != nil {
		id, err := deps.Audit.StartRun(ctx, params.AgencyCode, params.Year)
		if err != nil {
			log.Warn().Err(err).Msg("run audit unavailable, continuing without it")
		} else {
			runID = id
			audited = true
		}
	}

	state := &State{Params: params}
	p := New(
		&ExtractStep{Client: deps.Client},
		&NormalizeStep{},
		&PersistStep{Loader: deps.Loader},
	)

	if err := p.Execute(ctx, state); err != nil {
		if audited {
			deps.Audit.MarkRunFailed(ctx, runID, err)
		}
		return nil, err
	}

	res := &Result{
		RecordsCollected: len(state.Records),
		Empty:            len(state.Records) == 0,
	}
	if state.Table != nil {
		res.RowsWritten = state.Table.NumRows()
		res.PartitionsTouched = len(state.Table.Partitions())
	}

	if audited {
		counts := infrabigquery.RunCounts{
			RecordsCollected:  res.RecordsCollected,
			RowsWritten:       res.RowsWritten,
			PartitionsTouched: res.PartitionsTouched,
		}
		if err := deps.Audit.MarkRunSucceeded(ctx, runID, counts); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("failed to record run outcome")
		}
	}

	return res, nil
}
