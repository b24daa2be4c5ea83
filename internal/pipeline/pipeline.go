// Package pipeline sequences the extract, normalize and persist stages of
// one invoice collection run.
package pipeline

import (
	"context"

	"github.com/gmendonca/nfe-pipeline/internal/logger"
	"github.com/gmendonca/nfe-pipeline/internal/normalize"
	"github.com/gmendonca/nfe-pipeline/internal/transparencia"
)

// Extractor collects a year of invoices for one agency.
type Extractor interface {
	FetchYear(ctx context.Context, agencyCode string, year, maxPages int) ([]transparencia.Record, error)
}

// Persister writes a normalized table into partitioned storage.
type Persister interface {
	Persist(ctx context.Context, table *normalize.Table, basePath string) error
}

// Params identify one pipeline run.
type Params struct {
	AgencyCode string
	Year       int
	MaxPages   int
	BasePath   string
}

// State holds the shared state across pipeline steps.
type State struct {
	Params  Params
	Records []transparencia.Record
	Table   *normalize.Table

	// Done short-circuits the remaining steps; a step sets it when it
	// produced nothing for the next one.
	Done bool
}

// Step is a single stage of the run.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// ExtractStep collects the agency's invoices for the target year.
type ExtractStep struct {
	Client Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *State) error {
	records, err := s.Client.FetchYear(ctx, state.Params.AgencyCode, state.Params.Year, state.Params.MaxPages)
	if err != nil {
		// FetchYear only errors on missing configuration; transient
		// failures end pagination with partial results instead.
		return &ConfigError{Err: err}
	}
	state.Records = records
	if len(records) == 0 {
		log := logger.FromContext(ctx)
		log.Warn().
			Str("agency_code", state.Params.AgencyCode).
			Int("year", state.Params.Year).
			Msg("no invoices found for the requested year")
		state.Done = true
	}
	return nil
}

// NormalizeStep converts the raw records into the typed table.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *State) error {
	table, err := normalize.Normalize(state.Records)
	if err != nil {
		return &TransformError{Err: err}
	}
	state.Table = table
	log := logger.FromContext(ctx)
	log.Info().
		Int("rows", table.NumRows()).
		Int("partitions", len(table.Partitions())).
		Msg("table prepared")
	if table.NumRows() == 0 {
		state.Done = true
	}
	return nil
}

// PersistStep writes the table into partitioned object storage.
type PersistStep struct {
	Loader Persister
}

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	if err := s.Loader.Persist(ctx, state.Table, state.Params.BasePath); err != nil {
		return &LoadError{Err: err}
	}
	return nil
}

// Pipeline executes a sequence of steps in order, stopping early when a
// step marks the run done.
type Pipeline struct {
	steps []Step
}

// New creates a pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially. The first step error aborts the
// run; steps after a short-circuit are never executed.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for _, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return err
		}
		if state.Done {
			return nil
		}
	}
	return nil
}
