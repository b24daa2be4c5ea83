package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gmendonca/nfe-pipeline/internal/config"
	infrabigquery "github.com/gmendonca/nfe-pipeline/internal/infra/bigquery"
	"github.com/gmendonca/nfe-pipeline/internal/logger"
	"github.com/gmendonca/nfe-pipeline/internal/pipeline"
	"github.com/gmendonca/nfe-pipeline/internal/storage"
	"github.com/gmendonca/nfe-pipeline/internal/transparencia"
)

func main() {
	log := logger.New()

	agencyCode := flag.String("orgao", "36000", "agency code (codigoOrgao) to collect invoices for")
	year := flag.Int("ano", time.Now().Year(), "issuance year to collect")
	maxPages := flag.Int("max-pages", transparencia.DefaultMaxPages, "page cap for one collection run")
	timeout := flag.Duration("timeout", 30*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := transparencia.NewClient(cfg.APIBaseURL, cfg.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}

	store, err := storage.NewGCSStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer store.Close()
	loader := storage.NewLoader(store)

	deps := pipeline.Deps{Client: client, Loader: loader}
	if cfg.BigQueryProjectID != "" {
		audit, err := infrabigquery.NewBigQueryRunRepository(ctx, cfg.BigQueryProjectID, cfg.BigQueryDataset)
		if err != nil {
			log.Warn().Err(err).Msg("Run audit unavailable, continuing without it")
		} else {
			defer audit.Close()
			deps.Audit = audit
		}
	}

	params := pipeline.Params{
		AgencyCode: *agencyCode,
		Year:       *year,
		MaxPages:   *maxPages,
		BasePath:   cfg.StorageBasePath,
	}

	log.Info().
		Str("agency_code", params.AgencyCode).
		Int("year", params.Year).
		Str("base_path", params.BasePath).
		Msg("Starting invoice collection")

	res, err := pipeline.Run(ctx, deps, params)
	if err != nil {
		var cfgErr *pipeline.ConfigError
		var transformErr *pipeline.TransformError
		var loadErr *pipeline.LoadError
		switch {
		case errors.As(err, &cfgErr):
			log.Error().Err(err).Msg("Pipeline aborted: configuration problem")
		case errors.As(err, &transformErr):
			log.Error().Err(err).Msg("Pipeline aborted: collected data could not be normalized")
		case errors.As(err, &loadErr):
			log.Error().Err(err).Msg("Pipeline aborted: failed to write to storage")
		default:
			log.Error().Err(err).Msg("Pipeline failed")
		}
		os.Exit(1)
	}

	if res.Empty {
		log.Warn().
			Str("agency_code", params.AgencyCode).
			Int("year", params.Year).
			Msg("No invoices found; nothing was written")
		return
	}

	log.Info().
		Int("records_collected", res.RecordsCollected).
		Int("rows_written", res.RowsWritten).
		Int("partitions_touched", res.PartitionsTouched).
		Msg("Pipeline completed")

	fmt.Printf("Collected %d invoices into %d partition(s) under %s\n",
		res.RowsWritten, res.PartitionsTouched, params.BasePath)
}
