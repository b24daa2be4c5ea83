package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	infrabigquery "github.com/gmendonca/nfe-pipeline/internal/infra/bigquery"
	"github.com/gmendonca/nfe-pipeline/internal/logger"
)

func main() {
	log := logger.New()

	limit := flag.Int("limit", 20, "number of recent runs to show")
	flag.Parse()

	_ = godotenv.Load()
	projectID := os.Getenv("BIGQUERY_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("BIGQUERY_PROJECT_ID is not set; check your .env file")
	}
	dataset := os.Getenv("BIGQUERY_DATASET")
	if dataset == "" {
		dataset = "nfe"
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infrabigquery.NewBigQueryRunRepository(ctx, projectID, dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer repo.Close()

	runs, err := repo.ListRecentRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list runs")
	}
	if len(runs) == 0 {
		log.Info().Msg("No runs recorded yet")
		return
	}

	for _, run := range runs {
		evt := log.Info().
			Str("run_id", run.RunID).
			Str("agency_code", run.AgencyCode).
			Int64("year", run.Year).
			Time("started_ts", run.StartedTS).
			Str("status", run.Status)
		if run.FinishedTS.Valid {
			evt = evt.Time("finished_ts", run.FinishedTS.Timestamp)
		}
		if run.RowsWritten.Valid {
			evt = evt.Int64("rows_written", run.RowsWritten.Int64)
		}
		if run.ErrorMessage != "" {
			evt = evt.Str("error", run.ErrorMessage)
		}
		evt.Msg("run")
	}
}
