// Package bigquery records pipeline executions in a BigQuery audit table.
// Auditing is optional: the pipeline runs unchanged without it, and a
// failure to record a run never fails the run itself.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/gmendonca/nfe-pipeline/internal/logger"
)

const runsTable = "pipeline_runs"

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusEmpty   = "EMPTY"
)

// RunRow is one pipeline execution in the audit table.
type RunRow struct {
	RunID      string `bigquery:"run_id"`      // REQUIRED
	AgencyCode string `bigquery:"agency_code"` // REQUIRED
	Year       int64  `bigquery:"year"`        // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	RecordsCollected  bigquery.NullInt64 `bigquery:"records_collected"`  // NULLABLE
	RowsWritten       bigquery.NullInt64 `bigquery:"rows_written"`       // NULLABLE
	PartitionsTouched bigquery.NullInt64 `bigquery:"partitions_touched"` // NULLABLE
}

// RunCounts are the figures recorded with a finished run.
type RunCounts struct {
	RecordsCollected  int
	RowsWritten       int
	PartitionsTouched int
}

// RunRepository records pipeline executions.
type RunRepository interface {
	StartRun(ctx context.Context, agencyCode string, year int) (string, error)
	MarkRunSucceeded(ctx context.Context, runID string, counts RunCounts) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
	ListRecentRuns(ctx context.Context, limit int) ([]*RunRow, error)
	Close() error
}

// BigQueryRunRepository is the concrete RunRepository. It holds a shared
// BigQuery client to avoid creating a new connection for each operation.
type BigQueryRunRepository struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQueryRunRepository creates a repository with a shared BigQuery
// client for the given project and dataset.
func NewBigQueryRunRepository(ctx context.Context, projectID, dataset string) (*BigQueryRunRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRunRepository: creating client: %w", err)
	}
	return &BigQueryRunRepository{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryRunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartRun inserts a new row with status=RUNNING and returns the generated
// run_id.
func (r *BigQueryRunRepository) StartRun(ctx context.Context, agencyCode string, year int) (string, error) {
	runID := uuid.NewString()
	row := &RunRow{
		RunID:      runID,
		AgencyCode: agencyCode,
		Year:       int64(year),
		StartedTS:  time.Now(),
		Status:     StatusRunning,
	}

	inserter := r.client.Dataset(r.dataset).Table(runsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("StartRun: inserting row: %w", err)
	}
	return runID, nil
}

// MarkRunSucceeded finalizes a run with its counts. A run that collected
// nothing is recorded as EMPTY rather than SUCCESS.
func (r *BigQueryRunRepository) MarkRunSucceeded(ctx context.Context, runID string, counts RunCounts) error {
	status := StatusSuccess
	if counts.RecordsCollected == 0 {
		status = StatusEmpty
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    records_collected = @records_collected,
		    rows_written = @rows_written,
		    partitions_touched = @partitions_touched
		WHERE run_id = @run_id
	`, r.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "records_collected", Value: int64(counts.RecordsCollected)},
		{Name: "rows_written", Value: int64(counts.RowsWritten)},
		{Name: "partitions_touched", Value: int64(counts.PartitionsTouched)},
		{Name: "run_id", Value: runID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("MarkRunSucceeded: running update query: %w", err)
	}
	status2, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("MarkRunSucceeded: waiting for job: %w", err)
	}
	if err := status2.Err(); err != nil {
		return fmt.Errorf("MarkRunSucceeded: job error: %w", err)
	}
	return nil
}

// MarkRunFailed finalizes a run with status=FAILED. It is best-effort:
// problems are logged, not returned, so a broken audit table cannot mask
// the original pipeline error.
func (r *BigQueryRunRepository) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: StatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("MarkRunFailed: running update query")
		return
	}
	status, err := job.Wait(ctx)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("MarkRunFailed: waiting for job")
		return
	}
	if err := status.Err(); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("MarkRunFailed: job completed with error")
	}
}

// ListRecentRuns returns the most recent runs, newest first.
func (r *BigQueryRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*RunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: running query: %w", err)
	}

	var rows []*RunRow
	for {
		var row RunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: reading row: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
