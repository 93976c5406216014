package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// AggregateSink receives the aggregates of a completed run. Implementations
// must tolerate being called with the same hours again on the next run, since
// every run re-scans the full bucket.
type AggregateSink interface {
	InsertBatch(ctx context.Context, items []*HourlyAggregate) error
	Close() error
}

// BigQueryDatasetConfig holds configuration for a BigQuery dataset and table.
type BigQueryDatasetConfig struct {
	DatasetID       string
	TableID         string
	CredentialsFile string // Optional: path to a service account JSON file.
}

// NewProductionBigQueryClient creates a BigQuery client suitable for
// production environments.
func NewProductionBigQueryClient(ctx context.Context, projectID string, credentialsFile string, logger zerolog.Logger) (*bigquery.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
		logger.Info().Str("credentials_file", credentialsFile).Msg("Using specified credentials file for BigQuery client.")
	} else {
		logger.Info().Msg("Using Application Default Credentials (ADC) for BigQuery client.")
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	logger.Info().Str("project_id", projectID).Msg("BigQuery client created successfully.")
	return client, nil
}

// BigQuerySink streams hourly aggregates into a BigQuery table, implementing
// AggregateSink.
type BigQuerySink struct {
	client   *bigquery.Client
	inserter *bigquery.Inserter
	logger   zerolog.Logger
}

// NewBigQuerySink creates a sink for the configured table. If the table does
// not exist it is created with a schema inferred from HourlyAggregate, which
// removes the need for manual table creation on first deployment.
func NewBigQuerySink(
	ctx context.Context,
	client *bigquery.Client,
	cfg *BigQueryDatasetConfig,
	logger zerolog.Logger,
) (*BigQuerySink, error) {
	if client == nil {
		return nil, errors.New("bigquery client cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("BigQueryDatasetConfig cannot be nil")
	}

	logger = logger.With().Str("dataset_id", cfg.DatasetID).Str("table_id", cfg.TableID).Logger()

	tableRef := client.Dataset(cfg.DatasetID).Table(cfg.TableID)
	_, err := tableRef.Metadata(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "notFound") {
			logger.Warn().Msg("BigQuery table not found. Attempting to create with inferred schema.")
			inferredSchema, inferErr := bigquery.InferSchema(HourlyAggregate{})
			if inferErr != nil {
				return nil, fmt.Errorf("failed to infer schema for HourlyAggregate: %w", inferErr)
			}
			if createErr := tableRef.Create(ctx, &bigquery.TableMetadata{Schema: inferredSchema}); createErr != nil {
				return nil, fmt.Errorf("failed to create BigQuery table %s.%s: %w", cfg.DatasetID, cfg.TableID, createErr)
			}
			logger.Info().Msg("BigQuery table created successfully.")
		} else {
			return nil, fmt.Errorf("failed to get BigQuery table metadata: %w", err)
		}
	} else {
		logger.Info().Msg("Successfully connected to existing BigQuery table.")
	}

	return &BigQuerySink{
		client:   client,
		inserter: tableRef.Inserter(),
		logger:   logger.With().Str("component", "BigQuerySink").Logger(),
	}, nil
}

// InsertBatch streams a run's aggregates to the table. Row-level failures are
// logged individually; the wrapping error is returned so the caller can decide
// how loudly to complain.
func (s *BigQuerySink) InsertBatch(ctx context.Context, items []*HourlyAggregate) error {
	if len(items) == 0 {
		return nil
	}

	err := s.inserter.Put(ctx, items)
	if err == nil {
		s.logger.Debug().Int("row_count", len(items)).Msg("Aggregates streamed to BigQuery.")
		return nil
	}

	var putErr bigquery.PutMultiError
	if errors.As(err, &putErr) {
		for _, rowErr := range putErr {
			s.logger.Error().Int("row_index", rowErr.RowIndex).Errs("row_errors", rowErr.Errors).Msg("BigQuery row insert failed.")
		}
	}
	return fmt.Errorf("bigquery insert: %w", err)
}

// Close is a no-op; the BigQuery client's lifecycle is managed by the caller.
func (s *BigQuerySink) Close() error {
	return nil
}
