// Package warehouse loads the processed partitions into BigQuery and hands
// out the query client the dashboard layer consumes.
package warehouse

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/bigquery"

	"jobpulse/ingest-service/internal/store"
)

// Loader triggers BigQuery load jobs against the processed parquet
// objects. Loading a date-partition decorator with WriteTruncate keeps
// re-runs idempotent in the warehouse as well.
type Loader struct {
	client  *bigquery.Client
	dataset string
	bucket  string
}

// NewLoader creates a BigQuery client for project (application default
// credentials) and binds it to dataset and the source bucket.
func NewLoader(ctx context.Context, project, dataset, bucket string) (*Loader, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	return &Loader{client: client, dataset: dataset, bucket: bucket}, nil
}

// Close releases the underlying client.
func (l *Loader) Close() error { return l.client.Close() }

// LoadPartition replaces the ingestDate partition of one warehouse table
// with the corresponding processed object.
func (l *Loader) LoadPartition(ctx context.Context, table, ingestDate string) error {
	uri := fmt.Sprintf("gs://%s/%s", l.bucket, store.ProcessedPath(table, ingestDate))

	gcsRef := bigquery.NewGCSReference(uri)
	gcsRef.SourceFormat = bigquery.Parquet

	partition := table + "$" + strings.ReplaceAll(ingestDate, "-", "")
	loader := l.client.Dataset(l.dataset).Table(partition).LoaderFrom(gcsRef)
	loader.WriteDisposition = bigquery.WriteTruncate

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("start load %s <- %s: %w", partition, uri, err)
	}
	st, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait load %s: %w", partition, err)
	}
	if err := st.Err(); err != nil {
		return fmt.Errorf("load %s <- %s: %w", partition, uri, err)
	}

	log.Printf("[warehouse] Loaded %s into %s.%s", uri, l.dataset, partition)
	return nil
}

// NewQueryClient returns a ready-to-use BigQuery client for read-only
// aggregate queries. The dashboard layer calls this; ingestion never does.
func NewQueryClient(ctx context.Context, project string) (*bigquery.Client, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	return client, nil
}
