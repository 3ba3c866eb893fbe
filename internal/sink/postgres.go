// Package sink mirrors normalized job rows into the relational job_feed
// table so product services can consume postings without a warehouse
// round-trip.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"jobpulse/ingest-service/internal/model"
)

// FeedSink inserts job rows into job_feed, skipping rows whose job_id is
// already present. The warehouse partitions are the source of truth; the
// mirror is append-only and never updated in place.
type FeedSink struct {
	pool *pgxpool.Pool
}

// NewFeedSink constructs a FeedSink over an established pool.
func NewFeedSink(pool *pgxpool.Pool) *FeedSink {
	return &FeedSink{pool: pool}
}

// MirrorJobs inserts the batch. A single row failing to serialize is
// logged and skipped; an insert error aborts the batch.
func (s *FeedSink) MirrorJobs(ctx context.Context, jobs []model.JobRecord) (int, error) {
	var inserted int
	for _, job := range jobs {
		rawJSON, err := json.Marshal(job)
		if err != nil {
			log.Printf("[sink] json.Marshal job %s: %v", job.JobID, err)
			continue
		}

		tag, err := s.pool.Exec(ctx,
			`INSERT INTO job_feed (job_id, title, redirect_url, ingest_date, raw_data)
			 VALUES ($1, $2, $3, $4, $5::jsonb)
			 ON CONFLICT (job_id) DO NOTHING`,
			job.JobID, job.Title, job.RedirectURL, job.IngestDate, string(rawJSON),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert job %s: %w", job.JobID, err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		}
	}
	return inserted, nil
}
