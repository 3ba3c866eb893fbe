// Package status records per-run completion and failure in Redis so the
// scheduler side can see what the last run did.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lastRunKey   = "ingest:last_run"
	runKeyPrefix = "ingest:runs:"
	runTTL       = 30 * 24 * time.Hour
)

// RunReport summarizes one ingestion run.
type RunReport struct {
	RunID     string
	State     string // "succeeded" or "failed"
	Pages     int
	Fetched   int
	Persisted int
	Error     string
	Started   time.Time
	Finished  time.Time
}

// Recorder writes run reports to Redis.
type Recorder struct {
	rdb *redis.Client
}

// NewRecorder constructs a Recorder over an established client.
func NewRecorder(rdb *redis.Client) *Recorder {
	return &Recorder{rdb: rdb}
}

// Record stores the report under ingest:runs:<run_id> and points
// ingest:last_run at it.
func (r *Recorder) Record(ctx context.Context, report RunReport) error {
	key := runKeyPrefix + report.RunID

	fields := map[string]interface{}{
		"run_id":      report.RunID,
		"state":       report.State,
		"pages":       report.Pages,
		"fetched":     report.Fetched,
		"persisted":   report.Persisted,
		"started_at":  report.Started.UTC().Format(time.RFC3339),
		"finished_at": report.Finished.UTC().Format(time.RFC3339),
	}
	if report.Error != "" {
		fields["error"] = report.Error
	}

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, runTTL)
	pipe.Set(ctx, lastRunKey, report.RunID, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record run %s: %w", report.RunID, err)
	}
	return nil
}
