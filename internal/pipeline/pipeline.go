// Package pipeline drives the fetch → transform → merge-write loop for one
// ingestion run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"jobpulse/ingest-service/internal/fetcher"
	"jobpulse/ingest-service/internal/model"
	"jobpulse/ingest-service/internal/sink"
	"jobpulse/ingest-service/internal/status"
	"jobpulse/ingest-service/internal/store"
	"jobpulse/ingest-service/internal/transform"
	"jobpulse/ingest-service/internal/warehouse"
)

// Table names, in load order.
const (
	TableJobs       = "jobs"
	TableCompanies  = "companies"
	TableLocations  = "locations"
	TableCategories = "categories"
	TableJobStats   = "jobstats"
)

// TableNames lists every derived table.
var TableNames = []string{TableJobs, TableCompanies, TableLocations, TableCategories, TableJobStats}

// Fetcher is the page source. *fetcher.AdzunaFetcher is the production
// implementation; tests substitute stubs.
type Fetcher interface {
	FetchPage(ctx context.Context, page, perPage int) (*fetcher.Page, error)
}

// Result summarizes one completed run.
type Result struct {
	RunID     string
	Pages     int // pages that yielded records
	Fetched   int // raw records fetched across all pages
	Persisted int // rows in the jobs partition after the final merge
	Started   time.Time
	Finished  time.Time
}

// Pipeline sequences one run: pages are fetched, transformed and merged
// strictly one at a time. Feed mirror, warehouse load and status recording
// are optional collaborators; a nil collaborator is skipped.
type Pipeline struct {
	fetcher Fetcher
	store   store.ObjectStore
	feed    *sink.FeedSink
	loader  *warehouse.Loader
	status  *status.Recorder
	clock   func() time.Time
}

// New constructs a Pipeline over the two mandatory collaborators.
func New(f Fetcher, st store.ObjectStore) *Pipeline {
	return &Pipeline{fetcher: f, store: st, clock: time.Now}
}

// WithFeedSink enables the Postgres job_feed mirror.
func (p *Pipeline) WithFeedSink(s *sink.FeedSink) *Pipeline {
	p.feed = s
	return p
}

// WithLoader enables the BigQuery partition load after a successful run.
func (p *Pipeline) WithLoader(l *warehouse.Loader) *Pipeline {
	p.loader = l
	return p
}

// WithRecorder enables per-run status recording.
func (p *Pipeline) WithRecorder(r *status.Recorder) *Pipeline {
	p.status = r
	return p
}

// WithClock overrides the wall clock. Used by tests.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// Run executes one ingestion run: up to maxPages pages, stopping early on
// the first empty page. Each page is fully merged into its partition
// before the next fetch, so a later failure never discards earlier pages'
// work. Errors that survive the fetcher's retries are fatal to the run.
func (p *Pipeline) Run(ctx context.Context, maxPages, perPage int) (*Result, error) {
	if maxPages < 1 {
		return nil, fmt.Errorf("maxPages must be >= 1, got %d", maxPages)
	}

	result := &Result{
		RunID:   uuid.NewString(),
		Started: p.clock().UTC(),
	}
	log.Printf("[pipeline] Run %s starting: maxPages=%d perPage=%d", result.RunID, maxPages, perPage)

	partitions := make(map[string]struct{})

	for page := 1; page <= maxPages; page++ {
		pg, err := p.fetcher.FetchPage(ctx, page, perPage)
		if err != nil {
			return result, p.fail(ctx, result, fmt.Errorf("fetch: %w", err))
		}
		if len(pg.Records) == 0 {
			log.Printf("[pipeline] Page %d empty — pagination complete", page)
			break
		}

		now := p.clock().UTC()
		ingestDate := now.Format("2006-01-02")

		if err := p.store.Upload(ctx, store.RawPagePath(ingestDate, page), pg.Raw, "application/json"); err != nil {
			return result, p.fail(ctx, result, fmt.Errorf("archive page %d: %w", page, err))
		}

		tables := transform.Transform(pg.Records, now)

		persisted, err := p.mergeTables(ctx, tables, ingestDate)
		if err != nil {
			return result, p.fail(ctx, result, fmt.Errorf("page %d: %w", page, err))
		}

		if p.feed != nil {
			inserted, err := p.feed.MirrorJobs(ctx, tables.Jobs)
			if err != nil {
				return result, p.fail(ctx, result, fmt.Errorf("page %d mirror: %w", page, err))
			}
			log.Printf("[pipeline] Page %d mirrored to job_feed: inserted=%d", page, inserted)
		}

		partitions[ingestDate] = struct{}{}
		result.Pages++
		result.Fetched += len(pg.Records)
		result.Persisted = persisted
		log.Printf("[pipeline] Page %d done: fetched=%d persisted=%d partition=%s",
			page, len(pg.Records), persisted, ingestDate)
	}

	if p.loader != nil {
		for date := range partitions {
			for _, table := range TableNames {
				if err := p.loader.LoadPartition(ctx, table, date); err != nil {
					return result, p.fail(ctx, result, fmt.Errorf("warehouse load: %w", err))
				}
			}
		}
	}

	result.Finished = p.clock().UTC()
	p.record(ctx, result, "succeeded", nil)
	log.Printf("[pipeline] Run %s done — pages=%d fetched=%d persisted=%d",
		result.RunID, result.Pages, result.Fetched, result.Persisted)
	return result, nil
}

// mergeTables merge-writes the five tables for one page into the given
// partition. Each table's write is independent: a failure part-way leaves
// already-written tables merged, which the next run's dedupe absorbs.
func (p *Pipeline) mergeTables(ctx context.Context, t transform.Tables, ingestDate string) (int, error) {
	jobs, err := store.MergeWrite(ctx, p.store, TableJobs, ingestDate, t.Jobs,
		func(r model.JobRecord) string { return r.JobID })
	if err != nil {
		return 0, fmt.Errorf("merge %s: %w", TableJobs, err)
	}

	if _, err := store.MergeWrite(ctx, p.store, TableCompanies, ingestDate, t.Companies,
		func(r model.CompanyRecord) string { return r.JobID }); err != nil {
		return 0, fmt.Errorf("merge %s: %w", TableCompanies, err)
	}

	if _, err := store.MergeWrite(ctx, p.store, TableLocations, ingestDate, t.Locations,
		func(r model.LocationRecord) string { return r.JobID }); err != nil {
		return 0, fmt.Errorf("merge %s: %w", TableLocations, err)
	}

	if _, err := store.MergeWrite(ctx, p.store, TableCategories, ingestDate, t.Categories,
		func(r model.CategoryRecord) string { return r.JobID }); err != nil {
		return 0, fmt.Errorf("merge %s: %w", TableCategories, err)
	}

	if _, err := store.MergeWrite(ctx, p.store, TableJobStats, ingestDate, t.JobStats,
		func(r model.JobStatsRecord) string { return r.JobID }); err != nil {
		return 0, fmt.Errorf("merge %s: %w", TableJobStats, err)
	}

	return jobs, nil
}

func (p *Pipeline) fail(ctx context.Context, result *Result, err error) error {
	result.Finished = p.clock().UTC()
	p.record(ctx, result, "failed", err)
	return err
}

// record reports run completion or failure. Status recording is
// telemetry: its own failure is logged, never escalated.
func (p *Pipeline) record(ctx context.Context, result *Result, state string, runErr error) {
	if p.status == nil {
		return
	}
	report := status.RunReport{
		RunID:     result.RunID,
		State:     state,
		Pages:     result.Pages,
		Fetched:   result.Fetched,
		Persisted: result.Persisted,
		Started:   result.Started,
		Finished:  result.Finished,
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	if err := p.status.Record(ctx, report); err != nil {
		log.Printf("[pipeline] Record run status: %v", err)
	}
}
