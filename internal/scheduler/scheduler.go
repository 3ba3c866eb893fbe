// Package scheduler wires up the cron job that periodically triggers an
// ingestion run in daemon mode.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"jobpulse/ingest-service/internal/pipeline"
)

// Scheduler wraps robfig/cron around the pipeline entry point. Runs fire
// strictly one at a time: the merge-write discipline is not safe under
// concurrent runs, so an overlapping tick is skipped, not queued.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *pipeline.Pipeline
	spec     string // cron spec, e.g. "@daily"
	maxPages int
	perPage  int
	running  chan struct{}
}

// New creates a Scheduler that fires per spec.
func New(p *pipeline.Pipeline, spec string, maxPages, perPage int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		pipeline: p,
		spec:     spec,
		maxPages: maxPages,
		perPage:  perPage,
		running:  make(chan struct{}, 1),
	}
}

// Start registers the job and starts the scheduler. Also runs one
// ingestion immediately so the tables are populated without waiting for
// the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runOnce(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// runOnce executes one run unless another is still in flight.
func (s *Scheduler) runOnce(ctx context.Context) {
	select {
	case s.running <- struct{}{}:
		defer func() { <-s.running }()
	default:
		log.Println("[scheduler] Previous run still active — skipping tick")
		return
	}

	log.Println("[scheduler] Ingestion run started")
	result, err := s.pipeline.Run(ctx, s.maxPages, s.perPage)
	if err != nil {
		log.Printf("[scheduler] Run failed: %v", err)
		return
	}
	log.Printf("[scheduler] Run %s complete — pages=%d fetched=%d persisted=%d",
		result.RunID, result.Pages, result.Fetched, result.Persisted)
}
