// jobpulse-ingest-service — Adzuna job postings ingestion.
//
// One-shot mode (the scheduler-facing entry point):
//
//	ingest-service --pages 3 --per_page 50
//
// Daemon mode keeps the process alive and runs on INGEST_SCHEDULE:
//
//	ingest-service --daemon
//
// Exit code is non-zero on any unrecovered failure; zero on normal
// completion, including a run where no page yielded data.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"jobpulse/ingest-service/internal/config"
	"jobpulse/ingest-service/internal/db"
	"jobpulse/ingest-service/internal/fetcher"
	"jobpulse/ingest-service/internal/pipeline"
	"jobpulse/ingest-service/internal/scheduler"
	"jobpulse/ingest-service/internal/sink"
	"jobpulse/ingest-service/internal/status"
	"jobpulse/ingest-service/internal/store"
	"jobpulse/ingest-service/internal/warehouse"
)

func main() {
	pages := flag.Int("pages", 2, "maximum number of pages to fetch")
	perPage := flag.Int("per_page", 50, "results per page")
	daemon := flag.Bool("daemon", false, "keep running and ingest on INGEST_SCHEDULE")
	flag.Parse()

	// .env is a local-dev convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] Config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		log.Fatalf("[main] Setup: %v", err)
	}
	defer cleanup()

	if *daemon {
		sched := scheduler.New(p, cfg.IngestSchedule, *pages, *perPage)
		if err := sched.Start(ctx); err != nil {
			log.Fatalf("[main] Scheduler: %v", err)
		}
		<-ctx.Done()
		sched.Stop()
		return
	}

	result, err := p.Run(ctx, *pages, *perPage)
	if err != nil {
		log.Fatalf("[main] Run failed: %v", err)
	}
	log.Printf("[main] Run %s complete — pages=%d fetched=%d persisted=%d",
		result.RunID, result.Pages, result.Fetched, result.Persisted)
}

// buildPipeline wires the pipeline with whichever optional collaborators
// the config enables.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	f, err := fetcher.NewAdzunaFetcher(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, cfg.SearchQuery)
	if err != nil {
		return nil, nil, err
	}

	gcs, err := store.NewGCSStore(ctx, cfg.BucketName)
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	closers = append(closers, func() { gcs.Close() })

	p := pipeline.New(f, gcs)

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			runClosers(closers)
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		p = p.WithFeedSink(sink.NewFeedSink(pool))
		log.Println("[main] job_feed mirror enabled")
	}

	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			runClosers(closers)
			return nil, nil, err
		}
		closers = append(closers, func() { rdb.Close() })
		p = p.WithRecorder(status.NewRecorder(rdb))
		log.Println("[main] Run status recording enabled")
	}

	if cfg.GCPProject != "" && cfg.BQDataset != "" {
		loader, err := warehouse.NewLoader(ctx, cfg.GCPProject, cfg.BQDataset, cfg.BucketName)
		if err != nil {
			runClosers(closers)
			return nil, nil, err
		}
		closers = append(closers, func() { loader.Close() })
		p = p.WithLoader(loader)
		log.Println("[main] BigQuery partition load enabled")
	}

	return p, func() { runClosers(closers) }, nil
}

func runClosers(closers []func()) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
