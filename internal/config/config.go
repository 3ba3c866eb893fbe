// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
)

// Config holds all runtime configuration for the ingest service.
type Config struct {
	AdzunaAppID   string
	AdzunaAppKey  string
	AdzunaCountry string // e.g. "us", "gb", "fr"
	SearchQuery   string // free-text filter passed as the "what" parameter

	BucketName string // GCS bucket receiving raw + processed objects

	GCPProject string // optional — BigQuery load skipped when empty
	BQDataset  string // optional — BigQuery load skipped when empty

	DatabaseURL string // optional — job_feed mirror skipped when empty
	RedisURL    string // optional — run status recording skipped when empty

	IngestSchedule string // cron spec for --daemon mode, e.g. "@daily"
}

// Load reads environment variables and returns a validated Config.
// A request without Adzuna credentials cannot succeed, so their absence is
// a configuration error raised here, before any network call.
func Load() (*Config, error) {
	appID := os.Getenv("ADZUNA_APP_ID")
	if appID == "" {
		return nil, fmt.Errorf("ADZUNA_APP_ID is required")
	}

	appKey := os.Getenv("ADZUNA_APP_KEY")
	if appKey == "" {
		return nil, fmt.Errorf("ADZUNA_APP_KEY is required")
	}

	bucket := os.Getenv("BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("BUCKET_NAME is required")
	}

	country := os.Getenv("ADZUNA_COUNTRY")
	if country == "" {
		country = "us"
	}

	query := os.Getenv("SEARCH_QUERY")
	if query == "" {
		query = "data science"
	}

	schedule := os.Getenv("INGEST_SCHEDULE")
	if schedule == "" {
		schedule = "@daily"
	}

	return &Config{
		AdzunaAppID:    appID,
		AdzunaAppKey:   appKey,
		AdzunaCountry:  country,
		SearchQuery:    query,
		BucketName:     bucket,
		GCPProject:     os.Getenv("GCP_PROJECT"),
		BQDataset:      os.Getenv("BQ_DATASET"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		IngestSchedule: schedule,
	}, nil
}
