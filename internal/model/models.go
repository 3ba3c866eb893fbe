// Package model defines shared data structures for the ingest service.
package model

import (
	"encoding/json"
	"time"
)

// RawRecord mirrors one Adzuna job posting as fetched. Every field is
// optional: the source guarantees nothing about presence or shape, so the
// iffy ones (id, salaries, area elements) stay as raw JSON until the
// normalizer coerces them.
type RawRecord struct {
	ID           json.RawMessage `json:"id,omitempty"`
	Title        *string         `json:"title,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Created      *string         `json:"created,omitempty"`
	RedirectURL  *string         `json:"redirect_url,omitempty"`
	SalaryMin    json.RawMessage `json:"salary_min,omitempty"`
	SalaryMax    json.RawMessage `json:"salary_max,omitempty"`
	ContractType *string         `json:"contract_type,omitempty"`
	ContractTime *string         `json:"contract_time,omitempty"`
	Company      *RawCompany     `json:"company,omitempty"`
	Location     *RawLocation    `json:"location,omitempty"`
	Category     *RawCategory    `json:"category,omitempty"`
}

// RawCompany mirrors the nested company object.
type RawCompany struct {
	DisplayName *string `json:"display_name,omitempty"`
}

// RawLocation mirrors the nested location object. Area is an ordered
// coarse-to-fine path (country, state, city, ...); DisplayName is the flat
// fallback some records carry instead.
type RawLocation struct {
	DisplayName *string           `json:"display_name,omitempty"`
	Area        []json.RawMessage `json:"area,omitempty"`
}

// RawCategory mirrors the nested category object.
type RawCategory struct {
	Label *string `json:"label,omitempty"`
}

// JobRecord is the normalized job-fact row. JobID is the stable identity
// key shared by every derived table; IngestDate is the partition key.
type JobRecord struct {
	JobID       string     `parquet:"job_id" json:"job_id"`
	Title       *string    `parquet:"title,optional" json:"title"`
	Description *string    `parquet:"description,optional" json:"description"`
	SalaryMin   *float64   `parquet:"salary_min,optional" json:"salary_min"`
	SalaryMax   *float64   `parquet:"salary_max,optional" json:"salary_max"`
	Created     *time.Time `parquet:"created,optional,timestamp" json:"created"`
	RedirectURL *string    `parquet:"redirect_url,optional" json:"redirect_url"`
	IngestTS    time.Time  `parquet:"ingest_ts,timestamp" json:"ingest_ts"`
	IngestDate  string     `parquet:"ingest_date" json:"ingest_date"`
}

// CompanyRecord is one row per posting, not a deduplicated company
// dimension — two postings at the same company yield two rows.
type CompanyRecord struct {
	JobID       string    `parquet:"job_id" json:"job_id"`
	CompanyName *string   `parquet:"company_name,optional" json:"company_name"`
	IngestTS    time.Time `parquet:"ingest_ts,timestamp" json:"ingest_ts"`
	IngestDate  string    `parquet:"ingest_date" json:"ingest_date"`
}

// LocationRecord holds the positional parse of the area path.
type LocationRecord struct {
	JobID      string    `parquet:"job_id" json:"job_id"`
	City       *string   `parquet:"city,optional" json:"city"`
	State      *string   `parquet:"state,optional" json:"state"`
	Country    *string   `parquet:"country,optional" json:"country"`
	IngestTS   time.Time `parquet:"ingest_ts,timestamp" json:"ingest_ts"`
	IngestDate string    `parquet:"ingest_date" json:"ingest_date"`
}

// CategoryRecord holds the posting's category label.
type CategoryRecord struct {
	JobID         string    `parquet:"job_id" json:"job_id"`
	CategoryLabel *string   `parquet:"category_label,optional" json:"category_label"`
	IngestTS      time.Time `parquet:"ingest_ts,timestamp" json:"ingest_ts"`
	IngestDate    string    `parquet:"ingest_date" json:"ingest_date"`
}

// JobStatsRecord holds contract metadata and the ISO week the posting was
// created in (null when created is absent or unparsable).
type JobStatsRecord struct {
	JobID        string    `parquet:"job_id" json:"job_id"`
	ContractType *string   `parquet:"contract_type,optional" json:"contract_type"`
	ContractTime *string   `parquet:"contract_time,optional" json:"contract_time"`
	PostingWeek  *int32    `parquet:"posting_week,optional" json:"posting_week"`
	IngestTS     time.Time `parquet:"ingest_ts,timestamp" json:"ingest_ts"`
	IngestDate   string    `parquet:"ingest_date" json:"ingest_date"`
}
