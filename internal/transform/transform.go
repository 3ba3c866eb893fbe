// Package transform normalizes raw Adzuna records into the five derived
// tables: jobs, companies, locations, categories and jobstats.
package transform

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"jobpulse/ingest-service/internal/identity"
	"jobpulse/ingest-service/internal/model"
)

// Tables holds one transform batch. Row i of every slice corresponds to
// input record i, and every slice is exactly as long as the input — bad
// fields become nulls, never dropped rows.
type Tables struct {
	Jobs       []model.JobRecord
	Companies  []model.CompanyRecord
	Locations  []model.LocationRecord
	Categories []model.CategoryRecord
	JobStats   []model.JobStatsRecord
}

// Transform converts a fetched batch into the five tables. The caller
// passes the processing instant once; every row in the batch shares the
// same ingest_ts and ingest_date stamp.
func Transform(records []model.RawRecord, now time.Time) Tables {
	ingestTS := now.UTC()
	ingestDate := ingestTS.Format("2006-01-02")

	t := Tables{
		Jobs:       make([]model.JobRecord, 0, len(records)),
		Companies:  make([]model.CompanyRecord, 0, len(records)),
		Locations:  make([]model.LocationRecord, 0, len(records)),
		Categories: make([]model.CategoryRecord, 0, len(records)),
		JobStats:   make([]model.JobStatsRecord, 0, len(records)),
	}

	for _, rec := range records {
		jobID := identity.StableJobID(rec)
		created := parseCreated(rec.Created)

		t.Jobs = append(t.Jobs, model.JobRecord{
			JobID:       jobID,
			Title:       rec.Title,
			Description: rec.Description,
			SalaryMin:   coerceFloat(rec.SalaryMin),
			SalaryMax:   coerceFloat(rec.SalaryMax),
			Created:     created,
			RedirectURL: rec.RedirectURL,
			IngestTS:    ingestTS,
			IngestDate:  ingestDate,
		})

		var company *string
		if rec.Company != nil {
			company = rec.Company.DisplayName
		}
		t.Companies = append(t.Companies, model.CompanyRecord{
			JobID:       jobID,
			CompanyName: company,
			IngestTS:    ingestTS,
			IngestDate:  ingestDate,
		})

		city, state, country := parseLocation(rec.Location)
		t.Locations = append(t.Locations, model.LocationRecord{
			JobID:      jobID,
			City:       city,
			State:      state,
			Country:    country,
			IngestTS:   ingestTS,
			IngestDate: ingestDate,
		})

		var label *string
		if rec.Category != nil {
			label = rec.Category.Label
		}
		t.Categories = append(t.Categories, model.CategoryRecord{
			JobID:         jobID,
			CategoryLabel: label,
			IngestTS:      ingestTS,
			IngestDate:    ingestDate,
		})

		t.JobStats = append(t.JobStats, model.JobStatsRecord{
			JobID:        jobID,
			ContractType: rec.ContractType,
			ContractTime: rec.ContractTime,
			PostingWeek:  postingWeek(created),
			IngestTS:     ingestTS,
			IngestDate:   ingestDate,
		})
	}

	return t
}

// parseLocation reads the area path, an ordered coarse-to-fine list:
// index 0 = country, 1 = state, 2 = city. Elements beyond index 2 are
// ignored. When the path is empty or absent, the flat display name stands
// in for country. Every output is string-or-null so the destination never
// type-infers a location column as numeric.
func parseLocation(loc *model.RawLocation) (city, state, country *string) {
	if loc == nil {
		return nil, nil, nil
	}

	area := make([]*string, 0, len(loc.Area))
	for _, el := range loc.Area {
		area = append(area, coerceString(el))
	}

	if len(area) >= 1 {
		country = area[0]
	}
	if len(area) >= 2 {
		state = area[1]
	}
	if len(area) >= 3 {
		city = area[2]
	}

	if len(area) == 0 && loc.DisplayName != nil {
		country = loc.DisplayName
	}

	return city, state, country
}

// coerceFloat parses a raw salary value. Adzuna sends numbers, but string
// forms like "90000" show up too; anything unparsable becomes null rather
// than zero.
func coerceFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}

	return nil
}

// coerceString renders a raw JSON scalar as a string, or nil.
func coerceString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		v := n.String()
		return &v
	}

	return nil
}

func parseCreated(created *string) *time.Time {
	if created == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*created))
	if err != nil {
		return nil
	}
	return &t
}

// postingWeek is the ISO calendar week of the creation timestamp.
func postingWeek(created *time.Time) *int32 {
	if created == nil {
		return nil
	}
	_, week := created.ISOWeek()
	w := int32(week)
	return &w
}
