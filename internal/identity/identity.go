// Package identity computes the stable deduplication key shared by every
// derived table.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"jobpulse/ingest-service/internal/model"
)

// StableJobID returns the API-provided id when present, otherwise a
// deterministic SHA-256 hex digest over title + company display name +
// location display name (each defaulted to "" and trimmed).
//
// Two distinct postings with identical title/company/location collapse to
// the same hashed identity. That is an accepted trade-off, not a bug:
// descriptions and creation times deliberately do not participate.
func StableJobID(rec model.RawRecord) string {
	if id := NativeID(rec.ID); id != "" {
		return id
	}

	var company, location string
	if rec.Company != nil && rec.Company.DisplayName != nil {
		company = *rec.Company.DisplayName
	}
	if rec.Location != nil && rec.Location.DisplayName != nil {
		location = *rec.Location.DisplayName
	}

	var title string
	if rec.Title != nil {
		title = *rec.Title
	}

	raw := strings.TrimSpace(title) + strings.TrimSpace(company) + strings.TrimSpace(location)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NativeID stringifies the raw id field. Adzuna usually sends a JSON
// string but numeric ids have been observed; both map to the same key.
func NativeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}
