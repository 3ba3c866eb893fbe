package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Object path convention: <stage>/<table>/<ingest_date>/<file>, where the
// stage separates the as-fetched archive from the deduplicated tables.
const (
	rawStage       = "raw"
	processedStage = "processed"
	tmpStage       = "tmp"
)

// ProcessedPath is the partition object for one table and ingest date.
func ProcessedPath(table, ingestDate string) string {
	return fmt.Sprintf("%s/%s/%s/%s.parquet", processedStage, table, ingestDate, table)
}

// RawPagePath is the archival object for one fetched page.
func RawPagePath(ingestDate string, page int) string {
	return fmt.Sprintf("%s/postings/%s/page_%04d.json", rawStage, ingestDate, page)
}

// MergeWrite merges rows into the partition for (table, ingestDate):
// read the existing partition if any, union with the new rows, dedupe by
// key keeping the last occurrence in concatenation order (a fresh fetch
// overwrites a stale record with the same identity), and publish the
// result. Returns the persisted row count.
//
// The read-merge-write sequence is not safe under concurrent writers;
// callers serialize runs, this function does not lock.
func MergeWrite[T any](ctx context.Context, s ObjectStore, table, ingestDate string, rows []T, key func(T) string) (int, error) {
	path := ProcessedPath(table, ingestDate)

	var prior []T
	data, err := s.Download(ctx, path)
	switch {
	case err == nil:
		prior, err = UnmarshalParquet[T](data)
		if err != nil {
			return 0, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, ErrNotExist):
		// First write of this partition.
	default:
		return 0, fmt.Errorf("read partition: %w", err)
	}

	merged := dedupeKeepLast(append(prior, rows...), key)

	encoded, err := MarshalParquet(merged)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}

	// Write-then-publish: the partition object is only ever replaced by a
	// complete file, so a failed write leaves the prior content intact.
	tmp := fmt.Sprintf("%s/%s/%s/%s.parquet", tmpStage, table, ingestDate, uuid.NewString())
	if err := s.Upload(ctx, tmp, encoded, "application/octet-stream"); err != nil {
		return 0, fmt.Errorf("upload %s: %w", tmp, err)
	}
	if err := s.Copy(ctx, tmp, path); err != nil {
		return 0, fmt.Errorf("publish %s: %w", path, err)
	}
	if err := s.Delete(ctx, tmp); err != nil {
		// The partition is already published; a leftover temp object is
		// cleanup debt, not a failed write.
		log.Printf("[store] delete temp %s: %v", tmp, err)
	}

	return len(merged), nil
}

// dedupeKeepLast keeps one row per key. A later row replaces an earlier
// one in place, so first-seen order is preserved with freshest values.
func dedupeKeepLast[T any](rows []T, key func(T) string) []T {
	pos := make(map[string]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if i, ok := pos[k]; ok {
			out[i] = row
			continue
		}
		pos[k] = len(out)
		out = append(out, row)
	}
	return out
}
