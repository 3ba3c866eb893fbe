package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"jobpulse/ingest-service/internal/fetcher"
	"jobpulse/ingest-service/internal/model"
	"jobpulse/ingest-service/internal/pipeline"
	"jobpulse/ingest-service/internal/store"
)

var (
	testCtx  = context.Background()
	testNow  = time.Date(2025, 10, 15, 8, 30, 0, 0, time.UTC)
	testDate = "2025-10-15"
)

func strPtr(s string) *string { return &s }

func rawRecord(id, title, company, location string) model.RawRecord {
	rec := model.RawRecord{Title: strPtr(title)}
	if id != "" {
		raw, _ := json.Marshal(id)
		rec.ID = raw
	}
	if company != "" {
		rec.Company = &model.RawCompany{DisplayName: strPtr(company)}
	}
	if location != "" {
		rec.Location = &model.RawLocation{DisplayName: strPtr(location)}
	}
	return rec
}

// stubFetcher serves canned pages; pages beyond the configured ones are
// empty. failOn makes one page fail permanently.
type stubFetcher struct {
	pages  [][]model.RawRecord
	failOn int
	calls  int
}

func (s *stubFetcher) FetchPage(_ context.Context, page, _ int) (*fetcher.Page, error) {
	s.calls++
	if s.failOn != 0 && page == s.failOn {
		return nil, errors.New("adzuna returned 500 after retries")
	}
	var records []model.RawRecord
	if page-1 < len(s.pages) {
		records = s.pages[page-1]
	}
	raw, _ := json.Marshal(struct {
		Results []model.RawRecord `json:"results"`
	}{Results: records})
	return &fetcher.Page{Records: records, Raw: raw}, nil
}

func newPipeline(f pipeline.Fetcher, s store.ObjectStore) *pipeline.Pipeline {
	return pipeline.New(f, s).WithClock(func() time.Time { return testNow })
}

func readJobs(t *testing.T, s store.ObjectStore) []model.JobRecord {
	t.Helper()
	data, err := s.Download(testCtx, store.ProcessedPath(pipeline.TableJobs, testDate))
	if err != nil {
		t.Fatalf("download jobs partition: %v", err)
	}
	rows, err := store.UnmarshalParquet[model.JobRecord](data)
	if err != nil {
		t.Fatalf("decode jobs partition: %v", err)
	}
	return rows
}

// ── Pagination ─────────────────────────────────────────────────────────────

func TestRun_StopsOnEmptyPage(t *testing.T) {
	f := &stubFetcher{pages: [][]model.RawRecord{
		{rawRecord("1", "A", "", ""), rawRecord("2", "B", "", "")},
		{rawRecord("3", "C", "", "")},
		// page 3 is empty
	}}
	st := store.NewMemoryStore()

	result, err := newPipeline(f, st).Run(testCtx, 10, 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.calls != 3 {
		t.Errorf("fetched %d pages, want 3 (two full + the empty one)", f.calls)
	}
	if result.Pages != 2 {
		t.Errorf("result.Pages = %d, want 2", result.Pages)
	}
	if result.Fetched != 3 {
		t.Errorf("result.Fetched = %d, want 3", result.Fetched)
	}
}

func TestRun_HonorsMaxPages(t *testing.T) {
	f := &stubFetcher{pages: [][]model.RawRecord{
		{rawRecord("1", "A", "", "")},
		{rawRecord("2", "B", "", "")},
		{rawRecord("3", "C", "", "")},
	}}

	result, err := newPipeline(f, store.NewMemoryStore()).Run(testCtx, 2, 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.calls != 2 {
		t.Errorf("fetched %d pages, want 2", f.calls)
	}
	if result.Pages != 2 {
		t.Errorf("result.Pages = %d, want 2", result.Pages)
	}
}

func TestRun_RejectsInvalidMaxPages(t *testing.T) {
	if _, err := newPipeline(&stubFetcher{}, store.NewMemoryStore()).Run(testCtx, 0, 50); err == nil {
		t.Error("maxPages 0 should be rejected")
	}
}

// ── Merge and dedupe across the run ────────────────────────────────────────

func TestRun_EndToEndDedupe(t *testing.T) {
	// One record with a native id plus the same no-id posting twice: the
	// duplicates share a hashed identity, so 3 raw records end as 2 rows.
	f := &stubFetcher{pages: [][]model.RawRecord{{
		rawRecord("42", "Data Engineer", "ACME", "NYC"),
		rawRecord("", "Data Analyst", "DataCorp", "Boston"),
		rawRecord("", "Data Analyst", "DataCorp", "Boston"),
	}}}
	st := store.NewMemoryStore()

	result, err := newPipeline(f, st).Run(testCtx, 5, 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Fetched != 3 {
		t.Errorf("result.Fetched = %d, want 3", result.Fetched)
	}
	if result.Persisted != 2 {
		t.Errorf("result.Persisted = %d, want 2 distinct identities", result.Persisted)
	}
	if rows := readJobs(t, st); len(rows) != 2 {
		t.Errorf("jobs partition has %d rows, want 2", len(rows))
	}
}

func TestRun_PagesAccumulateIntoOnePartition(t *testing.T) {
	f := &stubFetcher{pages: [][]model.RawRecord{
		{rawRecord("1", "A", "", ""), rawRecord("2", "B", "", "")},
		{rawRecord("3", "C", "", ""), rawRecord("2", "B updated", "", "")},
	}}
	st := store.NewMemoryStore()

	result, err := newPipeline(f, st).Run(testCtx, 5, 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Persisted != 3 {
		t.Errorf("result.Persisted = %d, want 3 — id 2 must not duplicate", result.Persisted)
	}

	rows := readJobs(t, st)
	titles := make(map[string]string)
	for _, r := range rows {
		if r.Title != nil {
			titles[r.JobID] = *r.Title
		}
	}
	if titles["2"] != "B updated" {
		t.Errorf("job 2 title = %q, want the later page's version", titles["2"])
	}
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	pages := [][]model.RawRecord{{rawRecord("1", "A", "", ""), rawRecord("2", "B", "", "")}}
	st := store.NewMemoryStore()

	if _, err := newPipeline(&stubFetcher{pages: pages}, st).Run(testCtx, 5, 50); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := newPipeline(&stubFetcher{pages: pages}, st).Run(testCtx, 5, 50)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.Persisted != 2 {
		t.Errorf("re-running the same fetch persisted %d rows, want 2", result.Persisted)
	}
}

// ── Outputs ────────────────────────────────────────────────────────────────

func TestRun_WritesAllFiveTables(t *testing.T) {
	f := &stubFetcher{pages: [][]model.RawRecord{{rawRecord("1", "A", "ACME", "NYC")}}}
	st := store.NewMemoryStore()

	if _, err := newPipeline(f, st).Run(testCtx, 5, 50); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, table := range pipeline.TableNames {
		if _, err := st.Download(testCtx, store.ProcessedPath(table, testDate)); err != nil {
			t.Errorf("table %s not written: %v", table, err)
		}
	}
}

func TestRun_ArchivesRawPages(t *testing.T) {
	f := &stubFetcher{pages: [][]model.RawRecord{
		{rawRecord("1", "A", "", "")},
		{rawRecord("2", "B", "", "")},
	}}
	st := store.NewMemoryStore()

	if _, err := newPipeline(f, st).Run(testCtx, 5, 50); err != nil {
		t.Fatalf("Run: %v", err)
	}

	names, err := st.List(testCtx, "raw/postings/"+testDate+"/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("archived %d raw pages, want 2: %v", len(names), names)
	}
}

// ── Failure handling ───────────────────────────────────────────────────────

func TestRun_FetchFailureAbortsButKeepsEarlierPages(t *testing.T) {
	f := &stubFetcher{
		pages: [][]model.RawRecord{
			{rawRecord("1", "A", "", "")},
			{rawRecord("2", "B", "", "")},
		},
		failOn: 2,
	}
	st := store.NewMemoryStore()

	result, err := newPipeline(f, st).Run(testCtx, 5, 50)
	if err == nil {
		t.Fatal("an unretried fetch failure must fail the run")
	}
	if result.Pages != 1 {
		t.Errorf("result.Pages = %d, want 1", result.Pages)
	}
	// Page 1 was merged before page 2 failed; its partition stays intact.
	if rows := readJobs(t, st); len(rows) != 1 {
		t.Errorf("jobs partition has %d rows, want page 1's single row", len(rows))
	}
}

func TestRun_StorageFailurePropagates(t *testing.T) {
	f := &stubFetcher{pages: [][]model.RawRecord{{rawRecord("1", "A", "", "")}}}
	st := &brokenUploadStore{MemoryStore: store.NewMemoryStore()}

	if _, err := newPipeline(f, st).Run(testCtx, 5, 50); err == nil {
		t.Fatal("a storage write failure must fail the run, not vanish")
	}
}

type brokenUploadStore struct {
	*store.MemoryStore
}

func (b *brokenUploadStore) Upload(context.Context, string, []byte, string) error {
	return errors.New("storage unavailable")
}
