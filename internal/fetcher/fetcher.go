// Package fetcher retrieves job postings page by page from the Adzuna API.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"jobpulse/ingest-service/internal/model"
)

const (
	adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"
	httpTimeout   = 15 * time.Second
)

// Page is one fetched result page. Raw carries the body exactly as
// received, for the raw-archival stage.
type Page struct {
	Records []model.RawRecord
	Raw     []byte
}

// AdzunaFetcher fetches job postings from the Adzuna public API with a
// shared HTTP client and bounded retry. It keeps no state between calls.
type AdzunaFetcher struct {
	appID   string
	appKey  string
	country string
	query   string
	baseURL string
	client  *http.Client
	retry   RetryPolicy
}

// NewAdzunaFetcher constructs a fetcher. Missing credentials are a
// configuration error — a request without them cannot succeed, so this
// fails before any network call rather than fetching empty pages.
func NewAdzunaFetcher(appID, appKey, country, query string) (*AdzunaFetcher, error) {
	if appID == "" || appKey == "" {
		return nil, fmt.Errorf("adzuna app id and app key are required")
	}
	if country == "" {
		country = "us"
	}
	return &AdzunaFetcher{
		appID:   appID,
		appKey:  appKey,
		country: country,
		query:   query,
		baseURL: adzunaBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
		retry:   DefaultRetryPolicy(),
	}, nil
}

// WithBaseURL points the fetcher at an alternate endpoint. Used by tests.
func (f *AdzunaFetcher) WithBaseURL(base string) *AdzunaFetcher {
	f.baseURL = base
	return f
}

// WithRetryPolicy overrides the default retry schedule.
func (f *AdzunaFetcher) WithRetryPolicy(p RetryPolicy) *AdzunaFetcher {
	f.retry = p
	return f
}

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []model.RawRecord `json:"results"`
	Count   int               `json:"count"`
}

// FetchPage issues one request for the given page, retrying transient
// failures per the retry policy. An empty Records slice means the source
// has no more data — the caller's cue to stop paginating. Any error after
// exhausted retries is the run's problem, never silently an empty page.
func (f *AdzunaFetcher) FetchPage(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1, got %d", page)
	}
	if perPage < 1 {
		return nil, fmt.Errorf("perPage must be > 0, got %d", perPage)
	}

	var result *Page
	err := f.retry.Do(ctx, func() error {
		p, err := f.fetchOnce(ctx, page, perPage)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	return result, nil
}

func (f *AdzunaFetcher) fetchOnce(ctx context.Context, page, perPage int) (*Page, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", f.baseURL, f.country, page)

	params := url.Values{}
	params.Set("app_id", f.appID)
	params.Set("app_key", f.appKey)
	params.Set("results_per_page", strconv.Itoa(perPage))
	if f.query != "" {
		params.Set("what", f.query)
	}
	params.Set("content-type", "application/json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("http GET: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &TransientError{Err: fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	// A body that fails to parse is a hard error, not an empty page, so the
	// orchestrator can tell "no more data" apart from "broken response".
	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	return &Page{Records: apiResp.Results, Raw: body}, nil
}
