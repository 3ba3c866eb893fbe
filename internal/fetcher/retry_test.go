package fetcher_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobpulse/ingest-service/internal/fetcher"
)

func testPolicy(attempts int) fetcher.RetryPolicy {
	return fetcher.RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

// ── Do ─────────────────────────────────────────────────────────────────────

func TestRetryPolicy_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetryPolicy_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &fetcher.TransientError{Err: errors.New("flaky")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return &fetcher.TransientError{Err: errors.New("always down")}
	})
	if err == nil {
		t.Fatal("Do should surface the last error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
	if !fetcher.IsTransient(err) {
		t.Error("surfaced error should keep its transient classification")
	}
}

func TestRetryPolicy_DoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	permanent := errors.New("bad request")
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("Do = %v, want the permanent error", err)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 — permanent errors must not retry", calls)
	}
}

func TestRetryPolicy_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fetcher.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute}

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Do(ctx, func() error {
			calls++
			return &fetcher.TransientError{Err: errors.New("slow")}
		})
	}()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

// ── IsTransient ────────────────────────────────────────────────────────────

func TestIsTransient(t *testing.T) {
	base := &fetcher.TransientError{Err: errors.New("503")}
	if !fetcher.IsTransient(base) {
		t.Error("TransientError itself should classify as transient")
	}

	wrapped := errors.Join(errors.New("page 2"), base)
	if !fetcher.IsTransient(wrapped) {
		t.Error("wrapped TransientError should classify as transient")
	}

	if fetcher.IsTransient(errors.New("plain")) {
		t.Error("plain errors should not classify as transient")
	}
}
