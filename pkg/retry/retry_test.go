package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:    2,
		BackoffFactor: 2.0,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		Jitter:        5 * time.Millisecond,
	}
}

func TestRetry_SuccessOnFirstTry(t *testing.T) {
	retrier := NewDefaultRetrier()

	counter := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		counter++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	retrier := NewRetrier(fastConfig())

	counter := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		counter++
		if counter < 2 {
			return errors.New("temporary error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counter != 2 {
		t.Errorf("expected 2 attempts, got %d", counter)
	}
}

func TestRetry_MaxRetriesExceeded(t *testing.T) {
	retrier := NewRetrier(fastConfig())

	expectedErr := errors.New("permanent error")
	counter := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		counter++
		return expectedErr
	})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if counter != 3 { // Initial try + 2 retries
		t.Errorf("expected 3 attempts, got %d", counter)
	}
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	retrier := NewRetrier(fastConfig())

	cause := errors.New("bad request")
	counter := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		counter++
		return Permanent(cause)
	})
	if err != cause {
		t.Errorf("expected unwrapped cause, got %v", err)
	}
	if counter != 1 {
		t.Errorf("expected 1 attempt, got %d", counter)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retrier := NewDefaultRetrier()

	err := retrier.Do(ctx, func(ctx context.Context) error {
		cancel()
		return errors.New("operation error after cancel")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_BackoffAndJitter(t *testing.T) {
	config := &Config{
		MaxRetries:    2,
		BackoffFactor: 2.0,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		Jitter:        50 * time.Millisecond,
	}
	retrier := NewRetrier(config)

	start := time.Now()
	_ = retrier.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("error")
	})
	elapsed := time.Since(start)

	// Two sleeps: 100ms+j1 and 200ms+j2
	minExpected := 300 * time.Millisecond
	maxExpected := 400*time.Millisecond + 100*time.Millisecond
	if elapsed < minExpected || elapsed > maxExpected {
		t.Errorf("expected total delay between %v and %v, got %v", minExpected, maxExpected, elapsed)
	}
}
