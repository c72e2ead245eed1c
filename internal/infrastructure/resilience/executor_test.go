package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastRetryConfig(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func retryOn(target error) ErrorClassifier {
	return func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, target),
			RecordFailure: true,
		}
	}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	var retried []int
	exec := NewExecutor(fastRetryConfig(3)).OnRetry(func(operation string, attempt int, _ error) {
		if operation != "ocr.detect" {
			t.Fatalf("unexpected operation: %s", operation)
		}
		retried = append(retried, attempt)
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "ocr.detect", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, retryOn(errTemp))
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Fatalf("unexpected retry notifications: %v", retried)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(3))

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteReturnsLastErrorWhenAttemptsExhausted(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(2))

	errTemp := errors.New("still down")
	attempts := 0
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errTemp
	}, retryOn(errTemp))
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestExecuteBoundsEachAttempt(t *testing.T) {
	cfg := fastRetryConfig(2)
	cfg.AttemptTimeout = 10 * time.Millisecond
	exec := NewExecutor(cfg)

	attempts := 0
	err := exec.Execute(context.Background(), "op", func(ctx context.Context) error {
		attempts++
		<-ctx.Done()
		return ctx.Err()
	}, retryOn(context.DeadlineExceeded))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected every attempt to be bounded and retried, got %d attempts", attempts)
	}
}

func TestExecuteStopsWhenCallerContextIsDone(t *testing.T) {
	exec := NewExecutor(fastRetryConfig(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "op", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("operation must not run with a canceled context")
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "nlp.analyze", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "nlp.analyze", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}

	open := exec.OpenOperations()
	if len(open) != 1 || open[0] != "nlp.analyze" {
		t.Fatalf("unexpected open operations: %v", open)
	}
	if state := exec.States()["nlp.analyze"]; state != gobreaker.StateOpen.String() {
		t.Fatalf("unexpected breaker state: %q", state)
	}
}

func TestExecuteIgnoresNonRecordedFailuresForBreaker(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:   1,
		BreakerEnabled:     true,
		BreakerMinRequests: 1,
	})

	errBadRequest := errors.New("bad request")
	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "ocr.detect", func(context.Context) error {
			return errBadRequest
		}, func(error) ErrorClassification {
			return ErrorClassification{RecordFailure: false}
		})
	}
	if open := exec.OpenOperations(); len(open) != 0 {
		t.Fatalf("client errors must not trip the breaker, open=%v", open)
	}
}
