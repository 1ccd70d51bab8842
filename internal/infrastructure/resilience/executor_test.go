package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

func TestExecuteDefaultConfigDoesNotRetry(t *testing.T) {
	exec := NewExecutor(Config{BreakerEnabled: false})

	attempts := 0
	err := exec.Execute(context.Background(), "embed", func(context.Context) error {
		attempts++
		return statusErr(http.StatusServiceUnavailable)
	}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestExecuteRetriesWhenConfigured(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	})

	attempts := 0
	err := exec.Execute(context.Background(), "embed", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return statusErr(http.StatusTooManyRequests)
		}
		return nil
	}, ClassifyUpstream)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})

	var transitions []string
	exec.OnStateChange(func(operation, state string) {
		transitions = append(transitions, operation+":"+state)
	})
	gauge := map[string]string{}
	exec.OnStateChange(func(operation, state string) {
		gauge[operation] = state
	})

	upstream := statusErr(http.StatusBadGateway)
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "embed_remote", func(context.Context) error {
			return upstream
		}, ClassifyUpstream)
		if !errors.Is(err, upstream) {
			t.Fatalf("expected upstream error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "embed_remote", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, ClassifyUpstream)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if !IsTemporary(err) {
		t.Fatalf("expected open circuit to be temporary")
	}
	if exec.State("embed_remote") != "open" || exec.State("embed_local") != "closed" {
		t.Fatalf("unexpected states: %s / %s", exec.State("embed_remote"), exec.State("embed_local"))
	}
	if len(transitions) != 1 || transitions[0] != "embed_remote:open" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
	if gauge["embed_remote"] != "open" {
		t.Fatalf("expected every observer to be notified, got %v", gauge)
	}
}

func TestPublishConfigRetriesConnectionLoss(t *testing.T) {
	cfg := PublishConfig()
	cfg.BreakerEnabled = false
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.RetryMaxBackoff = time.Millisecond
	exec := NewExecutor(cfg)

	attempts := 0
	err := exec.Execute(context.Background(), "nats_publish", func(context.Context) error {
		attempts++
		return statusErr(http.StatusServiceUnavailable)
	}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	exec := NewExecutor(Config{
		BreakerEnabled:     true,
		BreakerMinRequests: 1,
	})

	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "embed", func(context.Context) error {
			return statusErr(http.StatusBadRequest)
		}, ClassifyUpstream)
	}
	if exec.State("embed") != "closed" {
		t.Fatalf("expected closed breaker, got %s", exec.State("embed"))
	}
}

func TestClassifyUpstream(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{name: "nil", err: nil},
		{name: "canceled", err: context.Canceled},
		{name: "service unavailable", err: statusErr(http.StatusServiceUnavailable), retryable: true, record: true},
		{name: "unauthorized", err: statusErr(http.StatusUnauthorized)},
		{name: "opaque", err: errors.New("decode failure"), record: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyUpstream(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("ClassifyUpstream(%v) = %+v", tc.err, got)
			}
		})
	}
}
