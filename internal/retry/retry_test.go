package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeErr struct {
	retryable bool
}

func (e *fakeErr) Error() string     { return "fake" }
func (e *fakeErr) IsRetryable() bool { return e.retryable }

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	attempts, err := Run(context.Background(), Policy{MaxAttempts: 3}, func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRunExhaustsRetryableFailure(t *testing.T) {
	var delays []time.Duration
	calls := 0
	policy := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    3 * time.Second,
		Sleep:       recordingSleep(&delays),
	}

	attempts, err := Run(context.Background(), policy, func(context.Context) error {
		calls++
		return &fakeErr{retryable: true}
	})
	if calls != 3 || attempts != 3 {
		t.Fatalf("expected exactly 3 attempts, got calls=%d attempts=%d", calls, attempts)
	}

	var exhausted *Exhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected Exhausted, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("exhausted attempts mismatch: %d", exhausted.Attempts)
	}

	// 延迟序列 1s, 2s（封顶 3s 未触发），单调不减。
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("unexpected delay sequence: %v", delays)
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] < delays[i-1] {
			t.Fatalf("delays must be non-decreasing: %v", delays)
		}
	}
}

func TestRunCapsDelay(t *testing.T) {
	policy := Policy{MaxAttempts: 6, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, expect := range want {
		if got := policy.Delay(i + 1); got != expect {
			t.Fatalf("delay(%d) = %v, want %v", i+1, got, expect)
		}
	}
}

func TestRunAbortsOnFatal(t *testing.T) {
	calls := 0
	fatal := &fakeErr{retryable: false}
	attempts, err := Run(context.Background(), Policy{MaxAttempts: 5}, func(context.Context) error {
		calls++
		return fatal
	})
	if calls != 1 || attempts != 1 {
		t.Fatalf("fatal error must abort immediately, calls=%d", calls)
	}
	if !errors.Is(err, fatal) {
		t.Fatalf("fatal error should surface unwrapped, got %v", err)
	}
}

func TestRunRecoversAfterRetryableFailures(t *testing.T) {
	var delays []time.Duration
	calls := 0
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: recordingSleep(&delays)}

	attempts, err := Run(context.Background(), policy, func(context.Context) error {
		calls++
		if calls < 3 {
			return &fakeErr{retryable: true}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected success on third attempt, got %d", attempts)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts, err := Run(ctx, Policy{MaxAttempts: 3}, func(context.Context) error {
		t.Fatalf("op must not run with cancelled context")
		return nil
	})
	if attempts != 0 || err == nil {
		t.Fatalf("expected zero attempts with cancelled context, got attempts=%d err=%v", attempts, err)
	}
}

func TestDefaultClassify(t *testing.T) {
	if DefaultClassify(errors.New("plain")) {
		t.Fatalf("plain errors must be fatal")
	}
	if !DefaultClassify(&fakeErr{retryable: true}) {
		t.Fatalf("retryable marker not honored")
	}
	wrapped := errors.Join(errors.New("outer"), &fakeErr{retryable: true})
	if !DefaultClassify(wrapped) {
		t.Fatalf("classification must unwrap error chains")
	}
}
