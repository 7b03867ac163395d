package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy 描述一次受限重试的全部参数。Sleep 可注入，测试无需真实等待。
type Policy struct {
	// MaxAttempts 是总尝试次数，最小为 1。
	MaxAttempts int
	// BaseDelay 是首次重试前的等待时间，之后按 2 的幂指数增长。
	BaseDelay time.Duration
	// MaxDelay 封顶单次等待时间；0 表示不封顶。
	MaxDelay time.Duration
	// Classify 判断错误是否可重试；nil 时使用 DefaultClassify。
	Classify func(error) bool
	// Sleep 执行等待；nil 时使用带 context 取消的真实休眠。
	Sleep func(ctx context.Context, d time.Duration) error
}

// Exhausted 在尝试次数耗尽后包装最后一次错误，并记录总尝试数。
type Exhausted struct {
	Attempts int
	Err      error
}

func (e *Exhausted) Error() string {
	return fmt.Sprintf("after %d attempts: %v", e.Attempts, e.Err)
}

func (e *Exhausted) Unwrap() error { return e.Err }

type retryable interface {
	IsRetryable() bool
}

// DefaultClassify 依据错误自身声明的 IsRetryable 分类；未声明的错误一律 fatal。
func DefaultClassify(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// SleepContext 是默认的等待实现，可被 context 取消打断。
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay 返回第 attempt 次失败后的等待时间：min(base·2^(attempt-1), cap)。
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Run 执行 op 至多 MaxAttempts 次。fatal 错误立即中止并原样返回；
// 可重试错误在等待后继续，次数耗尽时返回 *Exhausted。
// 返回值为实际执行的尝试次数，调用方据此记录 Provenance.Retries。
func Run(ctx context.Context, policy Policy, op func(context.Context) error) (int, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	classify := policy.Classify
	if classify == nil {
		classify = DefaultClassify
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, &Exhausted{Attempts: attempt - 1, Err: lastErr}
			}
			return attempt - 1, err
		}

		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !classify(err) {
			return attempt, err
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleep(ctx, policy.Delay(attempt)); sleepErr != nil {
			return attempt, &Exhausted{Attempts: attempt, Err: lastErr}
		}
	}
	return attempts, &Exhausted{Attempts: attempts, Err: lastErr}
}
