package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/gridmind/gridmind/core"
)

// Policy configures retry behavior. It is an immutable value: executors
// copy it and never write back.
type Policy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool

	// Retryable decides whether an error is worth another attempt.
	// Nil means retry everything except breaker rejections.
	Retryable func(error) bool
}

// DefaultPolicy provides sensible defaults for flaky HTTP dependencies.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
		Retryable:       core.IsRetryable,
	}
}

// PolicyFromSettings builds a Policy from the configuration surface.
func PolicyFromSettings(s core.RetrySettings) Policy {
	return Policy{
		MaxAttempts:     s.MaxAttempts,
		InitialDelay:    s.InitialDelay,
		MaxDelay:        s.MaxDelay,
		ExponentialBase: s.ExponentialBase,
		Jitter:          s.Jitter,
		Retryable:       core.IsRetryable,
	}
}

// Delay computes the backoff before the attempt after the given one
// (0-indexed): min(initial * base^attempt, max), with ±20% uniform
// jitter when enabled and a 100ms floor after jitter.
func (p Policy) Delay(attempt int) time.Duration {
	delay := time.Duration(float64(p.InitialDelay) * math.Pow(p.ExponentialBase, float64(attempt)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter {
		jitter := float64(delay) * 0.2
		delay += time.Duration((rand.Float64()*2 - 1) * jitter)
		if delay < 100*time.Millisecond {
			delay = 100 * time.Millisecond
		}
	}
	return delay
}

// Executor runs functions under a retry policy with cooperative sleeps.
type Executor struct {
	policy Policy
	logger core.Logger
}

// NewExecutor creates an executor with the given policy.
func NewExecutor(policy Policy, logger core.Logger) *Executor {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Executor{policy: policy, logger: logger}
}

// Execute runs fn up to MaxAttempts times. Non-retryable errors re-raise
// immediately. The sleep between attempts is scheduler-visible and aborts
// on context cancellation. The operation name is only used in logs.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return e.ExecuteWith(ctx, operation, e.policy, fn)
}

// ExecuteWith runs fn under an explicit policy, overriding the
// executor's default.
func (e *Executor) ExecuteWith(ctx context.Context, operation string, policy Policy, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("Operation recovered after retry", map[string]interface{}{
					"operation": operation,
					"attempt":   attempt + 1,
				})
			}
			return nil
		}
		lastErr = err

		if policy.Retryable != nil && !policy.Retryable(err) {
			e.logger.Debug("Error not retryable, giving up", map[string]interface{}{
				"operation": operation,
				"attempt":   attempt + 1,
				"error":     err.Error(),
			})
			return err
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.Delay(attempt)
		e.logger.Warn("Operation failed, backing off", map[string]interface{}{
			"operation":    operation,
			"attempt":      attempt + 1,
			"max_attempts": policy.MaxAttempts,
			"delay":        delay.String(),
			"error":        err.Error(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", core.ErrMaxRetriesExceeded, policy.MaxAttempts, lastErr)
}
