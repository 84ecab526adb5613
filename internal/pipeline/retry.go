package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	config "github.com/vigil-data/vigil/configs"
	"github.com/vigil-data/vigil/internal/common"
)

// RetryPolicy retries transient faults with backoff, a bounded number of
// times. The sleep function is injectable so backoff is testable without real
// delays.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(time.Duration)
}

// NewRetryPolicy builds the default policy: exponential backoff doubling from
// the configured base delay.
func NewRetryPolicy(cfg config.PipelineConfig) RetryPolicy {
	base := time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
	if base <= 0 {
		base = 2 * time.Second
	}
	return RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		Backoff: func(attempt int) time.Duration {
			return base << (attempt - 1)
		},
		Sleep: time.Sleep,
	}
}

// Do runs fn, retrying while it fails with a retryable error, up to
// MaxAttempts total attempts. Non-retryable errors are surfaced immediately.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := p.Backoff(attempt - 1)
			log.Warn().Str("op", op).Int("attempt", attempt).Dur("backoff", delay).Err(err).
				Msg("retrying after transient error")
			p.Sleep(delay)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn()
		if err == nil || !common.Retryable(err) {
			return err
		}
	}
	return err
}
