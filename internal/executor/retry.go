package executor

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
)

const defaultMaxTries = 4

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// retryPolicy decides whether a failed attempt may be repeated
type retryPolicy func(error) bool

// onTransient retries rate limits, 5xx and network failures
func onTransient(err error) bool {
	return vcs.IsRetryable(err)
}

// onRateLimit retries only failures where the request was refused before
// being applied
func onRateLimit(err error) bool {
	return errors.Is(err, vcs.ErrRateLimited)
}

// retry runs fn until it succeeds, policy rejects the error, or the tries
// run out. fn receives the 1-based attempt number.
func (e *Executor) retry(ctx context.Context, op string, policy retryPolicy, fn func(attempt int) error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn(attempt)
		switch {
		case err == nil:
			return struct{}{}, nil
		case !policy(err):
			return struct{}{}, backoff.Permanent(err)
		default:
			return struct{}{}, err
		}
	},
		backoff.WithBackOff(e.newBackOff()),
		backoff.WithMaxTries(e.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logging.Warn("Retrying GitHub call",
				"operation", op,
				"attempt", attempt,
				"next_in", next,
				"error", err)
		}),
	)
	return err
}
