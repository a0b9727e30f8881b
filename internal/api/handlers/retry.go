package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/hackernews-be/internal/apperr"
	"github.com/sethvargo/go-retry"
)

const retryBase = 50 * time.Millisecond

// Retrier re-runs read-only operations that fail with DataUnavailable,
// backing off exponentially up to a fixed number of retries.
type Retrier struct {
	maxRetries uint64
	base       time.Duration
}

// NewRetrier creates a Retrier. Zero retries runs the operation once.
func NewRetrier(maxRetries int) Retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return Retrier{maxRetries: uint64(maxRetries), base: retryBase}
}

// Do runs fn, retrying while it returns a DataUnavailable error. If ctx ends
// while waiting to retry, the result is still DataUnavailable.
func (r Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.base))
	var last error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && errors.Is(err, apperr.ErrDataUnavailable) {
			last = err
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil && ctx.Err() != nil && !errors.Is(err, apperr.ErrDataUnavailable) {
		if last != nil {
			return last
		}
		return apperr.Wrap(apperr.DataUnavailable, "data store unavailable", err)
	}
	return err
}
