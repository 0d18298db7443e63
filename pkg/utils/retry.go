package utils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryOptions contains configuration for retry behavior.
type RetryOptions struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

// GetPollRetryOptions returns retry options for a periodic poll loop that keeps failing.
// The loop never gives up on its own, so there is no elapsed time or retry limit.
func GetPollRetryOptions(initial, maxInterval time.Duration) RetryOptions {
	return RetryOptions{
		MaxElapsedTime:  0,
		InitialInterval: initial,
		MaxInterval:     maxInterval,
		MaxRetries:      0,
	}
}

// NewBackOff builds an exponential backoff policy from the provided options.
// A zero MaxRetries means unlimited retries.
func NewBackOff(opts RetryOptions) backoff.BackOff {
	b := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	)

	if opts.MaxRetries == 0 {
		return b
	}

	return backoff.WithMaxRetries(b, opts.MaxRetries)
}
