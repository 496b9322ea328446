package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy controls redelivery of a failed dispatch. The zero value and
// MaxAttempts of 1 mean a single attempt: a missed notification is
// preferred over a duplicate one.
type RetryPolicy struct {
	MaxAttempts    uint
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

func (p RetryPolicy) enabled() bool {
	return p.MaxAttempts > 1
}

// do runs fn once, or under exponential backoff when retries are enabled.
// Errors wrapped with backoff.Permanent stop the retries.
func (p RetryPolicy) do(ctx context.Context, fn func() error, notify func(error, time.Duration)) error {
	if !p.enabled() {
		err := fn()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Unwrap()
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		policy.InitialInterval = p.InitialBackoff
		policy.MaxInterval = p.InitialBackoff * 10
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(p.MaxAttempts),
	}
	if p.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsed))
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(notify))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, opts...)
	return err
}
