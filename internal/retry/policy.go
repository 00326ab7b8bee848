// Package retry implements backoff policies for operations that fail
// transiently, such as connecting to an event broker.
package retry

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoff
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // retries after the first failure
}

// DefaultPolicy returns exponential backoff from 250ms capped at 5s with
// two retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Initial: 250 * time.Millisecond, Max: 5 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from configuration; zero or unknown values
// fall back to defaults.
func NewPolicy(mode config.RetryBackoff, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	switch mode {
	case config.RetryBackoffFixed, config.RetryBackoffLinear, config.RetryBackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the wait before the given retry (1-based).
func (p Policy) Delay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		if retry > 30 {
			return p.Max
		}
		d = p.Initial << (retry - 1)
	default:
		d = time.Duration(retry) * p.Initial
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Do calls fn until it succeeds, the retries are exhausted or ctx ends.
// Classified errors that forbid retrying stop immediately. The last error
// is returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !retryable(err) {
			return err
		}
		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func retryable(err error) bool {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.CanRetry()
	}
	return true
}
