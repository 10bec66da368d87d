package httpx

import (
	"context"
	"errors"
	"time"
)

// ErrPollExhausted is returned by Poll when the attempt or time budget runs out.
var ErrPollExhausted = errors.New("poll budget exhausted")

// PollPolicy bounds a status-polling loop. A Multiplier of 1 gives a fixed interval.
// At least one of MaxAttempts or Timeout must be positive; Poll refuses to loop unbounded.
type PollPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
	Timeout     time.Duration
}

// Poll calls check until it reports done, returns an error, or the policy budget runs out.
// check receives the 1-based attempt number. ErrPollExhausted means the policy's own budget
// ran out; when the caller's ctx ends first its error is returned instead.
func Poll(ctx context.Context, p PollPolicy, check func(ctx context.Context, attempt int) (bool, error)) error {
	if p.MaxAttempts <= 0 && p.Timeout <= 0 {
		return errors.New("poll policy requires MaxAttempts or Timeout")
	}
	pollCtx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	stopped := func(err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.Timeout > 0 && pollCtx.Err() != nil {
			return ErrPollExhausted
		}
		return err
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := p.Initial
	for attempt := 1; p.MaxAttempts <= 0 || attempt <= p.MaxAttempts; attempt++ {
		done, err := check(pollCtx, attempt)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return stopped(err)
			}
			return err
		}
		if done {
			return nil
		}
		if p.MaxAttempts > 0 && attempt == p.MaxAttempts {
			break
		}
		if err := Sleep(pollCtx, wait); err != nil {
			return stopped(err)
		}
		next := time.Duration(float64(wait) * mult)
		if p.Max > 0 && next > p.Max {
			next = p.Max
		}
		wait = next
	}
	return ErrPollExhausted
}
