// Package wait polls browser conditions until they hold or a preset timeout
// expires.
package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/w3automaton/internal/browser"
	k8swait "k8s.io/apimachinery/pkg/util/wait"
)

const (
	DefaultTimeout  = 20 * time.Second
	DefaultInterval = 500 * time.Millisecond
)

// Condition reports whether the awaited state has been reached. Errors that
// mean "not there yet" (see browser.IsNotYet) keep the poll going; any other
// error aborts it.
type Condition func(ctx context.Context) (bool, error)

// Waiter polls conditions with a fixed timeout and interval.
type Waiter struct {
	Timeout  time.Duration
	Interval time.Duration
}

// New returns a Waiter, substituting defaults for non-positive values.
func New(timeout, interval time.Duration) Waiter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Waiter{Timeout: timeout, Interval: interval}
}

// WithTimeout returns a copy of w with a different timeout. The poll interval
// is capped at the new timeout so short waits still poll more than once.
func (w Waiter) WithTimeout(d time.Duration) Waiter {
	w.Timeout = d
	if w.Interval > d {
		w.Interval = d / 4
		if w.Interval <= 0 {
			w.Interval = d
		}
	}
	return w
}

// Until checks cond immediately and then every interval until it returns
// true. When the timeout expires the result matches browser.ErrTimeout and
// names what was awaited. Cancelling ctx returns the context error.
func (w Waiter) Until(ctx context.Context, what string, cond Condition) error {
	var lastNotYet error
	poll := func(ctx context.Context) (bool, error) {
		done, err := cond(ctx)
		if err != nil {
			if browser.IsNotYet(err) {
				lastNotYet = err
				return false, nil
			}
			// The poll deadline cut the driver call short.
			if ctx.Err() != nil {
				return false, nil
			}
			return false, err
		}
		return done, nil
	}

	err := k8swait.PollUntilContextTimeout(ctx, w.interval(), w.Timeout, true, poll)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if k8swait.Interrupted(err) {
		if lastNotYet != nil {
			return fmt.Errorf("%w after %s waiting for %s (last error: %v)", browser.ErrTimeout, w.Timeout, what, lastNotYet)
		}
		return fmt.Errorf("%w after %s waiting for %s", browser.ErrTimeout, w.Timeout, what)
	}
	return fmt.Errorf("waiting for %s: %w", what, err)
}

func (w Waiter) interval() time.Duration {
	if w.Interval <= 0 {
		return DefaultInterval
	}
	return w.Interval
}
