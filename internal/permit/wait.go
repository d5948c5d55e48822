package permit

import (
	"context"
	"errors"
	"time"
)

// WaitFor blocks until the element is visible, for at most timeout. It never
// retries: a timeout is an ElementNotReadyError. Cancellation of ctx itself is
// returned unwrapped.
func WaitFor(ctx context.Context, page Page, timeout time.Duration, id string) (Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := page.WaitVisible(waitCtx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ElementNotReadyError{ID: id, Timeout: timeout, Err: err}
	}
	return el, nil
}

// Act runs fn against the element id with the same bound as WaitFor. An
// element that goes away after it became visible makes fn block, and that
// ends in an ElementNotReadyError at the deadline. Other errors from fn are
// returned as is.
func Act(ctx context.Context, timeout time.Duration, id string, fn func(ctx context.Context) error) error {
	actCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(actCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded) || actCtx.Err() != nil:
		return &ElementNotReadyError{ID: id, Timeout: timeout, Err: err}
	default:
		return err
	}
}
