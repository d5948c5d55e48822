package permit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ExpirationLayout is how the portal prints the expiration, e.g. "2/22/2024 6:52:05 PM".
const ExpirationLayout = "1/2/2006 3:04:05 PM"

// ParseExpiration parses the portal's expiration label in the local time zone.
func ParseExpiration(text string) (time.Time, error) {
	t, err := time.ParseInLocation(ExpirationLayout, strings.TrimSpace(text), time.Local)
	if err != nil {
		return time.Time{}, &ExpirationParseError{Text: text, Err: err}
	}
	return t, nil
}

// ReadExpiration waits for the expiration label that appears after submit
// and parses it.
func ReadExpiration(ctx context.Context, page Page, timeout time.Duration) (time.Time, error) {
	el, err := WaitFor(ctx, page, timeout, ExpirationLabelID)
	if err != nil {
		return time.Time{}, err
	}
	var text string
	err = Act(ctx, timeout, ExpirationLabelID, func(ctx context.Context) (err error) {
		text, err = el.Text(ctx)
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("reading %s: %w", ExpirationLabelID, err)
	}
	return ParseExpiration(text)
}
