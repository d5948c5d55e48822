package permit

import (
	"errors"
	"fmt"
	"time"
)

// ElementNotReadyError is returned when a portal element does not become
// visible within the configured timeout.
type ElementNotReadyError struct {
	ID      string
	Timeout time.Duration
	Err     error
}

func (e *ElementNotReadyError) Error() string {
	return fmt.Sprintf("element %q not visible within %s: %v", e.ID, e.Timeout, e.Err)
}

func (e *ElementNotReadyError) Unwrap() error { return e.Err }

// ExpirationParseError is returned when the expiration label does not match
// the portal's date format. A permit has usually been issued by then.
type ExpirationParseError struct {
	Text string
	Err  error
}

func (e *ExpirationParseError) Error() string {
	return fmt.Sprintf("cannot parse permit expiration %q: %v", e.Text, e.Err)
}

func (e *ExpirationParseError) Unwrap() error { return e.Err }

// ErrExpiredPermit means the portal issued a permit that has already expired.
var ErrExpiredPermit = errors.New("parking permit has already expired")

// ArtifactError reports a screenshot that could not be written or removed.
type ArtifactError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("screenshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// errArtifactMissing is the cause of an ArtifactError when an ephemeral
// screenshot is gone before it is deleted.
var errArtifactMissing = errors.New("file does not exist")
