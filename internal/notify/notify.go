// Package notify delivers the permit screenshot to a chat channel through a
// short-lived bot session.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// BotSession is a chat bot connection. Open must block until the gateway
// reports ready and return the bot's identity.
type BotSession interface {
	Open(ctx context.Context) (identity string, err error)
	ResolveChannel(ctx context.Context, channelID string) (name string, err error)
	SendFile(ctx context.Context, channelID, name string, r io.Reader) error
	Close() error
}

// Dialer creates an unopened BotSession for token.
type Dialer func(token string) (BotSession, error)

// Stages of a dispatch, as reported in NotificationError.
const (
	StageDial     = "dial"
	StageOpen     = "open"
	StageResolve  = "resolve channel"
	StageSend     = "send"
	StageTeardown = "teardown"
)

// NotificationError reports the stage at which a dispatch failed.
type NotificationError struct {
	Stage string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed at %s: %v", e.Stage, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Dispatcher sends one file per call over a fresh bot session.
type Dispatcher struct {
	token     string
	channelID string
	timeout   time.Duration
	dial      Dialer
	fs        afero.Fs
	logger    *zap.Logger
}

// NewDispatcher creates a Dispatcher that posts to channelID. Each dispatch,
// teardown excepted, must finish within timeout. A nil dial uses DialDiscord.
func NewDispatcher(token, channelID string, timeout time.Duration, dial Dialer, fs afero.Fs, logger *zap.Logger) *Dispatcher {
	if dial == nil {
		dial = DialDiscord
	}
	return &Dispatcher{
		token:     token,
		channelID: channelID,
		timeout:   timeout,
		dial:      dial,
		fs:        fs,
		logger:    logger.Named("notify"),
	}
}

// Dispatch opens a session, sends the file at path to the channel and tears
// the session down before returning. Teardown runs on every path once the
// session was opened; its error is joined with any earlier one.
func (d *Dispatcher) Dispatch(ctx context.Context, path string) (err error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return &NotificationError{Stage: StageSend, Err: err}
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	sess, err := d.dial(d.token)
	if err != nil {
		return &NotificationError{Stage: StageDial, Err: err}
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			err = errors.Join(err, &NotificationError{Stage: StageTeardown, Err: closeErr})
		}
	}()

	identity, err := sess.Open(ctx)
	if err != nil {
		return &NotificationError{Stage: StageOpen, Err: err}
	}
	d.logger.Info("Logged in.", zap.String("bot", identity))

	channel, err := sess.ResolveChannel(ctx, d.channelID)
	if err != nil {
		return &NotificationError{Stage: StageResolve, Err: err}
	}

	d.logger.Info("Sending PNG file to channel.", zap.String("path", path), zap.String("channel", channel))
	if err := sess.SendFile(ctx, d.channelID, filepath.Base(path), f); err != nil {
		return &NotificationError{Stage: StageSend, Err: err}
	}

	d.logger.Info("Logging off.", zap.String("bot", identity))
	return nil
}
