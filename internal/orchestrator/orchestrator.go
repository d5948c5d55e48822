// Package orchestrator runs one permit renewal from browser launch to the
// scheduling decision.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopermit/internal/config"
	"github.com/xkilldash9x/autopermit/internal/permit"
	"github.com/xkilldash9x/autopermit/internal/schedule"
)

const cleanupTimeout = 10 * time.Second

// Session is a live browser tab on the portal.
type Session interface {
	permit.Page
	Navigate(ctx context.Context, url string) error
	Close(ctx context.Context) error
}

// SessionFactory opens a fresh browser session.
type SessionFactory func(ctx context.Context) (Session, error)

// Dispatcher delivers the screenshot at path.
type Dispatcher interface {
	Dispatch(ctx context.Context, path string) error
}

// Renewer arms the next run at the permit's expiration.
type Renewer interface {
	Renew(ctx context.Context, expiration time.Time) (schedule.Task, error)
}

// Deps are the components a run needs. Dispatcher and Renewer are only
// used when their feature is enabled in the config.
type Deps struct {
	Sessions   SessionFactory
	Artifacts  *permit.ArtifactManager
	Dispatcher Dispatcher
	Renewer    Renewer
}

// Result describes a completed run.
type Result struct {
	Expiration time.Time
	// Artifact is the saved screenshot, nil unless it was kept.
	Artifact *permit.Artifact
	Notified bool
	// Task is the registered renewal, nil when renewal is disabled.
	Task *schedule.Task
}

// Orchestrator runs the permit lifecycle for one immutable config.
type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	form   *permit.FormDriver
	logger *zap.Logger
}

// New checks that every dependency required by cfg is present.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil || logger == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if (cfg.SaveScreenshotOfPermit || cfg.SendScreenshotInDiscord) && deps.Artifacts == nil {
		return nil, fmt.Errorf("screenshots are enabled but no artifact manager was provided")
	}
	if cfg.SendScreenshotInDiscord && deps.Dispatcher == nil {
		return nil, fmt.Errorf("notification is enabled but no dispatcher was provided")
	}
	if cfg.AutomaticallyRenewPermit && deps.Renewer == nil {
		return nil, fmt.Errorf("renewal is enabled but no renewer was provided")
	}
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		form:   permit.NewFormDriver(cfg, logger),
		logger: logger.Named("orchestrator"),
	}, nil
}

// Run requests a permit and performs the enabled follow-ups. A failure up to
// and including the notification ends the run. Once the permit is captured,
// a browser that does not close cleanly and an ephemeral screenshot that is
// already gone after a successful send do not stop renewal: Run returns the
// Result together with those errors. The browser session is released on every
// path; cleanup errors are joined with the primary one.
func (o *Orchestrator) Run(ctx context.Context) (res *Result, err error) {
	sess, err := o.deps.Sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	released := false
	release := func() error {
		released = true
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		return sess.Close(cleanupCtx)
	}
	defer func() {
		if released {
			return
		}
		if cerr := release(); cerr != nil {
			o.logger.Warn("Browser session did not close cleanly.", zap.Error(cerr))
			err = errors.Join(err, cerr)
		}
	}()

	if err := sess.Navigate(ctx, o.cfg.PortalURL); err != nil {
		return nil, err
	}
	if err := o.form.Fill(ctx, sess); err != nil {
		return nil, err
	}

	expiration, err := permit.ReadExpiration(ctx, sess, o.cfg.ElementTimeout())
	if err != nil {
		return nil, err
	}
	o.logger.Info("Parking permit issued.", zap.Time("expiration", expiration))
	res = &Result{Expiration: expiration}

	// A kept screenshot doubles as the one that is sent; otherwise a
	// temporary one is taken just for sending.
	var artifact *permit.Artifact
	switch {
	case o.cfg.SaveScreenshotOfPermit:
		artifact, err = o.deps.Artifacts.Capture(ctx, sess, o.deps.Artifacts.NewPath(), true)
		res.Artifact = artifact
	case o.cfg.SendScreenshotInDiscord:
		artifact, err = o.deps.Artifacts.Capture(ctx, sess, o.deps.Artifacts.NewPath(), false)
	}
	if err != nil {
		return nil, err
	}

	// Errors from here on are reported after renewal is armed.
	var surfaced []error

	// Nothing below needs the browser.
	if cerr := release(); cerr != nil {
		o.logger.Error("Browser session did not close cleanly.", zap.Error(cerr))
		surfaced = append(surfaced, cerr)
	}

	if o.cfg.SendScreenshotInDiscord {
		dispatchErr := o.deps.Dispatcher.Dispatch(ctx, artifact.Path)
		discardErr := o.deps.Artifacts.Discard(artifact)
		if dispatchErr != nil {
			return nil, errors.Join(append([]error{dispatchErr, discardErr}, surfaced...)...)
		}
		res.Notified = true
		if discardErr != nil {
			surfaced = append(surfaced, discardErr)
		}
	}

	if !o.cfg.AutomaticallyRenewPermit {
		o.logger.Info("Automatic renewal is disabled; not scheduling another run.")
		return res, errors.Join(surfaced...)
	}
	task, err := o.deps.Renewer.Renew(ctx, expiration)
	if err != nil {
		return nil, errors.Join(append([]error{err}, surfaced...)...)
	}
	res.Task = &task
	return res, errors.Join(surfaced...)
}
