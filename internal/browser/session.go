package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopermit/internal/permit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Session is one Chrome tab. It implements permit.Page.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ permit.Page = (*Session)(nil)

func newSession(ctx context.Context, cancel, allocCancel context.CancelFunc, logger *zap.Logger) *Session {
	return &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		logger:      logger.Named("session"),
	}
}

// run executes actions in the tab, bounded by the caller's ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	actionCtx, actionCancel := CombineContext(s.ctx, ctx)
	defer actionCancel()
	return chromedp.Run(actionCtx, actions...)
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the element with id is visible.
func (s *Session) WaitVisible(ctx context.Context, id string) (permit.Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(id, &nodes, chromedp.NodeVisible, chromedp.ByID)); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no node with id %s", id)
	}
	return &element{session: s, id: id, node: nodes[0]}, nil
}

// FullScreenshot captures the entire page as PNG.
func (s *Session) FullScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 keeps the capture lossless PNG.
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close shuts the browser down. It is safe to call more than once; later
// calls return the result of the first. If ctx ends before Chrome exits
// gracefully the process is killed.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session.")

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		case <-ctx.Done():
			s.closeErr = fmt.Errorf("browser did not exit in time: %w", ctx.Err())
		}

		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

// element is the node that WaitVisible found. Actions target that node, so an
// element replaced by a postback is not silently swapped for its successor.
type element struct {
	session *Session
	id      string
	node    *cdp.Node
}

func (e *element) nodeIDs() []cdp.NodeID { return []cdp.NodeID{e.node.NodeID} }

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.session.run(ctx, chromedp.SendKeys(e.nodeIDs(), text, chromedp.ByNodeID))
}

func (e *element) Click(ctx context.Context) error {
	return e.session.run(ctx, chromedp.Click(e.nodeIDs(), chromedp.ByNodeID))
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.session.run(ctx, chromedp.Text(e.nodeIDs(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

const selectByTextJS = `(function(id, text) {
	const el = document.getElementById(id);
	if (!el || !el.options) { return false; }
	for (const opt of el.options) {
		if (opt.text === text) {
			el.value = opt.value;
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		}
	}
	return false;
})(%s, %s)`

// SelectByText picks the option whose label equals text exactly and fires
// change so that postback handlers run.
func (e *element) SelectByText(ctx context.Context, text string) error {
	if e.node.NodeName != "SELECT" {
		return fmt.Errorf("%s is a %s, not a SELECT", e.id, e.node.NodeName)
	}
	idLit, err := json.MarshalToString(e.id)
	if err != nil {
		return err
	}
	textLit, err := json.MarshalToString(text)
	if err != nil {
		return err
	}

	var found bool
	if err := e.session.run(ctx, chromedp.Evaluate(fmt.Sprintf(selectByTextJS, idLit, textLit), &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no option %q in %s", text, e.id)
	}
	return nil
}
