package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopermit/internal/config"
)

// Manager launches browser sessions from the browser config.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// NewManager creates a Manager. No browser is started until NewSession.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger.Named("browser_manager")}
}

// NewSession starts a fresh Chrome process with a single tab. The process
// lives until the session is closed or ctx is canceled.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(m.cfg)...)

	sugar := m.logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run on a fresh context launches the browser. It must not be
	// given a deadline or the browser would die with it.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.logger.Info("Browser session started.", zap.Bool("headless", m.cfg.Headless))
	return newSession(tabCtx, tabCancel, allocCancel, m.logger), nil
}
