// Package browser drives a real Chrome over the DevTools protocol. It is
// the only component that touches the live page; everything above it
// works on parsed snapshots.
package browser

import (
	"context"
	"os"
	"sync"

	"github.com/chromedp/chromedp"

	"tweetlens/pkg/log"
)

// Pool manages a single Chrome process and serializes tab usage: one
// scan holds the one tab for its whole window, which doubles as
// backpressure on the scan API.
type Pool struct {
	allocCtx context.Context
	ctx      context.Context
	cancel   context.CancelFunc
	opts     []chromedp.ExecAllocatorOption
	log      *log.Logger

	mu     sync.Mutex
	tabSem chan struct{}
}

// NewPool starts Chrome with exactly one tab allowed at a time.
func NewPool(options ...chromedp.ExecAllocatorOption) (*Pool, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-domain-reliability", true),
		chromedp.Flag("disable-features", "Translate,BackForwardCache"),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-site-isolation-trials", true),
	)
	opts = append(opts, options...)

	logger := log.Default().With("component", "browser")

	// Explicit Chrome/Chromium path (systemd-safe).
	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		logger.Info("using custom chrome path", "path", chromePath)
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	p := &Pool{
		opts:   opts,
		log:    logger,
		tabSem: make(chan struct{}, 1), // HARD LIMIT: 1 tab
	}
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

// start initializes or restarts the Chrome process.
func (p *Pool) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), p.opts...)
	ctx, _ := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return err
	}

	p.allocCtx = allocCtx
	p.ctx = ctx
	p.cancel = cancel
	p.log.Info("chrome started")
	return nil
}

// WithTab executes fn with exclusive access to a browser tab, waiting
// for the slot while respecting ctx.
func (p *Pool) WithTab(ctx context.Context, fn func(tabCtx context.Context) error) error {
	select {
	case p.tabSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.tabSem }()

	tabCtx, tabCancel, err := p.acquireTab()
	if err != nil {
		return err
	}
	defer tabCancel()

	return fn(tabCtx)
}

// acquireTab creates a new tab with a health check, restarting Chrome
// once if the browser has died underneath us.
func (p *Pool) acquireTab() (context.Context, context.CancelFunc, error) {
	p.mu.Lock()
	tabCtx, tabCancel := chromedp.NewContext(p.ctx)
	p.mu.Unlock()

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		p.log.Warn("tab failed, restarting chrome", "error", err)
		if restartErr := p.start(); restartErr != nil {
			return nil, nil, restartErr
		}
		p.mu.Lock()
		tabCtx, tabCancel = chromedp.NewContext(p.ctx)
		p.mu.Unlock()
	}
	return tabCtx, tabCancel, nil
}

// Close shuts the browser down completely.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.log.Info("chrome stopped")
	}
}
