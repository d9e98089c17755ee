package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Chromedp renders pages through the DevTools protocol. Tabs share one
// browser process; every render opens and closes its own tab.
type Chromedp struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	opts          *Options
	slots         *slots
	logger        *slog.Logger
}

func NewChromedp(opts *Options, logger *slog.Logger) (*Chromedp, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	if opts.ProxyServer != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.ProxyServer))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser now so launch failures surface at construction.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Chromedp{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		opts:          opts,
		slots:         newSlots(opts.PoolSize),
		logger:        logger.With("component", "browser", "engine", EngineChromedp),
	}, nil
}

func (c *Chromedp) Render(ctx context.Context, url string) (string, error) {
	if err := c.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer c.slots.release()

	tabCtx, closeTab := chromedp.NewContext(c.browserCtx)
	defer closeTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, c.opts.Timeout+c.opts.SettleDelay)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	headers := network.Headers{"Accept-Language": c.opts.AcceptLanguage}
	for k, v := range c.opts.ExtraHeaders {
		headers[k] = v
	}

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(c.opts.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to render page: %w", err)
	}

	c.logger.Debug("page rendered", "url", url, "bytes", len(html))
	return html, nil
}

func (c *Chromedp) Close() error {
	c.slots.close()
	c.browserCancel()
	c.allocCancel()
	return nil
}
