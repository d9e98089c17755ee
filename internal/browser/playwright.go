package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Playwright renders pages in one Chromium process. Each render gets its
// own browser context and page, closed on every path.
type Playwright struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	slots   *slots
	logger  *slog.Logger
}

func NewPlaywright(opts *Options, logger *slog.Logger) (*Playwright, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Playwright{
		pw:      pw,
		browser: browser,
		opts:    opts,
		slots:   newSlots(opts.PoolSize),
		logger:  logger.With("component", "browser", "engine", EnginePlaywright),
	}, nil
}

func (p *Playwright) Render(ctx context.Context, url string) (string, error) {
	if err := p.slots.acquire(ctx); err != nil {
		return "", err
	}
	defer p.slots.release()

	headers := map[string]string{"Accept-Language": p.opts.AcceptLanguage}
	for k, v := range p.opts.ExtraHeaders {
		headers[k] = v
	}

	bctx, err := p.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(p.opts.UserAgent),
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String(p.opts.Locale),
		TimezoneId:        playwright.String(p.opts.TimezoneID),
		Viewport: &playwright.Size{
			Width:  p.opts.ViewportWidth,
			Height: p.opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create browser context: %w", err)
	}
	defer bctx.Close()

	// Closing the context aborts an in-flight navigation.
	stop := context.AfterFunc(ctx, func() { bctx.Close() })
	defer stop()

	err = bctx.Route("**/*", func(route playwright.Route) {
		switch route.Request().ResourceType() {
		case "image", "font", "media":
			route.Abort()
		default:
			route.Continue()
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to install route filter: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	deadline := time.Now().Add(p.opts.Timeout)
	timeout := float64(p.opts.Timeout.Milliseconds())
	page.SetDefaultTimeout(timeout)

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeout),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to navigate: %w", err)
	}
	if resp != nil && resp.Status() >= 400 {
		return "", fmt.Errorf("navigation returned status %d", resp.Status())
	}

	// Some storefronts never go network idle. An expired wait is not a failure.
	if remaining := time.Until(deadline); remaining > 0 {
		err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateNetworkidle,
			Timeout: playwright.Float(float64(remaining.Milliseconds())),
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !errors.Is(err, playwright.ErrTimeout) {
				p.logger.Debug("network idle wait failed", "url", url, "error", err)
			}
		}
	}

	if err := settle(ctx, p.opts.SettleDelay); err != nil {
		return "", err
	}

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	p.logger.Debug("page rendered", "url", url, "bytes", len(html))
	return html, nil
}

func (p *Playwright) Close() error {
	p.slots.close()

	var errs []error

	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if p.pw != nil {
		if err := p.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
