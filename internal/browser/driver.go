// Package browser wraps a single headless-browser session used by one
// Worker Loop task (spec.md §4.8's "driver path"). Adapted from the
// launch/connect/incognito-page lifecycle in theRebelliousNerd-codenerd's
// internal/browser/session_manager.go, narrowed to the one operation the
// worker actually needs: navigate and read back the page.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Driver owns one browser process and one incognito page, reused across
// navigations by a single worker task.
type Driver struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
}

// Launch starts a headless Chrome instance (or connects to debuggerURL if
// non-empty) and opens a blank incognito page.
func Launch(debuggerURL string, navigationTimeout time.Duration) (*Driver, error) {
	controlURL := debuggerURL
	if controlURL == "" {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("browser: incognito context: %w", err)
	}
	page, err := incognito.Page(rod.NewPage())
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("browser: open page: %w", err)
	}

	return &Driver{browser: browser, page: page, timeout: navigationTimeout}, nil
}

// Navigate loads rawURL and returns the post-navigation URL (which
// reflects any redirects the browser followed) together with the
// rendered page's HTML.
func (d *Driver) Navigate(ctx context.Context, rawURL string) (finalURL, html string, err error) {
	p := d.page.Context(ctx).Timeout(d.timeout)
	if err := p.Navigate(rawURL); err != nil {
		return "", "", fmt.Errorf("browser: navigate %s: %w", rawURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", "", fmt.Errorf("browser: wait load %s: %w", rawURL, err)
	}

	info, err := p.Info()
	if err != nil {
		return "", "", fmt.Errorf("browser: page info: %w", err)
	}
	body, err := p.HTML()
	if err != nil {
		return "", "", fmt.Errorf("browser: read html: %w", err)
	}
	return info.URL, body, nil
}

// Close shuts down the browser process.
func (d *Driver) Close() error {
	if d.browser == nil {
		return nil
	}
	return d.browser.Close()
}
