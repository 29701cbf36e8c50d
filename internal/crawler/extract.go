package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cametumbling/badge-crawler/internal/browser"
	"github.com/cametumbling/badge-crawler/internal/platform/htmlparser"
	"github.com/cametumbling/badge-crawler/internal/platform/httpclient"
)

// Extractor fetches rawURL and returns the redirect-resolved result URL
// plus every badge candidate found on the page (spec.md §4.8 step 4). One
// extraction implementation (htmlparser.ExtractBadgeCandidates) serves
// both the driver and direct-HTTP backends; only the page-fetch mechanics
// differ between the two Extractor implementations below.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (resultURL string, candidates []htmlparser.BadgeCandidate, err error)
}

// DriverExtractor extracts via a headless browser session.
type DriverExtractor struct {
	Driver *browser.Driver
}

func (d *DriverExtractor) Extract(ctx context.Context, rawURL string) (string, []htmlparser.BadgeCandidate, error) {
	resultURL, html, err := d.Driver.Navigate(ctx, rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("driver extract: %w", err)
	}
	candidates, err := htmlparser.ExtractBadgeCandidates(strings.NewReader(html))
	if err != nil {
		return "", nil, fmt.Errorf("driver extract: parse html: %w", err)
	}
	return resultURL, candidates, nil
}

// HTTPExtractor extracts by fetching the page directly with an
// httpclient.Client, for workers configured with no drivers (spec.md §6:
// direct-HTTP mode).
type HTTPExtractor struct {
	Client *httpclient.Client
}

func (h *HTTPExtractor) Extract(ctx context.Context, rawURL string) (string, []htmlparser.BadgeCandidate, error) {
	result, err := h.Client.Fetch(ctx, rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("http extract: %w", err)
	}
	if !isHTML(result.ContentType) {
		return result.FinalURL, nil, nil
	}
	candidates, err := htmlparser.ExtractBadgeCandidates(bytes.NewReader(result.Body))
	if err != nil {
		return "", nil, fmt.Errorf("http extract: parse html: %w", err)
	}
	return result.FinalURL, candidates, nil
}
