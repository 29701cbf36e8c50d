package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/cametumbling/badge-crawler/internal/ingest"
	"github.com/cametumbling/badge-crawler/internal/robots"
)

// pollBackoff and errorBackoff are the two sleep durations the Worker Loop
// uses between iterations (spec.md §4.8 steps 2 and 5).
const (
	pollBackoff  = 1 * time.Second
	errorBackoff = 5 * time.Second
)

// Task runs one Worker Loop iteration-by-iteration against a single
// coordinator, using one Extractor (driver- or HTTP-backed) and one robots
// gate (spec.md §4.8).
type Task struct {
	CoordinatorHost string
	APIKey          string
	UserAgent       string
	HTTPClient      *http.Client
	Robots          *robots.Gate
	Extractor       Extractor
	Log             *zap.Logger
}

// Run executes the Worker Loop until ctx is cancelled. It never returns an
// error: every failure is logged and backed off, per spec.md §4.8's
// "workers never crash the process on a single-iteration failure."
func (t *Task) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rawURL, ok, err := t.fetchWork(ctx)
		if err != nil {
			t.Log.Warn("get work failed", zap.Error(err))
			if !sleepCtx(ctx, errorBackoff) {
				return
			}
			continue
		}
		if !ok {
			if !sleepCtx(ctx, pollBackoff) {
				return
			}
			continue
		}

		report := t.processURL(ctx, rawURL)
		if err := t.postWork(ctx, report); err != nil {
			t.Log.Warn("post work failed", zap.String("url", rawURL), zap.Error(err))
			if !sleepCtx(ctx, errorBackoff) {
				return
			}
			continue
		}

		if !sleepCtx(ctx, pollBackoff) {
			return
		}
	}
}

// sleepCtx sleeps for d, returning false if ctx was cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Task) fetchWork(ctx context.Context) (rawURL string, ok bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.CoordinatorHost+"/work", nil)
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	req.Header.Set("User-Agent", t.UserAgent)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return "", false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read body: %w", err)
	}
	return string(body), true, nil
}

// processURL runs steps 3-4 of the Worker Loop: the robots gate, then
// extraction and badge validation. It never returns an error; any failure
// in extraction is reported as success=false, matching spec.md's treatment
// of robots denial (the only case the spec gives an explicit shape for).
func (t *Task) processURL(ctx context.Context, rawURL string) ingest.WorkReport {
	if !t.Robots.Allowed(ctx, rawURL) {
		return ingest.WorkReport{OrigURL: rawURL, ResultURL: rawURL, Success: false, Links: nil}
	}

	resultURL, candidates, err := t.Extractor.Extract(ctx, rawURL)
	if err != nil {
		t.Log.Info("extract failed", zap.String("url", rawURL), zap.Error(err))
		return ingest.WorkReport{OrigURL: rawURL, ResultURL: rawURL, Success: false, Links: nil}
	}

	base, err := url.Parse(resultURL)
	if err != nil {
		return ingest.WorkReport{OrigURL: rawURL, ResultURL: rawURL, Success: false, Links: nil}
	}
	origin, err := url.Parse(rawURL)
	if err != nil {
		return ingest.WorkReport{OrigURL: rawURL, ResultURL: rawURL, Success: false, Links: nil}
	}

	var links []ingest.Link
	for _, c := range candidates {
		// href resolves against the post-navigation result URL; src
		// resolves against the pre-navigation origin URL (spec.md §4.8
		// step 4 distinguishes the two bases).
		to, ok := Sanitize(c.Href, base)
		if !ok {
			continue
		}
		src, ok := Sanitize(c.Src, origin)
		if !ok {
			continue
		}

		badge, ok, err := ValidateBadgeImage(ctx, t.HTTPClient, t.UserAgent, src)
		if err != nil {
			t.Log.Info("badge fetch failed", zap.String("image", src), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		if err := t.uploadBadge(ctx, badge); err != nil {
			t.Log.Info("badge upload failed", zap.String("hash", badge.Hash), zap.Error(err))
			continue
		}

		links = append(links, ingest.Link{To: to, Image: src, ImageHash: badge.Hash})
	}

	return ingest.WorkReport{OrigURL: rawURL, ResultURL: resultURL, Success: true, Links: links}
}

// uploadBadge POSTs the badge's bytes to the coordinator. A 409 (already
// present) is not an error (spec.md §4.8 step 4).
func (t *Task) uploadBadge(ctx context.Context, badge ValidatedBadge) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.CoordinatorHost+"/badge/"+badge.Hash, bytes.NewReader(badge.Bytes))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	req.Header.Set("User-Agent", t.UserAgent)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (t *Task) postWork(ctx context.Context, report ingest.WorkReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.CoordinatorHost+"/work", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.APIKey)
	req.Header.Set("User-Agent", t.UserAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
