package crawler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
)

// Badge dimension tolerance around the canonical 88x31 button (spec.md
// §4.8 step 4: "a ±2 nudge around 88×31").
const (
	minBadgeWidth  = 86
	maxBadgeWidth  = 90
	minBadgeHeight = 29
	maxBadgeHeight = 33
)

// ValidatedBadge is a badge image that passed dimension validation,
// carrying its exact bytes and their hex SHA-256 digest.
type ValidatedBadge struct {
	Bytes []byte
	Hash  string
}

// ValidateBadgeImage GETs imageURL with client, decodes it, and accepts it
// iff its dimensions fall within the badge tolerance. ok is false (with no
// error) for any image outside tolerance or any non-image content —
// spec.md's BadgeMismatch is "skipped silently," not reported.
func ValidateBadgeImage(ctx context.Context, client *http.Client, userAgent, imageURL string) (badge ValidatedBadge, ok bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return ValidatedBadge{}, false, fmt.Errorf("badge validate: build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return ValidatedBadge{}, false, fmt.Errorf("badge validate: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ValidatedBadge{}, false, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ValidatedBadge{}, false, fmt.Errorf("badge validate: read body: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ValidatedBadge{}, false, nil
	}
	if cfg.Width < minBadgeWidth || cfg.Width > maxBadgeWidth ||
		cfg.Height < minBadgeHeight || cfg.Height > maxBadgeHeight {
		return ValidatedBadge{}, false, nil
	}

	sum := sha256.Sum256(data)
	return ValidatedBadge{Bytes: data, Hash: hex.EncodeToString(sum[:])}, true, nil
}
