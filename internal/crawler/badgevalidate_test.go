package crawler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestValidateBadgeImageAcceptsCanonicalSize(t *testing.T) {
	data := encodePNG(t, 88, 31)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	badge, ok, err := ValidateBadgeImage(context.Background(), srv.Client(), "badgecrawler/1.0", srv.URL)
	if err != nil {
		t.Fatalf("ValidateBadgeImage: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for an 88x31 image")
	}
	sum := sha256.Sum256(data)
	if badge.Hash != hex.EncodeToString(sum[:]) {
		t.Errorf("hash mismatch: got %s", badge.Hash)
	}
}

func TestValidateBadgeImageAcceptsWithinTolerance(t *testing.T) {
	data := encodePNG(t, 90, 33)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	_, ok, err := ValidateBadgeImage(context.Background(), srv.Client(), "badgecrawler/1.0", srv.URL)
	if err != nil {
		t.Fatalf("ValidateBadgeImage: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for a 90x33 image (edge of tolerance)")
	}
}

func TestValidateBadgeImageRejectsWrongDimensions(t *testing.T) {
	data := encodePNG(t, 200, 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	_, ok, err := ValidateBadgeImage(context.Background(), srv.Client(), "badgecrawler/1.0", srv.URL)
	if err != nil {
		t.Fatalf("ValidateBadgeImage: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a 200x200 image")
	}
}

func TestValidateBadgeImageRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	_, ok, err := ValidateBadgeImage(context.Background(), srv.Client(), "badgecrawler/1.0", srv.URL)
	if err != nil {
		t.Fatalf("ValidateBadgeImage: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for non-image content")
	}
}

func TestValidateBadgeImageRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, ok, err := ValidateBadgeImage(context.Background(), srv.Client(), "badgecrawler/1.0", srv.URL)
	if err != nil {
		t.Fatalf("ValidateBadgeImage: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a 404 response")
	}
}
