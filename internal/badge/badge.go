// Package badge implements the Badge Blob Store from spec.md §4.9 and §6:
// content-addressed image bytes on disk, keyed by hex SHA-256 of their
// exact content.
package badge

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/cametumbling/badge-crawler/internal/apierr"
)

var sha256HexRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidHash reports whether s is a 64-char lowercase hex SHA-256 digest.
func ValidHash(s string) bool { return sha256HexRe.MatchString(s) }

// Store is a content-addressed filesystem blob store rooted at Dir.
type Store struct {
	Dir string
}

// New builds a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("badge store: create dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) path(hash string) string { return filepath.Join(s.Dir, hash) }

// Put writes data under hash, refusing to overwrite an existing blob
// (spec.md invariant 6: writes are idempotent and refuse overwrite).
func (s *Store) Put(hash string, data []byte) error {
	if !ValidHash(hash) {
		return apierr.BadInput("badge hash %q is not a 64-char lowercase hex sha256", hash)
	}

	path := s.path(hash)
	if _, err := os.Stat(path); err == nil {
		return apierr.Conflict("badge %s already exists", hash)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("badge store: stat %s: %w", hash, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("badge store: write temp file: %w", err)
	}
	// Atomic publish: rename into place. If another writer raced us to
	// the real path between the Stat above and here, the rename still
	// succeeds (POSIX rename replaces) and this write wins. Put does not
	// check that data hashes to hash.
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("badge store: publish %s: %w", hash, err)
	}
	return nil
}

// Get reads the blob for hash and sniffs its MIME type from content.
func (s *Store) Get(hash string) (data []byte, mime string, err error) {
	if !ValidHash(hash) {
		return nil, "", apierr.BadInput("badge hash %q is not a 64-char lowercase hex sha256", hash)
	}

	data, err = os.ReadFile(s.path(hash))
	if os.IsNotExist(err) {
		return nil, "", apierr.NotFound("badge %s not found", hash)
	}
	if err != nil {
		return nil, "", fmt.Errorf("badge store: read %s: %w", hash, err)
	}

	mime = http.DetectContentType(data)
	return data, mime, nil
}
