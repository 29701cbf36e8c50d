package graph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cametumbling/badge-crawler/internal/store"
)

// Model exposes the named entity operations spec.md §4.3 requires, backed
// by a store.Adapter. All URL/domain arguments are already-encoded
// fragments; callers (queue, ingest, admission) own the codec step.
type Model struct {
	db store.Adapter
}

// New builds a Model over the given store adapter (or transaction).
func New(db store.Adapter) *Model { return &Model{db: db} }

// PutPage adds an encoded URL to pages and initializes its metadata with
// lastScraped=0, iff it is not already known. Returns whether it was newly
// added.
func (m *Model) PutPage(ctx context.Context, encodedURL string) (bool, error) {
	known, err := m.db.SIsMember(ctx, Pages(), encodedURL)
	if err != nil {
		return false, fmt.Errorf("check page membership: %w", err)
	}
	if known {
		return false, nil
	}
	if err := m.db.SAdd(ctx, Pages(), encodedURL); err != nil {
		return false, fmt.Errorf("add page: %w", err)
	}
	if err := m.db.HSet(ctx, PageData(encodedURL), map[string]string{"lastScraped": "0"}); err != nil {
		return false, fmt.Errorf("init page data: %w", err)
	}
	return true, nil
}

// PageExists reports whether encodedURL is a member of pages.
func (m *Model) PageExists(ctx context.Context, encodedURL string) (bool, error) {
	ok, err := m.db.SIsMember(ctx, Pages(), encodedURL)
	if err != nil {
		return false, fmt.Errorf("check page membership: %w", err)
	}
	return ok, nil
}

// LastScraped returns the page's lastScraped epoch seconds (0 if unset or
// unknown).
func (m *Model) LastScraped(ctx context.Context, encodedURL string) (int64, error) {
	v, ok, err := m.db.HGet(ctx, PageData(encodedURL), "lastScraped")
	if err != nil {
		return 0, fmt.Errorf("read lastScraped: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// MarkVisited records now as lastScraped and adds the page to
// pages:visited.
func (m *Model) MarkVisited(ctx context.Context, encodedURL string, now int64) error {
	if err := m.db.HSet(ctx, PageData(encodedURL), map[string]string{"lastScraped": strconv.FormatInt(now, 10)}); err != nil {
		return fmt.Errorf("update lastScraped: %w", err)
	}
	if err := m.db.SAdd(ctx, PagesVisited(), encodedURL); err != nil {
		return fmt.Errorf("mark visited: %w", err)
	}
	return nil
}

// MarkFailed records now as lastScraped and adds the page to
// pages:failed.
func (m *Model) MarkFailed(ctx context.Context, encodedURL string, now int64) error {
	if err := m.db.HSet(ctx, PageData(encodedURL), map[string]string{"lastScraped": strconv.FormatInt(now, 10)}); err != nil {
		return fmt.Errorf("update lastScraped: %w", err)
	}
	if err := m.db.SAdd(ctx, PagesFailed(), encodedURL); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// GetRedirect returns the encoded redirect target for encodedURL, if any.
func (m *Model) GetRedirect(ctx context.Context, encodedURL string) (string, bool, error) {
	v, ok, err := m.db.Get(ctx, Redirect(encodedURL))
	if err != nil {
		return "", false, fmt.Errorf("read redirect: %w", err)
	}
	return v, ok, nil
}

// SetRedirect records that encodedFrom now redirects to encodedTo.
func (m *Model) SetRedirect(ctx context.Context, encodedFrom, encodedTo string) error {
	if err := m.db.Set(ctx, Redirect(encodedFrom), encodedTo); err != nil {
		return fmt.Errorf("set redirect: %w", err)
	}
	return nil
}

// ClearRedirect removes any stale redirect record for encodedURL.
func (m *Model) ClearRedirect(ctx context.Context, encodedURL string) error {
	if err := m.db.Del(ctx, Redirect(encodedURL)); err != nil {
		return fmt.Errorf("clear redirect: %w", err)
	}
	return nil
}

// AddLink records (or replaces) the edge encodedFrom -> encodedTo, carrying
// imageUrl/imageHash, and maintains both the forward and reverse edge sets.
func (m *Model) AddLink(ctx context.Context, encodedFrom, encodedTo, encodedImageURL, imageHash string) error {
	if err := m.db.SAdd(ctx, LinksTo(encodedFrom), encodedTo); err != nil {
		return fmt.Errorf("add forward edge: %w", err)
	}
	if err := m.db.SAdd(ctx, LinkedFrom(encodedTo), encodedFrom); err != nil {
		return fmt.Errorf("add reverse edge: %w", err)
	}
	if err := m.db.HSet(ctx, Link(encodedFrom, encodedTo), map[string]string{
		"imageUrl":  encodedImageURL,
		"imageHash": imageHash,
	}); err != nil {
		return fmt.Errorf("set link metadata: %w", err)
	}
	return nil
}

// MoveLinksUnderRedirect implements spec.md §4.6 step 4: relocate every
// edge and the page-data/membership of encodedOrig onto encodedResult,
// then delete the source records. Invariant 4 in spec.md §3 must hold
// after this returns: neither pages:linksto:{orig} nor
// pages:linkedfrom:{orig} exists.
func (m *Model) MoveLinksUnderRedirect(ctx context.Context, encodedOrig, encodedResult string) error {
	// Merge page metadata: copy all fields from orig's hash to result's,
	// then delete the source hash.
	origData, err := m.db.HGetAll(ctx, PageData(encodedOrig))
	if err != nil {
		return fmt.Errorf("read orig page data: %w", err)
	}
	if len(origData) > 0 {
		if err := m.db.HSet(ctx, PageData(encodedResult), origData); err != nil {
			return fmt.Errorf("merge page data: %w", err)
		}
	}
	if err := m.db.Del(ctx, PageData(encodedOrig)); err != nil {
		return fmt.Errorf("delete orig page data: %w", err)
	}

	// Relocate forward edges (pages:linksto:orig -> pages:linksto:result).
	forward, err := m.db.SMembers(ctx, LinksTo(encodedOrig))
	if err != nil {
		return fmt.Errorf("read forward edges: %w", err)
	}
	for _, to := range forward {
		hash, err := m.db.HGetAll(ctx, Link(encodedOrig, to))
		if err != nil {
			return fmt.Errorf("read forward link %s: %w", to, err)
		}
		if len(hash) > 0 {
			if err := m.db.HSet(ctx, Link(encodedResult, to), hash); err != nil {
				return fmt.Errorf("copy forward link %s: %w", to, err)
			}
		}
		if err := m.db.Del(ctx, Link(encodedOrig, to)); err != nil {
			return fmt.Errorf("delete forward link %s: %w", to, err)
		}
		if err := m.db.SRem(ctx, LinkedFrom(to), encodedOrig); err != nil {
			return fmt.Errorf("repoint reverse edge of %s: %w", to, err)
		}
		if err := m.db.SAdd(ctx, LinkedFrom(to), encodedResult); err != nil {
			return fmt.Errorf("repoint reverse edge of %s: %w", to, err)
		}
	}
	if len(forward) > 0 {
		if err := m.db.SAdd(ctx, LinksTo(encodedResult), forward...); err != nil {
			return fmt.Errorf("reparent forward edges: %w", err)
		}
	}
	if err := m.db.Del(ctx, LinksTo(encodedOrig)); err != nil {
		return fmt.Errorf("delete orig forward set: %w", err)
	}

	// Relocate reverse edges (pages:linkedfrom:orig -> pages:linkedfrom:result).
	reverse, err := m.db.SMembers(ctx, LinkedFrom(encodedOrig))
	if err != nil {
		return fmt.Errorf("read reverse edges: %w", err)
	}
	for _, from := range reverse {
		hash, err := m.db.HGetAll(ctx, Link(from, encodedOrig))
		if err != nil {
			return fmt.Errorf("read reverse link %s: %w", from, err)
		}
		if len(hash) > 0 {
			if err := m.db.HSet(ctx, Link(from, encodedResult), hash); err != nil {
				return fmt.Errorf("copy reverse link %s: %w", from, err)
			}
		}
		if err := m.db.Del(ctx, Link(from, encodedOrig)); err != nil {
			return fmt.Errorf("delete reverse link %s: %w", from, err)
		}
	}
	if err := m.db.Del(ctx, LinkedFrom(encodedOrig)); err != nil {
		return fmt.Errorf("delete orig reverse set: %w", err)
	}
	if len(reverse) > 0 {
		if err := m.db.SAdd(ctx, LinkedFrom(encodedResult), reverse...); err != nil {
			return fmt.Errorf("reparent reverse edges: %w", err)
		}
	}

	// Membership: result takes over orig's pages/pages:visited standing.
	if err := m.db.SAdd(ctx, Pages(), encodedResult); err != nil {
		return fmt.Errorf("add result to pages: %w", err)
	}
	if err := m.db.SAdd(ctx, PagesVisited(), encodedResult); err != nil {
		return fmt.Errorf("add result to visited: %w", err)
	}
	if err := m.db.SRem(ctx, Pages(), encodedOrig); err != nil {
		return fmt.Errorf("remove orig from pages: %w", err)
	}
	if err := m.db.SRem(ctx, PagesVisited(), encodedOrig); err != nil {
		return fmt.Errorf("remove orig from visited: %w", err)
	}

	return nil
}
