// Package admission implements the Admission Policy from spec.md §4.4: the
// combined denylist and per-domain page-cap gate applied to any URL about
// to enter pages.
package admission

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/store"
)

// DefaultMaxPages is used when domains:max_pages is unset.
const DefaultMaxPages = 100

// Policy evaluates and records admission decisions for candidate domains.
type Policy struct {
	db store.Adapter
}

// New builds a Policy over the given store adapter.
func New(db store.Adapter) *Policy { return &Policy{db: db} }

// Check reports whether encodedDomain is currently admissible: not
// denylisted, and under its page cap. It does not record U as admitted;
// call Admit for that.
func (p *Policy) Check(ctx context.Context, encodedDomain string) (bool, error) {
	denied, err := p.db.SIsMember(ctx, graph.Denylist(), encodedDomain)
	if err != nil {
		return false, fmt.Errorf("check denylist: %w", err)
	}
	if denied {
		return false, nil
	}

	max, err := p.maxPages(ctx)
	if err != nil {
		return false, err
	}
	n, err := p.db.PFCount(ctx, graph.DomainPages(encodedDomain))
	if err != nil {
		return false, fmt.Errorf("count domain pages: %w", err)
	}
	return n < max, nil
}

// Admit re-checks admissibility for encodedDomain and, if admissible,
// records encodedURL in the domain's HyperLogLog. Returns whether the URL
// was admitted.
func (p *Policy) Admit(ctx context.Context, encodedDomain, encodedURL string) (bool, error) {
	ok, err := p.Check(ctx, encodedDomain)
	if err != nil || !ok {
		return false, err
	}
	if err := p.db.PFAdd(ctx, graph.DomainPages(encodedDomain), encodedURL); err != nil {
		return false, fmt.Errorf("record domain page: %w", err)
	}
	return true, nil
}

// AdmitURL is a convenience wrapper that derives and encodes the domain of
// rawURL itself. It fails (admitted=false, err=non-nil) if rawURL has no
// extractable domain.
func (p *Policy) AdmitURL(ctx context.Context, rawURL string) (bool, error) {
	domain, err := codec.Domain(rawURL)
	if err != nil {
		return false, fmt.Errorf("extract domain: %w", err)
	}
	return p.Admit(ctx, codec.Encode(domain), codec.Encode(rawURL))
}

func (p *Policy) maxPages(ctx context.Context) (int64, error) {
	v, ok, err := p.db.Get(ctx, graph.MaxPages())
	if err != nil {
		return 0, fmt.Errorf("read max pages: %w", err)
	}
	if !ok {
		return DefaultMaxPages, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return DefaultMaxPages, nil
	}
	return n, nil
}
