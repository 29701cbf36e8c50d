// Package projection builds the domain-level Graph Projection served by
// GET /graph (spec.md §4.7): three parallel maps keyed by domain, meant to
// feed a downstream visualization front-end.
package projection

import (
	"context"
	"fmt"
	"sort"

	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/store"
)

// Graph is the three parallel domain-keyed maps spec.md §4.7 describes.
type Graph struct {
	LinksTo    map[string][]string `json:"linksTo"`
	LinkedFrom map[string][]string `json:"linkedFrom"`
	Images     map[string][]string `json:"images"`
}

// Builder assembles a Graph from the store's current page/link records.
type Builder struct {
	db    store.Adapter
	model *graph.Model
}

// New builds a Builder over the given store adapter.
func New(db store.Adapter) *Builder {
	return &Builder{db: db, model: graph.New(db)}
}

// Build walks every page's forward and reverse edge sets, following a
// single redirect hop on each side before resolving the target's domain,
// and returns the assembled, sorted, deduped Graph.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	pages, err := b.db.SMembers(ctx, graph.Pages())
	if err != nil {
		return nil, fmt.Errorf("projection: list pages: %w", err)
	}

	g := &Graph{
		LinksTo:    map[string][]string{},
		LinkedFrom: map[string][]string{},
		Images:     map[string][]string{},
	}

	ensure := func(domain string) {
		if _, ok := g.LinksTo[domain]; !ok {
			g.LinksTo[domain] = nil
		}
		if _, ok := g.LinkedFrom[domain]; !ok {
			g.LinkedFrom[domain] = nil
		}
		if _, ok := g.Images[domain]; !ok {
			g.Images[domain] = nil
		}
	}

	for _, encodedPage := range pages {
		pageDomain, err := b.domainOf(encodedPage)
		if err != nil {
			continue
		}
		ensure(pageDomain)

		forward, err := b.db.SMembers(ctx, graph.LinksTo(encodedPage))
		if err != nil {
			return nil, fmt.Errorf("projection: read linksto %s: %w", encodedPage, err)
		}
		for _, encodedTarget := range forward {
			resolvedTarget, err := b.followRedirect(ctx, encodedTarget)
			if err != nil {
				continue
			}
			targetDomain, err := b.domainOf(resolvedTarget)
			if err != nil {
				continue
			}
			ensure(targetDomain)
			g.LinksTo[pageDomain] = append(g.LinksTo[pageDomain], targetDomain)

			if hash, ok, err := b.db.HGet(ctx, graph.Link(encodedPage, encodedTarget), "imageHash"); err == nil && ok {
				g.Images[targetDomain] = append(g.Images[targetDomain], hash)
			}
		}

		reverse, err := b.db.SMembers(ctx, graph.LinkedFrom(encodedPage))
		if err != nil {
			return nil, fmt.Errorf("projection: read linkedfrom %s: %w", encodedPage, err)
		}
		for _, encodedSource := range reverse {
			resolvedSource, err := b.followRedirect(ctx, encodedSource)
			if err != nil {
				continue
			}
			sourceDomain, err := b.domainOf(resolvedSource)
			if err != nil {
				continue
			}
			ensure(sourceDomain)
			g.LinkedFrom[pageDomain] = append(g.LinkedFrom[pageDomain], sourceDomain)
		}
	}

	sortDedupe(g.LinksTo)
	sortDedupe(g.LinkedFrom)
	sortDedupe(g.Images)
	return g, nil
}

// followRedirect resolves encodedURL through at most one redirect hop.
func (b *Builder) followRedirect(ctx context.Context, encodedURL string) (string, error) {
	target, ok, err := b.model.GetRedirect(ctx, encodedURL)
	if err != nil {
		return "", err
	}
	if ok {
		return target, nil
	}
	return encodedURL, nil
}

func (b *Builder) domainOf(encodedURL string) (string, error) {
	rawURL, err := codec.Decode(encodedURL)
	if err != nil {
		return "", err
	}
	return codec.Domain(rawURL)
}

func sortDedupe(m map[string][]string) {
	for k, v := range m {
		if len(v) == 0 {
			continue
		}
		sort.Strings(v)
		out := v[:1]
		for _, x := range v[1:] {
			if x != out[len(out)-1] {
				out = append(out, x)
			}
		}
		m[k] = out
	}
}
