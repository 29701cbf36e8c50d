// Package ingest implements the Ingest Pipeline from spec.md §4.6: the
// seven ordered steps that process a completed WorkReport into the Graph
// Model, queue, and leaderboard.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/cametumbling/badge-crawler/internal/admission"
	"github.com/cametumbling/badge-crawler/internal/apierr"
	"github.com/cametumbling/badge-crawler/internal/authn"
	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/queue"
	"github.com/cametumbling/badge-crawler/internal/store"
)

// Link is one discovered badge link within a WorkReport.
type Link struct {
	To        string `json:"to"`
	Image     string `json:"image"`
	ImageHash string `json:"image_hash"`
}

// WorkReport is the worker's POST /work body (spec.md §6).
type WorkReport struct {
	OrigURL   string `json:"orig_url"`
	ResultURL string `json:"result_url"`
	Success   bool   `json:"success"`
	Links     []Link `json:"links,omitempty"`
}

// Pipeline processes completed WorkReports per spec.md §4.6.
type Pipeline struct {
	db     store.Adapter
	model  *graph.Model
	policy *admission.Policy
	queue  *queue.Engine
	auth   *authn.Authenticator
	now    func() time.Time
}

// New builds a Pipeline over the given collaborators.
func New(db store.Adapter, q *queue.Engine, auth *authn.Authenticator) *Pipeline {
	return &Pipeline{
		db:     db,
		model:  graph.New(db),
		policy: admission.New(db),
		queue:  q,
		auth:   auth,
		now:    time.Now,
	}
}

// Process runs the seven-step pipeline for a report filed by apiKeyHash.
// Steps are executed in spec order; auth (step 1) is assumed already
// checked by the caller (internal/api), since it also governs the HTTP
// response shape on failure.
func (p *Pipeline) Process(ctx context.Context, apiKeyHash string, report WorkReport) error {
	// Step 2: dequeue tracking.
	if err := p.db.SRem(ctx, graph.InProgress(apiKeyHash), codec.Encode(report.OrigURL)); err != nil {
		return fmt.Errorf("ingest: clear in-progress: %w", err)
	}

	// Step 3: URL validation.
	if !codec.URLValid(report.OrigURL) || !codec.URLValid(report.ResultURL) {
		return apierr.BadInput("orig_url/result_url must be absolute http(s) URLs")
	}
	if _, err := codec.Domain(report.ResultURL); err != nil {
		return apierr.BadInput("result_url has no extractable domain: %v", err)
	}

	encodedOrig := codec.Encode(report.OrigURL)
	encodedResult := codec.Encode(report.ResultURL)

	// Step 4: redirect merge.
	if report.OrigURL != report.ResultURL {
		if err := p.model.SetRedirect(ctx, encodedOrig, encodedResult); err != nil {
			return fmt.Errorf("ingest: set redirect: %w", err)
		}
		if err := p.model.MoveLinksUnderRedirect(ctx, encodedOrig, encodedResult); err != nil {
			return fmt.Errorf("ingest: move links under redirect: %w", err)
		}
	} else {
		if err := p.model.ClearRedirect(ctx, encodedOrig); err != nil {
			return fmt.Errorf("ingest: clear stale redirect: %w", err)
		}
	}

	// Step 5: metadata update.
	now := p.now().Unix()
	if report.Success {
		if err := p.model.MarkVisited(ctx, encodedResult, now); err != nil {
			return fmt.Errorf("ingest: mark visited: %w", err)
		}
	} else {
		if err := p.model.MarkFailed(ctx, encodedResult, now); err != nil {
			return fmt.Errorf("ingest: mark failed: %w", err)
		}
	}

	// Step 6: link fan-out.
	for _, link := range report.Links {
		if err := p.processLink(ctx, encodedResult, link); err != nil {
			return fmt.Errorf("ingest: process link %q: %w", link.To, err)
		}
	}

	// Step 7: leaderboard. Incremented regardless of success (spec.md §9
	// Open Question (a), resolved as "increment regardless").
	if err := p.auth.RecordWork(ctx, apiKeyHash); err != nil {
		return fmt.Errorf("ingest: record leaderboard: %w", err)
	}

	return nil
}

func (p *Pipeline) processLink(ctx context.Context, encodedResult string, link Link) error {
	if !codec.URLValid(link.To) || !codec.URLValid(link.Image) {
		return nil
	}
	domain, err := codec.Domain(link.To)
	if err != nil {
		return nil
	}

	encodedTo := codec.Encode(link.To)
	encodedDomain := codec.Encode(domain)

	admitted, err := p.policy.Admit(ctx, encodedDomain, encodedTo)
	if err != nil {
		return fmt.Errorf("admit: %w", err)
	}
	if !admitted {
		return nil
	}

	if err := p.model.AddLink(ctx, encodedResult, encodedTo, codec.Encode(link.Image), link.ImageHash); err != nil {
		return fmt.Errorf("add link: %w", err)
	}

	known, err := p.model.PageExists(ctx, encodedTo)
	if err != nil {
		return fmt.Errorf("check page: %w", err)
	}
	if !known {
		if err := p.queue.Enqueue(ctx, link.To); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
	}
	return nil
}
