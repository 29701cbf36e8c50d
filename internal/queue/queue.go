// Package queue implements the Queue Engine from spec.md §4.5: Enqueue,
// Dequeue, and the expiry-driven Refresh rebuild.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/cametumbling/badge-crawler/internal/admission"
	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/store"
)

// StaleAfter is the duration after which a page's lastScraped makes it
// eligible for re-enqueueing by Refresh (spec.md §3: "stale" page).
const StaleAfter = 7 * 24 * time.Hour

// Engine is the FIFO work list plus in-progress tracking and periodic
// expiry-driven rebuild.
type Engine struct {
	db     store.Adapter
	model  *graph.Model
	policy *admission.Policy
	now    func() time.Time
}

// New builds an Engine over the given store adapter.
func New(db store.Adapter) *Engine {
	return &Engine{
		db:     db,
		model:  graph.New(db),
		policy: admission.New(db),
		now:    time.Now,
	}
}

// Enqueue adds rawURL to the crawl if it's new, pushing the redirected
// encoded form instead when a redirect is already on record for it.
// Called from Ingest and from the admin submit operation.
func (e *Engine) Enqueue(ctx context.Context, rawURL string) error {
	encodedURL := codec.Encode(rawURL)
	added, err := e.model.PutPage(ctx, encodedURL)
	if err != nil {
		return fmt.Errorf("enqueue: put page: %w", err)
	}
	if !added {
		return nil
	}
	return e.pushRespectingRedirect(ctx, encodedURL)
}

// pushRespectingRedirect pushes target onto pages:queue, or its redirect
// target if one is already on record.
func (e *Engine) pushRespectingRedirect(ctx context.Context, encodedURL string) error {
	redirectTo, ok, err := e.model.GetRedirect(ctx, encodedURL)
	if err != nil {
		return fmt.Errorf("push: read redirect: %w", err)
	}
	target := encodedURL
	if ok {
		target = redirectTo
	}
	if err := e.db.RPush(ctx, graph.PagesQueue(), target); err != nil {
		return fmt.Errorf("push queue: %w", err)
	}
	return nil
}

// Submit performs the admin `submit` operation's four-step initialization
// (add to pages, admit into the domain HLL, push to queue, init page data)
// atomically under a transaction, per spec.md §4.5.
func (e *Engine) Submit(ctx context.Context, rawURL string) error {
	domain, err := codec.Domain(rawURL)
	if err != nil {
		return fmt.Errorf("submit: extract domain: %w", err)
	}
	encodedURL := codec.Encode(rawURL)
	encodedDomain := codec.Encode(domain)

	return e.db.RunTx(ctx, func(tx store.Adapter) error {
		if err := tx.SAdd(ctx, graph.Pages(), encodedURL); err != nil {
			return err
		}
		if err := tx.PFAdd(ctx, graph.DomainPages(encodedDomain), encodedURL); err != nil {
			return err
		}
		if err := tx.RPush(ctx, graph.PagesQueue(), encodedURL); err != nil {
			return err
		}
		return tx.HSet(ctx, graph.PageData(encodedURL), map[string]string{"lastScraped": "0"})
	})
}

// Dequeue pops the next work item (LPOP pages:queue). If one is popped,
// it's recorded as in-progress for apiKeyHash and the decoded URL is
// returned. ok is false when the queue is empty (the caller should answer
// with 204).
func (e *Engine) Dequeue(ctx context.Context, apiKeyHash string) (rawURL string, ok bool, err error) {
	encodedURL, popped, err := e.db.LPop(ctx, graph.PagesQueue())
	if err != nil {
		return "", false, fmt.Errorf("dequeue: %w", err)
	}
	if !popped {
		return "", false, nil
	}
	if err := e.db.SAdd(ctx, graph.InProgress(apiKeyHash), encodedURL); err != nil {
		return "", false, fmt.Errorf("dequeue: track in-progress: %w", err)
	}
	decoded, err := codec.Decode(encodedURL)
	if err != nil {
		return "", false, fmt.Errorf("dequeue: decode: %w", err)
	}
	return decoded, true, nil
}

// Refresh deletes pages:queue and rebuilds it from every page whose
// lastScraped is stale, re-applying the admission policy and following any
// pre-existing redirect. The delete and the pushes are separate commands,
// not one transaction. Invoked on coordinator boot. It is idempotent:
// repeated calls with no intervening writes
// produce the same queue contents.
func (e *Engine) Refresh(ctx context.Context) error {
	if err := e.db.Del(ctx, graph.PagesQueue()); err != nil {
		return fmt.Errorf("refresh: clear queue: %w", err)
	}

	pages, err := e.db.SMembers(ctx, graph.Pages())
	if err != nil {
		return fmt.Errorf("refresh: list pages: %w", err)
	}

	now := e.now().Unix()
	for _, encodedURL := range pages {
		lastScraped, err := e.model.LastScraped(ctx, encodedURL)
		if err != nil {
			return fmt.Errorf("refresh: read lastScraped for %s: %w", encodedURL, err)
		}
		if !isStale(lastScraped, now) {
			continue
		}

		rawURL, err := codec.Decode(encodedURL)
		if err != nil {
			continue
		}
		domain, err := codec.Domain(rawURL)
		if err != nil {
			continue
		}
		admitted, err := e.policy.Admit(ctx, codec.Encode(domain), encodedURL)
		if err != nil {
			return fmt.Errorf("refresh: admit %s: %w", encodedURL, err)
		}
		if !admitted {
			continue
		}
		if err := e.pushRespectingRedirect(ctx, encodedURL); err != nil {
			return fmt.Errorf("refresh: push %s: %w", encodedURL, err)
		}
	}
	return nil
}

func isStale(lastScraped, now int64) bool {
	if lastScraped == 0 {
		return true
	}
	return time.Unix(now, 0).Sub(time.Unix(lastScraped, 0)) >= StaleAfter
}
