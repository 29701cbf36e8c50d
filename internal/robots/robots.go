// Package robots is a small robots.txt gate for the Worker Loop (spec.md
// §4.8 step 3). No example repo in the corpus imports a dedicated
// robots.txt library — the pack's own go-mizu-mizu crawler hand-rolls a
// RobotsCache around its http.Client rather than reaching for one — so
// this follows the same shape: fetch once per origin, parse the matching
// user-agent group, and decide Allow/Disallow by longest-match-wins.
package robots

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// rule is one Allow/Disallow entry within a matched user-agent group.
type rule struct {
	prefix  string
	allowed bool
}

// ruleSet is the parsed rules for one origin, matched against a single
// user-agent (no group selection beyond "*" and a group whose agent token
// is contained in the configured user agent).
type ruleSet struct {
	rules []rule
}

// Gate fetches and caches robots.txt per origin, answering Allowed for a
// candidate URL under the configured user agent.
type Gate struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]*ruleSet
}

// New builds a Gate using client to fetch robots.txt documents.
func New(client *http.Client, userAgent string) *Gate {
	return &Gate{
		client:    client,
		userAgent: userAgent,
		cache:     map[string]*ruleSet{},
	}
}

// Allowed reports whether rawURL may be fetched under the gate's
// configured user agent. A fetch failure or any non-2xx response
// (including 404) is treated as allow-all for that origin, per spec.md
// §4.8's "default-allow" rule.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	rs := g.ruleSetFor(ctx, origin)
	if rs == nil {
		return true
	}
	return rs.allows(u.Path)
}

func (g *Gate) ruleSetFor(ctx context.Context, origin string) *ruleSet {
	g.mu.Lock()
	if rs, ok := g.cache[origin]; ok {
		g.mu.Unlock()
		return rs
	}
	g.mu.Unlock()

	rs := g.fetch(ctx, origin)

	g.mu.Lock()
	g.cache[origin] = rs
	g.mu.Unlock()
	return rs
}

func (g *Gate) fetch(ctx context.Context, origin string) *ruleSet {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	return parse(resp.Body, g.userAgent)
}

// parse reads a robots.txt document and returns the rule set for the
// groups whose User-agent token is a case-insensitive substring of
// userAgent, falling back to the "*" group when no such group exists.
func parse(body io.Reader, userAgent string) *ruleSet {
	scanner := bufio.NewScanner(body)

	var (
		exactRules    []rule
		wildcardRules []rule
		current       *[]rule
		matchedExact  bool
	)

	flushTarget := func(agent string) *[]rule {
		agent = strings.ToLower(strings.TrimSpace(agent))
		if agent == "*" {
			return &wildcardRules
		}
		if strings.Contains(strings.ToLower(userAgent), agent) {
			matchedExact = true
			return &exactRules
		}
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "user-agent":
			current = flushTarget(val)
		case "allow":
			if current != nil && val != "" {
				*current = append(*current, rule{prefix: val, allowed: true})
			}
		case "disallow":
			if current != nil {
				if val == "" {
					// Empty Disallow means "allow everything" for this group.
					continue
				}
				*current = append(*current, rule{prefix: val, allowed: false})
			}
		}
	}

	if matchedExact {
		return &ruleSet{rules: exactRules}
	}
	return &ruleSet{rules: wildcardRules}
}

func (rs *ruleSet) allows(path string) bool {
	if path == "" {
		path = "/"
	}
	best := rule{prefix: "", allowed: true}
	for _, r := range rs.rules {
		if !strings.HasPrefix(path, r.prefix) {
			continue
		}
		if len(r.prefix) > len(best.prefix) {
			best = r
		}
	}
	return best.allowed
}
