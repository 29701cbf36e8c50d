// Package authn handles API key issuance and validation, the admin-key
// bypass, and leaderboard accounting (spec.md §3 "API Key", §4.6 step 7,
// §6 /create_account and /statistics).
package authn

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/store"
)

// Authenticator validates bearer tokens and accounts for leaderboard
// activity.
type Authenticator struct {
	db       store.Adapter
	adminKey string
}

// New builds an Authenticator. adminKey is the coordinator's configured
// admin bearer token.
func New(db store.Adapter, adminKey string) *Authenticator {
	return &Authenticator{db: db, adminKey: adminKey}
}

// IsAdmin reports whether token is exactly the configured admin key.
func (a *Authenticator) IsAdmin(token string) bool {
	return token != "" && token == a.adminKey
}

// IsValid reports whether token is the admin key or a known API key
// (auth:keys:{token} exists).
func (a *Authenticator) IsValid(ctx context.Context, token string) (bool, error) {
	if a.IsAdmin(token) {
		return true, nil
	}
	ok, err := a.db.Exists(ctx, graph.AuthKey(token))
	if err != nil {
		return false, fmt.Errorf("check api key: %w", err)
	}
	return ok, nil
}

// CreateAccount mints a new API key token with the given description.
func (a *Authenticator) CreateAccount(ctx context.Context, description string) (string, error) {
	token := uuid.NewString()
	if err := a.db.Set(ctx, graph.AuthKey(token), description); err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return token, nil
}

// KeyHash is the reversible handle used to key inprogress:* sets and the
// leaderboard: base64(token), not a cryptographic digest, by design (see
// spec.md §9) so the coordinator can display which description earned
// which score.
func KeyHash(token string) string { return codec.Encode(token) }

// RecordWork increments the leaderboard score for the caller identified by
// apiKeyHash. Per spec.md §9's first Open Question, this increments
// regardless of the report's success flag — that is the present, resolved
// behavior this implementation keeps.
func (a *Authenticator) RecordWork(ctx context.Context, apiKeyHash string) error {
	if err := a.db.ZIncrBy(ctx, graph.Leaderboard(), 1, apiKeyHash); err != nil {
		return fmt.Errorf("record leaderboard: %w", err)
	}
	return nil
}

// LeaderboardEntry is one row of the top-N leaderboard.
type LeaderboardEntry struct {
	Description string
	Score       float64
}

// MarshalJSON encodes the entry as a two-element [description, score]
// array, per spec.md §6's leaderboard wire shape, rather than an object.
func (e LeaderboardEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Description, e.Score})
}

// Leaderboard returns the top N API keys by score, highest first,
// resolving each api_key_hash back to its description via auth:keys via
// the reversible KeyHash encoding.
func (a *Authenticator) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	members, err := a.db.ZRangeHighestFirst(ctx, graph.Leaderboard(), limit)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	out := make([]LeaderboardEntry, 0, len(members))
	for _, zm := range members {
		token, err := codec.Decode(zm.Member)
		if err != nil {
			continue
		}
		desc, ok, err := a.db.Get(ctx, graph.AuthKey(token))
		if err != nil {
			return nil, fmt.Errorf("resolve description: %w", err)
		}
		if !ok {
			desc = token
		}
		out = append(out, LeaderboardEntry{Description: desc, Score: zm.Score})
	}
	return out, nil
}
