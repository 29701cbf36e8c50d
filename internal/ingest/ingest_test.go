package ingest

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cametumbling/badge-crawler/internal/authn"
	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/queue"
	"github.com/cametumbling/badge-crawler/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, store.Adapter, *authn.Authenticator) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := store.New(rdb)
	q := queue.New(db)
	auth := authn.New(db, "admin-secret")
	return New(db, q, auth), db, auth
}

func TestProcessSuccessWithOneBadgeLink(t *testing.T) {
	p, db, auth := newTestPipeline(t)
	ctx := context.Background()

	token, err := auth.CreateAccount(ctx, "worker one")
	require.NoError(t, err)
	keyHash := authn.KeyHash(token)

	const orig = "https://example.com/"
	encodedOrig := codec.Encode(orig)
	require.NoError(t, db.SAdd(ctx, graph.InProgress(keyHash), encodedOrig))

	report := WorkReport{
		OrigURL:   orig,
		ResultURL: orig,
		Success:   true,
		Links: []Link{
			{To: "https://example.com/badge", Image: "https://example.com/badge.png", ImageHash: "deadbeef"},
		},
	}
	require.NoError(t, p.Process(ctx, keyHash, report))

	inProgress, err := db.SIsMember(ctx, graph.InProgress(keyHash), encodedOrig)
	require.NoError(t, err)
	require.False(t, inProgress)

	visited, err := db.SIsMember(ctx, graph.PagesVisited(), encodedOrig)
	require.NoError(t, err)
	require.True(t, visited)

	encodedTo := codec.Encode("https://example.com/badge")
	linked, err := db.SIsMember(ctx, graph.LinksTo(encodedOrig), encodedTo)
	require.NoError(t, err)
	require.True(t, linked)

	queued, _, err := db.LPop(ctx, graph.PagesQueue())
	require.NoError(t, err)
	require.Equal(t, encodedTo, queued)

	board, err := auth.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	require.Equal(t, float64(1), board[0].Score)
}

func TestProcessRedirectMerge(t *testing.T) {
	p, db, auth := newTestPipeline(t)
	ctx := context.Background()

	token, err := auth.CreateAccount(ctx, "worker two")
	require.NoError(t, err)
	keyHash := authn.KeyHash(token)

	const orig = "https://example.com/old"
	const result = "https://example.com/new"

	report := WorkReport{OrigURL: orig, ResultURL: result, Success: true}
	require.NoError(t, p.Process(ctx, keyHash, report))

	encodedOrig := codec.Encode(orig)
	encodedResult := codec.Encode(result)

	redirectTo, ok, err := db.Get(ctx, graph.Redirect(encodedOrig))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, encodedResult, redirectTo)

	visited, err := db.SIsMember(ctx, graph.PagesVisited(), encodedResult)
	require.NoError(t, err)
	require.True(t, visited)
}

func TestProcessSkipsLinkOutsideAdmission(t *testing.T) {
	p, db, auth := newTestPipeline(t)
	ctx := context.Background()

	token, err := auth.CreateAccount(ctx, "worker three")
	require.NoError(t, err)
	keyHash := authn.KeyHash(token)

	blockedDomain := codec.Encode("blocked.example")
	require.NoError(t, db.SAdd(ctx, graph.Denylist(), blockedDomain))

	report := WorkReport{
		OrigURL:   "https://example.com/",
		ResultURL: "https://example.com/",
		Success:   true,
		Links: []Link{
			{To: "https://blocked.example/page", Image: "https://blocked.example/badge.png", ImageHash: "abc123"},
		},
	}
	require.NoError(t, p.Process(ctx, keyHash, report))

	encodedTo := codec.Encode("https://blocked.example/page")
	known, err := db.SIsMember(ctx, graph.Pages(), encodedTo)
	require.NoError(t, err)
	require.False(t, known)

	_, popped, err := db.LPop(ctx, graph.PagesQueue())
	require.NoError(t, err)
	require.False(t, popped)
}

func TestProcessFailedReportStillIncrementsLeaderboard(t *testing.T) {
	p, _, auth := newTestPipeline(t)
	ctx := context.Background()

	token, err := auth.CreateAccount(ctx, "worker four")
	require.NoError(t, err)
	keyHash := authn.KeyHash(token)

	report := WorkReport{OrigURL: "https://example.com/", ResultURL: "https://example.com/", Success: false}
	require.NoError(t, p.Process(ctx, keyHash, report))

	board, err := auth.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	require.Equal(t, float64(1), board[0].Score)
}

func TestProcessRejectsInvalidURL(t *testing.T) {
	p, _, auth := newTestPipeline(t)
	ctx := context.Background()

	token, err := auth.CreateAccount(ctx, "worker five")
	require.NoError(t, err)
	keyHash := authn.KeyHash(token)

	report := WorkReport{OrigURL: "not-a-url", ResultURL: "not-a-url", Success: true}
	err = p.Process(ctx, keyHash, report)
	require.Error(t, err)
}
