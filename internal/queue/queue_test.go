package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cametumbling/badge-crawler/internal/codec"
	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.Adapter) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	db := store.New(rdb)
	return New(db), db
}

func TestSubmitInitializesPageAtomically(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Submit(ctx, "https://a.example/"))

	encoded := codec.Encode("https://a.example/")
	known, err := db.SIsMember(ctx, graph.Pages(), encoded)
	require.NoError(t, err)
	require.True(t, known)

	n, err := db.LLen(ctx, graph.PagesQueue())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	ls, _, err := db.HGet(ctx, graph.PageData(encoded), "lastScraped")
	require.NoError(t, err)
	require.Equal(t, "0", ls)
}

func TestSubmitRejectsURLWithoutDomain(t *testing.T) {
	e, _ := newTestEngine(t)
	err := e.Submit(context.Background(), "not a url")
	require.Error(t, err)
}

func TestDequeueEmptyReturnsNotOK(t *testing.T) {
	e, _ := newTestEngine(t)
	_, ok, err := e.Dequeue(context.Background(), "a2V5")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Enqueue(ctx, "https://a.example/"))

	url, ok, err := e.Dequeue(ctx, "a2V5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://a.example/", url)

	inProgress, err := db.SIsMember(ctx, graph.InProgress("a2V5"), codec.Encode("https://a.example/"))
	require.NoError(t, err)
	require.True(t, inProgress)

	n, err := db.LLen(ctx, graph.PagesQueue())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestEnqueueFollowsExistingRedirect(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	model := graph.New(db)
	require.NoError(t, model.SetRedirect(ctx, codec.Encode("https://a.example/"), codec.Encode("https://a.example/real")))

	require.NoError(t, e.Enqueue(ctx, "https://a.example/"))

	url, ok, err := e.Dequeue(ctx, "a2V5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://a.example/real", url)
}

func TestRefreshRebuildsFromStalePages(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()
	e.now = func() time.Time { return time.Unix(1_000_000_000, 0) }

	model := graph.New(db)
	fresh := codec.Encode("https://fresh.example/")
	stale := codec.Encode("https://stale.example/")
	never := codec.Encode("https://never.example/")

	_, err := model.PutPage(ctx, fresh)
	require.NoError(t, err)
	require.NoError(t, model.MarkVisited(ctx, fresh, e.now().Unix()))

	_, err = model.PutPage(ctx, stale)
	require.NoError(t, err)
	require.NoError(t, model.MarkVisited(ctx, stale, e.now().Unix()-int64(StaleAfter.Seconds())-1))

	_, err = model.PutPage(ctx, never)
	require.NoError(t, err)

	// Drain whatever PutPage/Submit side effects left in the queue so we
	// observe only what Refresh rebuilds.
	require.NoError(t, db.Del(ctx, graph.PagesQueue()))

	require.NoError(t, e.Refresh(ctx))

	n, err := db.LLen(ctx, graph.PagesQueue())
	require.NoError(t, err)
	require.Equal(t, int64(2), n) // stale + never, not fresh

	members := []string{}
	for {
		v, ok, err := db.LPop(ctx, graph.PagesQueue())
		require.NoError(t, err)
		if !ok {
			break
		}
		members = append(members, v)
	}
	require.ElementsMatch(t, []string{stale, never}, members)
}

func TestRefreshIsIdempotent(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Enqueue(ctx, "https://a.example/"))
	require.NoError(t, e.Refresh(ctx))
	first, err := db.LLen(ctx, graph.PagesQueue())
	require.NoError(t, err)

	require.NoError(t, e.Refresh(ctx))
	second, err := db.LLen(ctx, graph.PagesQueue())
	require.NoError(t, err)

	require.Equal(t, first, second)
}
