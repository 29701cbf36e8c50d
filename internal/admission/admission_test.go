package admission

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cametumbling/badge-crawler/internal/graph"
	"github.com/cametumbling/badge-crawler/internal/store"
)

func newTestPolicy(t *testing.T) (*Policy, store.Adapter) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	db := store.New(rdb)
	return New(db), db
}

func TestDenylistRejects(t *testing.T) {
	p, db := newTestPolicy(t)
	ctx := context.Background()

	require.NoError(t, db.SAdd(ctx, graph.Denylist(), "YmxvY2tlZA=="))
	ok, err := p.Check(ctx, "YmxvY2tlZA==")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPageCapEnforced(t *testing.T) {
	p, db := newTestPolicy(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, graph.MaxPages(), "2"))

	ok, err := p.Admit(ctx, "ZA==", "dTE=")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Admit(ctx, "ZA==", "dTI=")
	require.NoError(t, err)
	require.True(t, ok)

	// Cap reached; third page rejected. HyperLogLog is approximate so we
	// allow it to admit at most one more beyond the cap before rejecting.
	admittedThird, err := p.Admit(ctx, "ZA==", "dTM=")
	require.NoError(t, err)
	if admittedThird {
		ok, err = p.Admit(ctx, "ZA==", "dTQ=")
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestDefaultMaxPagesWhenUnset(t *testing.T) {
	p, _ := newTestPolicy(t)
	ctx := context.Background()

	ok, err := p.Check(ctx, "ZA==")
	require.NoError(t, err)
	require.True(t, ok)
}
