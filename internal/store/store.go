// Package store is the typed view of the external key-value store
// (spec.md §4.1). It wraps a redis.Cmdable so the same call surface works
// against a plain client and against a transaction pipeline, and it
// surfaces "missing key" as a plain false/zero-value result rather than an
// error, keeping that distinct from a transient connection failure.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Adapter is the typed store operations surface the rest of the system
// depends on. It never appears concretely in calling code — callers hold
// an Adapter interface so tests can substitute a miniredis-backed one.
type Adapter interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)

	LPop(ctx context.Context, key string) (string, bool, error)
	RPush(ctx context.Context, key string, values ...string) error
	LLen(ctx context.Context, key string) (int64, error)

	ZIncrBy(ctx context.Context, key string, increment float64, member string) error
	// ZRangeHighestFirst returns up to limit (member, score) pairs sorted
	// highest score first. limit <= 0 means unlimited.
	ZRangeHighestFirst(ctx context.Context, key string, limit int) ([]ZMember, error)

	PFAdd(ctx context.Context, key string, members ...string) error
	PFCount(ctx context.Context, key string) (int64, error)

	// RunTx executes fn against a transactional Adapter; all writes issued
	// inside fn are committed atomically via MULTI/EXEC, or none are.
	RunTx(ctx context.Context, fn func(tx Adapter) error) error
}

// ZMember is one entry of a sorted-set range.
type ZMember struct {
	Member string
	Score  float64
}

// TransientError wraps any failure from the backing store (a connection
// or timeout failure, or any other command error). It is distinct from
// "missing key," which is never an error.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("store: transient error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// redisAdapter is the concrete Adapter backed by a redis.Cmdable, which is
// satisfied by both *redis.Client and the pipeline handed to a MULTI/EXEC
// transaction, so RunTx can reuse every method above unchanged.
type redisAdapter struct {
	rdb redis.Cmdable
}

// New wraps an existing redis client (or any redis.Cmdable) as an Adapter.
func New(rdb redis.Cmdable) Adapter {
	return &redisAdapter{rdb: rdb}
}

func (a *redisAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := a.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("GET", err)
	}
	return v, true, nil
}

func (a *redisAdapter) Set(ctx context.Context, key, value string) error {
	return wrapErr("SET", a.rdb.Set(ctx, key, value, 0).Err())
}

func (a *redisAdapter) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrapErr("DEL", a.rdb.Del(ctx, keys...).Err())
}

func (a *redisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, wrapErr("EXISTS", err)
	}
	return n > 0, nil
}

func (a *redisAdapter) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return wrapErr("HSET", a.rdb.HSet(ctx, key, args...).Err())
}

func (a *redisAdapter) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := a.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("HGET", err)
	}
	return v, true, nil
}

func (a *redisAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := a.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapErr("HGETALL", err)
	}
	return m, nil
}

func (a *redisAdapter) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrapErr("SADD", a.rdb.SAdd(ctx, key, args...).Err())
}

func (a *redisAdapter) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrapErr("SREM", a.rdb.SRem(ctx, key, args...).Err())
}

func (a *redisAdapter) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := a.rdb.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, wrapErr("SISMEMBER", err)
	}
	return ok, nil
}

func (a *redisAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := a.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrapErr("SMEMBERS", err)
	}
	return members, nil
}

func (a *redisAdapter) SCard(ctx context.Context, key string) (int64, error) {
	n, err := a.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, wrapErr("SCARD", err)
	}
	return n, nil
}

func (a *redisAdapter) LPop(ctx context.Context, key string) (string, bool, error) {
	v, err := a.rdb.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("LPOP", err)
	}
	return v, true, nil
}

func (a *redisAdapter) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return wrapErr("RPUSH", a.rdb.RPush(ctx, key, args...).Err())
}

func (a *redisAdapter) LLen(ctx context.Context, key string) (int64, error) {
	n, err := a.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrapErr("LLEN", err)
	}
	return n, nil
}

func (a *redisAdapter) ZIncrBy(ctx context.Context, key string, increment float64, member string) error {
	return wrapErr("ZINCRBY", a.rdb.ZIncrBy(ctx, key, increment, member).Err())
}

func (a *redisAdapter) ZRangeHighestFirst(ctx context.Context, key string, limit int) ([]ZMember, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	zs, err := a.rdb.ZRevRangeWithScores(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, wrapErr("ZREVRANGE", err)
	}
	out := make([]ZMember, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, ZMember{Member: member, Score: z.Score})
	}
	return out, nil
}

func (a *redisAdapter) PFAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrapErr("PFADD", a.rdb.PFAdd(ctx, key, args...).Err())
}

func (a *redisAdapter) PFCount(ctx context.Context, key string) (int64, error) {
	n, err := a.rdb.PFCount(ctx, key).Result()
	if err != nil {
		return 0, wrapErr("PFCOUNT", err)
	}
	return n, nil
}

func (a *redisAdapter) RunTx(ctx context.Context, fn func(tx Adapter) error) error {
	client, ok := a.rdb.(*redis.Client)
	if !ok {
		// Already inside a transaction/pipeline; just run fn against
		// ourselves rather than nesting MULTI/EXEC.
		return fn(a)
	}

	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return fn(New(pipe))
	})
	return wrapErr("MULTI/EXEC", err)
}
