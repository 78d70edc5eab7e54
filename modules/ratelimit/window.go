// Package ratelimit limits API traffic per client with Redis-backed sliding
// windows. Reads and writes are counted against separate quotas.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Class groups requests that share a quota.
type Class string

const (
	ClassRead  Class = "read"
	ClassWrite Class = "write"
)

// Classes lists every quota class.
var Classes = []Class{ClassRead, ClassWrite}

// Quota is the number of requests a client may make per window.
type Quota struct {
	Requests int
	Window   time.Duration
}

// Result describes a client's standing in one quota class.
type Result struct {
	Class      Class
	Allowed    bool
	Limit      int
	Used       int
	Remaining  int
	ResetAt    time.Time     // when the oldest counted request leaves the window
	RetryAfter time.Duration // zero unless Allowed is false
}

// Limiter records a request from client against the quota for class.
type Limiter interface {
	Allow(ctx context.Context, class Class, client string) (*Result, error)
}

// Store is the subset of the Redis client the limiter uses.
type Store interface {
	redis.Scripter
	ZRangeByScoreWithScores(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.ZSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// admitScript drops expired entries and, if the quota has room, records the
// request. It replies {admitted, used, oldest_ms}.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local quota = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local used = redis.call('ZCARD', key)
local admitted = 0
if used < quota then
	redis.call('ZADD', key, now, ARGV[4])
	used = used + 1
	admitted = 1
end
redis.call('PEXPIRE', key, window)

local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldest = now
if first[2] then
	oldest = tonumber(first[2])
end
return {admitted, used, oldest}
`)

// SlidingWindowLimiter keeps one sorted set of request timestamps per client
// and class.
type SlidingWindowLimiter struct {
	store  Store
	quotas map[Class]Quota
	prefix string
	now    func() time.Time
}

// NewSlidingWindowLimiter creates a limiter enforcing quotas. Keys are
// prefix + class + ":" + client.
func NewSlidingWindowLimiter(store Store, quotas map[Class]Quota, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:  store,
		quotas: quotas,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow records one request atomically and reports whether it was admitted.
// Rejected requests are not counted.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, class Class, client string) (*Result, error) {
	q, err := l.quota(class)
	if err != nil {
		return nil, err
	}

	now := l.now()
	reply, err := admitScript.Run(ctx, l.store, []string{l.key(class, client)},
		now.UnixMilli(),
		q.Window.Milliseconds(),
		q.Requests,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to record %s request: %w", class, err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("unexpected limiter reply %v", reply)
	}

	return newResult(class, q, now, reply[0] == 1, int(reply[1]), time.UnixMilli(reply[2])), nil
}

// Usage reports a client's standing without recording a request. Allowed
// tells whether the next request would be admitted.
func (l *SlidingWindowLimiter) Usage(ctx context.Context, class Class, client string) (*Result, error) {
	q, err := l.quota(class)
	if err != nil {
		return nil, err
	}

	now := l.now()
	entries, err := l.store.ZRangeByScoreWithScores(ctx, l.key(class, client), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.Add(-q.Window).UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s usage: %w", class, err)
	}

	oldest := now
	if len(entries) > 0 {
		oldest = time.UnixMilli(int64(entries[0].Score))
	}
	return newResult(class, q, now, len(entries) < q.Requests, len(entries), oldest), nil
}

// Reset forgets every request recorded for client in all classes.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, client string) error {
	keys := make([]string, 0, len(Classes))
	for _, class := range Classes {
		keys = append(keys, l.key(class, client))
	}
	if err := l.store.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to reset %s: %w", client, err)
	}
	return nil
}

func (l *SlidingWindowLimiter) quota(class Class) (Quota, error) {
	q, ok := l.quotas[class]
	if !ok {
		return Quota{}, fmt.Errorf("no quota configured for class %q", class)
	}
	return q, nil
}

func (l *SlidingWindowLimiter) key(class Class, client string) string {
	return l.prefix + string(class) + ":" + client
}

func newResult(class Class, q Quota, now time.Time, allowed bool, used int, oldest time.Time) *Result {
	r := &Result{
		Class:     class,
		Allowed:   allowed,
		Limit:     q.Requests,
		Used:      used,
		Remaining: max(q.Requests-used, 0),
		ResetAt:   oldest.Add(q.Window),
	}
	if !allowed {
		r.RetryAfter = max(r.ResetAt.Sub(now), 0)
	}
	return r
}
