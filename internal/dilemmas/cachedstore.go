package dilemmas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// setIfNewer stores the response only when nothing newer is cached. The key
// is a hash of {ts: created_at in microseconds, data: JSON}.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'ts')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'ts', ARGV[1], 'data', ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// CachedStore keeps the current AI response of each dilemma in redis. Every
// other call goes straight to the wrapped Store. Redis failures are logged and
// the wrapped Store answers instead.
//
// Every process that appends AI responses must write through a CachedStore on
// the same redis, otherwise readers keep the older row until the TTL expires.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{Store: inner, client: client, ttl: ttl, log: log}
}

// OpenCachedStore connects to redisURL and wraps inner. An unreachable redis
// is only logged; the cache then misses until it comes back.
func OpenCachedStore(inner Store, redisURL string, ttl time.Duration, log *zap.Logger) (*CachedStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	c := NewCachedStore(inner, redis.NewClient(opts), ttl, log)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.log.Warn("redis unreachable, continuing with cache misses", zap.Error(err))
	}
	c.log.Info("response cache enabled", zap.String("addr", opts.Addr), zap.Duration("ttl", ttl))
	return c, nil
}

// Close releases the redis client.
func (c *CachedStore) Close() error {
	return c.client.Close()
}

func (c *CachedStore) key(dilemmaID string) string {
	return "dilemmas:ai:latest:" + dilemmaID
}

func (c *CachedStore) LatestAIResponse(ctx context.Context, dilemmaID string) (*AIResponse, error) {
	cached, err := c.get(ctx, dilemmaID)
	if err != nil {
		c.log.Warn("response cache read failed", zap.String("dilemma_id", dilemmaID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	r, err := c.Store.LatestAIResponse(ctx, dilemmaID)
	if err != nil || r == nil {
		return r, err
	}
	c.set(ctx, r)
	return r, nil
}

// InsertAIResponse stores r and makes it the cached current response.
func (c *CachedStore) InsertAIResponse(ctx context.Context, r *AIResponse) error {
	if err := c.Store.InsertAIResponse(ctx, r); err != nil {
		return err
	}
	c.set(ctx, r)
	return nil
}

func (c *CachedStore) get(ctx context.Context, dilemmaID string) (*AIResponse, error) {
	data, err := c.client.HGet(ctx, c.key(dilemmaID), "data").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r AIResponse
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// set caches r unless a newer response is already cached, so a slow
// read-through never replaces a row a concurrent insert just cached.
func (c *CachedStore) set(ctx context.Context, r *AIResponse) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	err = setIfNewer.Run(ctx, c.client, []string{c.key(r.DilemmaID)},
		r.CreatedAt.UnixMicro(), data, c.ttl.Milliseconds()).Err()
	if err != nil {
		c.log.Warn("response cache write failed", zap.String("dilemma_id", r.DilemmaID), zap.Error(err))
	}
}
