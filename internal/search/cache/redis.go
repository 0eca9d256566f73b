package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agent-matrix/matrix-hub/internal/logger"
)

// DefaultTTL bounds how long a cached search response survives even
// if the watermark never changes, so a long-idle process does not
// serve arbitrarily stale ETags.
const DefaultTTL = 10 * time.Minute

// Redis is a shared, multi-instance-safe cache backed by go-redis.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedis wraps an existing *redis.Client (tests substitute one
// pointed at a miniredis instance, mirroring the teacher's
// NewRedisStorageWithClient constructor).
func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix, ttl: DefaultTTL}
}

func (r *Redis) key(k string) string {
	return r.keyPrefix + k
}

// Get returns the cached entry for key, if present and not expired.
func (r *Redis) Get(ctx context.Context, key string) (*Entry, bool) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf("search cache: redis get failed: %v", err)
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Warnf("search cache: corrupt cached entry for %s: %v", key, err)
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key with the cache's TTL.
func (r *Redis) Set(ctx context.Context, key string, entry *Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Warnf("search cache: failed to marshal entry for %s: %v", key, err)
		return
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		logger.Warnf("search cache: redis set failed: %v", err)
	}
}

// Ping verifies connectivity, used by the health endpoint's optional
// dependency probe.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
