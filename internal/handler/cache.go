package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lisahq/lisaflow/pkg/api"
)

// CacheStore backs cache nodes with a shared Redis key-value store. Get
// nodes read a key into their outputs; set nodes write their merged inputs
// under the key, optionally with a TTL
type CacheStore struct {
	client *redis.Client
	prefix string
}

var (
	ErrCacheGet    = errors.New("cache get failed")
	ErrCacheSet    = errors.New("cache set failed")
	ErrCacheDecode = errors.New("cache entry is not valid JSON")
)

// NewCacheStore creates a cache store over the given Redis client. Keys are
// namespaced under the prefix
func NewCacheStore(client *redis.Client, prefix string) *CacheStore {
	if prefix == "" {
		prefix = "lisaflow"
	}
	return &CacheStore{client: client, prefix: prefix}
}

// Handler executes a cache node. Nodes without an explicit key are
// input-addressed: the entry key is the content hash of the merged inputs,
// so identical inputs always land on the same entry
func (c *CacheStore) Handler(
	ctx context.Context, node *api.ExecutionNode, inputs api.Values,
) (api.Values, error) {
	cfg := node.Cache
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", api.ErrCacheRequired, node.ID)
	}

	name := cfg.Key
	if name == "" {
		hash, err := inputs.HashKey()
		if err != nil {
			return nil, err
		}
		name = hash
	}

	key := fmt.Sprintf("%s:cache:%s", c.prefix, name)
	switch cfg.Op {
	case api.CacheOpGet:
		return c.get(ctx, key)
	case api.CacheOpSet:
		return c.set(ctx, key, cfg, inputs)
	default:
		return nil, fmt.Errorf("%w: %q", api.ErrInvalidCacheOp, cfg.Op)
	}
}

// Close releases the underlying Redis connection
func (c *CacheStore) Close() error {
	return c.client.Close()
}

func (c *CacheStore) get(ctx context.Context, key string) (api.Values, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return api.Values{"hit": false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheGet, err)
	}

	var value api.Values
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheDecode, err)
	}
	return value.Merge(api.Values{"hit": true}), nil
}

func (c *CacheStore) set(
	ctx context.Context, key string, cfg *api.CacheConfig, inputs api.Values,
) (api.Values, error) {
	data, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeInputs, err)
	}

	ttl := time.Duration(cfg.TTLMs) * time.Millisecond
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheSet, err)
	}
	return inputs.Clone(), nil
}
