package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache TTLs. Unread counts are invalidated on every send/read, the TTL is
// only a safety net against missed invalidations.
const (
	TTLUnreadCount      = 1 * time.Minute
	TTLConversationList = 30 * time.Second
	TTLDefault          = 5 * time.Minute
)

// Cache key prefixes
const (
	PrefixUnread        = "chat:unread:"
	PrefixConversations = "chat:conversations:"
)

// Service is the Redis cache interface used by the chat services
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Unread-count cache, keyed by conversation and viewer
	GetUnreadCount(ctx context.Context, conversationID, viewerID uint) (int64, bool)
	SetUnreadCount(ctx context.Context, conversationID, viewerID uint, count int64) error
	InvalidateUnread(ctx context.Context, conversationID uint, viewerIDs ...uint) error

	// Conversation list cache, keyed by viewer
	GetConversationList(ctx context.Context, viewerID uint) ([]byte, error)
	SetConversationList(ctx context.Context, viewerID uint, data interface{}) error
	InvalidateConversationList(ctx context.Context, viewerIDs ...uint) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache is the Redis-backed implementation
type redisCache struct {
	client *redis.Client
}

// NewService creates a new cache service
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable reports whether a Redis client is configured
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping tests the Redis connection
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get reads a JSON value from the cache
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return fmt.Errorf("redis not available")
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set writes a JSON value to the cache
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // no Redis, caching is skipped
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys from the cache
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func unreadKey(conversationID, viewerID uint) string {
	return fmt.Sprintf("%s%d:%d", PrefixUnread, conversationID, viewerID)
}

// GetUnreadCount returns a cached unread count if present
func (c *redisCache) GetUnreadCount(ctx context.Context, conversationID, viewerID uint) (int64, bool) {
	if c.client == nil {
		return 0, false
	}

	count, err := c.client.Get(ctx, unreadKey(conversationID, viewerID)).Int64()
	if err != nil {
		return 0, false
	}
	return count, true
}

// SetUnreadCount caches an unread count
func (c *redisCache) SetUnreadCount(ctx context.Context, conversationID, viewerID uint, count int64) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, unreadKey(conversationID, viewerID), count, TTLUnreadCount).Err()
}

// InvalidateUnread drops cached unread counts for the given viewers
func (c *redisCache) InvalidateUnread(ctx context.Context, conversationID uint, viewerIDs ...uint) error {
	if c.client == nil || len(viewerIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(viewerIDs))
	for _, viewerID := range viewerIDs {
		keys = append(keys, unreadKey(conversationID, viewerID))
	}
	return c.client.Del(ctx, keys...).Err()
}

func conversationListKey(viewerID uint) string {
	return fmt.Sprintf("%s%d", PrefixConversations, viewerID)
}

// GetConversationList returns a cached conversation list payload
func (c *redisCache) GetConversationList(ctx context.Context, viewerID uint) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("redis not available")
	}
	return c.client.Get(ctx, conversationListKey(viewerID)).Bytes()
}

// SetConversationList caches a conversation list payload
func (c *redisCache) SetConversationList(ctx context.Context, viewerID uint, data interface{}) error {
	return c.Set(ctx, conversationListKey(viewerID), data, TTLConversationList)
}

// InvalidateConversationList drops cached conversation lists for the given viewers
func (c *redisCache) InvalidateConversationList(ctx context.Context, viewerIDs ...uint) error {
	if c.client == nil || len(viewerIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(viewerIDs))
	for _, viewerID := range viewerIDs {
		keys = append(keys, conversationListKey(viewerID))
	}
	return c.client.Del(ctx, keys...).Err()
}
