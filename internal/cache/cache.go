package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// Key namespaces
const (
	videoPrefix = "video:"
	quotaPrefix = "quota:"
	lockPrefix  = "lock:"
	statsKey    = "stats"
)

// releaseScript deletes a lock only while it still holds our token, so a
// holder whose TTL lapsed cannot free a lock someone else has since taken
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Cache is the Redis-backed read cache, stats counter and lock service
// shared by the API and the worker
type Cache struct {
	client *redis.Client
	owner  string // lock token identifying this process
}

// New connects to Redis at addr and pings it
func New(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, owner: uuid.NewString()}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Health pings Redis
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetVideo caches a video record for ttl
func (c *Cache) SetVideo(ctx context.Context, video *models.Video, ttl time.Duration) error {
	return c.set(ctx, videoPrefix+video.ID, video, ttl)
}

// GetVideo returns the cached video, or nil on a miss
func (c *Cache) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	return get[models.Video](ctx, c.client, videoPrefix+videoID)
}

func (c *Cache) DeleteVideo(ctx context.Context, videoID string) error {
	return c.client.Del(ctx, videoPrefix+videoID).Err()
}

// SetQuotaInfo caches a user's quota summary for ttl
func (c *Cache) SetQuotaInfo(ctx context.Context, userID string, info *models.QuotaInfo, ttl time.Duration) error {
	return c.set(ctx, quotaPrefix+userID, info, ttl)
}

// GetQuotaInfo returns the cached quota summary, or nil on a miss
func (c *Cache) GetQuotaInfo(ctx context.Context, userID string) (*models.QuotaInfo, error) {
	return get[models.QuotaInfo](ctx, c.client, quotaPrefix+userID)
}

func (c *Cache) DeleteQuotaInfo(ctx context.Context, userID string) error {
	return c.client.Del(ctx, quotaPrefix+userID).Err()
}

// IncrementStat bumps one field of the shared stats hash
func (c *Cache) IncrementStat(ctx context.Context, stat string) error {
	return c.client.HIncrBy(ctx, statsKey, stat, 1).Err()
}

// GetStat reads one stats field; unset stats read as zero
func (c *Cache) GetStat(ctx context.Context, stat string) (int64, error) {
	value, err := c.client.HGet(ctx, statsKey, stat).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return value, err
}

// Stats returns every counter in the stats hash
func (c *Cache) Stats(ctx context.Context) (map[string]int64, error) {
	raw, err := c.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stat %s is not a number: %w", k, err)
		}
		stats[k] = n
	}
	return stats, nil
}

// AcquireLock takes resource for ttl unless another holder has it
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, lockPrefix+resource, c.owner, ttl).Result()
}

// ReleaseLock frees resource if this process still holds it
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	return releaseScript.Run(ctx, c.client, []string{lockPrefix + resource}, c.owner).Err()
}

func (c *Cache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func get[T any](ctx context.Context, client *redis.Client, key string) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &v, nil
}
