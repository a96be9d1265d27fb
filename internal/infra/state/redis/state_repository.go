package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/repository"
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现。
// 每张打开中的图纸在 "<prefix>drawing:live:<owner:project:type>" 下
// 存一份完整的 JSON 镜像，带 TTL。
type RedisStateRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisStateRepository 创建 RedisStateRepository 实例。
// keyPrefix 用于隔离多套部署共用一个 Redis 的情况，例如 "pb:"。
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	return &RedisStateRepository{client: client, prefix: keyPrefix}
}

func (r *RedisStateRepository) liveKey(key domain.DrawingKey) string {
	return r.prefix + "drawing:live:" + key.String()
}

// GetLiveDrawing 读取图纸的实时镜像
func (r *RedisStateRepository) GetLiveDrawing(ctx context.Context, key domain.DrawingKey) (*domain.Drawing, error) {
	data, err := r.client.Get(ctx, r.liveKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrDrawingNotFound
		}
		return nil, fmt.Errorf("redis: get live drawing %s: %w", key, err)
	}
	var drawing domain.Drawing
	if err := json.Unmarshal(data, &drawing); err != nil {
		return nil, fmt.Errorf("redis: decode live drawing %s: %w", key, err)
	}
	return &drawing, nil
}

// SetLiveDrawing 写入实时镜像并刷新 TTL
func (r *RedisStateRepository) SetLiveDrawing(ctx context.Context, drawing *domain.Drawing, ttl time.Duration) error {
	data, err := json.Marshal(drawing)
	if err != nil {
		return fmt.Errorf("redis: encode live drawing %s: %w", drawing.Key, err)
	}
	if err := r.client.Set(ctx, r.liveKey(drawing.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set live drawing %s: %w", drawing.Key, err)
	}
	return nil
}

// RemoveLiveDrawing 删除实时镜像
func (r *RedisStateRepository) RemoveLiveDrawing(ctx context.Context, key domain.DrawingKey) error {
	if err := r.client.Del(ctx, r.liveKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: remove live drawing %s: %w", key, err)
	}
	return nil
}

// ListLiveKeys 用 SCAN 枚举全部实时镜像的图纸键（sweep 任务使用）
func (r *RedisStateRepository) ListLiveKeys(ctx context.Context) ([]domain.DrawingKey, error) {
	pattern := r.prefix + "drawing:live:*"
	var keys []domain.DrawingKey
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: scan live drawings: %w", err)
		}
		for _, raw := range batch {
			keyStr := strings.TrimPrefix(raw, r.prefix+"drawing:live:")
			key, err := domain.ParseDrawingKey(keyStr)
			if err != nil {
				// 非本服务写入的 key，跳过并记录
				logrus.WithField("redis_key", raw).Warn("Skipping unparsable live drawing key")
				continue
			}
			keys = append(keys, key)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
