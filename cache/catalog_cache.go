// Package cache provides Redis-backed caching for hot catalog reads.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Melodex/db"
	"Melodex/logger"
	"Melodex/model"

	"github.com/go-redis/redis/v8"
)

const (
	statsKey       = "catalog:stats"
	songListPrefix = "catalog:songs:" // catalog:songs:<category>
)

// CatalogCache 缓存统计信息和推荐歌曲列表，降低首页读压力
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache 创建目录缓存
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

// NewDefaultCatalogCache uses the global Redis client from db.
func NewDefaultCatalogCache(ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: db.RedisClient, ttl: ttl}
}

// GetStats 读取缓存的统计信息，未命中返回 (nil, nil)
func (c *CatalogCache) GetStats(ctx context.Context) (*model.Stats, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, statsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached stats: %w", err)
	}

	var stats model.Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	return &stats, nil
}

// SetStats 写入统计信息缓存
func (c *CatalogCache) SetStats(ctx context.Context, stats *model.Stats) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached stats: %w", err)
	}
	return nil
}

// GetSongList 读取缓存的歌曲列表，未命中返回 (nil, nil)
func (c *CatalogCache) GetSongList(ctx context.Context, category string) ([]*model.Song, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, songListPrefix+category).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached song list %s: %w", category, err)
	}

	var songs []*model.Song
	if err := json.Unmarshal([]byte(raw), &songs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached song list %s: %w", category, err)
	}
	return songs, nil
}

// SetSongList 写入歌曲列表缓存
func (c *CatalogCache) SetSongList(ctx context.Context, category string, songs []*model.Song) error {
	if c == nil || c.client == nil {
		return nil
	}

	raw, err := json.Marshal(songs)
	if err != nil {
		return fmt.Errorf("failed to marshal song list %s: %w", category, err)
	}
	if err := c.client.Set(ctx, songListPrefix+category, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached song list %s: %w", category, err)
	}
	return nil
}

// InvalidateCatalog 管理端增删后清空目录缓存
func (c *CatalogCache) InvalidateCatalog(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	keys := []string{statsKey}
	iter := c.client.Scan(ctx, 0, songListPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("[Cache] 扫描歌曲列表缓存键失败", logger.ErrorField(err))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		// 缓存失效失败只降级为日志，TTL 会兜底
		logger.Warn("[Cache] 目录缓存失效失败", logger.ErrorField(err))
	}
}
