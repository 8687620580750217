package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sleep-analyzer/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	latestReportKey = "sleep-analyzer:report:latest"
	defaultTTL      = 5 * time.Minute
)

// ReportCache 最新报告的 Redis 读缓存
// 只是读路径加速：未命中或 Redis 故障都回落到数据库，不影响正确性
type ReportCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      *zap.Logger
}

// NewReportCache 创建报告缓存
func NewReportCache(redisClient *redis.Client, logger *zap.Logger) *ReportCache {
	return &ReportCache{
		redisClient: redisClient,
		ttl:         defaultTTL,
		logger:      logger,
	}
}

// GetLatest 读取缓存的最新报告；未命中返回 (nil, nil)
func (c *ReportCache) GetLatest(ctx context.Context) (*models.AnalysisReport, error) {
	val, err := c.redisClient.Get(ctx, latestReportKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached report: %w", err)
	}

	var report models.AnalysisReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		// 缓存损坏按未命中处理，同时清掉坏数据
		c.logger.Warn("Corrupted report cache entry, dropping",
			zap.Error(err),
		)
		_ = c.redisClient.Del(ctx, latestReportKey).Err()
		return nil, nil
	}

	return &report, nil
}

// SetLatest 写入最新报告（带 TTL）
func (c *ReportCache) SetLatest(ctx context.Context, report *models.AnalysisReport) error {
	jsonData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := c.redisClient.Set(ctx, latestReportKey, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	return nil
}

// Invalidate 新报告落库或叙述更新后使缓存失效
func (c *ReportCache) Invalidate(ctx context.Context) error {
	if err := c.redisClient.Del(ctx, latestReportKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report cache: %w", err)
	}
	return nil
}
