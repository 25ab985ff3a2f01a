package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ProgressCache keeps english progress snapshots in front of the progress table.
// Backend failures degrade to a miss; writers invalidate after their transaction commits.
type ProgressCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewProgressCache constructs a progress cache. A disabled cache never hits.
func NewProgressCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *ProgressCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

func progressCacheKey(studentID string) string {
	return fmt.Sprintf("english:progress:%s", studentID)
}

// Enabled indicates whether caching is active.
func (c *ProgressCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Get returns the cached snapshot for studentID.
func (c *ProgressCache) Get(ctx context.Context, studentID string) (*models.EnglishProgress, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := progressCacheKey(studentID)
	start := time.Now()
	var progress models.EnglishProgress
	err := c.repo.Get(ctx, key, &progress)
	if err == nil && progress.StudentID != studentID {
		c.logger.Warn("discarding mismatched progress snapshot", zap.String("key", key), zap.String("student_id", progress.StudentID))
		c.Invalidate(ctx, studentID)
		err = appErrors.ErrCacheMiss
	}
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("progress cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &progress, true
}

// Put stores a snapshot keyed by its student.
func (c *ProgressCache) Put(ctx context.Context, progress *models.EnglishProgress) {
	if !c.Enabled() || progress == nil {
		return
	}
	key := progressCacheKey(progress.StudentID)
	if err := c.repo.Set(ctx, key, progress, c.ttl); err != nil {
		c.logger.Warn("progress cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the snapshots of the given students.
func (c *ProgressCache) Invalidate(ctx context.Context, studentIDs ...string) {
	if !c.Enabled() || len(studentIDs) == 0 {
		return
	}
	keys := make([]string, len(studentIDs))
	for i, id := range studentIDs {
		keys[i] = progressCacheKey(id)
	}
	if err := c.repo.Delete(ctx, keys...); err != nil {
		c.logger.Warn("progress cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
