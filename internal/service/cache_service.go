package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheService caches half-year snapshots and records hit metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	prefix     string
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, prefix string, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, prefix: prefix, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func (s *CacheService) snapshotKey(hy models.HalfYear) string {
	return cache.Key(s.prefix, "snapshot", string(hy))
}

// GetSnapshot returns the cached snapshot of hy. The bool reports a hit.
func (s *CacheService) GetSnapshot(ctx context.Context, hy models.HalfYear) (models.Snapshot, bool, error) {
	var snap models.Snapshot
	if !s.Enabled() {
		return snap, false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, s.snapshotKey(hy), &snap)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return snap, false, nil
		}
		s.logger.Warn("cache get failed", zap.String("half_year", string(hy)), zap.Error(err))
		return snap, false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return snap, true, nil
}

// SetSnapshot stores snap under its half-year.
func (s *CacheService) SetSnapshot(ctx context.Context, snap models.Snapshot) error {
	if !s.Enabled() {
		return nil
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.snapshotKey(snap.HalfYear), snap, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("half_year", string(snap.HalfYear)), zap.Error(err))
	}
	return err
}

// Invalidate drops the cached snapshot of hy.
func (s *CacheService) Invalidate(ctx context.Context, hy models.HalfYear) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, s.snapshotKey(hy)); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("half_year", string(hy)), zap.Error(err))
		return err
	}
	return nil
}
