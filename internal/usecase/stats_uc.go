package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
	"github.com/ReadWriteReboot/ClassroomBank/internal/repository"
)

const (
	statsCacheKey = "classbank:stats"
	statsCacheTTL = 30 * time.Second
)

// StatsUsecase serves the class dashboard numbers, cached briefly in Redis.
// Every ledger mutation calls InvalidateCache so a refresh after an action
// always shows fresh figures.
type StatsUsecase struct {
	repo   repository.StatsRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewStatsUsecase(repo repository.StatsRepository, rdb *redis.Client, logger *zap.Logger) *StatsUsecase {
	return &StatsUsecase{repo: repo, rdb: rdb, logger: logger}
}

func (uc *StatsUsecase) ClassStats(ctx context.Context) (*domain.ClassStats, error) {
	if cached, err := uc.rdb.Get(ctx, statsCacheKey).Bytes(); err == nil {
		var stats domain.ClassStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
		// unreadable cache entry; fall through to the database
		uc.rdb.Del(ctx, statsCacheKey)
	} else if !errors.Is(err, redis.Nil) {
		uc.logger.Warn("stats cache read failed", zap.Error(err))
	}

	stats, err := uc.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err := uc.rdb.Set(ctx, statsCacheKey, payload, statsCacheTTL).Err(); err != nil {
			uc.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}

	return stats, nil
}

// InvalidateCache drops the cached snapshot. Safe to call even when nothing
// is cached.
func (uc *StatsUsecase) InvalidateCache(ctx context.Context) {
	if err := uc.rdb.Del(ctx, statsCacheKey).Err(); err != nil {
		uc.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}
