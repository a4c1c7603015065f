// internal/service/workhours/service.go
package workhours

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tahseel-service/internal/domain/workhours"
	xerrors "tahseel-service/internal/pkg/errors"
)

// ConfigRepository is the datastore slice this service needs.
type ConfigRepository interface {
	FindByCompany(ctx context.Context, companyID int64) (*workhours.Config, error)
}

// ConfigCache is a keyed TTL store for per-company business-hours configs.
// It is an explicit component, not an ambient module-level cache.
type ConfigCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewConfigCache(rdb *redis.Client, ttl time.Duration) *ConfigCache {
	return &ConfigCache{rdb: rdb, ttl: ttl}
}

func (c *ConfigCache) key(companyID int64) string {
	return fmt.Sprintf("workhours:config:%d", companyID)
}

func (c *ConfigCache) Get(ctx context.Context, companyID int64) (*workhours.Config, error) {
	b, err := c.rdb.Get(ctx, c.key(companyID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg workhours.Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ConfigCache) Put(ctx context.Context, cfg *workhours.Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(cfg.CompanyID), b, c.ttl).Err()
}

// ConfigService loads company configs with a cache in front and falls back
// to the UAE default when a company has never customized its hours.
type ConfigService struct {
	repo   ConfigRepository
	cache  *ConfigCache
	logger *zap.Logger
}

func NewConfigService(repo ConfigRepository, cache *ConfigCache, logger *zap.Logger) *ConfigService {
	return &ConfigService{repo: repo, cache: cache, logger: logger}
}

func (s *ConfigService) ForCompany(ctx context.Context, companyID int64) (*workhours.Config, error) {
	if s.cache != nil {
		if cfg, err := s.cache.Get(ctx, companyID); err != nil {
			s.logger.Warn("business hours cache read failed", zap.Error(err), zap.Int64("company_id", companyID))
		} else if cfg != nil {
			return cfg, nil
		}
	}

	cfg, err := s.repo.FindByCompany(ctx, companyID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			cfg = workhours.DefaultConfig(companyID)
		} else {
			return nil, fmt.Errorf("failed to load business hours config: %w", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, cfg); err != nil {
			s.logger.Warn("business hours cache write failed", zap.Error(err), zap.Int64("company_id", companyID))
		}
	}
	return cfg, nil
}
