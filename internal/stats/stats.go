// Package stats computes campaign-level and global engagement reporting
// from stored delivery records. Reads are side-effect free and safe to run
// concurrently with sends and tracking callbacks; the numbers reflect the
// latest committed delivery-record state.
package stats

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/campaign-tracker/internal/domain"
	"github.com/ignite/campaign-tracker/internal/repository"
)

const (
	globalKey         = "stats:global"
	campaignKeyPrefix = "stats:campaign:"
)

// Service aggregates engagement stats, with an optional redis snapshot
// cache in front of the store. A nil redis client disables caching; redis
// errors are logged and treated as cache misses.
type Service struct {
	store repository.StatsStore
	cache *redis.Client
	ttl   time.Duration
}

// NewService creates an aggregator. cache may be nil.
func NewService(store repository.StatsStore, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{store: store, cache: cache, ttl: ttl}
}

// Campaign returns the stats snapshot for one campaign.
func (s *Service) Campaign(ctx context.Context, campaignID string) (*domain.CampaignStats, error) {
	key := campaignKeyPrefix + campaignID

	var cached domain.CampaignStats
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.store.CampaignStats(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, stats)
	return stats, nil
}

// Global returns the all-campaigns stats snapshot.
func (s *Service) Global(ctx context.Context) (*domain.GlobalStats, error) {
	var cached domain.GlobalStats
	if s.fromCache(ctx, globalKey, &cached) {
		return &cached, nil
	}

	stats, err := s.store.GlobalStats(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, globalKey, stats)
	return stats, nil
}

func (s *Service) fromCache(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("ERROR stats cache get %s: %v", key, err)
		}
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *Service) toCache(ctx context.Context, key string, v interface{}) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		log.Printf("ERROR stats cache set %s: %v", key, err)
	}
}
