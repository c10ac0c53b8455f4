package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"fragrance-sync-layer/internal/domain"
	"fragrance-sync-layer/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	keyPrimaryLocation  = "topology:primary_location"
	keyMarketPriceLists = "topology:market_price_lists"
)

// TopologyCache caches the slow-changing platform topology (primary stock
// location id, market price lists) with a TTL and explicit invalidation.
// The memory layer makes repeat lookups free within one worker; the
// optional Redis layer shares the cache across workers. Redis failures
// degrade to memory-only with a warning.
type TopologyCache struct {
	client ports.CommerceClient
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger

	// fixedLocation, when non-zero, bypasses the location lookup entirely.
	fixedLocation uint64

	mu         sync.RWMutex
	location   uint64
	locationAt time.Time
	priceLists map[string]domain.PriceList
	listsAt    time.Time
}

// NewTopologyCache creates a topology cache. rdb may be nil. locationID is
// the optional fixed override from configuration ("" to discover).
func NewTopologyCache(client ports.CommerceClient, rdb *redis.Client, ttl time.Duration, locationID string, logger zerolog.Logger) (*TopologyCache, error) {
	var fixed uint64
	if locationID != "" {
		v, err := strconv.ParseUint(locationID, 10, 64)
		if err != nil {
			return nil, err
		}
		fixed = v
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TopologyCache{
		client:        client,
		rdb:           rdb,
		ttl:           ttl,
		fixedLocation: fixed,
		logger:        logger,
	}, nil
}

// PrimaryLocation returns the stock location against which absolute
// quantities are set: the configured override when present, otherwise the
// first active location reported by the platform.
func (t *TopologyCache) PrimaryLocation(ctx context.Context) (uint64, error) {
	if t.fixedLocation != 0 {
		return t.fixedLocation, nil
	}

	t.mu.RLock()
	if t.location != 0 && time.Since(t.locationAt) < t.ttl {
		id := t.location
		t.mu.RUnlock()
		return id, nil
	}
	t.mu.RUnlock()

	if id := t.locationFromRedis(ctx); id != 0 {
		t.storeLocation(id)
		return id, nil
	}

	locations, err := t.client.ListLocations(ctx)
	if err != nil {
		return 0, err
	}
	if len(locations) == 0 {
		return 0, &domain.NotFoundError{Resource: "stock location"}
	}

	chosen := locations[0]
	for _, l := range locations {
		if l.Active {
			chosen = l
			break
		}
	}

	t.storeLocation(chosen.ID)
	t.redisSet(ctx, keyPrimaryLocation, strconv.FormatUint(chosen.ID, 10))
	t.logger.Info().Uint64("locationId", chosen.ID).Str("name", chosen.Name).Msg("Resolved primary stock location")
	return chosen.ID, nil
}

// MarketPriceLists returns the market name to price-list mapping.
func (t *TopologyCache) MarketPriceLists(ctx context.Context) (map[string]domain.PriceList, error) {
	t.mu.RLock()
	if t.priceLists != nil && time.Since(t.listsAt) < t.ttl {
		lists := t.priceLists
		t.mu.RUnlock()
		return lists, nil
	}
	t.mu.RUnlock()

	if lists := t.priceListsFromRedis(ctx); lists != nil {
		t.storePriceLists(lists)
		return lists, nil
	}

	lists, err := t.client.GetMarketPriceLists(ctx)
	if err != nil {
		return nil, err
	}

	t.storePriceLists(lists)
	if payload, err := json.Marshal(lists); err == nil {
		t.redisSet(ctx, keyMarketPriceLists, string(payload))
	}
	t.logger.Info().Int("markets", len(lists)).Msg("Resolved market price lists")
	return lists, nil
}

// Invalidate drops both cache layers so the next lookup refetches topology.
func (t *TopologyCache) Invalidate(ctx context.Context) error {
	t.mu.Lock()
	t.location = 0
	t.priceLists = nil
	t.mu.Unlock()

	if t.rdb != nil {
		if err := t.rdb.Del(ctx, keyPrimaryLocation, keyMarketPriceLists).Err(); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to drop topology keys from redis")
			return err
		}
	}
	t.logger.Info().Msg("Topology cache invalidated")
	return nil
}

func (t *TopologyCache) storeLocation(id uint64) {
	t.mu.Lock()
	t.location = id
	t.locationAt = time.Now()
	t.mu.Unlock()
}

func (t *TopologyCache) storePriceLists(lists map[string]domain.PriceList) {
	t.mu.Lock()
	t.priceLists = lists
	t.listsAt = time.Now()
	t.mu.Unlock()
}

func (t *TopologyCache) locationFromRedis(ctx context.Context) uint64 {
	if t.rdb == nil {
		return 0
	}
	s, err := t.rdb.Get(ctx, keyPrimaryLocation).Result()
	if err != nil {
		if err != redis.Nil {
			t.logger.Warn().Err(err).Msg("Redis topology read failed")
		}
		return 0
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (t *TopologyCache) priceListsFromRedis(ctx context.Context) map[string]domain.PriceList {
	if t.rdb == nil {
		return nil
	}
	s, err := t.rdb.Get(ctx, keyMarketPriceLists).Result()
	if err != nil {
		if err != redis.Nil {
			t.logger.Warn().Err(err).Msg("Redis topology read failed")
		}
		return nil
	}
	var lists map[string]domain.PriceList
	if err := json.Unmarshal([]byte(s), &lists); err != nil {
		return nil
	}
	return lists
}

func (t *TopologyCache) redisSet(ctx context.Context, key, value string) {
	if t.rdb == nil {
		return
	}
	if err := t.rdb.Set(ctx, key, value, t.ttl).Err(); err != nil {
		t.logger.Warn().Err(err).Str("key", key).Msg("Redis topology write failed")
	}
}
