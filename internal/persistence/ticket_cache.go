package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/tracking"
)

const ticketCacheKeyPrefix = "tracking:ticket:"

// TicketCache stores resolved tickets in Redis keyed by normalized ticket
// number. Cache faults never surface to callers; lookups fall back to the
// underlying store.
type TicketCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTicketCache creates the cache around an established Redis connection.
func NewTicketCache(r *Redis, ttl time.Duration, logger *zap.Logger) *TicketCache {
	var client *redis.Client
	if r != nil {
		client = r.Client
	}
	return &TicketCache{client: client, ttl: ttl, logger: logger}
}

func (c *TicketCache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func cacheKey(number string) string {
	return ticketCacheKeyPrefix + strings.ToLower(strings.TrimSpace(number))
}

// Get returns the cached ticket or (nil, nil) on a miss.
func (c *TicketCache) Get(ctx context.Context, number string) (*domain.RepairTicket, error) {
	if !c.enabled() {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, cacheKey(number)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var ticket domain.RepairTicket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Set stores the ticket under its normalized number.
func (c *TicketCache) Set(ctx context.Context, ticket *domain.RepairTicket) error {
	if !c.enabled() || ticket == nil {
		return nil
	}
	raw, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(ticket.TicketNumber), raw, c.ttl).Err()
}

// Invalidate drops the cached entry for the given ticket number.
func (c *TicketCache) Invalidate(ctx context.Context, number string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, cacheKey(number)).Err()
}

// CachedTicketStore decorates a TicketStore with read-through caching on
// exact ticket-number lookups. Substring searches always hit the store.
type CachedTicketStore struct {
	store  tracking.TicketStore
	cache  *TicketCache
	logger *zap.Logger
}

// NewCachedTicketStore wraps store with the given cache.
func NewCachedTicketStore(store tracking.TicketStore, cache *TicketCache, logger *zap.Logger) *CachedTicketStore {
	return &CachedTicketStore{store: store, cache: cache, logger: logger}
}

// FindByTicketNumber serves from cache when fresh, otherwise delegates and
// fills the cache on a hit.
func (s *CachedTicketStore) FindByTicketNumber(ctx context.Context, number string) (*domain.RepairTicket, error) {
	if cached, err := s.cache.Get(ctx, number); err != nil {
		s.logger.Warn("ticket cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	ticket, err := s.store.FindByTicketNumber(ctx, number)
	if err != nil || ticket == nil {
		return ticket, err
	}
	if err := s.cache.Set(ctx, ticket); err != nil {
		s.logger.Warn("ticket cache write failed", zap.Error(err))
	}
	return ticket, nil
}

// FindByCustomerNameSubstring delegates to the underlying store.
func (s *CachedTicketStore) FindByCustomerNameSubstring(ctx context.Context, fragment string, limit, offset int) ([]domain.RepairTicket, int, error) {
	return s.store.FindByCustomerNameSubstring(ctx, fragment, limit, offset)
}
