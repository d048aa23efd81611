// Package cache keeps short-lived dashboard aggregates in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/events"
)

const summaryKey = "servicemeow:dashboard:summary"

// DashboardCache stores the dashboard summary between ticket changes.
type DashboardCache interface {
	GetSummary(ctx context.Context) (*domain.DashboardSummary, bool, error)
	SetSummary(ctx context.Context, summary *domain.DashboardSummary) error
	Invalidate(ctx context.Context) error
}

type redisDashboardCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisDashboardCache returns a no-op cache when client is nil or ttl is zero.
func NewRedisDashboardCache(client redis.Cmdable, ttl time.Duration) DashboardCache {
	if client == nil || ttl <= 0 {
		return noopDashboardCache{}
	}
	return &redisDashboardCache{client: client, ttl: ttl}
}

func (c *redisDashboardCache) GetSummary(ctx context.Context) (*domain.DashboardSummary, bool, error) {
	raw, err := c.client.Get(ctx, summaryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var summary domain.DashboardSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *redisDashboardCache) SetSummary(ctx context.Context, summary *domain.DashboardSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKey, raw, c.ttl).Err()
}

func (c *redisDashboardCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, summaryKey).Err()
}

type noopDashboardCache struct{}

func (noopDashboardCache) GetSummary(context.Context) (*domain.DashboardSummary, bool, error) {
	return nil, false, nil
}

func (noopDashboardCache) SetSummary(context.Context, *domain.DashboardSummary) error { return nil }

func (noopDashboardCache) Invalidate(context.Context) error { return nil }

// RegisterInvalidation drops the cached summary whenever ticket counts may change.
func RegisterInvalidation(dispatcher events.Dispatcher, cache DashboardCache, logger *zap.Logger) {
	if dispatcher == nil || cache == nil {
		return
	}
	handler := func(ctx context.Context, event events.Event) error {
		if err := cache.Invalidate(ctx); err != nil {
			logger.Warn("dashboard cache invalidation failed",
				zap.String("event_type", string(event.Type)), zap.Error(err))
			return err
		}
		return nil
	}
	for _, eventType := range events.TicketEventTypes {
		dispatcher.Subscribe(eventType, handler)
	}
}
