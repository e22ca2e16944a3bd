package ports

import (
	"context"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRegionRefreshed(ctx context.Context, snapshot *domain.RegionSnapshot) error
	PublishRefreshFailed(ctx context.Context, region string, reason string) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
