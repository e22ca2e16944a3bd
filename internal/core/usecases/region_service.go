package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/geo"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/ports"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/metrics"
)

const (
	snapshotTTLSeconds = 600
	boundaryTTLSeconds = 86400
)

// RegionService owns the load pipeline for one region: fetch boundary,
// aggregate coverage circles, filter by containment, publish and cache
// the resulting snapshot.
type RegionService struct {
	regions    ports.RegionRegistry
	boundaries ports.BoundaryFetcher
	source     ports.PlaceSource
	cache      ports.CacheService
	events     ports.EventPublisher

	// Generation bookkeeping: each refresh takes the next generation for
	// its region, and a completed refresh whose generation is older than
	// the last published one is discarded. This replaces the source's
	// unguarded reload with an explicit stale-result check.
	mu        sync.Mutex
	nextGen   map[string]uint64
	published map[string]uint64
}

// NewRegionService creates a new RegionService. cache and events may be
// nil; the service then skips caching and event publication.
func NewRegionService(
	regions ports.RegionRegistry,
	boundaries ports.BoundaryFetcher,
	source ports.PlaceSource,
	cache ports.CacheService,
	events ports.EventPublisher,
) *RegionService {
	return &RegionService{
		regions:    regions,
		boundaries: boundaries,
		source:     source,
		cache:      cache,
		events:     events,
		nextGen:    make(map[string]uint64),
		published:  make(map[string]uint64),
	}
}

// List returns all registry entries.
func (s *RegionService) List(ctx context.Context) ([]domain.Region, error) {
	return s.regions.List(ctx)
}

// GetBySlug returns one region.
func (s *RegionService) GetBySlug(ctx context.Context, slug string) (*domain.Region, error) {
	return s.regions.GetBySlug(ctx, slug)
}

// Default returns the registry's default region.
func (s *RegionService) Default(ctx context.Context) (*domain.Region, error) {
	return s.regions.Default(ctx)
}

// Snapshot returns the current filtered place set for a region, serving
// from cache when possible and running a refresh otherwise.
func (s *RegionService) Snapshot(ctx context.Context, slug string) (*domain.RegionSnapshot, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, snapshotKey(slug)); err == nil {
			var snap domain.RegionSnapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				metrics.CacheHits.WithLabelValues("snapshot").Inc()
				return &snap, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("snapshot").Inc()
	}
	return s.Refresh(ctx, slug)
}

// Refresh re-runs the whole load pipeline for a region. A refresh that
// finishes after a newer one has already published is discarded and the
// newer snapshot is returned instead.
func (s *RegionService) Refresh(ctx context.Context, slug string) (*domain.RegionSnapshot, error) {
	region, err := s.regions.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	gen := s.takeGeneration(slug)
	started := time.Now()

	boundary, err := s.loadBoundary(ctx, region)
	if err != nil {
		s.reportFailure(ctx, slug, err)
		return nil, fmt.Errorf("boundary %s: %w", slug, err)
	}

	candidates, err := AggregateCircles(ctx, region.Circles, s.source)
	if err != nil {
		s.reportFailure(ctx, slug, err)
		return nil, fmt.Errorf("aggregate %s: %w", slug, err)
	}

	inside, stats := geo.Filter(candidates, boundary)
	metrics.PlacesFetched.WithLabelValues(slug).Add(float64(stats.Candidates))
	metrics.PlacesInside.WithLabelValues(slug).Add(float64(stats.Inside))
	metrics.BoxRejections.WithLabelValues(slug).Add(float64(stats.BoxRejected))
	metrics.RayCasts.WithLabelValues(slug).Add(float64(stats.RayCasted))

	snap := &domain.RegionSnapshot{
		Region:      slug,
		Places:      inside,
		Stats:       stats,
		Generation:  gen,
		RefreshedAt: time.Now().UTC(),
	}

	if stale := s.publish(snap); stale != nil {
		slog.Info("discarding stale refresh", "region", slug, "generation", gen)
		return s.Snapshot(ctx, slug)
	}

	slog.Info("region refreshed",
		"region", slug,
		"generation", gen,
		"candidates", stats.Candidates,
		"inside", stats.Inside,
		"took", time.Since(started).String(),
	)

	if s.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			_ = s.cache.Set(ctx, snapshotKey(slug), data, snapshotTTLSeconds)
		}
	}
	if s.events != nil {
		_ = s.events.PublishRegionRefreshed(ctx, snap)
	}
	return snap, nil
}

// loadBoundary fetches and parses a region's boundary, caching the raw
// document. Borders change on the order of never.
func (s *RegionService) loadBoundary(ctx context.Context, region *domain.Region) (*geo.Boundary, error) {
	key := boundaryKey(region.Slug)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			if b, err := geo.LoadBoundary(raw); err == nil {
				metrics.CacheHits.WithLabelValues("boundary").Inc()
				return b, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("boundary").Inc()
	}

	raw, err := s.boundaries.FetchBoundary(ctx, region.BoundaryURL)
	if err != nil {
		return nil, err
	}
	b, err := geo.LoadBoundary(raw)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, raw, boundaryTTLSeconds)
	}
	return b, nil
}

// takeGeneration hands out the next refresh generation for a region.
func (s *RegionService) takeGeneration(slug string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextGen[slug]++
	return s.nextGen[slug]
}

// publish records a completed refresh. It returns a non-nil error value
// when the snapshot lost the race to a newer generation.
func (s *RegionService) publish(snap *domain.RegionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Generation < s.published[snap.Region] {
		return fmt.Errorf("superseded by generation %d", s.published[snap.Region])
	}
	s.published[snap.Region] = snap.Generation
	return nil
}

func (s *RegionService) reportFailure(ctx context.Context, slug string, err error) {
	metrics.RefreshFailures.WithLabelValues(slug).Inc()
	if s.events != nil {
		_ = s.events.PublishRefreshFailed(ctx, slug, err.Error())
	}
}

func snapshotKey(slug string) string { return "region:snapshot:" + slug }
func boundaryKey(slug string) string { return "region:boundary:" + slug }
