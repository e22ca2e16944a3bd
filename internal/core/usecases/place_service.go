package usecases

import (
	"context"
	"sort"
	"strings"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/ports"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/geospatial"
)

// PlaceService answers point queries over the default region's snapshot
// through a spatial index. The index is rebuilt whenever the snapshot
// refreshes.
type PlaceService struct {
	regions *RegionService
	index   ports.PlaceIndex
}

// NewPlaceService creates a new PlaceService.
func NewPlaceService(regions *RegionService, index ports.PlaceIndex) *PlaceService {
	return &PlaceService{regions: regions, index: index}
}

// Reindex loads the default region's snapshot into the spatial index.
func (s *PlaceService) Reindex(ctx context.Context) error {
	region, err := s.regions.Default(ctx)
	if err != nil {
		return err
	}
	snap, err := s.regions.Snapshot(ctx, region.Slug)
	if err != nil {
		return err
	}
	s.index.Replace(snap.Places)
	return nil
}

// FindNearby returns places within radiusKm of the point, closest
// first, lazily building the index on first use.
func (s *PlaceService) FindNearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]domain.Place, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if s.index.Size() == 0 {
		if err := s.Reindex(ctx); err != nil {
			return nil, err
		}
	}
	places := s.index.SearchRadius(lat, lon, radiusKm)
	sort.Slice(places, func(i, j int) bool {
		di := geospatial.HaversineKm(lat, lon, places[i].Location.Lat, places[i].Location.Lon)
		dj := geospatial.HaversineKm(lat, lon, places[j].Location.Lat, places[j].Location.Lon)
		return di < dj
	})
	if len(places) > limit {
		places = places[:limit]
	}
	return places, nil
}

// ExcludeCategories drops places whose category tag matches any of the
// given icons. Used by the handlers for per-page category exclusions;
// containment filtering never looks at categories.
func ExcludeCategories(places []domain.Place, excluded []string) []domain.Place {
	if len(excluded) == 0 {
		return places
	}
	drop := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		drop[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	kept := make([]domain.Place, 0, len(places))
	for _, p := range places {
		if _, skip := drop[strings.ToLower(p.Icon)]; skip {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
