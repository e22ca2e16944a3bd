package usecases

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/ports"
)

// AggregateCircles fetches every coverage circle concurrently and merges
// the results into one deduplicated candidate set. If any single circle
// query fails the whole aggregation fails, surfacing that circle's error.
//
// Results are collected per circle index and merged in circle-list order,
// so "first occurrence wins" is deterministic even though the fetches run
// concurrently. Places without finite coordinates are dropped silently.
// Category exclusions and polygon containment are the caller's concern.
func AggregateCircles(ctx context.Context, circles []domain.CoverageCircle, source ports.PlaceSource) ([]domain.Place, error) {
	results := make([][]domain.Place, len(circles))

	g, ctx := errgroup.WithContext(ctx)
	for i, circle := range circles {
		i, circle := i, circle
		g.Go(func() error {
			places, err := source.FetchCircle(ctx, circle)
			if err != nil {
				return fmt.Errorf("circle %d (%.3f,%.3f r=%.0fkm): %w",
					i, circle.Center.Lat, circle.Center.Lon, circle.RadiusKm, err)
			}
			results[i] = places
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var merged []domain.Place
	for _, places := range results {
		for _, p := range places {
			if !p.HasValidLocation() {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged, nil
}
