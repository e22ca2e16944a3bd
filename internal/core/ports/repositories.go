package ports

import (
	"context"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

// RegionRegistry resolves regions from the registry file.
type RegionRegistry interface {
	List(ctx context.Context) ([]domain.Region, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Region, error)
	Default(ctx context.Context) (*domain.Region, error)
}

// MeetupRepository serves the authoritative local meetup data.
type MeetupRepository interface {
	List(ctx context.Context) ([]domain.Meetup, error)
	ListByState(ctx context.Context, state string) ([]domain.Meetup, error)
	GetByID(ctx context.Context, id string) (*domain.Meetup, error)
}

// PlaceSource fetches candidate places from the upstream search API.
// FetchCircle returns every place the API reports within one coverage
// circle.
type PlaceSource interface {
	FetchCircle(ctx context.Context, circle domain.CoverageCircle) ([]domain.Place, error)
}

// BoundaryFetcher retrieves a region's raw GeoJSON boundary document.
type BoundaryFetcher interface {
	FetchBoundary(ctx context.Context, url string) ([]byte, error)
}

// PlaceIndex is a spatial index over a filtered place snapshot.
type PlaceIndex interface {
	Replace(places []domain.Place)
	SearchRadius(lat, lon, radiusKm float64) []domain.Place
	Nearest(lat, lon float64, n int) []domain.Place
	Size() int
}
