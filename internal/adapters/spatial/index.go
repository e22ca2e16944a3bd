// Package spatial is the in-memory R-tree over the current filtered
// place snapshot, backing the nearby-search endpoint.
package spatial

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/geospatial"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2

	earthRadiusKm = 6371.0
)

type spatialItem struct {
	place domain.Place
	rect  *rtreego.Rect
}

func (si *spatialItem) Bounds() *rtreego.Rect {
	return si.rect
}

// Index implements ports.PlaceIndex. Replace swaps the whole tree at
// once; the index always reflects exactly one snapshot.
type Index struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	size int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
	}
}

// Replace rebuilds the index from a fresh place set, discarding the
// previous contents.
func (ix *Index) Replace(places []domain.Place) {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	count := 0
	for _, p := range places {
		if !p.HasValidLocation() {
			continue
		}
		pt := rtreego.Point{p.Location.Lat, p.Location.Lon}
		tree.Insert(&spatialItem{place: p, rect: pt.ToRect(tolerance)})
		count++
	}

	ix.mu.Lock()
	ix.tree = tree
	ix.size = count
	ix.mu.Unlock()
}

// SearchRadius returns every indexed place within radiusKm of the
// center, box-searched on the tree and then verified by exact distance.
func (ix *Index) SearchRadius(lat, lon, radiusKm float64) []domain.Place {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	deg := (radiusKm / earthRadiusKm) * (180 / math.Pi)
	bounds, err := rtreego.NewRect(
		rtreego.Point{lat - deg, lon - deg},
		[]float64{2 * deg, 2 * deg},
	)
	if err != nil {
		return nil
	}

	results := ix.tree.SearchIntersect(bounds)
	places := make([]domain.Place, 0, len(results))
	for _, result := range results {
		item := result.(*spatialItem)
		if geospatial.HaversineKm(lat, lon, item.place.Location.Lat, item.place.Location.Lon) <= radiusKm {
			places = append(places, item.place)
		}
	}
	return places
}

// Nearest returns the n indexed places closest to the given point.
func (ix *Index) Nearest(lat, lon float64, n int) []domain.Place {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := ix.tree.NearestNeighbors(n, rtreego.Point{lat, lon})
	places := make([]domain.Place, 0, len(results))
	for _, result := range results {
		if item, ok := result.(*spatialItem); ok {
			places = append(places, item.place)
		}
	}
	return places
}

// Size returns the number of indexed places.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.size
}
