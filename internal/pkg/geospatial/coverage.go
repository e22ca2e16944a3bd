package geospatial

import (
	"math"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

// Radius clamps for generated coverage circles. The lower bound keeps
// tiny grid cells from producing useless pinpoint queries; the upper
// bound stays inside what the upstream API accepts.
const (
	minCircleRadiusKm = 40
	maxCircleRadiusKm = 300
)

// CoverageCircles places search circles over a region's bounding box so
// that radius queries against the upstream API approximate "everything
// in the region". A grid of cell-centered circles is sized from the
// box's approximate area, one extra circle covers the center, and each
// radius is the grid cell's half-diagonal (clamped) so neighboring
// circles overlap and leave no interior gaps.
//
// Irregular or archipelago-shaped regions are better served by
// hand-picked hub circles in the registry; this generator never
// overwrites entries that already carry circles.
func CoverageCircles(box domain.Bounds) []domain.CoverageCircle {
	midLat := (box.MinLat + box.MaxLat) / 2
	midLon := (box.MinLon + box.MaxLon) / 2

	// Box dimensions in km. Width is measured at the latitude closest to
	// the equator, where the box is widest, so cells are never undersized
	// at the box's wide edge.
	widthKm := HaversineKm(wideLat(box), box.MinLon, wideLat(box), box.MaxLon)
	heightKm := HaversineKm(box.MinLat, midLon, box.MaxLat, midLon)

	cols, rows := gridShape(widthKm * heightKm)
	cellW := widthKm / float64(cols)
	cellH := heightKm / float64(rows)

	// Half-diagonal reaches a cell's corner exactly; the extra 10% keeps
	// the corners covered despite the great-circle vs. grid mismatch.
	radius := clampRadius(math.Hypot(cellW, cellH) / 2 * 1.1)

	latStep := (box.MaxLat - box.MinLat) / float64(rows)
	lonStep := (box.MaxLon - box.MinLon) / float64(cols)

	var circles []domain.CoverageCircle
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			circles = append(circles, domain.CoverageCircle{
				Center: domain.GeoPoint{
					Lat: box.MinLat + (float64(r)+0.5)*latStep,
					Lon: box.MinLon + (float64(c)+0.5)*lonStep,
				},
				RadiusKm: radius,
			})
		}
	}

	// One more over the center; it papers over the corner seams of the
	// grid cells.
	circles = append(circles, domain.CoverageCircle{
		Center:   domain.GeoPoint{Lat: midLat, Lon: midLon},
		RadiusKm: radius,
	})
	return circles
}

// gridShape picks grid dimensions from the box area in km². The totals
// (including the center circle) stay between 3 and 13.
func gridShape(areaKm2 float64) (cols, rows int) {
	switch {
	case areaKm2 < 60000:
		return 2, 1
	case areaKm2 < 150000:
		return 2, 2
	case areaKm2 < 320000:
		return 3, 3
	default:
		return 4, 3
	}
}

// wideLat returns the latitude within the box closest to the equator.
func wideLat(box domain.Bounds) float64 {
	if box.MinLat > 0 {
		return box.MinLat
	}
	if box.MaxLat < 0 {
		return box.MaxLat
	}
	return 0
}

func clampRadius(r float64) float64 {
	if r < minCircleRadiusKm {
		return minCircleRadiusKm
	}
	if r > maxCircleRadiusKm {
		return maxCircleRadiusKm
	}
	return r
}
