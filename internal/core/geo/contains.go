package geo

import "github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"

// Contains reports whether the point lies inside the boundary, checking
// the bounding box first and ray casting only when that passes.
//
// Points lying exactly on a ring edge keep the standard ray-casting
// ambiguity: their classification is unspecified.
func (b *Boundary) Contains(lat, lon float64) bool {
	if !b.Box.Contains(lat, lon) {
		return false
	}
	return b.containsExact(lat, lon)
}

// containsExact runs the polygon test without the box pre-filter. A point
// is inside a MultiPolygon if at least one constituent polygon contains
// it; inside a polygon means inside the outer ring and outside every hole.
func (b *Boundary) containsExact(lat, lon float64) bool {
	for _, p := range b.Polygons {
		if !ringContains(p.Outer, lat, lon) {
			continue
		}
		inHole := false
		for _, h := range p.Holes {
			if ringContains(h, lat, lon) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// ringContains is the standard even-odd ray cast: count how many ring
// edges a horizontal ray from the point crosses, comparing the point's
// latitude against each edge's latitude span and interpolating the
// crossing longitude. Odd count means inside. The ring is traversed as
// implicitly closed.
func ringContains(ring Ring, lat, lon float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > lat) != (vj.Lat > lat) &&
			lon < (vj.Lon-vi.Lon)*(lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Filter returns the places inside the boundary, preserving input order.
// It is a pure function: the input slice is never mutated and the same
// inputs always produce the same output. The returned stats expose how
// many candidates were rejected by the box check versus ray-cast tested.
func Filter(places []domain.Place, b *Boundary) ([]domain.Place, domain.FilterStats) {
	stats := domain.FilterStats{Candidates: len(places)}
	inside := make([]domain.Place, 0, len(places))
	for _, p := range places {
		if !b.Box.Contains(p.Location.Lat, p.Location.Lon) {
			stats.BoxRejected++
			continue
		}
		stats.RayCasted++
		if b.containsExact(p.Location.Lat, p.Location.Lon) {
			inside = append(inside, p)
		}
	}
	stats.Inside = len(inside)
	return inside, stats
}
