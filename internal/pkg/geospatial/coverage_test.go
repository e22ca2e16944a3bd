package geospatial

import (
	"testing"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

func TestHaversineKm(t *testing.T) {
	// Indianapolis to Chicago, roughly 265 km.
	d := HaversineKm(39.7684, -86.1581, 41.8781, -87.6298)
	if d < 250 || d > 280 {
		t.Errorf("expected ~265 km, got %.1f", d)
	}

	if z := HaversineKm(40, -86, 40, -86); z != 0 {
		t.Errorf("distance to self should be 0, got %v", z)
	}
}

func TestCoverageCircles_CountAndClamp(t *testing.T) {
	// Roughly Indiana's bounding box.
	indiana := domain.Bounds{MinLat: 37.77, MaxLat: 41.76, MinLon: -88.1, MaxLon: -84.78}

	circles := CoverageCircles(indiana)
	if len(circles) < 3 || len(circles) > 13 {
		t.Fatalf("expected 3-13 circles, got %d", len(circles))
	}
	for i, c := range circles {
		if c.RadiusKm < minCircleRadiusKm || c.RadiusKm > maxCircleRadiusKm {
			t.Errorf("circle %d radius %.1f outside clamp range", i, c.RadiusKm)
		}
		if !indiana.Contains(c.Center.Lat, c.Center.Lon) {
			t.Errorf("circle %d center (%v) outside the box", i, c.Center)
		}
	}
}

func TestCoverageCircles_OverlapCoversBox(t *testing.T) {
	box := domain.Bounds{MinLat: 38, MaxLat: 42, MinLon: -88, MaxLon: -84}
	circles := CoverageCircles(box)

	// Probe a lattice of interior points; every one must fall inside at
	// least one circle, otherwise the grid left a coverage gap.
	for lat := box.MinLat; lat <= box.MaxLat; lat += 0.5 {
		for lon := box.MinLon; lon <= box.MaxLon; lon += 0.5 {
			covered := false
			for _, c := range circles {
				if HaversineKm(lat, lon, c.Center.Lat, c.Center.Lon) <= c.RadiusKm {
					covered = true
					break
				}
			}
			if !covered {
				t.Fatalf("point (%.1f, %.1f) not covered by any circle", lat, lon)
			}
		}
	}
}

func TestCoverageCircles_LargerBoxMoreCircles(t *testing.T) {
	small := domain.Bounds{MinLat: 39, MaxLat: 41, MinLon: -86, MaxLon: -84}
	large := domain.Bounds{MinLat: 30, MaxLat: 45, MinLon: -100, MaxLon: -80}

	if a, b := len(CoverageCircles(small)), len(CoverageCircles(large)); a >= b {
		t.Errorf("expected more circles for the larger box: %d vs %d", a, b)
	}
	if n := len(CoverageCircles(large)); n > 13 {
		t.Errorf("circle count should stay bounded, got %d", n)
	}
}
