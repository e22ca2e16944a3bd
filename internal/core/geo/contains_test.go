package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

func mustBoundary(t *testing.T, doc string) *Boundary {
	t.Helper()
	b, err := LoadBoundary([]byte(doc))
	require.NoError(t, err)
	return b
}

func place(id int64, lat, lon float64) domain.Place {
	return domain.Place{ID: id, Location: domain.GeoPoint{Lat: lat, Lon: lon}}
}

func TestContains_Square(t *testing.T) {
	b := mustBoundary(t, squareFeature)

	assert.True(t, b.Contains(5, 5))
	assert.False(t, b.Contains(5, 15))
	assert.False(t, b.Contains(15, 5))
}

func TestContains_Hole(t *testing.T) {
	b := mustBoundary(t, holedFeature)

	assert.True(t, b.Contains(2, 2), "between outer ring and hole")
	assert.False(t, b.Contains(5, 5), "inside the hole")
}

func TestContains_MultiPolygon(t *testing.T) {
	doc := `{
		"type": "Feature",
		"geometry": {
			"type": "MultiPolygon",
			"coordinates": [
				[[[0,0],[10,0],[10,10],[0,10],[0,0]]],
				[[[20,20],[30,20],[30,30],[20,30],[20,20]]]
			]
		}
	}`
	b := mustBoundary(t, doc)

	assert.True(t, b.Contains(5, 5))
	assert.True(t, b.Contains(25, 25))
	assert.False(t, b.Contains(15, 15), "gap between the polygons")
}

func TestFilter_BoxRejectionSkipsRayCast(t *testing.T) {
	b := mustBoundary(t, squareFeature)

	places := []domain.Place{
		place(1, 5, 5),   // inside
		place(2, 50, 50), // outside the box entirely
		place(3, -5, 5),  // outside the box entirely
		place(4, 9, 9),   // inside
	}
	inside, stats := Filter(places, b)

	assert.Len(t, inside, 2)
	assert.Equal(t, 4, stats.Candidates)
	assert.Equal(t, 2, stats.BoxRejected)
	assert.Equal(t, 2, stats.RayCasted, "box-rejected points must not be ray-cast")
	assert.Equal(t, 2, stats.Inside)
}

func TestFilter_InsideBoxOutsidePolygon(t *testing.T) {
	// Triangle cut from the square's corner: the box still spans 0..10
	// on both axes, so (1,9) passes the box check but fails the ray cast.
	doc := `{
		"type": "Feature",
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[0,0],[10,0],[10,10],[0,0]]]
		}
	}`
	b := mustBoundary(t, doc)

	places := []domain.Place{
		place(1, 2, 8),   // inside the triangle
		place(2, 50, 50), // outside the box
		place(3, 9, 1),   // inside the box, outside the triangle
	}
	inside, stats := Filter(places, b)

	require.Len(t, inside, 1)
	assert.Equal(t, int64(1), inside[0].ID)
	assert.Equal(t, 1, stats.BoxRejected)
	assert.Equal(t, 2, stats.RayCasted)
}

func TestFilter_PureAndIdempotent(t *testing.T) {
	b := mustBoundary(t, squareFeature)
	places := []domain.Place{place(1, 5, 5), place(2, 50, 50), place(3, 1, 1)}

	first, firstStats := Filter(places, b)
	second, secondStats := Filter(places, b)

	assert.Equal(t, first, second)
	assert.Equal(t, firstStats, secondStats)

	// Input order and content untouched.
	assert.Equal(t, int64(1), places[0].ID)
	assert.Equal(t, int64(2), places[1].ID)
	assert.Equal(t, int64(3), places[2].ID)
}

func TestFilter_ImplicitlyClosedRing(t *testing.T) {
	// Same square without the repeated closing vertex.
	doc := `{
		"type": "Feature",
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[0,0],[10,0],[10,10],[0,10]]]
		}
	}`
	b := mustBoundary(t, doc)

	assert.True(t, b.Contains(5, 5))
	assert.False(t, b.Contains(5, 15))
}
