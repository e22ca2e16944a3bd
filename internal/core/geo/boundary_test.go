package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareFeature = `{
	"type": "Feature",
	"properties": {"name": "Square"},
	"geometry": {
		"type": "Polygon",
		"coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]
	}
}`

const holedFeature = `{
	"type": "Feature",
	"geometry": {
		"type": "Polygon",
		"coordinates": [
			[[0,0],[10,0],[10,10],[0,10],[0,0]],
			[[4,4],[6,4],[6,6],[4,6],[4,4]]
		]
	}
}`

func TestLoadBoundary_Feature(t *testing.T) {
	b, err := LoadBoundary([]byte(squareFeature))
	require.NoError(t, err)
	require.Len(t, b.Polygons, 1)
	assert.Len(t, b.Polygons[0].Outer, 5)
	assert.Empty(t, b.Polygons[0].Holes)

	assert.Equal(t, 0.0, b.Box.MinLon)
	assert.Equal(t, 10.0, b.Box.MaxLon)
	assert.Equal(t, 0.0, b.Box.MinLat)
	assert.Equal(t, 10.0, b.Box.MaxLat)
}

func TestLoadBoundary_FeatureCollectionUsesFirstFeature(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[` + squareFeature + `]}`
	b, err := LoadBoundary([]byte(doc))
	require.NoError(t, err)
	assert.Len(t, b.Polygons, 1)
}

func TestLoadBoundary_MultiPolygon(t *testing.T) {
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
	b, err := LoadBoundary([]byte(doc))
	require.NoError(t, err)
	require.Len(t, b.Polygons, 2)

	// Box spans both outer rings.
	assert.Equal(t, 0.0, b.Box.MinLon)
	assert.Equal(t, 30.0, b.Box.MaxLon)
}

func TestLoadBoundary_HolesDoNotAffectBox(t *testing.T) {
	b, err := LoadBoundary([]byte(holedFeature))
	require.NoError(t, err)
	require.Len(t, b.Polygons[0].Holes, 1)
	assert.Equal(t, 10.0, b.Box.MaxLon)
	assert.Equal(t, 10.0, b.Box.MaxLat)
}

func TestLoadBoundary_MissingGeometry(t *testing.T) {
	for name, doc := range map[string]string{
		"empty feature":    `{"type":"Feature"}`,
		"empty collection": `{"type":"FeatureCollection","features":[]}`,
		"feature no geom":  `{"type":"FeatureCollection","features":[{"type":"Feature"}]}`,
	} {
		_, err := LoadBoundary([]byte(doc))
		assert.ErrorIs(t, err, ErrMissingGeometry, name)
	}
}

func TestLoadBoundary_UnsupportedGeometry(t *testing.T) {
	for _, typ := range []string{"Point", "LineString"} {
		doc := `{"type":"Feature","geometry":{"type":"` + typ + `","coordinates":[0,0]}}`
		_, err := LoadBoundary([]byte(doc))
		assert.ErrorIs(t, err, ErrUnsupportedGeometry, typ)
	}
}

func TestLoadBoundary_InvalidJSON(t *testing.T) {
	_, err := LoadBoundary([]byte(`{not json`))
	assert.Error(t, err)
}
