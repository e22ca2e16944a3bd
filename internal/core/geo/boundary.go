// Package geo implements the boundary loading and point-in-polygon
// containment core: GeoJSON state borders are decoded once per load,
// candidate places are pre-screened against the bounding box, and the
// survivors are ray-cast tested against the polygon rings.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
)

var (
	// ErrMissingGeometry is returned when the document carries no usable
	// Feature geometry.
	ErrMissingGeometry = errors.New("missing geometry")

	// ErrUnsupportedGeometry is returned for geometry types other than
	// Polygon and MultiPolygon.
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// Ring is a closed sequence of vertices. Rings are treated as implicitly
// closed: the edge from the last vertex back to the first is always
// traversed, whether or not the input repeats the first vertex.
type Ring []domain.GeoPoint

// Polygon is one outer ring plus zero or more hole rings.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// Boundary is a validated region border: one or more polygons with its
// precomputed bounding box. A Boundary is immutable once built.
type Boundary struct {
	Polygons []Polygon
	Box      domain.Bounds
}

// geoJSON decode shapes. Coordinates stay as raw positions until the
// geometry type is known.
type geoJSONDoc struct {
	Type     string        `json:"type"`
	Geometry *geoJSONGeom  `json:"geometry"`
	Features []geoJSONFeat `json:"features"`
}

type geoJSONFeat struct {
	Type     string       `json:"type"`
	Geometry *geoJSONGeom `json:"geometry"`
}

type geoJSONGeom struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// LoadBoundary parses raw GeoJSON (a Feature or a FeatureCollection) into
// a Boundary. The first Feature of a FeatureCollection is used; anything
// without a Polygon or MultiPolygon geometry is a shape error.
func LoadBoundary(raw []byte) (*Boundary, error) {
	var doc geoJSONDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	geom := doc.Geometry
	if doc.Type == "FeatureCollection" {
		if len(doc.Features) == 0 {
			return nil, ErrMissingGeometry
		}
		geom = doc.Features[0].Geometry
	}
	if geom == nil {
		return nil, ErrMissingGeometry
	}

	var polys [][][][2]float64 // multipolygon: polygons -> rings -> positions
	switch geom.Type {
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("parse polygon coordinates: %w", err)
		}
		polys = [][][][2]float64{rings}
	case "MultiPolygon":
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("parse multipolygon coordinates: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, geom.Type)
	}

	b := &Boundary{}
	for _, rings := range polys {
		if len(rings) == 0 {
			continue
		}
		p := Polygon{Outer: toRing(rings[0])}
		for _, hole := range rings[1:] {
			p.Holes = append(p.Holes, toRing(hole))
		}
		b.Polygons = append(b.Polygons, p)
	}
	if len(b.Polygons) == 0 || len(b.Polygons[0].Outer) == 0 {
		return nil, ErrMissingGeometry
	}

	b.Box = outerBounds(b.Polygons)
	return b, nil
}

// toRing converts GeoJSON [lon, lat] positions to vertices.
func toRing(positions [][2]float64) Ring {
	ring := make(Ring, 0, len(positions))
	for _, pos := range positions {
		ring = append(ring, domain.GeoPoint{Lat: pos[1], Lon: pos[0]})
	}
	return ring
}

// outerBounds scans only the outer rings. Holes cannot extend the box
// beyond the outer ring, so skipping them keeps the pre-filter safe.
func outerBounds(polys []Polygon) domain.Bounds {
	first := polys[0].Outer[0]
	box := domain.Bounds{
		MinLat: first.Lat, MaxLat: first.Lat,
		MinLon: first.Lon, MaxLon: first.Lon,
	}
	for _, p := range polys {
		for _, v := range p.Outer {
			box.Extend(v.Lat, v.Lon)
		}
	}
	return box
}
