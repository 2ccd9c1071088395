// Package geo provides the geographic primitives for map generation:
// WGS84 bounding boxes, the linear projection into the terrain's local
// coordinate space, and slippy-map tile arithmetic.
package geo

import "fmt"

// Span is the edge length of the target map in local units. It matches
// the generated terrain's square size, so a bounding box always maps onto
// the full terrain regardless of its geographic extent.
const Span = 2048.0

// Point is a position in local map space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// BoundingBox is a geographic rectangle in WGS84 decimal degrees.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Validate checks that the box is well-formed and non-degenerate.
// Projection requires a strictly positive extent on both axes.
func (b BoundingBox) Validate() error {
	if b.MinLat < -90 || b.MaxLat > 90 {
		return fmt.Errorf("latitude out of range: [%f, %f]", b.MinLat, b.MaxLat)
	}
	if b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("longitude out of range: [%f, %f]", b.MinLon, b.MaxLon)
	}
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("degenerate latitude extent: min %f >= max %f", b.MinLat, b.MaxLat)
	}
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("degenerate longitude extent: min %f >= max %f", b.MinLon, b.MaxLon)
	}
	return nil
}

// Project maps a WGS84 coordinate inside bbox to local map space.
//
// The mapping is a plain linear rescale of each axis onto [0, Span], not a
// geodesic projection. Elevation is attached separately from raster data;
// Y is always zero here.
//
// The bounding box must be validated as non-degenerate before calling.
func Project(lat, lon float64, bbox BoundingBox) Point {
	return Point{
		X: (lon - bbox.MinLon) / (bbox.MaxLon - bbox.MinLon) * Span,
		Y: 0,
		Z: (lat - bbox.MinLat) / (bbox.MaxLat - bbox.MinLat) * Span,
	}
}
