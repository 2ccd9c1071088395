package geo

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestProjectCorners(t *testing.T) {
	bbox := BoundingBox{MinLat: 52.5, MinLon: 13.3, MaxLat: 52.6, MaxLon: 13.5}

	tests := []struct {
		name     string
		lat, lon float64
		wantX    float64
		wantZ    float64
	}{
		{name: "southwest corner", lat: bbox.MinLat, lon: bbox.MinLon, wantX: 0, wantZ: 0},
		{name: "northeast corner", lat: bbox.MaxLat, lon: bbox.MaxLon, wantX: Span, wantZ: Span},
		{name: "midpoint", lat: 52.55, lon: 13.4, wantX: Span / 2, wantZ: Span / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Project(tt.lat, tt.lon, bbox)
			if !almostEqual(p.X, tt.wantX, 1e-6) {
				t.Errorf("Project(%f, %f) X = %f, want %f", tt.lat, tt.lon, p.X, tt.wantX)
			}
			if !almostEqual(p.Z, tt.wantZ, 1e-6) {
				t.Errorf("Project(%f, %f) Z = %f, want %f", tt.lat, tt.lon, p.Z, tt.wantZ)
			}
			if p.Y != 0 {
				t.Errorf("Project(%f, %f) Y = %f, want 0", tt.lat, tt.lon, p.Y)
			}
		})
	}
}

func TestBoundingBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		bbox    BoundingBox
		wantErr bool
	}{
		{name: "valid", bbox: BoundingBox{MinLat: 0, MinLon: 0, MaxLat: 0.01, MaxLon: 0.01}, wantErr: false},
		{name: "degenerate latitude", bbox: BoundingBox{MinLat: 1, MinLon: 0, MaxLat: 1, MaxLon: 1}, wantErr: true},
		{name: "degenerate longitude", bbox: BoundingBox{MinLat: 0, MinLon: 2, MaxLat: 1, MaxLon: 2}, wantErr: true},
		{name: "inverted", bbox: BoundingBox{MinLat: 2, MinLon: 2, MaxLat: 1, MaxLon: 1}, wantErr: true},
		{name: "latitude out of range", bbox: BoundingBox{MinLat: -95, MinLon: 0, MaxLat: 0, MaxLon: 1}, wantErr: true},
		{name: "longitude out of range", bbox: BoundingBox{MinLat: 0, MinLon: 170, MaxLat: 1, MaxLon: 190}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bbox.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLatLonToTile(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		zoom     int
		wantX    int
		wantY    int
	}{
		{name: "origin at zoom 0", lat: 0, lon: 0, zoom: 0, wantX: 0, wantY: 0},
		{name: "origin at zoom 1", lat: 0, lon: 0, zoom: 1, wantX: 1, wantY: 1},
		// Reference value for central Berlin at zoom 12.
		{name: "berlin zoom 12", lat: 52.52, lon: 13.405, zoom: 12, wantX: 2200, wantY: 1343},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := LatLonToTile(tt.lat, tt.lon, tt.zoom)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("LatLonToTile(%f, %f, %d) = (%d, %d), want (%d, %d)",
					tt.lat, tt.lon, tt.zoom, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestTileRoundTrip(t *testing.T) {
	// The northwest corner of a tile must map back into the same tile.
	for _, zoom := range []int{4, 8, 12} {
		x, y := LatLonToTile(48.8566, 2.3522, zoom)
		lat, lon := TileToLatLon(x, y, zoom)
		x2, y2 := LatLonToTile(lat-1e-9, lon+1e-9, zoom)
		if x2 != x || y2 != y {
			t.Errorf("zoom %d: round trip (%d, %d) -> (%f, %f) -> (%d, %d)", zoom, x, y, lat, lon, x2, y2)
		}
	}
}

func TestTileRange(t *testing.T) {
	bbox := BoundingBox{MinLat: 52.5, MinLon: 13.3, MaxLat: 52.6, MaxLon: 13.5}
	r := bbox.TileRange(12)

	if r.MinX > r.MaxX || r.MinY > r.MaxY {
		t.Fatalf("inverted tile range: %+v", r)
	}
	if got := len(r.Tiles()); got != r.Count() {
		t.Errorf("Tiles() returned %d tiles, Count() = %d", got, r.Count())
	}

	// Every corner of the box must fall inside the range.
	for _, c := range [][2]float64{
		{bbox.MinLat, bbox.MinLon},
		{bbox.MinLat, bbox.MaxLon},
		{bbox.MaxLat, bbox.MinLon},
		{bbox.MaxLat, bbox.MaxLon},
	} {
		x, y := LatLonToTile(c[0], c[1], 12)
		if x < r.MinX || x > r.MaxX || y < r.MinY || y > r.MaxY {
			t.Errorf("corner (%f, %f) tile (%d, %d) outside range %+v", c[0], c[1], x, y, r)
		}
	}
}
