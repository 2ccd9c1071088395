package geo

import "math"

// Tile identifies a slippy-map tile at a fixed zoom level.
type Tile struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Zoom int `json:"zoom"`
}

// TileRange is an inclusive rectangle of tile coordinates at one zoom level.
type TileRange struct {
	MinX, MinY int
	MaxX, MaxY int
	Zoom       int
}

// LatLonToTile converts latitude, longitude and zoom to tile coordinates
// using the standard slippy-map scheme.
func LatLonToTile(lat, lon float64, zoom int) (x, y int) {
	lat = math.Max(-85.05112878, math.Min(85.05112878, lat))
	n := math.Pow(2, float64(zoom))

	x = int(math.Floor((lon + 180.0) / 360.0 * n))
	y = int(math.Floor((1.0 - math.Log(math.Tan(lat*math.Pi/180.0)+1.0/math.Cos(lat*math.Pi/180.0))/math.Pi) / 2.0 * n))

	return x, y
}

// TileToLatLon converts tile coordinates to the latitude and longitude of
// the tile's northwest corner.
func TileToLatLon(x, y, zoom int) (lat, lon float64) {
	n := math.Pow(2, float64(zoom))
	lon = float64(x)/n*360.0 - 180.0

	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*float64(y)/n)))
	lat = latRad * 180.0 / math.Pi

	return lat, lon
}

// TileRange returns the tiles covering the bounding box at the given zoom.
// Tile Y grows southward, so the box's max latitude yields the minimum Y.
func (b BoundingBox) TileRange(zoom int) TileRange {
	minX, maxY := LatLonToTile(b.MinLat, b.MinLon, zoom)
	maxX, minY := LatLonToTile(b.MaxLat, b.MaxLon, zoom)

	return TileRange{
		MinX: minX, MinY: minY,
		MaxX: maxX, MaxY: maxY,
		Zoom: zoom,
	}
}

// Tiles enumerates the range in row-major order (north to south, west to east).
func (r TileRange) Tiles() []Tile {
	tiles := make([]Tile, 0, r.Count())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			tiles = append(tiles, Tile{X: x, Y: y, Zoom: r.Zoom})
		}
	}
	return tiles
}

// Cols returns the number of tile columns in the range.
func (r TileRange) Cols() int { return r.MaxX - r.MinX + 1 }

// Rows returns the number of tile rows in the range.
func (r TileRange) Rows() int { return r.MaxY - r.MinY + 1 }

// Count returns the total number of tiles in the range.
func (r TileRange) Count() int { return r.Cols() * r.Rows() }
