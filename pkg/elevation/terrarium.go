package elevation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	_ "image/jpeg" // tile servers occasionally serve JPEG fallbacks
)

// terrariumOffset shifts elevations so sea level sits at pixel value 32768.
const terrariumOffset = 32768.0

// DecodeTerrarium decodes a Terrarium-packed raster into a heightmap.
// Each pixel encodes elevation as R*256 + G + B/256 - 32768 meters.
// A malformed or unsupported raster is a fatal error for the tile.
func DecodeTerrarium(data []byte) (*Heightmap, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding elevation raster: %w", err)
	}

	bounds := img.Bounds()
	hm := NewHeightmap(bounds.Dx(), bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; the packing is 8-bit.
			rf := float64(r >> 8)
			gf := float64(g >> 8)
			bf := float64(b >> 8)
			hm.set(x-bounds.Min.X, y-bounds.Min.Y, rf*256.0+gf+bf/256.0-terrariumOffset)
		}
	}
	return hm, nil
}

// EncodeTerrarium renders a heightmap as a Terrarium-packed PNG, the inverse
// of DecodeTerrarium. Elevations outside the encodable range are clamped.
func EncodeTerrarium(hm *Heightmap) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, hm.Width(), hm.Height()))

	for y := 0; y < hm.Height(); y++ {
		for x := 0; x < hm.Width(); x++ {
			v := hm.At(x, y) + terrariumOffset
			v = math.Max(0, math.Min(v, 65535.996))

			whole := math.Floor(v)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(int(whole) / 256),
				G: uint8(int(whole) % 256),
				B: uint8((v - whole) * 256.0),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding terrarium raster: %w", err)
	}
	return buf.Bytes(), nil
}
