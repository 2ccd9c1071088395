// Package mod assembles the generated heightmap, features and road network
// into the on-disk package layout the target game loads.
package mod

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/terradrive/modgen/pkg/elevation"
	"github.com/terradrive/modgen/pkg/geo"
	"github.com/terradrive/modgen/pkg/graph"
)

const (
	// terrainSize matches geo.Span: one heightmap pixel per local unit.
	terrainSize = 2048

	// gameObjectIDBase offsets generated object IDs away from the range
	// reserved by the game's own level tooling.
	gameObjectIDBase = 1000

	previewSize = 512
)

// Placeholder assets copied into the package verbatim. Real textures and
// meshes are shipped separately; the generator only reserves their slots.
var (
	placeholderPNG = []byte("PNG_PLACEHOLDER")
	placeholderDAE = []byte("<COLLADA/>")
)

// Assembler writes a complete mod package for one generation run.
type Assembler struct {
	// Name is the mod folder and level name.
	Name string
}

// Input carries everything the assembler serializes.
type Input struct {
	Heightmap *elevation.Heightmap
	Features  []graph.Feature
	Network   graph.RoadNetwork
	BBox      geo.BoundingBox

	// ElementCount and PlaceholderTiles feed the generation block of the
	// package manifest.
	ElementCount     int
	PlaceholderTiles int
}

// Assemble writes the package tree under outDir and returns the mod root
// directory. The layout is fixed:
//
//	<name>/info.json
//	<name>/levels/<name>/main.level.json
//	<name>/levels/<name>/items.level.json
//	<name>/levels/<name>/road_nodes.json
//	<name>/levels/<name>/decalRoad.json
//	<name>/levels/<name>/preview.jpg
//	<name>/levels/<name>/art/terrains/terrain.ter.json
//	<name>/levels/<name>/art/terrains/terrain.png
//	<name>/models/...
func (a *Assembler) Assemble(outDir string, in Input) (string, error) {
	modDir := filepath.Join(outDir, a.Name)
	levelDir := filepath.Join(modDir, "levels", a.Name)
	terrainDir := filepath.Join(levelDir, "art", "terrains")
	modelsDir := filepath.Join(modDir, "models")

	for _, dir := range []string{terrainDir, filepath.Join(modelsDir, "textures")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating package directories: %w", err)
		}
	}

	if err := a.writeInfo(modDir, in); err != nil {
		return "", err
	}
	if err := a.writeMainLevel(levelDir); err != nil {
		return "", err
	}
	if err := a.writeItems(levelDir, in.Features); err != nil {
		return "", err
	}
	if err := a.writeRoads(levelDir, in.Network); err != nil {
		return "", err
	}
	if err := a.writeTerrain(terrainDir, in.Heightmap); err != nil {
		return "", err
	}
	if err := a.writePreview(levelDir); err != nil {
		return "", err
	}
	if err := a.writePlaceholderAssets(modelsDir); err != nil {
		return "", err
	}

	return modDir, nil
}

func (a *Assembler) writeInfo(modDir string, in Input) error {
	info := Info{
		Name:        fmt.Sprintf("Generated Map - %s", a.Name),
		Version:     "1.0",
		Author:      "terradrive modgen",
		Description: "Automatically generated map from real-world OpenStreetMap and elevation data",
		GameVersion: "0.32",
		ModType:     "level",
		Generation: &GenerationInfo{
			MinLat:           in.BBox.MinLat,
			MinLon:           in.BBox.MinLon,
			MaxLat:           in.BBox.MaxLat,
			MaxLon:           in.BBox.MaxLon,
			ElementCount:     in.ElementCount,
			PlaceholderTiles: in.PlaceholderTiles,
		},
	}
	return writeJSON(filepath.Join(modDir, "info.json"), info)
}

func (a *Assembler) writeMainLevel(levelDir string) error {
	center := geo.Span / 2
	main := MainLevel{
		Main: MainSection{
			LevelName:   fmt.Sprintf("Generated - %s", a.Name),
			Title:       "Generated Map",
			Description: "Map generated from real-world OpenStreetMap data",
			Authors:     "terradrive modgen",
			Biome:       "Urban",
			Previews:    []string{"preview.jpg"},
			PreviewPosition: PreviewPos{
				Pos: [3]float64{center, center, 100},
				Rot: [4]float64{0, 0, 1, 0},
			},
		},
		Spawn: SpawnSection{
			DefaultSpawnPoint: "spawn_0",
			SpawnPoints: []SpawnPoint{{
				ObjectName:     "spawn_0",
				Pos:            [3]float64{center, center, 105},
				Rot:            [4]float64{0, 0, 1, 0},
				RotationMatrix: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			}},
		},
		Sun: SunSection{
			Azimuth:        0,
			Elevation:      45,
			ShadowDistance: 1000,
			ShadowSoftness: 0.15,
		},
	}
	return writeJSON(filepath.Join(levelDir, "main.level.json"), main)
}

// writeItems emits one object record per feature. Persistent IDs are
// sequential per feature kind so regenerating the same area keeps IDs
// stable; game object IDs are globally sequential.
func (a *Assembler) writeItems(levelDir string, features []graph.Feature) error {
	items := ItemsLevel{Objects: make([]Item, 0, len(features))}

	perKind := make(map[graph.FeatureKind]int)
	for i, f := range features {
		seq := perKind[f.Kind]
		perKind[f.Kind]++

		items.Objects = append(items.Objects, Item{
			Class:        objectClass(f.Kind),
			PersistentID: fmt.Sprintf("%s_%d", f.Kind, seq),
			Position:     [3]float64{f.Position.X, f.Position.Y, f.Position.Z},
			Rotation:     [4]float64{0, 0, 1, 0},
			Scale:        [3]float64{1, 1, 1},
			GameObjectID: gameObjectIDBase + i,
		})
	}
	return writeJSON(filepath.Join(levelDir, "items.level.json"), items)
}

func (a *Assembler) writeRoads(levelDir string, network graph.RoadNetwork) error {
	dump := RoadNodes{Nodes: network.Nodes, Segments: network.Segments}
	if dump.Nodes == nil {
		dump.Nodes = []graph.RoadNode{}
	}
	if dump.Segments == nil {
		dump.Segments = []graph.RoadSegment{}
	}
	if err := writeJSON(filepath.Join(levelDir, "road_nodes.json"), dump); err != nil {
		return err
	}

	return writeJSON(filepath.Join(levelDir, "decalRoad.json"), buildDecalRoads(network))
}

// buildDecalRoads converts each segment into a renderable decal road using
// its endpoint nodes. Segments whose endpoints are missing from the network
// are dropped, not errored.
func buildDecalRoads(network graph.RoadNetwork) DecalRoads {
	nodes := make(map[string]graph.RoadNode, len(network.Nodes))
	for _, n := range network.Nodes {
		nodes[n.ID] = n
	}

	out := DecalRoads{DecalRoads: make([]DecalRoad, 0, len(network.Segments))}
	for _, seg := range network.Segments {
		start, ok := nodes[seg.StartNode]
		if !ok {
			continue
		}
		end, ok := nodes[seg.EndNode]
		if !ok {
			continue
		}

		out.DecalRoads = append(out.DecalRoads, DecalRoad{
			Class:         "DecalRoad",
			PersistentID:  seg.ID,
			Position:      [3]float64{start.Position.X, start.Position.Y, start.Position.Z},
			Detail:        4,
			BreakAngle:    3.0,
			TextureLength: 5.0,
			Material:      graph.RoadMaterial(seg.Class),
			Nodes: []DecalRoadNode{
				{
					Pos:        [3]float64{start.Position.X, start.Position.Y, start.Position.Z},
					Width:      seg.Width,
					WidthLeft:  seg.Width / 2,
					WidthRight: seg.Width / 2,
				},
				{
					Pos:        [3]float64{end.Position.X, end.Position.Y, end.Position.Z},
					Width:      seg.Width,
					WidthLeft:  seg.Width / 2,
					WidthRight: seg.Width / 2,
				},
			},
		})
	}
	return out
}

func (a *Assembler) writeTerrain(terrainDir string, hm *elevation.Heightmap) error {
	ter := Terrain{
		TerrainSize: terrainSize,
		SquareSize:  1.0,
		HeightScale: 256.0,
		HeightMap:   "terrain.png",
	}
	if err := writeJSON(filepath.Join(terrainDir, "terrain.ter.json"), ter); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(terrainDir, "terrain.png"))
	if err != nil {
		return fmt.Errorf("creating terrain image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, hm.EncodeGray()); err != nil {
		return fmt.Errorf("encoding terrain image: %w", err)
	}
	return nil
}

// writePreview renders the fixed gradient placeholder preview.
func (a *Assembler) writePreview(levelDir string) error {
	img := image.NewRGBA(image.Rect(0, 0, previewSize, previewSize))
	for y := 0; y < previewSize; y++ {
		for x := 0; x < previewSize; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(float64(x) / previewSize * 255),
				G: uint8(float64(y) / previewSize * 255),
				B: 128,
				A: 255,
			})
		}
	}

	f, err := os.Create(filepath.Join(levelDir, "preview.jpg"))
	if err != nil {
		return fmt.Errorf("creating preview image: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, img, nil); err != nil {
		return fmt.Errorf("encoding preview image: %w", err)
	}
	return nil
}

func (a *Assembler) writePlaceholderAssets(modelsDir string) error {
	assets := map[string][]byte{
		filepath.Join(modelsDir, "textures", "asphalt.png"):  placeholderPNG,
		filepath.Join(modelsDir, "textures", "roof.png"):     placeholderPNG,
		filepath.Join(modelsDir, "building_placeholder.dae"): placeholderDAE,
	}
	for path, data := range assets {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing placeholder asset: %w", err)
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
