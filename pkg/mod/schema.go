package mod

import "github.com/terradrive/modgen/pkg/graph"

// The on-disk schema of the generated package. Field names and fixed values
// follow what the target game's level loader expects; changing them breaks
// the mod in-game.

// Info is the package manifest written to info.json.
type Info struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Author      string          `json:"author"`
	Description string          `json:"description"`
	GameVersion string          `json:"gameVersion"`
	ModType     string          `json:"modType"`
	Generation  *GenerationInfo `json:"generation,omitempty"`
}

// GenerationInfo records how the package was produced, including which
// parts of the terrain were approximated with placeholder elevation.
type GenerationInfo struct {
	MinLat           float64 `json:"minLat"`
	MinLon           float64 `json:"minLon"`
	MaxLat           float64 `json:"maxLat"`
	MaxLon           float64 `json:"maxLon"`
	ElementCount     int     `json:"elementCount"`
	PlaceholderTiles int     `json:"placeholderTiles"`
}

// MainLevel is the main.level.json descriptor.
type MainLevel struct {
	Main  MainSection  `json:"main"`
	Spawn SpawnSection `json:"spawn"`
	Sun   SunSection   `json:"sun"`
}

type MainSection struct {
	LevelName       string     `json:"levelName"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Authors         string     `json:"authors"`
	Biome           string     `json:"biome"`
	Previews        []string   `json:"previews"`
	PreviewPosition PreviewPos `json:"previewPosition"`
}

type PreviewPos struct {
	Pos [3]float64 `json:"pos"`
	Rot [4]float64 `json:"rot"`
}

type SpawnSection struct {
	DefaultSpawnPoint string       `json:"defaultSpawnPoint"`
	SpawnPoints       []SpawnPoint `json:"spawnPoints"`
}

type SpawnPoint struct {
	ObjectName     string        `json:"objectname"`
	Pos            [3]float64    `json:"pos"`
	Rot            [4]float64    `json:"rot"`
	RotationMatrix [3][3]float64 `json:"rotationMatrix"`
}

type SunSection struct {
	Azimuth        float64 `json:"azimuth"`
	Elevation      float64 `json:"elevation"`
	ShadowDistance float64 `json:"shadowDistance"`
	ShadowSoftness float64 `json:"shadowSoftness"`
}

// ItemsLevel is the items.level.json descriptor: one object per feature.
type ItemsLevel struct {
	Objects []Item `json:"objects"`
}

type Item struct {
	Class        string     `json:"class"`
	PersistentID string     `json:"persistentId"`
	Position     [3]float64 `json:"position"`
	Rotation     [4]float64 `json:"rotation"`
	Scale        [3]float64 `json:"scale"`
	GameObjectID int        `json:"__gameObjectId"`
}

// RoadNodes is the road_nodes.json descriptor, a dump of the road network.
type RoadNodes struct {
	Nodes    []graph.RoadNode    `json:"nodes"`
	Segments []graph.RoadSegment `json:"segments"`
}

// DecalRoads is the decalRoad.json descriptor.
type DecalRoads struct {
	DecalRoads []DecalRoad `json:"decalRoads"`
}

// DecalRoad is one renderable road-surface entity built from a segment's
// two endpoint nodes.
type DecalRoad struct {
	Class         string          `json:"class"`
	PersistentID  string          `json:"persistentId"`
	Position      [3]float64      `json:"position"`
	Detail        int             `json:"detail"`
	BreakAngle    float64         `json:"breakAngle"`
	TextureLength float64         `json:"textureLength"`
	Material      string          `json:"Material"`
	Nodes         []DecalRoadNode `json:"nodes"`
}

type DecalRoadNode struct {
	Pos        [3]float64 `json:"pos"`
	Width      float64    `json:"width"`
	WidthLeft  float64    `json:"widthLeft"`
	WidthRight float64    `json:"widthRight"`
}

// Terrain is the terrain.ter.json descriptor.
type Terrain struct {
	TerrainSize int     `json:"terrainSize"`
	SquareSize  float64 `json:"squareSize"`
	HeightScale float64 `json:"heightScale"`
	HeightMap   string  `json:"heightMap"`
}

// objectClass maps a feature kind to the package object class.
func objectClass(kind graph.FeatureKind) string {
	switch kind {
	case graph.FeatureBuilding:
		return "TSStatic"
	case graph.FeatureTree:
		return "Forest"
	case graph.FeatureBusStop:
		return "TSStatic"
	default:
		return "TSStatic"
	}
}
