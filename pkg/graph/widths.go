package graph

import "strconv"

const (
	// laneWidth is the assumed width of one traffic lane in local units.
	laneWidth = 3.5

	// DefaultLanes is assumed when the lanes tag is absent or unparsable.
	DefaultLanes = 2
)

// ParseLanes parses a lanes tag value as an unsigned integer, falling back
// to DefaultLanes for missing or malformed values.
func ParseLanes(value string) int {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return DefaultLanes
	}
	return int(n)
}

// RoadWidth derives a road's width in local units from its highway class
// and lane count. Major classes get widened shoulders; paths are fixed-width
// regardless of lanes.
func RoadWidth(class string, lanes int) float64 {
	l := float64(lanes)
	switch class {
	case "motorway", "trunk":
		return l*laneWidth + 2.0
	case "primary":
		return l*laneWidth + 1.5
	case "secondary":
		return l*laneWidth + 1.0
	case "tertiary":
		return l*laneWidth + 0.5
	case "residential", "service":
		return l * 3.0
	case "path", "footway", "cycleway":
		return 2.0
	default:
		return l * laneWidth
	}
}

// RoadMaterial maps a highway class to the package's decal road material.
func RoadMaterial(class string) string {
	switch class {
	case "motorway", "trunk":
		return "road_asphalt_highway"
	case "primary", "secondary":
		return "road_asphalt"
	case "tertiary", "residential":
		return "road_asphalt_residential"
	case "service":
		return "road_concrete"
	case "path", "footway", "cycleway":
		return "road_gravel"
	default:
		return "road_asphalt"
	}
}
