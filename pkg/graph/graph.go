// Package graph builds the typed domain model — point features and a road
// network — from the flat tagged element collection returned by Overpass.
package graph

import (
	"fmt"

	"github.com/terradrive/modgen/pkg/geo"
	"github.com/terradrive/modgen/pkg/overpass"
)

// FeatureKind classifies a point feature.
type FeatureKind string

const (
	FeatureBuilding   FeatureKind = "building"
	FeatureTree       FeatureKind = "tree"
	FeatureBusStop    FeatureKind = "bus_stop"
	FeatureOtherPoint FeatureKind = "other_point"
)

// Feature is a single placeable map object in local coordinates.
type Feature struct {
	Kind     FeatureKind       `json:"kind"`
	Position geo.Point         `json:"position"`
	Tags     map[string]string `json:"tags"`
}

// RoadNode is one projected point of a routable way. Each way owns its own
// node copies: the ID combines the way ID and the referenced node ID, so a
// node shared between two ways yields two distinct RoadNodes.
type RoadNode struct {
	ID       string    `json:"id"`
	Position geo.Point `json:"position"`
	Width    float64   `json:"width"`
	Class    string    `json:"roadType"`
}

// RoadSegment connects two consecutive resolvable nodes of one way. Its
// attributes are derived once from the way's tags at creation.
type RoadSegment struct {
	ID        string  `json:"id"`
	StartNode string  `json:"startNode"`
	EndNode   string  `json:"endNode"`
	Width     float64 `json:"width"`
	Lanes     int     `json:"lanes"`
	Class     string  `json:"roadType"`
	OneWay    bool    `json:"oneWay"`
}

// RoadNetwork is the full set of road nodes and segments. Segment endpoint
// IDs always refer to nodes emitted by the same way; cross-way ID reuse is
// not guaranteed and must not be assumed.
type RoadNetwork struct {
	Nodes    []RoadNode    `json:"nodes"`
	Segments []RoadSegment `json:"segments"`
}

// Result is the graph builder's output.
type Result struct {
	Features []Feature
	Network  RoadNetwork
}

// nodeIndex maps OSM node IDs to their geographic position.
type nodeIndex map[int64][2]float64

// Build converts the element collection into features and a road network.
// Output ordering follows input ordering, so the same input always produces
// byte-identical output.
//
// Classification rules are independent predicates: one element may emit
// several features and still be walked as a routable way.
func Build(elements []overpass.Element, bbox geo.BoundingBox) (*Result, error) {
	if err := bbox.Validate(); err != nil {
		return nil, fmt.Errorf("graph build: %w", err)
	}

	// First pass: index every node that carries a position. Ways referencing
	// IDs absent from this index have those references skipped silently.
	index := make(nodeIndex, len(elements))
	for _, e := range elements {
		if e.IsNode() && e.HasPosition() {
			lat, lon := e.Position()
			index[e.ID] = [2]float64{lat, lon}
		}
	}

	result := &Result{}
	for _, e := range elements {
		if e.HasTag("building") && e.IsWay() {
			if f, ok := anchorFeature(e, FeatureBuilding, index, bbox); ok {
				result.Features = append(result.Features, f)
			}
		}

		if e.Tag("natural") == "tree" && e.IsNode() {
			if f, ok := pointFeature(e, FeatureTree, bbox); ok {
				result.Features = append(result.Features, f)
			}
		}

		if e.Tag("natural") == "tree_row" && e.IsWay() {
			result.Features = append(result.Features, treeRowFeatures(e, index, bbox)...)
		}

		if e.Tag("highway") == "bus_stop" && e.IsNode() {
			if f, ok := pointFeature(e, FeatureBusStop, bbox); ok {
				result.Features = append(result.Features, f)
			}
		}

		if e.HasTag("amenity") && e.IsNode() {
			if f, ok := pointFeature(e, FeatureOtherPoint, bbox); ok {
				result.Features = append(result.Features, f)
			}
		}

		// Amenity outlines already counted as buildings are not re-emitted.
		if e.HasTag("amenity") && e.IsWay() && !e.HasTag("building") {
			if f, ok := anchorFeature(e, FeatureOtherPoint, index, bbox); ok {
				result.Features = append(result.Features, f)
			}
		}

		if e.HasTag("highway") && e.IsWay() {
			walkRoutableWay(e, index, bbox, &result.Network)
		}
	}
	return result, nil
}

// anchorFeature places a way-shaped feature at the first resolvable node of
// its outline. Not a centroid; the anchor point is part of the documented
// output contract.
func anchorFeature(e overpass.Element, kind FeatureKind, index nodeIndex, bbox geo.BoundingBox) (Feature, bool) {
	for _, ref := range e.Nodes {
		if pos, ok := index[ref]; ok {
			return Feature{
				Kind:     kind,
				Position: geo.Project(pos[0], pos[1], bbox),
				Tags:     e.Tags,
			}, true
		}
	}
	return Feature{}, false
}

// treeRowFeatures expands a tree-row way into one tree per resolvable node.
func treeRowFeatures(e overpass.Element, index nodeIndex, bbox geo.BoundingBox) []Feature {
	var features []Feature
	for _, ref := range e.Nodes {
		pos, ok := index[ref]
		if !ok {
			continue
		}
		features = append(features, Feature{
			Kind:     FeatureTree,
			Position: geo.Project(pos[0], pos[1], bbox),
			Tags:     e.Tags,
		})
	}
	return features
}

// pointFeature emits a feature at a node's own position.
func pointFeature(e overpass.Element, kind FeatureKind, bbox geo.BoundingBox) (Feature, bool) {
	if !e.HasPosition() {
		return Feature{}, false
	}
	lat, lon := e.Position()
	return Feature{
		Kind:     kind,
		Position: geo.Project(lat, lon, bbox),
		Tags:     e.Tags,
	}, true
}

// walkRoutableWay emits road nodes and segments for one highway-tagged way.
// Unresolvable node references are skipped without breaking the chain: the
// next resolvable node connects to the previous resolvable one, bridging
// the gap. Ways are processed independently; overlapping ways and shared
// intersections are intentionally not merged.
func walkRoutableWay(e overpass.Element, index nodeIndex, bbox geo.BoundingBox, network *RoadNetwork) {
	class := e.Tag("highway")
	lanes := ParseLanes(e.Tag("lanes"))
	width := RoadWidth(class, lanes)
	oneWay := e.Tag("oneway") == "yes"

	prev := int64(-1)
	havePrev := false

	for _, ref := range e.Nodes {
		pos, ok := index[ref]
		if !ok {
			continue
		}

		network.Nodes = append(network.Nodes, RoadNode{
			ID:       roadNodeID(e.ID, ref),
			Position: geo.Project(pos[0], pos[1], bbox),
			Width:    width,
			Class:    class,
		})

		if havePrev {
			network.Segments = append(network.Segments, RoadSegment{
				ID:        fmt.Sprintf("segment_%d_%d_%d", e.ID, prev, ref),
				StartNode: roadNodeID(e.ID, prev),
				EndNode:   roadNodeID(e.ID, ref),
				Width:     width,
				Lanes:     lanes,
				Class:     class,
				OneWay:    oneWay,
			})
		}

		prev = ref
		havePrev = true
	}
}

// roadNodeID derives the deterministic per-way node ID.
func roadNodeID(wayID, nodeID int64) string {
	return fmt.Sprintf("node_%d_%d", wayID, nodeID)
}
