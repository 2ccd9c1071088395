package graph

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/terradrive/modgen/pkg/geo"
	"github.com/terradrive/modgen/pkg/overpass"
)

func node(id int64, lat, lon float64, tags map[string]string) overpass.Element {
	return overpass.Element{ID: id, Type: "node", Lat: &lat, Lon: &lon, Tags: tags}
}

func way(id int64, refs []int64, tags map[string]string) overpass.Element {
	return overpass.Element{ID: id, Type: "way", Nodes: refs, Tags: tags}
}

var testBBox = geo.BoundingBox{MinLat: 0, MinLon: 0, MaxLat: 0.01, MaxLon: 0.01}

func TestRoadWidth(t *testing.T) {
	tests := []struct {
		class string
		lanes int
		want  float64
	}{
		{"motorway", 3, 12.5},
		{"trunk", 2, 9.0},
		{"primary", 2, 8.5},
		{"secondary", 2, 8.0},
		{"tertiary", 2, 7.5},
		{"residential", 2, 6.0},
		{"service", 1, 3.0},
		{"path", 5, 2.0},
		{"footway", 1, 2.0},
		{"cycleway", 3, 2.0},
		{"unclassified", 2, 7.0},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			if got := RoadWidth(tt.class, tt.lanes); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RoadWidth(%q, %d) = %f, want %f", tt.class, tt.lanes, got, tt.want)
			}
		})
	}
}

func TestParseLanes(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "valid", value: "3", want: 3},
		{name: "missing", value: "", want: 2},
		{name: "malformed", value: "abc", want: 2},
		{name: "negative", value: "-1", want: 2},
		{name: "zero", value: "0", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLanes(tt.value); got != tt.want {
				t.Errorf("ParseLanes(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

// TestBuildScenario is the reference end-to-end conversion: one residential
// way across the box diagonal and one tree at the center.
func TestBuildScenario(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0, 0, nil),
		node(2, 0.01, 0.01, nil),
		node(3, 0.005, 0.005, map[string]string{"natural": "tree"}),
		way(10, []int64{1, 2}, map[string]string{"highway": "residential", "lanes": "2"}),
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(result.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(result.Features))
	}
	tree := result.Features[0]
	if tree.Kind != FeatureTree {
		t.Errorf("feature kind = %q, want %q", tree.Kind, FeatureTree)
	}
	if want := (geo.Point{X: 1024, Y: 0, Z: 1024}); !pointNear(tree.Position, want) {
		t.Errorf("tree position = %+v, want %+v", tree.Position, want)
	}

	if len(result.Network.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(result.Network.Segments))
	}
	seg := result.Network.Segments[0]
	if seg.Width != 6.0 {
		t.Errorf("segment width = %f, want 6.0", seg.Width)
	}
	if seg.OneWay {
		t.Error("segment one_way = true, want false")
	}
	if seg.Lanes != 2 || seg.Class != "residential" {
		t.Errorf("segment attributes = %+v", seg)
	}

	if len(result.Network.Nodes) != 2 {
		t.Fatalf("got %d road nodes, want 2", len(result.Network.Nodes))
	}
	if want := (geo.Point{X: 0, Y: 0, Z: 0}); !pointNear(result.Network.Nodes[0].Position, want) {
		t.Errorf("first road node at %+v, want %+v", result.Network.Nodes[0].Position, want)
	}
	if want := (geo.Point{X: 2048, Y: 0, Z: 2048}); !pointNear(result.Network.Nodes[1].Position, want) {
		t.Errorf("second road node at %+v, want %+v", result.Network.Nodes[1].Position, want)
	}

	if seg.StartNode != result.Network.Nodes[0].ID || seg.EndNode != result.Network.Nodes[1].ID {
		t.Errorf("segment endpoints %q -> %q do not match emitted nodes", seg.StartNode, seg.EndNode)
	}
}

// TestBuildBridgesMissingNode verifies that an unresolvable reference in the
// middle of a way joins its neighbors directly instead of breaking the chain.
func TestBuildBridgesMissingNode(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0.001, 0.001, nil),
		// Node 2 is referenced but never defined.
		node(3, 0.003, 0.003, nil),
		way(10, []int64{1, 2, 3}, map[string]string{"highway": "residential"}),
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(result.Network.Nodes) != 2 {
		t.Fatalf("got %d road nodes, want 2 (missing node must not contribute)", len(result.Network.Nodes))
	}
	if len(result.Network.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(result.Network.Segments))
	}

	seg := result.Network.Segments[0]
	if seg.StartNode != "node_10_1" || seg.EndNode != "node_10_3" {
		t.Errorf("segment connects %q -> %q, want node_10_1 -> node_10_3", seg.StartNode, seg.EndNode)
	}
}

// TestBuildMultipleRules verifies that classification predicates fire
// independently: a building-tagged highway way emits both a building
// feature and road geometry.
func TestBuildMultipleRules(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0.001, 0.001, nil),
		node(2, 0.002, 0.002, nil),
		way(10, []int64{1, 2}, map[string]string{"building": "yes", "highway": "service"}),
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(result.Features) != 1 || result.Features[0].Kind != FeatureBuilding {
		t.Errorf("features = %+v, want one building", result.Features)
	}
	if len(result.Network.Segments) != 1 {
		t.Errorf("got %d segments, want 1", len(result.Network.Segments))
	}
}

func TestBuildBuildingAnchor(t *testing.T) {
	elements := []overpass.Element{
		// First referenced node is unresolvable; the anchor falls to the
		// first node that is.
		node(2, 0.002, 0.002, nil),
		node(3, 0.004, 0.004, nil),
		way(10, []int64{1, 2, 3}, map[string]string{"building": "yes"}),
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(result.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(result.Features))
	}
	want := geo.Project(0.002, 0.002, testBBox)
	if !pointNear(result.Features[0].Position, want) {
		t.Errorf("building anchored at %+v, want first resolvable node %+v", result.Features[0].Position, want)
	}
}

func TestBuildBuildingUnresolvable(t *testing.T) {
	elements := []overpass.Element{
		way(10, []int64{1, 2}, map[string]string{"building": "yes"}),
	}
	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(result.Features) != 0 {
		t.Errorf("got %d features, want 0 for fully unresolvable outline", len(result.Features))
	}
}

func TestBuildTreeRow(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0.001, 0.001, nil),
		node(2, 0.002, 0.002, nil),
		// Node 3 is referenced but never defined.
		way(10, []int64{1, 2, 3}, map[string]string{"natural": "tree_row"}),
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if len(result.Features) != 2 {
		t.Fatalf("got %d features, want 2 (one tree per resolvable row node)", len(result.Features))
	}
	for i, f := range result.Features {
		if f.Kind != FeatureTree {
			t.Errorf("feature %d kind = %q, want %q", i, f.Kind, FeatureTree)
		}
	}
	if want := geo.Project(0.002, 0.002, testBBox); !pointNear(result.Features[1].Position, want) {
		t.Errorf("second tree at %+v, want %+v", result.Features[1].Position, want)
	}
}

func TestBuildPointFeatures(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0.001, 0.001, map[string]string{"highway": "bus_stop"}),
		node(2, 0.002, 0.002, map[string]string{"amenity": "bench"}),
		// Tagged tree without a position must be ignored.
		{ID: 3, Type: "node", Tags: map[string]string{"natural": "tree"}},
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	kinds := make([]FeatureKind, 0, len(result.Features))
	for _, f := range result.Features {
		kinds = append(kinds, f.Kind)
	}
	want := []FeatureKind{FeatureBusStop, FeatureOtherPoint}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("feature kinds = %v, want %v", kinds, want)
	}
}

func TestBuildAmenityWays(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0.001, 0.001, nil),
		node(2, 0.002, 0.002, nil),
		way(10, []int64{1, 2}, map[string]string{"amenity": "parking"}),
		// Tagged both ways: counted once, as a building.
		way(11, []int64{1, 2}, map[string]string{"amenity": "school", "building": "yes"}),
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	kinds := make([]FeatureKind, 0, len(result.Features))
	for _, f := range result.Features {
		kinds = append(kinds, f.Kind)
	}
	want := []FeatureKind{FeatureOtherPoint, FeatureBuilding}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("feature kinds = %v, want %v", kinds, want)
	}
}

func TestBuildOneWay(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0.001, 0.001, nil),
		node(2, 0.002, 0.002, nil),
		way(10, []int64{1, 2}, map[string]string{"highway": "primary", "oneway": "yes", "lanes": "3"}),
	}

	result, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	seg := result.Network.Segments[0]
	if !seg.OneWay {
		t.Error("segment one_way = false, want true")
	}
	if want := 3*3.5 + 1.5; seg.Width != want {
		t.Errorf("segment width = %f, want %f", seg.Width, want)
	}
}

// TestBuildDeterministic runs the builder twice over the same input and
// requires byte-identical serialized output: ordering must never depend on
// map iteration.
func TestBuildDeterministic(t *testing.T) {
	elements := []overpass.Element{
		node(1, 0.001, 0.001, map[string]string{"natural": "tree"}),
		node(2, 0.002, 0.002, nil),
		node(3, 0.003, 0.003, map[string]string{"highway": "bus_stop"}),
		node(4, 0.004, 0.004, nil),
		way(10, []int64{2, 4}, map[string]string{"highway": "residential"}),
		way(11, []int64{4, 2}, map[string]string{"highway": "tertiary", "oneway": "yes"}),
		way(12, []int64{2, 4, 3}, map[string]string{"building": "yes"}),
	}

	first, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	second, err := Build(elements, testBBox)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Error("two builds over the same input produced different output")
	}
}

func TestBuildDegenerateBBox(t *testing.T) {
	bad := geo.BoundingBox{MinLat: 1, MinLon: 0, MaxLat: 1, MaxLon: 1}
	if _, err := Build(nil, bad); err == nil {
		t.Error("Build() expected error for degenerate bounding box")
	}
}

func pointNear(a, b geo.Point) bool {
	const tol = 1e-6
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}
