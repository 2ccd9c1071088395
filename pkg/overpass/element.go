// Package overpass provides the Overpass API element model, the query used
// for map generation, and a rate-limited client for fetching it.
package overpass

import (
	"encoding/json"
	"fmt"
)

// Element is a tagged geographic primitive returned by the Overpass API.
// Nodes carry a position; ways and relations carry an ordered list of
// referenced node IDs. Elements are immutable inputs to the graph builder.
type Element struct {
	ID    int64             `json:"id"`
	Type  string            `json:"type"` // "node", "way" or "relation"
	Lat   *float64          `json:"lat,omitempty"`
	Lon   *float64          `json:"lon,omitempty"`
	Tags  map[string]string `json:"tags,omitempty"`
	Nodes []int64           `json:"nodes,omitempty"`
}

// IsNode reports whether the element is a node.
func (e Element) IsNode() bool { return e.Type == "node" }

// HasPosition reports whether the element carries a coordinate. Skeleton
// output for ways and relations omits lat/lon entirely, and a node at
// exactly (0, 0) is still a position, so presence is tracked by pointer.
func (e Element) HasPosition() bool { return e.Lat != nil && e.Lon != nil }

// Position returns the element's coordinate. Only valid when HasPosition
// is true.
func (e Element) Position() (lat, lon float64) { return *e.Lat, *e.Lon }

// IsWay reports whether the element is a way.
func (e Element) IsWay() bool { return e.Type == "way" }

// HasTag reports whether the element carries the given tag key.
func (e Element) HasTag(key string) bool {
	_, ok := e.Tags[key]
	return ok
}

// Tag returns the value of the given tag key, or "" if absent.
func (e Element) Tag(key string) string { return e.Tags[key] }

// response mirrors the top-level Overpass JSON envelope.
type response struct {
	Elements []Element `json:"elements"`
}

// ParseElements decodes an Overpass JSON response body into elements.
// A malformed body is fatal for the run.
func ParseElements(data []byte) ([]Element, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parsing overpass response: %w", err)
	}
	if resp.Elements == nil {
		return nil, fmt.Errorf("parsing overpass response: missing elements array")
	}
	return resp.Elements, nil
}
