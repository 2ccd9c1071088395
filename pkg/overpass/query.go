package overpass

import (
	"fmt"
	"strings"

	"github.com/terradrive/modgen/pkg/geo"
)

// TagFilter is a tag constraint on an element filter. An empty Value
// matches any element carrying the key.
type TagFilter struct {
	Key   string
	Value string
}

// elementFilter selects one element type with tag constraints.
type elementFilter struct {
	elementType string
	tags        []TagFilter
}

// QueryBuilder provides a fluent interface for building Overpass QL queries
// bounded to a single bounding box.
type QueryBuilder struct {
	timeout int
	bbox    geo.BoundingBox
	filters []elementFilter
}

// NewQueryBuilder creates a builder for the given bounding box.
func NewQueryBuilder(bbox geo.BoundingBox) *QueryBuilder {
	return &QueryBuilder{
		timeout: 180,
		bbox:    bbox,
	}
}

// WithTimeout sets the query timeout in seconds.
func (b *QueryBuilder) WithTimeout(seconds int) *QueryBuilder {
	b.timeout = seconds
	return b
}

// WithNode adds a node filter.
func (b *QueryBuilder) WithNode(tags ...TagFilter) *QueryBuilder {
	b.filters = append(b.filters, elementFilter{elementType: "node", tags: tags})
	return b
}

// WithWay adds a way filter.
func (b *QueryBuilder) WithWay(tags ...TagFilter) *QueryBuilder {
	b.filters = append(b.filters, elementFilter{elementType: "way", tags: tags})
	return b
}

// Tag creates a TagFilter matching key=value, or bare key presence when
// value is empty.
func Tag(key string, value ...string) TagFilter {
	f := TagFilter{Key: key}
	if len(value) > 0 {
		f.Value = value[0]
	}
	return f
}

// Build generates the Overpass QL query string. Referenced nodes of matched
// ways are recursed into the output (`>` plus a skeleton pass) so the graph
// builder can resolve way geometry.
func (b *QueryBuilder) Build() string {
	var query strings.Builder

	query.WriteString(fmt.Sprintf("[out:json][timeout:%d];(", b.timeout))

	bounds := fmt.Sprintf("(%.6f,%.6f,%.6f,%.6f)",
		b.bbox.MinLat, b.bbox.MinLon, b.bbox.MaxLat, b.bbox.MaxLon)

	for _, filter := range b.filters {
		query.WriteString(filter.elementType)
		for _, tag := range filter.tags {
			if tag.Value == "" {
				query.WriteString(fmt.Sprintf("[%q]", tag.Key))
			} else {
				query.WriteString(fmt.Sprintf("[%q=%q]", tag.Key, tag.Value))
			}
		}
		query.WriteString(bounds)
		query.WriteString(";")
	}

	query.WriteString(");out body;>;out skel qt;")
	return query.String()
}

// GenerationQuery returns the fixed query used for map generation: building
// outlines, the routable road network, trees, tree rows, bus stops and
// amenities within the bounding box.
func GenerationQuery(bbox geo.BoundingBox) string {
	return NewQueryBuilder(bbox).
		WithWay(Tag("building")).
		WithWay(Tag("highway")).
		WithNode(Tag("natural", "tree")).
		WithWay(Tag("natural", "tree_row")).
		WithNode(Tag("highway", "bus_stop")).
		WithNode(Tag("amenity")).
		WithWay(Tag("amenity")).
		Build()
}
