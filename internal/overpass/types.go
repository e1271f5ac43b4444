// Package overpass queries Overpass API mirrors for OSM relations.
package overpass

// Element types returned by Overpass.
const (
	TypeNode     = "node"
	TypeWay      = "way"
	TypeRelation = "relation"
)

// Response is the decoded body of an Overpass `[out:json]` query.
type Response struct {
	Version   float64   `json:"version"`
	Generator string    `json:"generator"`
	OSM3S     OSM3S     `json:"osm3s"`
	Remark    string    `json:"remark,omitempty"`
	Elements  []Element `json:"elements"`
}

// OSM3S carries the data timestamps reported by the server.
type OSM3S struct {
	TimestampOSMBase   string `json:"timestamp_osm_base"`
	TimestampAreasBase string `json:"timestamp_areas_base,omitempty"`
	Copyright          string `json:"copyright"`
}

// Element is one node, way or relation. Which fields are populated depends on
// Type and on the output mode of the query: `out geom` inlines way geometry.
type Element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      float64           `json:"lat,omitempty"`
	Lon      float64           `json:"lon,omitempty"`
	Bounds   *Bounds           `json:"bounds,omitempty"`
	Nodes    []int64           `json:"nodes,omitempty"`
	Geometry []Point           `json:"geometry,omitempty"`
	Members  []Member          `json:"members,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Point is a single geometry vertex.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds is the bounding box Overpass attaches to ways and relations.
type Bounds struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

// Member is a relation member reference.
type Member struct {
	Type     string  `json:"type"`
	Ref      int64   `json:"ref"`
	Role     string  `json:"role"`
	Geometry []Point `json:"geometry,omitempty"`
}

// HasGeometry reports whether the element carried a geometry field. An empty
// array still counts; only a missing or null field does not.
func (e Element) HasGeometry() bool {
	return e.Geometry != nil
}

// Tag returns the value of tag key, or "" when absent.
func (e Element) Tag(key string) string {
	return e.Tags[key]
}
