package datastructure

import "github.com/lintang-b-s/streetmap/pkg/geo"

type IntersectionIdx int32
type StreetSegmentIdx int32
type StreetIdx int32
type POIIdx int32
type FeatureIdx int32

const (
	INVALID_INTERSECTION_ID IntersectionIdx  = -1
	INVALID_EDGE_ID         StreetSegmentIdx = -1
	INVALID_STREET_ID       StreetIdx        = -1
	INVALID_POI_ID          POIIdx           = -1
)

// StreetSegmentInfo describes one undirected (or one-way) piece of street between two intersections.
// When OneWay is set the segment may only be driven From -> To.
type StreetSegmentInfo struct {
	From        IntersectionIdx
	To          IntersectionIdx
	OneWay      bool
	SpeedLimit  float64 // meters per second
	StreetID    StreetIdx
	CurvePoints []geo.Coordinate
}

// StreetDatabase is the read-only map the routing core is built from.
type StreetDatabase interface {
	NumIntersections() int
	IntersectionPosition(id IntersectionIdx) geo.Coordinate
	IntersectionName(id IntersectionIdx) string
	// IntersectionStreetSegments lists every segment touching the intersection, in either direction.
	IntersectionStreetSegments(id IntersectionIdx) []StreetSegmentIdx

	NumStreetSegments() int
	StreetSegmentInfo(id StreetSegmentIdx) StreetSegmentInfo

	NumStreets() int
	StreetName(id StreetIdx) string
}

// PointOfInterestDatabase exposes named points such as cafes or fuel stations.
type PointOfInterestDatabase interface {
	NumPointsOfInterest() int
	POIName(id POIIdx) string
	POIType(id POIIdx) string
	POIPosition(id POIIdx) geo.Coordinate
}

// FeatureDatabase exposes natural features (lakes, parks, buildings) as point lists.
// A closed feature repeats its first point at the end.
type FeatureDatabase interface {
	NumFeatures() int
	FeatureName(id FeatureIdx) string
	FeatureType(id FeatureIdx) string
	FeaturePoints(id FeatureIdx) []geo.Coordinate
}

// MapDatabase is everything the street map layer consumes.
type MapDatabase interface {
	StreetDatabase
	PointOfInterestDatabase
	FeatureDatabase
}
