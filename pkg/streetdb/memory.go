package streetdb

import (
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/util"
)

type intersection struct {
	name     string
	pos      geo.Coordinate
	segments []da.StreetSegmentIdx
}

type pointOfInterest struct {
	name    string
	poiType string
	pos     geo.Coordinate
}

type feature struct {
	name        string
	featureType string
	points      []geo.Coordinate
}

// MemoryDatabase is an in-memory map. It is filled once (by the OSM parser or by hand) and then only read.
type MemoryDatabase struct {
	intersections []intersection
	segments      []da.StreetSegmentInfo
	streets       []string
	pois          []pointOfInterest
	features      []feature
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		intersections: make([]intersection, 0),
		segments:      make([]da.StreetSegmentInfo, 0),
		streets:       make([]string, 0),
	}
}

func (db *MemoryDatabase) AddIntersection(name string, pos geo.Coordinate) da.IntersectionIdx {
	db.intersections = append(db.intersections, intersection{name: name, pos: pos})
	return da.IntersectionIdx(len(db.intersections) - 1)
}

func (db *MemoryDatabase) AddStreet(name string) da.StreetIdx {
	db.streets = append(db.streets, name)
	return da.StreetIdx(len(db.streets) - 1)
}

// AddStreetSegment stores info and registers it with both endpoints.
func (db *MemoryDatabase) AddStreetSegment(info da.StreetSegmentInfo) (da.StreetSegmentIdx, error) {
	if !db.validIntersection(info.From) || !db.validIntersection(info.To) {
		return da.INVALID_EDGE_ID, util.WrapErrorf(nil, util.ErrBadParamInput,
			"street segment endpoints %d -> %d out of range [0,%d)", info.From, info.To, len(db.intersections))
	}
	if info.StreetID < 0 || int(info.StreetID) >= len(db.streets) {
		return da.INVALID_EDGE_ID, util.WrapErrorf(nil, util.ErrBadParamInput,
			"street id %d out of range [0,%d)", info.StreetID, len(db.streets))
	}

	id := da.StreetSegmentIdx(len(db.segments))
	db.segments = append(db.segments, info)

	db.intersections[info.From].segments = append(db.intersections[info.From].segments, id)
	if info.To != info.From {
		db.intersections[info.To].segments = append(db.intersections[info.To].segments, id)
	}
	return id, nil
}

func (db *MemoryDatabase) AddPointOfInterest(name, poiType string, pos geo.Coordinate) da.POIIdx {
	db.pois = append(db.pois, pointOfInterest{name: name, poiType: poiType, pos: pos})
	return da.POIIdx(len(db.pois) - 1)
}

func (db *MemoryDatabase) AddFeature(name, featureType string, points []geo.Coordinate) da.FeatureIdx {
	db.features = append(db.features, feature{name: name, featureType: featureType, points: points})
	return da.FeatureIdx(len(db.features) - 1)
}

func (db *MemoryDatabase) validIntersection(id da.IntersectionIdx) bool {
	return id >= 0 && int(id) < len(db.intersections)
}

func (db *MemoryDatabase) NumIntersections() int {
	return len(db.intersections)
}

func (db *MemoryDatabase) IntersectionPosition(id da.IntersectionIdx) geo.Coordinate {
	return db.intersections[id].pos
}

func (db *MemoryDatabase) IntersectionName(id da.IntersectionIdx) string {
	return db.intersections[id].name
}

func (db *MemoryDatabase) IntersectionStreetSegments(id da.IntersectionIdx) []da.StreetSegmentIdx {
	return db.intersections[id].segments
}

func (db *MemoryDatabase) NumStreetSegments() int {
	return len(db.segments)
}

func (db *MemoryDatabase) StreetSegmentInfo(id da.StreetSegmentIdx) da.StreetSegmentInfo {
	return db.segments[id]
}

func (db *MemoryDatabase) NumStreets() int {
	return len(db.streets)
}

func (db *MemoryDatabase) StreetName(id da.StreetIdx) string {
	return db.streets[id]
}

func (db *MemoryDatabase) NumPointsOfInterest() int {
	return len(db.pois)
}

func (db *MemoryDatabase) POIName(id da.POIIdx) string {
	return db.pois[id].name
}

func (db *MemoryDatabase) POIType(id da.POIIdx) string {
	return db.pois[id].poiType
}

func (db *MemoryDatabase) POIPosition(id da.POIIdx) geo.Coordinate {
	return db.pois[id].pos
}

func (db *MemoryDatabase) NumFeatures() int {
	return len(db.features)
}

func (db *MemoryDatabase) FeatureName(id da.FeatureIdx) string {
	return db.features[id].name
}

func (db *MemoryDatabase) FeatureType(id da.FeatureIdx) string {
	return db.features[id].featureType
}

func (db *MemoryDatabase) FeaturePoints(id da.FeatureIdx) []geo.Coordinate {
	return db.features[id].points
}

var _ da.MapDatabase = (*MemoryDatabase)(nil)
