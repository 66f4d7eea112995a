package streetmap

import (
	"math"
	"sort"
	"strings"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/spatialindex"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"go.uber.org/zap"
)

// NoAngle is returned by FindAngleBetweenStreetSegments for segments that do not meet.
const NoAngle = -1000.0

type streetName struct {
	normalized string
	id         da.StreetIdx
}

// StreetMap answers geometric and topological queries over a loaded map.
type StreetMap struct {
	db    da.MapDatabase
	graph *da.Graph

	intersectionIndex *spatialindex.Rtree
	poiIndex          *spatialindex.Rtree

	streetSegments      [][]da.StreetSegmentIdx
	streetIntersections [][]da.IntersectionIdx
	streetLengths       []float64
	sortedNames         []streetName
}

// New indexes db. searchRadiusKM is the starting radius of closest intersection and POI lookups.
func New(db da.MapDatabase, searchRadiusKM float64, logger *zap.Logger) *StreetMap {
	sm := &StreetMap{
		db:                db,
		graph:             da.NewGraph(db),
		intersectionIndex: spatialindex.NewRtree(),
		poiIndex:          spatialindex.NewRtree(),
	}

	intersections := make([]geo.Coordinate, db.NumIntersections())
	for i := range intersections {
		intersections[i] = db.IntersectionPosition(da.IntersectionIdx(i))
	}
	sm.intersectionIndex.Build(intersections, searchRadiusKM, logger)

	pois := make([]geo.Coordinate, db.NumPointsOfInterest())
	for i := range pois {
		pois[i] = db.POIPosition(da.POIIdx(i))
	}
	sm.poiIndex.Build(pois, searchRadiusKM, logger)

	sm.indexStreets()

	logger.Info("street map indexed",
		zap.Int("intersections", db.NumIntersections()),
		zap.Int("street_segments", db.NumStreetSegments()),
		zap.Int("streets", db.NumStreets()),
		zap.Int("points_of_interest", db.NumPointsOfInterest()),
		zap.Int("features", db.NumFeatures()))
	return sm
}

func (sm *StreetMap) indexStreets() {
	numStreets := sm.db.NumStreets()
	sm.streetSegments = make([][]da.StreetSegmentIdx, numStreets)
	sm.streetIntersections = make([][]da.IntersectionIdx, numStreets)
	sm.streetLengths = make([]float64, numStreets)

	for s := 0; s < sm.db.NumStreetSegments(); s++ {
		seg := da.StreetSegmentIdx(s)
		info := sm.db.StreetSegmentInfo(seg)
		if info.StreetID < 0 || int(info.StreetID) >= numStreets {
			continue
		}
		sm.streetSegments[info.StreetID] = append(sm.streetSegments[info.StreetID], seg)
		sm.streetIntersections[info.StreetID] = append(sm.streetIntersections[info.StreetID], info.From, info.To)
		sm.streetLengths[info.StreetID] += sm.graph.GetSegmentLength(seg)
	}
	for st := range sm.streetIntersections {
		sm.streetIntersections[st] = sortedUnique(sm.streetIntersections[st])
	}

	sm.sortedNames = make([]streetName, numStreets)
	for st := 0; st < numStreets; st++ {
		sm.sortedNames[st] = streetName{
			normalized: util.NormalizeName(sm.db.StreetName(da.StreetIdx(st))),
			id:         da.StreetIdx(st),
		}
	}
	sort.Slice(sm.sortedNames, func(i, j int) bool {
		if sm.sortedNames[i].normalized != sm.sortedNames[j].normalized {
			return sm.sortedNames[i].normalized < sm.sortedNames[j].normalized
		}
		return sm.sortedNames[i].id < sm.sortedNames[j].id
	})
}

func sortedUnique(ids []da.IntersectionIdx) []da.IntersectionIdx {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := ids[:0]
	for i, id := range ids {
		if i == 0 || id != ids[i-1] {
			res = append(res, id)
		}
	}
	return res
}

func (sm *StreetMap) Graph() *da.Graph {
	return sm.graph
}

func (sm *StreetMap) Database() da.MapDatabase {
	return sm.db
}

// FindDistanceBetweenTwoPoints returns the flat-earth distance between a and b in meters.
func (sm *StreetMap) FindDistanceBetweenTwoPoints(a, b geo.Coordinate) float64 {
	return geo.FlatEarthDistance(a, b)
}

func (sm *StreetMap) FindStreetSegmentLength(seg da.StreetSegmentIdx) float64 {
	return sm.graph.GetSegmentLength(seg)
}

func (sm *StreetMap) FindStreetSegmentTravelTime(seg da.StreetSegmentIdx) float64 {
	return sm.graph.GetSegmentTravelTime(seg)
}

// FindAngleBetweenStreetSegments returns the change of direction, in radians [0, pi], when driving from src
// into dst at the intersection they share, or NoAngle when they share none.
func (sm *StreetMap) FindAngleBetweenStreetSegments(src, dst da.StreetSegmentIdx) float64 {
	if !sm.graph.IsValidSegment(src) || !sm.graph.IsValidSegment(dst) {
		return NoAngle
	}
	srcFrom, srcTo := sm.graph.GetSegmentEndpoints(src)
	dstFrom, dstTo := sm.graph.GetSegmentEndpoints(dst)

	var via da.IntersectionIdx
	switch {
	case srcTo == dstFrom, srcTo == dstTo:
		via = srcTo
	case srcFrom == dstFrom, srcFrom == dstTo:
		via = srcFrom
	default:
		return NoAngle
	}

	in := sm.graph.GetSegmentGeometry(src, sm.graph.OtherEndpoint(src, via))
	out := sm.graph.GetSegmentGeometry(dst, via)
	return geo.TurnAngle(in[len(in)-2], in[len(in)-1], out[1])
}

// IntersectionsAreDirectlyConnected reports whether a == b or some street segment can legally be driven
// from a to b. Segments without a usable speed limit still connect their endpoints.
func (sm *StreetMap) IntersectionsAreDirectlyConnected(a, b da.IntersectionIdx) bool {
	if a == b {
		return sm.graph.IsValidVertex(a)
	}
	if !sm.graph.IsValidVertex(a) || !sm.graph.IsValidVertex(b) {
		return false
	}
	for _, seg := range sm.db.IntersectionStreetSegments(a) {
		info := sm.db.StreetSegmentInfo(seg)
		if info.From == a && info.To == b {
			return true
		}
		if !info.OneWay && info.To == a && info.From == b {
			return true
		}
	}
	return false
}

// FindClosestIntersection returns the intersection nearest to pos, INVALID_INTERSECTION_ID on an empty map.
func (sm *StreetMap) FindClosestIntersection(pos geo.Coordinate) da.IntersectionIdx {
	id, _, ok := sm.intersectionIndex.Nearest(pos)
	if !ok {
		return da.INVALID_INTERSECTION_ID
	}
	return da.IntersectionIdx(id)
}

// FindClosestPOI returns the point of interest named name nearest to pos. Names are compared ignoring case
// and spaces.
func (sm *StreetMap) FindClosestPOI(pos geo.Coordinate, name string) da.POIIdx {
	want := util.NormalizeName(name)
	id, _, ok := sm.poiIndex.NearestMatching(pos, func(id int32) bool {
		return util.NormalizeName(sm.db.POIName(da.POIIdx(id))) == want
	})
	if !ok {
		return da.INVALID_POI_ID
	}
	return da.POIIdx(id)
}

func (sm *StreetMap) FindStreetSegmentsOfIntersection(i da.IntersectionIdx) []da.StreetSegmentIdx {
	if i < 0 || int(i) >= sm.db.NumIntersections() {
		return []da.StreetSegmentIdx{}
	}
	return sm.db.IntersectionStreetSegments(i)
}

// FindIntersectionsOfStreet returns every intersection on street, ascending and without duplicates.
func (sm *StreetMap) FindIntersectionsOfStreet(street da.StreetIdx) []da.IntersectionIdx {
	if street < 0 || int(street) >= len(sm.streetIntersections) {
		return []da.IntersectionIdx{}
	}
	res := make([]da.IntersectionIdx, len(sm.streetIntersections[street]))
	copy(res, sm.streetIntersections[street])
	return res
}

// FindIntersectionsOfTwoStreets returns the intersections both streets pass through, ascending.
func (sm *StreetMap) FindIntersectionsOfTwoStreets(a, b da.StreetIdx) []da.IntersectionIdx {
	first := sm.FindIntersectionsOfStreet(a)
	second := sm.FindIntersectionsOfStreet(b)

	res := make([]da.IntersectionIdx, 0)
	i, j := 0, 0
	for i < len(first) && j < len(second) {
		switch {
		case first[i] < second[j]:
			i++
		case first[i] > second[j]:
			j++
		default:
			res = append(res, first[i])
			i++
			j++
		}
	}
	return res
}

// FindStreetIdsFromPartialStreetName returns, ascending, the streets whose name starts with prefix.
// Matching ignores case and spaces; an empty prefix matches nothing.
func (sm *StreetMap) FindStreetIdsFromPartialStreetName(prefix string) []da.StreetIdx {
	p := util.NormalizeName(prefix)
	res := make([]da.StreetIdx, 0)
	if p == "" {
		return res
	}
	start := sort.Search(len(sm.sortedNames), func(i int) bool {
		return sm.sortedNames[i].normalized >= p
	})
	for i := start; i < len(sm.sortedNames) && strings.HasPrefix(sm.sortedNames[i].normalized, p); i++ {
		res = append(res, sm.sortedNames[i].id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// FindStreetLength is the total length in meters of the segments of street.
func (sm *StreetMap) FindStreetLength(street da.StreetIdx) float64 {
	if street < 0 || int(street) >= len(sm.streetLengths) {
		return 0
	}
	return sm.streetLengths[street]
}

// FindFeatureArea is the area in square meters enclosed by a closed feature, 0 for open ones.
func (sm *StreetMap) FindFeatureArea(feature da.FeatureIdx) float64 {
	if feature < 0 || int(feature) >= sm.db.NumFeatures() {
		return 0
	}
	return geo.PolygonArea(sm.db.FeaturePoints(feature))
}

// FindNearestPointOnSegment returns the point on the geometry of seg closest to pos and its distance in
// meters.
func (sm *StreetMap) FindNearestPointOnSegment(seg da.StreetSegmentIdx, pos geo.Coordinate) (geo.Coordinate, float64) {
	if !sm.graph.IsValidSegment(seg) {
		return geo.Coordinate{}, math.Inf(1)
	}
	from, _ := sm.graph.GetSegmentEndpoints(seg)
	p, dist, _ := geo.NearestPointOnPolyline(sm.graph.GetSegmentGeometry(seg, from), pos)
	return p, dist
}

// StreetName returns the name of the street seg belongs to.
func (sm *StreetMap) StreetName(seg da.StreetSegmentIdx) string {
	if !sm.graph.IsValidSegment(seg) {
		return ""
	}
	street := sm.graph.GetStreetID(seg)
	if street < 0 || int(street) >= sm.db.NumStreets() {
		return ""
	}
	return sm.db.StreetName(street)
}
