package usecases

import (
	"errors"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/guidance"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"go.uber.org/zap"
)

var (
	ERRPATHNOTFOUND        = errors.New("no path found")
	ERRNOINTERSECTION      = errors.New("map has no intersections")
	ERRINFEASIBLECOURIER   = errors.New("no legal courier route")
	ERRINVALIDINTERSECTION = errors.New("invalid intersection")
)

// Intersection is a map intersection snapped from a query coordinate.
type Intersection struct {
	ID       da.IntersectionIdx
	Name     string
	Position geo.Coordinate
	// SnapDistance is the distance in meters between the query coordinate and Position.
	SnapDistance float64
}

type Route struct {
	Source     Intersection
	Target     Intersection
	TravelTime float64
	Distance   float64
	Polyline   string
	Segments   []da.StreetSegmentIdx
	Directions []guidance.DrivingDirection
}

type Street struct {
	ID               da.StreetIdx
	Name             string
	Length           float64
	NumIntersections int
}

type RoutingService struct {
	log       *zap.Logger
	engine    RoutingEngine
	streetMap StreetMap
}

func NewRoutingService(log *zap.Logger, engine RoutingEngine, streetMap StreetMap) *RoutingService {
	return &RoutingService{
		log:       log,
		engine:    engine,
		streetMap: streetMap,
	}
}

func (rs *RoutingService) ClosestIntersection(lat, lon float64) (Intersection, error) {
	pos := geo.NewCoordinate(lat, lon)
	id := rs.streetMap.FindClosestIntersection(pos)
	if id == da.INVALID_INTERSECTION_ID {
		return Intersection{}, util.WrapErrorf(ERRNOINTERSECTION, util.ErrNotFound,
			"no intersection close to %f,%f", lat, lon)
	}
	db := rs.streetMap.Database()
	position := db.IntersectionPosition(id)
	return Intersection{
		ID:           id,
		Name:         db.IntersectionName(id),
		Position:     position,
		SnapDistance: rs.streetMap.FindDistanceBetweenTwoPoints(pos, position),
	}, nil
}

// ShortestPath snaps both coordinates to their closest intersections and routes between them.
func (rs *RoutingService) ShortestPath(origLat, origLon, dstLat, dstLon, turnPenalty float64) (Route, error) {
	source, err := rs.ClosestIntersection(origLat, origLon)
	if err != nil {
		return Route{}, err
	}
	target, err := rs.ClosestIntersection(dstLat, dstLon)
	if err != nil {
		return Route{}, err
	}

	path, travelTime, found := rs.engine.ShortestPathWithTravelTime(source.ID, target.ID, turnPenalty)
	if !found {
		return Route{}, util.WrapErrorf(ERRPATHNOTFOUND, util.ErrNotFound,
			"no path found from %f,%f to %f,%f", origLat, origLon, dstLat, dstLon)
	}

	return Route{
		Source:     source,
		Target:     target,
		TravelTime: travelTime,
		Distance:   rs.engine.PathDistance(path),
		Polyline:   geo.PolylineFromCoords(rs.engine.PathGeometry(source.ID, path)),
		Segments:   path,
		Directions: guidance.DrivingDirections(rs.engine.GetGraph(), rs.streetMap.Database(), source.ID, path),
	}, nil
}

// SearchStreets lists at most limit streets whose name starts with prefix.
func (rs *RoutingService) SearchStreets(prefix string, limit int) []Street {
	ids := rs.streetMap.FindStreetIdsFromPartialStreetName(prefix)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	db := rs.streetMap.Database()
	streets := make([]Street, 0, len(ids))
	for _, id := range ids {
		streets = append(streets, Street{
			ID:               id,
			Name:             db.StreetName(id),
			Length:           rs.streetMap.FindStreetLength(id),
			NumIntersections: len(rs.streetMap.FindIntersectionsOfStreet(id)),
		})
	}
	return streets
}
