package usecases

import (
	"context"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"github.com/lintang-b-s/streetmap/pkg/geo"
)

type RoutingEngine interface {
	GetGraph() *da.Graph
	ShortestPathWithTravelTime(source, target da.IntersectionIdx, turnPenalty float64) ([]da.StreetSegmentIdx, float64, bool)
	PathGeometry(source da.IntersectionIdx, path []da.StreetSegmentIdx) []geo.Coordinate
	PathDistance(path []da.StreetSegmentIdx) float64
}

type StreetMap interface {
	Database() da.MapDatabase
	FindClosestIntersection(pos geo.Coordinate) da.IntersectionIdx
	FindDistanceBetweenTwoPoints(a, b geo.Coordinate) float64
	FindStreetIdsFromPartialStreetName(prefix string) []da.StreetIdx
	FindIntersectionsOfStreet(street da.StreetIdx) []da.IntersectionIdx
	FindStreetLength(street da.StreetIdx) float64
}

type CourierPlanner interface {
	Plan(ctx context.Context, turnPenalty float64, deliveries []courier.DeliveryInfo, depots []da.IntersectionIdx,
		opts ...courier.AnnealerOption) courier.Plan
}
