package controllers

import (
	"context"

	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"github.com/lintang-b-s/streetmap/pkg/http/usecases"
)

type RoutingService interface {
	ShortestPath(origLat, origLon, dstLat, dstLon, turnPenalty float64) (usecases.Route, error)
	ClosestIntersection(lat, lon float64) (usecases.Intersection, error)
	SearchStreets(prefix string, limit int) []usecases.Street
}

type CourierService interface {
	PlanRoute(ctx context.Context, req usecases.CourierRequest,
		onImprovement func(courier.Improvement)) (usecases.CourierRoute, error)
}
