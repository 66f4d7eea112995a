package controllers

import (
	"time"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"github.com/lintang-b-s/streetmap/pkg/guidance"
	"github.com/lintang-b-s/streetmap/pkg/http/usecases"
)

type shortestPathRequest struct {
	OriginLat      float64 `json:"origin_lat" validate:"gte=-90,lte=90"`
	OriginLon      float64 `json:"origin_lon" validate:"gte=-180,lte=180"`
	DestinationLat float64 `json:"destination_lat" validate:"gte=-90,lte=90"`
	DestinationLon float64 `json:"destination_lon" validate:"gte=-180,lte=180"`
	TurnPenalty    float64 `json:"turn_penalty" validate:"gte=0,lte=3600"`
}

type intersectionResponse struct {
	ID           da.IntersectionIdx `json:"id"`
	Name         string             `json:"name"`
	Lat          float64            `json:"lat"`
	Lon          float64            `json:"lon"`
	SnapDistance float64            `json:"snap_distance"`
}

func NewIntersectionResponse(in usecases.Intersection) intersectionResponse {
	return intersectionResponse{
		ID:           in.ID,
		Name:         in.Name,
		Lat:          in.Position.Lat,
		Lon:          in.Position.Lon,
		SnapDistance: in.SnapDistance,
	}
}

type shortestPathResponse struct {
	Eta               float64                     `json:"eta"`
	Path              string                      `json:"path"`
	Dist              float64                     `json:"distance"`
	Source            intersectionResponse        `json:"source"`
	Destination       intersectionResponse        `json:"destination"`
	Segments          []da.StreetSegmentIdx       `json:"segments"`
	DrivingDirections []guidance.DrivingDirection `json:"driving_directions"`
}

func NewShortestPathResponse(route usecases.Route) shortestPathResponse {
	return shortestPathResponse{
		Eta:               route.TravelTime,
		Path:              route.Polyline,
		Dist:              route.Distance,
		Source:            NewIntersectionResponse(route.Source),
		Destination:       NewIntersectionResponse(route.Target),
		Segments:          route.Segments,
		DrivingDirections: route.Directions,
	}
}

type closestIntersectionRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type streetSearchRequest struct {
	Prefix string `json:"prefix" validate:"max=256"`
	Limit  int    `json:"limit" validate:"gte=1,lte=100"`
}

type streetResponse struct {
	ID               da.StreetIdx `json:"id"`
	Name             string       `json:"name"`
	Length           float64      `json:"length"`
	NumIntersections int          `json:"num_intersections"`
}

func NewStreetsResponse(streets []usecases.Street) []streetResponse {
	res := make([]streetResponse, 0, len(streets))
	for _, s := range streets {
		res = append(res, streetResponse{
			ID:               s.ID,
			Name:             s.Name,
			Length:           s.Length,
			NumIntersections: s.NumIntersections,
		})
	}
	return res
}

type deliveryRequest struct {
	PickUp  int32 `json:"pick_up" validate:"gte=0"`
	DropOff int32 `json:"drop_off" validate:"gte=0"`
}

type courierRouteRequest struct {
	TurnPenalty  float64           `json:"turn_penalty" validate:"gte=0,lte=3600"`
	Deliveries   []deliveryRequest `json:"deliveries" validate:"max=1000,dive"`
	Depots       []int32           `json:"depots" validate:"required,min=1,max=100,dive,gte=0"`
	TimeBudgetMs int64             `json:"time_budget_ms" validate:"gte=0,lte=600000"`
}

func (req courierRouteRequest) ToCourierRequest() usecases.CourierRequest {
	deliveries := make([]courier.DeliveryInfo, 0, len(req.Deliveries))
	for _, d := range req.Deliveries {
		deliveries = append(deliveries, courier.DeliveryInfo{
			PickUp:  da.IntersectionIdx(d.PickUp),
			DropOff: da.IntersectionIdx(d.DropOff),
		})
	}
	depots := make([]da.IntersectionIdx, 0, len(req.Depots))
	for _, d := range req.Depots {
		depots = append(depots, da.IntersectionIdx(d))
	}
	return usecases.CourierRequest{
		TurnPenalty: req.TurnPenalty,
		Deliveries:  deliveries,
		Depots:      depots,
		TimeBudget:  time.Duration(req.TimeBudgetMs) * time.Millisecond,
	}
}

type courierLegResponse struct {
	StartIntersection da.IntersectionIdx    `json:"start_intersection"`
	EndIntersection   da.IntersectionIdx    `json:"end_intersection"`
	Segments          []da.StreetSegmentIdx `json:"segments"`
	TravelTime        float64               `json:"travel_time"`
	Distance          float64               `json:"distance"`
	Path              string                `json:"path"`
}

type optimizerStatsResponse struct {
	Chains       int `json:"chains"`
	Iterations   int `json:"iterations"`
	Proposals    int `json:"proposals"`
	Accepted     int `json:"accepted"`
	Improvements int `json:"improvements"`
	Reheats      int `json:"reheats"`
}

type courierRouteResponse struct {
	Depot            da.IntersectionIdx     `json:"depot"`
	TravelTime       float64                `json:"travel_time"`
	GreedyTravelTime float64                `json:"greedy_travel_time"`
	Legs             []courierLegResponse   `json:"legs"`
	Stats            optimizerStatsResponse `json:"stats"`
}

func NewCourierRouteResponse(route usecases.CourierRoute) courierRouteResponse {
	legs := make([]courierLegResponse, 0, len(route.Legs))
	for _, leg := range route.Legs {
		legs = append(legs, courierLegResponse{
			StartIntersection: leg.StartIntersection,
			EndIntersection:   leg.EndIntersection,
			Segments:          leg.Segments,
			TravelTime:        leg.TravelTime,
			Distance:          leg.Distance,
			Path:              leg.Polyline,
		})
	}
	return courierRouteResponse{
		Depot:            route.Depot,
		TravelTime:       route.TravelTime,
		GreedyTravelTime: route.GreedyTravelTime,
		Legs:             legs,
		Stats: optimizerStatsResponse{
			Chains:       route.Stats.Chains,
			Iterations:   route.Stats.Iterations,
			Proposals:    route.Stats.Proposals,
			Accepted:     route.Stats.Accepted,
			Improvements: route.Stats.Improvements,
			Reheats:      route.Stats.Reheats,
		},
	}
}

const (
	eventImprovement = "improvement"
	eventResult      = "result"
	eventError       = "error"
)

// courierEvent is one websocket message of a streamed courier request.
type courierEvent struct {
	Type      string                `json:"type"`
	Chain     int                   `json:"chain,omitempty"`
	Cost      float64               `json:"cost,omitempty"`
	ElapsedMs int64                 `json:"elapsed_ms,omitempty"`
	Route     *courierRouteResponse `json:"route,omitempty"`
	Error     *errorBody            `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
