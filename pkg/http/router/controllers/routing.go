package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gobwas/ws"
	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/streetmap/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

const defaultStreetSearchLimit = 20

type routingAPI struct {
	routingService RoutingService
	courierService CourierService
	hub            *Hub
	log            *zap.Logger
}

func New(routingService RoutingService, courierService CourierService, hub *Hub, log *zap.Logger) *routingAPI {
	return &routingAPI{
		routingService: routingService,
		courierService: courierService,
		hub:            hub,
		log:            log,
	}
}

func (api *routingAPI) Routes(group *helper.RouteGroup) {
	group.GET("/computeRoutes", api.shortestPath)
	group.GET("/intersections/closest", api.closestIntersection)
	group.GET("/streets/search", api.searchStreets)
	group.POST("/courierRoute", api.courierRoute)
	group.GET("/courierRoute/ws", api.courierRouteStream)
}

// shortestPath
//
//	@Summary	fastest route between two coordinates, each snapped to its closest intersection
//	@Tags		routing
//	@Param		origin_lat		query	number	true	"origin latitude"
//	@Param		origin_lon		query	number	true	"origin longitude"
//	@Param		destination_lat	query	number	true	"destination latitude"
//	@Param		destination_lon	query	number	true	"destination longitude"
//	@Param		turn_penalty	query	number	false	"seconds added for every change of street"
//	@Produce	json
//	@Success	200	{object}	shortestPathResponse
//	@Failure	400	{object}	errorBody
//	@Failure	404	{object}	errorBody
//	@Router		/computeRoutes [get]
func (api *routingAPI) shortestPath(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request shortestPathRequest

	query := r.URL.Query()
	for _, param := range []struct {
		key string
		dst *float64
	}{
		{"origin_lat", &request.OriginLat},
		{"origin_lon", &request.OriginLon},
		{"destination_lat", &request.DestinationLat},
		{"destination_lon", &request.DestinationLon},
	} {
		if err := parseFloatParam(query, param.key, param.dst); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
	}
	if query.Get("turn_penalty") != "" {
		if err := parseFloatParam(query, "turn_penalty", &request.TurnPenalty); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
	}

	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	route, err := api.routingService.ShortestPath(request.OriginLat, request.OriginLon,
		request.DestinationLat, request.DestinationLon, request.TurnPenalty)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewShortestPathResponse(route)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

// closestIntersection
//
//	@Summary	closest intersection to a coordinate
//	@Tags		map
//	@Param		lat	query	number	true	"latitude"
//	@Param		lon	query	number	true	"longitude"
//	@Produce	json
//	@Success	200	{object}	intersectionResponse
//	@Router		/intersections/closest [get]
func (api *routingAPI) closestIntersection(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request closestIntersectionRequest

	query := r.URL.Query()
	if err := parseFloatParam(query, "lat", &request.Lat); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := parseFloatParam(query, "lon", &request.Lon); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	intersection, err := api.routingService.ClosestIntersection(request.Lat, request.Lon)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewIntersectionResponse(intersection)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// searchStreets
//
//	@Summary	streets whose name starts with a prefix, ignoring case and spaces
//	@Tags		map
//	@Param		prefix	query	string	true	"street name prefix"
//	@Param		limit	query	int		false	"maximum number of streets (default 20)"
//	@Produce	json
//	@Success	200	{array}	streetResponse
//	@Router		/streets/search [get]
func (api *routingAPI) searchStreets(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	request := streetSearchRequest{
		Prefix: r.URL.Query().Get("prefix"),
		Limit:  defaultStreetSearchLimit,
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
		request.Limit = v
	}
	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	streets := api.routingService.SearchStreets(request.Prefix, request.Limit)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewStreetsResponse(streets)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// courierRoute
//
//	@Summary	plan a pickup and delivery route that starts and ends at one of the depots
//	@Tags		courier
//	@Accept		json
//	@Produce	json
//	@Param		body	body		courierRouteRequest	true	"deliveries and depots as intersection ids"
//	@Success	200		{object}	courierRouteResponse
//	@Failure	422		{object}	errorBody
//	@Router		/courierRoute [post]
func (api *routingAPI) courierRoute(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request courierRouteRequest

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}

	if err := validateRequest(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}

	route, err := api.courierService.PlanRoute(r.Context(), request.ToCourierRequest(), nil)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewCourierRouteResponse(route)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// courierRouteStream upgrades to a websocket, reads one courierRouteRequest and streams courierEvent
// messages: improvements while the optimizer runs, then the result.
func (api *routingAPI) courierRouteStream(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	conn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
		return
	}

	session := api.hub.Register(conn, rw.Reader)
	defer api.hub.Remove(session)

	api.log.Info("established websocket connection", zap.Uint("session", session.id),
		zap.String("remote_addr", r.RemoteAddr))

	if err := session.PlanCourierRoute(r.Context()); err != nil {
		api.log.Info("courier websocket session ended", zap.Uint("session", session.id), zap.Error(err))
	}
}
