package usecases

import (
	"context"
	"time"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"github.com/lintang-b-s/streetmap/pkg/engine/routing"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"go.uber.org/zap"
)

type CourierRequest struct {
	TurnPenalty float64
	Deliveries  []courier.DeliveryInfo
	Depots      []da.IntersectionIdx
	// TimeBudget <= 0 keeps the configured budget.
	TimeBudget time.Duration
}

type CourierLeg struct {
	StartIntersection da.IntersectionIdx
	EndIntersection   da.IntersectionIdx
	Segments          []da.StreetSegmentIdx
	TravelTime        float64
	Distance          float64
	Polyline          string
}

type CourierRoute struct {
	Depot            da.IntersectionIdx
	Legs             []CourierLeg
	TravelTime       float64
	GreedyTravelTime float64
	Stats            courier.Stats
}

type CourierService struct {
	log     *zap.Logger
	planner CourierPlanner
	engine  RoutingEngine
	// maxTimeBudget caps per request budgets; zero means no cap.
	maxTimeBudget time.Duration
}

func NewCourierService(log *zap.Logger, planner CourierPlanner, engine RoutingEngine,
	maxTimeBudget time.Duration) *CourierService {
	return &CourierService{
		log:           log,
		planner:       planner,
		engine:        engine,
		maxTimeBudget: maxTimeBudget,
	}
}

func (cs *CourierService) validate(req CourierRequest) error {
	if len(req.Depots) == 0 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "at least one depot is required")
	}
	g := cs.engine.GetGraph()
	for i, d := range req.Deliveries {
		if !g.IsValidVertex(d.PickUp) || !g.IsValidVertex(d.DropOff) {
			return util.WrapErrorf(ERRINVALIDINTERSECTION, util.ErrBadParamInput,
				"delivery %d: pick up %d or drop off %d is not an intersection", i, d.PickUp, d.DropOff)
		}
	}
	for _, depot := range req.Depots {
		if !g.IsValidVertex(depot) {
			return util.WrapErrorf(ERRINVALIDINTERSECTION, util.ErrBadParamInput,
				"depot %d is not an intersection", depot)
		}
	}
	return nil
}

// PlanRoute solves a courier request. onImprovement, when not nil, is called every time the optimizer finds
// a cheaper route.
func (cs *CourierService) PlanRoute(ctx context.Context, req CourierRequest,
	onImprovement func(courier.Improvement)) (CourierRoute, error) {
	if err := cs.validate(req); err != nil {
		return CourierRoute{}, err
	}

	budget := req.TimeBudget
	if cs.maxTimeBudget > 0 && (budget <= 0 || budget > cs.maxTimeBudget) {
		budget = cs.maxTimeBudget
	}
	opts := []courier.AnnealerOption{courier.WithTimeBudget(budget)}
	if onImprovement != nil {
		opts = append(opts, courier.WithImprovementHandler(onImprovement))
	}

	plan := cs.planner.Plan(ctx, req.TurnPenalty, req.Deliveries, req.Depots, opts...)
	if plan.Route == nil {
		return CourierRoute{}, util.WrapErrorf(ERRINFEASIBLECOURIER, util.ErrUnprocessable,
			"%d deliveries can not be served from %d depots", len(req.Deliveries), len(req.Depots))
	}

	g := cs.engine.GetGraph()
	legs := make([]CourierLeg, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		legs = append(legs, CourierLeg{
			StartIntersection: leg.StartIntersection,
			EndIntersection:   leg.EndIntersection,
			Segments:          leg.Subpath,
			TravelTime:        routing.ComputePathTravelTime(g, leg.Subpath, req.TurnPenalty),
			Distance:          cs.engine.PathDistance(leg.Subpath),
			Polyline:          geo.PolylineFromCoords(cs.engine.PathGeometry(leg.StartIntersection, leg.Subpath)),
		})
	}

	return CourierRoute{
		Depot:            plan.Depot,
		Legs:             legs,
		TravelTime:       plan.TravelTime,
		GreedyTravelTime: plan.InitialTime,
		Stats:            plan.Stats,
	}, nil
}
