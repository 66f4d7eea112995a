package courier

import (
	"context"
	"math"
	"time"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type ServiceConfig struct {
	Annealer Config
	// MatrixWorkers <= 0 uses one worker per CPU.
	MatrixWorkers int
}

// LoadServiceConfig reads the COURIER_* settings from viper.
func LoadServiceConfig() ServiceConfig {
	viper.SetDefault("COURIER_TIME_BUDGET", DefaultTimeBudget)
	viper.SetDefault("COURIER_COOLING_RATE", DefaultCoolingRate)
	viper.SetDefault("COURIER_MIN_TEMPERATURE", DefaultMinTemperature)
	viper.SetDefault("COURIER_SEED", 1)
	viper.SetDefault("COURIER_PARALLEL", true)
	viper.SetDefault("COURIER_MATRIX_WORKERS", 0)

	return ServiceConfig{
		Annealer: Config{
			TimeBudget:          viper.GetDuration("COURIER_TIME_BUDGET"),
			InitialTemperature:  viper.GetFloat64("COURIER_INITIAL_TEMPERATURE"),
			CoolingRate:         viper.GetFloat64("COURIER_COOLING_RATE"),
			MinTemperature:      viper.GetFloat64("COURIER_MIN_TEMPERATURE"),
			MovesPerTemperature: viper.GetInt("COURIER_MOVES_PER_TEMPERATURE"),
			MaxIterations:       viper.GetInt("COURIER_MAX_ITERATIONS"),
			Parallel:            viper.GetBool("COURIER_PARALLEL"),
			Seed:                viper.GetUint64("COURIER_SEED"),
		},
		MatrixWorkers: viper.GetInt("COURIER_MATRIX_WORKERS"),
	}
}

// Plan is a solved courier request.
type Plan struct {
	Legs []CourierSubPath
	// Route is the POI order behind Legs, nil when no legal route exists.
	Route       Route
	Depot       da.IntersectionIdx
	TravelTime  float64
	InitialTime float64
	Stats       Stats
}

type Service struct {
	engine RoutingEngine
	cfg    ServiceConfig
	logger *zap.Logger
}

func NewService(engine RoutingEngine, cfg ServiceConfig, logger *zap.Logger) *Service {
	return &Service{engine: engine, cfg: cfg, logger: logger}
}

// TravelingCourier plans a route that starts and ends at the same depot, picks up every delivery before
// dropping it off, and returns it as legs of street segments. The result is empty when no legal route
// exists.
func (s *Service) TravelingCourier(turnPenalty float64, deliveries []DeliveryInfo,
	depots []da.IntersectionIdx) []CourierSubPath {
	return s.Plan(context.Background(), turnPenalty, deliveries, depots).Legs
}

// Plan is TravelingCourier with the POI route, its cost and optimizer statistics. opts customize the
// annealer for this request only.
func (s *Service) Plan(ctx context.Context, turnPenalty float64, deliveries []DeliveryInfo,
	depots []da.IntersectionIdx, opts ...AnnealerOption) Plan {
	start := time.Now()
	plan := Plan{
		Legs:        []CourierSubPath{},
		Depot:       da.INVALID_INTERSECTION_ID,
		TravelTime:  math.Inf(1),
		InitialTime: math.Inf(1),
	}
	if len(depots) == 0 {
		return plan
	}

	problem := NewProblem(deliveries, depots)
	m := BuildTravelTimeMatrix(s.engine, problem, turnPenalty, s.cfg.MatrixWorkers, s.logger)

	initial := GreedyRoutes(m, problem)
	if len(initial) == 0 {
		s.logger.Info("no legal courier route",
			zap.Int("deliveries", len(deliveries)),
			zap.Int("depots", len(depots)))
		return plan
	}

	res := NewAnnealer(s.cfg.Annealer, s.logger, opts...).Optimize(ctx, m, problem, initial)

	legs, ok := s.expandLegs(problem, res.Route, turnPenalty)
	if !ok {
		s.logger.Error("courier leg has no path although the matrix has a finite travel time",
			zap.Ints("route", res.Route))
		return plan
	}

	plan.Legs = legs
	plan.Route = res.Route
	plan.Depot = problem.Intersection(res.Route[0])
	plan.TravelTime = res.Cost
	plan.InitialTime = res.InitialCost
	plan.Stats = res.Stats

	s.logger.Info("courier route planned",
		zap.Int("deliveries", len(deliveries)),
		zap.Int("depots", len(depots)),
		zap.Int("legs", len(legs)),
		zap.Float64("greedy_travel_time", res.InitialCost),
		zap.Float64("travel_time", res.Cost),
		zap.Duration("took", time.Since(start)))
	return plan
}

// expandLegs turns a POI route into street segment legs. Consecutive stops on the same intersection
// share one position and produce no leg.
func (s *Service) expandLegs(p *Problem, r Route, turnPenalty float64) ([]CourierSubPath, bool) {
	legs := make([]CourierSubPath, 0, len(r)-1)
	prev := p.Intersection(r[0])
	for _, poi := range r[1:] {
		curr := p.Intersection(poi)
		if curr == prev {
			continue
		}
		path := s.engine.ShortestPath(prev, curr, turnPenalty)
		if len(path) == 0 {
			return nil, false
		}
		legs = append(legs, CourierSubPath{StartIntersection: prev, EndIntersection: curr, Subpath: path})
		prev = curr
	}
	return legs, true
}
