package main

import (
	"context"
	"flag"
	"time"

	"github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"github.com/lintang-b-s/streetmap/pkg/engine/routing"
	"github.com/lintang-b-s/streetmap/pkg/logger"
	"github.com/lintang-b-s/streetmap/pkg/osmparser"
	"github.com/lintang-b-s/streetmap/pkg/streetmap"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	mapFile     = flag.String("map", "./data/map"+osmparser.SnapshotSuffix, "street map snapshot or openstreetmap extract")
	deliveries  = flag.Int("deliveries", 20, "number of random deliveries")
	depots      = flag.Int("depots", 3, "number of random depots")
	turnPenalty = flag.Float64("turn_penalty", 15, "seconds added for every change of street")
	seed        = flag.Uint64("seed", 42, "seed for the random problem and the optimizer")
	budget      = flag.Duration("budget", 10*time.Second, "optimizer time budget")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}

	db, err := osmparser.LoadMap(context.Background(), *mapFile, logger)
	if err != nil {
		panic(err)
	}
	if db.NumIntersections() == 0 {
		logger.Fatal("map has no intersections", zap.String("file", *mapFile))
	}

	sm := streetmap.New(db, 0.5, logger)
	routingEngine, err := routing.NewEngine(sm.Graph(), logger, 0)
	if err != nil {
		panic(err)
	}

	// every pair inside one strongly connected component is reachable both ways
	components, count := sm.Graph().StronglyConnectedComponents()
	reachable := datastructure.LargestComponent(components, count)
	logger.Info("drawing stops from the largest strongly connected component",
		zap.Int("components", count), zap.Int("intersections", len(reachable)))

	rng := rand.New(rand.NewSource(*seed))
	randomIntersection := func() datastructure.IntersectionIdx {
		return reachable[rng.Intn(len(reachable))]
	}

	jobs := make([]courier.DeliveryInfo, *deliveries)
	for i := range jobs {
		jobs[i] = courier.DeliveryInfo{PickUp: randomIntersection(), DropOff: randomIntersection()}
	}
	depotIDs := make([]datastructure.IntersectionIdx, *depots)
	for i := range depotIDs {
		depotIDs[i] = randomIntersection()
	}

	cfg := courier.ServiceConfig{Annealer: courier.DefaultConfig()}
	cfg.Annealer.Seed = *seed
	cfg.Annealer.Parallel = true

	service := courier.NewService(routingEngine, cfg, logger)
	plan := service.Plan(context.Background(), *turnPenalty, jobs, depotIDs,
		courier.WithTimeBudget(*budget),
		courier.WithImprovementHandler(func(imp courier.Improvement) {
			logger.Info("improved", zap.Int("chain", imp.Chain), zap.Float64("cost", imp.Cost),
				zap.Duration("elapsed", imp.Elapsed))
		}))

	if plan.Route == nil {
		logger.Info("no legal courier route for this problem", zap.Uint64("seed", *seed))
		return
	}

	logger.Info("courier route",
		zap.Int("depot", int(plan.Depot)),
		zap.Int("legs", len(plan.Legs)),
		zap.Float64("greedy_travel_time", plan.InitialTime),
		zap.Float64("travel_time", plan.TravelTime),
		zap.Float64("improvement_pct", 100*(plan.InitialTime-plan.TravelTime)/plan.InitialTime),
		zap.Int("iterations", plan.Stats.Iterations),
		zap.Int("reheats", plan.Stats.Reheats))
}
