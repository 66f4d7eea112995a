package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"
	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"github.com/lintang-b-s/streetmap/pkg/engine/routing"
	"github.com/lintang-b-s/streetmap/pkg/http"
	"github.com/lintang-b-s/streetmap/pkg/http/usecases"
	"github.com/lintang-b-s/streetmap/pkg/landmark"
	"github.com/lintang-b-s/streetmap/pkg/logger"
	"github.com/lintang-b-s/streetmap/pkg/osmparser"
	"github.com/lintang-b-s/streetmap/pkg/streetmap"
	"github.com/lintang-b-s/streetmap/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	mapFile      = flag.String("map", "", "openstreetmap extract (.osm.pbf, .osm, .osm.bz2) or street map snapshot (.streetmap.bz2), overrides MAP_FILE")
	useRateLimit = flag.Bool("rate_limit", false, "limit requests per second across all clients")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}
	if err := util.ReadConfig(); err != nil {
		panic(err)
	}

	viper.SetDefault("MAP_FILE", "./data/map"+osmparser.SnapshotSuffix)
	viper.SetDefault("SEARCH_RADIUS_KM", 0.5)
	viper.SetDefault("LEG_CACHE_SIZE", 4096)
	viper.SetDefault("COURIER_MAX_TIME_BUDGET", courier.DefaultTimeBudget)
	viper.SetDefault("LANDMARK_COUNT", 16)
	if *mapFile == "" {
		*mapFile = viper.GetString("MAP_FILE")
	}

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	db, err := osmparser.LoadMap(ctx, *mapFile, logger)
	if err != nil {
		panic(err)
	}

	sm := streetmap.New(db, viper.GetFloat64("SEARCH_RADIUS_KM"), logger)
	routingEngine, err := routing.NewEngine(sm.Graph(), logger, viper.GetInt("LEG_CACHE_SIZE"))
	if err != nil {
		panic(err)
	}
	lm, err := loadLandmarks(sm, logger)
	if err != nil {
		panic(err)
	}
	if lm != nil {
		routingEngine.SetLowerBound(lm)
	}

	courierPlanner := courier.NewService(routingEngine, courier.LoadServiceConfig(), logger)

	api := http.NewServer(logger)

	routingService := usecases.NewRoutingService(logger, routingEngine, sm)
	courierService := usecases.NewCourierService(logger, courierPlanner, routingEngine,
		viper.GetDuration("COURIER_MAX_TIME_BUDGET"))

	if _, err := api.Use(ctx, logger, *useRateLimit, routingService, courierService); err != nil {
		panic(err)
	}

	signal := http.GracefulShutdown()

	logger.Info("streetmap routing engine server stopped", zap.String("signal", signal.String()))
	cleanup()
	if err := api.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}

// loadLandmarks reads LANDMARK_FILE when it was written for this map and computes LANDMARK_COUNT landmarks
// otherwise. No landmarks are used when LANDMARK_COUNT is zero.
func loadLandmarks(sm *streetmap.StreetMap, logger *zap.Logger) (*landmark.Landmark, error) {
	n := sm.Graph().NumberOfVertices()
	if file := viper.GetString("LANDMARK_FILE"); file != "" {
		lm, err := landmark.ReadLandmark(file)
		switch {
		case err != nil:
			logger.Warn("can not read landmark file", zap.String("file", file), zap.Error(err))
		case lm.NumIntersections() != n:
			logger.Warn("landmark file was computed for another map", zap.String("file", file),
				zap.Int("intersections", lm.NumIntersections()), zap.Int("map_intersections", n))
		default:
			return lm, nil
		}
	}

	k := viper.GetInt("LANDMARK_COUNT")
	if k <= 0 {
		return nil, nil
	}
	lm := landmark.NewLandmark()
	if err := lm.PreprocessALT(sm.Graph(), k, logger); err != nil {
		return nil, err
	}
	return lm, nil
}
