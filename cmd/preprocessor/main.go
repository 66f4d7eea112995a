package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/landmark"
	"github.com/lintang-b-s/streetmap/pkg/logger"
	"github.com/lintang-b-s/streetmap/pkg/osmparser"
	"github.com/lintang-b-s/streetmap/pkg/streetdb"
	"go.uber.org/zap"
)

var (
	input  = flag.String("input", "./data/map.osm.pbf", "openstreetmap extract (.osm.pbf, .osm, .osm.bz2)")
	output = flag.String("output", "./data/map"+osmparser.SnapshotSuffix, "street map snapshot to write")

	landmarkFile  = flag.String("landmark_output", "./data/landmarks.txt.bz2", "landmark travel times to write, empty to skip")
	landmarkCount = flag.Int("landmarks", 16, "number of landmarks")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}

	db, err := osmparser.ParseFile(context.Background(), *input, logger)
	if err != nil {
		panic(err)
	}

	if err := streetdb.WriteMapFile(*output, db); err != nil {
		panic(err)
	}

	logger.Info("street map snapshot written",
		zap.String("file", *output),
		zap.Int("intersections", db.NumIntersections()),
		zap.Int("street_segments", db.NumStreetSegments()),
		zap.Int("streets", db.NumStreets()),
		zap.Int("points_of_interest", db.NumPointsOfInterest()),
		zap.Int("features", db.NumFeatures()))

	if *landmarkFile == "" || *landmarkCount <= 0 {
		return
	}
	lm := landmark.NewLandmark()
	if err := lm.PreprocessALT(datastructure.NewGraph(db), *landmarkCount, logger); err != nil {
		panic(err)
	}
	if err := lm.WriteLandmark(*landmarkFile); err != nil {
		panic(err)
	}
	logger.Info("landmarks written", zap.String("file", *landmarkFile), zap.Int("landmarks", len(lm.Landmarks())))
}
