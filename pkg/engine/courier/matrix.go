package courier

import (
	"math"
	"runtime"
	"time"

	"github.com/lintang-b-s/streetmap/pkg/concurrent"
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/engine/routing"
	"go.uber.org/zap"
)

// RoutingEngine is the part of routing.Engine the courier planner needs.
type RoutingEngine interface {
	ShortestPath(source, target da.IntersectionIdx, turnPenalty float64) []da.StreetSegmentIdx
	AcquireSearchState() *routing.SearchState
	ReleaseSearchState(state *routing.SearchState)
	TravelTimesFrom(state *routing.SearchState, source da.IntersectionIdx, targets []da.IntersectionIdx,
		turnPenalty float64) []float64
}

// TravelTimeMatrix holds the shortest travel time between every ordered pair of POIs, +Inf when the
// second is not reachable from the first.
type TravelTimeMatrix struct {
	size  int
	times []float64
}

func NewTravelTimeMatrix(size int) *TravelTimeMatrix {
	times := make([]float64, size*size)
	for i := range times {
		times[i] = math.Inf(1)
	}
	for i := 0; i < size; i++ {
		times[i*size+i] = 0
	}
	return &TravelTimeMatrix{size: size, times: times}
}

func (m *TravelTimeMatrix) Size() int {
	return m.size
}

func (m *TravelTimeMatrix) At(from, to int) float64 {
	return m.times[from*m.size+to]
}

func (m *TravelTimeMatrix) Set(from, to int, t float64) {
	m.times[from*m.size+to] = t
}

type matrixRow struct {
	source da.IntersectionIdx
	times  []float64
}

// BuildTravelTimeMatrix fills the POI matrix with one full-graph sweep per distinct source intersection.
// Sweeps run on a worker pool; every job takes its own search buffer from the engine.
func BuildTravelTimeMatrix(engine RoutingEngine, problem *Problem, turnPenalty float64, workers int,
	logger *zap.Logger) *TravelTimeMatrix {
	start := time.Now()
	k := problem.NumPOIs()
	m := NewTravelTimeMatrix(k)
	if k == 0 {
		return m
	}

	targets := problem.Intersections()
	rowsOf := make(map[da.IntersectionIdx][]int, k)
	sources := make([]da.IntersectionIdx, 0, k)
	for poi, inter := range targets {
		if _, ok := rowsOf[inter]; !ok {
			sources = append(sources, inter)
		}
		rowsOf[inter] = append(rowsOf[inter], poi)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(sources) {
		workers = len(sources)
	}

	wp := concurrent.NewWorkerPool[da.IntersectionIdx, matrixRow](workers, len(sources))
	wp.Start(func(source da.IntersectionIdx) matrixRow {
		state := engine.AcquireSearchState()
		defer engine.ReleaseSearchState(state)
		return matrixRow{source: source, times: engine.TravelTimesFrom(state, source, targets, turnPenalty)}
	})
	for _, s := range sources {
		wp.AddJob(s)
	}
	wp.Close()
	wp.Wait()

	for row := range wp.CollectResults() {
		for _, from := range rowsOf[row.source] {
			for to, t := range row.times {
				if from == to {
					continue
				}
				m.Set(from, to, t)
			}
		}
	}

	logger.Debug("travel time matrix built",
		zap.Int("pois", k),
		zap.Int("sweeps", len(sources)),
		zap.Int("workers", workers),
		zap.Duration("took", time.Since(start)))
	return m
}
