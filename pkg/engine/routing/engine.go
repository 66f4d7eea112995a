package routing

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
	"go.uber.org/zap"
)

type PathCacheKey struct {
	source      da.IntersectionIdx
	target      da.IntersectionIdx
	turnPenalty float64
}

// Engine answers shortest path queries over one Graph. It is safe for concurrent use: every query takes a
// private SearchState from a pool.
type Engine struct {
	graph     *da.Graph
	logger    *zap.Logger
	bufPool   sync.Pool
	pathCache *lru.Cache[PathCacheKey, []da.StreetSegmentIdx]

	lowerBound LowerBound
}

// NewEngine builds an engine over graph. pathCacheSize > 0 enables an LRU cache of computed paths.
func NewEngine(graph *da.Graph, logger *zap.Logger, pathCacheSize int) (*Engine, error) {
	e := &Engine{
		graph:  graph,
		logger: logger,
	}
	if pathCacheSize > 0 {
		cache, err := lru.New[PathCacheKey, []da.StreetSegmentIdx](pathCacheSize)
		if err != nil {
			return nil, err
		}
		e.pathCache = cache
	}
	e.BuildBufferPool()

	logger.Info("routing engine ready",
		zap.Int("intersections", graph.NumberOfVertices()),
		zap.Int("directed_edges", graph.NumberOfOutEdges()),
		zap.Float64("max_speed_limit_mps", graph.MaxSpeedLimit()),
		zap.Int("path_cache_size", pathCacheSize))
	return e, nil
}

func (e *Engine) BuildBufferPool() {
	e.bufPool = sync.Pool{
		New: func() any {
			return NewSearchState(e.graph)
		},
	}
}

func (e *Engine) GetGraph() *da.Graph {
	return e.graph
}

// SetLowerBound makes point to point queries use lb, typically landmark travel times, on top of the
// straight-line heuristic. Call it before serving queries.
func (e *Engine) SetLowerBound(lb LowerBound) {
	e.lowerBound = lb
}

// AcquireSearchState hands out a search buffer owned by the caller until ReleaseSearchState.
func (e *Engine) AcquireSearchState() *SearchState {
	return e.bufPool.Get().(*SearchState)
}

func (e *Engine) ReleaseSearchState(state *SearchState) {
	e.bufPool.Put(state)
}

// ShortestPath returns the street segments of the fastest path from source to target under turnPenalty.
// The path is empty when source == target or target can not be reached.
func (e *Engine) ShortestPath(source, target da.IntersectionIdx, turnPenalty float64) []da.StreetSegmentIdx {
	path, _, _ := e.ShortestPathWithTravelTime(source, target, turnPenalty)
	return path
}

// ShortestPathWithTravelTime is ShortestPath that also reports the path travel time and whether target
// was reached at all. A negative turnPenalty counts as 0.
func (e *Engine) ShortestPathWithTravelTime(source, target da.IntersectionIdx, turnPenalty float64) ([]da.StreetSegmentIdx, float64, bool) {
	turnPenalty = math.Max(0, turnPenalty)
	if !e.graph.IsValidVertex(source) || !e.graph.IsValidVertex(target) {
		return []da.StreetSegmentIdx{}, 0, false
	}
	if source == target {
		return []da.StreetSegmentIdx{}, 0, true
	}

	key := PathCacheKey{source: source, target: target, turnPenalty: turnPenalty}
	if e.pathCache != nil {
		if cached, ok := e.pathCache.Get(key); ok {
			return cloneSegments(cached), ComputePathTravelTime(e.graph, cached, turnPenalty), true
		}
	}

	state := e.AcquireSearchState()
	defer e.ReleaseSearchState(state)

	if !AStarSearchWithLowerBound(e.graph, state, source, target, turnPenalty, e.lowerBound) {
		return []da.StreetSegmentIdx{}, 0, false
	}
	path := TraceBack(e.graph, state, target)
	travelTime := state.TravelTime(target)

	if e.pathCache != nil {
		e.pathCache.Add(key, cloneSegments(path))
	}
	return path, travelTime, true
}

// TravelTimesFrom sweeps the whole graph from source and returns the travel time to each of targets,
// +Inf for unreachable ones. state is used as the search buffer and must not be shared.
func (e *Engine) TravelTimesFrom(state *SearchState, source da.IntersectionIdx, targets []da.IntersectionIdx,
	turnPenalty float64) []float64 {
	Sweep(e.graph, state, source, turnPenalty)

	times := make([]float64, len(targets))
	for i, t := range targets {
		if !e.graph.IsValidVertex(t) || !e.graph.IsValidVertex(source) {
			times[i] = inf
			continue
		}
		times[i] = state.TravelTime(t)
	}
	return times
}

// PathGeometry returns the coordinates of path driven from source, without repeating shared endpoints.
func (e *Engine) PathGeometry(source da.IntersectionIdx, path []da.StreetSegmentIdx) []geo.Coordinate {
	if !e.graph.IsValidVertex(source) {
		return []geo.Coordinate{}
	}
	coords := []geo.Coordinate{e.graph.GetVertexCoordinate(source)}
	curr := source
	for _, seg := range path {
		points := e.graph.GetSegmentGeometry(seg, curr)
		coords = append(coords, points[1:]...)
		curr = e.graph.OtherEndpoint(seg, curr)
	}
	return coords
}

// PathDistance is the length of path in meters.
func (e *Engine) PathDistance(path []da.StreetSegmentIdx) float64 {
	dist := 0.0
	for _, seg := range path {
		dist += e.graph.GetSegmentLength(seg)
	}
	return dist
}

func cloneSegments(path []da.StreetSegmentIdx) []da.StreetSegmentIdx {
	res := make([]da.StreetSegmentIdx, len(path))
	copy(res, path)
	return res
}
