package routing

import (
	"math"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
)

// AStarSearch runs a turn-penalty aware A* from source towards target using state as its private buffer.
// A turn penalty (seconds) is charged every time the next segment belongs to a different street than the
// segment the current intersection was entered through; leaving the source is never penalised.
// The heuristic is the straight-line distance to target divided by the fastest speed limit of the graph,
// which never overestimates the remaining time.
//
// It returns true when target was reached. The path is then recovered with TraceBack(g, state, target).
func AStarSearch(g *da.Graph, state *SearchState, source, target da.IntersectionIdx, turnPenalty float64) bool {
	return AStarSearchWithLowerBound(g, state, source, target, turnPenalty, nil)
}

// LowerBound never overestimates the travel time between two intersections when turn penalties are ignored.
type LowerBound interface {
	LowerBound(v, target da.IntersectionIdx) float64
}

// AStarSearchWithLowerBound is AStarSearch whose heuristic is the larger of the straight-line estimate and
// lb. Turn penalties only add time, so lb stays admissible. A nil lb is AStarSearch.
func AStarSearchWithLowerBound(g *da.Graph, state *SearchState, source, target da.IntersectionIdx,
	turnPenalty float64, lb LowerBound) bool {
	state.Reset(g)
	if !g.IsValidVertex(source) || !g.IsValidVertex(target) {
		return false
	}

	targetCoord := g.GetVertexCoordinate(target)
	maxSpeed := g.MaxSpeedLimit()
	heuristic := func(v da.IntersectionIdx) float64 {
		h := 0.0
		if maxSpeed > 0 {
			h = geo.FlatEarthDistance(g.GetVertexCoordinate(v), targetCoord) / maxSpeed
		}
		if lb != nil {
			h = math.Max(h, lb.LowerBound(v, target))
		}
		return h
	}

	return graphSearch(g, state, source, target, turnPenalty, heuristic)
}

// Sweep runs a full single-source search from source with no target and no heuristic. Afterwards
// state.TravelTime(v) holds the minimum turn-penalised travel time from source to every intersection v.
func Sweep(g *da.Graph, state *SearchState, source da.IntersectionIdx, turnPenalty float64) {
	state.Reset(g)
	if !g.IsValidVertex(source) {
		return
	}
	graphSearch(g, state, source, da.INVALID_INTERSECTION_ID, turnPenalty, func(da.IntersectionIdx) float64 { return 0 })
}

func graphSearch(g *da.Graph, state *SearchState, source, target da.IntersectionIdx, turnPenalty float64,
	heuristic func(v da.IntersectionIdx) float64) bool {
	turnPenalty = math.Max(0, turnPenalty)

	state.source = source
	state.pq.Insert(heuristic(source), waveElement{node: source, edge: da.INVALID_OUT_EDGE_ID, time: 0})

	for !state.pq.IsEmpty() {
		top, _ := state.pq.ExtractMin()
		wave := top.GetItem()

		if wave.edge == da.INVALID_OUT_EDGE_ID {
			if state.settled[wave.node] {
				continue
			}
		} else if wave.time > state.edgeTime[wave.edge] {
			// stale: the same arrival edge was since reached faster
			continue
		}

		state.settle(wave.node, wave.edge, wave.time)
		if wave.node == target {
			return true
		}

		prevStreet := da.INVALID_STREET_ID
		if wave.edge != da.INVALID_OUT_EDGE_ID {
			prevStreet = g.GetStreetID(g.GetOutEdge(wave.edge).GetSegment())
		}

		g.ForOutEdgesOf(wave.node, func(e da.OutEdgeIdx, edge da.OutEdge) {
			seg := edge.GetSegment()
			time := wave.time + g.GetSegmentTravelTime(seg)
			if prevStreet != da.INVALID_STREET_ID && g.GetStreetID(seg) != prevStreet {
				time += turnPenalty
			}

			if !state.relaxEdge(e, time, wave.edge) {
				return
			}
			head := edge.GetHead()
			state.pq.Insert(time+heuristic(head), waveElement{node: head, edge: e, time: time})
		})
	}

	return target != da.INVALID_INTERSECTION_ID && state.settled[target]
}
