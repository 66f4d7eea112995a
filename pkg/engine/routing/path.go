package routing

import (
	"math"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/util"
)

// TraceBack walks the reaching edges of the last search in state from target back to its source and
// returns the street segments in driving order. Unreached targets and target == source give an empty path.
func TraceBack(g *da.Graph, state *SearchState, target da.IntersectionIdx) []da.StreetSegmentIdx {
	if !g.IsValidVertex(target) || len(state.nodeTime) != g.NumberOfVertices() ||
		math.IsInf(state.nodeTime[target], 1) {
		return []da.StreetSegmentIdx{}
	}

	path := make([]da.StreetSegmentIdx, 0, 16)
	for e := state.nodeEdge[target]; e != da.INVALID_OUT_EDGE_ID; e = state.edgeParent[e] {
		path = append(path, g.GetOutEdge(e).GetSegment())
	}
	util.ReverseInPlace(path)
	return path
}

// ComputePathTravelTime returns the time to drive path: the travel time of every segment plus turnPenalty
// for every pair of consecutive segments on different streets. An empty path takes no time and a negative
// turnPenalty counts as 0, as in the search.
func ComputePathTravelTime(g *da.Graph, path []da.StreetSegmentIdx, turnPenalty float64) float64 {
	turnPenalty = math.Max(0, turnPenalty)
	total := 0.0
	for i, seg := range path {
		total += g.GetSegmentTravelTime(seg)
		if i > 0 && g.GetStreetID(path[i-1]) != g.GetStreetID(seg) {
			total += turnPenalty
		}
	}
	return total
}

// PathIntersections returns the intersections visited by path when it is driven from source, including
// source itself. ok is false when the path is not drivable from source (a segment does not touch the
// current intersection or is driven against its one-way direction).
func PathIntersections(g *da.Graph, source da.IntersectionIdx, path []da.StreetSegmentIdx) ([]da.IntersectionIdx, bool) {
	nodes := make([]da.IntersectionIdx, 0, len(path)+1)
	nodes = append(nodes, source)
	curr := source
	for _, seg := range path {
		if !g.IsValidSegment(seg) || !g.CanTraverse(seg, curr) {
			return nodes, false
		}
		curr = g.OtherEndpoint(seg, curr)
		nodes = append(nodes, curr)
	}
	return nodes, true
}
