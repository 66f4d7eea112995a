package routing

import (
	"math"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
)

// waveElement is a partial path in the search frontier: node reached through edge after time seconds.
// edge is INVALID_OUT_EDGE_ID for the root at the source.
type waveElement struct {
	node da.IntersectionIdx
	edge da.OutEdgeIdx
	time float64
}

// SearchState holds every per-search array. A state belongs to exactly one running search at a time;
// searches reset it on entry, touching only the entries the previous search dirtied.
//
// Labels are kept per arrival edge (edgeTime/edgeParent) so that turn penalties, which depend on the
// edge a node was entered from, do not break optimality. The per-intersection view (nodeTime/nodeEdge)
// records the best arrival at each intersection over all of its in edges.
type SearchState struct {
	edgeTime   []float64
	edgeParent []da.OutEdgeIdx

	nodeTime []float64
	nodeEdge []da.OutEdgeIdx
	settled  []bool

	touchedEdges []da.OutEdgeIdx
	touchedNodes []da.IntersectionIdx

	source     da.IntersectionIdx
	pq         *da.MinHeap[waveElement]
	numSettled int
}

func NewSearchState(g *da.Graph) *SearchState {
	s := &SearchState{
		pq:     da.NewFourAryHeap[waveElement](),
		source: da.INVALID_INTERSECTION_ID,
	}
	s.allocate(g.NumberOfVertices(), g.NumberOfOutEdges())
	return s
}

func (s *SearchState) allocate(numVertices, numOutEdges int) {
	s.edgeTime = make([]float64, numOutEdges)
	s.edgeParent = make([]da.OutEdgeIdx, numOutEdges)
	for e := range s.edgeTime {
		s.edgeTime[e] = math.Inf(1)
		s.edgeParent[e] = da.INVALID_OUT_EDGE_ID
	}

	s.nodeTime = make([]float64, numVertices)
	s.nodeEdge = make([]da.OutEdgeIdx, numVertices)
	s.settled = make([]bool, numVertices)
	for v := range s.nodeTime {
		s.nodeTime[v] = math.Inf(1)
		s.nodeEdge[v] = da.INVALID_OUT_EDGE_ID
	}

	s.touchedEdges = make([]da.OutEdgeIdx, 0, 64)
	s.touchedNodes = make([]da.IntersectionIdx, 0, 64)
}

// Reset clears the state of the previous search. If g has a different shape than the graph the state was
// built for (the map was reloaded) the arrays are reallocated.
func (s *SearchState) Reset(g *da.Graph) {
	if len(s.nodeTime) != g.NumberOfVertices() || len(s.edgeTime) != g.NumberOfOutEdges() {
		s.allocate(g.NumberOfVertices(), g.NumberOfOutEdges())
	} else {
		for _, e := range s.touchedEdges {
			s.edgeTime[e] = math.Inf(1)
			s.edgeParent[e] = da.INVALID_OUT_EDGE_ID
		}
		for _, v := range s.touchedNodes {
			s.nodeTime[v] = math.Inf(1)
			s.nodeEdge[v] = da.INVALID_OUT_EDGE_ID
			s.settled[v] = false
		}
		s.touchedEdges = s.touchedEdges[:0]
		s.touchedNodes = s.touchedNodes[:0]
	}

	s.pq.Clear()
	s.source = da.INVALID_INTERSECTION_ID
	s.numSettled = 0
}

func (s *SearchState) relaxEdge(e da.OutEdgeIdx, time float64, parent da.OutEdgeIdx) bool {
	if time >= s.edgeTime[e] {
		return false
	}
	if math.IsInf(s.edgeTime[e], 1) {
		s.touchedEdges = append(s.touchedEdges, e)
	}
	s.edgeTime[e] = time
	s.edgeParent[e] = parent
	return true
}

// settle records the arrival at v through edge if it beats the best arrival seen so far.
func (s *SearchState) settle(v da.IntersectionIdx, edge da.OutEdgeIdx, time float64) {
	if !s.settled[v] {
		s.settled[v] = true
		s.touchedNodes = append(s.touchedNodes, v)
		s.numSettled++
	}
	if time < s.nodeTime[v] {
		s.nodeTime[v] = time
		s.nodeEdge[v] = edge
	}
}

// Source is the root of the last search, INVALID_INTERSECTION_ID before the first one.
func (s *SearchState) Source() da.IntersectionIdx {
	return s.source
}

// IsSettled reports whether the last search finalized v.
func (s *SearchState) IsSettled(v da.IntersectionIdx) bool {
	return s.settled[v]
}

// TravelTime is the best arrival time at v found by the last search, +Inf if v was not reached.
func (s *SearchState) TravelTime(v da.IntersectionIdx) float64 {
	return s.nodeTime[v]
}

// ReachingEdge is the out edge the best arrival at v came through, INVALID_OUT_EDGE_ID for the source
// and for unreached intersections.
func (s *SearchState) ReachingEdge(v da.IntersectionIdx) da.OutEdgeIdx {
	return s.nodeEdge[v]
}

func (s *SearchState) NumSettled() int {
	return s.numSettled
}
