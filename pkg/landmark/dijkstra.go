package landmark

import (
	"math"

	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
)

// travelTimes runs a plain Dijkstra from source without turn penalties and returns the shortest travel time
// to (or, with reverse, from) every intersection. Unreachable intersections get +Inf.
func travelTimes(g *da.Graph, source da.IntersectionIdx, reverse bool) []float64 {
	n := g.NumberOfVertices()
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	settled := make([]bool, n)

	pq := da.NewFourAryHeap[da.IntersectionIdx]()
	dist[source] = 0
	pq.Insert(0, source)

	for !pq.IsEmpty() {
		top, _ := pq.ExtractMin()
		u := top.GetItem()
		if settled[u] {
			continue
		}
		settled[u] = true

		relax := func(v da.IntersectionIdx, seg da.StreetSegmentIdx) {
			t := dist[u] + g.GetSegmentTravelTime(seg)
			if t < dist[v] {
				dist[v] = t
				pq.Insert(t, v)
			}
		}
		if reverse {
			g.ForInEdgesOf(u, func(e da.OutEdgeIdx, edge da.OutEdge) {
				relax(g.GetTail(e), edge.GetSegment())
			})
		} else {
			g.ForOutEdgesOf(u, func(e da.OutEdgeIdx, edge da.OutEdge) {
				relax(edge.GetHead(), edge.GetSegment())
			})
		}
	}
	return dist
}
