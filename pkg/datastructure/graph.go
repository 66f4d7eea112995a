package datastructure

import (
	"math"

	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/lintang-b-s/streetmap/pkg/util"
)

// OutEdgeIdx indexes the flattened out-edge array of a Graph. Every OutEdgeIdx is one directed traversal
// of a street segment.
type OutEdgeIdx int32

const INVALID_OUT_EDGE_ID OutEdgeIdx = -1

// OutEdge is one legal way of leaving an intersection: drive segment to reach head.
type OutEdge struct {
	segment StreetSegmentIdx
	head    IntersectionIdx
}

func NewOutEdge(segment StreetSegmentIdx, head IntersectionIdx) OutEdge {
	return OutEdge{segment: segment, head: head}
}

func (e OutEdge) GetSegment() StreetSegmentIdx {
	return e.segment
}

func (e OutEdge) GetHead() IntersectionIdx {
	return e.head
}

type segment struct {
	from, to   IntersectionIdx
	street     StreetIdx
	oneWay     bool
	length     float64 // meters
	travelTime float64 // seconds
	curve      []geo.Coordinate
}

// Graph is the routing index built from a StreetDatabase. Out edges are stored in compressed sparse row
// form: the out edges of v are outEdges[firstOut[v]:firstOut[v+1]].
type Graph struct {
	coords   []geo.Coordinate
	firstOut []OutEdgeIdx
	outEdges []OutEdge
	tails    []IntersectionIdx
	segments []segment

	// in edges of v are inEdges[firstIn[v]:firstIn[v+1]], as indices into outEdges
	firstIn []int32
	inEdges []OutEdgeIdx

	maxSpeedLimit float64
}

// NewGraph builds the adjacency of every intersection from db. A segment contributes from->to, plus to->from
// unless it is one-way. Segments without a positive speed limit can not be driven and contribute nothing.
func NewGraph(db StreetDatabase) *Graph {
	n := db.NumIntersections()
	m := db.NumStreetSegments()

	g := &Graph{
		coords:   make([]geo.Coordinate, n),
		firstOut: make([]OutEdgeIdx, n+1),
		outEdges: make([]OutEdge, 0, 2*m),
		tails:    make([]IntersectionIdx, 0, 2*m),
		segments: make([]segment, m),
	}

	for s := 0; s < m; s++ {
		info := db.StreetSegmentInfo(StreetSegmentIdx(s))
		points := make([]geo.Coordinate, 0, len(info.CurvePoints)+2)
		points = append(points, db.IntersectionPosition(info.From))
		points = append(points, info.CurvePoints...)
		points = append(points, db.IntersectionPosition(info.To))

		length := geo.PolylineLength(points)
		travelTime := math.Inf(1)
		if info.SpeedLimit > 0 {
			travelTime = length / info.SpeedLimit
			g.maxSpeedLimit = math.Max(g.maxSpeedLimit, info.SpeedLimit)
		}

		g.segments[s] = segment{
			from:       info.From,
			to:         info.To,
			street:     info.StreetID,
			oneWay:     info.OneWay,
			length:     length,
			travelTime: travelTime,
			curve:      info.CurvePoints,
		}
	}

	for v := 0; v < n; v++ {
		u := IntersectionIdx(v)
		g.coords[v] = db.IntersectionPosition(u)
		g.firstOut[v] = OutEdgeIdx(len(g.outEdges))

		for _, s := range db.IntersectionStreetSegments(u) {
			seg := g.segments[s]
			if math.IsInf(seg.travelTime, 1) {
				continue
			}

			head := INVALID_INTERSECTION_ID
			if seg.from == u {
				head = seg.to
			} else if seg.to == u && !seg.oneWay {
				head = seg.from
			}
			if head == INVALID_INTERSECTION_ID || g.hasOutEdge(u, s, head) {
				continue
			}

			g.outEdges = append(g.outEdges, NewOutEdge(s, head))
			g.tails = append(g.tails, u)
		}
	}
	g.firstOut[n] = OutEdgeIdx(len(g.outEdges))
	g.buildInEdges()

	return g
}

func (g *Graph) buildInEdges() {
	n := len(g.coords)
	g.firstIn = make([]int32, n+1)
	for _, e := range g.outEdges {
		g.firstIn[e.head+1]++
	}
	for v := 0; v < n; v++ {
		g.firstIn[v+1] += g.firstIn[v]
	}

	g.inEdges = make([]OutEdgeIdx, len(g.outEdges))
	fill := make([]int32, n)
	copy(fill, g.firstIn[:n])
	for e, edge := range g.outEdges {
		g.inEdges[fill[edge.head]] = OutEdgeIdx(e)
		fill[edge.head]++
	}
}

// hasOutEdge reports whether the out edges of u built so far already contain (s, head).
// Databases list a closed-loop segment once for each of its (identical) endpoints.
func (g *Graph) hasOutEdge(u IntersectionIdx, s StreetSegmentIdx, head IntersectionIdx) bool {
	for e := int(g.firstOut[u]); e < len(g.outEdges); e++ {
		if g.outEdges[e].segment == s && g.outEdges[e].head == head {
			return true
		}
	}
	return false
}

func (g *Graph) NumberOfVertices() int {
	return len(g.coords)
}

func (g *Graph) NumberOfOutEdges() int {
	return len(g.outEdges)
}

func (g *Graph) NumberOfSegments() int {
	return len(g.segments)
}

func (g *Graph) IsValidVertex(v IntersectionIdx) bool {
	return v >= 0 && int(v) < len(g.coords)
}

func (g *Graph) IsValidSegment(s StreetSegmentIdx) bool {
	return s >= 0 && int(s) < len(g.segments)
}

func (g *Graph) GetVertexCoordinate(v IntersectionIdx) geo.Coordinate {
	return g.coords[v]
}

func (g *Graph) GetOutDegree(v IntersectionIdx) int {
	return int(g.firstOut[v+1] - g.firstOut[v])
}

func (g *Graph) GetOutEdge(e OutEdgeIdx) OutEdge {
	return g.outEdges[e]
}

// GetTail returns the intersection e leaves from.
func (g *Graph) GetTail(e OutEdgeIdx) IntersectionIdx {
	return g.tails[e]
}

// ForOutEdgesOf calls handle for every out edge of v, in database order.
func (g *Graph) ForOutEdgesOf(v IntersectionIdx, handle func(e OutEdgeIdx, edge OutEdge)) {
	for e := g.firstOut[v]; e < g.firstOut[v+1]; e++ {
		handle(e, g.outEdges[e])
	}
}

// ForInEdgesOf calls handle for every out edge whose head is v.
func (g *Graph) ForInEdgesOf(v IntersectionIdx, handle func(e OutEdgeIdx, edge OutEdge)) {
	for _, e := range g.inEdges[g.firstIn[v]:g.firstIn[v+1]] {
		handle(e, g.outEdges[e])
	}
}

func (g *Graph) GetInDegree(v IntersectionIdx) int {
	return int(g.firstIn[v+1] - g.firstIn[v])
}

func (g *Graph) GetSegmentLength(s StreetSegmentIdx) float64 {
	return g.segments[s].length
}

// GetSegmentTravelTime is length / speed limit in seconds, +Inf for a segment that can not be driven.
func (g *Graph) GetSegmentTravelTime(s StreetSegmentIdx) float64 {
	return g.segments[s].travelTime
}

func (g *Graph) GetStreetID(s StreetSegmentIdx) StreetIdx {
	return g.segments[s].street
}

func (g *Graph) GetSegmentEndpoints(s StreetSegmentIdx) (IntersectionIdx, IntersectionIdx) {
	return g.segments[s].from, g.segments[s].to
}

func (g *Graph) IsOneWay(s StreetSegmentIdx) bool {
	return g.segments[s].oneWay
}

// GetSegmentGeometry returns the points of s oriented to start at start, which must be one of its endpoints.
func (g *Graph) GetSegmentGeometry(s StreetSegmentIdx, start IntersectionIdx) []geo.Coordinate {
	seg := g.segments[s]
	points := make([]geo.Coordinate, 0, len(seg.curve)+2)
	points = append(points, g.coords[seg.from])
	points = append(points, seg.curve...)
	points = append(points, g.coords[seg.to])
	if start == seg.to && seg.from != seg.to {
		util.ReverseInPlace(points)
	}
	return points
}

// OtherEndpoint returns the endpoint of s that is not v.
func (g *Graph) OtherEndpoint(s StreetSegmentIdx, v IntersectionIdx) IntersectionIdx {
	if g.segments[s].from == v {
		return g.segments[s].to
	}
	return g.segments[s].from
}

// MaxSpeedLimit is the largest speed limit of any drivable segment, in meters per second.
func (g *Graph) MaxSpeedLimit() float64 {
	return g.maxSpeedLimit
}

// CanTraverse reports whether s may be driven starting at from.
func (g *Graph) CanTraverse(s StreetSegmentIdx, from IntersectionIdx) bool {
	seg := g.segments[s]
	if math.IsInf(seg.travelTime, 1) {
		return false
	}
	if seg.from == from {
		return true
	}
	return seg.to == from && !seg.oneWay
}
