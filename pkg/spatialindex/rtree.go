package spatialindex

import (
	"math"

	"github.com/lintang-b-s/streetmap/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

const (
	DefaultSearchRadiusKM = 0.5
	maxSearchRadiusKM     = 2000.0
)

// Rtree indexes points by id (their position in the slice given to Build).
type Rtree struct {
	tr           *rtree.RTreeG[int32]
	points       []geo.Coordinate
	searchRadius float64
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[int32]
	return &Rtree{
		tr:           &tr,
		searchRadius: DefaultSearchRadiusKM,
	}
}

// Build inserts every point. searchRadiusKM is the first radius tried by nearest neighbour queries, it is
// doubled until a match is found.
func (rt *Rtree) Build(points []geo.Coordinate, searchRadiusKM float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...", zap.Int("points", len(points)))
	if searchRadiusKM > 0 {
		rt.searchRadius = searchRadiusKM
	}
	rt.points = points

	step := len(points) / 10
	for i, p := range points {
		if step > 0 && i%step == 0 {
			log.Debug("Building R-tree spatial index...", zap.Float64("progress", float64(i)/float64(len(points))*100))
		}
		pt := [2]float64{p.Lon, p.Lat}
		rt.tr.Insert(pt, pt, int32(i))
	}
	log.Info("R-tree spatial index built.")
}

func (rt *Rtree) Len() int {
	return len(rt.points)
}

// SearchWithinRadius returns the ids of all points inside the bounding box of the circle of radius (km)
// around (qLat, qLon).
func (rt *Rtree) SearchWithinRadius(qLat, qLon, radius float64) []int32 {
	// the box corners lie on the diagonals
	corner := radius * math.Sqrt2
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, corner)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, corner)

	results := make([]int32, 0, 16)
	rt.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data int32) bool {
			results = append(results, data)
			return true
		})
	return results
}

// Nearest returns the id of the point closest to q and its distance in meters. ok is false for an empty
// index.
func (rt *Rtree) Nearest(q geo.Coordinate) (int32, float64, bool) {
	return rt.NearestMatching(q, func(int32) bool { return true })
}

// NearestMatching is Nearest restricted to the ids accepted by match.
func (rt *Rtree) NearestMatching(q geo.Coordinate, match func(id int32) bool) (int32, float64, bool) {
	if len(rt.points) == 0 {
		return -1, math.Inf(1), false
	}

	for radius := rt.searchRadius; radius <= maxSearchRadiusKM; radius *= 2 {
		id, dist, ok := rt.closestOf(q, rt.SearchWithinRadius(q.Lat, q.Lon, radius), match)
		// anything outside the box is at least radius away
		if ok && dist <= radius*1000*0.99 {
			return id, dist, true
		}
	}

	return rt.closestLinear(q, match)
}

func (rt *Rtree) closestOf(q geo.Coordinate, ids []int32, match func(id int32) bool) (int32, float64, bool) {
	best := int32(-1)
	bestDist := math.Inf(1)
	for _, id := range ids {
		if !match(id) {
			continue
		}
		d := geo.FlatEarthDistance(q, rt.points[id])
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best, bestDist, best != -1
}

func (rt *Rtree) closestLinear(q geo.Coordinate, match func(id int32) bool) (int32, float64, bool) {
	best := int32(-1)
	bestDist := math.Inf(1)
	for i, p := range rt.points {
		id := int32(i)
		if !match(id) {
			continue
		}
		if d := geo.FlatEarthDistance(q, p); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, bestDist, best != -1
}
