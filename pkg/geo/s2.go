package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

func toS2Point(c Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

// ProjectPointToSegment returns the point of the great-circle segment (a,b) closest to p.
func ProjectPointToSegment(a, b, p Coordinate) Coordinate {
	if a == b {
		return a
	}
	projection := s2.Project(toS2Point(p), toS2Point(a), toS2Point(b))
	projectLatLng := s2.LatLngFromPoint(projection)
	return NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

// NearestPointOnPolyline projects p on every piece of the polyline and returns the closest projection,
// its distance in meters and the index of the piece (points[i], points[i+1]) it lies on.
func NearestPointOnPolyline(points []Coordinate, p Coordinate) (Coordinate, float64, int) {
	if len(points) == 0 {
		return Coordinate{}, math.Inf(1), -1
	}
	if len(points) == 1 {
		return points[0], FlatEarthDistance(points[0], p), 0
	}

	best := points[0]
	bestDist := math.Inf(1)
	bestPiece := 0
	for i := 0; i+1 < len(points); i++ {
		proj := ProjectPointToSegment(points[i], points[i+1], p)
		dist := FlatEarthDistance(proj, p)
		if dist < bestDist {
			best, bestDist, bestPiece = proj, dist, i
		}
	}
	return best, bestDist, bestPiece
}
