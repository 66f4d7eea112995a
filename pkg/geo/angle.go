package geo

import (
	"math"

	"github.com/lintang-b-s/streetmap/pkg/util"
)

/*
BearingTo. initial bearing in degrees [0,360) of the great-circle edge (p1,p2).
https://www.movable-type.co.uk/scripts/latlong.html
*/
func BearingTo(p1Lat, p1Lon, p2Lat, p2Lon float64) float64 {

	dLon := util.DegreeToRadians(p2Lon - p1Lon)

	lat1 := util.DegreeToRadians(p1Lat)
	lat2 := util.DegreeToRadians(p2Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Mod(util.RadiansToDegree(math.Atan2(y, x))+360, 360.0)

	return brng
}

// FlatPoint is a coordinate projected onto the local flat-earth plane, in meters.
type FlatPoint struct {
	X float64
	Y float64
}

// ProjectFlat projects points onto one plane using the mean latitude of all of them,
// so distances and areas between the returned points are mutually consistent.
func ProjectFlat(points []Coordinate) []FlatPoint {
	if len(points) == 0 {
		return nil
	}
	latSum := 0.0
	for _, p := range points {
		latSum += p.Lat
	}
	cosLat := math.Cos(latSum / float64(len(points)) * DegreeToRadian)

	flat := make([]FlatPoint, len(points))
	for i, p := range points {
		flat[i] = FlatPoint{
			X: EarthRadiusMeters * p.Lon * DegreeToRadian * cosLat,
			Y: EarthRadiusMeters * p.Lat * DegreeToRadian,
		}
	}
	return flat
}

// TurnAngle returns the change of direction, in radians [0, pi], for travelling from through via to to.
// 0 means going straight on, pi means a full u-turn. Degenerate (zero-length) legs give 0.
func TurnAngle(from, via, to Coordinate) float64 {
	p := ProjectFlat([]Coordinate{from, via, to})
	ux, uy := p[1].X-p[0].X, p[1].Y-p[0].Y
	vx, vy := p[2].X-p[1].X, p[2].Y-p[1].Y

	lu := math.Hypot(ux, uy)
	lv := math.Hypot(vx, vy)
	if lu == 0 || lv == 0 {
		return 0
	}

	cos := (ux*vx + uy*vy) / (lu * lv)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}
