package geo

import (
	"math"

	"github.com/lintang-b-s/streetmap/pkg/util"
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

const (
	earthRadiusKM = 6371.0

	// EarthRadiusMeters is the radius used by the flat-earth approximation.
	EarthRadiusMeters = 6372797.560856
	DegreeToRadian    = 0.017453292519943295769236907684886
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// CalculateHaversineDistance. calculate haversine distance in km
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = util.DegreeToRadians(latOne)
	longOne = util.DegreeToRadians(longOne)
	latTwo = util.DegreeToRadians(latTwo)
	longTwo = util.DegreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// FlatEarthDistance returns the distance in meters between a and b. Both points are projected with
// x = R * lon * cos(latAvg), y = R * lat, where latAvg is the mean latitude of the pair.
func FlatEarthDistance(a, b Coordinate) float64 {
	latAvg := (a.Lat + b.Lat) / 2 * DegreeToRadian
	cosLat := math.Cos(latAvg)

	x1 := EarthRadiusMeters * a.Lon * DegreeToRadian * cosLat
	y1 := EarthRadiusMeters * a.Lat * DegreeToRadian
	x2 := EarthRadiusMeters * b.Lon * DegreeToRadian * cosLat
	y2 := EarthRadiusMeters * b.Lat * DegreeToRadian

	return math.Hypot(x2-x1, y2-y1)
}

// PolylineLength sums FlatEarthDistance over consecutive points.
func PolylineLength(points []Coordinate) float64 {
	length := 0.0
	for i := 1; i < len(points); i++ {
		length += FlatEarthDistance(points[i-1], points[i])
	}
	return length
}

func radToDeg(r float64) float64 {
	return 180.0 * r / math.Pi
}

// GetDestinationPoint returns the destination point given the starting point, bearing and distance
// dist in km
func GetDestinationPoint(lat1, lon1 float64, bearing float64, dist float64) (float64, float64) {

	dr := dist / earthRadiusKM

	bearing = util.DegreeToRadians(bearing)

	lat1 = util.DegreeToRadians(lat1)
	lon1 = util.DegreeToRadians(lon1)

	lat2Part1 := math.Sin(lat1) * math.Cos(dr)
	lat2Part2 := math.Cos(lat1) * math.Sin(dr) * math.Cos(bearing)

	lat2 := math.Asin(lat2Part1 + lat2Part2)

	lon2Part1 := math.Sin(bearing) * math.Sin(dr) * math.Cos(lat1)
	lon2Part2 := math.Cos(dr) - (math.Sin(lat1) * math.Sin(lat2))

	lon2 := lon1 + math.Atan2(lon2Part1, lon2Part2)

	return radToDeg(lat2), normalizeLongitude(radToDeg(lon2))
}

// normalizeLongitude. long in degree
func normalizeLongitude(long float64) float64 {
	return math.Mod((long+540), 360) - 180.0
}
