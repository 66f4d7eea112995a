package geo

import "math"

// PolygonArea returns the area in square meters of a closed polygon (first point equal to the last one).
// Open rings and rings with fewer than three distinct vertices have no area.
func PolygonArea(ring []Coordinate) float64 {
	if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
		return 0
	}

	flat := ProjectFlat(ring)

	// shoelace
	sum := 0.0
	for i := 0; i < len(flat)-1; i++ {
		sum += flat[i].X*flat[i+1].Y - flat[i+1].X*flat[i].Y
	}
	return math.Abs(sum) / 2
}
