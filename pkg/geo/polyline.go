package geo

import (
	"github.com/twpayne/go-polyline"
)

// PolylineFromCoords encodes coords with the google encoded polyline algorithm (precision 1e5).
func PolylineFromCoords(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}
	pts := make([][]float64, 0, len(coords))
	for _, c := range coords {
		pts = append(pts, []float64{c.Lat, c.Lon})
	}
	return string(polyline.EncodeCoords(pts))
}

// CoordsFromPolyline decodes an encoded polyline produced by PolylineFromCoords.
func CoordsFromPolyline(encoded string) ([]Coordinate, error) {
	pts, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	coords := make([]Coordinate, 0, len(pts))
	for _, p := range pts {
		coords = append(coords, NewCoordinate(p[0], p[1]))
	}
	return coords, nil
}
