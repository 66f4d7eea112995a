package guidance

import (
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
	"github.com/lintang-b-s/streetmap/pkg/geo"
)

type Graph interface {
	GetSegmentGeometry(s da.StreetSegmentIdx, start da.IntersectionIdx) []geo.Coordinate
	GetStreetID(s da.StreetSegmentIdx) da.StreetIdx
	OtherEndpoint(s da.StreetSegmentIdx, v da.IntersectionIdx) da.IntersectionIdx
	GetSegmentLength(s da.StreetSegmentIdx) float64
	GetSegmentTravelTime(s da.StreetSegmentIdx) float64
}

type StreetNames interface {
	NumStreets() int
	StreetName(id da.StreetIdx) string
}
