package courier

import (
	da "github.com/lintang-b-s/streetmap/pkg/datastructure"
)

// DeliveryInfo is one package that must be picked up at PickUp before it is dropped off at DropOff.
type DeliveryInfo struct {
	PickUp  da.IntersectionIdx `json:"pick_up"`
	DropOff da.IntersectionIdx `json:"drop_off"`
}

// CourierSubPath is one leg of a courier route: the street segments driven from StartIntersection to
// EndIntersection.
type CourierSubPath struct {
	StartIntersection da.IntersectionIdx    `json:"start_intersection"`
	EndIntersection   da.IntersectionIdx    `json:"end_intersection"`
	Subpath           []da.StreetSegmentIdx `json:"subpath"`
}

// Route is a courier route as an ordered list of point of interest (POI) indices. A legal route starts and
// ends at the same depot and visits every pickup and drop-off exactly once, each pickup before its drop-off.
type Route []int

func (r Route) Clone() Route {
	res := make(Route, len(r))
	copy(res, r)
	return res
}

// Problem enumerates the points of interest of a courier request. Delivery i owns POI 2i (its pickup) and
// POI 2i+1 (its drop-off); depot j is POI 2D+j where D is the number of deliveries.
type Problem struct {
	deliveries []DeliveryInfo
	depots     []da.IntersectionIdx
	pois       []da.IntersectionIdx
}

func NewProblem(deliveries []DeliveryInfo, depots []da.IntersectionIdx) *Problem {
	pois := make([]da.IntersectionIdx, 0, 2*len(deliveries)+len(depots))
	for _, d := range deliveries {
		pois = append(pois, d.PickUp, d.DropOff)
	}
	pois = append(pois, depots...)

	return &Problem{
		deliveries: deliveries,
		depots:     depots,
		pois:       pois,
	}
}

func (p *Problem) NumDeliveries() int {
	return len(p.deliveries)
}

func (p *Problem) NumDepots() int {
	return len(p.depots)
}

func (p *Problem) NumPOIs() int {
	return len(p.pois)
}

// Intersection returns the intersection the POI sits on.
func (p *Problem) Intersection(poi int) da.IntersectionIdx {
	return p.pois[poi]
}

func (p *Problem) Intersections() []da.IntersectionIdx {
	return p.pois
}

func (p *Problem) IsPickup(poi int) bool {
	return poi >= 0 && poi < 2*len(p.deliveries) && poi%2 == 0
}

func (p *Problem) IsDropOff(poi int) bool {
	return poi >= 0 && poi < 2*len(p.deliveries) && poi%2 == 1
}

func (p *Problem) IsDepot(poi int) bool {
	return poi >= 2*len(p.deliveries) && poi < len(p.pois)
}

func (p *Problem) DepotPOI(depot int) int {
	return 2*len(p.deliveries) + depot
}

// Partner returns the other POI of the delivery poi belongs to.
func (p *Problem) Partner(poi int) int {
	return poi ^ 1
}

// ValidateRoute reports whether r is a legal route for p.
func (p *Problem) ValidateRoute(r Route) bool {
	numStops := 2 * len(p.deliveries)
	if len(r) != numStops+2 {
		return false
	}
	if !p.IsDepot(r[0]) || r[0] != r[len(r)-1] {
		return false
	}

	pos := make([]int, numStops)
	for i := range pos {
		pos[i] = -1
	}
	for i := 1; i < len(r)-1; i++ {
		poi := r[i]
		if poi < 0 || poi >= numStops || pos[poi] != -1 {
			return false
		}
		pos[poi] = i
	}
	for d := 0; d < len(p.deliveries); d++ {
		if pos[2*d] > pos[2*d+1] {
			return false
		}
	}
	return true
}

// RouteCost sums the matrix travel times between consecutive stops of r.
func RouteCost(m *TravelTimeMatrix, r Route) float64 {
	cost := 0.0
	for i := 1; i < len(r); i++ {
		cost += m.At(r[i-1], r[i])
	}
	return cost
}
