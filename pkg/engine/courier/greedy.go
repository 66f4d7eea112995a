package courier

import "math"

// GreedyRoute builds a route from depot by always driving to the nearest legal POI: an unpicked pickup or
// the drop-off of a package already on board. Ties go to the lower POI index. ok is false when the
// courier gets stuck with no reachable legal POI or can not get back to the depot.
func GreedyRoute(m *TravelTimeMatrix, p *Problem, depot int) (Route, bool) {
	numStops := 2 * p.NumDeliveries()
	depotPOI := p.DepotPOI(depot)

	route := make(Route, 0, numStops+2)
	route = append(route, depotPOI)
	visited := make([]bool, numStops)

	curr := depotPOI
	for step := 0; step < numStops; step++ {
		next := -1
		best := math.Inf(1)
		for poi := 0; poi < numStops; poi++ {
			if visited[poi] || (p.IsDropOff(poi) && !visited[p.Partner(poi)]) {
				continue
			}
			if t := m.At(curr, poi); t < best {
				best = t
				next = poi
			}
		}
		if next == -1 {
			return nil, false
		}
		visited[next] = true
		route = append(route, next)
		curr = next
	}

	if math.IsInf(m.At(curr, depotPOI), 1) {
		return nil, false
	}
	return append(route, depotPOI), true
}

// GreedyRoutes runs GreedyRoute from every depot and keeps the feasible routes.
func GreedyRoutes(m *TravelTimeMatrix, p *Problem) []Route {
	routes := make([]Route, 0, p.NumDepots())
	for d := 0; d < p.NumDepots(); d++ {
		if r, ok := GreedyRoute(m, p, d); ok {
			routes = append(routes, r)
		}
	}
	return routes
}
