package courier

// Candidate is the route a single annealing chain is working on. pos mirrors stops so that a swap can be
// checked for pickup/drop-off order in O(1).
type Candidate struct {
	problem *Problem
	stops   Route
	pos     []int
}

func newCandidate(p *Problem, r Route) *Candidate {
	c := &Candidate{
		problem: p,
		stops:   r.Clone(),
		pos:     make([]int, p.NumPOIs()),
	}
	c.reindex()
	return c
}

func (c *Candidate) reindex() {
	for i := range c.pos {
		c.pos[i] = -1
	}
	for i := 1; i < len(c.stops)-1; i++ {
		c.pos[c.stops[i]] = i
	}
}

func (c *Candidate) reset(r Route) {
	copy(c.stops, r)
	c.reindex()
}

// Len is the number of stops including both depot visits.
func (c *Candidate) Len() int {
	return len(c.stops)
}

// Stop returns the POI at position i.
func (c *Candidate) Stop(i int) int {
	return c.stops[i]
}

func (c *Candidate) Route() Route {
	return c.stops.Clone()
}

// SwapIsLegal reports whether exchanging the stops at positions i and j keeps every pickup before its
// drop-off. The depot at both ends never moves.
func (c *Candidate) SwapIsLegal(i, j int) bool {
	if i > j {
		i, j = j, i
	}
	if i < 1 || j > len(c.stops)-2 || i == j {
		return false
	}
	return c.legalAt(c.stops[i], j, i, j) && c.legalAt(c.stops[j], i, i, j)
}

func (c *Candidate) legalAt(poi, newPos, i, j int) bool {
	partnerPos := c.posAfterSwap(c.problem.Partner(poi), i, j)
	if c.problem.IsPickup(poi) {
		return newPos < partnerPos
	}
	return partnerPos < newPos
}

func (c *Candidate) posAfterSwap(poi, i, j int) int {
	switch p := c.pos[poi]; p {
	case i:
		return j
	case j:
		return i
	default:
		return p
	}
}

// swapDelta is the change in route cost if positions i < j were exchanged.
func (c *Candidate) swapDelta(m *TravelTimeMatrix, i, j int) float64 {
	s := c.stops
	if j == i+1 {
		before := m.At(s[i-1], s[i]) + m.At(s[i], s[j]) + m.At(s[j], s[j+1])
		after := m.At(s[i-1], s[j]) + m.At(s[j], s[i]) + m.At(s[i], s[j+1])
		return after - before
	}
	before := m.At(s[i-1], s[i]) + m.At(s[i], s[i+1]) + m.At(s[j-1], s[j]) + m.At(s[j], s[j+1])
	after := m.At(s[i-1], s[j]) + m.At(s[j], s[i+1]) + m.At(s[j-1], s[i]) + m.At(s[i], s[j+1])
	return after - before
}

func (c *Candidate) swap(i, j int) {
	c.stops[i], c.stops[j] = c.stops[j], c.stops[i]
	c.pos[c.stops[i]] = i
	c.pos[c.stops[j]] = j
}
