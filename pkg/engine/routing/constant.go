package routing

import "math"

var inf = math.Inf(1)
