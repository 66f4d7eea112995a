package datastructure

import (
	"math"
)

const (
	EPS = 1e-6
)

// Eq equal operator
func Eq(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= EPS
}

// Lt less than operator
func Lt(a, b float64) bool {
	return a+EPS < b
}

// Le less than or equal operator
func Le(a, b float64) bool {
	return a <= b+EPS
}

// Ge greater than or equal operator
func Ge(a, b float64) bool {
	return Le(b, a)
}

// Gt greater than operator
func Gt(a, b float64) bool {
	return Lt(b, a)
}
