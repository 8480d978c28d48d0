// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package solver

import "math"

// smallestNormal is the smallest positive normal float64.
const smallestNormal = 0x1p-1022

// close returns true if the new value x and the old value y are equal
// according to criterion c with threshold eps.
func (c Criterion) close(x, y, eps float64) bool {
	if x == y {
		return true
	}
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return false
	}
	switch c {
	case Relative:
		if y == 0 {
			return math.Abs(x-y) <= eps
		}
		return math.Abs(x-y) <= eps*math.Abs(y)
	case Exponent:
		if math.Abs(x) < smallestNormal || math.Abs(y) < smallestNormal {
			return math.Abs(x-y) <= eps
		}
		fx, ex := math.Frexp(x)
		fy, ey := math.Frexp(y)
		// express y with the exponent of x
		fy = math.Ldexp(fy, ey-ex)
		return math.Abs(fx-fy) <= eps
	}
	return math.Abs(x-y) <= eps
}

// equal is the comparison used for schedulers, where infinite values are
// equal to themselves.
func equal(x, y, tol float64) bool {
	return x == y || math.Abs(x-y) <= tol
}
