package utils

import "math"

// NormalizeL2 scales x in place to unit length. A zero vector stays zero.
func NormalizeL2(x []float32) {
	var sq float64
	for _, v := range x {
		sq += float64(v) * float64(v)
	}
	if sq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sq))
	for i := range x {
		x[i] *= inv
	}
}
