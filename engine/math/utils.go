package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// CeilDiv returns ceil(a / b) for positive integers.
func CeilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// MaxOne returns v, or 1 when v is zero. Used for mip dimensions.
func MaxOne[T constraints.Integer](v T) T {
	if v < 1 {
		return 1
	}
	return v
}

// Lerp linearly interpolates between a and b.
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}
