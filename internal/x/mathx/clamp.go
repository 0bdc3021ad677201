package mathx

import "golang.org/x/exp/constraints"

// Clamp bounds v to [lo, hi]; lo must not exceed hi.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

// Unit clamps v to [0, 1].
func Unit[T constraints.Float](v T) T {
	return Clamp(v, 0, 1)
}

// Lerp interpolates between a and b by t in [0, 1].
func Lerp[T constraints.Float](a, b, t T) T {
	return a + (b-a)*Unit(t)
}
