// internal/sliceutil.go
//
// Small generic slice helpers shared by the stores and the repository.
// None of them modify their input.

package internal

// Map applies f to each element and returns a new slice.
func Map[A any, B any](xs []A, f func(A) B) []B {
	out := make([]B, len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

// Unique dedups while preserving first-seen order.
func Unique[T comparable](xs []T) []T {
	seen := make(map[T]struct{}, len(xs))
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; !ok {
			seen[x] = struct{}{}
			out = append(out, x)
		}
	}
	return out
}

// Chunk splits xs into sub-slices of size <= n. The chunks share xs's
// backing array.
func Chunk[T any](xs []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	var out [][]T
	for i := 0; i < len(xs); i += n {
		out = append(out, xs[i:min(i+n, len(xs))])
	}
	return out
}
