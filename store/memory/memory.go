// Package memory is a slice-backed store.Source. Apply is the in-process
// evaluator other sources reuse.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/manojoshi/querykit/query"
	"github.com/manojoshi/querykit/store"
)

// Source serves rows from a slice. It is safe for concurrent use.
type Source[T any] struct {
	mu   sync.RWMutex
	rows []T
}

var (
	_ store.Source[struct{}]       = (*Source[struct{}])(nil)
	_ store.Materializer[struct{}] = (*Source[struct{}])(nil)
)

// New returns a source over a copy of rows.
func New[T any](rows []T) *Source[T] {
	return &Source[T]{rows: slices.Clone(rows)}
}

// Add appends rows.
func (s *Source[T]) Add(rows ...T) {
	s.mu.Lock()
	s.rows = append(s.rows, rows...)
	s.mu.Unlock()
}

func (s *Source[T]) Count(ctx context.Context, where *query.Predicate[T]) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Count(s.rows, where), nil
}

func (s *Source[T]) Find(ctx context.Context, plan store.Plan[T]) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Apply(s.rows, plan), nil
}

// All returns a copy of every row.
func (s *Source[T]) All(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rows), nil
}

// Count returns the number of rows matched by where.
func Count[T any](rows []T, where *query.Predicate[T]) int {
	if where.Empty() {
		return len(rows)
	}
	n := 0
	for _, r := range rows {
		if where.Match(r) {
			n++
		}
	}
	return n
}

// Apply filters, stably orders and pages rows. The input is not modified.
func Apply[T any](rows []T, plan store.Plan[T]) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if plan.Where.Match(r) {
			out = append(out, r)
		}
	}
	plan.Order.Sort(out)

	lo := min(max(plan.Offset, 0), len(out))
	hi := len(out)
	if plan.Limit > 0 {
		hi = min(lo+plan.Limit, hi)
	}
	return out[lo:hi]
}
