// Package store defines the contract between the paginated query composer
// and a row source. A Source answers counts and ordered, paged finds for a
// compiled predicate; adapters live in the sub-packages.
package store

import (
	"context"

	"github.com/manojoshi/querykit/query"
)

// ErrNotPushable is returned by sources that cannot evaluate a plan
// natively. Callers may fall back to evaluating it in process when the
// source is also a Materializer.
var ErrNotPushable = query.ErrNotPushable

// Plan is one filtered, ordered page request. A nil Where matches all rows;
// a nil Order keeps source order. Limit <= 0 means no limit.
type Plan[T any] struct {
	Where  *query.Predicate[T]
	Order  *query.Order[T]
	Offset int
	Limit  int
}

// Source is a deferred, composable row collection.
type Source[T any] interface {
	// Count returns the number of rows matching where.
	Count(ctx context.Context, where *query.Predicate[T]) (int, error)
	// Find returns the rows selected by plan, ordered and paged.
	Find(ctx context.Context, plan Plan[T]) ([]T, error)
}

// Materializer loads every row into memory.
type Materializer[T any] interface {
	All(ctx context.Context) ([]T, error)
}

// Snapshotter is implemented by sources that evaluate plans in process over
// rows they load on every call. Snapshot loads once and returns a Source
// answering from that copy, so a count and the find that follows see the
// same rows.
type Snapshotter[T any] interface {
	Snapshot(ctx context.Context) (Source[T], error)
}
