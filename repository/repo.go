// Package repository composes filters, ordering and pagination over a
// store.Source. It follows the functional-options pattern so callers stay
// terse:
//
//	repo, _ := repository.New[Order](src, reg,
//	    repository.WithDefaultFilters(tenant),
//	    repository.WithLogger(logger),
//	)
//	conds, _ := repo.Filters().
//	    Add("status", filter.Equal, "PENDING").
//	    AddList("warehouse_id", filter.In, []int{45, 46}).
//	    Build()
//	page, err := repo.Paginate(ctx, repository.PageQuery[Order]{
//	    Filters:    conds,
//	    SortColumn: "promise_ts",
//	    Page:       repository.PageRequest{Number: 1, Size: 50},
//	})
package repository

import (
	"context"
	"fmt"

	"github.com/manojoshi/querykit/filter"
	"github.com/manojoshi/querykit/query"
	"github.com/manojoshi/querykit/schema"
	"github.com/manojoshi/querykit/store"
)

// Repository is generic over the row type.
type Repository[T any] struct {
	src    store.Source[T]
	reg    *schema.Registry
	entity *schema.Entity
	s      settings
}

// New binds a repository to src. T must describe as an entity.
func New[T any](src store.Source[T], reg *schema.Registry, opts ...Opt) (*Repository[T], error) {
	ent, err := schema.Of[T](reg)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	s := newSettings(opts)
	s.defaults = filter.BuildFilters(s.defaults, nil)
	return &Repository[T]{src: src, reg: reg, entity: ent, s: s}, nil
}

func (r *Repository[T]) Entity() *schema.Entity { return r.entity }

// Filters starts a condition builder over T.
func (r *Repository[T]) Filters() *filter.Builder { return filter.NewBuilder(r.entity) }

// BuildFilters prepends the default filters to user.
func (r *Repository[T]) BuildFilters(user []filter.Condition) []filter.Condition {
	return filter.BuildFilters(r.s.defaults, user)
}

// CompileFilter compiles user together with the default filters.
func (r *Repository[T]) CompileFilter(user []filter.Condition) (*query.Predicate[T], error) {
	return query.Compile[T](r.entity, r.BuildFilters(user))
}

// ResolveOrder resolves column against T; nil when unknown.
func (r *Repository[T]) ResolveOrder(column string, ascending bool) *query.Order[T] {
	return query.OrderBy[T](r.entity, column, ascending)
}

// Count returns the number of rows matching user and the defaults.
func (r *Repository[T]) Count(ctx context.Context, user []filter.Condition) (int, error) {
	where, err := r.CompileFilter(user)
	if err != nil {
		return 0, err
	}
	return (&runner[T]{src: r.src, s: r.s}).count(ctx, where)
}

// Where returns every matching row. A nil order keeps source order.
func (r *Repository[T]) Where(ctx context.Context, user []filter.Condition, order *query.Order[T]) ([]T, error) {
	where, err := r.CompileFilter(user)
	if err != nil {
		return nil, err
	}
	return (&runner[T]{src: r.src, s: r.s}).find(ctx, store.Plan[T]{Where: where, Order: order})
}

// First returns the first matching row under order, or the default order
// when order is nil. ok is false when nothing matches.
func (r *Repository[T]) First(ctx context.Context, user []filter.Condition, order *query.Order[T]) (row T, ok bool, err error) {
	where, err := r.CompileFilter(user)
	if err != nil {
		return row, false, err
	}
	if order == nil {
		if order, err = query.DefaultOrder[T](r.reg); err != nil {
			return row, false, err
		}
	}
	rows, err := (&runner[T]{src: r.src, s: r.s}).find(ctx, store.Plan[T]{Where: where, Order: order, Limit: 1})
	if err != nil || len(rows) == 0 {
		return row, false, err
	}
	return rows[0], true, nil
}

// Paginate returns one page of raw rows. See the package-level Paginate.
func (r *Repository[T]) Paginate(ctx context.Context, pq PageQuery[T]) (PageResult[T], error) {
	pq.Filters = r.BuildFilters(pq.Filters)
	return paginate[T, T](ctx, r.src, r.reg, pq, nil, r.s)
}

// Project returns one page converted by fn.
func Project[T, S any](ctx context.Context, r *Repository[T], pq PageQuery[T], fn func(T) S) (PageResult[S], error) {
	if fn == nil {
		return PageResult[S]{}, ErrShapeMismatch
	}
	pq.Filters = r.BuildFilters(pq.Filters)
	return paginate(ctx, r.src, r.reg, pq, fn, r.s)
}
