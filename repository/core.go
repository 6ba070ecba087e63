package repository

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/manojoshi/querykit/filter"
	"github.com/manojoshi/querykit/internal"
	"github.com/manojoshi/querykit/query"
	"github.com/manojoshi/querykit/schema"
	"github.com/manojoshi/querykit/store"
	"github.com/manojoshi/querykit/store/memory"
)

var (
	// ErrInvalidPage is returned for a page number or size below 1.
	ErrInvalidPage = errors.New("repository: page number and size must be >= 1")
	// ErrShapeMismatch is returned when no projection is given and the
	// result shape differs from the row type.
	ErrShapeMismatch = errors.New("repository: result type differs from row type and no projection given")
)

// PageRequest selects one page. Number is 1-based.
type PageRequest struct {
	Number int
	Size   int
}

func (p PageRequest) validate() error {
	if p.Number < 1 || p.Size < 1 {
		return fmt.Errorf("%w: got page %d size %d", ErrInvalidPage, p.Number, p.Size)
	}
	return nil
}

// Offset is the number of rows before the page.
func (p PageRequest) Offset() int { return (p.Number - 1) * p.Size }

// PageResult is one page plus the number of rows matching the filter
// before paging.
type PageResult[S any] struct {
	Items      []S
	TotalCount int
}

// PageQuery describes one paginated read.
//
// Ordering: a non-nil Order wins; otherwise SortColumn is resolved against
// T (Descending flips it); when that does not resolve either, rows are
// ordered by the first declared field ascending.
type PageQuery[T any] struct {
	Filters    []filter.Condition
	Order      *query.Order[T]
	SortColumn string
	Descending bool
	Page       PageRequest
}

// Paginate compiles the filters, counts the matches, orders, pages and
// projects them. project may be nil only when S is T. A store.Snapshotter
// source is loaded once and both the count and the page come from that load.
func Paginate[T, S any](
	ctx context.Context,
	src store.Source[T],
	reg *schema.Registry,
	pq PageQuery[T],
	project func(T) S,
	opts ...Opt,
) (PageResult[S], error) {
	return paginate(ctx, src, reg, pq, project, newSettings(opts))
}

func paginate[T, S any](
	ctx context.Context,
	src store.Source[T],
	reg *schema.Registry,
	pq PageQuery[T],
	project func(T) S,
	s settings,
) (res PageResult[S], err error) {
	ctx, span := s.tracer.Start(ctx, "repository.Paginate", trace.WithAttributes(
		attribute.Int("page.number", pq.Page.Number),
		attribute.Int("page.size", pq.Page.Size),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := pq.Page.validate(); err != nil {
		return res, err
	}
	convert, err := projector(project)
	if err != nil {
		return res, err
	}

	where, err := query.CompileFilter[T](reg, pq.Filters)
	if err != nil {
		return res, err
	}
	s.logger.Debug("compiled filter",
		zap.Int("conditions", len(pq.Filters)),
		zap.Stringer("where", where))

	order, err := resolveOrder(reg, pq, s.logger)
	if err != nil {
		return res, err
	}

	if snap, ok := src.(store.Snapshotter[T]); ok {
		if src, err = snap.Snapshot(ctx); err != nil {
			return res, fmt.Errorf("repository: snapshot: %w", err)
		}
	}
	r := &runner[T]{src: src, s: s}
	total, err := r.count(ctx, where)
	if err != nil {
		return res, err
	}
	rows, err := r.find(ctx, store.Plan[T]{
		Where:  where,
		Order:  order,
		Offset: pq.Page.Offset(),
		Limit:  pq.Page.Size,
	})
	if err != nil {
		return res, err
	}
	span.SetAttributes(attribute.Int("total", total), attribute.Int("items", len(rows)))

	return PageResult[S]{Items: convert(rows), TotalCount: total}, nil
}

func resolveOrder[T any](reg *schema.Registry, pq PageQuery[T], logger *zap.Logger) (*query.Order[T], error) {
	if pq.Order != nil {
		return pq.Order, nil
	}
	order, err := query.ResolveOrder[T](reg, pq.SortColumn, !pq.Descending)
	if err != nil || order != nil {
		return order, err
	}
	if pq.SortColumn != "" {
		logger.Debug("unknown sort column, using default order", zap.String("column", pq.SortColumn))
	}
	return query.DefaultOrder[T](reg)
}

// projector returns the row conversion. Without project, rows pass through
// when S is T.
func projector[T, S any](project func(T) S) (func([]T) []S, error) {
	if project != nil {
		return func(rows []T) []S { return internal.Map(rows, project) }, nil
	}
	if _, same := any([]T(nil)).([]S); !same {
		var t T
		var s S
		return nil, fmt.Errorf("%w: %T to %T", ErrShapeMismatch, t, s)
	}
	return func(rows []T) []S { return any(rows).([]S) }, nil
}

// runner issues Count and Find against src and, when allowed, falls back to
// evaluating in process over one materialized snapshot.
type runner[T any] struct {
	src  store.Source[T]
	s    settings
	rows []T
	ok   bool
}

func (r *runner[T]) count(ctx context.Context, where *query.Predicate[T]) (int, error) {
	n, err := r.src.Count(ctx, where)
	if err == nil {
		return n, nil
	}
	rows, ferr := r.fallback(ctx, "count", err)
	if ferr != nil {
		return 0, ferr
	}
	return memory.Count(rows, where), nil
}

func (r *runner[T]) find(ctx context.Context, plan store.Plan[T]) ([]T, error) {
	if r.ok {
		return memory.Apply(r.rows, plan), nil
	}
	rows, err := r.src.Find(ctx, plan)
	if err == nil {
		return rows, nil
	}
	all, ferr := r.fallback(ctx, "find", err)
	if ferr != nil {
		return nil, ferr
	}
	return memory.Apply(all, plan), nil
}

func (r *runner[T]) fallback(ctx context.Context, op string, cause error) ([]T, error) {
	if r.ok {
		return r.rows, nil
	}
	m, canMaterialize := r.src.(store.Materializer[T])
	if !r.s.fallback || !canMaterialize || !errors.Is(cause, store.ErrNotPushable) {
		return nil, fmt.Errorf("repository: %s: %w", op, cause)
	}
	r.s.logger.Warn("evaluating query in memory", zap.String("op", op), zap.Error(cause))

	rows, err := m.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository: %s: materialize: %w", op, err)
	}
	r.rows, r.ok = rows, true
	return rows, nil
}
