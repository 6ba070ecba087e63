// Package redisearch pushes filters, ordering and paging down to a
// RediSearch index over the hashes written by store/redishash.
//
// Filters lower through query.Lower. Plans the index cannot answer
// exactly (more than one sort key, a nullable sort key, a page beyond the
// result window) fail with store.ErrNotPushable so the caller can fall back
// to in-process evaluation.
package redisearch

import (
	"context"
	"fmt"

	"github.com/manojoshi/querykit/driver"
	"github.com/manojoshi/querykit/index"
	"github.com/manojoshi/querykit/query"
	"github.com/manojoshi/querykit/scan"
	"github.com/manojoshi/querykit/schema"
	"github.com/manojoshi/querykit/store"
)

// MaxWindow is the server's default MAXSEARCHRESULTS: offset+limit of one
// FT.SEARCH may not exceed it.
const MaxWindow = 10_000

type options struct {
	prefix   string
	pageSize int
	mat      any
}

type Option func(*options)

// WithPrefix sets the hash key prefix the index covers.
func WithPrefix(p string) Option { return func(o *options) { o.prefix = p } }

// WithPageSize sets the page size All uses.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithMaterializer makes All delegate to m (typically the redishash store
// holding the same rows) instead of paging through FT.SEARCH.
func WithMaterializer[T any](m store.Materializer[T]) Option {
	return func(o *options) { o.mat = m }
}

// Source answers store.Source calls with FT.SEARCH.
type Source[T any] struct {
	exec   driver.Executor
	entity *schema.Entity
	index  string
	opts   options
}

var (
	_ store.Source[struct{}]       = (*Source[struct{}])(nil)
	_ store.Materializer[struct{}] = (*Source[struct{}])(nil)
)

func New[T any](exec driver.Executor, reg *schema.Registry, indexName string, opts ...Option) (*Source[T], error) {
	ent, err := schema.Of[T](reg)
	if err != nil {
		return nil, fmt.Errorf("redisearch: %w", err)
	}
	o := options{pageSize: 1000}
	for _, fn := range opts {
		fn(&o)
	}
	if indexName == "" {
		indexName = index.Name(ent)
	}
	return &Source[T]{exec: exec, entity: ent, index: indexName, opts: o}, nil
}

func (s *Source[T]) Index() string { return s.index }

// EnsureIndex creates the index over the configured prefix if missing.
func (s *Source[T]) EnsureIndex(ctx context.Context) error {
	opts := []index.CreateOpt{index.WithName(s.index)}
	if s.opts.prefix != "" {
		opts = append(opts, index.WithPrefixes(s.opts.prefix))
	}
	return index.AutoCreate(ctx, s.exec, s.entity, opts...)
}

// Explain returns the query string where lowers to.
func (s *Source[T]) Explain(where *query.Predicate[T]) (string, error) {
	x, err := query.Lower(s.entity, where.Conditions())
	if err != nil {
		return "", err
	}
	return query.NewSearch(s.index).Where(x).Query(), nil
}

func (s *Source[T]) Count(ctx context.Context, where *query.Predicate[T]) (int, error) {
	x, err := query.Lower(s.entity, where.Conditions())
	if err != nil {
		return 0, err
	}
	raw, err := query.NewSearch(s.index).Where(x).Count().Using(s.exec).Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("redisearch: count: %w", err)
	}
	return scan.Total(raw)
}

func (s *Source[T]) Find(ctx context.Context, plan store.Plan[T]) ([]T, error) {
	b, err := s.search(plan)
	if err != nil {
		return nil, err
	}
	raw, err := b.Using(s.exec).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("redisearch: find: %w", err)
	}
	rows, _, err := scan.DecodeSearch[T](s.entity, raw)
	return rows, err
}

// SearchArgs returns the FT.SEARCH command Find would send for plan.
func (s *Source[T]) SearchArgs(plan store.Plan[T]) ([]interface{}, error) {
	b, err := s.search(plan)
	if err != nil {
		return nil, err
	}
	return b.RawArgs()
}

func (s *Source[T]) search(plan store.Plan[T]) (*query.SearchBuilder, error) {
	x, err := query.Lower(s.entity, plan.Where.Conditions())
	if err != nil {
		return nil, err
	}
	b := query.NewSearch(s.index).Where(x).Select(s.columns()...)

	switch keys := plan.Order.Keys(); {
	case len(keys) > 1:
		return nil, fmt.Errorf("%w: %d sort keys", store.ErrNotPushable, len(keys))
	case len(keys) == 1:
		k := keys[0]
		if k.Field.Nullable {
			return nil, fmt.Errorf("%w: nullable sort key %s", store.ErrNotPushable, k.Field.Name)
		}
		dir := query.Asc
		if k.Desc {
			dir = query.Desc
		}
		b.SortBy(k.Field.Column, dir)
	}

	offset, limit := max(plan.Offset, 0), plan.Limit
	if limit <= 0 {
		limit = MaxWindow - offset
	}
	if offset+limit > MaxWindow || limit <= 0 {
		return nil, fmt.Errorf("%w: window %d+%d exceeds %d", store.ErrNotPushable, offset, limit, MaxWindow)
	}
	return b.Limit(offset, limit), nil
}

// All loads every indexed row. With a materializer configured it is used
// instead; otherwise pages are fetched in one pipeline when the executor
// supports it.
func (s *Source[T]) All(ctx context.Context) ([]T, error) {
	if m, ok := s.opts.mat.(store.Materializer[T]); ok {
		return m.All(ctx)
	}

	total, err := s.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	if total > MaxWindow {
		return nil, fmt.Errorf("redisearch: %d rows exceed the %d result window", total, MaxWindow)
	}

	var cmds [][]interface{}
	for off := 0; off < total; off += s.opts.pageSize {
		args, err := query.NewSearch(s.index).
			Select(s.columns()...).
			Limit(off, s.opts.pageSize).
			RawArgs()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, args)
	}

	replies, err := s.run(ctx, cmds)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, total)
	for _, raw := range replies {
		if err, ok := raw.(error); ok {
			return nil, fmt.Errorf("redisearch: all: %w", err)
		}
		rows, _, err := scan.DecodeSearch[T](s.entity, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *Source[T]) run(ctx context.Context, cmds [][]interface{}) ([]any, error) {
	if p, ok := s.exec.(driver.Pipeliner); ok {
		return p.Pipeline(ctx, cmds)
	}
	out := make([]any, len(cmds))
	for i, c := range cmds {
		raw, err := s.exec.Do(ctx, c...)
		if err != nil {
			return nil, fmt.Errorf("redisearch: all: %w", err)
		}
		out[i] = raw
	}
	return out, nil
}

func (s *Source[T]) columns() []string {
	fields := s.entity.Fields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column
	}
	return cols
}
