// Package redishash stores rows as Redis hashes under a key prefix. Filters,
// ordering and paging run in process over the loaded rows, so the store
// suits small collections or serves as the fallback materializer for
// RediSearch.
package redishash

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/manojoshi/querykit/internal"
	"github.com/manojoshi/querykit/query"
	"github.com/manojoshi/querykit/scan"
	"github.com/manojoshi/querykit/schema"
	"github.com/manojoshi/querykit/store"
	"github.com/manojoshi/querykit/store/memory"
)

// ErrNoKey is returned for entities without a PK field and for rows whose
// key is nil.
var ErrNoKey = errors.New("redishash: row has no key")

type options struct {
	batch  int
	tracer trace.Tracer
}

type Option func(*options)

// WithBatchSize sets how many keys are scanned and fetched per round trip.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batch = n
		}
	}
}

func WithTracer(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp.Tracer("querykit/redishash") }
}

// Store keeps rows of T in hashes named prefix + key.
type Store[T any] struct {
	rdb    redis.UniversalClient
	entity *schema.Entity
	key    *schema.Field
	prefix string
	opts   options
}

var (
	_ store.Source[struct{}]       = (*Store[struct{}])(nil)
	_ store.Materializer[struct{}] = (*Store[struct{}])(nil)
	_ store.Snapshotter[struct{}]  = (*Store[struct{}])(nil)
)

// New describes T through reg. T must have a field tagged PK.
func New[T any](rdb redis.UniversalClient, reg *schema.Registry, prefix string, opts ...Option) (*Store[T], error) {
	ent, err := schema.Of[T](reg)
	if err != nil {
		return nil, fmt.Errorf("redishash: %w", err)
	}
	key, ok := ent.Key()
	if !ok {
		return nil, fmt.Errorf("%w: %s declares no PK field", ErrNoKey, ent.Type())
	}
	o := options{batch: 500, tracer: otel.Tracer("querykit/redishash")}
	for _, fn := range opts {
		fn(&o)
	}
	return &Store[T]{rdb: rdb, entity: ent, key: key, prefix: prefix, opts: o}, nil
}

func (s *Store[T]) Entity() *schema.Entity { return s.entity }
func (s *Store[T]) Prefix() string         { return s.prefix }

// Key returns the hash key of row.
func (s *Store[T]) Key(row T) (string, error) {
	v, ok := s.key.Get(row)
	if !ok {
		return "", ErrNoKey
	}
	return s.prefix + scan.FormatValue(v), nil
}

// Save writes one row, replacing any previous hash under its key.
func (s *Store[T]) Save(ctx context.Context, row T) error {
	return s.SaveAll(ctx, []T{row})
}

// SaveAll writes rows in pipelined batches. Each row's hash is replaced
// whole so nil fields do not keep stale values.
func (s *Store[T]) SaveAll(ctx context.Context, rows []T) error {
	ctx, span := s.opts.tracer.Start(ctx, "redishash.SaveAll",
		trace.WithAttributes(attribute.String("prefix", s.prefix), attribute.Int("rows", len(rows))))
	defer span.End()

	for _, chunk := range internal.Chunk(rows, s.opts.batch) {
		_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, r := range chunk {
				key, err := s.Key(r)
				if err != nil {
					return err
				}
				p.Del(ctx, key)
				p.HSet(ctx, key, scan.Encode(s.entity, r))
			}
			return nil
		})
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("redishash: save: %w", err)
		}
	}
	return nil
}

// Delete removes the hashes of rows.
func (s *Store[T]) Delete(ctx context.Context, rows ...T) error {
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		key, err := s.Key(r)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redishash: delete: %w", err)
	}
	return nil
}

// All loads every row under the prefix, ordered by key.
func (s *Store[T]) All(ctx context.Context) ([]T, error) {
	ctx, span := s.opts.tracer.Start(ctx, "redishash.All",
		trace.WithAttributes(attribute.String("prefix", s.prefix)))
	defer span.End()

	keys, err := s.keys(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := make([]T, 0, len(keys))
	for _, chunk := range internal.Chunk(keys, s.opts.batch) {
		cmds := make([]*redis.MapStringStringCmd, len(chunk))
		_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for i, k := range chunk {
				cmds[i] = p.HGetAll(ctx, k)
			}
			return nil
		})
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("redishash: load: %w", err)
		}
		for i, c := range cmds {
			kv := c.Val()
			if len(kv) == 0 {
				continue // removed since the scan
			}
			row, err := scan.Decode[T](s.entity, kv)
			if err != nil {
				return nil, fmt.Errorf("redishash: %s: %w", chunk[i], err)
			}
			out = append(out, row)
		}
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}

func (s *Store[T]) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", int64(s.opts.batch)).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redishash: scan: %w", err)
	}
	slices.Sort(keys)
	return internal.Unique(keys), nil
}

// Snapshot loads every row once. Count and Find on the store itself each
// reload the collection, so writes between two calls are visible to the
// second; the snapshot answers both from the same rows.
func (s *Store[T]) Snapshot(ctx context.Context) (store.Source[T], error) {
	rows, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return memory.New(rows), nil
}

// Count loads the collection and counts the rows matching where.
func (s *Store[T]) Count(ctx context.Context, where *query.Predicate[T]) (int, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	return memory.Count(rows, where), nil
}

func (s *Store[T]) Find(ctx context.Context, plan store.Plan[T]) ([]T, error) {
	rows, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return memory.Apply(rows, plan), nil
}
