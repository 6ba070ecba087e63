// Package driver is a thin shim over github.com/redis/go-redis/v9 that
// satisfies the Executor interface used by the query, index and store
// packages, with pipeline batching and OpenTelemetry spans.
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	conn := driver.NewConn(rdb)
//	src := redisearch.New[Order](conn, reg, "idx:orders")
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor runs one raw Redis command.
type Executor interface {
	Do(ctx context.Context, args ...interface{}) (any, error)
}

// Pipeliner runs a batch of raw commands in one round trip. Per-command
// failures are returned in place of the result.
type Pipeliner interface {
	Pipeline(ctx context.Context, cmds [][]interface{}) ([]any, error)
}

// Conn implements Executor and Pipeliner on top of a go-redis client.
type Conn struct {
	client redis.UniversalClient
	tracer trace.Tracer
}

// NewConn wraps an existing go-redis client (single node, cluster or
// failover).
func NewConn(c redis.UniversalClient) *Conn {
	return &Conn{client: c, tracer: otel.Tracer("querykit/driver")}
}

// Client exposes the wrapped client for native commands.
func (c *Conn) Client() redis.UniversalClient { return c.client }

// Do sends one command and records a span carrying the command line and
// its duration.
func (c *Conn) Do(ctx context.Context, args ...interface{}) (any, error) {
	ctx, span := c.tracer.Start(ctx, "redis.do")
	defer span.End()

	start := time.Now()
	res, err := c.client.Do(ctx, args...).Result()
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("redis.cmd", stringifyCmd(args)),
		attribute.Float64("redis.duration_ms", float64(elapsed.Milliseconds())),
	)
	if err != nil && err != redis.Nil {
		span.RecordError(err)
	}
	return res, err
}

// Close closes the underlying client.
func (c *Conn) Close() error { return c.client.Close() }

// Pipeline executes a batch of commands and returns raw results.
func (c *Conn) Pipeline(ctx context.Context, cmds [][]interface{}) ([]any, error) {
	ctx, span := c.tracer.Start(ctx, "redis.pipeline")
	defer span.End()
	span.SetAttributes(attribute.Int("redis.cmds", len(cmds)))

	pipe := c.client.Pipeline()
	results := make([]*redis.Cmd, len(cmds))
	for i, cmd := range cmds {
		results[i] = pipe.Do(ctx, cmd...)
	}
	// per-command errors are reported below; Exec returns the first one.
	_, _ = pipe.Exec(ctx)

	out := make([]any, len(results))
	for i, r := range results {
		if err := r.Err(); err != nil {
			out[i] = err
			span.RecordError(err)
		} else {
			out[i] = r.Val()
		}
	}
	return out, nil
}

func stringifyCmd(args []interface{}) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(toString(a))
	}
	return sb.String()
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
