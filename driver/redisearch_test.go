package driver

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(t *testing.T) *Conn {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewConn(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConnDo(t *testing.T) {
	ctx := context.Background()
	c := newConn(t)

	_, err := c.Do(ctx, "SET", "order:1", "PENDING")
	require.NoError(t, err)
	got, err := c.Do(ctx, "GET", "order:1")
	require.NoError(t, err)
	assert.Equal(t, "PENDING", got)

	_, err = c.Do(ctx, "GET", "order:2")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestConnPipeline(t *testing.T) {
	ctx := context.Background()
	c := newConn(t)

	out, err := c.Pipeline(ctx, [][]interface{}{
		{"HSET", "order:1", "qty", 3},
		{"HINCRBY", "order:1", "qty", 2},
		{"NOSUCHCOMMAND"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0])
	assert.Equal(t, int64(5), out[1])
	assert.Error(t, out[2].(error))
}

func TestStringifyCmd(t *testing.T) {
	assert.Equal(t, "FT.SEARCH idx * LIMIT 0 10", stringifyCmd([]interface{}{"FT.SEARCH", []byte("idx"), "*", "LIMIT", 0, 10}))
}
