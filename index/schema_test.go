package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manojoshi/querykit/schema"
)

type PurchaseOrder struct {
	ID      string     `querykit:"@order_id,PK"`
	Status  string     `querykit:"@status"`
	Title   string     `querykit:"@title,TEXT"`
	Qty     int        `querykit:"@qty,SORTABLE"`
	Shipped *time.Time `querykit:"@shipped_at"`
}

type fakeExec struct {
	calls [][]any
	err   error
}

func (f *fakeExec) Do(_ context.Context, args ...any) (any, error) {
	f.calls = append(f.calls, args)
	return "OK", f.err
}

func entity(t *testing.T) *schema.Entity {
	t.Helper()
	e, err := schema.Of[PurchaseOrder](schema.NewRegistry())
	require.NoError(t, err)
	return e
}

func TestCreateArgs(t *testing.T) {
	e := entity(t)

	assert.Equal(t, "purchase_order_idx", Name(e))
	assert.Equal(t, []any{
		"FT.CREATE", "idx:po", "ON", "HASH",
		"PREFIX", 1, "po:",
		"STOPWORDS", 0,
		"SCHEMA",
		"order_id", "TAG", "CASESENSITIVE",
		"status", "TAG", "CASESENSITIVE",
		"title", "TEXT",
		"qty", "NUMERIC", "SORTABLE",
		"shipped_at", "NUMERIC", "INDEXMISSING",
	}, CreateArgs(e, WithName("idx:po"), WithPrefixes("po:"), WithStopwords()))
}

func TestAutoCreate(t *testing.T) {
	e := entity(t)
	ctx := context.Background()

	ex := &fakeExec{}
	require.NoError(t, AutoCreate(ctx, ex, e))
	require.Len(t, ex.calls, 1)
	assert.Equal(t, "purchase_order_idx", ex.calls[0][1])

	ex.err = errors.New("Index already exists")
	assert.NoError(t, AutoCreate(ctx, ex, e))

	ex.err = errors.New("ERR unknown command")
	assert.ErrorContains(t, AutoCreate(ctx, ex, e), "FT.CREATE failed")
	assert.ErrorContains(t, Drop(ctx, ex, "x"), "FT.DROPINDEX failed")
}
