package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manojoshi/querykit/filter"
)

func TestExprRender(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{Eq("status", "PENDING"), "@status:{PENDING}"},
		{Eq("@sku", "A-1 b"), `@sku:{A\-1\ b}`},
		{In("warehouse_id", 12, 15, 18), "@warehouse_id:{12|15|18}"},
		{Range("price", 10, 99.5, true), "@price:[10 99.5]"},
		{Range("price", 10, 100, false), "@price:[(10 (100]"},
		{Above("qty", int64(3), false), "@qty:[(3 +inf]"},
		{Below("qty", int64(3), true), "@qty:[-inf 3]"},
		{TagMatch("sku", "ab*"), "@sku:{ab*}"},
		{TextMatch("title", "*box"), "@title:*box"},
		{Phrase("title", `big "blue"`), `@title:"big \"blue\""`},
		{Missing("shipped_at"), "ismissing(@shipped_at)"},
		{And(Eq("a", 1), Or(Eq("b", 2), Not(Eq("c", true)))), "(@a:{1} (@b:{2}|-(@c:{1})))"},
		{MatchAll(), "*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Render(tt.expr))
	}
}

func TestLowerOperators(t *testing.T) {
	e := orderEntity(t)
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ms := "1717200000000"

	tests := []struct {
		field string
		op    filter.Operator
		raw   any
		want  string
	}{
		{"status", filter.Equal, "PENDING", "@status:{PENDING}"},
		{"status", filter.NotEqual, "PENDING", "-(@status:{PENDING})"},
		{"status", filter.In, []string{"A", "B"}, "@status:{A|B}"},
		{"status", filter.NotIn, []string{"A"}, "-(@status:{A})"},
		{"status", filter.StartsWith, "PEN", "@status:{PEN*}"},
		{"status", filter.EndsWith, "ING", "@status:{*ING}"},
		{"status", filter.Contains, "a.b", `@status:{*a\.b*}`},
		{"status", filter.NotLike, "x", "-(@status:{*x*})"},
		{"title", filter.Equal, "big box", `@title:"big box"`},
		{"title", filter.StartsWith, "bi", "@title:bi*"},
		{"title", filter.In, []string{"a", "b"}, `(@title:"a"|@title:"b")`},
		{"qty", filter.Equal, 5, "@qty:[5 5]"},
		{"qty", filter.NotEqual, 5, "-(@qty:[5 5])"},
		{"qty", filter.GreaterThan, 5, "@qty:[(5 +inf]"},
		{"qty", filter.GreaterOrEqual, 5, "@qty:[5 +inf]"},
		{"qty", filter.LessThan, 5, "@qty:[-inf (5]"},
		{"qty", filter.LessOrEqual, 5, "@qty:[-inf 5]"},
		{"qty", filter.Between, []int{9, 2}, "@qty:[9 2]"},
		{"qty", filter.In, []int{1, 2}, "(@qty:[1 1]|@qty:[2 2])"},
		{"rush", filter.Equal, true, "@rush:[1 1]"},
		{"created_at", filter.GreaterOrEqual, day, "@created_at:[" + ms + " +inf]"},
		{"shipped_at", filter.IsNull, nil, "ismissing(@shipped_at)"},
		{"shipped_at", filter.IsNotNull, nil, "-(ismissing(@shipped_at))"},
	}
	for _, tt := range tests {
		x, err := Lower(e, []filter.Condition{cond(t, e, tt.field, tt.op, tt.raw)})
		require.NoError(t, err, "%s %s", tt.field, tt.op)
		assert.Equal(t, tt.want, Render(x), "%s %s", tt.field, tt.op)
	}
}

func TestLowerFold(t *testing.T) {
	e := orderEntity(t)
	a := cond(t, e, "status", filter.Equal, "A")
	b := cond(t, e, "rush", filter.Equal, true).WithOr()
	c := cond(t, e, "qty", filter.GreaterThan, 5)

	x, err := Lower(e, []filter.Condition{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, "((@status:{A}|@rush:[1 1]) @qty:[(5 +inf])", Render(x))

	x, err = Lower(e, []filter.Condition{filter.OrGroup(a, c), cond(t, e, "rush", filter.Equal, false)})
	require.NoError(t, err)
	assert.Equal(t, "((@status:{A}|@qty:[(5 +inf]) @rush:[0 0])", Render(x))

	x, err = Lower(e, nil)
	require.NoError(t, err)
	assert.Equal(t, MatchAll(), x)
}

func TestLowerNotPushable(t *testing.T) {
	e := orderEntity(t)

	_, err := Lower(e, []filter.Condition{cond(t, e, "status", filter.GreaterThan, "M")})
	assert.ErrorIs(t, err, ErrNotPushable)

	_, err = Lower(e, []filter.Condition{cond(t, e, "title", filter.Between, filter.Pair{Lo: "a", Hi: "m"})})
	assert.ErrorIs(t, err, ErrNotPushable)

	bad := cond(t, e, "status", filter.Equal, "x")
	bad.Field = filter.Field("nope")
	_, err = Lower(e, []filter.Condition{bad})
	assert.ErrorIs(t, err, filter.ErrUnknownField)
	assert.NotErrorIs(t, err, ErrNotPushable)
}

type recorder struct {
	args  []any
	reply any
}

func (r *recorder) Do(_ context.Context, args ...any) (any, error) {
	r.args = args
	return r.reply, nil
}

func TestSearchBuilder(t *testing.T) {
	args, err := NewSearch("idx:orders").
		Where(Eq("status", "PENDING")).
		Select("order_id", "qty").
		SortBy("qty", Desc).
		Limit(20, 10).
		RawArgs()
	require.NoError(t, err)
	assert.Equal(t, []any{
		"FT.SEARCH", "idx:orders", "(@status:{PENDING})",
		"RETURN", "2", "order_id", "qty",
		"SORTBY", "qty", "DESC",
		"LIMIT", "20", "10",
		"DIALECT", "2",
	}, args)

	rec := &recorder{reply: int64(4)}
	got, err := NewSearch("idx:orders").Count().Using(rec).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), got)
	assert.Equal(t, []any{"FT.SEARCH", "idx:orders", "*", "NOCONTENT", "LIMIT", "0", "0", "DIALECT", "2"}, rec.args)

	_, err = NewSearch("idx").Run(context.Background())
	assert.Error(t, err)
	_, err = NewSearch("").RawArgs()
	assert.Error(t, err)
}
