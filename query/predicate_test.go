package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manojoshi/querykit/filter"
	"github.com/manojoshi/querykit/schema"
)

type order struct {
	ID        int64      `querykit:"@order_id,PK"`
	Status    string     `querykit:"@status"`
	Title     string     `querykit:"@title,TEXT"`
	Qty       int        `querykit:"@qty,SORTABLE"`
	Price     float64    `querykit:"@price"`
	Rush      bool       `querykit:"@rush"`
	Created   time.Time  `querykit:"@created_at"`
	Shipped   *time.Time `querykit:"@shipped_at"`
	Warehouse *int       `querykit:"@warehouse_id"`
}

func intp(v int) *int { return &v }

func orderEntity(t *testing.T) *schema.Entity {
	t.Helper()
	e, err := schema.Of[order](schema.NewRegistry())
	require.NoError(t, err)
	return e
}

func cond(t *testing.T, e *schema.Entity, field string, op filter.Operator, raw any) filter.Condition {
	t.Helper()
	c, ok, err := filter.NewCondition(e, field, op, raw)
	require.NoError(t, err)
	require.True(t, ok, "%s %s %v", field, op, raw)
	return c
}

func TestEveryOperator(t *testing.T) {
	e := orderEntity(t)
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	base := order{
		ID:        7,
		Status:    "PENDING",
		Title:     "big blue box",
		Qty:       5,
		Price:     9.5,
		Created:   day,
		Warehouse: intp(12),
	}

	tests := []struct {
		field string
		op    filter.Operator
		raw   any
		miss  func(o *order)
	}{
		{"status", filter.Equal, "PENDING", func(o *order) { o.Status = "pending" }},
		{"status", filter.NotEqual, "SHIPPED", func(o *order) { o.Status = "SHIPPED" }},
		{"title", filter.Contains, "blue", func(o *order) { o.Title = "red box" }},
		{"title", filter.StartsWith, "big", func(o *order) { o.Title = "a big box" }},
		{"title", filter.EndsWith, "box", func(o *order) { o.Title = "box set" }},
		{"title", filter.NotLike, "red", func(o *order) { o.Title = "red" }},
		{"qty", filter.GreaterThan, 4, func(o *order) { o.Qty = 4 }},
		{"qty", filter.GreaterOrEqual, "5", func(o *order) { o.Qty = 4 }},
		{"qty", filter.LessThan, 6, func(o *order) { o.Qty = 6 }},
		{"qty", filter.LessOrEqual, 5, func(o *order) { o.Qty = 6 }},
		{"warehouse_id", filter.In, []int{12, 15}, func(o *order) { o.Warehouse = intp(18) }},
		{"warehouse_id", filter.NotIn, []string{"15", "18"}, func(o *order) { o.Warehouse = intp(15) }},
		{"shipped_at", filter.IsNull, nil, func(o *order) { o.Shipped = &day }},
		{"warehouse_id", filter.IsNotNull, nil, func(o *order) { o.Warehouse = nil }},
		{"price", filter.Between, filter.Pair{Lo: 9, Hi: "10"}, func(o *order) { o.Price = 10.01 }},
		{"created_at", filter.Between, filter.DateOnly(day.Add(3 * time.Hour)), func(o *order) { o.Created = day.Add(-time.Second) }},
		{"rush", filter.Equal, "false", func(o *order) { o.Rush = true }},
	}
	for _, tt := range tests {
		t.Run(tt.op.String()+"/"+tt.field, func(t *testing.T) {
			p, err := Compile[order](e, []filter.Condition{cond(t, e, tt.field, tt.op, tt.raw)})
			require.NoError(t, err)

			hit, miss := base, base
			tt.miss(&miss)
			assert.True(t, p.Match(hit))
			assert.False(t, p.Match(miss))

			pp, err := Compile[*order](e, []filter.Condition{cond(t, e, tt.field, tt.op, tt.raw)})
			require.NoError(t, err)
			assert.True(t, pp.Match(&hit), "pointer rows")
			assert.False(t, pp.Match(&miss), "pointer rows")
		})
	}
}

func TestAbsentFieldValues(t *testing.T) {
	e := orderEntity(t)
	row := order{Warehouse: nil}

	tests := []struct {
		op   filter.Operator
		raw  any
		want bool
	}{
		{filter.Equal, 12, false},
		{filter.GreaterThan, 0, false},
		{filter.LessOrEqual, 100, false},
		{filter.In, []int{12}, false},
		{filter.Between, filter.Pair{Lo: 0, Hi: 99}, false},
		{filter.NotEqual, 12, true},
		{filter.NotIn, []int{12}, true},
		{filter.IsNull, nil, true},
	}
	for _, tt := range tests {
		p, err := Compile[order](e, []filter.Condition{cond(t, e, "warehouse_id", tt.op, tt.raw)})
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.Match(row), tt.op.String())
	}
}

func TestLeftFold(t *testing.T) {
	e := orderEntity(t)

	// [A, B(or), C] == (A OR B) AND C
	a := cond(t, e, "status", filter.Equal, "PENDING")
	b := cond(t, e, "rush", filter.Equal, true).WithOr()
	c := cond(t, e, "qty", filter.GreaterThan, 5)

	p, err := Compile[order](e, []filter.Condition{a, b, c})
	require.NoError(t, err)

	for _, A := range []bool{false, true} {
		for _, B := range []bool{false, true} {
			for _, C := range []bool{false, true} {
				row := order{Status: "SHIPPED", Rush: B, Qty: 1}
				if A {
					row.Status = "PENDING"
				}
				if C {
					row.Qty = 10
				}
				assert.Equal(t, (A || B) && C, p.Match(row), "A=%v B=%v C=%v", A, B, C)
			}
		}
	}
}

func TestGroupOrThenAnd(t *testing.T) {
	e := orderEntity(t)

	// GroupOr[X, Y], Z == (X OR Y) AND Z
	x := cond(t, e, "status", filter.Equal, "PENDING")
	y := cond(t, e, "status", filter.Equal, "PACKED")
	z := cond(t, e, "rush", filter.Equal, true)

	p, err := Compile[order](e, []filter.Condition{filter.OrGroup(x, y), z})
	require.NoError(t, err)

	assert.True(t, p.Match(order{Status: "PENDING", Rush: true}))
	assert.True(t, p.Match(order{Status: "PACKED", Rush: true}))
	assert.False(t, p.Match(order{Status: "PACKED"}))
	assert.False(t, p.Match(order{Status: "SHIPPED", Rush: true}))

	// a GroupAnd child with its own OR flag still folds left.
	g := filter.AndGroup(x, y.WithOr())
	p, err = Compile[order](e, []filter.Condition{g, z})
	require.NoError(t, err)
	assert.True(t, p.Match(order{Status: "PACKED", Rush: true}))
}

func TestBetweenKeepsLiteralBounds(t *testing.T) {
	e := orderEntity(t)
	row := order{Qty: 3}

	up, err := Compile[order](e, []filter.Condition{cond(t, e, "qty", filter.Between, []int{1, 5})})
	require.NoError(t, err)
	assert.True(t, up.Match(row))

	down, err := Compile[order](e, []filter.Condition{cond(t, e, "qty", filter.Between, []int{5, 1})})
	require.NoError(t, err)
	assert.False(t, down.Match(row), "reversed bounds match nothing")
}

func TestEmptyMatchesEverything(t *testing.T) {
	reg := schema.NewRegistry()

	p, err := CompileFilter[order](reg, nil)
	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.True(t, p.Match(order{}))
	assert.Equal(t, "*", p.String())

	var nilP *Predicate[order]
	assert.True(t, nilP.Match(order{}))

	p, err = CompileFilter[order](reg, []filter.Condition{filter.AndGroup()})
	require.NoError(t, err)
	assert.True(t, p.Empty(), "empty groups contribute nothing")
}

func TestCompileErrors(t *testing.T) {
	e := orderEntity(t)

	unknown := cond(t, e, "status", filter.Equal, "x")
	unknown.Field = filter.Field("colour")
	_, err := Compile[order](e, []filter.Condition{unknown})
	assert.ErrorIs(t, err, filter.ErrUnknownField)
	assert.ErrorIs(t, err, filter.ErrSpec)

	missing := unknown
	missing.Field = filter.FieldRef{}
	_, err = Compile[order](e, []filter.Condition{missing})
	assert.ErrorIs(t, err, filter.ErrMissingField)

	substr := cond(t, e, "status", filter.Contains, "x")
	substr.Field = filter.Field("qty")
	_, err = Compile[order](e, []filter.Condition{substr})
	assert.ErrorIs(t, err, filter.ErrUnsupported)

	shape := cond(t, e, "qty", filter.Equal, 1)
	shape.Op = filter.In
	_, err = Compile[order](e, []filter.Condition{cond(t, e, "qty", filter.Equal, 1), filter.OrGroup(shape)})
	require.ErrorIs(t, err, filter.ErrMalformed)
	var se *filter.SpecError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Qty", se.Field)
	assert.Equal(t, filter.In, se.Op)

	_, err = CompileFilter[int](schema.NewRegistry(), nil)
	assert.ErrorIs(t, err, schema.ErrNotStruct)
}

func TestCompileRejectsForeignValueTypes(t *testing.T) {
	e := orderEntity(t)
	type draft struct {
		Qty    string `querykit:"@qty"`
		Status int    `querykit:"@status"`
	}
	other, err := schema.Of[draft](schema.NewRegistry())
	require.NoError(t, err)

	tests := []filter.Condition{
		cond(t, other, "qty", filter.GreaterThan, "5"),
		cond(t, other, "qty", filter.Between, filter.Pair{Lo: "1", Hi: "9"}),
		cond(t, other, "status", filter.In, []int{1, 2}),
		filter.OrGroup(cond(t, other, "status", filter.Equal, 3)),
	}
	for _, c := range tests {
		p, err := Compile[order](e, []filter.Condition{c})
		require.ErrorIs(t, err, filter.ErrMalformed, "%s", c)
		assert.ErrorIs(t, err, filter.ErrSpec)
		assert.Nil(t, p)

		_, err = Lower(e, []filter.Condition{c})
		assert.ErrorIs(t, err, filter.ErrMalformed, "%s", c)
	}
}

func TestPredicateAndOr(t *testing.T) {
	e := orderEntity(t)
	pending, err := Compile[order](e, []filter.Condition{cond(t, e, "status", filter.Equal, "PENDING")})
	require.NoError(t, err)
	rush, err := Compile[order](e, []filter.Condition{cond(t, e, "rush", filter.Equal, true)})
	require.NoError(t, err)
	all, err := Compile[order](e, nil)
	require.NoError(t, err)

	both := pending.And(rush)
	assert.True(t, both.Match(order{Status: "PENDING", Rush: true}))
	assert.False(t, both.Match(order{Status: "PENDING"}))
	require.Len(t, both.Conditions(), 2)

	either := pending.Or(rush)
	assert.True(t, either.Match(order{Rush: true}))
	assert.False(t, either.Match(order{Status: "SHIPPED"}))
	assert.True(t, either.Conditions()[1].Or)

	assert.Same(t, pending, pending.And(all))
	assert.True(t, pending.Or(all).Empty())

	// the recorded conditions recompile to the same predicate
	again, err := Compile[order](e, either.Conditions())
	require.NoError(t, err)
	assert.True(t, again.Match(order{Rush: true}))
	assert.False(t, again.Match(order{Status: "SHIPPED"}))
}
