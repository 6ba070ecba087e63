package query

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/manojoshi/querykit/filter"
	"github.com/manojoshi/querykit/schema"
)

type matcher func(row reflect.Value) bool

// Predicate is a compiled filter over rows of T (a struct or a pointer to
// one). A nil or empty Predicate matches every row.
type Predicate[T any] struct {
	entity *schema.Entity
	conds  []filter.Condition
	match  matcher
}

// CompileFilter describes T through reg and compiles conds into one
// predicate. See Compile.
func CompileFilter[T any](reg *schema.Registry, conds []filter.Condition) (*Predicate[T], error) {
	ent, err := schema.Of[T](reg)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return Compile[T](ent, conds)
}

// Compile folds conds left to right: the first condition starts the
// result, every later one is OR-ed into the running result when its Or
// flag is set and AND-ed otherwise. [A, B(or), C] is therefore
// (A OR B) AND C. Groups fold their own children the same way. An empty
// list matches everything. Any invalid condition fails the whole call.
func Compile[T any](ent *schema.Entity, conds []filter.Condition) (*Predicate[T], error) {
	m, err := fold(ent, conds, false)
	if err != nil {
		return nil, err
	}
	return &Predicate[T]{entity: ent, conds: conds, match: m}, nil
}

// Match evaluates the predicate against row.
func (p *Predicate[T]) Match(row T) bool {
	if p == nil || p.match == nil {
		return true
	}
	return p.match(reflect.ValueOf(row))
}

// Empty reports whether the predicate matches everything.
func (p *Predicate[T]) Empty() bool { return p == nil || p.match == nil }

// Conditions returns the condition tree the predicate was compiled from.
func (p *Predicate[T]) Conditions() []filter.Condition {
	if p == nil {
		return nil
	}
	return p.conds
}

func (p *Predicate[T]) Entity() *schema.Entity {
	if p == nil {
		return nil
	}
	return p.entity
}

// And returns a predicate matching rows matched by both p and q.
func (p *Predicate[T]) And(q *Predicate[T]) *Predicate[T] {
	switch {
	case q.Empty():
		return p
	case p.Empty():
		return q
	}
	l, r := p.match, q.match
	return &Predicate[T]{
		entity: p.entity,
		conds:  []filter.Condition{filter.AndGroup(p.conds...), filter.AndGroup(q.conds...)},
		match:  func(v reflect.Value) bool { return l(v) && r(v) },
	}
}

// Or returns a predicate matching rows matched by p or q.
func (p *Predicate[T]) Or(q *Predicate[T]) *Predicate[T] {
	if p.Empty() {
		return p
	}
	if q.Empty() {
		return q
	}
	l, r := p.match, q.match
	return &Predicate[T]{
		entity: p.entity,
		conds:  []filter.Condition{filter.AndGroup(p.conds...), filter.AndGroup(q.conds...).WithOr()},
		match:  func(v reflect.Value) bool { return l(v) || r(v) },
	}
}

func (p *Predicate[T]) String() string {
	if p.Empty() {
		return "*"
	}
	parts := make([]string, len(p.conds))
	for i, c := range p.conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// fold compiles conds into one matcher. allOr forces OR joins (GroupOr
// children). Empty groups contribute nothing.
func fold(ent *schema.Entity, conds []filter.Condition, allOr bool) (matcher, error) {
	var result matcher
	for _, c := range conds {
		next, err := compileNode(ent, c)
		if err != nil {
			return nil, err
		}
		if next == nil {
			continue
		}
		if result == nil {
			result = next
			continue
		}
		l := result
		if allOr || c.Or {
			result = func(v reflect.Value) bool { return l(v) || next(v) }
		} else {
			result = func(v reflect.Value) bool { return l(v) && next(v) }
		}
	}
	return result, nil
}

func compileNode(ent *schema.Entity, c filter.Condition) (matcher, error) {
	if c.IsGroup() {
		return fold(ent, c.Children, c.Op == filter.GroupOr)
	}
	f, err := resolveLeaf(ent, c)
	if err != nil {
		return nil, err
	}
	return compileLeaf(f, c), nil
}

// resolveLeaf checks the leaf against the entity: field known, operator
// valid for its kind, value shape valid for the operator.
func resolveLeaf(ent *schema.Entity, c filter.Condition) (*schema.Field, error) {
	if c.Field.IsZero() {
		return nil, &filter.SpecError{Op: c.Op, Err: filter.ErrMissingField}
	}
	f, ok := ent.Resolve(c.Field.Name())
	if !ok {
		return nil, &filter.SpecError{Field: c.Field.Name(), Op: c.Op, Err: filter.ErrUnknownField}
	}
	if err := filter.Supports(f, c.Op); err != nil {
		return nil, err
	}
	if want := shapeFor(c.Op); c.Value.Shape() != want {
		return nil, &filter.SpecError{
			Field: f.Name,
			Op:    c.Op,
			Err:   fmt.Errorf("%w: want %s value, got %s", filter.ErrMalformed, want, c.Value.Shape()),
		}
	}
	for _, v := range payload(c.Value) {
		if !hasKind(f.Kind, v) {
			return nil, &filter.SpecError{
				Field: f.Name,
				Op:    c.Op,
				Err:   fmt.Errorf("%w: %T value for %s field", filter.ErrMalformed, v, f.Kind),
			}
		}
	}
	return f, nil
}

// payload lists every value a leaf carries: the scalar, both range ends or
// each list element.
func payload(v filter.Value) []any {
	switch v.Shape() {
	case filter.ShapeScalar:
		return []any{v.Scalar()}
	case filter.ShapeRange:
		lo, hi := v.Range()
		return []any{lo, hi}
	case filter.ShapeList:
		return v.List()
	}
	return nil
}

// hasKind reports whether v holds the canonical Go type of kind k.
func hasKind(k schema.Kind, v any) bool {
	switch v.(type) {
	case string:
		return k == schema.KindString
	case int64:
		return k == schema.KindInt
	case uint64:
		return k == schema.KindUint
	case float64:
		return k == schema.KindFloat
	case bool:
		return k == schema.KindBool
	case time.Time:
		return k == schema.KindTime
	}
	return false
}

func shapeFor(op filter.Operator) filter.Shape {
	switch op {
	case filter.IsNull, filter.IsNotNull:
		return filter.ShapeNone
	case filter.In, filter.NotIn:
		return filter.ShapeList
	case filter.Between:
		return filter.ShapeRange
	}
	return filter.ShapeScalar
}

// compileLeaf builds the comparison. An absent (nil) field value fails every
// positive test; NotEqual, NotIn and NotLike are their exact negations and
// so hold for it.
func compileLeaf(f *schema.Field, c filter.Condition) matcher {
	get := f.Value
	x := c.Value.Scalar()

	switch c.Op {
	case filter.Equal:
		return func(row reflect.Value) bool {
			v, ok := get(row)
			return ok && equal(v, x)
		}
	case filter.NotEqual:
		return func(row reflect.Value) bool {
			v, ok := get(row)
			return !ok || !equal(v, x)
		}
	case filter.Contains, filter.NotLike, filter.StartsWith, filter.EndsWith:
		s := x.(string)
		test := strings.Contains
		switch c.Op {
		case filter.StartsWith:
			test = strings.HasPrefix
		case filter.EndsWith:
			test = strings.HasSuffix
		}
		negate := c.Op == filter.NotLike
		return func(row reflect.Value) bool {
			v, ok := get(row)
			return (ok && test(v.(string), s)) != negate
		}
	case filter.GreaterThan:
		return ordered(get, x, func(c int) bool { return c > 0 })
	case filter.GreaterOrEqual:
		return ordered(get, x, func(c int) bool { return c >= 0 })
	case filter.LessThan:
		return ordered(get, x, func(c int) bool { return c < 0 })
	case filter.LessOrEqual:
		return ordered(get, x, func(c int) bool { return c <= 0 })
	case filter.In, filter.NotIn:
		member := membership(c.Value.List())
		negate := c.Op == filter.NotIn
		return func(row reflect.Value) bool {
			v, ok := get(row)
			return (ok && member(v)) != negate
		}
	case filter.IsNull:
		return func(row reflect.Value) bool {
			_, ok := get(row)
			return !ok
		}
	case filter.IsNotNull:
		return func(row reflect.Value) bool {
			_, ok := get(row)
			return ok
		}
	case filter.Between:
		lo, hi := c.Value.Range()
		return func(row reflect.Value) bool {
			v, ok := get(row)
			return ok && compare(v, lo) >= 0 && compare(v, hi) <= 0
		}
	}
	// unreachable: resolveLeaf rejected every other operator.
	return func(reflect.Value) bool { return false }
}

func ordered(get func(reflect.Value) (any, bool), x any, accept func(int) bool) matcher {
	return func(row reflect.Value) bool {
		v, ok := get(row)
		return ok && accept(compare(v, x))
	}
}

func membership(list []any) func(any) bool {
	if len(list) > 0 {
		if _, isTime := list[0].(time.Time); isTime {
			return func(v any) bool {
				for _, x := range list {
					if equal(v, x) {
						return true
					}
				}
				return false
			}
		}
	}
	set := make(map[any]struct{}, len(list))
	for _, x := range list {
		set[x] = struct{}{}
	}
	return func(v any) bool {
		_, ok := set[v]
		return ok
	}
}
