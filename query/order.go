package query

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/manojoshi/querykit/schema"
)

// SortKey is one ordering key.
type SortKey struct {
	Field *schema.Field
	Desc  bool
}

func (k SortKey) String() string {
	if k.Desc {
		return k.Field.Column + " DESC"
	}
	return k.Field.Column + " ASC"
}

// Order sorts rows of T by one or more keys. Rows whose key is absent (nil
// pointer) sort after every present value in both directions. A nil Order
// keeps the input order.
type Order[T any] struct {
	entity *schema.Entity
	keys   []SortKey
}

// ResolveOrder describes T through reg and resolves column into an
// ordering. It returns a nil Order, and no error, when column names no
// field of T.
func ResolveOrder[T any](reg *schema.Registry, column string, ascending bool) (*Order[T], error) {
	ent, err := schema.Of[T](reg)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return OrderBy[T](ent, column, ascending), nil
}

// OrderBy resolves column against ent. See ResolveOrder.
func OrderBy[T any](ent *schema.Entity, column string, ascending bool) *Order[T] {
	f, ok := ent.Resolve(column)
	if !ok {
		return nil
	}
	return &Order[T]{entity: ent, keys: []SortKey{{Field: f, Desc: !ascending}}}
}

// DefaultOrder sorts ascending by the first declared field of T.
func DefaultOrder[T any](reg *schema.Registry) (*Order[T], error) {
	ent, err := schema.Of[T](reg)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &Order[T]{entity: ent, keys: []SortKey{{Field: ent.First()}}}, nil
}

// ThenBy returns a copy of o with a tie-breaking key appended. An unknown
// column, or a nil o, leaves the ordering unchanged.
func (o *Order[T]) ThenBy(column string, ascending bool) *Order[T] {
	if o == nil {
		return nil
	}
	f, ok := o.entity.Resolve(column)
	if !ok {
		return o
	}
	keys := append(slices.Clone(o.keys), SortKey{Field: f, Desc: !ascending})
	return &Order[T]{entity: o.entity, keys: keys}
}

func (o *Order[T]) Keys() []SortKey {
	if o == nil {
		return nil
	}
	return o.keys
}

// Compare orders a before b when the result is negative.
func (o *Order[T]) Compare(a, b T) int {
	if o == nil {
		return 0
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	for _, k := range o.keys {
		if c := compareKey(k, va, vb); c != 0 {
			return c
		}
	}
	return 0
}

// Sort orders rows in place. Equal rows keep their relative order.
func (o *Order[T]) Sort(rows []T) {
	if o == nil || len(o.keys) == 0 {
		return
	}
	slices.SortStableFunc(rows, o.Compare)
}

func (o *Order[T]) String() string {
	if o == nil {
		return ""
	}
	parts := make([]string, len(o.keys))
	for i, k := range o.keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, ", ")
}

func compareKey(k SortKey, a, b reflect.Value) int {
	va, okA := k.Field.Value(a)
	vb, okB := k.Field.Value(b)
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	c := compare(va, vb)
	if k.Desc {
		return -c
	}
	return c
}
