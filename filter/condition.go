// Package filter holds the condition model: operators, normalized values,
// leaf and group conditions, and the builder that assembles them from raw
// caller input.
//
//	b := filter.NewBuilder(orderEntity).
//	    Add("status", filter.Equal, "PENDING").
//	    AddList("warehouse_id", filter.In, []int{12, 15}).
//	    OrAdd("priority", filter.GreaterOrEqual, "3")
//	conds, err := b.Build()
package filter

import (
	"fmt"
	"strings"
)

// FieldRef names one field of an entity. It is resolved against the
// entity's schema when a condition is normalized or compiled.
type FieldRef struct{ name string }

// Field returns a reference to the named field (column, declared name or
// alias, case-insensitive).
func Field(name string) FieldRef { return FieldRef{name: name} }

func (r FieldRef) Name() string { return r.name }
func (r FieldRef) IsZero() bool { return strings.TrimSpace(r.name) == "" }
func (r FieldRef) String() string { return r.name }

// Shape tells which payload a Value carries.
type Shape uint8

const (
	ShapeNone Shape = iota
	ShapeScalar
	ShapeRange
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeScalar:
		return "scalar"
	case ShapeRange:
		return "range"
	case ShapeList:
		return "list"
	}
	return fmt.Sprintf("shape(%d)", s)
}

// Value is a normalized condition payload. Scalars, range ends and list
// elements hold the canonical Go type of the field kind (see schema.Kind).
type Value struct {
	shape  Shape
	scalar any
	lo, hi any
	list   []any
}

func scalarValue(v any) Value { return Value{shape: ShapeScalar, scalar: v} }
func rangeValue(lo, hi any) Value { return Value{shape: ShapeRange, lo: lo, hi: hi} }
func listValue(vs []any) Value { return Value{shape: ShapeList, list: vs} }

func (v Value) Shape() Shape { return v.shape }
func (v Value) Scalar() any { return v.scalar }
func (v Value) Range() (lo, hi any) { return v.lo, v.hi }
func (v Value) List() []any { return v.list }

func (v Value) String() string {
	switch v.shape {
	case ShapeScalar:
		return fmt.Sprint(v.scalar)
	case ShapeRange:
		return fmt.Sprintf("[%v, %v]", v.lo, v.hi)
	case ShapeList:
		return fmt.Sprint(v.list)
	}
	return "<none>"
}

// Pair is the literal two-ended input accepted for Between.
type Pair struct{ Lo, Hi any }

// Condition is a node of the filter tree: a leaf comparison or a group of
// child conditions. Or joins the node to the running result of its left
// siblings; it is ignored on the first node of a list.
type Condition struct {
	Field    FieldRef
	Op       Operator
	Value    Value
	Or       bool
	Children []Condition
}

// IsGroup reports whether c is a GroupAnd/GroupOr node.
func (c Condition) IsGroup() bool { return c.Op.IsGroup() }

// WithOr returns a copy of c that OR-joins to its left siblings.
func (c Condition) WithOr() Condition {
	c.Or = true
	return c
}

// Group builds a group node. Children of a GroupAnd are folded with their
// own Or flags, like a top-level list; children of a GroupOr are all
// OR-joined.
func Group(op Operator, children ...Condition) Condition {
	return Condition{Op: op, Children: children}
}

// AndGroup is Group(GroupAnd, children...).
func AndGroup(children ...Condition) Condition { return Group(GroupAnd, children...) }

// OrGroup is Group(GroupOr, children...).
func OrGroup(children ...Condition) Condition { return Group(GroupOr, children...) }

// JoinsWithOr reports whether child i of group c is OR-joined to the
// running result of children 0..i-1.
func (c Condition) JoinsWithOr(i int) bool {
	return c.Op == GroupOr || c.Children[i].Or
}

func (c Condition) String() string {
	var sb strings.Builder
	c.write(&sb)
	return sb.String()
}

func (c Condition) write(sb *strings.Builder) {
	if c.IsGroup() {
		sb.WriteString(c.Op.String())
		sb.WriteByte('(')
		for i, ch := range c.Children {
			if i > 0 {
				if c.JoinsWithOr(i) {
					sb.WriteString(" OR ")
				} else {
					sb.WriteString(" AND ")
				}
			}
			ch.write(sb)
		}
		sb.WriteByte(')')
		return
	}
	sb.WriteString(c.Field.name)
	sb.WriteByte(' ')
	sb.WriteString(c.Op.String())
	if c.Op.TakesValue() {
		sb.WriteByte(' ')
		sb.WriteString(c.Value.String())
	}
}
