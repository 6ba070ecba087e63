package query

import (
	"errors"
	"fmt"

	"github.com/manojoshi/querykit/filter"
	"github.com/manojoshi/querykit/schema"
)

// ErrNotPushable reports a filter or ordering the search backend cannot
// express. Callers may evaluate it in process instead.
var ErrNotPushable = errors.New("query: not pushable to search backend")

// Lower translates conds into a RediSearch expression using the same left
// fold as Compile. Conditions are validated exactly as Compile validates
// them; an operator the field's index type cannot answer yields an error
// wrapping ErrNotPushable. Empty input lowers to MatchAll.
func Lower(ent *schema.Entity, conds []filter.Condition) (Expr, error) {
	x, err := lowerFold(ent, conds, false)
	if err != nil {
		return nil, err
	}
	if x == nil {
		return MatchAll(), nil
	}
	return x, nil
}

func lowerFold(ent *schema.Entity, conds []filter.Condition, allOr bool) (Expr, error) {
	var result Expr
	for _, c := range conds {
		var (
			next Expr
			err  error
		)
		if c.IsGroup() {
			next, err = lowerFold(ent, c.Children, c.Op == filter.GroupOr)
		} else {
			next, err = lowerLeaf(ent, c)
		}
		if err != nil {
			return nil, err
		}
		if next == nil {
			continue
		}
		switch {
		case result == nil:
			result = next
		case allOr || c.Or:
			result = Or(result, next)
		default:
			result = And(result, next)
		}
	}
	return result, nil
}

func lowerLeaf(ent *schema.Entity, c filter.Condition) (Expr, error) {
	f, err := resolveLeaf(ent, c)
	if err != nil {
		return nil, err
	}
	col := f.Column

	switch c.Op {
	case filter.IsNull:
		return Missing(col), nil
	case filter.IsNotNull:
		return Not(Missing(col)), nil
	}

	var x Expr
	switch f.Search {
	case schema.SearchTag:
		x, err = lowerTag(col, c)
	case schema.SearchText:
		x, err = lowerText(col, c)
	case schema.SearchNumeric:
		x, err = lowerNumeric(f, c)
	default:
		err = fmt.Errorf("no index type")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s on %s field: %v", ErrNotPushable, f.Name, c.Op, f.Search, err)
	}
	return x, nil
}

func lowerTag(col string, c filter.Condition) (Expr, error) {
	s := func() string { return EscapeTag(toStr(c.Value.Scalar())) }
	switch c.Op {
	case filter.Equal:
		return Eq(col, c.Value.Scalar()), nil
	case filter.NotEqual:
		return Not(Eq(col, c.Value.Scalar())), nil
	case filter.In:
		return In(col, c.Value.List()...), nil
	case filter.NotIn:
		return Not(In(col, c.Value.List()...)), nil
	case filter.StartsWith:
		return TagMatch(col, s()+"*"), nil
	case filter.EndsWith:
		return TagMatch(col, "*"+s()), nil
	case filter.Contains:
		return TagMatch(col, "*"+s()+"*"), nil
	case filter.NotLike:
		return Not(TagMatch(col, "*"+s()+"*")), nil
	}
	return nil, errors.New("ordered comparison")
}

func lowerText(col string, c filter.Condition) (Expr, error) {
	s := func() string { return EscapeTag(toStr(c.Value.Scalar())) }
	phrases := func() Expr {
		xs := make([]Expr, len(c.Value.List()))
		for i, v := range c.Value.List() {
			xs[i] = Phrase(col, toStr(v))
		}
		return Or(xs...)
	}
	switch c.Op {
	case filter.Equal:
		return Phrase(col, toStr(c.Value.Scalar())), nil
	case filter.NotEqual:
		return Not(Phrase(col, toStr(c.Value.Scalar()))), nil
	case filter.In:
		return phrases(), nil
	case filter.NotIn:
		return Not(phrases()), nil
	case filter.StartsWith:
		return TextMatch(col, s()+"*"), nil
	case filter.EndsWith:
		return TextMatch(col, "*"+s()), nil
	case filter.Contains:
		return TextMatch(col, "*"+s()+"*"), nil
	case filter.NotLike:
		return Not(TextMatch(col, "*"+s()+"*")), nil
	}
	return nil, errors.New("ordered comparison")
}

func lowerNumeric(f *schema.Field, c filter.Condition) (Expr, error) {
	if f.Kind == schema.KindString {
		return nil, errors.New("string value")
	}
	col, v := f.Column, c.Value.Scalar()
	points := func() Expr {
		xs := make([]Expr, len(c.Value.List()))
		for i, v := range c.Value.List() {
			xs[i] = Range(col, v, v, true)
		}
		return Or(xs...)
	}
	switch c.Op {
	case filter.Equal:
		return Range(col, v, v, true), nil
	case filter.NotEqual:
		return Not(Range(col, v, v, true)), nil
	case filter.GreaterThan:
		return Above(col, v, false), nil
	case filter.GreaterOrEqual:
		return Above(col, v, true), nil
	case filter.LessThan:
		return Below(col, v, false), nil
	case filter.LessOrEqual:
		return Below(col, v, true), nil
	case filter.Between:
		lo, hi := c.Value.Range()
		return Range(col, lo, hi, true), nil
	case filter.In:
		return points(), nil
	case filter.NotIn:
		return Not(points()), nil
	}
	return nil, errors.New("substring match")
}
