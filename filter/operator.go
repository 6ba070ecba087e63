package filter

import (
	"fmt"
	"strings"
)

// Operator is the comparison (or grouping) applied by a Condition.
type Operator uint8

const (
	Equal Operator = iota
	NotEqual
	Contains
	StartsWith
	EndsWith
	GreaterThan
	GreaterOrEqual
	LessThan
	LessOrEqual
	In
	NotIn
	IsNull
	IsNotNull
	Between
	NotLike

	GroupAnd
	GroupOr
)

var operatorNames = [...]string{
	Equal:          "Equal",
	NotEqual:       "NotEqual",
	Contains:       "Contains",
	StartsWith:     "StartsWith",
	EndsWith:       "EndsWith",
	GreaterThan:    "GreaterThan",
	GreaterOrEqual: "GreaterOrEqual",
	LessThan:       "LessThan",
	LessOrEqual:    "LessOrEqual",
	In:             "In",
	NotIn:          "NotIn",
	IsNull:         "IsNull",
	IsNotNull:      "IsNotNull",
	Between:        "Between",
	NotLike:        "NotLike",
	GroupAnd:       "GroupAnd",
	GroupOr:        "GroupOr",
}

// short forms accepted by ParseOperator in addition to the full names.
var operatorAliases = map[string]Operator{
	"eq": Equal, "=": Equal, "==": Equal,
	"ne": NotEqual, "neq": NotEqual, "!=": NotEqual, "<>": NotEqual,
	"like": Contains, "nlike": NotLike,
	"sw": StartsWith, "ew": EndsWith,
	"gt": GreaterThan, ">": GreaterThan,
	"ge": GreaterOrEqual, "gte": GreaterOrEqual, ">=": GreaterOrEqual,
	"lt": LessThan, "<": LessThan,
	"le": LessOrEqual, "lte": LessOrEqual, "<=": LessOrEqual,
	"greaterthanorequal": GreaterOrEqual, "lessthanorequal": LessOrEqual,
	"nin": NotIn, "null": IsNull, "notnull": IsNotNull,
	"and": GroupAnd, "or": GroupOr,
}

func (o Operator) String() string {
	if int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", o)
}

// Valid reports whether o is one of the declared operators.
func (o Operator) Valid() bool { return o <= GroupOr }

// IsGroup reports whether o combines child conditions.
func (o Operator) IsGroup() bool { return o == GroupAnd || o == GroupOr }

// TakesValue reports whether a leaf with this operator carries a value.
func (o Operator) TakesValue() bool { return o != IsNull && o != IsNotNull && !o.IsGroup() }

// ParseOperator accepts an operator name case-insensitively or one of its
// short forms ("eq", ">=", "nin", ...).
func ParseOperator(s string) (Operator, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range operatorNames {
		if strings.ToLower(name) == key {
			return Operator(i), nil
		}
	}
	if op, ok := operatorAliases[key]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("filter: unknown operator %q", s)
}
