package filter

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseClause splits a textual clause of the form "field op value" into its
// parts. In/NotIn take a comma separated list, Between takes "lo..hi", and
// IsNull/IsNotNull take no value:
//
//	status eq PENDING
//	warehouse_id in 12,15,18
//	created_ts between 2024-01-01..2024-02-01
//	shipped_at null
//
// Values stay strings; Normalize coerces them to the field type.
func ParseClause(s string) (field string, op Operator, raw any, err error) {
	field, rest := cutSpace(strings.TrimSpace(s))
	if field == "" {
		return "", 0, nil, fmt.Errorf("filter: empty clause")
	}
	opText, value := cutSpace(rest)
	if opText == "" {
		return "", 0, nil, fmt.Errorf("filter: clause %q has no operator", s)
	}
	if op, err = ParseOperator(opText); err != nil {
		return "", 0, nil, err
	}

	switch op {
	case GroupAnd, GroupOr:
		return "", 0, nil, fmt.Errorf("filter: clause %q uses a group operator", s)
	case IsNull, IsNotNull:
		return field, op, nil, nil
	case In, NotIn:
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return field, op, parts, nil
	case Between:
		lo, hi, ok := strings.Cut(value, "..")
		if !ok {
			return "", 0, nil, fmt.Errorf("filter: clause %q: between needs lo..hi", s)
		}
		return field, op, Pair{Lo: strings.TrimSpace(lo), Hi: strings.TrimSpace(hi)}, nil
	}
	return field, op, value, nil
}

func cutSpace(s string) (head, tail string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
