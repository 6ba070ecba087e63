package filter

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/manojoshi/querykit/schema"
)

// Supports reports whether op can be applied to fields of f's kind.
func Supports(f *schema.Field, op Operator) error {
	if !op.Valid() || op.IsGroup() {
		return specErr(f.Name, op, ErrUnsupported, "not a leaf operator")
	}
	switch op {
	case Contains, StartsWith, EndsWith, NotLike:
		if f.Kind != schema.KindString {
			return specErr(f.Name, op, ErrUnsupported, "field is ", f.Kind)
		}
	case GreaterThan, GreaterOrEqual, LessThan, LessOrEqual, Between:
		if !f.Kind.Ordered() {
			return specErr(f.Name, op, ErrUnsupported, "field is ", f.Kind)
		}
	}
	return nil
}

// Normalize coerces raw into the payload of a condition on f using op.
// ok is false when raw is absent (nil, a blank string or an empty
// collection): the caller drops the condition instead of emitting one.
// IsNull and IsNotNull ignore raw and always yield ok.
func Normalize(f *schema.Field, op Operator, raw any) (v Value, ok bool, err error) {
	if f == nil {
		return Value{}, false, specErr("", op, ErrMissingField)
	}
	if err := Supports(f, op); err != nil {
		return Value{}, false, err
	}

	switch op {
	case IsNull, IsNotNull:
		return Value{}, true, nil
	case In, NotIn:
		return normalizeList(f, op, raw)
	case Between:
		if isAbsent(raw) {
			return Value{}, false, nil
		}
		lo, hi, isPair := splitPair(raw)
		if !isPair {
			return Value{}, false, specErr(f.Name, op, ErrMalformed, "want a two-element range, got ", fmt.Sprintf("%T", raw))
		}
		return NormalizeRange(f, lo, hi)
	}

	if isAbsent(raw) {
		return Value{}, false, nil
	}
	if isCollection(raw) {
		return Value{}, false, specErr(f.Name, op, ErrMalformed, "collection given to a scalar operator")
	}
	c, err := Coerce(f, op, raw)
	if err != nil {
		return Value{}, false, err
	}
	return scalarValue(c), true, nil
}

// NormalizeRange coerces both ends of a Between range independently. The
// ends are kept in the order given.
func NormalizeRange(f *schema.Field, lo, hi any) (Value, bool, error) {
	if f == nil {
		return Value{}, false, specErr("", Between, ErrMissingField)
	}
	if err := Supports(f, Between); err != nil {
		return Value{}, false, err
	}
	if isAbsent(lo) && isAbsent(hi) {
		return Value{}, false, nil
	}
	if isAbsent(lo) || isAbsent(hi) {
		return Value{}, false, specErr(f.Name, Between, ErrMalformed, "range needs both ends")
	}
	from, err := Coerce(f, Between, lo)
	if err != nil {
		return Value{}, false, err
	}
	to, err := Coerce(f, Between, hi)
	if err != nil {
		return Value{}, false, err
	}
	return rangeValue(from, to), true, nil
}

// DateOnly returns the range covering the calendar day of t, from midnight
// to the following midnight, for use with Between.
func DateOnly(t time.Time) Pair {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Pair{Lo: start, Hi: start.AddDate(0, 0, 1)}
}

func normalizeList(f *schema.Field, op Operator, raw any) (Value, bool, error) {
	if isAbsent(raw) {
		return Value{}, false, nil
	}
	rv := schema.Indirect(reflect.ValueOf(raw))
	if !isCollection(raw) {
		return Value{}, false, specErr(f.Name, op, ErrMalformed, "want a collection, got ", fmt.Sprintf("%T", raw))
	}

	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i).Interface()
		if isAbsent(el) {
			continue
		}
		if isCollection(el) {
			return Value{}, false, specErr(f.Name, op, ErrMalformed, "nested collection")
		}
		c, err := Coerce(f, op, el)
		if err != nil {
			return Value{}, false, err
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return Value{}, false, nil
	}
	return listValue(out), true, nil
}

// Coerce converts one raw value to the canonical type of f's kind.
func Coerce(f *schema.Field, op Operator, raw any) (any, error) {
	v, err := coerceKind(f.Kind, plain(raw))
	if err != nil {
		target := f.Type
		if f.Nullable {
			target = target.Elem()
		}
		return nil, &ConversionError{Field: f.Name, Op: op, Raw: raw, Target: target.String(), Err: err}
	}
	return v, nil
}

var errFraction = errors.New("value has a fractional part")

func coerceKind(k schema.Kind, raw any) (any, error) {
	s, isString := raw.(string)
	if isString {
		s = strings.TrimSpace(s)
	}

	switch k {
	case schema.KindString:
		return cast.ToStringE(raw)
	case schema.KindInt:
		// strings are read in base 10 only; "010" is ten, not eight.
		if isString {
			return strconv.ParseInt(s, 10, 64)
		}
		if err := integral(raw); err != nil {
			return nil, err
		}
		return cast.ToInt64E(raw)
	case schema.KindUint:
		if isString {
			return strconv.ParseUint(s, 10, 64)
		}
		if err := integral(raw); err != nil {
			return nil, err
		}
		return cast.ToUint64E(raw)
	case schema.KindFloat:
		if isString {
			return strconv.ParseFloat(s, 64)
		}
		return cast.ToFloat64E(raw)
	case schema.KindBool:
		if isString {
			return cast.ToBoolE(s)
		}
		return cast.ToBoolE(raw)
	case schema.KindTime:
		if isString {
			raw = s
		}
		t, err := cast.ToTimeE(raw)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("unsupported kind %s", k)
}

// integral rejects floats that would be truncated on the way to an integer.
func integral(raw any) error {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return nil
	}
	if f != math.Trunc(f) {
		return errFraction
	}
	return nil
}

// plain dereferences pointers and strips named basic types down to their
// underlying Go type so the cast package recognises them.
func plain(raw any) any {
	rv := schema.Indirect(reflect.ValueOf(raw))
	if !rv.IsValid() {
		return nil
	}
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	}
	return rv.Interface()
}

// isAbsent: nil, nil pointer, or a blank string.
func isAbsent(raw any) bool {
	rv := schema.Indirect(reflect.ValueOf(raw))
	if !rv.IsValid() {
		return true
	}
	if rv.Kind() == reflect.String {
		return strings.TrimSpace(rv.String()) == ""
	}
	return false
}

func isCollection(raw any) bool {
	rv := schema.Indirect(reflect.ValueOf(raw))
	if !rv.IsValid() {
		return false
	}
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func splitPair(raw any) (lo, hi any, ok bool) {
	switch p := raw.(type) {
	case Pair:
		return p.Lo, p.Hi, true
	case *Pair:
		return p.Lo, p.Hi, true
	}
	rv := schema.Indirect(reflect.ValueOf(raw))
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Len() == 2 {
		return rv.Index(0).Interface(), rv.Index(1).Interface(), true
	}
	return nil, nil, false
}
