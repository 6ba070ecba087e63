// Package scan converts between entity rows and their Redis hash form, and
// decodes FT.SEARCH replies.
//
// Hash fields are keyed by column. Numbers use base 10, booleans "1"/"0"
// and times unix milliseconds, which keeps every ordered column usable as
// a NUMERIC index field. A nil pointer field is not written at all.
package scan

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/manojoshi/querykit/schema"
)

// Encode returns the hash form of row.
func Encode(ent *schema.Entity, row any) map[string]any {
	rv := reflect.ValueOf(row)
	fields := ent.Fields()
	out := make(map[string]any, len(fields))
	for i := range fields {
		f := &fields[i]
		v, ok := f.Value(rv)
		if !ok {
			continue
		}
		out[f.Column] = FormatValue(v)
	}
	return out
}

// FormatValue renders a canonical field value as stored in a hash.
func FormatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		return strconv.FormatInt(t.UnixMilli(), 10)
	default:
		return fmt.Sprint(t)
	}
}

// Decode builds a T from its hash form. Columns missing from kv leave the
// field at its zero value (nil for pointer fields); unknown keys are
// ignored.
func Decode[T any](ent *schema.Entity, kv map[string]string) (T, error) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	if rv.Kind() == reflect.Pointer {
		rv.Set(reflect.New(rv.Type().Elem()))
		rv = rv.Elem()
	}

	fields := ent.Fields()
	for i := range fields {
		f := &fields[i]
		s, ok := kv[f.Column]
		if !ok {
			continue
		}
		if err := assign(f, f.Target(rv), s); err != nil {
			return out, err
		}
	}
	return out, nil
}

func assign(f *schema.Field, dst reflect.Value, s string) error {
	if f.Nullable {
		p := reflect.New(dst.Type().Elem())
		if err := set(f.Kind, p.Elem(), s); err != nil {
			return fmt.Errorf("scan: field %s: %w", f.Column, err)
		}
		dst.Set(p)
		return nil
	}
	if err := set(f.Kind, dst, s); err != nil {
		return fmt.Errorf("scan: field %s: %w", f.Column, err)
	}
	return nil
}

func set(k schema.Kind, dst reflect.Value, s string) error {
	if k != schema.KindString {
		s = strings.TrimSpace(s)
	}
	switch k {
	case schema.KindString:
		dst.SetString(s)
	case schema.KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)
	case schema.KindUint:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("%d overflows %s", n, dst.Type())
		}
		dst.SetUint(n)
	case schema.KindFloat:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		dst.SetFloat(n)
	case schema.KindBool:
		dst.SetBool(s == "1" || strings.EqualFold(s, "true"))
	case schema.KindTime:
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(time.UnixMilli(ms).UTC()).Convert(dst.Type()))
	default:
		return fmt.Errorf("unsupported kind %s", k)
	}
	return nil
}
