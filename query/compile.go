package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/manojoshi/querykit/internal"
)

// Render turns an Expr tree into a RediSearch query string.
// Exported so callers can preview the query (logging, explain).
func Render(e Expr) string {
	sb := internal.GetBuilder()
	defer internal.PutBuilder(sb)
	e.compile(sb)
	return sb.String()
}

func (n *eq) compile(sb *strings.Builder) {
	sb.WriteString(field(n.f) + ":{")
	sb.WriteString(EscapeTag(toStr(n.v)))
	sb.WriteByte('}')
}

func (n *in) compile(sb *strings.Builder) {
	sb.WriteString(field(n.f) + ":{")
	for i, v := range n.vs {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(EscapeTag(toStr(v)))
	}
	sb.WriteByte('}')
}

func (n *rng) compile(sb *strings.Builder) {
	sb.WriteString(field(n.f) + ":[")
	bound(sb, n.lo, n.loEx)
	sb.WriteByte(' ')
	bound(sb, n.hi, n.hiEx)
	sb.WriteByte(']')
}

func bound(sb *strings.Builder, v any, exclusive bool) {
	if exclusive {
		sb.WriteByte('(')
	}
	sb.WriteString(toStr(v))
}

func (n *match) compile(sb *strings.Builder) {
	if n.tag {
		fmt.Fprintf(sb, "%s:{%s}", field(n.f), n.pattern)
		return
	}
	fmt.Fprintf(sb, "%s:%s", field(n.f), n.pattern)
}

func (n *phrase) compile(sb *strings.Builder) {
	fmt.Fprintf(sb, "%s:%q", field(n.f), n.text)
}

func (n *missing) compile(sb *strings.Builder) {
	fmt.Fprintf(sb, "ismissing(%s)", field(n.f))
}

func (n *and) compile(sb *strings.Builder) { group(sb, n.xs, " ") }
func (n *or) compile(sb *strings.Builder)  { group(sb, n.xs, "|") }

func (n *not) compile(sb *strings.Builder) {
	sb.WriteByte('-')
	sb.WriteByte('(')
	n.x.compile(sb)
	sb.WriteByte(')')
}

// group helper for (a b) / (a|b)
func group(sb *strings.Builder, xs []Expr, sep string) {
	sb.WriteByte('(')
	for i, x := range xs {
		if i > 0 {
			sb.WriteString(sep)
		}
		x.compile(sb)
	}
	sb.WriteByte(')')
}

// tagSpecial lists the bytes RediSearch treats as separators or syntax
// inside tag and text terms.
const tagSpecial = ",.<>{}[]\"':;!@#$%^&*()-+=~|/\\ "

// EscapeTag backslash-escapes every special byte in s so it matches as a
// literal tag or text term.
func EscapeTag(s string) string {
	if !strings.ContainsAny(s, tagSpecial) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(tagSpecial, s[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// toStr formats canonical filter values the way RediSearch indexes them.
// Times are unix milliseconds, booleans 1/0.
func toStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
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
