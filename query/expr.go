// Package query compiles filter conditions. Compile and CompileFilter build
// in-process predicates; Lower turns the same conditions into a RediSearch
// expression tree that SearchBuilder sends to the server.
//
// The expression tree can also be written by hand:
//
//	where := query.And(
//	    query.Eq("status", "PENDING"),
//	    query.In("warehouse_id", 12, 15, 18),
//	    query.Not(query.Missing("shipped_at")),
//	)
package query

import (
	"strings"
)

// Expr is a RediSearch query node. Nodes are plain data; compile.go writes
// them out.
type Expr interface {
	compile(*strings.Builder)
}

// Eq("@field", value)  ➜  "@field:{value}"
func Eq(field string, v any) Expr { return &eq{field, v} }

// In("@field", v1, v2) ➜ "@field:{v1|v2}"
func In(field string, vs ...any) Expr { return &in{field, vs} }

// Range("@price", 10, 100, true) ➜ "@price:[10 100]"
func Range(field string, min, max any, inclusive bool) Expr {
	return &rng{f: field, lo: min, hi: max, loEx: !inclusive, hiEx: !inclusive}
}

// Above(f, v, false) ➜ "@f:[(v +inf]"
func Above(field string, v any, inclusive bool) Expr {
	return &rng{f: field, lo: v, hi: "+inf", loEx: !inclusive}
}

// Below(f, v, false) ➜ "@f:[-inf (v]"
func Below(field string, v any, inclusive bool) Expr {
	return &rng{f: field, lo: "-inf", hi: v, hiEx: !inclusive}
}

// TagMatch("@sku", "ab*") ➜ "@sku:{ab*}". The pattern is written verbatim.
func TagMatch(field, pattern string) Expr { return &match{f: field, pattern: pattern, tag: true} }

// TextMatch("@title", "big*") ➜ "@title:big*"
func TextMatch(field, pattern string) Expr { return &match{f: field, pattern: pattern} }

// Phrase("@title", "big order") ➜ `@title:"big order"`
func Phrase(field, text string) Expr { return &phrase{field, text} }

// Missing("@shipped_at") ➜ "ismissing(@shipped_at)"
func Missing(field string) Expr { return &missing{field} }

func And(xs ...Expr) Expr { return &and{xs} } // implicit space
func Or(xs ...Expr) Expr  { return &or{xs} }  // |
func Not(x Expr) Expr     { return &not{x} }  // unary -

type (
	eq struct {
		f string
		v any
	}
	in struct {
		f  string
		vs []any
	}
	rng struct {
		f          string
		lo, hi     any
		loEx, hiEx bool
	}
	match struct {
		f, pattern string
		tag        bool
	}
	phrase struct {
		f, text string
	}
	missing struct{ f string }
	and     struct{ xs []Expr }
	or      struct{ xs []Expr }
	not     struct{ x Expr }
)

func field(f string) string {
	if strings.HasPrefix(f, "@") {
		return f
	}
	return "@" + f
}

func MatchAll() Expr { return matchAll{} }

type matchAll struct{}

func (matchAll) compile(sb *strings.Builder) { sb.WriteByte('*') }
