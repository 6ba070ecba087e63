package filter

import (
	"strings"
	"time"

	"github.com/manojoshi/querykit/schema"
)

// Builder accumulates normalized conditions for one entity. Absent values
// are dropped silently; the first resolution or coercion error is kept and
// returned by Build, after which further calls are no-ops.
type Builder struct {
	entity *schema.Entity
	conds  []Condition
	err    error
}

// NewBuilder starts an empty condition list for entity.
func NewBuilder(entity *schema.Entity) *Builder {
	return &Builder{entity: entity}
}

// Add appends an AND-joined condition.
func (b *Builder) Add(field string, op Operator, raw any) *Builder {
	return b.add(field, op, raw, false)
}

// OrAdd appends a condition OR-joined to everything before it.
func (b *Builder) OrAdd(field string, op Operator, raw any) *Builder {
	return b.add(field, op, raw, true)
}

// AddList appends an In/NotIn condition; values must be a slice or array.
func (b *Builder) AddList(field string, op Operator, values any) *Builder {
	if op != In && op != NotIn && b.err == nil {
		b.err = specErr(field, op, ErrMalformed, "AddList needs In or NotIn")
		return b
	}
	return b.add(field, op, values, false)
}

// AddRange appends an inclusive Between condition with the ends as given.
func (b *Builder) AddRange(field string, lo, hi any) *Builder {
	if b.err != nil {
		return b
	}
	f, err := b.resolve(field, Between)
	if err != nil {
		b.err = err
		return b
	}
	v, ok, err := NormalizeRange(f, lo, hi)
	switch {
	case err != nil:
		b.err = err
	case ok:
		b.conds = append(b.conds, Condition{Field: Field(f.Name), Op: Between, Value: v})
	}
	return b
}

// AddDate appends a Between condition covering the calendar day of day.
func (b *Builder) AddDate(field string, day time.Time) *Builder {
	p := DateOnly(day)
	return b.AddRange(field, p.Lo, p.Hi)
}

// Group appends a nested AND-joined group built by fn. Empty groups are
// dropped.
func (b *Builder) Group(op Operator, fn func(*Builder)) *Builder {
	return b.group(op, fn, false)
}

// OrGroup appends a nested group OR-joined to everything before it.
func (b *Builder) OrGroup(op Operator, fn func(*Builder)) *Builder {
	return b.group(op, fn, true)
}

// Append adds already-built conditions unchanged.
func (b *Builder) Append(conds ...Condition) *Builder {
	if b.err == nil {
		b.conds = append(b.conds, conds...)
	}
	return b
}

// Err returns the first error recorded so far.
func (b *Builder) Err() error { return b.err }

// Build returns the accumulated conditions, or the first error. No partial
// list is returned on error.
func (b *Builder) Build() ([]Condition, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make([]Condition, len(b.conds))
	copy(out, b.conds)
	return out, nil
}

func (b *Builder) add(field string, op Operator, raw any, or bool) *Builder {
	if b.err != nil {
		return b
	}
	c, ok, err := NewCondition(b.entity, field, op, raw)
	switch {
	case err != nil:
		b.err = err
	case ok:
		c.Or = or
		b.conds = append(b.conds, c)
	}
	return b
}

func (b *Builder) group(op Operator, fn func(*Builder), or bool) *Builder {
	if b.err != nil {
		return b
	}
	if !op.IsGroup() {
		b.err = specErr("", op, ErrMalformed, "not a group operator")
		return b
	}
	sub := NewBuilder(b.entity)
	fn(sub)
	if sub.err != nil {
		b.err = sub.err
		return b
	}
	if len(sub.conds) == 0 {
		return b
	}
	g := Group(op, sub.conds...)
	g.Or = or
	b.conds = append(b.conds, g)
	return b
}

func (b *Builder) resolve(field string, op Operator) (*schema.Field, error) {
	if strings.TrimSpace(field) == "" {
		return nil, specErr(field, op, ErrMissingField)
	}
	f, ok := b.entity.Resolve(field)
	if !ok {
		return nil, specErr(field, op, ErrUnknownField)
	}
	return f, nil
}

// NewCondition resolves field on entity and normalizes raw for op. ok is
// false when the value is absent and no condition should be emitted.
func NewCondition(entity *schema.Entity, field string, op Operator, raw any) (c Condition, ok bool, err error) {
	b := Builder{entity: entity}
	f, err := b.resolve(field, op)
	if err != nil {
		return Condition{}, false, err
	}
	v, ok, err := Normalize(f, op, raw)
	if err != nil || !ok {
		return Condition{}, false, err
	}
	return Condition{Field: Field(f.Name), Op: op, Value: v}, true, nil
}

// BuildFilters returns defaults followed by user. Default conditions always
// AND-join. When the user block OR-joins anything it is enclosed in a
// single group so the OR cannot reach across the default block.
func BuildFilters(defaults, user []Condition) []Condition {
	out := make([]Condition, 0, len(defaults)+len(user))
	for _, d := range defaults {
		d.Or = false
		out = append(out, d)
	}
	if len(out) > 0 && hasOr(user) {
		return append(out, AndGroup(user...))
	}
	return append(out, user...)
}

func hasOr(conds []Condition) bool {
	for _, c := range conds {
		if c.Or {
			return true
		}
	}
	return false
}
