// Package schema turns Go structs into field descriptor tables that the
// filter, query and store packages resolve names against.
//
//	type Order struct {
//	    ID        string     `querykit:"@order_id,TAG,SORTABLE,PK"`
//	    Status    string     `querykit:"@status,TAG"`
//	    Qty       int        `querykit:"@qty,NUMERIC,SORTABLE"`
//	    ShippedAt *time.Time `querykit:"@shipped_at,alias=Shipped"`
//	}
//
//	reg := schema.NewRegistry()
//	ent, err := schema.Of[Order](reg)
//	f, ok := ent.Resolve("ORDER_ID") // column, declared name, then alias
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
)

// TagName is the struct tag key read by Describe.
const TagName = "querykit"

var (
	ErrNotStruct = errors.New("schema: entity must be a struct")
	ErrNoFields  = errors.New("schema: entity has no filterable fields")
)

// Kind is the semantic type class of a field. Values read through
// Field.Value always carry the canonical Go type of their kind.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString       // string
	KindInt          // int64
	KindUint         // uint64
	KindFloat        // float64
	KindBool         // bool
	KindTime         // time.Time, UTC
)

var kindNames = [...]string{"invalid", "string", "int", "uint", "float", "bool", "time"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Ordered reports whether values of the kind support <, <=, >, >=.
func (k Kind) Ordered() bool {
	switch k {
	case KindString, KindInt, KindUint, KindFloat, KindTime:
		return true
	}
	return false
}

// Search is the RediSearch field type used when the entity is indexed.
type Search string

const (
	SearchTag     Search = "TAG"
	SearchText    Search = "TEXT"
	SearchNumeric Search = "NUMERIC"
)

var timeType = reflect.TypeOf(time.Time{})

// Field describes one filterable struct field.
type Field struct {
	ID       int          // position in Entity.Fields
	Name     string       // declared Go name
	Column   string       // storage column
	Alias    string       // alternate name annotation, may be empty
	Kind     Kind         // semantic type, nullable unwrapped
	Type     reflect.Type // declared type
	Nullable bool         // declared as pointer
	Search   Search
	Sortable bool
	Key      bool
	index    []int
}

// Value returns the canonical value of the field on row. present is false
// when the field is a nil pointer or row is not usable.
func (f *Field) Value(row reflect.Value) (v any, present bool) {
	row = Indirect(row)
	if !row.IsValid() {
		return nil, false
	}
	fv := row.FieldByIndex(f.index)
	if f.Nullable {
		if fv.IsNil() {
			return nil, false
		}
		fv = fv.Elem()
	}
	return canonical(f.Kind, fv), true
}

// Get is Value for an untyped row.
func (f *Field) Get(row any) (any, bool) { return f.Value(reflect.ValueOf(row)) }

// Target returns the settable struct field on row (row must be addressable).
func (f *Field) Target(row reflect.Value) reflect.Value {
	return Indirect(row).FieldByIndex(f.index)
}

func (f *Field) String() string { return f.Name }

// Indirect follows pointers until it reaches a non-pointer value. A nil
// pointer yields the zero reflect.Value.
func Indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func canonical(k Kind, v reflect.Value) any {
	switch k {
	case KindString:
		return v.String()
	case KindInt:
		return v.Int()
	case KindUint:
		return v.Uint()
	case KindFloat:
		return v.Float()
	case KindBool:
		return v.Bool()
	case KindTime:
		return v.Interface().(time.Time).UTC()
	}
	return v.Interface()
}

func kindOf(t reflect.Type) Kind {
	if t == timeType {
		return KindTime
	}
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindUint
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.Bool:
		return KindBool
	}
	return KindInvalid
}

// Entity is the immutable field table of one struct type.
type Entity struct {
	typ      reflect.Type
	fields   []Field
	byColumn map[string]int
	byName   map[string]int
	byAlias  map[string]int
}

func (e *Entity) Type() reflect.Type { return e.typ }

// Fields returns the descriptors in declaration order. Callers must not
// modify the returned slice.
func (e *Entity) Fields() []Field { return e.fields }

// Field returns the descriptor with the given ID.
func (e *Entity) Field(id int) *Field { return &e.fields[id] }

// First returns the first declared field.
func (e *Entity) First() *Field { return &e.fields[0] }

// Key returns the field tagged PK, if any.
func (e *Entity) Key() (*Field, bool) {
	for i := range e.fields {
		if e.fields[i].Key {
			return &e.fields[i], true
		}
	}
	return nil, false
}

// Resolve looks a name up case-insensitively as a storage column, then as
// the declared field name, then as the alternate name annotation.
func (e *Entity) Resolve(name string) (*Field, bool) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
	if key == "" {
		return nil, false
	}
	for _, m := range [...]map[string]int{e.byColumn, e.byName, e.byAlias} {
		if id, ok := m[key]; ok {
			return &e.fields[id], true
		}
	}
	return nil, false
}

// Describe builds the field table of t. Most callers want Registry.Entity,
// which caches the result.
func Describe(t reflect.Type) (*Entity, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %s", ErrNotStruct, t)
	}

	e := &Entity{
		typ:      t,
		byColumn: make(map[string]int),
		byName:   make(map[string]int),
		byAlias:  make(map[string]int),
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		tag := sf.Tag.Get(TagName)
		if tag == "-" {
			continue
		}

		declared := sf.Type
		nullable := declared.Kind() == reflect.Pointer
		base := declared
		if nullable {
			base = declared.Elem()
		}
		kind := kindOf(base)
		if kind == KindInvalid {
			continue
		}

		f := Field{
			ID:       len(e.fields),
			Name:     sf.Name,
			Column:   SnakeCase(sf.Name),
			Kind:     kind,
			Type:     declared,
			Nullable: nullable,
			Search:   SearchNumeric,
			index:    sf.Index,
		}
		if kind == KindString {
			f.Search = SearchTag
		}
		applyTag(&f, tag)

		e.fields = append(e.fields, f)
		e.byColumn[strings.ToLower(f.Column)] = f.ID
		e.byName[strings.ToLower(f.Name)] = f.ID
		if f.Alias != "" {
			e.byAlias[strings.ToLower(f.Alias)] = f.ID
		}
	}
	if len(e.fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFields, t)
	}
	return e, nil
}

// applyTag reads `querykit:"@column,TAG,SORTABLE,PK,alias=Name"`.
func applyTag(f *Field, tag string) {
	if tag == "" {
		return
	}
	parts := strings.Split(tag, ",")
	if name := strings.TrimPrefix(strings.TrimSpace(parts[0]), "@"); name != "" {
		f.Column = name
	}
	for _, a := range parts[1:] {
		a = strings.TrimSpace(a)
		if v, ok := strings.CutPrefix(a, "alias="); ok {
			f.Alias = v
			continue
		}
		switch strings.ToUpper(a) {
		case "TAG":
			f.Search = SearchTag
		case "TEXT":
			f.Search = SearchText
		case "NUMERIC":
			f.Search = SearchNumeric
		case "SORTABLE":
			f.Sortable = true
		case "PK":
			f.Key = true
		}
	}
}

// SnakeCase converts a Go identifier to snake_case. An underscore starts
// each word: before an upper-case rune that follows a lower-case rune or a
// digit, and before the last rune of an initialism that is followed by
// lower case, so ID is "id", OrderID "order_id" and HTTPServer
// "http_server".
func SnakeCase(s string) string {
	rs := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
