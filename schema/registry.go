package schema

import (
	"reflect"
	"sync"
)

// Registry caches entity descriptions per struct type. Construct one per
// application and pass it to whatever needs field metadata; the zero value
// is ready to use.
type Registry struct {
	entities sync.Map // reflect.Type → *Entity
}

func NewRegistry() *Registry { return &Registry{} }

// Entity returns the cached description of t, describing it on first use.
// Concurrent first calls may both describe t; only one result is kept and
// every caller receives that one.
func (r *Registry) Entity(t reflect.Type) (*Entity, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if e, ok := r.entities.Load(t); ok {
		return e.(*Entity), nil
	}
	e, err := Describe(t)
	if err != nil {
		return nil, err
	}
	actual, _ := r.entities.LoadOrStore(t, e)
	return actual.(*Entity), nil
}

// Of returns the entity description of T (or of the struct T points to).
func Of[T any](r *Registry) (*Entity, error) {
	return r.Entity(reflect.TypeOf((*T)(nil)).Elem())
}
