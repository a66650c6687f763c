package classmodel

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/Facepunch/react-class-model/classmodel_errors"
)

// The registry maps the pointer type of a model (*T) to its descriptor.
// It is written during type registration at startup and read-only in
// steady state; no removal operation exists.
var registry = xsync.NewMapOf[reflect.Type, *TypeDescriptor]()

// Describe returns the descriptor for *T, creating it on first use.
// Meant to be called once per type at startup:
//
//	classmodel.Describe[Player]().
//		With(classmodel.Field{Name: "id", ...}).
//		IdentityKey("id")
func Describe[T any]() *TypeDescriptor {
	rt := reflect.TypeOf((*T)(nil))
	td, _ := registry.LoadOrCompute(rt, func() *TypeDescriptor {
		return &TypeDescriptor{
			rtype:     rt,
			construct: func() any { return new(T) },
			byName:    make(map[string]*Field),
		}
	})
	return td
}

// DescribeType is the non-generic form for callers that only hold a
// reflect.Type. rt must be a pointer type.
func DescribeType(rt reflect.Type, construct func() any) *TypeDescriptor {
	td, _ := registry.LoadOrCompute(rt, func() *TypeDescriptor {
		return &TypeDescriptor{
			rtype:     rt,
			construct: construct,
			byName:    make(map[string]*Field),
		}
	})
	return td
}

func Lookup(rt reflect.Type) (*TypeDescriptor, bool) {
	return registry.Load(rt)
}

// Require fails with ErrNoMetadata naming the type; (de)serializing an
// unregistered type is the primary contract violation of the engine.
func Require(rt reflect.Type) (*TypeDescriptor, error) {
	if rt == nil {
		return nil, errors.Wrap(classmodel_errors.ErrNoMetadata, "nil type")
	}
	td, ok := registry.Load(rt)
	if !ok {
		return nil, errors.Wrapf(classmodel_errors.ErrNoMetadata, "%s", rt)
	}
	return td, nil
}

func lookupFor(obj any) (*TypeDescriptor, bool) {
	td, err := requireFor(obj)
	return td, err == nil
}

// requireFor resolves the descriptor of an instance. Types register
// under their pointer type, so a bare struct value is also looked up
// through its pointer type. An untyped nil has no type to look up.
func requireFor(obj any) (*TypeDescriptor, error) {
	if obj == nil {
		return nil, errors.Wrap(classmodel_errors.ErrNoMetadata, "nil value")
	}
	rt := reflect.TypeOf(obj)
	if td, ok := registry.Load(rt); ok {
		return td, nil
	}
	if rt.Kind() != reflect.Pointer {
		if td, ok := registry.Load(reflect.PointerTo(rt)); ok {
			return td, nil
		}
	}
	return nil, errors.Wrapf(classmodel_errors.ErrNoMetadata, "%s", rt)
}
