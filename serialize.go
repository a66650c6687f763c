package classmodel

import (
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"

	"github.com/Facepunch/react-class-model/classmodel_errors"
)

// ToPlain converts a model instance (or any plain value) to a fresh
// plain-data tree. Output never aliases engine-internal state.
func ToPlain(value any) (any, error) {
	if isNilOrAbsent(value) {
		if IsAbsent(value) {
			return Absent, nil
		}
		return nil, nil
	}
	if isScalar(value) {
		return value, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, errors.Wrapf(classmodel_errors.ErrUnsupportedValue, "%s", rv.Kind())
	case reflect.Slice, reflect.Array:
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			p, err := ToPlain(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := iter.Key().Interface().(string)
			if !ok {
				return nil, errors.Wrapf(classmodel_errors.ErrUnsupportedValue,
					"map keyed by %s", iter.Key().Type())
			}
			p, err := ToPlain(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[key] = p
		}
		return out, nil
	}

	td, err := requireFor(value)
	if err != nil {
		return nil, err
	}
	if conv := td.Converter(); conv != nil {
		return conv.ToPlain(value)
	}

	out := make(map[string]any, len(td.Fields()))
	for _, f := range td.Fields() {
		if f.Transient {
			continue
		}
		v := f.Get(value)
		if IsAbsent(v) {
			continue // never-set keys are not emitted
		}
		p, err := ToPlain(v)
		if err != nil {
			return nil, err
		}
		out[f.Name] = p
	}
	return out, nil
}

// Serialize renders an instance as JSON text.
func Serialize(value any) ([]byte, error) {
	plain, err := ToPlain(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(plain)
}
