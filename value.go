package classmodel

// reflect plumbing for container fields. Field values cross the engine
// boundary as any; accessors stay closure-bound, reflection is only
// used to index, build and write back slices and maps.

import "reflect"

var stringType = reflect.TypeOf("")

// asAnySlice flattens any slice value into []any for reconciliation.
func asAnySlice(v any) []any {
	if isNilOrAbsent(v) {
		return nil
	}
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		copy(out, s)
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// rebuildSlice writes reconciled entries back in the field's own slice
// type, keeping element identity. Falls back to []any when an entry is
// not assignable to the original element type.
func rebuildSlice(cur any, elem reflect.Type, vals []any) any {
	st := reflect.SliceOf(elem)
	if !isNilOrAbsent(cur) && reflect.TypeOf(cur).Kind() == reflect.Slice {
		st = reflect.TypeOf(cur)
	}
	out := reflect.MakeSlice(st, len(vals), len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(st.Elem()) {
			loose := make([]any, len(vals))
			copy(loose, vals)
			return loose
		}
		out.Index(i).Set(rv)
	}
	return out.Interface()
}
