package classmodel

import (
	"reflect"
	"time"
)

// Equaler lets value-object types define their own equivalence, which
// the merge engine prefers over structural comparison.
type Equaler interface {
	Equal(other any) bool
}

// Equal implements the engine's equality rule: numbers compare by value
// across widths, a time.Time equals a raw count of epoch seconds,
// value objects compare through Equaler, registered model types compare
// field by field, and everything else compares structurally.
func Equal(a, b any) bool {
	if IsAbsent(a) || IsAbsent(b) {
		return IsAbsent(a) && IsAbsent(b)
	}
	if isNilOrAbsent(a) || isNilOrAbsent(b) {
		return isNilOrAbsent(a) && isNilOrAbsent(b)
	}

	if na, aok := asNumber(a); aok {
		if nb, bok := asNumber(b); bok {
			return na == nb
		}
		if tb, ok := timeValue(b); ok {
			return float64(tb.Unix()) == na
		}
		return false
	}
	if ta, ok := timeValue(a); ok {
		if nb, bok := asNumber(b); bok {
			return float64(ta.Unix()) == nb
		}
		if tb, bok := timeValue(b); bok {
			return ta.Equal(tb)
		}
	}

	if ea, ok := a.(Equaler); ok {
		return ea.Equal(b)
	}
	if eb, ok := b.(Equaler); ok {
		return eb.Equal(a)
	}

	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	}

	// registered model instances compare by their serialized fields
	if td, ok := lookupFor(a); ok && reflect.TypeOf(a) == reflect.TypeOf(b) {
		return modelEqual(td, a, b)
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice && rb.Kind() == reflect.Slice {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !Equal(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	if ra.Kind() == reflect.Map && rb.Kind() == reflect.Map {
		if ra.Len() != rb.Len() {
			return false
		}
		for _, k := range ra.MapKeys() {
			bv := rb.MapIndex(k)
			if !bv.IsValid() || !Equal(ra.MapIndex(k).Interface(), bv.Interface()) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

func modelEqual(td *TypeDescriptor, a, b any) bool {
	if conv := td.Converter(); conv != nil {
		pa, ea := conv.ToPlain(a)
		pb, eb := conv.ToPlain(b)
		return ea == nil && eb == nil && Equal(pa, pb)
	}
	for _, f := range td.Fields() {
		if !Equal(f.Get(a), f.Get(b)) {
			return false
		}
	}
	return true
}

func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}
