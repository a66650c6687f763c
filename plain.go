package classmodel

// Plain-data values are what encoding/json produces: nil, bool, float64
// (or any Go number written by a getter), string, []any, map[string]any.

import "reflect"

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent marks a never-set value. A getter returning Absent makes the
// serializer omit the key entirely; an explicit nil is emitted as null.
var Absent any = absent{}

func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

func isNilOrAbsent(v any) bool {
	if v == nil || IsAbsent(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// AsInt64 narrows any plain number to int64, for use in setters.
func AsInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// AsFloat64 widens any plain number to float64, for use in setters.
func AsFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return float64(AsInt64(v))
	}
}

func AsString(v any) string {
	s, _ := v.(string)
	return s
}

func AsBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asNumber(v any) (f float64, ok bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return AsFloat64(v), true
	}
	return 0, false
}
