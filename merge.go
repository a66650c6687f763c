package classmodel

import (
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"

	"github.com/Facepunch/react-class-model/classmodel_errors"
)

// Engine merges plain-data trees into model instances. The zero value
// works; attach a Hub to have changed instances notify their listeners.
type Engine struct {
	Hub *Hub
}

var defaultEngine = &Engine{}

// DefaultEngine is what the package-level conversion functions use.
// Attach a Hub to it before steady-state use, not after.
func DefaultEngine() *Engine { return defaultEngine }

// MergePlain merges an incoming plain-data object into obj and reports
// whether any field actually changed. Absent keys leave fields
// untouched; explicit nulls clear them. There is no rollback: fields
// merged before an error stay merged.
func MergePlain(obj any, incoming map[string]any) (bool, error) {
	return defaultEngine.MergePlain(obj, incoming)
}

func (e *Engine) MergePlain(obj any, incoming map[string]any) (bool, error) {
	td, err := requireFor(obj)
	if err != nil {
		return false, err
	}
	changed, err := e.mergeInstance(td, obj, incoming)
	label := "false"
	if changed {
		label = "true"
	}
	MergeCount.WithLabelValues(td.rtype.String(), label).Inc()
	return changed, err
}

// mergeInstance applies incoming to one instance and fires a single
// coalesced notification naming the changed fields.
func (e *Engine) mergeInstance(td *TypeDescriptor, obj any, incoming map[string]any) (bool, error) {
	var changed []string
	var ferr error
	for _, f := range td.fields {
		v, ok := incoming[f.Name]
		if !ok {
			continue // absent key, leave the field untouched
		}
		ch, err := e.mergeField(f, obj, v)
		if ch {
			changed = append(changed, f.Name)
		}
		if err != nil {
			ferr = err
			break
		}
	}
	if len(changed) > 0 && e.Hub != nil {
		e.Hub.objectChanged(obj, changed...)
	}
	return len(changed) > 0, ferr
}

func (e *Engine) mergeField(f *Field, obj any, v any) (bool, error) {
	if f.CopyOnly {
		// verbatim assignment, conservatively reported as changed
		f.Set(obj, v)
		return true, nil
	}
	if f.Nested == nil {
		cur := f.Get(obj)
		if Equal(cur, v) {
			return false, nil
		}
		f.Set(obj, v)
		return true, nil
	}

	ntd, err := Require(f.Nested)
	if err != nil {
		return false, err
	}
	switch src := v.(type) {
	case nil:
		cur := f.Get(obj)
		if Equal(cur, nil) {
			return false, nil
		}
		f.Set(obj, nil)
		return true, nil
	case map[string]any:
		if f.StringMap {
			return e.mergeStringMap(ntd, f, obj, src)
		}
		return e.mergeNested(ntd, f, obj, src)
	case []any:
		if f.StringMap {
			return false, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
				"map field %q got a list", f.Name)
		}
		if len(ntd.keys) > 0 {
			return e.reconcileKeyed(ntd, f, obj, src)
		}
		return e.mergeList(ntd, f, obj, src)
	default:
		// scalar input for a nested type only makes sense with a converter
		return e.mergeNested(ntd, f, obj, v)
	}
}

func (e *Engine) mergeNested(ntd *TypeDescriptor, f *Field, obj any, src any) (bool, error) {
	cur := f.Get(obj)
	if conv := ntd.scalar; conv != nil {
		if !isNilOrAbsent(cur) && conv.FromPlainInto != nil {
			upd, ch, err := conv.FromPlainInto(cur, src)
			if err != nil {
				return false, err
			}
			if ch {
				f.Set(obj, upd)
			}
			return ch, nil
		}
		nv, err := conv.FromPlain(src)
		if err != nil {
			return false, err
		}
		if Equal(cur, nv) {
			return false, nil
		}
		f.Set(obj, nv)
		return true, nil
	}

	m, ok := src.(map[string]any)
	if !ok {
		return false, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
			"field %q expects an object", f.Name)
	}
	if isNilOrAbsent(cur) {
		inst := ntd.New()
		if _, err := e.mergeInstance(ntd, inst, m); err != nil {
			return false, err
		}
		f.Set(obj, inst)
		return true, nil
	}
	return e.mergeInstance(ntd, cur, m)
}

// mergeList merges an unkeyed list index by index; the result always
// has the incoming length. A null entry clears its slot.
func (e *Engine) mergeList(ntd *TypeDescriptor, f *Field, obj any, src []any) (bool, error) {
	cur := f.Get(obj)
	dest := asAnySlice(cur)
	changed := len(dest) != len(src)
	out := make([]any, len(src))
	for i, sv := range src {
		if sv == nil {
			if i < len(dest) && !isNilOrAbsent(dest[i]) {
				changed = true
			}
			continue
		}
		if i < len(dest) && !isNilOrAbsent(dest[i]) {
			inst := dest[i]
			ch, err := e.mergeEntry(ntd, &inst, sv)
			if err != nil {
				return true, err
			}
			out[i] = inst
			changed = changed || ch
		} else {
			inst, err := e.newEntry(ntd, sv)
			if err != nil {
				return true, err
			}
			out[i] = inst
			changed = true
		}
	}
	if changed {
		f.Set(obj, rebuildSlice(cur, ntd.rtype, out))
	}
	return changed, nil
}

// mergeStringMap merges incoming keys into a string-keyed map field.
// Existing keys with no incoming counterpart are left alone; maps are
// never pruned by absence. A null value clears its key in place.
func (e *Engine) mergeStringMap(ntd *TypeDescriptor, f *Field, obj any, src map[string]any) (bool, error) {
	cur := f.Get(obj)
	changed := false
	created := false
	var mv reflect.Value
	if isNilOrAbsent(cur) {
		if len(src) == 0 {
			return false, nil
		}
		mv = reflect.MakeMap(reflect.MapOf(stringType, ntd.rtype))
		created = true
	} else {
		mv = reflect.ValueOf(cur)
		if mv.Kind() != reflect.Map {
			return false, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
				"map field %q holds a %s", f.Name, mv.Kind())
		}
	}
	for key, sv := range src {
		kv := reflect.ValueOf(key)
		ev := mv.MapIndex(kv)
		if sv == nil {
			if ev.IsValid() && !isNilOrAbsent(ev.Interface()) {
				mv.SetMapIndex(kv, reflect.Zero(mv.Type().Elem()))
				changed = true
			}
			continue
		}
		if ev.IsValid() && !isNilOrAbsent(ev.Interface()) {
			inst := ev.Interface()
			ch, err := e.mergeEntry(ntd, &inst, sv)
			if err != nil {
				return true, err
			}
			if ch {
				changed = true
				mv.SetMapIndex(kv, reflect.ValueOf(inst))
			}
		} else {
			inst, err := e.newEntry(ntd, sv)
			if err != nil {
				return true, err
			}
			mv.SetMapIndex(kv, reflect.ValueOf(inst))
			changed = true
		}
	}
	if created {
		if !changed {
			// nothing survived (all entries were null clears), keep nil
			return false, nil
		}
		f.Set(obj, mv.Interface())
	}
	return changed, nil
}

// mergeEntry merges one incoming list/map entry into an existing
// element, which may be replaced when its type converts by value.
func (e *Engine) mergeEntry(ntd *TypeDescriptor, inst *any, sv any) (bool, error) {
	if conv := ntd.scalar; conv != nil {
		if conv.FromPlainInto != nil && !isNilOrAbsent(*inst) {
			upd, ch, err := conv.FromPlainInto(*inst, sv)
			if ch {
				*inst = upd
			}
			return ch, err
		}
		nv, err := conv.FromPlain(sv)
		if err != nil {
			return false, err
		}
		if Equal(*inst, nv) {
			return false, nil
		}
		*inst = nv
		return true, nil
	}
	switch m := sv.(type) {
	case map[string]any:
		return e.mergeInstance(ntd, *inst, m)
	default:
		if _, ok := lookupFor(sv); ok {
			plain, err := ToPlain(sv)
			if err != nil {
				return false, err
			}
			if pm, ok := plain.(map[string]any); ok {
				return e.mergeInstance(ntd, *inst, pm)
			}
			return false, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
				"entry of %s is not an object", ntd.rtype)
		}
		// bare scalar entry carries just the identity key value
		if len(ntd.keys) == 1 {
			if kf := ntd.Find(ntd.keys[0]); kf != nil {
				if Equal(kf.Get(*inst), sv) {
					return false, nil
				}
				kf.Set(*inst, sv)
				return true, nil
			}
		}
		return false, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
			"entry of %s is not an object", ntd.rtype)
	}
}

// newEntry constructs a list/map element from one incoming entry.
func (e *Engine) newEntry(ntd *TypeDescriptor, sv any) (any, error) {
	if conv := ntd.scalar; conv != nil {
		return conv.FromPlain(sv)
	}
	inst := ntd.New()
	if _, err := e.mergeEntry(ntd, &inst, sv); err != nil {
		return nil, err
	}
	return inst, nil
}

// DeserializeNew parses JSON text into a fresh instance of rt.
func DeserializeNew(rt reflect.Type, data []byte) (any, error) {
	return defaultEngine.DeserializeNew(rt, data)
}

func (e *Engine) DeserializeNew(rt reflect.Type, data []byte) (any, error) {
	td, err := Require(rt)
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	if conv := td.scalar; conv != nil {
		return conv.FromPlain(parsed)
	}
	m, ok := parsed.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
			"%s expects a JSON object", rt)
	}
	inst := td.New()
	if _, err := e.mergeInstance(td, inst, m); err != nil {
		return nil, err
	}
	return inst, nil
}

// FromJSON is the generic convenience form of DeserializeNew.
func FromJSON[T any](data []byte) (*T, error) {
	inst, err := defaultEngine.DeserializeNew(reflect.TypeOf((*T)(nil)), data)
	if err != nil {
		return nil, err
	}
	return inst.(*T), nil
}

// DeserializeInto parses JSON text and merges it into an existing
// instance, reporting whether anything changed.
func DeserializeInto(obj any, data []byte) (bool, error) {
	return defaultEngine.DeserializeInto(obj, data)
}

func (e *Engine) DeserializeInto(obj any, data []byte) (bool, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return false, err
	}
	m, ok := parsed.(map[string]any)
	if !ok {
		return false, errors.Wrapf(classmodel_errors.ErrBadPlainValue,
			"%T expects a JSON object", obj)
	}
	return e.MergePlain(obj, m)
}
