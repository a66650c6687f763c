package classmodel

// A model type has a number of fields. Each field maps an external
// (serialized) name to a pair of bound accessors. Fields are kept in
// registration order; that order is the serialization order. A type
// may instead register a scalar converter, never both.

import (
	"reflect"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Facepunch/react-class-model/classmodel_errors"
)

type Getter func(obj any) any
type Setter func(obj any, value any)

// Field describes one serialized field of a model type.
type Field struct {
	// Name is the external key, which may differ from the attribute name.
	Name string
	// Nested is the pointer type of the nested model, nil for leaf fields.
	Nested reflect.Type
	// StringMap marks the field as a string-keyed map of Nested.
	StringMap bool
	// Transient fields are skipped on serialization, still merged on input.
	Transient bool
	// CopyOnly fields are assigned verbatim and always report changed.
	CopyOnly bool

	Get Getter
	Set Setter
}

// Fields
type Fields []*Field

func (f *Field) Valid() bool {
	for _, l := range f.Name { // has unsafe chars
		if l < ' ' {
			return false
		}
	}
	return len(f.Name) > 0 && utf8.ValidString(f.Name) && f.Get != nil && f.Set != nil
}

func (fs Fields) FindName(name string) int {
	for i := 0; i < len(fs); i++ {
		if fs[i].Name == name {
			return i
		}
	}
	return -1
}

// ScalarConverter overrides structural (de)serialization for
// primitive-like types such as timestamps or value objects.
type ScalarConverter struct {
	ToPlain   func(value any) (any, error)
	FromPlain func(plain any) (any, error)
	// FromPlainInto is optional; it updates an existing value in place
	// and reports whether anything changed. When nil, FromPlain plus an
	// equality check is used instead.
	FromPlainInto func(value any, plain any) (updated any, changed bool, err error)
}

// TypeDescriptor holds the registered metadata of one model type.
// Write-once at startup, read-only afterwards.
type TypeDescriptor struct {
	rtype     reflect.Type
	construct func() any

	fields Fields
	byName map[string]*Field
	keys   []string

	scalar *ScalarConverter
}

func (td *TypeDescriptor) Type() reflect.Type { return td.rtype }

func (td *TypeDescriptor) Fields() Fields { return td.fields }

func (td *TypeDescriptor) IdentityKeys() []string { return td.keys }

func (td *TypeDescriptor) Converter() *ScalarConverter { return td.scalar }

// New constructs a zero instance of the described type.
func (td *TypeDescriptor) New() any { return td.construct() }

func (td *TypeDescriptor) Find(name string) *Field { return td.byName[name] }

// Register adds a field. Registering the same external name twice, or a
// field on a scalar-converted type, is a caller bug and fails hard.
func (td *TypeDescriptor) Register(f Field) error {
	if !f.Valid() {
		return errors.Wrapf(classmodel_errors.ErrBadField, "%q on %s", f.Name, td.rtype)
	}
	if td.scalar != nil {
		return errors.Wrapf(classmodel_errors.ErrScalarConflict, "%s", td.rtype)
	}
	if _, seen := td.byName[f.Name]; seen {
		return errors.Wrapf(classmodel_errors.ErrDuplicateField, "%q on %s", f.Name, td.rtype)
	}
	reg := f
	td.fields = append(td.fields, &reg)
	td.byName[reg.Name] = &reg
	return nil
}

// With is the panicking form of Register, for init-time builder chains.
func (td *TypeDescriptor) With(f Field) *TypeDescriptor {
	if err := td.Register(f); err != nil {
		panic(err)
	}
	return td
}

// IdentityKey appends a field name to the identity key used by keyed
// list reconciliation. Call it once per component of a composite key,
// after the field itself is registered; a name that resolves to no
// field would silently break every keyed match, so it fails hard.
func (td *TypeDescriptor) IdentityKey(name string) *TypeDescriptor {
	if _, ok := td.byName[name]; !ok {
		panic(errors.Wrapf(classmodel_errors.ErrBadField,
			"identity key %q is not a field of %s", name, td.rtype))
	}
	td.keys = append(td.keys, name)
	return td
}

// Scalar installs a converter; the type then has no structural fields.
func (td *TypeDescriptor) Scalar(conv ScalarConverter) error {
	if len(td.fields) > 0 {
		return errors.Wrapf(classmodel_errors.ErrScalarConflict, "%s", td.rtype)
	}
	if conv.ToPlain == nil || conv.FromPlain == nil {
		return errors.Wrapf(classmodel_errors.ErrBadField, "scalar converter on %s misses a direction", td.rtype)
	}
	td.scalar = &conv
	return nil
}

func (td *TypeDescriptor) WithScalar(conv ScalarConverter) *TypeDescriptor {
	if err := td.Scalar(conv); err != nil {
		panic(err)
	}
	return td
}
