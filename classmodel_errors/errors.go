// Provides common classmodel errors definitions.
package classmodel_errors

import "errors"

var (
	ErrNoMetadata     = errors.New("classmodel: no metadata registered for type")
	ErrDuplicateField = errors.New("classmodel: duplicate field name")
	ErrBadField       = errors.New("classmodel: bad field descriptor")
	ErrScalarConflict = errors.New("classmodel: type has both fields and a scalar converter")

	ErrUnsupportedValue = errors.New("classmodel: value kind cannot be serialized")
	ErrBadPlainValue    = errors.New("classmodel: plain value has an unexpected shape")

	ErrListenerLimit = errors.New("classmodel: listener count exceeds the leak threshold")
	ErrListenerPanic = errors.New("classmodel: listener callback panicked")

	ErrObjectUnknown = errors.New("classmodel: unknown object")
	ErrBadLogRecord  = errors.New("classmodel: bad changelog record")
	ErrClosed        = errors.New("classmodel: store is closed")
)
