package dtype

import "github.com/cockroachdb/errors"

// Error kinds shared by the data model and every data source. Concrete errors
// are marked with one of these so callers can branch with errors.Is while the
// message keeps the detail.
var (
	// ErrIO marks open and read failures of the underlying storage.
	ErrIO = errors.New("io failure")
	// ErrUnsupportedType marks an external type with no DataType mapping.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrFieldNotFound marks a name that does not resolve against a schema.
	ErrFieldNotFound = errors.New("field not found")
	// ErrDecode marks malformed data reported by a decoder mid-stream.
	ErrDecode = errors.New("decode failure")
)

// FieldNotFound returns an ErrFieldNotFound error naming the missing field.
func FieldNotFound(name string) error {
	return errors.Mark(errors.Newf("field not found: %s", name), ErrFieldNotFound)
}

// UnsupportedType returns an ErrUnsupportedType error describing what could not be mapped.
func UnsupportedType(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrUnsupportedType)
}

// IOFailure marks err as ErrIO and prefixes it with msg.
func IOFailure(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrIO)
}

// DecodeFailure marks err as ErrDecode and prefixes it with msg.
func DecodeFailure(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrDecode)
}
