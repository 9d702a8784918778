package dtype

import (
	"encoding/hex"
	"fmt"
)

// Scalar is a single nullable value of one of the supported types. It behaves
// as a tagged union: the type tag is always set, the payload is absent when
// the value is null.
//
// The zero Scalar is a null Boolean.
type Scalar struct {
	dtype DataType
	valid bool
	// bool, int8..int64, uint8..uint64, float32, float64, or string.
	// Binary payloads are held as string so Scalars stay immutable and comparable.
	v interface{}
}

func BooleanScalar(v bool) Scalar    { return Scalar{dtype: Boolean, valid: true, v: v} }
func Int8Scalar(v int8) Scalar       { return Scalar{dtype: Int8, valid: true, v: v} }
func Int16Scalar(v int16) Scalar     { return Scalar{dtype: Int16, valid: true, v: v} }
func Int32Scalar(v int32) Scalar     { return Scalar{dtype: Int32, valid: true, v: v} }
func Int64Scalar(v int64) Scalar     { return Scalar{dtype: Int64, valid: true, v: v} }
func UInt8Scalar(v uint8) Scalar     { return Scalar{dtype: UInt8, valid: true, v: v} }
func UInt16Scalar(v uint16) Scalar   { return Scalar{dtype: UInt16, valid: true, v: v} }
func UInt32Scalar(v uint32) Scalar   { return Scalar{dtype: UInt32, valid: true, v: v} }
func UInt64Scalar(v uint64) Scalar   { return Scalar{dtype: UInt64, valid: true, v: v} }
func Float32Scalar(v float32) Scalar { return Scalar{dtype: Float32, valid: true, v: v} }
func Float64Scalar(v float64) Scalar { return Scalar{dtype: Float64, valid: true, v: v} }
func Utf8Scalar(v string) Scalar     { return Scalar{dtype: Utf8, valid: true, v: v} }

// BinaryScalar copies v into a new Binary scalar.
func BinaryScalar(v []byte) Scalar {
	return Scalar{dtype: Binary, valid: true, v: string(v)}
}

// NullScalar returns the null value of the given type.
func NullScalar(dt DataType) Scalar {
	return Scalar{dtype: dt}
}

// DataType returns the type tag of the scalar.
func (s Scalar) DataType() DataType { return s.dtype }

// IsNull reports whether the scalar carries no value.
func (s Scalar) IsNull() bool { return !s.valid }

// Value returns the payload as a Go value, or nil for a null scalar. Binary
// scalars return a fresh []byte.
func (s Scalar) Value() interface{} {
	if !s.valid {
		return nil
	}
	if s.dtype == Binary {
		return []byte(s.v.(string))
	}
	return s.v
}

// Equal reports structural equality: same type tag and same optional payload.
func (s Scalar) Equal(o Scalar) bool {
	if s.dtype != o.dtype || s.valid != o.valid {
		return false
	}
	return !s.valid || s.v == o.v
}

// Bool returns the payload of a non-null Boolean scalar.
func (s Scalar) Bool() (bool, bool) {
	if !s.valid || s.dtype != Boolean {
		return false, false
	}
	return s.v.(bool), true
}

// Int returns the payload of a non-null signed integer scalar, widened to int64.
func (s Scalar) Int() (int64, bool) {
	if !s.valid {
		return 0, false
	}
	switch v := s.v.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// Uint returns the payload of a non-null unsigned integer scalar, widened to uint64.
func (s Scalar) Uint() (uint64, bool) {
	if !s.valid {
		return 0, false
	}
	switch v := s.v.(type) {
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	}
	return 0, false
}

// Float returns the payload of a non-null floating point scalar as float64.
func (s Scalar) Float() (float64, bool) {
	if !s.valid {
		return 0, false
	}
	switch v := s.v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Str returns the payload of a non-null Utf8 scalar.
func (s Scalar) Str() (string, bool) {
	if !s.valid || s.dtype != Utf8 {
		return "", false
	}
	return s.v.(string), true
}

// Bytes returns a copy of the payload of a non-null Binary scalar.
func (s Scalar) Bytes() ([]byte, bool) {
	if !s.valid || s.dtype != Binary {
		return nil, false
	}
	return []byte(s.v.(string)), true
}

func (s Scalar) String() string {
	if !s.valid {
		return "NULL"
	}
	if s.dtype == Binary {
		return "0x" + hex.EncodeToString([]byte(s.v.(string)))
	}
	return fmt.Sprintf("%v", s.v)
}
