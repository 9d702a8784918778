package dtype

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// DataType represents the closed set of column types supported by the engine.
// It is a subset of the Arrow type system.
type DataType int

const (
	Boolean DataType = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Utf8
	Binary
)

// DataTypes lists every supported type in declaration order.
var DataTypes = []DataType{
	Boolean, Int8, Int16, Int32, Int64,
	UInt8, UInt16, UInt32, UInt64,
	Float32, Float64, Utf8, Binary,
}

// String returns the canonical name of the type
func (dt DataType) String() string {
	switch dt {
	case Boolean:
		return "Boolean"
	case Int8:
		return "Int8"
	case Int16:
		return "Int16"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case UInt8:
		return "UInt8"
	case UInt16:
		return "UInt16"
	case UInt32:
		return "UInt32"
	case UInt64:
		return "UInt64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case Utf8:
		return "Utf8"
	case Binary:
		return "Binary"
	default:
		return fmt.Sprintf("DataType(%d)", int(dt))
	}
}

// Valid reports whether dt is one of the declared types.
func (dt DataType) Valid() bool {
	return dt >= Boolean && dt <= Binary
}

// ParseDataType converts a type name into a DataType. Canonical names are
// accepted case-insensitively, together with the SQL-ish aliases used in
// table configuration files.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "boolean", "bool":
		return Boolean, nil
	case "int8", "tinyint":
		return Int8, nil
	case "int16", "smallint":
		return Int16, nil
	case "int32", "int", "integer":
		return Int32, nil
	case "int64", "bigint", "long":
		return Int64, nil
	case "uint8":
		return UInt8, nil
	case "uint16":
		return UInt16, nil
	case "uint32":
		return UInt32, nil
	case "uint64":
		return UInt64, nil
	case "float32", "float", "real":
		return Float32, nil
	case "float64", "double":
		return Float64, nil
	case "utf8", "string", "text", "varchar":
		return Utf8, nil
	case "binary", "bytes", "blob":
		return Binary, nil
	default:
		return 0, UnsupportedType("unsupported type name: %q", name)
	}
}

// ArrowType returns the Arrow type tag for dt. Every DataType maps to exactly
// one Arrow type, so an invalid value here is a programming error.
func (dt DataType) ArrowType() arrow.DataType {
	switch dt {
	case Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Int16:
		return arrow.PrimitiveTypes.Int16
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case UInt8:
		return arrow.PrimitiveTypes.Uint8
	case UInt16:
		return arrow.PrimitiveTypes.Uint16
	case UInt32:
		return arrow.PrimitiveTypes.Uint32
	case UInt64:
		return arrow.PrimitiveTypes.Uint64
	case Float32:
		return arrow.PrimitiveTypes.Float32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Utf8:
		return arrow.BinaryTypes.String
	case Binary:
		return arrow.BinaryTypes.Binary
	default:
		panic(fmt.Sprintf("dtype: no arrow mapping for %s", dt))
	}
}

// FromArrowType maps an Arrow type tag onto a DataType. Types outside the
// supported subset yield an ErrUnsupportedType error.
func FromArrowType(at arrow.DataType) (DataType, error) {
	if at == nil {
		return 0, UnsupportedType("unsupported arrow type: <nil>")
	}
	switch at.ID() {
	case arrow.BOOL:
		return Boolean, nil
	case arrow.INT8:
		return Int8, nil
	case arrow.INT16:
		return Int16, nil
	case arrow.INT32:
		return Int32, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.UINT8:
		return UInt8, nil
	case arrow.UINT16:
		return UInt16, nil
	case arrow.UINT32:
		return UInt32, nil
	case arrow.UINT64:
		return UInt64, nil
	case arrow.FLOAT32:
		return Float32, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.STRING:
		return Utf8, nil
	case arrow.BINARY:
		return Binary, nil
	default:
		return 0, UnsupportedType("unsupported arrow type: %s", at)
	}
}
