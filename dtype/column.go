package dtype

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column is a sequence of values of a single type. It is either a
// materialized Arrow array or a literal: one Scalar logically repeated n times
// and stored once.
//
// Array columns hold a shared, reference counted handle. Copying a Column
// copies the handle, never the data.
type Column struct {
	arr   arrow.Array
	dtype DataType

	// literal
	value Scalar
	n     int
}

// NewArrayColumn wraps an Arrow array. The array type is validated here so
// that DataType can never fail later. The column takes its own reference to
// arr; callers keep theirs.
func NewArrayColumn(arr arrow.Array) (Column, error) {
	dt, err := FromArrowType(arr.DataType())
	if err != nil {
		return Column{}, err
	}
	arr.Retain()
	return Column{arr: arr, dtype: dt}, nil
}

// NewLiteralColumn returns a column of n copies of value.
func NewLiteralColumn(value Scalar, n int) Column {
	if n < 0 {
		panic(fmt.Sprintf("dtype: negative literal column length %d", n))
	}
	return Column{dtype: value.DataType(), value: value, n: n}
}

// IsLiteral reports whether the column is a broadcast scalar.
func (c Column) IsLiteral() bool { return c.arr == nil }

// Array returns the underlying Arrow array, or nil for a literal column.
func (c Column) Array() arrow.Array { return c.arr }

// Literal returns the broadcast value of a literal column.
func (c Column) Literal() (Scalar, bool) {
	if c.arr != nil {
		return Scalar{}, false
	}
	return c.value, true
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	if c.arr != nil {
		return c.arr.Len()
	}
	return c.n
}

// IsEmpty reports whether the column has no rows.
func (c Column) IsEmpty() bool { return c.Len() == 0 }

// DataType returns the column type.
func (c Column) DataType() DataType { return c.dtype }

// Get returns the value at row i. A null slot yields the null Scalar of the
// column type. Get panics when i is out of range: that is a caller bug, not
// bad data.
func (c Column) Get(i int) Scalar {
	if i < 0 || i >= c.Len() {
		panic(fmt.Sprintf("dtype: column index %d out of range [0, %d)", i, c.Len()))
	}
	if c.arr == nil {
		return c.value
	}
	if c.arr.IsNull(i) {
		return NullScalar(c.dtype)
	}

	switch a := c.arr.(type) {
	case *array.Boolean:
		return BooleanScalar(a.Value(i))
	case *array.Int8:
		return Int8Scalar(a.Value(i))
	case *array.Int16:
		return Int16Scalar(a.Value(i))
	case *array.Int32:
		return Int32Scalar(a.Value(i))
	case *array.Int64:
		return Int64Scalar(a.Value(i))
	case *array.Uint8:
		return UInt8Scalar(a.Value(i))
	case *array.Uint16:
		return UInt16Scalar(a.Value(i))
	case *array.Uint32:
		return UInt32Scalar(a.Value(i))
	case *array.Uint64:
		return UInt64Scalar(a.Value(i))
	case *array.Float32:
		return Float32Scalar(a.Value(i))
	case *array.Float64:
		return Float64Scalar(a.Value(i))
	case *array.String:
		return Utf8Scalar(a.Value(i))
	case *array.Binary:
		return BinaryScalar(a.Value(i))
	default:
		panic(fmt.Sprintf("dtype: unexpected array implementation %T for %s", c.arr, c.dtype))
	}
}

// Retain adds a reference to the underlying array, if any.
func (c Column) Retain() {
	if c.arr != nil {
		c.arr.Retain()
	}
}

// Release drops a reference to the underlying array, if any.
func (c Column) Release() {
	if c.arr != nil {
		c.arr.Release()
	}
}

// ToArrow returns the column as an Arrow array owned by the caller. Array
// columns return their own handle with an extra reference; literal columns are
// materialized with mem.
func (c Column) ToArrow(mem memory.Allocator) arrow.Array {
	if c.arr != nil {
		c.arr.Retain()
		return c.arr
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	bldr := array.NewBuilder(mem, c.dtype.ArrowType())
	defer bldr.Release()

	if c.value.IsNull() {
		bldr.AppendNulls(c.n)
		return bldr.NewArray()
	}

	bldr.Reserve(c.n)
	for i := 0; i < c.n; i++ {
		appendScalar(bldr, c.value)
	}
	return bldr.NewArray()
}

// appendScalar appends a non-null scalar to a builder of the matching type.
func appendScalar(bldr array.Builder, s Scalar) {
	switch b := bldr.(type) {
	case *array.BooleanBuilder:
		b.Append(s.v.(bool))
	case *array.Int8Builder:
		b.Append(s.v.(int8))
	case *array.Int16Builder:
		b.Append(s.v.(int16))
	case *array.Int32Builder:
		b.Append(s.v.(int32))
	case *array.Int64Builder:
		b.Append(s.v.(int64))
	case *array.Uint8Builder:
		b.Append(s.v.(uint8))
	case *array.Uint16Builder:
		b.Append(s.v.(uint16))
	case *array.Uint32Builder:
		b.Append(s.v.(uint32))
	case *array.Uint64Builder:
		b.Append(s.v.(uint64))
	case *array.Float32Builder:
		b.Append(s.v.(float32))
	case *array.Float64Builder:
		b.Append(s.v.(float64))
	case *array.StringBuilder:
		b.Append(s.v.(string))
	case *array.BinaryBuilder:
		b.AppendString(s.v.(string))
	default:
		panic(fmt.Sprintf("dtype: unexpected builder %T for %s", bldr, s.dtype))
	}
}
