package dtype

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Array(mem memory.Allocator, vals []int64, valid []bool) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewArray()
}

func TestLiteralColumn(t *testing.T) {
	value := Utf8Scalar("Alice")
	col := NewLiteralColumn(value, 3)

	assert.True(t, col.IsLiteral())
	assert.Nil(t, col.Array())
	assert.Equal(t, 3, col.Len())
	assert.False(t, col.IsEmpty())
	assert.Equal(t, Utf8, col.DataType())
	for i := 0; i < col.Len(); i++ {
		assert.True(t, col.Get(i).Equal(value))
	}
	assert.Panics(t, func() { col.Get(3) })
	assert.Panics(t, func() { col.Get(-1) })

	lit, ok := col.Literal()
	assert.True(t, ok)
	assert.True(t, lit.Equal(value))
}

func TestLiteralColumnLengthIndependentOfValue(t *testing.T) {
	for _, n := range []int{0, 1, 1000} {
		assert.Equal(t, n, NewLiteralColumn(NullScalar(Float64), n).Len())
		assert.Equal(t, n, NewLiteralColumn(Int8Scalar(1), n).Len())
	}
	assert.True(t, NewLiteralColumn(Int8Scalar(1), 0).IsEmpty())
	assert.Panics(t, func() { NewLiteralColumn(Int8Scalar(1), -1) })
}

func TestArrayColumn(t *testing.T) {
	arr := int64Array(memory.DefaultAllocator, []int64{10, 0, 30}, []bool{true, false, true})
	defer arr.Release()

	col, err := NewArrayColumn(arr)
	require.NoError(t, err)
	defer col.Release()

	assert.False(t, col.IsLiteral())
	assert.Equal(t, 3, col.Len())
	assert.Equal(t, Int64, col.DataType())
	assert.True(t, col.Get(0).Equal(Int64Scalar(10)))
	assert.True(t, col.Get(1).Equal(NullScalar(Int64)))
	assert.True(t, col.Get(2).Equal(Int64Scalar(30)))
	assert.Panics(t, func() { col.Get(3) })

	_, ok := col.Literal()
	assert.False(t, ok)
}

func TestArrayColumnAllTypes(t *testing.T) {
	mem := memory.DefaultAllocator
	for _, dt := range DataTypes {
		t.Run(dt.String(), func(t *testing.T) {
			lit := NewLiteralColumn(sampleScalar(dt), 2)
			arr := lit.ToArrow(mem)
			defer arr.Release()

			col, err := NewArrayColumn(arr)
			require.NoError(t, err)
			defer col.Release()

			assert.Equal(t, dt, col.DataType())
			assert.Equal(t, 2, col.Len())
			assert.True(t, col.Get(1).Equal(sampleScalar(dt)), "got %v", col.Get(1))
		})
	}
}

func TestArrayColumnRejectsUnsupportedType(t *testing.T) {
	b := array.NewDate32Builder(memory.DefaultAllocator)
	defer b.Release()
	b.Append(arrow.Date32(19000))
	arr := b.NewArray()
	defer arr.Release()

	_, err := NewArrayColumn(arr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestLiteralToArrowNull(t *testing.T) {
	arr := NewLiteralColumn(NullScalar(Utf8), 4).ToArrow(nil)
	defer arr.Release()

	assert.Equal(t, 4, arr.Len())
	assert.Equal(t, 4, arr.NullN())
	assert.True(t, arrow.TypeEqual(arrow.BinaryTypes.String, arr.DataType()))
}

func TestColumnReleasesArrays(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := int64Array(mem, []int64{1, 2, 3}, nil)
	col, err := NewArrayColumn(arr)
	require.NoError(t, err)
	arr.Release()

	shared := col
	shared.Retain()
	col.Release()
	assert.True(t, shared.Get(2).Equal(Int64Scalar(3)))
	shared.Release()
}

func sampleScalar(dt DataType) Scalar {
	switch dt {
	case Boolean:
		return BooleanScalar(true)
	case Int8:
		return Int8Scalar(-8)
	case Int16:
		return Int16Scalar(-16)
	case Int32:
		return Int32Scalar(-32)
	case Int64:
		return Int64Scalar(-64)
	case UInt8:
		return UInt8Scalar(8)
	case UInt16:
		return UInt16Scalar(16)
	case UInt32:
		return UInt32Scalar(32)
	case UInt64:
		return UInt64Scalar(64)
	case Float32:
		return Float32Scalar(3.5)
	case Float64:
		return Float64Scalar(6.25)
	case Utf8:
		return Utf8Scalar("bob")
	default:
		return BinaryScalar([]byte{0x01, 0x02})
	}
}
