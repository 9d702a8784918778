package dtype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalarDataType(t *testing.T) {
	cases := []struct {
		s  Scalar
		dt DataType
	}{
		{BooleanScalar(true), Boolean},
		{Int8Scalar(1), Int8},
		{Int16Scalar(1), Int16},
		{Int32Scalar(1), Int32},
		{Int64Scalar(1), Int64},
		{UInt8Scalar(1), UInt8},
		{UInt16Scalar(1), UInt16},
		{UInt32Scalar(1), UInt32},
		{UInt64Scalar(1), UInt64},
		{Float32Scalar(1), Float32},
		{Float64Scalar(1), Float64},
		{Utf8Scalar("a"), Utf8},
		{BinaryScalar([]byte{1}), Binary},
	}
	for _, c := range cases {
		assert.Equal(t, c.dt, c.s.DataType())
		assert.False(t, c.s.IsNull())
	}
}

func TestNullScalarPerType(t *testing.T) {
	for _, dt := range DataTypes {
		s := NullScalar(dt)
		assert.Equal(t, dt, s.DataType())
		assert.True(t, s.IsNull())
		assert.Nil(t, s.Value())
		assert.Equal(t, "NULL", s.String())
	}
	assert.True(t, Scalar{}.Equal(NullScalar(Boolean)))
}

func TestScalarEquality(t *testing.T) {
	assert.True(t, Int64Scalar(5).Equal(Int64Scalar(5)))
	assert.False(t, Int64Scalar(5).Equal(Int64Scalar(6)))
	// same payload, different variant
	assert.False(t, Int64Scalar(5).Equal(Int32Scalar(5)))
	assert.False(t, Int64Scalar(5).Equal(NullScalar(Int64)))
	assert.True(t, NullScalar(Utf8).Equal(NullScalar(Utf8)))
	assert.False(t, NullScalar(Utf8).Equal(NullScalar(Binary)))

	assert.True(t, BinaryScalar([]byte("ab")).Equal(BinaryScalar([]byte("ab"))))
	assert.False(t, BinaryScalar([]byte("ab")).Equal(Utf8Scalar("ab")))

	nan := Float64Scalar(math.NaN())
	assert.False(t, nan.Equal(nan))
}

func TestScalarAccessors(t *testing.T) {
	v, ok := Int16Scalar(-7).Int()
	assert.True(t, ok)
	assert.Equal(t, int64(-7), v)

	_, ok = NullScalar(Int64).Int()
	assert.False(t, ok)

	u, ok := UInt32Scalar(9).Uint()
	assert.True(t, ok)
	assert.Equal(t, uint64(9), u)

	f, ok := Float32Scalar(1.5).Float()
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)

	s, ok := Utf8Scalar("Alice").Str()
	assert.True(t, ok)
	assert.Equal(t, "Alice", s)

	b, ok := BooleanScalar(true).Bool()
	assert.True(t, ok)
	assert.True(t, b)

	raw := []byte{0xde, 0xad}
	bin := BinaryScalar(raw)
	raw[0] = 0
	got, ok := bin.Bytes()
	assert.True(t, ok)
	assert.Equal(t, []byte{0xde, 0xad}, got)
	assert.Equal(t, "0xdead", bin.String())
	assert.Equal(t, []byte{0xde, 0xad}, bin.Value())
}
