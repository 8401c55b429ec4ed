package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, Int.Contains(IntZero))
	assert.True(t, Number.Contains(Int))
	assert.True(t, Any.Contains(Number))
	assert.True(t, Any.Contains(String))
	assert.False(t, Int.Contains(Float))
	assert.False(t, Any.Contains(Color))
}

func TestIntersects(t *testing.T) {
	assert.True(t, Int.Intersects(QuasiInt))
	assert.False(t, Int.Intersects(Float))
	assert.True(t, Number.Intersects(Boolean))
}

func TestBaseType(t *testing.T) {
	b, ok := IntPos.BaseType()
	assert.True(t, ok)
	assert.Equal(t, Type(QuasiInt), b)

	b, ok = FloatPosInt.BaseType()
	assert.True(t, ok)
	assert.Equal(t, Type(Float), b)

	b, ok = StringOther.BaseType()
	assert.True(t, ok)
	assert.Equal(t, Type(String), b)

	// Spans two bases: not a base type.
	_, ok = Type(IntPos | FloatPosInt).BaseType()
	assert.False(t, ok)

	// Color is never a base type.
	_, ok = ColorRGB.BaseType()
	assert.False(t, ok)
}

func TestBaseTypes(t *testing.T) {
	bases := Type(IntPos | FloatPosInt | StringOther).BaseTypes()
	assert.Equal(t, []Type{QuasiInt, Float, String}, bases)

	assert.Empty(t, Type(ColorRGB).BaseTypes())
}

func TestPredicates(t *testing.T) {
	assert.True(t, Type(IntZero).MaybeZero())
	assert.True(t, Type(FloatNan).MaybeNan())
	assert.True(t, Type(StringNan).MaybeNan())
	assert.True(t, Type(IntPos).MaybePositive())
	assert.True(t, Type(FloatNegInt).MaybeNegative())
	assert.True(t, Type(FloatPosInf).MaybeInf())
	assert.False(t, Type(IntPos).MaybeInf())
}

func TestNoneIfFalse(t *testing.T) {
	assert.Equal(t, Type(IntPos), NoneIfFalse(true, IntPos))
	assert.Equal(t, None, NoneIfFalse(false, IntPos))
}

func TestOrAnd(t *testing.T) {
	u := Type(IntPos).Or(IntNeg)
	assert.Equal(t, Type(IntNonZero), u)
	i := Number.And(String)
	assert.Equal(t, None, i)
}
