package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndefinedPropagatesThroughArithmetic(t *testing.T) {
	assert.False(t, Undefined.IsDefined())
	assert.False(t, Undefined.Add(Of(1)).IsDefined())
	assert.False(t, Of(1).Sub(Undefined).IsDefined())
	assert.False(t, Undefined.Mul(Undefined).IsDefined())
	assert.False(t, Of(1).Div(Zero).IsDefined(), "division by zero yields Undefined")
}

func TestEqualTreatsBothUndefinedAsEqual(t *testing.T) {
	assert.True(t, Undefined.Equal(Undefined))
	assert.False(t, Undefined.Equal(Zero))
	assert.False(t, Zero.Equal(Undefined))
}

func TestEqualWithinEpsilon(t *testing.T) {
	a := Of(1.0)
	b := Of(1.0 + Epsilon/2)
	assert.True(t, a.Equal(b))
	c := Of(1.0 + Epsilon*10)
	assert.False(t, a.Equal(c))
}

func TestLessAndGreaterRespectEpsilon(t *testing.T) {
	a := Of(1.0)
	b := Of(1.0 + Epsilon*10)
	assert.True(t, a.Less(b))
	assert.True(t, b.Greater(a))
	assert.False(t, a.Less(Of(1.0+Epsilon/2)), "difference within epsilon is not strictly less")
}

func TestWithinUsesThresholdPlusEpsilon(t *testing.T) {
	a := Of(1.0)
	b := Of(1.3)
	assert.True(t, a.Within(b, Of(0.3)))
	assert.False(t, a.Within(b, Of(0.1)))
}

func TestMulDefinedInPreciseAndImpreciseModes(t *testing.T) {
	SetImprecise(false)
	defer SetImprecise(false)
	r := Of(1.0 / 3.0).Mul(Of(3.0))
	require.True(t, r.IsDefined())

	SetImprecise(true)
	assert.True(t, Imprecise())
	r2 := Of(1.0 / 3.0).Mul(Of(3.0))
	assert.True(t, r2.IsDefined())
}

func TestParseValidAndInvalid(t *testing.T) {
	u, err := Parse(" 3.5 ")
	require.NoError(t, err)
	assert.InDelta(t, 3.5, u.Value(), 1e-9)

	_, err = Parse("")
	assert.Error(t, err)
	_, err = Parse("not-a-number")
	assert.Error(t, err)
}

func TestTextMarshalRoundTrip(t *testing.T) {
	u := Of(2.5)
	text, err := u.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2.5", string(text))

	var u2 Unit
	require.NoError(t, u2.UnmarshalText(text))
	assert.True(t, u.Equal(u2))

	var u3 Unit
	require.NoError(t, u3.UnmarshalText(nil))
	assert.False(t, u3.IsDefined())
}

func TestValuePanicsWhenUndefined(t *testing.T) {
	assert.Panics(t, func() { Undefined.Value() })
}
