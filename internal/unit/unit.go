// Package unit implements Stylus's fixed-precision real arithmetic: a float64
// wrapper with epsilon-equality, a distinguished undefined state, and a
// process-wide "imprecise mode" toggled around plan execution.
//
// Exact comparison of scores and fitness values during testing requires
// deterministic rounding; the inner loops of mutation/scoring run faster in
// native float64 precision. Precise mode buys determinism at a cost; the
// plan executor flips to imprecise mode around the hot path and back before
// returning control to the caller.
package unit

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Epsilon is the tolerance used by Equal and by every downstream geometric
// comparison that reduces to comparing two Units.
const Epsilon = 1e-10

// precision is the number of decimal digits Unit values are rounded to in
// precise mode. It was chosen to exceed Epsilon's resolution by a comfortable
// margin while remaining representable in float64.
const precision = 9

// imprecise is the process-wide toggle described in the package doc. It is
// intentionally a package-level (not goroutine-local) flag: the engine is
// single-threaded cooperative (see the concurrency model), so there is never
// a second goroutine to race with it.
var imprecise bool

// SetImprecise enters or leaves imprecise mode. The plan executor calls
// SetImprecise(true) before driving a plan and SetImprecise(false) when it
// returns, regardless of outcome.
func SetImprecise(v bool) { imprecise = v }

// Imprecise reports whether imprecise mode is currently active.
func Imprecise() bool { return imprecise }

// Unit is a fixed-precision real number with an explicit undefined state.
type Unit struct {
	val     float64
	defined bool
}

// Undefined is the zero value's complement: an Unit carrying no value.
var Undefined = Unit{}

// Of constructs a defined Unit from a float64.
func Of(v float64) Unit {
	return Unit{val: v, defined: true}
}

// Zero is the defined Unit holding 0.
var Zero = Of(0)

// IsDefined reports whether u holds a value.
func (u Unit) IsDefined() bool { return u.defined }

// Value returns the underlying float64. It panics if u is undefined; callers
// must check IsDefined first, exactly as the source engine asserts before
// dereferencing a scale/translation component.
func (u Unit) Value() float64 {
	if !u.defined {
		panic("unit: Value of undefined Unit")
	}
	return u.val
}

// ValueOr returns u's value, or dflt if u is undefined.
func (u Unit) ValueOr(dflt float64) float64 {
	if !u.defined {
		return dflt
	}
	return u.val
}

func round(v float64) float64 {
	scale := math.Pow(10, precision)
	return math.Round(v*scale) / scale
}

// roundIfPrecise rounds v to the configured decimal precision unless
// imprecise mode is active.
func roundIfPrecise(v float64) float64 {
	if imprecise {
		return v
	}
	return round(v)
}

// Add returns u+v. Either operand undefined yields Undefined.
func (u Unit) Add(v Unit) Unit {
	if !u.defined || !v.defined {
		return Undefined
	}
	return Of(u.val + v.val)
}

// Sub returns u-v. Either operand undefined yields Undefined.
func (u Unit) Sub(v Unit) Unit {
	if !u.defined || !v.defined {
		return Undefined
	}
	return Of(u.val - v.val)
}

// Mul returns u*v, rounded per the current precision mode. Either operand
// undefined yields Undefined.
func (u Unit) Mul(v Unit) Unit {
	if !u.defined || !v.defined {
		return Undefined
	}
	return Of(roundIfPrecise(u.val * v.val))
}

// Div returns u/v, rounded per the current precision mode. Either operand
// undefined, or division by zero, yields Undefined.
func (u Unit) Div(v Unit) Unit {
	if !u.defined || !v.defined || v.val == 0 {
		return Undefined
	}
	return Of(roundIfPrecise(u.val / v.val))
}

// Neg returns -u.
func (u Unit) Neg() Unit {
	if !u.defined {
		return Undefined
	}
	return Of(-u.val)
}

// Abs returns |u|.
func (u Unit) Abs() Unit {
	if !u.defined {
		return Undefined
	}
	return Of(math.Abs(u.val))
}

// Equal reports whether u and v are within Epsilon of each other. Two
// undefined Units are equal; a defined and an undefined Unit are never
// equal.
func (u Unit) Equal(v Unit) bool {
	if u.defined != v.defined {
		return false
	}
	if !u.defined {
		return true
	}
	return math.Abs(u.val-v.val) <= Epsilon
}

// Less reports whether u is strictly less than v by more than Epsilon.
// Undefined operands never compare less.
func (u Unit) Less(v Unit) bool {
	if !u.defined || !v.defined {
		return false
	}
	return v.val-u.val > Epsilon
}

// Greater reports whether u is strictly greater than v by more than Epsilon.
func (u Unit) Greater(v Unit) bool {
	if !u.defined || !v.defined {
		return false
	}
	return u.val-v.val > Epsilon
}

// Within reports whether |u-v| <= threshold. Used by "maintain" trial
// acceptance conditions.
func (u Unit) Within(v Unit, threshold Unit) bool {
	if !u.defined || !v.defined || !threshold.defined {
		return false
	}
	return math.Abs(u.val-v.val) <= threshold.val+Epsilon
}

// Parse decodes decimal text into a Unit, as used for plan parameters.
func Parse(text string) (Unit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Undefined, errors.Errorf("unit: empty text")
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Undefined, errors.Wrapf(err, "unit: invalid decimal text %q", text)
	}
	return Of(v), nil
}

// String renders u for diagnostics; undefined renders as "undefined".
func (u Unit) String() string {
	if !u.defined {
		return "undefined"
	}
	return strconv.FormatFloat(u.val, 'g', -1, 64)
}

// MarshalText implements encoding.TextMarshaler for XML attribute/element
// encoding of plan parameters and globals.
func (u Unit) MarshalText() ([]byte, error) {
	if !u.defined {
		return []byte(""), nil
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*u = Undefined
		return nil
	}
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
