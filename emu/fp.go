package emu

import (
	"math"

	"github.com/sarchlab/a64sim/insts"
)

// Default NaN bit patterns.
const (
	defaultNaN64 = 0x7FF8000000000000
	defaultNaN32 = 0x7FC00000
)

// FPU implements the floating-point primitives. NaN propagation and the
// rounding behavior of conversions follow the FPCR held in the register
// file.
type FPU struct {
	regFile *RegFile
}

// NewFPU creates an FPU bound to a register file.
func NewFPU(regFile *RegFile) *FPU {
	return &FPU{regFile: regFile}
}

func isSignallingNaN64(f float64) bool {
	b := math.Float64bits(f)
	return math.IsNaN(f) && b&(1<<51) == 0
}

func isSignallingNaN32(f float32) bool {
	b := math.Float32bits(f)
	return b&0x7F800000 == 0x7F800000 && b&0x007FFFFF != 0 &&
		b&(1<<22) == 0
}

func quietNaN64(f float64) float64 {
	return math.Float64frombits(math.Float64bits(f) | 1<<51)
}

func quietNaN32(f float32) float32 {
	return math.Float32frombits(math.Float32bits(f) | 1<<22)
}

// ProcessNaNs64 resolves the result of an operation with at least one NaN
// input. Signalling NaNs take priority over quiet NaNs, and the first
// operand over the second. Returns ok=false when neither input is a NaN.
func (f *FPU) ProcessNaNs64(a, b float64) (float64, bool) {
	var nan float64
	switch {
	case isSignallingNaN64(a):
		nan = quietNaN64(a)
	case isSignallingNaN64(b):
		nan = quietNaN64(b)
	case math.IsNaN(a):
		nan = a
	case math.IsNaN(b):
		nan = b
	default:
		return 0, false
	}
	if f.regFile.FPDefaultNaN() {
		return math.Float64frombits(defaultNaN64), true
	}
	return nan, true
}

// ProcessNaNs32 is the single-precision counterpart of ProcessNaNs64.
func (f *FPU) ProcessNaNs32(a, b float32) (float32, bool) {
	var nan float32
	switch {
	case isSignallingNaN32(a):
		nan = quietNaN32(a)
	case isSignallingNaN32(b):
		nan = quietNaN32(b)
	case isNaN32(a):
		nan = a
	case isNaN32(b):
		nan = b
	default:
		return 0, false
	}
	if f.regFile.FPDefaultNaN() {
		return math.Float32frombits(defaultNaN32), true
	}
	return nan, true
}

func isNaN32(f float32) bool {
	return f != f
}

// fixNaN64 replaces a NaN produced by an operation whose inputs were not
// NaN (an invalid operation, e.g. inf - inf) with the default NaN, and
// applies the DN bit otherwise.
func (f *FPU) fixNaN64(result, a, b float64) float64 {
	if !math.IsNaN(result) {
		return result
	}
	if nan, ok := f.ProcessNaNs64(a, b); ok {
		return nan
	}
	return math.Float64frombits(defaultNaN64)
}

func (f *FPU) fixNaN32(result, a, b float32) float32 {
	if !isNaN32(result) {
		return result
	}
	if nan, ok := f.ProcessNaNs32(a, b); ok {
		return nan
	}
	return math.Float32frombits(defaultNaN32)
}

// Add64 computes a + b with architectural NaN handling.
func (f *FPU) Add64(a, b float64) float64 { return f.fixNaN64(a+b, a, b) }

// Sub64 computes a - b with architectural NaN handling.
func (f *FPU) Sub64(a, b float64) float64 { return f.fixNaN64(a-b, a, b) }

// Mul64 computes a * b with architectural NaN handling.
func (f *FPU) Mul64(a, b float64) float64 { return f.fixNaN64(a*b, a, b) }

// Div64 computes a / b with architectural NaN handling.
func (f *FPU) Div64(a, b float64) float64 { return f.fixNaN64(a/b, a, b) }

// Add32 computes a + b with architectural NaN handling.
func (f *FPU) Add32(a, b float32) float32 { return f.fixNaN32(a+b, a, b) }

// Sub32 computes a - b with architectural NaN handling.
func (f *FPU) Sub32(a, b float32) float32 { return f.fixNaN32(a-b, a, b) }

// Mul32 computes a * b with architectural NaN handling.
func (f *FPU) Mul32(a, b float32) float32 { return f.fixNaN32(a*b, a, b) }

// Div32 computes a / b with architectural NaN handling.
func (f *FPU) Div32(a, b float32) float32 { return f.fixNaN32(a/b, a, b) }

// MulAdd64 computes a + b*c as a fused operation.
func (f *FPU) MulAdd64(a, b, c float64) float64 {
	result := math.FMA(b, c, a)
	if math.IsNaN(result) {
		if nan, ok := f.ProcessNaNs64(b, c); ok {
			return nan
		}
		if nan, ok := f.ProcessNaNs64(a, 0); ok {
			return nan
		}
		return math.Float64frombits(defaultNaN64)
	}
	return result
}

// MulAdd32 computes a + b*c as a fused operation.
func (f *FPU) MulAdd32(a, b, c float32) float32 {
	result := math.FMA(float64(b), float64(c), float64(a))
	if math.IsNaN(result) {
		if nan, ok := f.ProcessNaNs32(b, c); ok {
			return nan
		}
		if nan, ok := f.ProcessNaNs32(a, 0); ok {
			return nan
		}
		return math.Float32frombits(defaultNaN32)
	}
	return float32(result)
}

// Max64 computes the larger operand. max(+0, -0) is +0; a NaN input
// propagates.
func (f *FPU) Max64(a, b float64) float64 {
	if nan, ok := f.ProcessNaNs64(a, b); ok {
		return nan
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) && math.Signbit(b) {
			return math.Copysign(0, -1)
		}
		return 0
	}
	if a > b {
		return a
	}
	return b
}

// Min64 computes the smaller operand. min(+0, -0) is -0; a NaN input
// propagates.
func (f *FPU) Min64(a, b float64) float64 {
	if nan, ok := f.ProcessNaNs64(a, b); ok {
		return nan
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) || math.Signbit(b) {
			return math.Copysign(0, -1)
		}
		return 0
	}
	if a < b {
		return a
	}
	return b
}

// MaxNM64 is Max64 except a quiet NaN paired with a number yields the
// number.
func (f *FPU) MaxNM64(a, b float64) float64 {
	if math.IsNaN(a) && !isSignallingNaN64(a) && !math.IsNaN(b) {
		a = math.Inf(-1)
	} else if math.IsNaN(b) && !isSignallingNaN64(b) && !math.IsNaN(a) {
		b = math.Inf(-1)
	}
	return f.Max64(a, b)
}

// MinNM64 is Min64 except a quiet NaN paired with a number yields the
// number.
func (f *FPU) MinNM64(a, b float64) float64 {
	if math.IsNaN(a) && !isSignallingNaN64(a) && !math.IsNaN(b) {
		a = math.Inf(1)
	} else if math.IsNaN(b) && !isSignallingNaN64(b) && !math.IsNaN(a) {
		b = math.Inf(1)
	}
	return f.Min64(a, b)
}

// Max32 is the single-precision counterpart of Max64.
func (f *FPU) Max32(a, b float32) float32 {
	if nan, ok := f.ProcessNaNs32(a, b); ok {
		return nan
	}
	return float32(f.maxNoNaN(float64(a), float64(b)))
}

// Min32 is the single-precision counterpart of Min64.
func (f *FPU) Min32(a, b float32) float32 {
	if nan, ok := f.ProcessNaNs32(a, b); ok {
		return nan
	}
	return float32(f.minNoNaN(float64(a), float64(b)))
}

// MaxNM32 is the single-precision counterpart of MaxNM64.
func (f *FPU) MaxNM32(a, b float32) float32 {
	if isNaN32(a) && !isSignallingNaN32(a) && !isNaN32(b) {
		a = float32(math.Inf(-1))
	} else if isNaN32(b) && !isSignallingNaN32(b) && !isNaN32(a) {
		b = float32(math.Inf(-1))
	}
	return f.Max32(a, b)
}

// MinNM32 is the single-precision counterpart of MinNM64.
func (f *FPU) MinNM32(a, b float32) float32 {
	if isNaN32(a) && !isSignallingNaN32(a) && !isNaN32(b) {
		a = float32(math.Inf(1))
	} else if isNaN32(b) && !isSignallingNaN32(b) && !isNaN32(a) {
		b = float32(math.Inf(1))
	}
	return f.Min32(a, b)
}

func (f *FPU) maxNoNaN(a, b float64) float64 {
	if a == 0 && b == 0 {
		if math.Signbit(a) && math.Signbit(b) {
			return math.Copysign(0, -1)
		}
		return 0
	}
	if a > b {
		return a
	}
	return b
}

func (f *FPU) minNoNaN(a, b float64) float64 {
	if a == 0 && b == 0 {
		if math.Signbit(a) || math.Signbit(b) {
			return math.Copysign(0, -1)
		}
		return 0
	}
	if a < b {
		return a
	}
	return b
}

// Compare64 compares two values and sets NZCV: 0110 for equal, 1000 for
// less, 0010 for greater, 0011 for unordered.
func (f *FPU) Compare64(a, b float64) {
	p := &f.regFile.PSTATE
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		p.N, p.Z, p.C, p.V = false, false, true, true
	case a == b:
		p.N, p.Z, p.C, p.V = false, true, true, false
	case a < b:
		p.N, p.Z, p.C, p.V = true, false, false, false
	default:
		p.N, p.Z, p.C, p.V = false, false, true, false
	}
}

// Compare32 is the single-precision counterpart of Compare64.
func (f *FPU) Compare32(a, b float32) {
	f.Compare64(promote32(a), promote32(b))
}

// promote32 widens a float32 preserving NaN-ness.
func promote32(a float32) float64 {
	if isNaN32(a) {
		return math.NaN()
	}
	return float64(a)
}

// RoundInt rounds a value to an integral float using the given rounding
// mode from the FPCR RMode encoding, or ties-to-away/ties-to-even for the
// FRINTA/FRINTN forms.
func (f *FPU) RoundInt(value float64, op insts.Op) float64 {
	if math.IsNaN(value) {
		if nan, ok := f.ProcessNaNs64(value, 0); ok {
			return nan
		}
	}
	switch op {
	case insts.OpVFRINTN:
		return math.RoundToEven(value)
	case insts.OpVFRINTA:
		return math.Round(value)
	case insts.OpVFRINTP:
		return math.Ceil(value)
	case insts.OpVFRINTM:
		return math.Floor(value)
	case insts.OpVFRINTZ:
		return math.Trunc(value)
	default: // FRINTX and FRINTI use the FPCR rounding mode
		switch f.regFile.FPRoundingMode() {
		case FPRoundPlus:
			return math.Ceil(value)
		case FPRoundMinus:
			return math.Floor(value)
		case FPRoundZero:
			return math.Trunc(value)
		default:
			return math.RoundToEven(value)
		}
	}
}

// ToInt64 converts a value to a signed 64-bit integer, rounding towards
// zero and saturating at the type bounds. NaN converts to 0.
func (f *FPU) ToInt64(value float64) int64 {
	switch {
	case math.IsNaN(value):
		return 0
	case value >= math.MaxInt64:
		return math.MaxInt64
	case value <= math.MinInt64:
		return math.MinInt64
	}
	return int64(value)
}

// ToUint64 converts a value to an unsigned 64-bit integer, rounding
// towards zero and saturating at the type bounds. NaN converts to 0.
func (f *FPU) ToUint64(value float64) uint64 {
	switch {
	case math.IsNaN(value), value <= 0:
		return 0
	case value >= math.MaxUint64:
		return math.MaxUint64
	}
	return uint64(value)
}

// ToInt32 converts a value to a signed 32-bit integer with saturation.
func (f *FPU) ToInt32(value float64) int32 {
	switch {
	case math.IsNaN(value):
		return 0
	case value >= math.MaxInt32:
		return math.MaxInt32
	case value <= math.MinInt32:
		return math.MinInt32
	}
	return int32(value)
}

// ToUint32 converts a value to an unsigned 32-bit integer with saturation.
func (f *FPU) ToUint32(value float64) uint32 {
	switch {
	case math.IsNaN(value), value <= 0:
		return 0
	case value >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(value)
}

// Sqrt64 computes the square root with architectural NaN handling.
func (f *FPU) Sqrt64(value float64) float64 {
	result := math.Sqrt(value)
	return f.fixNaN64(result, value, 0)
}

// Sqrt32 computes the square root with architectural NaN handling.
func (f *FPU) Sqrt32(value float32) float32 {
	result := float32(math.Sqrt(float64(value)))
	return f.fixNaN32(result, value, 0)
}
