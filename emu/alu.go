package emu

import (
	"math/bits"

	"github.com/sarchlab/a64sim/insts"
)

// ALU implements the integer data-processing primitives. All flag-setting
// arithmetic funnels through AddWithCarry so NZCV has a single source of
// truth.
type ALU struct {
	regFile *RegFile
}

// NewALU creates an ALU bound to a register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// AddWithCarry computes left + right + carryIn at the given width and
// returns the result truncated to that width. When setFlags is true the
// NZCV flags are updated from the full-width computation.
func (a *ALU) AddWithCarry(left, right uint64, carryIn bool, is64, setFlags bool) uint64 {
	maxUint := uint64(0xFFFFFFFF)
	signBit := uint64(1) << 31
	if is64 {
		maxUint = 0xFFFFFFFFFFFFFFFF
		signBit = 1 << 63
	}
	left &= maxUint
	right &= maxUint

	carry := uint64(0)
	if carryIn {
		carry = 1
	}
	result := (left + right + carry) & maxUint

	if setFlags {
		// C is set when the unsigned sum does not fit in the width.
		maxUint2op := maxUint - carry
		carryOut := left > maxUint2op || (maxUint2op-left) < right

		// V is set when both operands have the same sign and the
		// result's sign differs.
		overflow := (left^right)&signBit == 0 &&
			(left^result)&signBit != 0

		a.regFile.PSTATE.N = result&signBit != 0
		a.regFile.PSTATE.Z = result == 0
		a.regFile.PSTATE.C = carryOut
		a.regFile.PSTATE.V = overflow
	}

	return result
}

// SetLogicFlags updates NZCV after a flag-setting logical operation:
// N and Z from the result, C and V cleared.
func (a *ALU) SetLogicFlags(result uint64, is64 bool) {
	signBit := uint64(1) << 31
	if is64 {
		signBit = 1 << 63
	}
	a.regFile.PSTATE.N = result&signBit != 0
	a.regFile.PSTATE.Z = result == 0
	a.regFile.PSTATE.C = false
	a.regFile.PSTATE.V = false
}

// ShiftOperand applies a shift to a register operand. An amount of 0
// returns the value unchanged regardless of the shift type.
func ShiftOperand(value uint64, shiftType insts.ShiftType, amount uint8, is64 bool) uint64 {
	if amount == 0 {
		return value
	}

	if is64 {
		switch shiftType {
		case insts.ShiftLSL:
			return value << amount
		case insts.ShiftLSR:
			return value >> amount
		case insts.ShiftASR:
			return uint64(int64(value) >> amount)
		case insts.ShiftROR:
			return bits.RotateLeft64(value, -int(amount))
		}
		return value
	}

	value32 := uint32(value)
	switch shiftType {
	case insts.ShiftLSL:
		return uint64(value32 << amount)
	case insts.ShiftLSR:
		return uint64(value32 >> amount)
	case insts.ShiftASR:
		return uint64(uint32(int32(value32) >> amount))
	case insts.ShiftROR:
		return uint64(bits.RotateLeft32(value32, -int(amount)))
	}
	return uint64(value32)
}

// ExtendValue extends a register operand to 64 bits and applies a left
// shift, as used by extended-register operands and register-offset
// addressing.
func ExtendValue(value uint64, extend insts.ExtendType, leftShift uint8) uint64 {
	switch extend {
	case insts.ExtendUXTB:
		value = uint64(uint8(value))
	case insts.ExtendUXTH:
		value = uint64(uint16(value))
	case insts.ExtendUXTW:
		value = uint64(uint32(value))
	case insts.ExtendUXTX:
		// Identity.
	case insts.ExtendSXTB:
		value = uint64(int64(int8(value)))
	case insts.ExtendSXTH:
		value = uint64(int64(int16(value)))
	case insts.ExtendSXTW:
		value = uint64(int64(int32(value)))
	case insts.ExtendSXTX:
		// Identity.
	}
	return value << leftShift
}

// CheckCondition evaluates an ARM64 condition code against the current
// flags.
func (a *ALU) CheckCondition(cond insts.Cond) bool {
	p := a.regFile.PSTATE
	switch cond {
	case insts.CondEQ:
		return p.Z
	case insts.CondNE:
		return !p.Z
	case insts.CondCS:
		return p.C
	case insts.CondCC:
		return !p.C
	case insts.CondMI:
		return p.N
	case insts.CondPL:
		return !p.N
	case insts.CondVS:
		return p.V
	case insts.CondVC:
		return !p.V
	case insts.CondHI:
		return p.C && !p.Z
	case insts.CondLS:
		return !p.C || p.Z
	case insts.CondGE:
		return p.N == p.V
	case insts.CondLT:
		return p.N != p.V
	case insts.CondGT:
		return !p.Z && p.N == p.V
	case insts.CondLE:
		return p.Z || p.N != p.V
	default: // AL and NV both execute unconditionally
		return true
	}
}

// CountLeadingZeros returns the number of leading zero bits at the given
// width.
func CountLeadingZeros(value uint64, is64 bool) uint64 {
	if is64 {
		return uint64(bits.LeadingZeros64(value))
	}
	return uint64(bits.LeadingZeros32(uint32(value)))
}

// CountLeadingSignBits returns the number of bits following the sign bit
// that match it.
func CountLeadingSignBits(value uint64, is64 bool) uint64 {
	if !is64 {
		value = uint64(int64(int32(value)))
	}
	// XOR with the sign-extended-by-one value turns sign-matching bits
	// into leading zeros.
	diff := value ^ uint64(int64(value)>>1)
	if diff == 0 {
		if is64 {
			return 63
		}
		return 31
	}
	n := uint64(bits.LeadingZeros64(diff)) - 1
	if !is64 {
		n -= 32
	}
	return n
}

// ReverseBits reverses the bit order at the given width.
func ReverseBits(value uint64, is64 bool) uint64 {
	if is64 {
		return bits.Reverse64(value)
	}
	return uint64(bits.Reverse32(uint32(value)))
}

// ReverseBytes reverses the byte order within each block of
// 1<<blockSizeLog2 bytes.
func ReverseBytes(value uint64, blockSizeLog2 uint8, is64 bool) uint64 {
	blockBytes := 1 << blockSizeLog2
	var result uint64
	regBytes := 8
	if !is64 {
		regBytes = 4
	}
	for block := 0; block < regBytes; block += blockBytes {
		for i := 0; i < blockBytes; i++ {
			b := (value >> uint((block+i)*8)) & 0xFF
			result |= b << uint((block+blockBytes-1-i)*8)
		}
	}
	return result
}
