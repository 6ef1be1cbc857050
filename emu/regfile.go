// Package emu provides functional ARM64 emulation.
package emu

// Reg31Mode selects how register number 31 is interpreted by a register
// access. Most instructions treat it as the zero register; a handful of
// address-generating instructions treat it as the stack pointer.
type Reg31Mode uint8

// Register 31 interpretations.
const (
	// Reg31IsZero reads register 31 as zero and discards writes to it.
	Reg31IsZero Reg31Mode = iota

	// Reg31IsSP reads and writes register 31 as the stack pointer.
	Reg31IsSP
)

// regFileResetValue is the value general-purpose registers hold after a
// reset, chosen so uninitialized register reads are recognizable.
const regFileResetValue = 0xbadbeef

// RegFile represents the ARM64 general-purpose register file.
// It contains 31 general-purpose registers (X0-X30), the stack pointer
// (SP), the program counter (PC), and the processor state flags.
type RegFile struct {
	// X holds general-purpose registers X0-X30.
	// X[31] is never read or written directly; register number 31 is
	// resolved through a Reg31Mode.
	X [32]uint64

	// SP is the stack pointer.
	SP uint64

	// PC is the program counter.
	PC uint64

	// PSTATE holds the processor state flags.
	PSTATE PSTATE

	// fpcr is the floating-point control register.
	fpcr uint64
}

// PSTATE represents the processor state flags.
type PSTATE struct {
	// N is the negative flag.
	N bool
	// Z is the zero flag.
	Z bool
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
}

// FPCR rounding modes, from the RMode field.
const (
	FPRoundNearest uint64 = 0b00 // round to nearest, ties to even
	FPRoundPlus    uint64 = 0b01 // round towards plus infinity
	FPRoundMinus   uint64 = 0b10 // round towards minus infinity
	FPRoundZero    uint64 = 0b11 // round towards zero
)

// fpcrWriteMask holds the FPCR bits software can modify: AHP, DN, FZ,
// and RMode. Writes to other bits are ignored.
const fpcrWriteMask = uint64(0x07C00000)

// NewRegFile creates a register file in the reset state.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.Reset()
	return r
}

// Reset fills the general-purpose registers with the reset marker value and
// clears SP, PC, the flags, and FPCR.
func (r *RegFile) Reset() {
	for i := 0; i < 31; i++ {
		r.X[i] = regFileResetValue
	}
	r.SP = 0
	r.PC = 0
	r.PSTATE = PSTATE{}
	r.fpcr = 0
}

// Read reads a register value, resolving register 31 through mode.
func (r *RegFile) Read(reg uint8, mode Reg31Mode) uint64 {
	if reg >= 31 {
		if reg == 31 && mode == Reg31IsSP {
			return r.SP
		}
		return 0 // XZR or invalid/sentinel register
	}
	return r.X[reg]
}

// Write writes a register value, resolving register 31 through mode.
func (r *RegFile) Write(reg uint8, value uint64, mode Reg31Mode) {
	if reg >= 31 {
		if reg == 31 && mode == Reg31IsSP {
			r.SP = value
		}
		return // XZR or invalid/sentinel register
	}
	r.X[reg] = value
}

// ReadReg reads a register value. Register 31 returns 0 (XZR).
func (r *RegFile) ReadReg(reg uint8) uint64 {
	return r.Read(reg, Reg31IsZero)
}

// WriteReg writes a value to a register. Writes to register 31 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	r.Write(reg, value, Reg31IsZero)
}

// ReadReg32 reads the lower 32 bits of a register.
func (r *RegFile) ReadReg32(reg uint8) uint32 {
	return uint32(r.ReadReg(reg))
}

// WriteReg32 writes to the lower 32 bits and zero-extends.
func (r *RegFile) WriteReg32(reg uint8, value uint32) {
	r.WriteReg(reg, uint64(value))
}

// NZCV returns the flags packed in the NZCV system register layout
// (N at bit 31 down to V at bit 28).
func (r *RegFile) NZCV() uint64 {
	var v uint64
	if r.PSTATE.N {
		v |= 1 << 31
	}
	if r.PSTATE.Z {
		v |= 1 << 30
	}
	if r.PSTATE.C {
		v |= 1 << 29
	}
	if r.PSTATE.V {
		v |= 1 << 28
	}
	return v
}

// SetNZCV unpacks the NZCV system register layout into the flags. Bits
// outside the flag field are ignored.
func (r *RegFile) SetNZCV(value uint64) {
	r.PSTATE.N = value&(1<<31) != 0
	r.PSTATE.Z = value&(1<<30) != 0
	r.PSTATE.C = value&(1<<29) != 0
	r.PSTATE.V = value&(1<<28) != 0
}

// FPCR returns the floating-point control register value.
func (r *RegFile) FPCR() uint64 {
	return r.fpcr
}

// SetFPCR writes the floating-point control register. Reserved bits are
// write-ignored.
func (r *RegFile) SetFPCR(value uint64) {
	r.fpcr = value & fpcrWriteMask
}

// FPRoundingMode returns the FPCR RMode field.
func (r *RegFile) FPRoundingMode() uint64 {
	return (r.fpcr >> 22) & 0x3
}

// FPDefaultNaN reports whether the FPCR DN bit is set, in which case
// operations propagate the default NaN instead of an input NaN.
func (r *RegFile) FPDefaultNaN() bool {
	return r.fpcr&(1<<25) != 0
}
