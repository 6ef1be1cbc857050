package emu

import (
	"math/bits"

	"github.com/sarchlab/a64sim/insts"
)

// executePCRel executes PC-relative addressing instructions (ADR, ADRP).
func (e *Emulator) executePCRel(inst *insts.Instruction) {
	pc := e.regFile.PC

	switch inst.Op {
	case insts.OpADR:
		e.regFile.WriteReg(inst.Rd, uint64(int64(pc)+inst.BranchOffset))
	case insts.OpADRP:
		// The offset is relative to the 4KB page holding the
		// instruction; the decoder pre-shifts it.
		pageBase := pc &^ uint64(0xFFF)
		e.regFile.WriteReg(inst.Rd, uint64(int64(pageBase)+inst.BranchOffset))
	}
}

// executeAddSubImm executes ADD/SUB immediate. Register 31 is SP for both
// the source and, when flags are not set, the destination.
func (e *Emulator) executeAddSubImm(inst *insts.Instruction) {
	imm := inst.Imm << inst.Shift
	op1 := e.regFile.Read(inst.Rn, Reg31IsSP)

	var result uint64
	if inst.Op == insts.OpADD {
		result = e.alu.AddWithCarry(op1, imm, false, inst.Is64Bit, inst.SetFlags)
	} else {
		result = e.alu.AddWithCarry(op1, ^imm, true, inst.Is64Bit, inst.SetFlags)
	}

	rdMode := Reg31IsSP
	if inst.SetFlags {
		rdMode = Reg31IsZero
	}
	e.regFile.Write(inst.Rd, result, rdMode)
}

// executeLogicalImm executes AND/ORR/EOR/ANDS with a bitmask immediate.
// For the non-flag-setting forms register 31 names SP as the destination.
func (e *Emulator) executeLogicalImm(inst *insts.Instruction) {
	op1 := e.regFile.ReadReg(inst.Rn)
	if !inst.Is64Bit {
		op1 = uint64(uint32(op1))
	}

	var result uint64
	switch inst.Op {
	case insts.OpAND:
		result = op1 & inst.Imm
	case insts.OpORR:
		result = op1 | inst.Imm
	case insts.OpEOR:
		result = op1 ^ inst.Imm
	}
	if !inst.Is64Bit {
		result = uint64(uint32(result))
	}

	if inst.SetFlags {
		e.alu.SetLogicFlags(result, inst.Is64Bit)
		e.regFile.WriteReg(inst.Rd, result)
		return
	}
	e.regFile.Write(inst.Rd, result, Reg31IsSP)
}

// executeMoveWide executes MOVZ, MOVN, and MOVK.
func (e *Emulator) executeMoveWide(inst *insts.Instruction) {
	imm := inst.Imm << inst.Shift

	var result uint64
	switch inst.Op {
	case insts.OpMOVZ:
		result = imm
	case insts.OpMOVN:
		result = ^imm
	case insts.OpMOVK:
		current := e.regFile.ReadReg(inst.Rd)
		result = (current &^ (uint64(0xFFFF) << inst.Shift)) | imm
	}
	if !inst.Is64Bit {
		result = uint64(uint32(result))
	}

	e.regFile.WriteReg(inst.Rd, result)
}

// executeBitfield executes SBFM, BFM, and UBFM. immr is in Imm, imms in
// Imm2.
func (e *Emulator) executeBitfield(inst *insts.Instruction) {
	immr := uint(inst.Imm)
	imms := uint(inst.Imm2)
	regSize := uint(32)
	if inst.Is64Bit {
		regSize = 64
	}

	src := e.regFile.ReadReg(inst.Rn)
	if !inst.Is64Bit {
		src = uint64(uint32(src))
	}

	var bitsValue uint64
	var mask uint64
	if imms >= immr {
		// Extract a field from bit immr upward into the bottom of
		// the destination.
		width := imms - immr + 1
		mask = maskForWidth(width)
		bitsValue = (src >> immr) & mask
	} else {
		// Insert the bottom imms+1 bits at position regSize-immr.
		width := imms + 1
		shift := regSize - immr
		mask = maskForWidth(width) << shift
		bitsValue = (src & maskForWidth(width)) << shift
	}

	var result uint64
	switch inst.Op {
	case insts.OpUBFM:
		result = bitsValue
	case insts.OpSBFM:
		result = bitsValue
		// Sign-extend from the top bit of the field.
		topBit := uint64(1)
		if imms >= immr {
			topBit <<= imms - immr
		} else {
			topBit <<= imms + regSize - immr
		}
		if result&topBit != 0 {
			result |= ^(topBit<<1 - 1)
		}
	case insts.OpBFM:
		dst := e.regFile.ReadReg(inst.Rd)
		result = (dst &^ mask) | bitsValue
	}
	if !inst.Is64Bit {
		result = uint64(uint32(result))
	}

	e.regFile.WriteReg(inst.Rd, result)
}

func maskForWidth(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// executeExtract executes EXTR: extract a register-width field from the
// concatenation Rm:Rn starting at bit lsb.
func (e *Emulator) executeExtract(inst *insts.Instruction) {
	rnVal := e.regFile.ReadReg(inst.Rn)
	rmVal := e.regFile.ReadReg(inst.Rm)
	lsb := uint(inst.Imm)

	var result uint64
	if inst.Is64Bit {
		if lsb == 0 {
			result = rnVal
		} else {
			result = (rnVal >> lsb) | (rmVal << (64 - lsb))
		}
	} else {
		rn32 := uint32(rnVal)
		rm32 := uint32(rmVal)
		if lsb == 0 {
			result = uint64(rn32)
		} else {
			result = uint64((rn32 >> lsb) | (rm32 << (32 - lsb)))
		}
	}

	e.regFile.WriteReg(inst.Rd, result)
}

// executeDPReg executes the shifted-register forms: ADD/SUB and the
// logical operations, including the inverted-operand variants.
func (e *Emulator) executeDPReg(inst *insts.Instruction) {
	op1 := e.regFile.ReadReg(inst.Rn)
	op2 := ShiftOperand(e.regFile.ReadReg(inst.Rm),
		inst.ShiftType, inst.ShiftAmount, inst.Is64Bit)
	if !inst.Is64Bit {
		op1 = uint64(uint32(op1))
		op2 = uint64(uint32(op2))
	}

	switch inst.Op {
	case insts.OpADD:
		result := e.alu.AddWithCarry(op1, op2, false, inst.Is64Bit, inst.SetFlags)
		e.regFile.WriteReg(inst.Rd, result)
		return
	case insts.OpSUB:
		result := e.alu.AddWithCarry(op1, ^op2, true, inst.Is64Bit, inst.SetFlags)
		e.regFile.WriteReg(inst.Rd, result)
		return
	}

	var result uint64
	switch inst.Op {
	case insts.OpAND:
		result = op1 & op2
	case insts.OpBIC:
		result = op1 &^ op2
	case insts.OpORR:
		result = op1 | op2
	case insts.OpORN:
		result = op1 | ^op2
	case insts.OpEOR:
		result = op1 ^ op2
	case insts.OpEON:
		result = op1 ^ ^op2
	}
	if !inst.Is64Bit {
		result = uint64(uint32(result))
	}

	if inst.SetFlags {
		e.alu.SetLogicFlags(result, inst.Is64Bit)
	}
	e.regFile.WriteReg(inst.Rd, result)
}

// executeAddSubExtended executes ADD/SUB with an extended register
// operand. The base register is SP-capable, as is the destination when
// flags are not set.
func (e *Emulator) executeAddSubExtended(inst *insts.Instruction) {
	op1 := e.regFile.Read(inst.Rn, Reg31IsSP)
	op2 := ExtendValue(e.regFile.ReadReg(inst.Rm), inst.Extend, inst.ShiftAmount)
	if !inst.Is64Bit {
		op1 = uint64(uint32(op1))
		op2 = uint64(uint32(op2))
	}

	var result uint64
	if inst.Op == insts.OpADD {
		result = e.alu.AddWithCarry(op1, op2, false, inst.Is64Bit, inst.SetFlags)
	} else {
		result = e.alu.AddWithCarry(op1, ^op2, true, inst.Is64Bit, inst.SetFlags)
	}

	rdMode := Reg31IsSP
	if inst.SetFlags {
		rdMode = Reg31IsZero
	}
	e.regFile.Write(inst.Rd, result, rdMode)
}

// executeAddSubCarry executes ADC and SBC.
func (e *Emulator) executeAddSubCarry(inst *insts.Instruction) {
	op1 := e.regFile.ReadReg(inst.Rn)
	op2 := e.regFile.ReadReg(inst.Rm)
	carry := e.regFile.PSTATE.C

	var result uint64
	if inst.Op == insts.OpADC {
		result = e.alu.AddWithCarry(op1, op2, carry, inst.Is64Bit, inst.SetFlags)
	} else {
		result = e.alu.AddWithCarry(op1, ^op2, carry, inst.Is64Bit, inst.SetFlags)
	}

	e.regFile.WriteReg(inst.Rd, result)
}

// executeCondCmp executes CCMP and CCMN. When the condition holds the
// comparison sets the flags; otherwise the flags come from the encoded
// nzcv immediate.
func (e *Emulator) executeCondCmp(inst *insts.Instruction) {
	if !e.alu.CheckCondition(inst.Cond) {
		nzcv := inst.Imm
		e.regFile.PSTATE.N = nzcv&0x8 != 0
		e.regFile.PSTATE.Z = nzcv&0x4 != 0
		e.regFile.PSTATE.C = nzcv&0x2 != 0
		e.regFile.PSTATE.V = nzcv&0x1 != 0
		return
	}

	op1 := e.regFile.ReadReg(inst.Rn)
	var op2 uint64
	if inst.Rm == 0xFF {
		op2 = inst.Imm2
	} else {
		op2 = e.regFile.ReadReg(inst.Rm)
	}

	if inst.Op == insts.OpCCMP {
		e.alu.AddWithCarry(op1, ^op2, true, inst.Is64Bit, true)
	} else {
		e.alu.AddWithCarry(op1, op2, false, inst.Is64Bit, true)
	}
}

// executeCondSelect executes CSEL, CSINC, CSINV, and CSNEG.
func (e *Emulator) executeCondSelect(inst *insts.Instruction) {
	rnVal := e.regFile.ReadReg(inst.Rn)
	rmVal := e.regFile.ReadReg(inst.Rm)

	var result uint64
	if e.alu.CheckCondition(inst.Cond) {
		result = rnVal
	} else {
		switch inst.Op {
		case insts.OpCSEL:
			result = rmVal
		case insts.OpCSINC:
			result = rmVal + 1
		case insts.OpCSINV:
			result = ^rmVal
		case insts.OpCSNEG:
			result = -rmVal
		}
	}
	if !inst.Is64Bit {
		result = uint64(uint32(result))
	}

	e.regFile.WriteReg(inst.Rd, result)
}

// executeDataProc1Src executes the one-source instructions: bit and byte
// reversals, leading-bit counts, and pointer signing/authentication.
func (e *Emulator) executeDataProc1Src(inst *insts.Instruction) {
	src := e.regFile.ReadReg(inst.Rn)
	if !inst.Is64Bit {
		src = uint64(uint32(src))
	}

	switch inst.Op {
	case insts.OpRBIT:
		e.regFile.WriteReg(inst.Rd, ReverseBits(src, inst.Is64Bit))
	case insts.OpREV16:
		e.regFile.WriteReg(inst.Rd, ReverseBytes(src, 1, inst.Is64Bit))
	case insts.OpREV32:
		e.regFile.WriteReg(inst.Rd, ReverseBytes(src, 2, inst.Is64Bit))
	case insts.OpREV:
		if inst.Is64Bit {
			e.regFile.WriteReg(inst.Rd, bits.ReverseBytes64(src))
		} else {
			e.regFile.WriteReg(inst.Rd, uint64(bits.ReverseBytes32(uint32(src))))
		}
	case insts.OpCLZ:
		e.regFile.WriteReg(inst.Rd, CountLeadingZeros(src, inst.Is64Bit))
	case insts.OpCLS:
		e.regFile.WriteReg(inst.Rd, CountLeadingSignBits(src, inst.Is64Bit))
	default:
		e.executePACReg(inst)
	}
}

// executePACReg executes the register forms of pointer signing,
// authentication, and stripping. The pointer is in Rd; Rn holds the
// modifier for the non-Z forms.
func (e *Emulator) executePACReg(inst *insts.Instruction) {
	ptr := e.regFile.ReadReg(inst.Rd)

	var modifier uint64
	switch inst.Op {
	case insts.OpPACIA, insts.OpPACIB, insts.OpPACDA, insts.OpPACDB,
		insts.OpAUTIA, insts.OpAUTIB, insts.OpAUTDA, insts.OpAUTDB:
		modifier = e.regFile.Read(inst.Rn, Reg31IsSP)
	}

	var result uint64
	switch inst.Op {
	case insts.OpPACIA, insts.OpPACIZA:
		result = AddPAC(ptr, modifier, e.keyIA)
	case insts.OpPACIB, insts.OpPACIZB:
		result = AddPAC(ptr, modifier, e.keyIB)
	case insts.OpPACDA, insts.OpPACDZA:
		result = AddPAC(ptr, modifier, e.keyDA)
	case insts.OpPACDB, insts.OpPACDZB:
		result = AddPAC(ptr, modifier, e.keyDB)
	case insts.OpAUTIA, insts.OpAUTIZA:
		result = AuthPAC(ptr, modifier, e.keyIA)
	case insts.OpAUTIB, insts.OpAUTIZB:
		result = AuthPAC(ptr, modifier, e.keyIB)
	case insts.OpAUTDA, insts.OpAUTDZA:
		result = AuthPAC(ptr, modifier, e.keyDA)
	case insts.OpAUTDB, insts.OpAUTDZB:
		result = AuthPAC(ptr, modifier, e.keyDB)
	case insts.OpXPACI, insts.OpXPACD:
		result = StripPAC(ptr)
	default:
		e.fatalf("unimplemented one-source op %d", inst.Op)
	}

	e.regFile.WriteReg(inst.Rd, result)
}

// executeDataProc2Src executes divides, variable shifts, and PACGA.
// Division by zero yields zero; the overflowing signed division
// MinInt / -1 yields MinInt.
func (e *Emulator) executeDataProc2Src(inst *insts.Instruction) {
	rnVal := e.regFile.ReadReg(inst.Rn)
	rmVal := e.regFile.ReadReg(inst.Rm)

	var result uint64
	switch inst.Op {
	case insts.OpUDIV:
		if inst.Is64Bit {
			if rmVal != 0 {
				result = rnVal / rmVal
			}
		} else {
			rm32 := uint32(rmVal)
			if rm32 != 0 {
				result = uint64(uint32(rnVal) / rm32)
			}
		}
	case insts.OpSDIV:
		if inst.Is64Bit {
			rn := int64(rnVal)
			rm := int64(rmVal)
			switch {
			case rm == 0:
				result = 0
			case rn == -1<<63 && rm == -1:
				result = uint64(rn)
			default:
				result = uint64(rn / rm)
			}
		} else {
			rn := int32(rnVal)
			rm := int32(rmVal)
			switch {
			case rm == 0:
				result = 0
			case rn == -1<<31 && rm == -1:
				result = uint64(uint32(rn))
			default:
				result = uint64(uint32(rn / rm))
			}
		}
	case insts.OpLSLV, insts.OpLSRV, insts.OpASRV, insts.OpRORV:
		shiftTypes := map[insts.Op]insts.ShiftType{
			insts.OpLSLV: insts.ShiftLSL,
			insts.OpLSRV: insts.ShiftLSR,
			insts.OpASRV: insts.ShiftASR,
			insts.OpRORV: insts.ShiftROR,
		}
		amountMask := uint64(31)
		if inst.Is64Bit {
			amountMask = 63
		}
		result = ShiftOperand(rnVal, shiftTypes[inst.Op],
			uint8(rmVal&amountMask), inst.Is64Bit)
		if !inst.Is64Bit {
			result = uint64(uint32(result))
		}
	case insts.OpPACGA:
		// The generic authentication code occupies the top half of
		// the result. The modifier is SP-capable.
		modifier := e.regFile.Read(inst.Rm, Reg31IsSP)
		result = ComputePAC(rnVal, modifier, e.keyGA) &
			0xFFFFFFFF00000000
	}

	e.regFile.WriteReg(inst.Rd, result)
}

// executeDataProc3Src executes the multiply-add family.
func (e *Emulator) executeDataProc3Src(inst *insts.Instruction) {
	rnVal := e.regFile.ReadReg(inst.Rn)
	rmVal := e.regFile.ReadReg(inst.Rm)
	raVal := e.regFile.ReadReg(inst.Ra)

	var result uint64
	switch inst.Op {
	case insts.OpMADD:
		if inst.Is64Bit {
			result = raVal + rnVal*rmVal
		} else {
			result = uint64(uint32(raVal) + uint32(rnVal)*uint32(rmVal))
		}
	case insts.OpMSUB:
		if inst.Is64Bit {
			result = raVal - rnVal*rmVal
		} else {
			result = uint64(uint32(raVal) - uint32(rnVal)*uint32(rmVal))
		}
	case insts.OpSMADDL:
		result = raVal + uint64(int64(int32(rnVal))*int64(int32(rmVal)))
	case insts.OpSMSUBL:
		result = raVal - uint64(int64(int32(rnVal))*int64(int32(rmVal)))
	case insts.OpUMADDL:
		result = raVal + uint64(uint32(rnVal))*uint64(uint32(rmVal))
	case insts.OpUMSUBL:
		result = raVal - uint64(uint32(rnVal))*uint64(uint32(rmVal))
	case insts.OpSMULH:
		hi, _ := bits.Mul64(rnVal, rmVal)
		// Correct the unsigned high half for negative operands.
		if int64(rnVal) < 0 {
			hi -= rmVal
		}
		if int64(rmVal) < 0 {
			hi -= rnVal
		}
		result = hi
	case insts.OpUMULH:
		result, _ = bits.Mul64(rnVal, rmVal)
	}

	e.regFile.WriteReg(inst.Rd, result)
}
