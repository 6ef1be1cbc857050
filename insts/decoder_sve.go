package insts

// SVE predicate patterns. Only the pattern number is decoded; the execution
// engine interprets it against the configured vector length.
const (
	SVEPatternAll = 0b11111
)

// isSVE checks for the SVE encoding space.
func (d *Decoder) isSVE(word uint32) bool {
	return (word>>25)&0xF == 0b0010
}

// decodeSVE decodes the supported SVE subset: predicated and unpredicated
// integer arithmetic, predicate set/logic, and the element-count reads.
// Everything else in the SVE space decodes to OpSVEUnsupported so execution
// fails with a diagnostic instead of silently misbehaving.
func (d *Decoder) decodeSVE(word uint32, inst *Instruction) {
	inst.Format = FormatSVE
	inst.Op = OpSVEUnsupported

	switch {
	case d.decodeSVEPredicatedBinop(word, inst):
	case d.decodeSVEUnpredicated(word, inst):
	case d.decodeSVEPredicateOp(word, inst):
	case d.decodeSVECount(word, inst):
	}
}

// decodeSVEPredicatedBinop handles the predicated binary operations with a
// shared destination/first-source register.
// Format: 00000100 | size | 0 | select | 000 | Pg | Zm | Zdn
func (d *Decoder) decodeSVEPredicatedBinop(word uint32, inst *Instruction) bool {
	if (word>>24)&0xFF != 0b00000100 || (word>>21)&0x1 != 0 ||
		(word>>13)&0x7 != 0b000 {
		return false
	}

	sel := (word >> 16) & 0x1F

	var op Op
	switch sel {
	case 0b00000:
		op = OpZADD
	case 0b00001:
		op = OpZSUB
	case 0b01000:
		op = OpZSMAX
	case 0b01001:
		op = OpZUMAX
	case 0b01010:
		op = OpZSMIN
	case 0b01011:
		op = OpZUMIN
	case 0b10000:
		op = OpZMUL
	case 0b11000:
		op = OpZORR
	case 0b11001:
		op = OpZEOR
	case 0b11010:
		op = OpZAND
	case 0b11011:
		op = OpZBIC
	default:
		return false
	}

	inst.Op = op
	inst.SizeLog2 = uint8((word >> 22) & 0x3)
	inst.Pg = uint8((word >> 10) & 0x7)
	inst.Rd = uint8(word & 0x1F) // Zdn
	inst.Rn = inst.Rd
	inst.Rm = uint8((word >> 5) & 0x1F) // Zm
	inst.Merging = true
	return true
}

// decodeSVEUnpredicated handles unpredicated vector add/sub.
// Format: 00000100 | size | 1 | Zm | 00000 | opc | Zn | Zd
func (d *Decoder) decodeSVEUnpredicated(word uint32, inst *Instruction) bool {
	if (word>>24)&0xFF != 0b00000100 || (word>>21)&0x1 != 1 ||
		(word>>11)&0x1F != 0b00000 {
		return false
	}

	if (word>>10)&0x1 == 0 {
		inst.Op = OpZADDUnpred
	} else {
		inst.Op = OpZSUBUnpred
	}
	inst.SizeLog2 = uint8((word >> 22) & 0x3)
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	return true
}

// decodeSVEPredicateOp handles PTRUE, PFALSE, and the predicate logical
// operations.
func (d *Decoder) decodeSVEPredicateOp(word uint32, inst *Instruction) bool {
	switch {
	case word&0xFF3FFC10 == 0x2518E000: // PTRUE
		inst.Op = OpPTRUE
		inst.SizeLog2 = uint8((word >> 22) & 0x3)
		inst.Rd = uint8(word & 0xF) // Pd
		inst.Imm = uint64((word >> 5) & 0x1F)
		return true
	case word&0xFFFFFFF0 == 0x2518E400: // PFALSE
		inst.Op = OpPFALSE
		inst.Rd = uint8(word & 0xF)
		return true
	case word&0xFFF0C210 == 0x25004000: // AND predicates
		inst.Op = OpPAND
	case word&0xFFF0C210 == 0x25804000: // ORR predicates
		inst.Op = OpPORR
	case word&0xFFF0C210 == 0x25004200: // EOR predicates
		inst.Op = OpPEOR
	default:
		return false
	}

	inst.Rd = uint8(word & 0xF)
	inst.Rn = uint8((word >> 5) & 0xF)
	inst.Rm = uint8((word >> 16) & 0xF)
	inst.Pg = uint8((word >> 10) & 0xF)
	return true
}

// decodeSVECount handles CNTB/CNTH/CNTW/CNTD and RDVL.
func (d *Decoder) decodeSVECount(word uint32, inst *Instruction) bool {
	switch {
	case word&0xFF30FC00 == 0x0420E000: // CNT<T>
		cntOps := [...]Op{OpCNTB, OpCNTH, OpCNTW, OpCNTD}
		inst.Op = cntOps[(word>>22)&0x3]
		inst.SizeLog2 = uint8((word >> 22) & 0x3)
		inst.Rd = uint8(word & 0x1F)
		inst.Imm = uint64((word >> 5) & 0x1F)            // pattern
		inst.Imm2 = uint64((word>>16)&0xF) + 1           // multiplier
		inst.Is64Bit = true
		return true
	case word&0xFFFFF800 == 0x04BF5000: // RDVL
		inst.Op = OpRDVL
		inst.Rd = uint8(word & 0x1F)
		imm6 := uint64((word >> 5) & 0x3F)
		inst.SignedImm = int64(signExtend(imm6, 6))
		inst.Is64Bit = true
		return true
	}
	return false
}
