package insts

// Decoder decodes AArch64 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new AArch64 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit AArch64 instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Raw: word, Op: OpUnknown, Format: FormatUnknown}

	switch {
	case d.isPCRel(word):
		d.decodePCRel(word, inst)
	case d.isAddSubImm(word):
		d.decodeAddSubImm(word, inst)
	case d.isLogicalImm(word):
		d.decodeLogicalImm(word, inst)
	case d.isMoveWide(word):
		d.decodeMoveWide(word, inst)
	case d.isBitfield(word):
		d.decodeBitfield(word, inst)
	case d.isExtract(word):
		d.decodeExtract(word, inst)
	case d.isLogicalReg(word):
		d.decodeLogicalReg(word, inst)
	case d.isAddSubShifted(word):
		d.decodeAddSubShifted(word, inst)
	case d.isAddSubExtended(word):
		d.decodeAddSubExtended(word, inst)
	case d.isAddSubCarry(word):
		d.decodeAddSubCarry(word, inst)
	case d.isCondCmp(word):
		d.decodeCondCmp(word, inst)
	case d.isCondSelect(word):
		d.decodeCondSelect(word, inst)
	case d.isDataProc1Src(word):
		d.decodeDataProc1Src(word, inst)
	case d.isDataProc2Src(word):
		d.decodeDataProc2Src(word, inst)
	case d.isDataProc3Src(word):
		d.decodeDataProc3Src(word, inst)
	case d.isBranchImm(word):
		d.decodeBranchImm(word, inst)
	case d.isBranchCond(word):
		d.decodeBranchCond(word, inst)
	case d.isBranchReg(word):
		d.decodeBranchReg(word, inst)
	case d.isCompareBranch(word):
		d.decodeCompareBranch(word, inst)
	case d.isTestBranch(word):
		d.decodeTestBranch(word, inst)
	case d.isException(word):
		d.decodeException(word, inst)
	case d.isSystem(word):
		d.decodeSystem(word, inst)
	case d.isLoadStoreExclusive(word):
		d.decodeLoadStoreExclusive(word, inst)
	case d.isAtomicMemory(word):
		d.decodeAtomicMemory(word, inst)
	case d.isLoadStoreLit(word):
		d.decodeLoadStoreLit(word, inst)
	case d.isLoadStorePair(word):
		d.decodeLoadStorePair(word, inst)
	case d.isLoadStore(word):
		d.decodeLoadStore(word, inst)
	case d.isFPCompare(word):
		d.decodeFPCompare(word, inst)
	case d.isFPCondSelect(word):
		d.decodeFPCondSelect(word, inst)
	case d.isSVE(word):
		d.decodeSVE(word, inst)
	case d.isSIMD(word):
		d.decodeSIMD(word, inst)
	}

	return inst
}

// isPCRel checks for PC-relative addressing (ADR, ADRP).
// Format: op | immlo | 10000 | immhi | Rd
func (d *Decoder) isPCRel(word uint32) bool {
	return (word>>24)&0x1F == 0b10000
}

func (d *Decoder) decodePCRel(word uint32, inst *Instruction) {
	inst.Format = FormatPCRel

	op := (word >> 31) & 0x1
	immlo := (word >> 29) & 0x3
	immhi := (word >> 5) & 0x7FFFF
	imm := int64(signExtend(uint64(immhi<<2|immlo), 21))

	inst.Rd = uint8(word & 0x1F)
	inst.Is64Bit = true

	if op == 0 {
		inst.Op = OpADR
		inst.BranchOffset = imm
	} else {
		inst.Op = OpADRP
		inst.BranchOffset = imm << 12
	}
}

// isAddSubImm checks for Add/Sub immediate.
// Format: sf | op | S | 100010 | sh | imm12 | Rn | Rd
func (d *Decoder) isAddSubImm(word uint32) bool {
	return (word>>23)&0x3F == 0b100010
}

func (d *Decoder) decodeAddSubImm(word uint32, inst *Instruction) {
	inst.Format = FormatDPImm

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.SetFlags = (word>>29)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Imm = uint64((word >> 10) & 0xFFF)
	if (word>>22)&0x1 == 1 {
		inst.Shift = 12
	}

	if (word>>30)&0x1 == 0 {
		inst.Op = OpADD
	} else {
		inst.Op = OpSUB
	}
}

// isLogicalImm checks for Logical immediate.
// Format: sf | opc | 100100 | N | immr | imms | Rn | Rd
func (d *Decoder) isLogicalImm(word uint32) bool {
	return (word>>23)&0x3F == 0b100100
}

func (d *Decoder) decodeLogicalImm(word uint32, inst *Instruction) {
	inst.Format = FormatLogicalImm

	sf := (word >> 31) & 0x1
	opc := (word >> 29) & 0x3
	n := (word >> 22) & 0x1
	immr := (word >> 16) & 0x3F
	imms := (word >> 10) & 0x3F

	inst.Is64Bit = sf == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)

	imm, ok := decodeBitMasks(n, immr, imms, inst.Is64Bit)
	if !ok {
		inst.Format = FormatUnknown
		return
	}
	inst.Imm = imm

	switch opc {
	case 0b00:
		inst.Op = OpAND
	case 0b01:
		inst.Op = OpORR
	case 0b10:
		inst.Op = OpEOR
	case 0b11:
		inst.Op = OpAND
		inst.SetFlags = true // ANDS
	}
}

// isMoveWide checks for Move wide immediate.
// Format: sf | opc | 100101 | hw | imm16 | Rd
func (d *Decoder) isMoveWide(word uint32) bool {
	return (word>>23)&0x3F == 0b100101
}

func (d *Decoder) decodeMoveWide(word uint32, inst *Instruction) {
	inst.Format = FormatMoveWide

	opc := (word >> 29) & 0x3
	hw := (word >> 21) & 0x3

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Imm = uint64((word >> 5) & 0xFFFF)
	inst.Shift = uint8(hw * 16)

	switch opc {
	case 0b00:
		inst.Op = OpMOVN
	case 0b10:
		inst.Op = OpMOVZ
	case 0b11:
		inst.Op = OpMOVK
	default:
		inst.Format = FormatUnknown
	}
}

// isBitfield checks for Bitfield (SBFM, BFM, UBFM).
// Format: sf | opc | 100110 | N | immr | imms | Rn | Rd
func (d *Decoder) isBitfield(word uint32) bool {
	return (word>>23)&0x3F == 0b100110
}

func (d *Decoder) decodeBitfield(word uint32, inst *Instruction) {
	inst.Format = FormatBitfield

	opc := (word >> 29) & 0x3

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Imm = uint64((word >> 16) & 0x3F)  // immr
	inst.Imm2 = uint64((word >> 10) & 0x3F) // imms

	switch opc {
	case 0b00:
		inst.Op = OpSBFM
	case 0b01:
		inst.Op = OpBFM
	case 0b10:
		inst.Op = OpUBFM
	default:
		inst.Format = FormatUnknown
	}
}

// isExtract checks for Extract (EXTR).
// Format: sf | 00 | 100111 | N0 | Rm | imms | Rn | Rd
func (d *Decoder) isExtract(word uint32) bool {
	return (word>>23)&0x3F == 0b100111
}

func (d *Decoder) decodeExtract(word uint32, inst *Instruction) {
	inst.Format = FormatExtract
	inst.Op = OpEXTR

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	inst.Imm = uint64((word >> 10) & 0x3F) // lsb
}

// isLogicalReg checks for Logical (shifted register).
// Format: sf | opc | 01010 | shift | N | Rm | imm6 | Rn | Rd
func (d *Decoder) isLogicalReg(word uint32) bool {
	return (word>>24)&0x1F == 0b01010
}

func (d *Decoder) decodeLogicalReg(word uint32, inst *Instruction) {
	inst.Format = FormatDPReg

	opc := (word >> 29) & 0x3
	n := (word >> 21) & 0x1

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	inst.ShiftType = ShiftType((word >> 22) & 0x3)
	inst.ShiftAmount = uint8((word >> 10) & 0x3F)

	switch {
	case opc == 0b00 && n == 0:
		inst.Op = OpAND
	case opc == 0b00 && n == 1:
		inst.Op = OpBIC
	case opc == 0b01 && n == 0:
		inst.Op = OpORR
	case opc == 0b01 && n == 1:
		inst.Op = OpORN
	case opc == 0b10 && n == 0:
		inst.Op = OpEOR
	case opc == 0b10 && n == 1:
		inst.Op = OpEON
	case opc == 0b11 && n == 0:
		inst.Op = OpAND
		inst.SetFlags = true // ANDS
	case opc == 0b11 && n == 1:
		inst.Op = OpBIC
		inst.SetFlags = true // BICS
	}
}

// isAddSubShifted checks for Add/Sub (shifted register).
// Format: sf | op | S | 01011 | shift | 0 | Rm | imm6 | Rn | Rd
func (d *Decoder) isAddSubShifted(word uint32) bool {
	return (word>>24)&0x1F == 0b01011 && (word>>21)&0x1 == 0
}

func (d *Decoder) decodeAddSubShifted(word uint32, inst *Instruction) {
	inst.Format = FormatDPReg

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.SetFlags = (word>>29)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	inst.ShiftType = ShiftType((word >> 22) & 0x3)
	inst.ShiftAmount = uint8((word >> 10) & 0x3F)

	if (word>>30)&0x1 == 0 {
		inst.Op = OpADD
	} else {
		inst.Op = OpSUB
	}
}

// isAddSubExtended checks for Add/Sub (extended register).
// Format: sf | op | S | 01011 | 00 | 1 | Rm | option | imm3 | Rn | Rd
func (d *Decoder) isAddSubExtended(word uint32) bool {
	return (word>>24)&0x1F == 0b01011 && (word>>21)&0x1 == 1
}

func (d *Decoder) decodeAddSubExtended(word uint32, inst *Instruction) {
	inst.Format = FormatAddSubExt

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.SetFlags = (word>>29)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	inst.Extend = ExtendType((word >> 13) & 0x7)
	inst.ShiftAmount = uint8((word >> 10) & 0x7)

	if (word>>30)&0x1 == 0 {
		inst.Op = OpADD
	} else {
		inst.Op = OpSUB
	}
}

// isAddSubCarry checks for Add/Sub with carry (ADC, SBC).
// Format: sf | op | S | 11010000 | Rm | 000000 | Rn | Rd
func (d *Decoder) isAddSubCarry(word uint32) bool {
	return (word>>21)&0xFF == 0b11010000 && (word>>10)&0x3F == 0
}

func (d *Decoder) decodeAddSubCarry(word uint32, inst *Instruction) {
	inst.Format = FormatAddSubCarry

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.SetFlags = (word>>29)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)

	if (word>>30)&0x1 == 0 {
		inst.Op = OpADC
	} else {
		inst.Op = OpSBC
	}
}

// isCondCmp checks for Conditional compare (CCMP, CCMN), register or
// immediate form.
// Format: sf | op | 1 | 11010010 | Rm/imm5 | cond | i | 0 | Rn | 0 | nzcv
func (d *Decoder) isCondCmp(word uint32) bool {
	return (word>>21)&0xFF == 0b11010010 && (word>>29)&0x1 == 1 &&
		(word>>10)&0x1 == 0 && (word>>4)&0x1 == 0
}

func (d *Decoder) decodeCondCmp(word uint32, inst *Instruction) {
	inst.Format = FormatCondCmp

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.SetFlags = true
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Cond = Cond((word >> 12) & 0xF)
	inst.Imm = uint64(word & 0xF) // nzcv

	if (word>>11)&0x1 == 1 {
		// Immediate form; keep Rm as the no-register sentinel.
		inst.Rm = 0xFF
		inst.Imm2 = uint64((word >> 16) & 0x1F)
	} else {
		inst.Rm = uint8((word >> 16) & 0x1F)
	}

	if (word>>30)&0x1 == 0 {
		inst.Op = OpCCMN
	} else {
		inst.Op = OpCCMP
	}
}

// isCondSelect checks for Conditional select (CSEL, CSINC, CSINV, CSNEG).
// Format: sf | op | 0 | 11010100 | Rm | cond | op2 | Rn | Rd
func (d *Decoder) isCondSelect(word uint32) bool {
	return (word>>21)&0xFF == 0b11010100 && (word>>29)&0x1 == 0
}

func (d *Decoder) decodeCondSelect(word uint32, inst *Instruction) {
	inst.Format = FormatCondSelect

	op := (word >> 30) & 0x1
	op2 := (word >> 10) & 0x3

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	inst.Cond = Cond((word >> 12) & 0xF)

	switch {
	case op == 0 && op2 == 0b00:
		inst.Op = OpCSEL
	case op == 0 && op2 == 0b01:
		inst.Op = OpCSINC
	case op == 1 && op2 == 0b00:
		inst.Op = OpCSINV
	case op == 1 && op2 == 0b01:
		inst.Op = OpCSNEG
	default:
		inst.Format = FormatUnknown
	}
}

// isDataProc1Src checks for Data processing (1 source): bit/byte reversals,
// count leading zeros, and the pointer-authentication register forms.
// Format: sf | 1 | S | 11010110 | opcode2 | opcode | Rn | Rd
func (d *Decoder) isDataProc1Src(word uint32) bool {
	return (word>>21)&0xFF == 0b11010110 && (word>>30)&0x1 == 1 &&
		(word>>29)&0x1 == 0
}

func (d *Decoder) decodeDataProc1Src(word uint32, inst *Instruction) {
	inst.Format = FormatDataProc1Src

	opcode2 := (word >> 16) & 0x1F
	opcode := (word >> 10) & 0x3F

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)

	switch opcode2 {
	case 0b00000:
		switch opcode {
		case 0b000000:
			inst.Op = OpRBIT
		case 0b000001:
			inst.Op = OpREV16
		case 0b000010:
			if inst.Is64Bit {
				inst.Op = OpREV32
			} else {
				inst.Op = OpREV
			}
		case 0b000011:
			inst.Op = OpREV
		case 0b000100:
			inst.Op = OpCLZ
		case 0b000101:
			inst.Op = OpCLS
		default:
			inst.Format = FormatUnknown
		}
	case 0b00001:
		// Pointer authentication. All forms are 64-bit only.
		pacOps := [...]Op{
			OpPACIA, OpPACIB, OpPACDA, OpPACDB,
			OpAUTIA, OpAUTIB, OpAUTDA, OpAUTDB,
			OpPACIZA, OpPACIZB, OpPACDZA, OpPACDZB,
			OpAUTIZA, OpAUTIZB, OpAUTDZA, OpAUTDZB,
			OpXPACI, OpXPACD,
		}
		if !inst.Is64Bit || opcode >= uint32(len(pacOps)) {
			inst.Format = FormatUnknown
			return
		}
		inst.Op = pacOps[opcode]
	default:
		inst.Format = FormatUnknown
	}
}

// isDataProc2Src checks for Data processing (2 sources): divides, variable
// shifts, and PACGA.
// Format: sf | 0 | S | 11010110 | Rm | opcode | Rn | Rd
func (d *Decoder) isDataProc2Src(word uint32) bool {
	return (word>>21)&0xFF == 0b11010110 && (word>>30)&0x1 == 0 &&
		(word>>29)&0x1 == 0
}

func (d *Decoder) decodeDataProc2Src(word uint32, inst *Instruction) {
	inst.Format = FormatDataProc2Src

	opcode := (word >> 10) & 0x3F

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)

	switch opcode {
	case 0b000010:
		inst.Op = OpUDIV
	case 0b000011:
		inst.Op = OpSDIV
	case 0b001000:
		inst.Op = OpLSLV
	case 0b001001:
		inst.Op = OpLSRV
	case 0b001010:
		inst.Op = OpASRV
	case 0b001011:
		inst.Op = OpRORV
	case 0b001100:
		inst.Op = OpPACGA
	default:
		inst.Format = FormatUnknown
	}
}

// isDataProc3Src checks for Data processing (3 sources): multiply-add family.
// Format: sf | op54 | 11011 | op31 | Rm | o0 | Ra | Rn | Rd
func (d *Decoder) isDataProc3Src(word uint32) bool {
	return (word>>24)&0x1F == 0b11011
}

func (d *Decoder) decodeDataProc3Src(word uint32, inst *Instruction) {
	inst.Format = FormatDataProc3Src

	op31 := (word >> 21) & 0x7
	o0 := (word >> 15) & 0x1

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Ra = uint8((word >> 10) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)

	switch {
	case op31 == 0b000 && o0 == 0:
		inst.Op = OpMADD
	case op31 == 0b000 && o0 == 1:
		inst.Op = OpMSUB
	case op31 == 0b001 && o0 == 0:
		inst.Op = OpSMADDL
	case op31 == 0b001 && o0 == 1:
		inst.Op = OpSMSUBL
	case op31 == 0b010 && o0 == 0:
		inst.Op = OpSMULH
	case op31 == 0b101 && o0 == 0:
		inst.Op = OpUMADDL
	case op31 == 0b101 && o0 == 1:
		inst.Op = OpUMSUBL
	case op31 == 0b110 && o0 == 0:
		inst.Op = OpUMULH
	default:
		inst.Format = FormatUnknown
	}
}

// isBranchImm checks for unconditional branch immediate (B, BL).
func (d *Decoder) isBranchImm(word uint32) bool {
	op := (word >> 26) & 0x3F
	return op == 0b000101 || op == 0b100101
}

func (d *Decoder) decodeBranchImm(word uint32, inst *Instruction) {
	inst.Format = FormatBranch

	imm26 := uint64(word & 0x3FFFFFF)
	inst.BranchOffset = int64(signExtend(imm26, 26)) * 4

	if (word>>31)&0x1 == 0 {
		inst.Op = OpB
	} else {
		inst.Op = OpBL
	}
}

// isBranchCond checks for conditional branch (B.cond).
func (d *Decoder) isBranchCond(word uint32) bool {
	return (word>>24)&0xFF == 0b01010100 && (word>>4)&0x1 == 0
}

func (d *Decoder) decodeBranchCond(word uint32, inst *Instruction) {
	inst.Format = FormatBranchCond
	inst.Op = OpBCond

	imm19 := uint64((word >> 5) & 0x7FFFF)
	inst.BranchOffset = int64(signExtend(imm19, 19)) * 4
	inst.Cond = Cond(word & 0xF)
}

// isBranchReg checks for unconditional branch to register, including the
// pointer-authenticated variants.
// Format: 1101011 | opc | 11111 | op3 | Rn | op4
func (d *Decoder) isBranchReg(word uint32) bool {
	return (word>>25)&0x7F == 0b1101011 && (word>>16)&0x1F == 0b11111
}

func (d *Decoder) decodeBranchReg(word uint32, inst *Instruction) {
	inst.Format = FormatBranchReg

	opc := (word >> 21) & 0xF
	op3 := (word >> 10) & 0x3F
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8(word & 0x1F) // modifier register for BRAA/BLRAA

	authed := op3 == 0b000010 || op3 == 0b000011
	keyB := op3 == 0b000011

	switch {
	case opc == 0b0000 && op3 == 0:
		inst.Op = OpBR
	case opc == 0b0001 && op3 == 0:
		inst.Op = OpBLR
	case opc == 0b0010 && op3 == 0:
		inst.Op = OpRET
	case opc == 0b0000 && authed:
		inst.Op = pickKey(keyB, OpBRAAZ, OpBRABZ)
	case opc == 0b0001 && authed:
		inst.Op = pickKey(keyB, OpBLRAAZ, OpBLRABZ)
	case opc == 0b0010 && authed:
		inst.Op = pickKey(keyB, OpRETAA, OpRETAB)
		inst.Rn = 30
	case opc == 0b1000 && authed:
		inst.Op = pickKey(keyB, OpBRAA, OpBRAB)
	case opc == 0b1001 && authed:
		inst.Op = pickKey(keyB, OpBLRAA, OpBLRAB)
	default:
		inst.Format = FormatUnknown
	}
}

func pickKey(keyB bool, a, b Op) Op {
	if keyB {
		return b
	}
	return a
}

// isCompareBranch checks for compare and branch (CBZ, CBNZ).
func (d *Decoder) isCompareBranch(word uint32) bool {
	return (word>>25)&0x3F == 0b011010
}

func (d *Decoder) decodeCompareBranch(word uint32, inst *Instruction) {
	inst.Format = FormatCompareBranch

	inst.Is64Bit = (word>>31)&0x1 == 1
	inst.Rd = uint8(word & 0x1F) // Rt
	imm19 := uint64((word >> 5) & 0x7FFFF)
	inst.BranchOffset = int64(signExtend(imm19, 19)) * 4

	if (word>>24)&0x1 == 0 {
		inst.Op = OpCBZ
	} else {
		inst.Op = OpCBNZ
	}
}

// isTestBranch checks for test bit and branch (TBZ, TBNZ).
func (d *Decoder) isTestBranch(word uint32) bool {
	return (word>>25)&0x3F == 0b011011
}

func (d *Decoder) decodeTestBranch(word uint32, inst *Instruction) {
	inst.Format = FormatTestBranch

	b5 := (word >> 31) & 0x1
	b40 := (word >> 19) & 0x1F
	inst.Rd = uint8(word & 0x1F) // Rt
	inst.Imm = uint64(b5<<5 | b40)
	imm14 := uint64((word >> 5) & 0x3FFF)
	inst.BranchOffset = int64(signExtend(imm14, 14)) * 4

	if (word>>24)&0x1 == 0 {
		inst.Op = OpTBZ
	} else {
		inst.Op = OpTBNZ
	}
}

// isException checks for the exception-generation group (SVC, BRK, HLT).
// Format: 11010100 | opc | imm16 | op2 | LL
func (d *Decoder) isException(word uint32) bool {
	return (word>>24)&0xFF == 0b11010100
}

func (d *Decoder) decodeException(word uint32, inst *Instruction) {
	inst.Format = FormatException

	opc := (word >> 21) & 0x7
	ll := word & 0x3
	inst.Imm = uint64((word >> 5) & 0xFFFF)

	switch {
	case opc == 0b000 && ll == 0b01:
		inst.Op = OpSVC
	case opc == 0b001 && ll == 0b00:
		inst.Op = OpBRK
	case opc == 0b010 && ll == 0b00:
		inst.Op = OpHLT
	default:
		inst.Format = FormatUnknown
	}
}

// isSystem checks for the system instruction space: hints (NOP, BTI, PAC
// hints), barriers, CLREX, and MRS/MSR.
func (d *Decoder) isSystem(word uint32) bool {
	return (word>>22)&0x3FF == 0b1101010100
}

func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	inst.Format = FormatSystem

	l := (word >> 21) & 0x1
	op0 := (word >> 19) & 0x3
	crn := (word >> 12) & 0xF
	rt := word & 0x1F

	if op0 >= 2 {
		// MRS/MSR: the system register is identified by the encoded
		// (op0, op1, CRn, CRm, op2) tuple kept in Imm.
		inst.Rd = uint8(rt)
		inst.Imm = uint64((word >> 5) & 0xFFFF)
		if l == 1 {
			inst.Op = OpMRS
		} else {
			inst.Op = OpMSR
		}
		return
	}

	if l == 0 && crn == 0b0010 && rt == 0b11111 {
		d.decodeHint(word, inst)
		return
	}

	if l == 0 && crn == 0b0011 {
		op2 := (word >> 5) & 0x7
		switch op2 {
		case 0b010:
			inst.Op = OpCLREX
		case 0b100:
			inst.Op = OpDSB
		case 0b101:
			inst.Op = OpDMB
		case 0b110:
			inst.Op = OpISB
		default:
			inst.Format = FormatUnknown
		}
		return
	}

	inst.Format = FormatUnknown
}

// decodeHint decodes the hint space (CRn == 0010). The 7-bit hint number is
// CRm:op2.
func (d *Decoder) decodeHint(word uint32, inst *Instruction) {
	hint := (word >> 5) & 0x7F
	inst.Imm = uint64(hint)

	switch hint {
	case 0:
		inst.Op = OpNOP
	case 7:
		inst.Op = OpXPACLRI
	case 8:
		inst.Op = OpPACIA1716
	case 10:
		inst.Op = OpPACIB1716
	case 12:
		inst.Op = OpAUTIA1716
	case 14:
		inst.Op = OpAUTIB1716
	case 24:
		inst.Op = OpPACIAZ
	case 25:
		inst.Op = OpPACIASP
	case 26:
		inst.Op = OpPACIBZ
	case 27:
		inst.Op = OpPACIBSP
	case 28:
		inst.Op = OpAUTIAZ
	case 29:
		inst.Op = OpAUTIASP
	case 30:
		inst.Op = OpAUTIBZ
	case 31:
		inst.Op = OpAUTIBSP
	case 32, 34, 36, 38:
		inst.Op = OpBTI
		inst.Imm2 = uint64((hint >> 1) & 0x3) // 0 none, 1 c, 2 j, 3 jc
	default:
		// Unallocated hints execute as NOP.
		inst.Op = OpHint
	}
}

// signExtend sign-extends the low width bits of value to 64 bits.
func signExtend(value uint64, width uint) uint64 {
	shift := 64 - width
	return uint64(int64(value<<shift) >> shift)
}
