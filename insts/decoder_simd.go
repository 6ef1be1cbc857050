package insts

// isSIMD checks for the advanced SIMD data-processing space.
func (d *Decoder) isSIMD(word uint32) bool {
	if (word>>31)&0x1 != 0 {
		return false
	}
	group := (word >> 24) & 0x1F
	return group == 0b01110 || group == 0b01111
}

func (d *Decoder) decodeSIMD(word uint32, inst *Instruction) {
	switch {
	case d.isSIMDModImm(word):
		d.decodeSIMDModImm(word, inst)
	case d.isSIMDShiftImm(word):
		d.decodeSIMDShiftImm(word, inst)
	case d.isSIMDByElement(word):
		d.decodeSIMDByElement(word, inst)
	case d.isSIMDCopy(word):
		d.decodeSIMDCopy(word, inst)
	case d.isSIMDTwoMisc(word):
		d.decodeSIMDTwoMisc(word, inst)
	case d.isSIMDAcrossLanes(word):
		d.decodeSIMDAcrossLanes(word, inst)
	case d.isSIMDThreeSame(word):
		d.decodeSIMDThreeSame(word, inst)
	}
}

// arrFromSizeQ maps a two-bit element size and the Q bit to an arrangement.
func arrFromSizeQ(size uint32, q bool) Arrangement {
	arrs := [4][2]Arrangement{
		{Arr8B, Arr16B},
		{Arr4H, Arr8H},
		{Arr2S, Arr4S},
		{Arr1D, Arr2D},
	}
	if q {
		return arrs[size][1]
	}
	return arrs[size][0]
}

// isSIMDThreeSame checks for the three-registers-same-size group.
// Format: 0 | Q | U | 01110 | size | 1 | Rm | opcode | 1 | Rn | Rd
func (d *Decoder) isSIMDThreeSame(word uint32) bool {
	return (word>>24)&0x1F == 0b01110 &&
		(word>>21)&0x1 == 1 && (word>>10)&0x1 == 1
}

func (d *Decoder) decodeSIMDThreeSame(word uint32, inst *Instruction) {
	inst.Format = FormatSIMDThreeSame

	q := (word>>30)&0x1 == 1
	u := (word>>29)&0x1 == 1
	size := (word >> 22) & 0x3
	opcode := (word >> 11) & 0x1F

	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	inst.SizeLog2 = uint8(size)
	inst.Arrangement = arrFromSizeQ(size, q)

	if opcode >= 0b11000 {
		d.resolveSIMDThreeSameFP(u, size, opcode, q, inst)
		return
	}

	pick := func(s, uOp Op) {
		if u {
			inst.Op = uOp
		} else {
			inst.Op = s
		}
	}

	switch opcode {
	case 0b00000:
		pick(OpVSHADD, OpVUHADD)
	case 0b00001:
		pick(OpVSQADD, OpVUQADD)
	case 0b00010:
		pick(OpVSRHADD, OpVURHADD)
	case 0b00011:
		d.resolveSIMDBitwise(u, size, inst)
	case 0b00100:
		pick(OpVSHSUB, OpVUHSUB)
	case 0b00101:
		pick(OpVSQSUB, OpVUQSUB)
	case 0b00110:
		pick(OpVCMGT, OpVCMHI)
	case 0b00111:
		pick(OpVCMGE, OpVCMHS)
	case 0b01000:
		pick(OpVSSHL, OpVUSHL)
	case 0b01001:
		pick(OpVSQSHL, OpVUQSHL)
	case 0b01010:
		pick(OpVSRSHL, OpVURSHL)
	case 0b01100:
		pick(OpVSMAX, OpVUMAX)
	case 0b01101:
		pick(OpVSMIN, OpVUMIN)
	case 0b10000:
		pick(OpVADD, OpVSUB)
	case 0b10001:
		pick(OpVCMTST, OpVCMEQ)
	case 0b10010:
		pick(OpVMLA, OpVMLS)
	case 0b10011:
		if u {
			inst.Format = FormatUnknown // PMUL
		} else {
			inst.Op = OpVMUL
		}
	case 0b10111:
		if u {
			inst.Format = FormatUnknown
		} else {
			inst.Op = OpVADDP
		}
	default:
		inst.Format = FormatUnknown
	}
}

// resolveSIMDBitwise maps the size-selected bitwise opcode (AND family for
// U=0, EOR family for U=1).
func (d *Decoder) resolveSIMDBitwise(u bool, size uint32, inst *Instruction) {
	if u {
		ops := [...]Op{OpVEOR, OpVBSL, OpVBIT, OpVBIF}
		inst.Op = ops[size]
	} else {
		ops := [...]Op{OpVAND, OpVBIC, OpVORR, OpVORN}
		inst.Op = ops[size]
	}
	// Bitwise operations are size-agnostic; use a byte arrangement.
	if (inst.Raw>>30)&0x1 == 1 {
		inst.Arrangement = Arr16B
	} else {
		inst.Arrangement = Arr8B
	}
}

// resolveSIMDThreeSameFP maps the floating-point three-same opcodes. The
// element size is carried in size<0> (0 single, 1 double); size<1> splits
// opcode pairs.
func (d *Decoder) resolveSIMDThreeSameFP(u bool, size, opcode uint32, q bool, inst *Instruction) {
	szHigh := size>>1 == 1
	if size&0x1 == 1 {
		inst.SizeLog2 = 3
		inst.Arrangement = Arr2D
		if !q {
			inst.Format = FormatUnknown
			return
		}
	} else {
		inst.SizeLog2 = 2
		if q {
			inst.Arrangement = Arr4S
		} else {
			inst.Arrangement = Arr2S
		}
	}

	switch {
	case opcode == 0b11000 && !u && !szHigh:
		inst.Op = OpVFMAXNM
	case opcode == 0b11000 && !u && szHigh:
		inst.Op = OpVFMINNM
	case opcode == 0b11001 && !u && !szHigh:
		inst.Op = OpVFMLA
	case opcode == 0b11001 && !u && szHigh:
		inst.Op = OpVFMLS
	case opcode == 0b11010 && !u && !szHigh:
		inst.Op = OpVFADD
	case opcode == 0b11010 && !u && szHigh:
		inst.Op = OpVFSUB
	case opcode == 0b11011 && u && !szHigh:
		inst.Op = OpVFMUL
	case opcode == 0b11100 && !u && !szHigh:
		inst.Op = OpVFCMEQ
	case opcode == 0b11100 && u && !szHigh:
		inst.Op = OpVFCMGE
	case opcode == 0b11100 && u && szHigh:
		inst.Op = OpVFCMGT
	case opcode == 0b11110 && !u && !szHigh:
		inst.Op = OpVFMAX
	case opcode == 0b11110 && !u && szHigh:
		inst.Op = OpVFMIN
	case opcode == 0b11111 && u && !szHigh:
		inst.Op = OpVFDIV
	default:
		inst.Format = FormatUnknown
	}
}

// isSIMDTwoMisc checks for the two-register miscellaneous group.
// Format: 0 | Q | U | 01110 | size | 10000 | opcode | 10 | Rn | Rd
func (d *Decoder) isSIMDTwoMisc(word uint32) bool {
	return (word>>24)&0x1F == 0b01110 &&
		(word>>17)&0x1F == 0b10000 && (word>>10)&0x3 == 0b10
}

func (d *Decoder) decodeSIMDTwoMisc(word uint32, inst *Instruction) {
	inst.Format = FormatSIMDTwoMisc

	q := (word>>30)&0x1 == 1
	u := (word>>29)&0x1 == 1
	size := (word >> 22) & 0x3
	opcode := (word >> 12) & 0x1F

	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.SizeLog2 = uint8(size)
	inst.Arrangement = arrFromSizeQ(size, q)

	switch {
	case opcode == 0b00000 && !u:
		inst.Op = OpVREV64
	case opcode == 0b00101 && !u && size == 0b00:
		inst.Op = OpVCNT
	case opcode == 0b00101 && u && size == 0b00:
		inst.Op = OpVNOT
	case opcode == 0b01000:
		if u {
			inst.Op = OpVCMGE0
		} else {
			inst.Op = OpVCMGT0
		}
	case opcode == 0b01001:
		if u {
			inst.Op = OpVCMLE0
		} else {
			inst.Op = OpVCMEQ0
		}
	case opcode == 0b01010 && !u:
		inst.Op = OpVCMLT0
	case opcode == 0b01011:
		if u {
			inst.Op = OpVNEG
		} else {
			inst.Op = OpVABS
		}
	default:
		d.resolveSIMDTwoMiscFP(u, size, opcode, q, inst)
	}
}

// resolveSIMDTwoMiscFP maps the floating-point two-misc opcodes (FABS,
// FNEG, FSQRT, the FRINT family, and the int/float conversions).
func (d *Decoder) resolveSIMDTwoMiscFP(u bool, size, opcode uint32, q bool, inst *Instruction) {
	szHigh := size>>1 == 1
	if size&0x1 == 1 {
		inst.SizeLog2 = 3
		inst.Arrangement = Arr2D
		if !q {
			inst.Format = FormatUnknown
			return
		}
	} else {
		inst.SizeLog2 = 2
		if q {
			inst.Arrangement = Arr4S
		} else {
			inst.Arrangement = Arr2S
		}
	}

	switch {
	case opcode == 0b01111 && !u && szHigh:
		inst.Op = OpVFABS
	case opcode == 0b01111 && u && szHigh:
		inst.Op = OpVFNEG
	case opcode == 0b11111 && u && szHigh:
		inst.Op = OpVFSQRT
	case opcode == 0b11000 && !u && !szHigh:
		inst.Op = OpVFRINTN
	case opcode == 0b11001 && !u && !szHigh:
		inst.Op = OpVFRINTM
	case opcode == 0b11000 && !u && szHigh:
		inst.Op = OpVFRINTP
	case opcode == 0b11001 && !u && szHigh:
		inst.Op = OpVFRINTZ
	case opcode == 0b11000 && u && !szHigh:
		inst.Op = OpVFRINTA
	case opcode == 0b11001 && u && !szHigh:
		inst.Op = OpVFRINTX
	case opcode == 0b11001 && u && szHigh:
		inst.Op = OpVFRINTI
	case opcode == 0b11101 && !u && !szHigh:
		inst.Op = OpVSCVTF
	case opcode == 0b11101 && u && !szHigh:
		inst.Op = OpVUCVTF
	case opcode == 0b11011 && !u && szHigh:
		inst.Op = OpVFCVTZS
	case opcode == 0b11011 && u && szHigh:
		inst.Op = OpVFCVTZU
	default:
		inst.Format = FormatUnknown
	}
}

// isSIMDAcrossLanes checks for the across-lanes reduction group.
// Format: 0 | Q | U | 01110 | size | 11000 | opcode | 10 | Rn | Rd
func (d *Decoder) isSIMDAcrossLanes(word uint32) bool {
	return (word>>24)&0x1F == 0b01110 &&
		(word>>17)&0x1F == 0b11000 && (word>>10)&0x3 == 0b10
}

func (d *Decoder) decodeSIMDAcrossLanes(word uint32, inst *Instruction) {
	inst.Format = FormatSIMDAcrossLanes

	q := (word>>30)&0x1 == 1
	u := (word>>29)&0x1 == 1
	size := (word >> 22) & 0x3
	opcode := (word >> 12) & 0x1F

	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.SizeLog2 = uint8(size)
	inst.Arrangement = arrFromSizeQ(size, q)

	switch {
	case opcode == 0b11011 && !u:
		inst.Op = OpVADDV
	case opcode == 0b01010:
		if u {
			inst.Op = OpVUMAXV
		} else {
			inst.Op = OpVSMAXV
		}
	case opcode == 0b11010:
		if u {
			inst.Op = OpVUMINV
		} else {
			inst.Op = OpVSMINV
		}
	default:
		inst.Format = FormatUnknown
	}
}

// isSIMDCopy checks for the copy group: DUP, SMOV, UMOV, and INS.
// Format: 0 | Q | op | 01110000 | imm5 | 0 | imm4 | 1 | Rn | Rd
func (d *Decoder) isSIMDCopy(word uint32) bool {
	return (word>>21)&0xFF == 0b01110000 &&
		(word>>15)&0x1 == 0 && (word>>10)&0x1 == 1
}

func (d *Decoder) decodeSIMDCopy(word uint32, inst *Instruction) {
	inst.Format = FormatSIMDCopy

	q := (word>>30)&0x1 == 1
	op := (word >> 29) & 0x1
	imm5 := (word >> 16) & 0x1F
	imm4 := (word >> 11) & 0xF

	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)

	// The element size is the position of the lowest set bit of imm5, and
	// the lane index is the bits above it.
	var sizeLog2 uint8
	switch {
	case imm5&0x1 == 1:
		sizeLog2 = 0
	case imm5&0x2 == 0x2:
		sizeLog2 = 1
	case imm5&0x4 == 0x4:
		sizeLog2 = 2
	case imm5&0x8 == 0x8:
		sizeLog2 = 3
	default:
		inst.Format = FormatUnknown
		return
	}
	inst.SizeLog2 = sizeLog2
	inst.ElemIndex = uint8(imm5 >> (sizeLog2 + 1))
	inst.Arrangement = arrFromSizeQ(uint32(sizeLog2), q)
	inst.Is64Bit = sizeLog2 == 3

	if op == 1 {
		// INS (element): imm4 carries the source lane index.
		inst.Op = OpVINSElem
		inst.Imm2 = uint64(imm4 >> sizeLog2)
		return
	}

	switch imm4 {
	case 0b0000:
		inst.Op = OpVDUPElem
	case 0b0001:
		inst.Op = OpVDUPGen
	case 0b0011:
		inst.Op = OpVINSGen
	case 0b0101:
		inst.Op = OpVSMOV
		inst.Is64Bit = q
	case 0b0111:
		inst.Op = OpVUMOV
		inst.Is64Bit = q
	default:
		inst.Format = FormatUnknown
	}
}

// isSIMDModImm checks for the modified-immediate group: MOVI, MVNI, vector
// ORR/BIC immediate, and FMOV immediate.
// Format: 0 | Q | op | 0111100000 | abc | cmode | o2 | 1 | defgh | Rd
func (d *Decoder) isSIMDModImm(word uint32) bool {
	return (word>>19)&0x3FF == 0b0111100000 && (word>>10)&0x1 == 1
}

func (d *Decoder) decodeSIMDModImm(word uint32, inst *Instruction) {
	inst.Format = FormatSIMDModImm

	q := (word>>30)&0x1 == 1
	op := (word >> 29) & 0x1
	cmode := (word >> 12) & 0xF
	o2 := (word >> 11) & 0x1
	abc := uint64((word >> 16) & 0x7)
	defgh := uint64((word >> 5) & 0x1F)

	if o2 != 0 {
		inst.Format = FormatUnknown
		return
	}

	inst.Rd = uint8(word & 0x1F)

	imm, instOp, arr := expandSIMDImm(q, op, cmode, abc<<5|defgh)
	if instOp == OpUnknown {
		inst.Format = FormatUnknown
		return
	}
	inst.Op = instOp
	inst.Imm = imm
	inst.Arrangement = arr
}

// isSIMDShiftImm checks for the shift-by-immediate group. immh must be
// non-zero; immh == 0 is the modified-immediate space.
// Format: 0 | Q | U | 011110 | immh | immb | opcode | 1 | Rn | Rd
func (d *Decoder) isSIMDShiftImm(word uint32) bool {
	return (word>>23)&0x3F == 0b011110 &&
		(word>>19)&0xF != 0 && (word>>10)&0x1 == 1
}

func (d *Decoder) decodeSIMDShiftImm(word uint32, inst *Instruction) {
	inst.Format = FormatSIMDShiftImm

	q := (word>>30)&0x1 == 1
	u := (word>>29)&0x1 == 1
	immh := (word >> 19) & 0xF
	immb := (word >> 16) & 0x7
	opcode := (word >> 11) & 0x1F

	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)

	// The element size is the position of the highest set bit of immh.
	var sizeLog2 uint8
	switch {
	case immh&0x8 == 0x8:
		sizeLog2 = 3
	case immh&0x4 == 0x4:
		sizeLog2 = 2
	case immh&0x2 == 0x2:
		sizeLog2 = 1
	default:
		sizeLog2 = 0
	}
	inst.SizeLog2 = sizeLog2
	inst.Arrangement = arrFromSizeQ(uint32(sizeLog2), q)

	esize := uint32(8) << sizeLog2
	immhb := immh<<3 | immb

	switch opcode {
	case 0b00000:
		inst.Imm = uint64(esize*2 - immhb) // right-shift amount
		if u {
			inst.Op = OpVUSHR
		} else {
			inst.Op = OpVSSHR
		}
	case 0b01010:
		if u {
			inst.Format = FormatUnknown
			return
		}
		inst.Op = OpVSHLImm
		inst.Imm = uint64(immhb - esize)
	case 0b01110:
		inst.Imm = uint64(immhb - esize)
		if u {
			inst.Op = OpVUQSHLImm
		} else {
			inst.Op = OpVSQSHLImm
		}
	default:
		inst.Format = FormatUnknown
	}
}

// isSIMDByElement checks for the vector-by-element group.
// Format: 0 | Q | U | 01111 | size | L | M | Rm | opcode | H | 0 | Rn | Rd
func (d *Decoder) isSIMDByElement(word uint32) bool {
	return (word>>24)&0x1F == 0b01111 && (word>>10)&0x1 == 0
}

func (d *Decoder) decodeSIMDByElement(word uint32, inst *Instruction) {
	inst.Format = FormatSIMDByElement

	q := (word>>30)&0x1 == 1
	u := (word>>29)&0x1 == 1
	size := (word >> 22) & 0x3
	l := (word >> 21) & 0x1
	m := (word >> 20) & 0x1
	rm4 := (word >> 16) & 0xF
	opcode := (word >> 12) & 0xF
	h := (word >> 11) & 0x1

	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)

	switch size {
	case 0b01:
		inst.SizeLog2 = 1
		inst.ElemIndex = uint8(h<<2 | l<<1 | m)
		inst.Rm = uint8(rm4)
	case 0b10:
		inst.SizeLog2 = 2
		inst.ElemIndex = uint8(h<<1 | l)
		inst.Rm = uint8(m<<4 | rm4)
	case 0b11:
		inst.SizeLog2 = 3
		inst.ElemIndex = uint8(h)
		inst.Rm = uint8(m<<4 | rm4)
	default:
		inst.Format = FormatUnknown
		return
	}
	inst.Arrangement = arrFromSizeQ(uint32(inst.SizeLog2), q)

	switch {
	case opcode == 0b1000 && !u && size <= 0b10:
		inst.Op = OpVMULElem
	case opcode == 0b0000 && u && size <= 0b10:
		inst.Op = OpVMLAElem
	case opcode == 0b0100 && u && size <= 0b10:
		inst.Op = OpVMLSElem
	case opcode == 0b1001 && !u && size >= 0b10:
		inst.Op = OpVFMULElem
	case opcode == 0b0001 && !u && size >= 0b10:
		inst.Op = OpVFMLAElem
	case opcode == 0b0101 && !u && size >= 0b10:
		inst.Op = OpVFMLSElem
	default:
		inst.Format = FormatUnknown
	}
}

// isFPCompare checks for scalar floating-point compare (FCMP, FCMPE).
// Format: 00011110 | ftype | 1 | Rm | 001000 | Rn | opcode2
func (d *Decoder) isFPCompare(word uint32) bool {
	return word&0xFFA0FC07 == 0x1E202000
}

func (d *Decoder) decodeFPCompare(word uint32, inst *Instruction) {
	inst.Format = FormatFPCompare

	inst.Is64Bit = (word>>22)&0x1 == 1
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)

	if (word>>3)&0x1 == 1 {
		// Compare against +0.0; keep Rm as the no-register sentinel.
		inst.Rm = 0xFF
	}
	if (word>>4)&0x1 == 1 {
		inst.Op = OpFCMPE
	} else {
		inst.Op = OpFCMP
	}
}

// isFPCondSelect checks for scalar floating-point conditional select.
// Format: 00011110 | ftype | 1 | Rm | cond | 11 | Rn | Rd
func (d *Decoder) isFPCondSelect(word uint32) bool {
	return word&0xFFA00C00 == 0x1E200C00
}

func (d *Decoder) decodeFPCondSelect(word uint32, inst *Instruction) {
	inst.Format = FormatFPCondSelect
	inst.Op = OpFCSEL

	inst.Is64Bit = (word>>22)&0x1 == 1
	inst.Rd = uint8(word & 0x1F)
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rm = uint8((word >> 16) & 0x1F)
	inst.Cond = Cond((word >> 12) & 0xF)
}
