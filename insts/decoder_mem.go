package insts

// isLoadStoreExclusive checks for the exclusive/ordered access group: LDXR,
// STXR, exclusive pairs, LDAR/STLR, CAS, and CASP.
// Format: size | 001000 | o2 | L | o1 | Rs | o0 | Rt2 | Rn | Rt
func (d *Decoder) isLoadStoreExclusive(word uint32) bool {
	return (word>>24)&0x3F == 0b001000
}

func (d *Decoder) decodeLoadStoreExclusive(word uint32, inst *Instruction) {
	inst.Format = FormatLoadStoreExclusive

	size := (word >> 30) & 0x3
	o2 := (word >> 23) & 0x1
	l := (word >> 22) & 0x1
	o1 := (word >> 21) & 0x1
	o0 := (word >> 15) & 0x1

	inst.Rd = uint8(word & 0x1F) // Rt
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rs = uint8((word >> 16) & 0x1F)
	inst.Rt2 = uint8((word >> 10) & 0x1F)
	inst.SizeLog2 = uint8(size)
	inst.Is64Bit = size == 0b11

	switch {
	case o2 == 0 && o1 == 0:
		if l == 1 {
			inst.Op = OpLDXR
			inst.Acquire = o0 == 1
			if inst.Acquire {
				inst.Op = OpLDAXR
			}
		} else {
			inst.Op = OpSTXR
			inst.Release = o0 == 1
			if inst.Release {
				inst.Op = OpSTLXR
			}
		}
	case o2 == 0 && o1 == 1 && size >= 0b10:
		// Exclusive pairs, 32-bit or 64-bit registers.
		inst.Is64Bit = size == 0b11
		if l == 1 {
			inst.Op = OpLDXP
			inst.Acquire = o0 == 1
			if inst.Acquire {
				inst.Op = OpLDAXP
			}
		} else {
			inst.Op = OpSTXP
			inst.Release = o0 == 1
			if inst.Release {
				inst.Op = OpSTLXP
			}
		}
	case o2 == 0 && o1 == 1 && size <= 0b01:
		// CASP: size<0> selects the register width of the pair.
		inst.Op = OpCASP
		inst.SizeLog2 = uint8(2 + (size & 1))
		inst.Is64Bit = size&1 == 1
		inst.Acquire = l == 1
		inst.Release = o0 == 1
	case o2 == 1 && o1 == 0:
		if l == 1 {
			inst.Op = OpLDAR
			inst.Acquire = true
		} else {
			inst.Op = OpSTLR
			inst.Release = true
		}
	case o2 == 1 && o1 == 1:
		inst.Op = OpCAS
		inst.Acquire = l == 1
		inst.Release = o0 == 1
	default:
		inst.Format = FormatUnknown
	}
}

// isAtomicMemory checks for the atomic read-modify-write group: LDADD family,
// SWP, and LDAPR.
// Format: size | 111000 | A | R | 1 | Rs | o3 | opc | 00 | Rn | Rt
func (d *Decoder) isAtomicMemory(word uint32) bool {
	return (word>>24)&0x3F == 0b111000 &&
		(word>>21)&0x1 == 1 && (word>>10)&0x3 == 0b00
}

func (d *Decoder) decodeAtomicMemory(word uint32, inst *Instruction) {
	inst.Format = FormatAtomicMemory

	size := (word >> 30) & 0x3
	a := (word >> 23) & 0x1
	r := (word >> 22) & 0x1
	o3 := (word >> 15) & 0x1
	opc := (word >> 12) & 0x7

	inst.Rd = uint8(word & 0x1F) // Rt
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rs = uint8((word >> 16) & 0x1F)
	inst.SizeLog2 = uint8(size)
	inst.Is64Bit = size == 0b11
	inst.Acquire = a == 1
	inst.Release = r == 1

	if o3 == 0 {
		rmwOps := [...]Op{
			OpLDADD, OpLDCLR, OpLDEOR, OpLDSET,
			OpLDSMAX, OpLDSMIN, OpLDUMAX, OpLDUMIN,
		}
		inst.Op = rmwOps[opc]
		return
	}

	switch {
	case opc == 0b000:
		inst.Op = OpSWP
	case opc == 0b100 && a == 1 && r == 0 && inst.Rs == 0b11111:
		inst.Op = OpLDAPR
	default:
		inst.Format = FormatUnknown
	}
}

// isLoadStoreLit checks for load literal (LDR, LDRSW, PRFM, SIMD LDR).
// Format: opc | 011 | V | 00 | imm19 | Rt
func (d *Decoder) isLoadStoreLit(word uint32) bool {
	return (word>>27)&0x7 == 0b011 && (word>>24)&0x3 == 0b00
}

func (d *Decoder) decodeLoadStoreLit(word uint32, inst *Instruction) {
	inst.Format = FormatLoadStoreLit

	opc := (word >> 30) & 0x3
	v := (word >> 26) & 0x1

	inst.Rd = uint8(word & 0x1F) // Rt
	imm19 := uint64((word >> 5) & 0x7FFFF)
	inst.BranchOffset = int64(signExtend(imm19, 19)) * 4

	if v == 1 {
		if opc == 0b11 {
			inst.Format = FormatUnknown
			return
		}
		inst.Op = OpLDRVLit
		inst.SizeLog2 = uint8(2 + opc)
		return
	}

	switch opc {
	case 0b00:
		inst.Op = OpLDRLit
		inst.SizeLog2 = 2
	case 0b01:
		inst.Op = OpLDRLit
		inst.SizeLog2 = 3
		inst.Is64Bit = true
	case 0b10:
		inst.Op = OpLDRSWLit
		inst.SizeLog2 = 2
		inst.Is64Bit = true
	case 0b11:
		inst.Op = OpPRFM
		inst.SizeLog2 = 3
	}
}

// isLoadStorePair checks for load/store pair (LDP, STP, LDPSW, SIMD pairs).
// Format: opc | 101 | V | 0 | mode | L | imm7 | Rt2 | Rn | Rt
func (d *Decoder) isLoadStorePair(word uint32) bool {
	return (word>>25)&0x1F == 0b10100
}

func (d *Decoder) decodeLoadStorePair(word uint32, inst *Instruction) {
	inst.Format = FormatLoadStorePair

	opc := (word >> 30) & 0x3
	v := (word >> 26) & 0x1
	mode := (word >> 23) & 0x3
	l := (word >> 22) & 0x1

	inst.Rd = uint8(word & 0x1F) // Rt
	inst.Rn = uint8((word >> 5) & 0x1F)
	inst.Rt2 = uint8((word >> 10) & 0x1F)

	switch mode {
	case 0b01:
		inst.IndexMode = IndexPost
	case 0b10, 0b00: // non-temporal hint behaves as a plain offset access
		inst.IndexMode = IndexOffset
	case 0b11:
		inst.IndexMode = IndexPre
	}

	if v == 1 {
		if opc == 0b11 {
			inst.Format = FormatUnknown
			return
		}
		inst.SizeLog2 = uint8(2 + opc)
		if l == 1 {
			inst.Op = OpLDPV
		} else {
			inst.Op = OpSTPV
		}
	} else {
		switch {
		case opc == 0b00:
			inst.SizeLog2 = 2
		case opc == 0b10:
			inst.SizeLog2 = 3
			inst.Is64Bit = true
		case opc == 0b01 && l == 1:
			inst.Op = OpLDPSW
			inst.SizeLog2 = 2
			inst.Is64Bit = true
		default:
			inst.Format = FormatUnknown
			return
		}
		if inst.Op == OpUnknown {
			if l == 1 {
				inst.Op = OpLDP
			} else {
				inst.Op = OpSTP
			}
		}
	}

	imm7 := uint64((word >> 15) & 0x7F)
	inst.SignedImm = int64(signExtend(imm7, 7)) << inst.SizeLog2
}

// isLoadStore checks for the single-register load/store group: unsigned
// immediate, unscaled immediate, pre/post-index, and register offset, for
// both integer and SIMD&FP registers.
// Format: size | 111 | V | 0 0/1 | opc | ... | Rn | Rt
func (d *Decoder) isLoadStore(word uint32) bool {
	if (word>>27)&0x7 != 0b111 {
		return false
	}
	sel := (word >> 24) & 0x3
	return sel == 0b01 || sel == 0b00
}

func (d *Decoder) decodeLoadStore(word uint32, inst *Instruction) {
	inst.Format = FormatLoadStore

	size := (word >> 30) & 0x3
	v := (word >> 26) & 0x1
	opc := (word >> 22) & 0x3

	inst.Rd = uint8(word & 0x1F) // Rt
	inst.Rn = uint8((word >> 5) & 0x1F)

	scale := size
	if v == 1 {
		scale = size | ((opc & 0x2) << 1)
		if scale > 4 {
			inst.Format = FormatUnknown
			return
		}
	}
	inst.SizeLog2 = uint8(scale)

	if !d.resolveLoadStoreOp(size, v, opc, inst) {
		inst.Format = FormatUnknown
		return
	}

	if (word>>24)&0x3 == 0b01 {
		// Unsigned scaled 12-bit immediate offset.
		inst.IndexMode = IndexOffset
		inst.SignedImm = int64((word>>10)&0xFFF) << scale
		return
	}

	if (word>>21)&0x1 == 1 {
		if (word>>10)&0x3 != 0b10 {
			inst.Format = FormatUnknown
			return
		}
		inst.IndexMode = IndexReg
		inst.Rm = uint8((word >> 16) & 0x1F)
		inst.Extend = ExtendType((word >> 13) & 0x7)
		if (word>>12)&0x1 == 1 {
			inst.ShiftAmount = uint8(scale)
		}
		return
	}

	imm9 := uint64((word >> 12) & 0x1FF)
	inst.SignedImm = int64(signExtend(imm9, 9))
	switch (word >> 10) & 0x3 {
	case 0b00: // unscaled (LDUR/STUR family)
		inst.IndexMode = IndexOffset
	case 0b01:
		inst.IndexMode = IndexPost
	case 0b11:
		inst.IndexMode = IndexPre
	default: // unprivileged LDTR/STTR forms
		inst.Format = FormatUnknown
	}
}

// resolveLoadStoreOp maps the (size, V, opc) triple of a single-register
// load/store to an operation tag. Returns false for unallocated encodings.
func (d *Decoder) resolveLoadStoreOp(size, v, opc uint32, inst *Instruction) bool {
	if v == 1 {
		if opc&0x1 == 1 {
			inst.Op = OpLDRV
		} else {
			inst.Op = OpSTRV
		}
		return true
	}

	switch size {
	case 0b00:
		switch opc {
		case 0b00:
			inst.Op = OpSTRB
		case 0b01:
			inst.Op = OpLDRB
		case 0b10:
			inst.Op = OpLDRSB
			inst.Is64Bit = true
		case 0b11:
			inst.Op = OpLDRSB
		}
	case 0b01:
		switch opc {
		case 0b00:
			inst.Op = OpSTRH
		case 0b01:
			inst.Op = OpLDRH
		case 0b10:
			inst.Op = OpLDRSH
			inst.Is64Bit = true
		case 0b11:
			inst.Op = OpLDRSH
		}
	case 0b10:
		switch opc {
		case 0b00:
			inst.Op = OpSTR
		case 0b01:
			inst.Op = OpLDR
		case 0b10:
			inst.Op = OpLDRSW
			inst.Is64Bit = true
		default:
			return false
		}
	case 0b11:
		inst.Is64Bit = true
		switch opc {
		case 0b00:
			inst.Op = OpSTR
		case 0b01:
			inst.Op = OpLDR
		case 0b10:
			inst.Op = OpPRFM
		default:
			return false
		}
	}
	return true
}
