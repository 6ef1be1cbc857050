package emu

import "github.com/sarchlab/a64sim/insts"

// loadStoreBase reads the base register of a memory access. Register 31 is
// SP; using SP as a base requires 16-byte alignment.
func (e *Emulator) loadStoreBase(inst *insts.Instruction) uint64 {
	base := e.regFile.Read(inst.Rn, Reg31IsSP)
	if inst.Rn == 31 && base%16 != 0 {
		e.fatalf("misaligned stack pointer 0x%X used as base register", base)
	}
	return base
}

// loadStoreAddress resolves the access address for the given addressing
// mode. Writeback for pre/post-index modes happens in loadStoreWriteback.
func (e *Emulator) loadStoreAddress(inst *insts.Instruction, base uint64) uint64 {
	switch inst.IndexMode {
	case insts.IndexPost:
		return base
	case insts.IndexReg:
		offset := ExtendValue(e.regFile.ReadReg(inst.Rm),
			inst.Extend, inst.ShiftAmount)
		return base + offset
	default: // offset and pre-index
		return uint64(int64(base) + inst.SignedImm)
	}
}

// loadStoreWriteback updates the base register for pre/post-index modes.
func (e *Emulator) loadStoreWriteback(inst *insts.Instruction, base uint64) {
	if inst.IndexMode != insts.IndexPre && inst.IndexMode != insts.IndexPost {
		return
	}
	e.regFile.Write(inst.Rn, uint64(int64(base)+inst.SignedImm), Reg31IsSP)
}

// executeLoadStore executes the single-register loads and stores,
// including the SIMD&FP register forms.
func (e *Emulator) executeLoadStore(inst *insts.Instruction) {
	base := e.loadStoreBase(inst)
	addr := e.loadStoreAddress(inst, base)

	switch inst.Op {
	case insts.OpLDR, insts.OpLDRB, insts.OpLDRH:
		e.regFile.WriteReg(inst.Rd, e.memory.ReadSized(addr, inst.SizeLog2))
	case insts.OpLDRSB:
		e.regFile.WriteReg(inst.Rd,
			signExtendLoad(uint64(e.memory.Read8(addr)), 8, inst.Is64Bit))
	case insts.OpLDRSH:
		e.regFile.WriteReg(inst.Rd,
			signExtendLoad(uint64(e.memory.Read16(addr)), 16, inst.Is64Bit))
	case insts.OpLDRSW:
		e.regFile.WriteReg(inst.Rd,
			signExtendLoad(uint64(e.memory.Read32(addr)), 32, true))
	case insts.OpSTR, insts.OpSTRB, insts.OpSTRH:
		e.memory.WriteSized(addr, inst.SizeLog2, e.regFile.ReadReg(inst.Rd))
	case insts.OpLDRV:
		if inst.SizeLog2 == 4 {
			lo, hi := e.memory.Read128(addr)
			e.vecFile.WriteVec(inst.Rd, lo, hi)
		} else {
			value := e.memory.ReadSized(addr, inst.SizeLog2)
			e.vecFile.WriteScalar(inst.Rd, value, inst.SizeLog2)
		}
	case insts.OpSTRV:
		if inst.SizeLog2 == 4 {
			lo, hi := e.vecFile.ReadVec(inst.Rd)
			e.memory.Write128(addr, lo, hi)
		} else {
			e.memory.WriteSized(addr, inst.SizeLog2,
				e.vecFile.ReadScalar(inst.Rd))
		}
	case insts.OpPRFM:
		// Prefetch is a hint; nothing to do functionally.
	}

	e.loadStoreWriteback(inst, base)
}

// signExtendLoad sign-extends a loaded value of the given width to the
// register width.
func signExtendLoad(value uint64, width uint, is64 bool) uint64 {
	shift := 64 - width
	result := uint64(int64(value<<shift) >> shift)
	if !is64 {
		result = uint64(uint32(result))
	}
	return result
}

// executeLoadStoreLit executes the PC-relative literal loads.
func (e *Emulator) executeLoadStoreLit(inst *insts.Instruction) {
	addr := uint64(int64(e.regFile.PC) + inst.BranchOffset)

	switch inst.Op {
	case insts.OpLDRLit:
		e.regFile.WriteReg(inst.Rd, e.memory.ReadSized(addr, inst.SizeLog2))
	case insts.OpLDRSWLit:
		e.regFile.WriteReg(inst.Rd,
			signExtendLoad(uint64(e.memory.Read32(addr)), 32, true))
	case insts.OpLDRVLit:
		if inst.SizeLog2 == 4 {
			lo, hi := e.memory.Read128(addr)
			e.vecFile.WriteVec(inst.Rd, lo, hi)
		} else {
			value := e.memory.ReadSized(addr, inst.SizeLog2)
			e.vecFile.WriteScalar(inst.Rd, value, inst.SizeLog2)
		}
	case insts.OpPRFM:
		// Prefetch hint.
	}
}

// executeLoadStorePair executes LDP, STP, LDPSW, and the SIMD&FP pair
// forms.
func (e *Emulator) executeLoadStorePair(inst *insts.Instruction) {
	base := e.loadStoreBase(inst)
	addr := e.loadStoreAddress(inst, base)
	elemSize := uint64(1) << inst.SizeLog2

	switch inst.Op {
	case insts.OpLDP:
		e.regFile.WriteReg(inst.Rd, e.memory.ReadSized(addr, inst.SizeLog2))
		e.regFile.WriteReg(inst.Rt2,
			e.memory.ReadSized(addr+elemSize, inst.SizeLog2))
	case insts.OpLDPSW:
		e.regFile.WriteReg(inst.Rd,
			signExtendLoad(uint64(e.memory.Read32(addr)), 32, true))
		e.regFile.WriteReg(inst.Rt2,
			signExtendLoad(uint64(e.memory.Read32(addr+elemSize)), 32, true))
	case insts.OpSTP:
		e.memory.WriteSized(addr, inst.SizeLog2, e.regFile.ReadReg(inst.Rd))
		e.memory.WriteSized(addr+elemSize, inst.SizeLog2,
			e.regFile.ReadReg(inst.Rt2))
	case insts.OpLDPV:
		e.loadVecPairElem(inst.Rd, addr, inst.SizeLog2)
		e.loadVecPairElem(inst.Rt2, addr+elemSize, inst.SizeLog2)
	case insts.OpSTPV:
		e.storeVecPairElem(inst.Rd, addr, inst.SizeLog2)
		e.storeVecPairElem(inst.Rt2, addr+elemSize, inst.SizeLog2)
	}

	e.loadStoreWriteback(inst, base)
}

func (e *Emulator) loadVecPairElem(reg uint8, addr uint64, sizeLog2 uint8) {
	if sizeLog2 == 4 {
		lo, hi := e.memory.Read128(addr)
		e.vecFile.WriteVec(reg, lo, hi)
		return
	}
	e.vecFile.WriteScalar(reg, e.memory.ReadSized(addr, sizeLog2), sizeLog2)
}

func (e *Emulator) storeVecPairElem(reg uint8, addr uint64, sizeLog2 uint8) {
	if sizeLog2 == 4 {
		lo, hi := e.vecFile.ReadVec(reg)
		e.memory.Write128(addr, lo, hi)
		return
	}
	e.memory.WriteSized(addr, sizeLog2, e.vecFile.ReadScalar(reg))
}

// requireAligned aborts on an access the architecture traps on:
// exclusives and atomics must be naturally aligned.
func (e *Emulator) requireAligned(addr uint64, sizeLog2 uint8, what string) {
	size := uint64(1) << sizeLog2
	if addr%size != 0 {
		e.fatalf("misaligned %s access of %d bytes at 0x%X", what, size, addr)
	}
}

// executeLoadStoreExclusive executes load/store exclusive, the ordered
// LDAR/STLR forms, and compare-and-swap.
func (e *Emulator) executeLoadStoreExclusive(inst *insts.Instruction) {
	addr := e.loadStoreBase(inst)

	switch inst.Op {
	case insts.OpLDXR, insts.OpLDAXR:
		e.requireAligned(addr, inst.SizeLog2, "exclusive")
		e.localMonitor.MarkExclusive(addr)
		e.globalMonitor.MarkExclusive(&e.localMonitor, addr)
		e.regFile.WriteReg(inst.Rd, e.memory.ReadSized(addr, inst.SizeLog2))
		if inst.Acquire {
			e.memory.Fence()
		}
	case insts.OpLDXP, insts.OpLDAXP:
		e.requireAligned(addr, inst.SizeLog2+1, "exclusive pair")
		e.localMonitor.MarkExclusive(addr)
		e.globalMonitor.MarkExclusive(&e.localMonitor, addr)
		elemSize := uint64(1) << inst.SizeLog2
		e.regFile.WriteReg(inst.Rd, e.memory.ReadSized(addr, inst.SizeLog2))
		e.regFile.WriteReg(inst.Rt2,
			e.memory.ReadSized(addr+elemSize, inst.SizeLog2))
		if inst.Acquire {
			e.memory.Fence()
		}
	case insts.OpSTXR, insts.OpSTLXR:
		e.storeExclusive(inst, addr, false)
	case insts.OpSTXP, insts.OpSTLXP:
		e.storeExclusive(inst, addr, true)
	case insts.OpLDAR:
		e.regFile.WriteReg(inst.Rd, e.memory.ReadSized(addr, inst.SizeLog2))
		e.memory.Fence()
	case insts.OpSTLR:
		e.memory.Fence()
		e.memory.WriteSized(addr, inst.SizeLog2, e.regFile.ReadReg(inst.Rd))
		e.globalMonitor.NotifyWrite(&e.localMonitor, addr)
	case insts.OpCAS:
		e.executeCAS(inst, addr)
	case insts.OpCASP:
		e.executeCASP(inst, addr)
	}
}

// storeExclusive attempts a store-exclusive. The store succeeds only when
// both the local and the global monitor still hold the reservation; the
// status register receives 0 on success and 1 on failure. The local
// monitor is cleared either way.
func (e *Emulator) storeExclusive(inst *insts.Instruction, addr uint64, pair bool) {
	sizeLog2 := inst.SizeLog2
	if pair {
		sizeLog2++
	}
	e.requireAligned(addr, sizeLog2, "exclusive")

	success := e.localMonitor.IsExclusive(addr) &&
		e.globalMonitor.IsExclusive(&e.localMonitor, addr)

	if success {
		if inst.Release {
			e.memory.Fence()
		}
		if pair {
			elemSize := uint64(1) << inst.SizeLog2
			e.memory.WriteSized(addr, inst.SizeLog2,
				e.regFile.ReadReg(inst.Rd))
			e.memory.WriteSized(addr+elemSize, inst.SizeLog2,
				e.regFile.ReadReg(inst.Rt2))
		} else {
			e.memory.WriteSized(addr, inst.SizeLog2,
				e.regFile.ReadReg(inst.Rd))
		}
		e.globalMonitor.NotifyWrite(&e.localMonitor, addr)
		e.regFile.WriteReg(inst.Rs, 0)
	} else {
		e.regFile.WriteReg(inst.Rs, 1)
	}

	e.localMonitor.Clear()
	e.globalMonitor.Clear(&e.localMonitor)
}

// executeCAS executes compare-and-swap. The read clears the local monitor
// even when the comparison fails; the old value lands in the compare
// register.
func (e *Emulator) executeCAS(inst *insts.Instruction, addr uint64) {
	e.requireAligned(addr, inst.SizeLog2, "atomic")

	if inst.Acquire {
		defer e.memory.Fence()
	}

	old := e.memory.ReadSized(addr, inst.SizeLog2)
	e.localMonitor.Clear()

	compare := truncateToSize(e.regFile.ReadReg(inst.Rs), inst.SizeLog2)

	if old == compare {
		if inst.Release {
			e.memory.Fence()
		}
		e.memory.WriteSized(addr, inst.SizeLog2, e.regFile.ReadReg(inst.Rd))
		e.globalMonitor.NotifyWrite(&e.localMonitor, addr)
	}

	e.regFile.WriteReg(inst.Rs, old)
}

// executeCASP executes compare-and-swap pair over registers (Rs, Rs+1)
// and (Rt, Rt+1).
func (e *Emulator) executeCASP(inst *insts.Instruction, addr uint64) {
	e.requireAligned(addr, inst.SizeLog2+1, "atomic pair")

	if inst.Acquire {
		defer e.memory.Fence()
	}

	elemSize := uint64(1) << inst.SizeLog2
	old1 := e.memory.ReadSized(addr, inst.SizeLog2)
	old2 := e.memory.ReadSized(addr+elemSize, inst.SizeLog2)
	e.localMonitor.Clear()

	cmp1 := truncateToSize(e.regFile.ReadReg(inst.Rs), inst.SizeLog2)
	cmp2 := truncateToSize(e.regFile.ReadReg(inst.Rs+1), inst.SizeLog2)

	if old1 == cmp1 && old2 == cmp2 {
		if inst.Release {
			e.memory.Fence()
		}
		e.memory.WriteSized(addr, inst.SizeLog2, e.regFile.ReadReg(inst.Rd))
		e.memory.WriteSized(addr+elemSize, inst.SizeLog2,
			e.regFile.ReadReg(inst.Rd+1))
		e.globalMonitor.NotifyWrite(&e.localMonitor, addr)
	}

	e.regFile.WriteReg(inst.Rs, old1)
	e.regFile.WriteReg(inst.Rs+1, old2)
}

func truncateToSize(value uint64, sizeLog2 uint8) uint64 {
	switch sizeLog2 {
	case 0:
		return uint64(uint8(value))
	case 1:
		return uint64(uint16(value))
	case 2:
		return uint64(uint32(value))
	default:
		return value
	}
}

// executeAtomicMemory executes the atomic read-modify-write instructions
// and LDAPR. The old memory value lands in the transfer register.
func (e *Emulator) executeAtomicMemory(inst *insts.Instruction) {
	addr := e.loadStoreBase(inst)
	e.requireAligned(addr, inst.SizeLog2, "atomic")

	if inst.Op == insts.OpLDAPR {
		e.regFile.WriteReg(inst.Rd, e.memory.ReadSized(addr, inst.SizeLog2))
		e.memory.Fence()
		return
	}

	if inst.Acquire {
		defer e.memory.Fence()
	}

	old := e.memory.ReadSized(addr, inst.SizeLog2)
	operand := truncateToSize(e.regFile.ReadReg(inst.Rs), inst.SizeLog2)

	newValue := atomicCombine(inst.Op, old, operand, inst.SizeLog2)

	if inst.Release {
		e.memory.Fence()
	}
	e.memory.WriteSized(addr, inst.SizeLog2, newValue)
	e.globalMonitor.NotifyWrite(&e.localMonitor, addr)

	e.regFile.WriteReg(inst.Rd, old)
}

// atomicCombine computes the new memory value of an atomic
// read-modify-write operation.
func atomicCombine(op insts.Op, old, operand uint64, sizeLog2 uint8) uint64 {
	switch op {
	case insts.OpLDADD:
		return truncateToSize(old+operand, sizeLog2)
	case insts.OpLDCLR:
		return old &^ operand
	case insts.OpLDEOR:
		return old ^ operand
	case insts.OpLDSET:
		return old | operand
	case insts.OpLDSMAX:
		if signedAtSize(old, sizeLog2) >= signedAtSize(operand, sizeLog2) {
			return old
		}
		return operand
	case insts.OpLDSMIN:
		if signedAtSize(old, sizeLog2) <= signedAtSize(operand, sizeLog2) {
			return old
		}
		return operand
	case insts.OpLDUMAX:
		if old >= operand {
			return old
		}
		return operand
	case insts.OpLDUMIN:
		if old <= operand {
			return old
		}
		return operand
	default: // SWP
		return operand
	}
}

func signedAtSize(value uint64, sizeLog2 uint8) int64 {
	switch sizeLog2 {
	case 0:
		return int64(int8(value))
	case 1:
		return int64(int16(value))
	case 2:
		return int64(int32(value))
	default:
		return int64(value)
	}
}
