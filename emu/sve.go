package emu

import (
	"github.com/sarchlab/a64sim/insts"
)

// executeSVE executes the supported scalable-vector subset. Encodings the
// decoder does not recognize abort with a diagnostic.
func (e *Emulator) executeSVE(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpZADD, insts.OpZSUB, insts.OpZSMAX, insts.OpZUMAX,
		insts.OpZSMIN, insts.OpZUMIN, insts.OpZMUL,
		insts.OpZORR, insts.OpZEOR, insts.OpZAND, insts.OpZBIC:
		e.executeSVEPredicatedBinop(inst)
	case insts.OpZADDUnpred, insts.OpZSUBUnpred:
		e.executeSVEUnpredicated(inst)
	case insts.OpPTRUE:
		e.executeSVEPTrue(inst)
	case insts.OpPFALSE:
		for i := range e.vecFile.P[inst.Rd] {
			e.vecFile.P[inst.Rd][i] = 0
		}
	case insts.OpPAND, insts.OpPORR, insts.OpPEOR:
		e.executeSVEPredicateLogic(inst)
	case insts.OpCNTB, insts.OpCNTH, insts.OpCNTW, insts.OpCNTD:
		e.executeSVECount(inst)
	case insts.OpRDVL:
		vlBytes := int64(e.vecFile.VectorLengthInBits() / 8)
		e.regFile.WriteReg(inst.Rd, uint64(inst.SignedImm*vlBytes))
	default:
		e.fatalf("SVE instruction 0x%08X not supported", inst.Raw)
	}
}

// sveElemCount returns the number of elements of the given size in a
// vector register at the configured vector length.
func (e *Emulator) sveElemCount(sizeLog2 uint8) int {
	return e.vecFile.VectorLengthInBits() / (8 << sizeLog2)
}

// sveElemActive reports whether the governing predicate activates the
// element: the predicate bit of the element's lowest byte lane decides.
func (e *Emulator) sveElemActive(pg uint8, index int, sizeLog2 uint8) bool {
	return e.vecFile.PredBit(pg, index<<sizeLog2)
}

// sveBinop computes one element of a vector binary operation.
func sveBinop(op insts.Op, a, b uint64, sizeLog2 uint8) uint64 {
	switch op {
	case insts.OpZADD, insts.OpZADDUnpred:
		return a + b
	case insts.OpZSUB, insts.OpZSUBUnpred:
		return a - b
	case insts.OpZMUL:
		return a * b
	case insts.OpZSMAX:
		if signedAtSize(a, sizeLog2) >= signedAtSize(b, sizeLog2) {
			return a
		}
		return b
	case insts.OpZSMIN:
		if signedAtSize(a, sizeLog2) <= signedAtSize(b, sizeLog2) {
			return a
		}
		return b
	case insts.OpZUMAX:
		if a >= b {
			return a
		}
		return b
	case insts.OpZUMIN:
		if a <= b {
			return a
		}
		return b
	case insts.OpZORR:
		return a | b
	case insts.OpZEOR:
		return a ^ b
	case insts.OpZAND:
		return a & b
	case insts.OpZBIC:
		return a &^ b
	}
	return 0
}

// executeSVEPredicatedBinop executes the Zdn = op(Zdn, Zm) forms. Inactive
// elements keep the destination value (merging predication).
func (e *Emulator) executeSVEPredicatedBinop(inst *insts.Instruction) {
	count := e.sveElemCount(inst.SizeLog2)
	for i := 0; i < count; i++ {
		if !e.sveElemActive(inst.Pg, i, inst.SizeLog2) {
			continue
		}
		a := e.vecFile.ReadElem(inst.Rd, i, inst.SizeLog2)
		b := e.vecFile.ReadElem(inst.Rm, i, inst.SizeLog2)
		result := sveBinop(inst.Op, a, b, inst.SizeLog2)
		e.vecFile.WriteElem(inst.Rd, i, inst.SizeLog2, result)
	}
}

// executeSVEUnpredicated executes the Zd = op(Zn, Zm) forms over the full
// vector length.
func (e *Emulator) executeSVEUnpredicated(inst *insts.Instruction) {
	count := e.sveElemCount(inst.SizeLog2)
	for i := 0; i < count; i++ {
		a := e.vecFile.ReadElem(inst.Rn, i, inst.SizeLog2)
		b := e.vecFile.ReadElem(inst.Rm, i, inst.SizeLog2)
		result := sveBinop(inst.Op, a, b, inst.SizeLog2)
		e.vecFile.WriteElem(inst.Rd, i, inst.SizeLog2, result)
	}
}

// svePatternElems interprets a predicate pattern against the number of
// available elements.
func svePatternElems(pattern uint64, available int) int {
	switch {
	case pattern == insts.SVEPatternAll:
		return available
	case pattern == 0: // POW2
		n := 1
		for n*2 <= available {
			n *= 2
		}
		return n
	case pattern >= 1 && pattern <= 8: // VL1-VL8
		if int(pattern) <= available {
			return int(pattern)
		}
		return 0
	case pattern >= 9 && pattern <= 13: // VL16, VL32, VL64, VL128, VL256
		n := 16 << (pattern - 9)
		if n <= available {
			return n
		}
		return 0
	case pattern == 29: // MUL4
		return available &^ 3
	case pattern == 30: // MUL3
		return available - available%3
	}
	return 0
}

// executeSVEPTrue sets the first pattern-selected elements of a predicate
// register and clears the rest.
func (e *Emulator) executeSVEPTrue(inst *insts.Instruction) {
	count := e.sveElemCount(inst.SizeLog2)
	active := svePatternElems(inst.Imm, count)

	totalLanes := e.vecFile.VectorLengthInBits() / 8
	for lane := 0; lane < totalLanes; lane++ {
		e.vecFile.SetPredBit(inst.Rd, lane, false)
	}
	for i := 0; i < active; i++ {
		e.vecFile.SetPredBit(inst.Rd, i<<inst.SizeLog2, true)
	}
}

// executeSVEPredicateLogic executes the predicate bitwise operations,
// zeroing lanes the governing predicate deactivates.
func (e *Emulator) executeSVEPredicateLogic(inst *insts.Instruction) {
	pd := e.vecFile.P[inst.Rd]
	pn := e.vecFile.P[inst.Rn]
	pm := e.vecFile.P[inst.Rm]
	pg := e.vecFile.P[inst.Pg]

	for i := range pd {
		var v byte
		switch inst.Op {
		case insts.OpPAND:
			v = pn[i] & pm[i]
		case insts.OpPORR:
			v = pn[i] | pm[i]
		case insts.OpPEOR:
			v = pn[i] ^ pm[i]
		}
		pd[i] = v & pg[i]
	}
}

// executeSVECount executes CNTB/CNTH/CNTW/CNTD: the pattern-selected
// element count times the multiplier.
func (e *Emulator) executeSVECount(inst *insts.Instruction) {
	count := svePatternElems(inst.Imm, e.sveElemCount(inst.SizeLog2))
	e.regFile.WriteReg(inst.Rd, uint64(count)*inst.Imm2)
}
