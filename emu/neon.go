package emu

import (
	"math/bits"

	"github.com/sarchlab/a64sim/insts"
)

// arrLanes returns the lane count and element size of an arrangement.
func arrLanes(arr insts.Arrangement) (count int, sizeLog2 uint8) {
	switch arr {
	case insts.Arr8B:
		return 8, 0
	case insts.Arr16B:
		return 16, 0
	case insts.Arr4H:
		return 4, 1
	case insts.Arr8H:
		return 8, 1
	case insts.Arr2S:
		return 2, 2
	case insts.Arr4S:
		return 4, 2
	case insts.Arr1D:
		return 1, 3
	default:
		return 2, 3
	}
}

// readLanes reads all lanes of a vector register for an arrangement.
func (e *Emulator) readLanes(reg uint8, arr insts.Arrangement) []uint64 {
	count, sizeLog2 := arrLanes(arr)
	lanes := make([]uint64, count)
	for i := range lanes {
		lanes[i] = e.vecFile.ReadElem(reg, i, sizeLog2)
	}
	return lanes
}

// writeLanes writes lanes back to a vector register, zeroing the rest of
// the register as NEON writes do.
func (e *Emulator) writeLanes(reg uint8, arr insts.Arrangement, lanes []uint64) {
	count, sizeLog2 := arrLanes(arr)
	var lo, hi uint64
	laneBits := uint(8) << sizeLog2
	for i := 0; i < count; i++ {
		value := lanes[i]
		if laneBits < 64 {
			value &= (1 << laneBits) - 1
		}
		bitPos := uint(i) * laneBits
		if bitPos < 64 {
			lo |= value << bitPos
		} else {
			hi |= value << (bitPos - 64)
		}
	}
	e.vecFile.WriteVec(reg, lo, hi)
}

// laneOpKind identifies an integer per-lane operation. The three-same
// handler maps opcodes to kinds and a single executor interprets them, so
// saturation, halving, and rounding behavior lives in one place.
type laneOpKind uint8

// Integer lane operations.
const (
	laneAdd laneOpKind = iota
	laneSub
	laneMul
	laneSQAdd
	laneUQAdd
	laneSQSub
	laneUQSub
	laneSHAdd
	laneUHAdd
	laneSRHAdd
	laneURHAdd
	laneSHSub
	laneUHSub
	laneSMax
	laneSMin
	laneUMax
	laneUMin
	laneCMEQ
	laneCMGT
	laneCMGE
	laneCMHI
	laneCMHS
	laneCMTST
	laneSShl
	laneUShl
	laneSRShl
	laneURShl
	laneSQShl
	laneUQShl
)

// threeSameLaneOps maps the integer three-same opcodes to lane operation
// kinds.
var threeSameLaneOps = map[insts.Op]laneOpKind{
	insts.OpVADD:    laneAdd,
	insts.OpVSUB:    laneSub,
	insts.OpVMUL:    laneMul,
	insts.OpVSQADD:  laneSQAdd,
	insts.OpVUQADD:  laneUQAdd,
	insts.OpVSQSUB:  laneSQSub,
	insts.OpVUQSUB:  laneUQSub,
	insts.OpVSHADD:  laneSHAdd,
	insts.OpVUHADD:  laneUHAdd,
	insts.OpVSRHADD: laneSRHAdd,
	insts.OpVURHADD: laneURHAdd,
	insts.OpVSHSUB:  laneSHSub,
	insts.OpVUHSUB:  laneUHSub,
	insts.OpVSMAX:   laneSMax,
	insts.OpVSMIN:   laneSMin,
	insts.OpVUMAX:   laneUMax,
	insts.OpVUMIN:   laneUMin,
	insts.OpVCMEQ:   laneCMEQ,
	insts.OpVCMGT:   laneCMGT,
	insts.OpVCMGE:   laneCMGE,
	insts.OpVCMHI:   laneCMHI,
	insts.OpVCMHS:   laneCMHS,
	insts.OpVCMTST:  laneCMTST,
	insts.OpVSSHL:   laneSShl,
	insts.OpVUSHL:   laneUShl,
	insts.OpVSRSHL:  laneSRShl,
	insts.OpVURSHL:  laneURShl,
	insts.OpVSQSHL:  laneSQShl,
	insts.OpVUQSHL:  laneUQShl,
}

// laneCompute executes one integer lane operation. Inputs and the result
// are lane-sized values in the low bits.
func laneCompute(kind laneOpKind, a, b uint64, sizeLog2 uint8) uint64 {
	laneBits := uint(8) << sizeLog2
	sa := signedAtSize(a, sizeLog2)
	sb := signedAtSize(b, sizeLog2)

	switch kind {
	case laneAdd:
		return a + b
	case laneSub:
		return a - b
	case laneMul:
		return a * b
	case laneSQAdd:
		return saturateSigned(sa+sb, sa, sb, sizeLog2)
	case laneSQSub:
		return saturateSignedSub(sa, sb, sizeLog2)
	case laneUQAdd:
		return saturateUnsignedAdd(a, b, sizeLog2)
	case laneUQSub:
		if b > a {
			return 0
		}
		return a - b
	case laneSHAdd:
		return uint64((sa + sb) >> 1)
	case laneUHAdd:
		return (a + b) >> 1
	case laneSRHAdd:
		return uint64((sa + sb + 1) >> 1)
	case laneURHAdd:
		return (a + b + 1) >> 1
	case laneSHSub:
		return uint64((sa - sb) >> 1)
	case laneUHSub:
		return uint64((int64(a) - int64(b)) >> 1)
	case laneSMax:
		if sa >= sb {
			return a
		}
		return b
	case laneSMin:
		if sa <= sb {
			return a
		}
		return b
	case laneUMax:
		if a >= b {
			return a
		}
		return b
	case laneUMin:
		if a <= b {
			return a
		}
		return b
	case laneCMEQ:
		return cmpMask(a == b, laneBits)
	case laneCMGT:
		return cmpMask(sa > sb, laneBits)
	case laneCMGE:
		return cmpMask(sa >= sb, laneBits)
	case laneCMHI:
		return cmpMask(a > b, laneBits)
	case laneCMHS:
		return cmpMask(a >= b, laneBits)
	case laneCMTST:
		return cmpMask(a&b != 0, laneBits)
	case laneSShl:
		return laneShift(a, b, sizeLog2, true, false)
	case laneUShl:
		return laneShift(a, b, sizeLog2, false, false)
	case laneSRShl:
		return laneShift(a, b, sizeLog2, true, true)
	case laneURShl:
		return laneShift(a, b, sizeLog2, false, true)
	case laneSQShl:
		return saturatingShiftLeft(a, b, sizeLog2, true)
	case laneUQShl:
		return saturatingShiftLeft(a, b, sizeLog2, false)
	}
	return 0
}

func cmpMask(cond bool, laneBits uint) uint64 {
	if !cond {
		return 0
	}
	if laneBits >= 64 {
		return ^uint64(0)
	}
	return (1 << laneBits) - 1
}

// saturateSigned clamps a signed result to the lane range. For 64-bit
// lanes the overflow direction comes from the operand signs since the sum
// itself wraps.
func saturateSigned(result, a, b int64, sizeLog2 uint8) uint64 {
	if sizeLog2 == 3 {
		// Overflow when operands share a sign the result lost.
		if a >= 0 && b >= 0 && result < 0 {
			return 0x7FFFFFFFFFFFFFFF
		}
		if a < 0 && b < 0 && result >= 0 {
			return 0x8000000000000000
		}
		return uint64(result)
	}

	laneBits := 8 << sizeLog2
	max := int64(1)<<(laneBits-1) - 1
	min := -(int64(1) << (laneBits - 1))
	if result > max {
		return uint64(max)
	}
	if result < min {
		return uint64(min)
	}
	return uint64(result)
}

// saturateSignedSub clamps a signed lane subtraction. The 64-bit overflow
// test reads the operand signs directly: negating the subtrahend wraps
// for MinInt64, so the addition form of the check cannot be reused.
func saturateSignedSub(a, b int64, sizeLog2 uint8) uint64 {
	result := a - b
	if sizeLog2 == 3 {
		if (a^b) < 0 && (a^result) < 0 {
			if a >= 0 {
				return 0x7FFFFFFFFFFFFFFF
			}
			return 0x8000000000000000
		}
		return uint64(result)
	}

	laneBits := 8 << sizeLog2
	max := int64(1)<<(laneBits-1) - 1
	min := -(int64(1) << (laneBits - 1))
	if result > max {
		return uint64(max)
	}
	if result < min {
		return uint64(min)
	}
	return uint64(result)
}

func saturateUnsignedAdd(a, b uint64, sizeLog2 uint8) uint64 {
	if sizeLog2 == 3 {
		sum, carry := bits.Add64(a, b, 0)
		if carry != 0 {
			return ^uint64(0)
		}
		return sum
	}
	laneBits := uint(8) << sizeLog2
	max := uint64(1)<<laneBits - 1
	sum := a + b
	if sum > max {
		return max
	}
	return sum
}

// laneShift implements the register-shift operations. The shift amount is
// the signed low byte of b: positive shifts left, negative shifts right.
// Rounding variants add half the last shifted-out position first.
func laneShift(a, b uint64, sizeLog2 uint8, signed, rounding bool) uint64 {
	shift := int(int8(b))
	laneBits := int(8) << sizeLog2

	if shift >= 0 {
		if shift >= laneBits {
			return 0
		}
		return a << uint(shift)
	}

	shift = -shift
	value := a
	var sv int64
	if signed {
		sv = signedAtSize(a, sizeLog2)
	}

	if shift > laneBits {
		shift = laneBits
	}

	if rounding {
		// The rounded sum can overflow the widest lane; for 64-bit lanes
		// extend to 128 bits before shifting back down.
		if sizeLog2 == 3 {
			round := uint64(1) << uint(shift-1)
			lo, carry := bits.Add64(value, round, 0)
			var hi uint64
			if signed && sv < 0 {
				hi = ^uint64(0)
			}
			hi += carry
			if shift == 64 {
				return hi
			}
			return lo>>uint(shift) | hi<<uint(64-shift)
		}
		round := int64(1) << uint(shift-1)
		if signed {
			return uint64((sv + round) >> uint(shift))
		}
		return (value + uint64(round)) >> uint(shift)
	}

	if signed {
		if shift >= laneBits {
			return uint64(sv >> uint(laneBits-1))
		}
		return uint64(sv >> uint(shift))
	}
	if shift >= laneBits {
		return 0
	}
	return value >> uint(shift)
}

// saturatingShiftLeft shifts left and clamps at the lane range.
func saturatingShiftLeft(a, b uint64, sizeLog2 uint8, signed bool) uint64 {
	shift := int(int8(b))
	if shift < 0 {
		return laneShift(a, b, sizeLog2, signed, false)
	}
	laneBits := int(8) << sizeLog2

	if signed {
		sv := signedAtSize(a, sizeLog2)
		if sv == 0 {
			return 0
		}
		max := int64(1)<<(laneBits-1) - 1
		min := -(int64(1) << (laneBits - 1))
		if laneBits == 64 {
			max = 0x7FFFFFFFFFFFFFFF
			min = -0x8000000000000000
		}
		result := sv
		for i := 0; i < shift; i++ {
			if result > max/2 {
				return uint64(max)
			}
			if result < min/2 {
				return uint64(min)
			}
			result <<= 1
		}
		return uint64(result)
	}

	if a == 0 {
		return 0
	}
	var max uint64 = ^uint64(0)
	if laneBits < 64 {
		max = 1<<uint(laneBits) - 1
	}
	result := a
	for i := 0; i < shift; i++ {
		if result > max/2 {
			return max
		}
		result <<= 1
	}
	return result
}

// executeSIMDThreeSame executes the three-registers-same-size group.
func (e *Emulator) executeSIMDThreeSame(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpVAND, insts.OpVBIC, insts.OpVORR, insts.OpVORN,
		insts.OpVEOR, insts.OpVBSL, insts.OpVBIT, insts.OpVBIF:
		e.executeSIMDBitwise(inst)
		return
	case insts.OpVFADD, insts.OpVFSUB, insts.OpVFMUL, insts.OpVFDIV,
		insts.OpVFMLA, insts.OpVFMLS, insts.OpVFMAX, insts.OpVFMIN,
		insts.OpVFMAXNM, insts.OpVFMINNM, insts.OpVFCMEQ,
		insts.OpVFCMGE, insts.OpVFCMGT:
		e.executeSIMDThreeSameFP(inst)
		return
	case insts.OpVMLA, insts.OpVMLS:
		e.executeSIMDMulAcc(inst)
		return
	case insts.OpVADDP:
		e.executeSIMDAddPairwise(inst)
		return
	}

	kind, ok := threeSameLaneOps[inst.Op]
	if !ok {
		e.fatalf("unimplemented SIMD three-same op %d", inst.Op)
	}

	an := e.readLanes(inst.Rn, inst.Arrangement)
	bm := e.readLanes(inst.Rm, inst.Arrangement)
	_, sizeLog2 := arrLanes(inst.Arrangement)

	result := make([]uint64, len(an))
	for i := range result {
		result[i] = laneCompute(kind, an[i], bm[i], sizeLog2)
	}
	e.writeLanes(inst.Rd, inst.Arrangement, result)
}

// executeSIMDBitwise executes the whole-register bitwise operations,
// including the insert forms that read the destination.
func (e *Emulator) executeSIMDBitwise(inst *insts.Instruction) {
	nLo, nHi := e.vecFile.ReadVec(inst.Rn)
	mLo, mHi := e.vecFile.ReadVec(inst.Rm)
	dLo, dHi := e.vecFile.ReadVec(inst.Rd)

	var lo, hi uint64
	switch inst.Op {
	case insts.OpVAND:
		lo, hi = nLo&mLo, nHi&mHi
	case insts.OpVBIC:
		lo, hi = nLo&^mLo, nHi&^mHi
	case insts.OpVORR:
		lo, hi = nLo|mLo, nHi|mHi
	case insts.OpVORN:
		lo, hi = nLo|^mLo, nHi|^mHi
	case insts.OpVEOR:
		lo, hi = nLo^mLo, nHi^mHi
	case insts.OpVBSL:
		// Destination holds the selector.
		lo = (dLo & nLo) | (^dLo & mLo)
		hi = (dHi & nHi) | (^dHi & mHi)
	case insts.OpVBIT:
		lo = (dLo &^ mLo) | (nLo & mLo)
		hi = (dHi &^ mHi) | (nHi & mHi)
	case insts.OpVBIF:
		lo = (dLo & mLo) | (nLo &^ mLo)
		hi = (dHi & mHi) | (nHi &^ mHi)
	}

	if inst.Arrangement == insts.Arr8B {
		hi = 0
	}
	e.vecFile.WriteVec(inst.Rd, lo, hi)
}

// executeSIMDMulAcc executes MLA and MLS, which accumulate into the
// destination.
func (e *Emulator) executeSIMDMulAcc(inst *insts.Instruction) {
	an := e.readLanes(inst.Rn, inst.Arrangement)
	bm := e.readLanes(inst.Rm, inst.Arrangement)
	acc := e.readLanes(inst.Rd, inst.Arrangement)

	for i := range acc {
		product := an[i] * bm[i]
		if inst.Op == insts.OpVMLA {
			acc[i] += product
		} else {
			acc[i] -= product
		}
	}
	e.writeLanes(inst.Rd, inst.Arrangement, acc)
}

// executeSIMDAddPairwise executes ADDP: adjacent pairs from the
// concatenation Rn:Rm.
func (e *Emulator) executeSIMDAddPairwise(inst *insts.Instruction) {
	an := e.readLanes(inst.Rn, inst.Arrangement)
	bm := e.readLanes(inst.Rm, inst.Arrangement)
	concat := append(an, bm...)

	result := make([]uint64, len(an))
	for i := range result {
		result[i] = concat[2*i] + concat[2*i+1]
	}
	e.writeLanes(inst.Rd, inst.Arrangement, result)
}

// executeSIMDTwoMisc executes the two-register miscellaneous group.
func (e *Emulator) executeSIMDTwoMisc(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpVFABS, insts.OpVFNEG, insts.OpVFSQRT,
		insts.OpVFRINTN, insts.OpVFRINTP, insts.OpVFRINTM,
		insts.OpVFRINTZ, insts.OpVFRINTA, insts.OpVFRINTX,
		insts.OpVFRINTI, insts.OpVSCVTF, insts.OpVUCVTF,
		insts.OpVFCVTZS, insts.OpVFCVTZU:
		e.executeSIMDTwoMiscFP(inst)
		return
	case insts.OpVNOT:
		lo, hi := e.vecFile.ReadVec(inst.Rn)
		if inst.Arrangement == insts.Arr8B {
			e.vecFile.WriteVec(inst.Rd, ^lo, 0)
		} else {
			e.vecFile.WriteVec(inst.Rd, ^lo, ^hi)
		}
		return
	}

	lanes := e.readLanes(inst.Rn, inst.Arrangement)
	_, sizeLog2 := arrLanes(inst.Arrangement)
	laneBits := uint(8) << sizeLog2

	for i, v := range lanes {
		sv := signedAtSize(v, sizeLog2)
		switch inst.Op {
		case insts.OpVABS:
			if sv < 0 {
				lanes[i] = uint64(-sv)
			}
		case insts.OpVNEG:
			lanes[i] = uint64(-sv)
		case insts.OpVCNT:
			lanes[i] = uint64(bits.OnesCount8(uint8(v)))
		case insts.OpVCMEQ0:
			lanes[i] = cmpMask(sv == 0, laneBits)
		case insts.OpVCMGE0:
			lanes[i] = cmpMask(sv >= 0, laneBits)
		case insts.OpVCMGT0:
			lanes[i] = cmpMask(sv > 0, laneBits)
		case insts.OpVCMLE0:
			lanes[i] = cmpMask(sv <= 0, laneBits)
		case insts.OpVCMLT0:
			lanes[i] = cmpMask(sv < 0, laneBits)
		}
	}

	if inst.Op == insts.OpVREV64 {
		lanesPer64 := 1 << (3 - sizeLog2)
		reversed := make([]uint64, len(lanes))
		for i := range lanes {
			group := i / lanesPer64
			within := i % lanesPer64
			reversed[i] = lanes[group*lanesPer64+(lanesPer64-1-within)]
		}
		lanes = reversed
	}

	e.writeLanes(inst.Rd, inst.Arrangement, lanes)
}

// executeSIMDAcrossLanes executes the reductions: ADDV and the min/max
// reductions.
func (e *Emulator) executeSIMDAcrossLanes(inst *insts.Instruction) {
	lanes := e.readLanes(inst.Rn, inst.Arrangement)
	_, sizeLog2 := arrLanes(inst.Arrangement)

	acc := lanes[0]
	for _, v := range lanes[1:] {
		switch inst.Op {
		case insts.OpVADDV:
			acc += v
		case insts.OpVSMAXV:
			if signedAtSize(v, sizeLog2) > signedAtSize(acc, sizeLog2) {
				acc = v
			}
		case insts.OpVSMINV:
			if signedAtSize(v, sizeLog2) < signedAtSize(acc, sizeLog2) {
				acc = v
			}
		case insts.OpVUMAXV:
			if v > acc {
				acc = v
			}
		case insts.OpVUMINV:
			if v < acc {
				acc = v
			}
		}
	}

	e.vecFile.WriteScalar(inst.Rd, truncateToSize(acc, sizeLog2), sizeLog2)
}

// executeSIMDCopy executes DUP, SMOV, UMOV, and INS.
func (e *Emulator) executeSIMDCopy(inst *insts.Instruction) {
	count, sizeLog2 := arrLanes(inst.Arrangement)

	switch inst.Op {
	case insts.OpVDUPElem:
		value := e.vecFile.ReadElem(inst.Rn, int(inst.ElemIndex), sizeLog2)
		lanes := make([]uint64, count)
		for i := range lanes {
			lanes[i] = value
		}
		e.writeLanes(inst.Rd, inst.Arrangement, lanes)
	case insts.OpVDUPGen:
		value := truncateToSize(e.regFile.ReadReg(inst.Rn), sizeLog2)
		lanes := make([]uint64, count)
		for i := range lanes {
			lanes[i] = value
		}
		e.writeLanes(inst.Rd, inst.Arrangement, lanes)
	case insts.OpVSMOV:
		value := e.vecFile.ReadElem(inst.Rn, int(inst.ElemIndex), sizeLog2)
		result := uint64(signedAtSize(value, sizeLog2))
		if !inst.Is64Bit {
			result = uint64(uint32(result))
		}
		e.regFile.WriteReg(inst.Rd, result)
	case insts.OpVUMOV:
		value := e.vecFile.ReadElem(inst.Rn, int(inst.ElemIndex), sizeLog2)
		e.regFile.WriteReg(inst.Rd, value)
	case insts.OpVINSGen:
		value := truncateToSize(e.regFile.ReadReg(inst.Rn), sizeLog2)
		e.vecFile.WriteElem(inst.Rd, int(inst.ElemIndex), sizeLog2, value)
	case insts.OpVINSElem:
		value := e.vecFile.ReadElem(inst.Rn, int(inst.Imm2), sizeLog2)
		e.vecFile.WriteElem(inst.Rd, int(inst.ElemIndex), sizeLog2, value)
	}
}

// executeSIMDShiftImm executes the immediate shifts.
func (e *Emulator) executeSIMDShiftImm(inst *insts.Instruction) {
	lanes := e.readLanes(inst.Rn, inst.Arrangement)
	_, sizeLog2 := arrLanes(inst.Arrangement)
	shift := uint(inst.Imm)
	laneBits := uint(8) << sizeLog2

	for i, v := range lanes {
		switch inst.Op {
		case insts.OpVSSHR:
			sv := signedAtSize(v, sizeLog2)
			if shift >= laneBits {
				lanes[i] = uint64(sv >> (laneBits - 1))
			} else {
				lanes[i] = uint64(sv >> shift)
			}
		case insts.OpVUSHR:
			if shift >= laneBits {
				lanes[i] = 0
			} else {
				lanes[i] = v >> shift
			}
		case insts.OpVSHLImm:
			lanes[i] = v << shift
		case insts.OpVSQSHLImm:
			lanes[i] = saturatingShiftLeft(v, uint64(shift), sizeLog2, true)
		case insts.OpVUQSHLImm:
			lanes[i] = saturatingShiftLeft(v, uint64(shift), sizeLog2, false)
		}
	}

	e.writeLanes(inst.Rd, inst.Arrangement, lanes)
}

// executeSIMDByElement executes the by-element multiplies: the Rm operand
// is a single broadcast lane.
func (e *Emulator) executeSIMDByElement(inst *insts.Instruction) {
	switch inst.Op {
	case insts.OpVFMULElem, insts.OpVFMLAElem, insts.OpVFMLSElem:
		e.executeSIMDByElementFP(inst)
		return
	}

	_, sizeLog2 := arrLanes(inst.Arrangement)
	elem := e.vecFile.ReadElem(inst.Rm, int(inst.ElemIndex), sizeLog2)
	an := e.readLanes(inst.Rn, inst.Arrangement)

	switch inst.Op {
	case insts.OpVMULElem:
		for i := range an {
			an[i] *= elem
		}
		e.writeLanes(inst.Rd, inst.Arrangement, an)
	case insts.OpVMLAElem, insts.OpVMLSElem:
		acc := e.readLanes(inst.Rd, inst.Arrangement)
		for i := range acc {
			product := an[i] * elem
			if inst.Op == insts.OpVMLAElem {
				acc[i] += product
			} else {
				acc[i] -= product
			}
		}
		e.writeLanes(inst.Rd, inst.Arrangement, acc)
	}
}
