package emu

import (
	"math"

	"github.com/sarchlab/a64sim/insts"
)

// executeSIMDThreeSameFP executes the floating-point three-same group.
// The arrangement selects single-precision (2S/4S) or double-precision
// (2D) lanes.
func (e *Emulator) executeSIMDThreeSameFP(inst *insts.Instruction) {
	count, sizeLog2 := arrLanes(inst.Arrangement)
	result := make([]uint64, count)

	for i := 0; i < count; i++ {
		if sizeLog2 == 3 {
			a := math.Float64frombits(e.vecFile.ReadElem(inst.Rn, i, 3))
			b := math.Float64frombits(e.vecFile.ReadElem(inst.Rm, i, 3))
			acc := math.Float64frombits(e.vecFile.ReadElem(inst.Rd, i, 3))
			result[i] = e.fpLane64(inst.Op, a, b, acc)
		} else {
			a := math.Float32frombits(uint32(e.vecFile.ReadElem(inst.Rn, i, 2)))
			b := math.Float32frombits(uint32(e.vecFile.ReadElem(inst.Rm, i, 2)))
			acc := math.Float32frombits(uint32(e.vecFile.ReadElem(inst.Rd, i, 2)))
			result[i] = e.fpLane32(inst.Op, a, b, acc)
		}
	}

	e.writeLanes(inst.Rd, inst.Arrangement, result)
}

// fpLane64 computes one double-precision lane. Comparisons return an
// all-ones or all-zeroes mask.
func (e *Emulator) fpLane64(op insts.Op, a, b, acc float64) uint64 {
	switch op {
	case insts.OpVFADD:
		return math.Float64bits(e.fpu.Add64(a, b))
	case insts.OpVFSUB:
		return math.Float64bits(e.fpu.Sub64(a, b))
	case insts.OpVFMUL:
		return math.Float64bits(e.fpu.Mul64(a, b))
	case insts.OpVFDIV:
		return math.Float64bits(e.fpu.Div64(a, b))
	case insts.OpVFMLA:
		return math.Float64bits(e.fpu.MulAdd64(acc, a, b))
	case insts.OpVFMLS:
		return math.Float64bits(e.fpu.MulAdd64(acc, -a, b))
	case insts.OpVFMAX:
		return math.Float64bits(e.fpu.Max64(a, b))
	case insts.OpVFMIN:
		return math.Float64bits(e.fpu.Min64(a, b))
	case insts.OpVFMAXNM:
		return math.Float64bits(e.fpu.MaxNM64(a, b))
	case insts.OpVFMINNM:
		return math.Float64bits(e.fpu.MinNM64(a, b))
	case insts.OpVFCMEQ:
		return cmpMask(a == b, 64)
	case insts.OpVFCMGE:
		return cmpMask(a >= b, 64)
	case insts.OpVFCMGT:
		return cmpMask(a > b, 64)
	}
	return 0
}

// fpLane32 computes one single-precision lane.
func (e *Emulator) fpLane32(op insts.Op, a, b, acc float32) uint64 {
	switch op {
	case insts.OpVFADD:
		return uint64(math.Float32bits(e.fpu.Add32(a, b)))
	case insts.OpVFSUB:
		return uint64(math.Float32bits(e.fpu.Sub32(a, b)))
	case insts.OpVFMUL:
		return uint64(math.Float32bits(e.fpu.Mul32(a, b)))
	case insts.OpVFDIV:
		return uint64(math.Float32bits(e.fpu.Div32(a, b)))
	case insts.OpVFMLA:
		return uint64(math.Float32bits(e.fpu.MulAdd32(acc, a, b)))
	case insts.OpVFMLS:
		return uint64(math.Float32bits(e.fpu.MulAdd32(acc, -a, b)))
	case insts.OpVFMAX:
		return uint64(math.Float32bits(e.fpu.Max32(a, b)))
	case insts.OpVFMIN:
		return uint64(math.Float32bits(e.fpu.Min32(a, b)))
	case insts.OpVFMAXNM:
		return uint64(math.Float32bits(e.fpu.MaxNM32(a, b)))
	case insts.OpVFMINNM:
		return uint64(math.Float32bits(e.fpu.MinNM32(a, b)))
	case insts.OpVFCMEQ:
		return cmpMask(a == b, 32)
	case insts.OpVFCMGE:
		return cmpMask(a >= b, 32)
	case insts.OpVFCMGT:
		return cmpMask(a > b, 32)
	}
	return 0
}

// executeSIMDTwoMiscFP executes the floating-point two-register
// miscellaneous operations: abs/neg/sqrt, round-to-integral, and the
// integer conversions.
func (e *Emulator) executeSIMDTwoMiscFP(inst *insts.Instruction) {
	count, sizeLog2 := arrLanes(inst.Arrangement)
	result := make([]uint64, count)

	for i := 0; i < count; i++ {
		raw := e.vecFile.ReadElem(inst.Rn, i, sizeLog2)
		if sizeLog2 == 3 {
			result[i] = e.fpMiscLane64(inst.Op, raw)
		} else {
			result[i] = e.fpMiscLane32(inst.Op, uint32(raw))
		}
	}

	e.writeLanes(inst.Rd, inst.Arrangement, result)
}

func (e *Emulator) fpMiscLane64(op insts.Op, raw uint64) uint64 {
	switch op {
	case insts.OpVSCVTF:
		return math.Float64bits(float64(int64(raw)))
	case insts.OpVUCVTF:
		return math.Float64bits(float64(raw))
	case insts.OpVFCVTZS:
		return uint64(e.fpu.ToInt64(math.Float64frombits(raw)))
	case insts.OpVFCVTZU:
		return e.fpu.ToUint64(math.Float64frombits(raw))
	}

	value := math.Float64frombits(raw)
	switch op {
	case insts.OpVFABS:
		value = math.Abs(value)
	case insts.OpVFNEG:
		value = -value
	case insts.OpVFSQRT:
		value = e.fpu.Sqrt64(value)
	default: // the FRINT family
		value = e.fpu.RoundInt(value, op)
	}
	return math.Float64bits(value)
}

func (e *Emulator) fpMiscLane32(op insts.Op, raw uint32) uint64 {
	switch op {
	case insts.OpVSCVTF:
		return uint64(math.Float32bits(float32(int32(raw))))
	case insts.OpVUCVTF:
		return uint64(math.Float32bits(float32(raw)))
	case insts.OpVFCVTZS:
		return uint64(uint32(e.fpu.ToInt32(float64(math.Float32frombits(raw)))))
	case insts.OpVFCVTZU:
		return uint64(e.fpu.ToUint32(float64(math.Float32frombits(raw))))
	}

	value := math.Float32frombits(raw)
	switch op {
	case insts.OpVFABS:
		value = float32(math.Abs(float64(value)))
	case insts.OpVFNEG:
		value = -value
	case insts.OpVFSQRT:
		value = e.fpu.Sqrt32(value)
	default:
		// A float32 survives the trip through float64 exactly, and the
		// integral result converts back without further rounding.
		value = float32(e.fpu.RoundInt(float64(value), op))
	}
	return uint64(math.Float32bits(value))
}

// executeSIMDByElementFP executes the by-element FP multiplies.
func (e *Emulator) executeSIMDByElementFP(inst *insts.Instruction) {
	count, sizeLog2 := arrLanes(inst.Arrangement)
	result := make([]uint64, count)

	if sizeLog2 == 3 {
		b := math.Float64frombits(e.vecFile.ReadElem(inst.Rm, int(inst.ElemIndex), 3))
		for i := 0; i < count; i++ {
			a := math.Float64frombits(e.vecFile.ReadElem(inst.Rn, i, 3))
			acc := math.Float64frombits(e.vecFile.ReadElem(inst.Rd, i, 3))
			switch inst.Op {
			case insts.OpVFMULElem:
				result[i] = math.Float64bits(e.fpu.Mul64(a, b))
			case insts.OpVFMLAElem:
				result[i] = math.Float64bits(e.fpu.MulAdd64(acc, a, b))
			case insts.OpVFMLSElem:
				result[i] = math.Float64bits(e.fpu.MulAdd64(acc, -a, b))
			}
		}
	} else {
		b := math.Float32frombits(uint32(e.vecFile.ReadElem(inst.Rm, int(inst.ElemIndex), 2)))
		for i := 0; i < count; i++ {
			a := math.Float32frombits(uint32(e.vecFile.ReadElem(inst.Rn, i, 2)))
			acc := math.Float32frombits(uint32(e.vecFile.ReadElem(inst.Rd, i, 2)))
			switch inst.Op {
			case insts.OpVFMULElem:
				result[i] = uint64(math.Float32bits(e.fpu.Mul32(a, b)))
			case insts.OpVFMLAElem:
				result[i] = uint64(math.Float32bits(e.fpu.MulAdd32(acc, a, b)))
			case insts.OpVFMLSElem:
				result[i] = uint64(math.Float32bits(e.fpu.MulAdd32(acc, -a, b)))
			}
		}
	}

	e.writeLanes(inst.Rd, inst.Arrangement, result)
}

// executeSIMDModImm executes the modified-immediate group. The decoder
// has already expanded the encoding into a replicated 64-bit pattern.
func (e *Emulator) executeSIMDModImm(inst *insts.Instruction) {
	pattern := inst.Imm
	q := isQuadArrangement(inst.Arrangement)

	var lo, hi uint64
	switch inst.Op {
	case insts.OpVMOVI, insts.OpVFMOVImm:
		lo = pattern
		if q {
			hi = pattern
		}
	case insts.OpVMVNI:
		lo = ^pattern
		if q {
			hi = ^pattern
		}
	case insts.OpVORRImm:
		dLo, dHi := e.vecFile.ReadVec(inst.Rd)
		lo = dLo | pattern
		if q {
			hi = dHi | pattern
		}
	case insts.OpVBICImm:
		dLo, dHi := e.vecFile.ReadVec(inst.Rd)
		lo = dLo &^ pattern
		if q {
			hi = dHi &^ pattern
		}
	}

	e.vecFile.WriteVec(inst.Rd, lo, hi)
}

// executeFPCompare executes FCMP and FCMPE. Both set NZCV the same way;
// the signalling form differs only in the exception flags, which the
// simulator does not model.
func (e *Emulator) executeFPCompare(inst *insts.Instruction) {
	a := e.vecFile.ReadScalar(inst.Rn)
	var b uint64
	if inst.Rm != 0xFF {
		b = e.vecFile.ReadScalar(inst.Rm)
	}

	if inst.Is64Bit {
		e.fpu.Compare64(math.Float64frombits(a), math.Float64frombits(b))
	} else {
		e.fpu.Compare32(
			math.Float32frombits(uint32(a)),
			math.Float32frombits(uint32(b)))
	}
}

// executeFPCondSelect executes FCSEL.
func (e *Emulator) executeFPCondSelect(inst *insts.Instruction) {
	src := inst.Rn
	if !e.alu.CheckCondition(inst.Cond) {
		src = inst.Rm
	}

	value := e.vecFile.ReadScalar(src)
	size := uint8(3)
	if !inst.Is64Bit {
		value = uint64(uint32(value))
		size = 2
	}
	e.vecFile.WriteScalar(inst.Rd, value, size)
}

func isQuadArrangement(arr insts.Arrangement) bool {
	switch arr {
	case insts.Arr16B, insts.Arr8H, insts.Arr4S, insts.Arr2D:
		return true
	}
	return false
}
