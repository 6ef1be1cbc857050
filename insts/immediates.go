package insts

import "math/bits"

// decodeBitMasks expands the (N, immr, imms) triple of a logical-immediate
// encoding into the replicated wmask value. Returns ok=false for the
// reserved encodings.
func decodeBitMasks(n, immr, imms uint32, is64 bool) (uint64, bool) {
	lenField := 31 - bits.LeadingZeros32((n<<6)|(^imms&0x3F))
	if lenField < 1 {
		return 0, false
	}
	if !is64 && n != 0 {
		return 0, false
	}

	size := uint32(1) << lenField
	levels := size - 1
	s := imms & levels
	r := immr & levels
	if s == levels {
		// Immediates with all payload bits set are reserved.
		return 0, false
	}

	// Pattern of s+1 set bits, rotated right by r, replicated to fill
	// the register.
	welem := (uint64(1) << (s + 1)) - 1
	pattern := rotateRightBits(welem, r, size)
	result := uint64(0)
	for i := uint32(0); i < 64; i += size {
		result |= pattern << i
	}
	if !is64 {
		result &= 0xFFFFFFFF
	}
	return result, true
}

// rotateRightBits rotates value right by amount within width bits.
func rotateRightBits(value uint64, amount, width uint32) uint64 {
	amount %= width
	if amount == 0 {
		return value
	}
	mask := (uint64(1) << width) - 1
	value &= mask
	return ((value >> amount) | (value << (width - amount))) & mask
}

// expandSIMDImm expands the abcdefgh byte and cmode/op fields of a NEON
// modified-immediate encoding into the replicated 64-bit pattern and the
// operation it feeds.
func expandSIMDImm(q bool, op, cmode uint32, abcdefgh uint64) (imm uint64, instOp Op, arr Arrangement) {
	b := abcdefgh & 0xFF

	switch {
	case cmode&0b1001 == 0b0000: // 32-bit shifted immediate, MOVI/MVNI
		shift := ((cmode >> 1) & 0x3) * 8
		imm = replicate64(b<<shift, 32)
		instOp, arr = pickMoviMvni(op, q, false)
	case cmode&0b1001 == 0b0001: // 32-bit ORR/BIC immediate
		shift := ((cmode >> 1) & 0x3) * 8
		imm = replicate64(b<<shift, 32)
		if op == 0 {
			instOp = OpVORRImm
		} else {
			instOp = OpVBICImm
		}
		arr = pick32(q)
	case cmode&0b1101 == 0b1000: // 16-bit shifted immediate, MOVI/MVNI
		shift := ((cmode >> 1) & 0x1) * 8
		imm = replicate64(b<<shift, 16)
		instOp, arr = pickMoviMvni(op, q, true)
	case cmode&0b1101 == 0b1001: // 16-bit ORR/BIC immediate
		shift := ((cmode >> 1) & 0x1) * 8
		imm = replicate64(b<<shift, 16)
		if op == 0 {
			instOp = OpVORRImm
		} else {
			instOp = OpVBICImm
		}
		arr = pick16(q)
	case cmode&0b1110 == 0b1100: // 32-bit shifting-ones (MSL)
		ones := uint64(0xFF)
		if cmode&1 == 1 {
			ones = 0xFFFF
		}
		imm = replicate64((b<<(8+8*(cmode&1)))|ones, 32)
		instOp, arr = pickMoviMvni(op, q, false)
	case cmode == 0b1110 && op == 0: // 8-bit MOVI
		imm = replicate64(b, 8)
		instOp = OpVMOVI
		if q {
			arr = Arr16B
		} else {
			arr = Arr8B
		}
	case cmode == 0b1110 && op == 1: // 64-bit MOVI (per-bit byte expansion)
		imm = expandBitsToBytes(b)
		instOp = OpVMOVI
		if q {
			arr = Arr2D
		} else {
			arr = Arr1D
		}
	case cmode == 0b1111 && op == 0: // FMOV (single-precision immediate)
		imm = replicate64(vfpExpandImm32(b), 32)
		instOp = OpVFMOVImm
		arr = pick32(q)
	case cmode == 0b1111 && op == 1: // FMOV (double-precision immediate)
		imm = vfpExpandImm64(b)
		instOp = OpVFMOVImm
		arr = Arr2D
	default:
		instOp = OpUnknown
	}
	return imm, instOp, arr
}

func pickMoviMvni(op uint32, q, half bool) (Op, Arrangement) {
	var instOp Op
	if op == 0 {
		instOp = OpVMOVI
	} else {
		instOp = OpVMVNI
	}
	if half {
		return instOp, pick16(q)
	}
	return instOp, pick32(q)
}

func pick32(q bool) Arrangement {
	if q {
		return Arr4S
	}
	return Arr2S
}

func pick16(q bool) Arrangement {
	if q {
		return Arr8H
	}
	return Arr4H
}

// replicate64 replicates the low width bits of pattern across 64 bits.
func replicate64(pattern uint64, width uint32) uint64 {
	result := uint64(0)
	for i := uint32(0); i < 64; i += width {
		result |= (pattern & ((1 << width) - 1)) << i
	}
	return result
}

// expandBitsToBytes expands each of the 8 low bits of b into a full byte.
func expandBitsToBytes(b uint64) uint64 {
	result := uint64(0)
	for i := 0; i < 8; i++ {
		if (b>>i)&1 == 1 {
			result |= uint64(0xFF) << (8 * i)
		}
	}
	return result
}

// vfpExpandImm32 expands an 8-bit VFP immediate into float32 bits.
func vfpExpandImm32(imm8 uint64) uint64 {
	sign := (imm8 >> 7) & 1
	notB := (^imm8 >> 6) & 1
	repB := imm8 >> 6 & 1
	exp := (notB << 7) | (repB << 6) | (repB << 5) | (repB << 4) | (repB << 3) | (repB << 2) | ((imm8 >> 4) & 0x3)
	frac := (imm8 & 0xF) << 19
	return (sign << 31) | (exp << 23) | frac
}

// vfpExpandImm64 expands an 8-bit VFP immediate into float64 bits.
func vfpExpandImm64(imm8 uint64) uint64 {
	sign := (imm8 >> 7) & 1
	notB := (^imm8 >> 6) & 1
	repB := imm8 >> 6 & 1
	exp := (notB << 10) | (repB << 9) | (repB << 8) | (repB << 7) |
		(repB << 6) | (repB << 5) | (repB << 4) | (repB << 3) | (repB << 2) | ((imm8 >> 4) & 0x3)
	frac := (imm8 & 0xF) << 48
	return (sign << 63) | (exp << 52) | frac
}
