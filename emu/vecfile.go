package emu

import "encoding/binary"

// Vector length limits in bits. The minimum is the NEON width; larger
// lengths are only reachable through the scalable registers.
const (
	MinVectorLengthBits = 128
	MaxVectorLengthBits = 2048
)

// VecFile represents the vector register state: 32 vector registers and
// 16 predicate registers, both sized by the configured vector length.
// The low 128 bits of each vector register are the NEON V registers.
type VecFile struct {
	// Z holds the vector registers. Each slice is vl/8 bytes.
	Z [32][]byte

	// P holds the predicate registers. Each slice is vl/64 bytes, one
	// bit per byte lane of a vector register.
	P [16][]byte

	vlBits int
}

// NewVecFile creates a vector register file with the given vector length
// in bits. The length must be a multiple of 128 between 128 and 2048.
func NewVecFile(vlBits int) *VecFile {
	v := &VecFile{}
	v.SetVectorLengthInBits(vlBits)
	return v
}

// VectorLengthInBits returns the configured vector length.
func (v *VecFile) VectorLengthInBits() int {
	return v.vlBits
}

// SetVectorLengthInBits resizes the vector and predicate registers and
// resets their contents. Panics on an invalid length.
func (v *VecFile) SetVectorLengthInBits(vlBits int) {
	if vlBits < MinVectorLengthBits || vlBits > MaxVectorLengthBits ||
		vlBits%128 != 0 {
		panic("emu: invalid vector length")
	}
	v.vlBits = vlBits
	for i := range v.Z {
		v.Z[i] = make([]byte, vlBits/8)
	}
	for i := range v.P {
		v.P[i] = make([]byte, vlBits/64)
	}
	v.Reset()
}

// Reset fills the vector registers with a recognizable signalling-NaN
// pattern that encodes the register and lane numbers, and the predicate
// registers with a pattern encoding the register and lane numbers. Reads
// of uninitialized vector state then stand out in traces.
func (v *VecFile) Reset() {
	for reg := range v.Z {
		for lane := 0; lane < v.vlBits/64; lane++ {
			pattern := uint64(0x7ff0f0007f80f000) |
				uint64(reg)<<32 | uint64(lane)
			binary.LittleEndian.PutUint64(v.Z[reg][lane*8:], pattern)
		}
	}
	for reg := range v.P {
		for lane := 0; lane < v.vlBits/128; lane++ {
			pattern := uint16(lane<<8 | reg)
			binary.LittleEndian.PutUint16(v.P[reg][lane*2:], pattern)
		}
	}
}

// ReadVec returns the low 128 bits of a vector register as two 64-bit
// halves.
func (v *VecFile) ReadVec(reg uint8) (lo, hi uint64) {
	lo = binary.LittleEndian.Uint64(v.Z[reg][0:])
	hi = binary.LittleEndian.Uint64(v.Z[reg][8:])
	return lo, hi
}

// WriteVec writes the low 128 bits of a vector register and zeroes the
// rest, matching the architectural behavior of NEON writes.
func (v *VecFile) WriteVec(reg uint8, lo, hi uint64) {
	binary.LittleEndian.PutUint64(v.Z[reg][0:], lo)
	binary.LittleEndian.PutUint64(v.Z[reg][8:], hi)
	for i := 16; i < len(v.Z[reg]); i++ {
		v.Z[reg][i] = 0
	}
}

// ReadScalar returns the low 64 bits of a vector register.
func (v *VecFile) ReadScalar(reg uint8) uint64 {
	return binary.LittleEndian.Uint64(v.Z[reg][0:])
}

// WriteScalar writes the low sizeLog2 bytes of a vector register and
// zeroes the rest of the register.
func (v *VecFile) WriteScalar(reg uint8, value uint64, sizeLog2 uint8) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	size := 1 << sizeLog2
	copy(v.Z[reg][:size], buf[:size])
	for i := size; i < len(v.Z[reg]); i++ {
		v.Z[reg][i] = 0
	}
}

// ReadElem reads one element of a vector register. sizeLog2 is the element
// size in log2 bytes.
func (v *VecFile) ReadElem(reg uint8, index int, sizeLog2 uint8) uint64 {
	offset := index << sizeLog2
	switch sizeLog2 {
	case 0:
		return uint64(v.Z[reg][offset])
	case 1:
		return uint64(binary.LittleEndian.Uint16(v.Z[reg][offset:]))
	case 2:
		return uint64(binary.LittleEndian.Uint32(v.Z[reg][offset:]))
	default:
		return binary.LittleEndian.Uint64(v.Z[reg][offset:])
	}
}

// WriteElem writes one element of a vector register without disturbing the
// other elements.
func (v *VecFile) WriteElem(reg uint8, index int, sizeLog2 uint8, value uint64) {
	offset := index << sizeLog2
	switch sizeLog2 {
	case 0:
		v.Z[reg][offset] = byte(value)
	case 1:
		binary.LittleEndian.PutUint16(v.Z[reg][offset:], uint16(value))
	case 2:
		binary.LittleEndian.PutUint32(v.Z[reg][offset:], uint32(value))
	default:
		binary.LittleEndian.PutUint64(v.Z[reg][offset:], value)
	}
}

// PredBit reads one predicate bit. Predicate bit n governs byte lane n of
// the vector registers.
func (v *VecFile) PredBit(reg uint8, lane int) bool {
	return v.P[reg][lane/8]>>(lane%8)&1 == 1
}

// SetPredBit writes one predicate bit.
func (v *VecFile) SetPredBit(reg uint8, lane int, value bool) {
	if value {
		v.P[reg][lane/8] |= 1 << (lane % 8)
	} else {
		v.P[reg][lane/8] &^= 1 << (lane % 8)
	}
}
