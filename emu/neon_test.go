package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
)

func encodeMOVI16B(rd, imm8 uint8) uint32 {
	return 0x4F00E400 | uint32(imm8>>5)<<16 | uint32(imm8&0x1F)<<5 |
		uint32(rd)
}

func encodeVADD16B(rd, rn, rm uint8) uint32 {
	return 0x4E208400 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeVADD4S(rd, rn, rm uint8) uint32 {
	return 0x4EA08400 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeSQADD16B(rd, rn, rm uint8) uint32 {
	return 0x4E200C00 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeUQADD16B(rd, rn, rm uint8) uint32 {
	return 0x6E200C00 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeSQSUB2D(rd, rn, rm uint8) uint32 {
	return 0x4EE02C00 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeCMEQ16B(rd, rn, rm uint8) uint32 {
	return 0x6E208C00 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeDUPGen4S(rd, rn uint8) uint32 {
	return 0x4E040C00 | uint32(rn)<<5 | uint32(rd)
}

func encodeUMOVS(rd, rn, index uint8) uint32 {
	imm5 := uint32(index)<<3 | 0x4
	return 0x0E003C00 | imm5<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeADDV4S(rd, rn uint8) uint32 {
	return 0x4EB1B800 | uint32(rn)<<5 | uint32(rd)
}

func encodeFADD2D(rd, rn, rm uint8) uint32 {
	return 0x4E60D400 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeFMUL4S(rd, rn, rm uint8) uint32 {
	return 0x6E20DC00 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeSHL4S(rd, rn, shift uint8) uint32 {
	return 0x4F005400 | uint32(32+shift)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeUSHR4S(rd, rn, shift uint8) uint32 {
	return 0x6F000400 | uint32(64-shift)<<16 | uint32(rn)<<5 | uint32(rd)
}

func packFloat32Pair(lo, hi float32) uint64 {
	return uint64(math.Float32bits(lo)) | uint64(math.Float32bits(hi))<<32
}

var _ = Describe("NEON execution", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator()
	})

	runOne := func(word uint32) {
		e.LoadProgram(0x1000, wordsToProgram(word))
		result := e.Step()
		Expect(result.Err).To(BeNil())
	}

	Describe("move immediate", func() {
		It("should replicate the byte pattern across the register", func() {
			runOne(encodeMOVI16B(0, 0x5A))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x5A5A5A5A5A5A5A5A)))
			Expect(hi).To(Equal(uint64(0x5A5A5A5A5A5A5A5A)))
		})
	})

	Describe("integer lanes", func() {
		It("should add byte lanes independently", func() {
			e.VecFile().WriteVec(1, 0x0101010101010101, 0x0202020202020202)
			e.VecFile().WriteVec(2, 0x1010101010101010, 0x2020202020202020)
			runOne(encodeVADD16B(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x1111111111111111)))
			Expect(hi).To(Equal(uint64(0x2222222222222222)))
		})

		It("should keep word-lane carries from crossing lanes", func() {
			e.VecFile().WriteVec(1, 0x00000001FFFFFFFF, 0)
			e.VecFile().WriteVec(2, 0x0000000000000001, 0)
			runOne(encodeVADD4S(0, 1, 2))

			lo, _ := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x0000000100000000)))
		})
	})

	Describe("saturating arithmetic", func() {
		It("should clamp signed byte overflow at the maximum", func() {
			e.VecFile().WriteVec(1, 0x7F7F7F7F7F7F7F7F, 0x7F7F7F7F7F7F7F7F)
			e.VecFile().WriteVec(2, 0x0101010101010101, 0x0101010101010101)
			runOne(encodeSQADD16B(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x7F7F7F7F7F7F7F7F)))
			Expect(hi).To(Equal(uint64(0x7F7F7F7F7F7F7F7F)))
		})

		It("should clamp unsigned byte overflow at the maximum", func() {
			e.VecFile().WriteVec(1, 0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF)
			e.VecFile().WriteVec(2, 0x0101010101010101, 0x0101010101010101)
			runOne(encodeUQADD16B(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0xFFFFFFFFFFFFFFFF)))
			Expect(hi).To(Equal(uint64(0xFFFFFFFFFFFFFFFF)))
		})

		It("should clamp a subtraction of the 64-bit minimum at the maximum", func() {
			e.VecFile().WriteVec(1, 0, 0)
			e.VecFile().WriteVec(2, 0x8000000000000000, 0x8000000000000000)
			runOne(encodeSQSUB2D(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x7FFFFFFFFFFFFFFF)))
			Expect(hi).To(Equal(uint64(0x7FFFFFFFFFFFFFFF)))
		})

		It("should clamp signed 64-bit underflow at the minimum", func() {
			e.VecFile().WriteVec(1, 0x8000000000000000, 0x8000000000000000)
			e.VecFile().WriteVec(2, 1, 1)
			runOne(encodeSQSUB2D(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x8000000000000000)))
			Expect(hi).To(Equal(uint64(0x8000000000000000)))
		})
	})

	Describe("comparisons", func() {
		It("should write all-ones masks for equal byte lanes", func() {
			e.VecFile().WriteVec(1, 0x00000000000000AA, 0)
			e.VecFile().WriteVec(2, 0x00000000000011AA, 0)
			runOne(encodeCMEQ16B(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0xFFFFFFFFFFFF00FF)))
			Expect(hi).To(Equal(uint64(0xFFFFFFFFFFFFFFFF)))
		})
	})

	Describe("copies", func() {
		It("should broadcast a general register into every lane", func() {
			e.RegFile().WriteReg(1, 0xDEADBEEF)
			runOne(encodeDUPGen4S(0, 1))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0xDEADBEEFDEADBEEF)))
			Expect(hi).To(Equal(uint64(0xDEADBEEFDEADBEEF)))
		})

		It("should extract an element into a general register", func() {
			e.VecFile().WriteVec(1, 0x1111111122222222, 0)
			runOne(encodeUMOVS(0, 1, 1))

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(0x11111111)))
		})
	})

	Describe("across lanes", func() {
		It("should sum word lanes into a scalar", func() {
			e.VecFile().WriteVec(1, 0x0000000200000001, 0x0000000400000003)
			runOne(encodeADDV4S(0, 1))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(10)))
			Expect(hi).To(Equal(uint64(0)))
		})
	})

	Describe("floating-point lanes", func() {
		It("should add double lanes", func() {
			e.VecFile().WriteVec(1, math.Float64bits(1.5), math.Float64bits(2.0))
			e.VecFile().WriteVec(2, math.Float64bits(0.25), math.Float64bits(0.5))
			runOne(encodeFADD2D(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(math.Float64frombits(lo)).To(Equal(1.75))
			Expect(math.Float64frombits(hi)).To(Equal(2.5))
		})

		It("should multiply single lanes", func() {
			e.VecFile().WriteVec(1,
				packFloat32Pair(2.0, 3.0), packFloat32Pair(4.0, 5.0))
			e.VecFile().WriteVec(2,
				packFloat32Pair(10.0, 10.0), packFloat32Pair(10.0, 10.0))
			runOne(encodeFMUL4S(0, 1, 2))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(packFloat32Pair(20.0, 30.0)))
			Expect(hi).To(Equal(packFloat32Pair(40.0, 50.0)))
		})
	})

	Describe("immediate shifts", func() {
		It("should shift word lanes left", func() {
			e.VecFile().WriteVec(1, 0x0000000200000001, 0x8000000000000003)
			runOne(encodeSHL4S(0, 1, 1))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x0000000400000002)))
			Expect(hi).To(Equal(uint64(0x0000000000000006)))
		})

		It("should shift word lanes right without crossing lanes", func() {
			e.VecFile().WriteVec(1, 0x0000000400000002, 0x0000000800000006)
			runOne(encodeUSHR4S(0, 1, 1))

			lo, hi := e.VecFile().ReadVec(0)
			Expect(lo).To(Equal(uint64(0x0000000200000001)))
			Expect(hi).To(Equal(uint64(0x0000000400000003)))
		})
	})
})
