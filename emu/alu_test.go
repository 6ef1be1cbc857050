package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
	"github.com/sarchlab/a64sim/insts"
)

func encodeADDSImm32(rd, rn uint8, imm uint16) uint32 {
	return 0x31000000 | uint32(imm)<<10 | uint32(rn)<<5 | uint32(rd)
}

func encodeSUBSReg(rd, rn, rm uint8) uint32 {
	return 0xEB000000 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeADDShifted(rd, rn, rm, amount uint8) uint32 {
	return 0x8B000000 | uint32(rm)<<16 | uint32(amount)<<10 |
		uint32(rn)<<5 | uint32(rd)
}

func encodeUDIV(rd, rn, rm uint8) uint32 {
	return 0x9AC00800 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeSDIV(rd, rn, rm uint8) uint32 {
	return 0x9AC00C00 | uint32(rm)<<16 | uint32(rn)<<5 | uint32(rd)
}

func encodeMADD(rd, rn, rm, ra uint8) uint32 {
	return 0x9B000000 | uint32(rm)<<16 | uint32(ra)<<10 |
		uint32(rn)<<5 | uint32(rd)
}

func encodeCSEL(rd, rn, rm uint8, cond insts.Cond) uint32 {
	return 0x9A800000 | uint32(rm)<<16 | uint32(cond)<<12 |
		uint32(rn)<<5 | uint32(rd)
}

func encodeCLZ(rd, rn uint8) uint32 {
	return 0xDAC01000 | uint32(rn)<<5 | uint32(rd)
}

func encodeRBIT(rd, rn uint8) uint32 {
	return 0xDAC00000 | uint32(rn)<<5 | uint32(rd)
}

var _ = Describe("Integer arithmetic", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator()
	})

	runOne := func(word uint32) {
		e.LoadProgram(0x1000, wordsToProgram(word))
		result := e.Step()
		Expect(result.Err).To(BeNil())
	}

	Describe("flag setting", func() {
		It("should set N and V on 32-bit signed overflow", func() {
			e.RegFile().WriteReg(1, 0x7FFFFFFF)
			runOne(encodeADDSImm32(0, 1, 1))

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(0x80000000)))
			Expect(e.RegFile().PSTATE.N).To(BeTrue())
			Expect(e.RegFile().PSTATE.Z).To(BeFalse())
			Expect(e.RegFile().PSTATE.C).To(BeFalse())
			Expect(e.RegFile().PSTATE.V).To(BeTrue())
		})

		It("should set C on a subtraction without borrow", func() {
			e.RegFile().WriteReg(1, 5)
			e.RegFile().WriteReg(2, 3)
			runOne(encodeSUBSReg(0, 1, 2))

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(2)))
			Expect(e.RegFile().PSTATE.C).To(BeTrue())
			Expect(e.RegFile().PSTATE.N).To(BeFalse())
		})

		It("should clear C on a subtraction with borrow", func() {
			e.RegFile().WriteReg(1, 3)
			e.RegFile().WriteReg(2, 5)
			runOne(encodeSUBSReg(0, 1, 2))

			Expect(e.RegFile().PSTATE.C).To(BeFalse())
			Expect(e.RegFile().PSTATE.N).To(BeTrue())
		})

		It("should set Z and C when comparing equal values", func() {
			e.RegFile().WriteReg(1, 9)
			e.RegFile().WriteReg(2, 9)
			runOne(encodeSUBSReg(31, 1, 2))

			Expect(e.RegFile().PSTATE.Z).To(BeTrue())
			Expect(e.RegFile().PSTATE.C).To(BeTrue())
		})
	})

	Describe("shifted operands", func() {
		It("should apply LSL to the second operand", func() {
			e.RegFile().WriteReg(1, 1)
			e.RegFile().WriteReg(2, 3)
			runOne(encodeADDShifted(0, 1, 2, 4))

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(1 + 3<<4)))
		})
	})

	Describe("division", func() {
		It("should return zero for division by zero", func() {
			e.RegFile().WriteReg(1, 100)
			e.RegFile().WriteReg(2, 0)
			runOne(encodeUDIV(0, 1, 2))

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(0)))
		})

		It("should wrap MinInt / -1 to MinInt", func() {
			e.RegFile().WriteReg(1, 0x8000000000000000)
			e.RegFile().WriteReg(2, 0xFFFFFFFFFFFFFFFF)
			runOne(encodeSDIV(0, 1, 2))

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(0x8000000000000000)))
		})

		It("should divide signed values", func() {
			e.RegFile().WriteReg(1, uint64(0xFFFFFFFFFFFFFFF8)) // -8
			e.RegFile().WriteReg(2, 2)
			runOne(encodeSDIV(0, 1, 2))

			Expect(int64(e.RegFile().ReadReg(0))).To(Equal(int64(-4)))
		})
	})

	Describe("multiply-add", func() {
		It("should compute Ra + Rn*Rm", func() {
			e.RegFile().WriteReg(1, 6)
			e.RegFile().WriteReg(2, 7)
			e.RegFile().WriteReg(3, 100)
			runOne(encodeMADD(0, 1, 2, 3))

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(142)))
		})
	})

	Describe("conditional select", func() {
		It("should pick Rn when the condition holds", func() {
			e.RegFile().WriteReg(1, 9)
			e.RegFile().WriteReg(2, 9)
			e.RegFile().WriteReg(3, 111)
			e.RegFile().WriteReg(4, 222)
			e.LoadProgram(0x1000, wordsToProgram(
				encodeSUBSReg(31, 1, 2), // sets Z
				encodeCSEL(0, 3, 4, insts.CondEQ),
			))

			e.Step()
			e.Step()

			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(111)))
		})
	})

	Describe("bit operations", func() {
		It("should count leading zeros", func() {
			e.RegFile().WriteReg(1, 1)
			runOne(encodeCLZ(0, 1))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(63)))
		})

		It("should reverse bits", func() {
			e.RegFile().WriteReg(1, 1)
			runOne(encodeRBIT(0, 1))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(1) << 63))
		})
	})
})

var _ = Describe("ALU helpers", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU(emu.NewRegFile())
	})

	Describe("AddWithCarry", func() {
		It("should carry out of an unsigned 64-bit overflow", func() {
			result := alu.AddWithCarry(^uint64(0), 1, false, true, true)
			Expect(result).To(Equal(uint64(0)))
		})

		It("should subtract via inverted operand and carry-in", func() {
			result := alu.AddWithCarry(10, ^uint64(3), true, true, false)
			Expect(result).To(Equal(uint64(6)))
		})
	})

	Describe("ShiftOperand", func() {
		It("should leave the value alone for a zero amount", func() {
			Expect(emu.ShiftOperand(0x1234, insts.ShiftLSL, 0, true)).
				To(Equal(uint64(0x1234)))
		})

		It("should rotate right", func() {
			Expect(emu.ShiftOperand(1, insts.ShiftROR, 1, true)).
				To(Equal(uint64(1) << 63))
		})

		It("should arithmetic-shift 32-bit values within the low word", func() {
			Expect(emu.ShiftOperand(0x80000000, insts.ShiftASR, 4, false)).
				To(Equal(uint64(0xF8000000)))
		})
	})

	Describe("ExtendValue", func() {
		It("should sign-extend a byte and shift", func() {
			Expect(emu.ExtendValue(0x80, insts.ExtendSXTB, 1)).
				To(Equal(uint64(0xFFFFFFFFFFFFFF00)))
		})

		It("should zero-extend a halfword", func() {
			Expect(emu.ExtendValue(0x1FFFF, insts.ExtendUXTH, 0)).
				To(Equal(uint64(0xFFFF)))
		})
	})
})
