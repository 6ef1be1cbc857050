package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
	"github.com/sarchlab/a64sim/insts"
)

var _ = Describe("FPU", func() {
	var (
		rf  *emu.RegFile
		fpu *emu.FPU
	)

	signallingNaN := math.Float64frombits(0x7FF0000000000001)
	payloadNaN := math.Float64frombits(0x7FF8000000000042)
	defaultNaN := uint64(0x7FF8000000000000)

	BeforeEach(func() {
		rf = emu.NewRegFile()
		fpu = emu.NewFPU(rf)
	})

	Describe("NaN handling", func() {
		It("should propagate a quiet NaN input unchanged", func() {
			result := fpu.Add64(payloadNaN, 1)
			Expect(math.Float64bits(result)).
				To(Equal(uint64(0x7FF8000000000042)))
		})

		It("should quiet a signalling NaN input", func() {
			result := fpu.Add64(1, signallingNaN)
			Expect(math.Float64bits(result)).
				To(Equal(uint64(0x7FF8000000000001)))
		})

		It("should prefer a signalling NaN over a quiet one", func() {
			result := fpu.Add64(payloadNaN, signallingNaN)
			Expect(math.Float64bits(result)).
				To(Equal(uint64(0x7FF8000000000001)))
		})

		It("should produce the default NaN for an invalid operation", func() {
			result := fpu.Sub64(math.Inf(1), math.Inf(1))
			Expect(math.Float64bits(result)).To(Equal(defaultNaN))
		})

		It("should force the default NaN when the DN bit is set", func() {
			rf.SetFPCR(1 << 25)
			result := fpu.Add64(payloadNaN, 1)
			Expect(math.Float64bits(result)).To(Equal(defaultNaN))
		})
	})

	Describe("fused multiply-add", func() {
		It("should compute a + b*c", func() {
			Expect(fpu.MulAdd64(10, 2, 3)).To(Equal(float64(16)))
		})
	})

	Describe("max and min", func() {
		It("should treat +0 as larger than -0", func() {
			result := fpu.Max64(math.Copysign(0, -1), 0)
			Expect(math.Signbit(result)).To(BeFalse())
		})

		It("should treat -0 as smaller than +0", func() {
			result := fpu.Min64(0, math.Copysign(0, -1))
			Expect(math.Signbit(result)).To(BeTrue())
		})

		It("should propagate NaN through the plain forms", func() {
			Expect(math.IsNaN(fpu.Max64(math.NaN(), 5))).To(BeTrue())
		})

		It("should replace a quiet NaN with the number in the NM forms", func() {
			Expect(fpu.MaxNM64(math.NaN(), 5)).To(Equal(float64(5)))
			Expect(fpu.MinNM64(7, math.NaN())).To(Equal(float64(7)))
		})

		It("should still propagate a signalling NaN in the NM forms", func() {
			Expect(math.IsNaN(fpu.MaxNM64(signallingNaN, 5))).To(BeTrue())
		})
	})

	Describe("comparison", func() {
		It("should set Z and C for equal values", func() {
			fpu.Compare64(2, 2)
			Expect(rf.PSTATE.Z).To(BeTrue())
			Expect(rf.PSTATE.C).To(BeTrue())
			Expect(rf.PSTATE.N).To(BeFalse())
			Expect(rf.PSTATE.V).To(BeFalse())
		})

		It("should set N for a smaller first operand", func() {
			fpu.Compare64(1, 2)
			Expect(rf.PSTATE.N).To(BeTrue())
			Expect(rf.PSTATE.Z).To(BeFalse())
			Expect(rf.PSTATE.C).To(BeFalse())
		})

		It("should set C for a larger first operand", func() {
			fpu.Compare64(3, 2)
			Expect(rf.PSTATE.C).To(BeTrue())
			Expect(rf.PSTATE.N).To(BeFalse())
			Expect(rf.PSTATE.Z).To(BeFalse())
		})

		It("should set C and V for an unordered comparison", func() {
			fpu.Compare64(math.NaN(), 2)
			Expect(rf.PSTATE.C).To(BeTrue())
			Expect(rf.PSTATE.V).To(BeTrue())
			Expect(rf.PSTATE.Z).To(BeFalse())
		})
	})

	Describe("rounding to integral", func() {
		It("should round ties to even for FRINTN", func() {
			Expect(fpu.RoundInt(2.5, insts.OpVFRINTN)).To(Equal(float64(2)))
		})

		It("should round ties away for FRINTA", func() {
			Expect(fpu.RoundInt(2.5, insts.OpVFRINTA)).To(Equal(float64(3)))
		})

		It("should round towards plus infinity for FRINTP", func() {
			Expect(fpu.RoundInt(-1.5, insts.OpVFRINTP)).To(Equal(float64(-1)))
		})

		It("should round towards minus infinity for FRINTM", func() {
			Expect(fpu.RoundInt(1.5, insts.OpVFRINTM)).To(Equal(float64(1)))
		})

		It("should truncate for FRINTZ", func() {
			Expect(fpu.RoundInt(-1.7, insts.OpVFRINTZ)).To(Equal(float64(-1)))
		})

		It("should follow the FPCR rounding mode for FRINTI", func() {
			rf.SetFPCR(emu.FPRoundPlus << 22)
			Expect(fpu.RoundInt(1.2, insts.OpVFRINTI)).To(Equal(float64(2)))
		})
	})

	Describe("conversions", func() {
		It("should saturate at the signed bounds", func() {
			Expect(fpu.ToInt64(1e30)).To(Equal(int64(math.MaxInt64)))
			Expect(fpu.ToInt64(-1e30)).To(Equal(int64(math.MinInt64)))
		})

		It("should convert NaN to zero", func() {
			Expect(fpu.ToInt64(math.NaN())).To(Equal(int64(0)))
		})

		It("should clamp negative values to zero for unsigned targets", func() {
			Expect(fpu.ToUint32(-1)).To(Equal(uint32(0)))
		})

		It("should saturate at the 32-bit unsigned bound", func() {
			Expect(fpu.ToUint32(5e9)).To(Equal(uint32(math.MaxUint32)))
		})

		It("should truncate towards zero", func() {
			Expect(fpu.ToInt32(1.9)).To(Equal(int32(1)))
		})
	})

	Describe("square root", func() {
		It("should produce the default NaN for a negative input", func() {
			result := fpu.Sqrt64(-1)
			Expect(math.Float64bits(result)).To(Equal(defaultNaN))
		})
	})
})

func encodeFCMP(rn, rm uint8, double bool) uint32 {
	word := uint32(0x1E202000) | uint32(rm)<<16 | uint32(rn)<<5
	if double {
		word |= 1 << 22
	}
	return word
}

func encodeFCMPZero(rn uint8, double bool) uint32 {
	word := uint32(0x1E202008) | uint32(rn)<<5
	if double {
		word |= 1 << 22
	}
	return word
}

func encodeFCMPE(rn, rm uint8, double bool) uint32 {
	return encodeFCMP(rn, rm, double) | 0x10
}

func encodeFCSEL(rd, rn, rm uint8, cond insts.Cond, double bool) uint32 {
	word := uint32(0x1E200C00) | uint32(rm)<<16 | uint32(cond)<<12 |
		uint32(rn)<<5 | uint32(rd)
	if double {
		word |= 1 << 22
	}
	return word
}

var _ = Describe("Scalar FP compare and select", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator()
	})

	runOne := func(word uint32) {
		e.LoadProgram(0x1000, wordsToProgram(word))
		Expect(e.Step().Err).To(BeNil())
	}

	writeD := func(reg uint8, value float64) {
		e.VecFile().WriteScalar(reg, math.Float64bits(value), 3)
	}

	Describe("FCMP", func() {
		It("should set N for a smaller first operand", func() {
			writeD(1, 1.0)
			writeD(2, 2.0)
			runOne(encodeFCMP(1, 2, true))

			Expect(e.RegFile().PSTATE.N).To(BeTrue())
			Expect(e.RegFile().PSTATE.Z).To(BeFalse())
			Expect(e.RegFile().PSTATE.C).To(BeFalse())
		})

		It("should set Z and C for equal operands", func() {
			writeD(1, 3.5)
			writeD(2, 3.5)
			runOne(encodeFCMP(1, 2, true))

			Expect(e.RegFile().PSTATE.Z).To(BeTrue())
			Expect(e.RegFile().PSTATE.C).To(BeTrue())
		})

		It("should compare against +0.0 in the zero form", func() {
			writeD(1, -1.0)
			runOne(encodeFCMPZero(1, true))

			Expect(e.RegFile().PSTATE.N).To(BeTrue())
		})

		It("should flag an unordered signalling compare", func() {
			writeD(1, math.NaN())
			writeD(2, 2.0)
			runOne(encodeFCMPE(1, 2, true))

			Expect(e.RegFile().PSTATE.C).To(BeTrue())
			Expect(e.RegFile().PSTATE.V).To(BeTrue())
		})

		It("should compare single-precision values", func() {
			e.VecFile().WriteScalar(1, uint64(math.Float32bits(5)), 2)
			e.VecFile().WriteScalar(2, uint64(math.Float32bits(4)), 2)
			runOne(encodeFCMP(1, 2, false))

			Expect(e.RegFile().PSTATE.C).To(BeTrue())
			Expect(e.RegFile().PSTATE.Z).To(BeFalse())
			Expect(e.RegFile().PSTATE.N).To(BeFalse())
		})
	})

	Describe("FCSEL", func() {
		It("should select the first operand when the condition holds", func() {
			writeD(1, 1.25)
			writeD(2, 2.5)
			e.RegFile().PSTATE.Z = true
			runOne(encodeFCSEL(0, 1, 2, insts.CondEQ, true))

			Expect(e.VecFile().ReadScalar(0)).
				To(Equal(math.Float64bits(1.25)))
		})

		It("should select the second operand otherwise", func() {
			writeD(1, 1.25)
			writeD(2, 2.5)
			e.RegFile().PSTATE.Z = false
			runOne(encodeFCSEL(0, 1, 2, insts.CondEQ, true))

			Expect(e.VecFile().ReadScalar(0)).
				To(Equal(math.Float64bits(2.5)))
		})

		It("should truncate the single-precision form to 32 bits", func() {
			e.VecFile().WriteVec(1, 0xDEADBEEF00000000|
				uint64(math.Float32bits(9)), 0)
			e.RegFile().PSTATE.Z = true
			runOne(encodeFCSEL(0, 1, 2, insts.CondEQ, false))

			Expect(e.VecFile().ReadScalar(0)).
				To(Equal(uint64(math.Float32bits(9))))
		})
	})
})
