package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
)

func encodeRDVL(rd uint8, imm6 int8) uint32 {
	return 0x04BF5000 | uint32(imm6&0x3F)<<5 | uint32(rd)
}

func encodeCNTB(rd, pattern uint8) uint32 {
	return 0x0420E000 | uint32(pattern)<<5 | uint32(rd)
}

func encodeCNTD(rd, pattern, mul uint8) uint32 {
	return 0x04E0E000 | uint32(mul-1)<<16 | uint32(pattern)<<5 | uint32(rd)
}

func encodePTRUEB(pd, pattern uint8) uint32 {
	return 0x2518E000 | uint32(pattern)<<5 | uint32(pd)
}

func encodePFALSE(pd uint8) uint32 {
	return 0x2518E400 | uint32(pd)
}

func encodeZADDPredB(zdn, pg, zm uint8) uint32 {
	return 0x04000000 | uint32(pg)<<10 | uint32(zm)<<5 | uint32(zdn)
}

func encodeZADDUnpredB(zd, zn, zm uint8) uint32 {
	return 0x04200000 | uint32(zm)<<16 | uint32(zn)<<5 | uint32(zd)
}

const svePatternAll = 31
const svePatternVL4 = 3

var _ = Describe("SVE execution", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator(emu.WithVectorLength(256))
	})

	stepOK := func(words ...uint32) {
		e.LoadProgram(0x1000, wordsToProgram(words...))
		for range words {
			result := e.Step()
			Expect(result.Err).To(BeNil())
		}
	}

	Describe("vector length queries", func() {
		It("should report the vector length in bytes", func() {
			stepOK(encodeRDVL(0, 1))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(32)))
		})

		It("should scale RDVL by the immediate", func() {
			stepOK(encodeRDVL(0, 4))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(128)))
		})

		It("should count byte elements", func() {
			stepOK(encodeCNTB(0, svePatternAll))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(32)))
		})

		It("should apply the multiplier to element counts", func() {
			stepOK(encodeCNTD(0, svePatternAll, 2))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(8)))
		})

		It("should honor fixed-length patterns", func() {
			stepOK(encodeCNTB(0, svePatternVL4))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(4)))
		})
	})

	Describe("predicate initialization", func() {
		It("should set every byte lane for the ALL pattern", func() {
			stepOK(encodePTRUEB(0, svePatternAll))

			for lane := 0; lane < 32; lane++ {
				Expect(e.VecFile().PredBit(0, lane)).To(BeTrue())
			}
		})

		It("should limit active lanes to the pattern count", func() {
			stepOK(encodePTRUEB(0, svePatternVL4))

			for lane := 0; lane < 4; lane++ {
				Expect(e.VecFile().PredBit(0, lane)).To(BeTrue())
			}
			Expect(e.VecFile().PredBit(0, 4)).To(BeFalse())
		})

		It("should clear every lane with PFALSE", func() {
			stepOK(
				encodePTRUEB(1, svePatternAll),
				encodePFALSE(1),
			)

			for lane := 0; lane < 32; lane++ {
				Expect(e.VecFile().PredBit(1, lane)).To(BeFalse())
			}
		})
	})

	Describe("predicated arithmetic", func() {
		It("should merge inactive lanes from the destination", func() {
			for lane := 0; lane < 32; lane++ {
				e.VecFile().WriteElem(0, lane, 0, uint64(lane))
				e.VecFile().WriteElem(1, lane, 0, 100)
			}
			stepOK(
				encodePTRUEB(0, svePatternVL4),
				encodeZADDPredB(0, 0, 1),
			)

			for lane := 0; lane < 4; lane++ {
				Expect(e.VecFile().ReadElem(0, lane, 0)).
					To(Equal(uint64(lane + 100)))
			}
			for lane := 4; lane < 32; lane++ {
				Expect(e.VecFile().ReadElem(0, lane, 0)).
					To(Equal(uint64(lane)))
			}
		})
	})

	Describe("unpredicated arithmetic", func() {
		It("should operate on the full vector length", func() {
			for lane := 0; lane < 32; lane++ {
				e.VecFile().WriteElem(1, lane, 0, uint64(lane))
				e.VecFile().WriteElem(2, lane, 0, 1)
			}
			stepOK(encodeZADDUnpredB(0, 1, 2))

			for lane := 0; lane < 32; lane++ {
				Expect(e.VecFile().ReadElem(0, lane, 0)).
					To(Equal(uint64(lane + 1)))
			}
		})
	})

	Describe("unsupported encodings", func() {
		It("should abort instead of executing silently", func() {
			e.LoadProgram(0x1000, wordsToProgram(0x04203000))

			Expect(func() { e.Step() }).To(Panic())
		})
	})
})
