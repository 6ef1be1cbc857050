package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
)

func encodeLDR64(rt, rn uint8, imm12 uint16) uint32 {
	return 0xF9400000 | uint32(imm12)<<10 | uint32(rn)<<5 | uint32(rt)
}

func encodeSTR64(rt, rn uint8, imm12 uint16) uint32 {
	return 0xF9000000 | uint32(imm12)<<10 | uint32(rn)<<5 | uint32(rt)
}

func encodeLDRPost(rt, rn uint8, imm9 int16) uint32 {
	return 0xF8400400 | (uint32(imm9)&0x1FF)<<12 | uint32(rn)<<5 | uint32(rt)
}

func encodeLDXR(rt, rn uint8) uint32 {
	return 0xC85F7C00 | uint32(rn)<<5 | uint32(rt)
}

func encodeSTXR(rs, rt, rn uint8) uint32 {
	return 0xC8007C00 | uint32(rs)<<16 | uint32(rn)<<5 | uint32(rt)
}

func encodeSTLR(rt, rn uint8) uint32 {
	return 0xC89FFC00 | uint32(rn)<<5 | uint32(rt)
}

func encodeCLREX() uint32 {
	return 0xD5033F5F
}

func encodeCAS(rs, rt, rn uint8) uint32 {
	return 0xC8A07C00 | uint32(rs)<<16 | uint32(rn)<<5 | uint32(rt)
}

func encodeLDADD(rs, rt, rn uint8) uint32 {
	return 0xF8200000 | uint32(rs)<<16 | uint32(rn)<<5 | uint32(rt)
}

func encodeSWP(rs, rt, rn uint8) uint32 {
	return 0xF8208000 | uint32(rs)<<16 | uint32(rn)<<5 | uint32(rt)
}

func encodeLDP64(rt, rt2, rn uint8, imm7 int8) uint32 {
	return 0xA9400000 | (uint32(imm7)&0x7F)<<15 | uint32(rt2)<<10 |
		uint32(rn)<<5 | uint32(rt)
}

func encodeSTP64(rt, rt2, rn uint8, imm7 int8) uint32 {
	return 0xA9000000 | (uint32(imm7)&0x7F)<<15 | uint32(rt2)<<10 |
		uint32(rn)<<5 | uint32(rt)
}

var _ = Describe("Memory access", func() {
	var e *emu.Emulator

	BeforeEach(func() {
		e = emu.NewEmulator()
	})

	stepOK := func(words ...uint32) {
		e.LoadProgram(0x1000, wordsToProgram(words...))
		for range words {
			result := e.Step()
			Expect(result.Err).To(BeNil())
		}
	}

	Describe("loads and stores", func() {
		It("should round-trip a 64-bit value", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(1, 0xCAFEBABE12345678)
			stepOK(
				encodeSTR64(1, 0, 1), // [X0+8]
				encodeLDR64(2, 0, 1),
			)

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(0xCAFEBABE12345678)))
		})

		It("should write back the base on post-index", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.Memory().Write64(0x4000, 0x1111)
			stepOK(encodeLDRPost(1, 0, 8))

			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(0x1111)))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(0x4008)))
		})

		It("should load and store register pairs", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(1, 10)
			e.RegFile().WriteReg(2, 20)
			stepOK(
				encodeSTP64(1, 2, 0, 0),
				encodeLDP64(3, 4, 0, 0),
			)

			Expect(e.RegFile().ReadReg(3)).To(Equal(uint64(10)))
			Expect(e.RegFile().ReadReg(4)).To(Equal(uint64(20)))
		})
	})

	Describe("exclusive access", func() {
		It("should succeed on a paired LDXR/STXR", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(3, 77)
			e.Memory().Write64(0x4000, 1)
			stepOK(
				encodeLDXR(1, 0),
				encodeSTXR(2, 3, 0),
			)

			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(1)))
			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(0))) // success
			Expect(e.Memory().Read64(0x4000)).To(Equal(uint64(77)))
		})

		It("should fail a store-exclusive with no reservation", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(3, 77)
			e.Memory().Write64(0x4000, 1)
			stepOK(encodeSTXR(2, 3, 0))

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(1))) // failure
			Expect(e.Memory().Read64(0x4000)).To(Equal(uint64(1)))
		})

		It("should fail after CLREX drops the reservation", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(3, 77)
			stepOK(
				encodeLDXR(1, 0),
				encodeCLREX(),
				encodeSTXR(2, 3, 0),
			)

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(1)))
		})

		It("should clear the reservation after a successful store", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(3, 77)
			stepOK(
				encodeLDXR(1, 0),
				encodeSTXR(2, 3, 0),
				encodeSTXR(4, 3, 0),
			)

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(0)))
			Expect(e.RegFile().ReadReg(4)).To(Equal(uint64(1)))
		})

		It("should abort on a misaligned exclusive access", func() {
			e.RegFile().WriteReg(0, 0x4001)
			e.LoadProgram(0x1000, wordsToProgram(encodeLDXR(1, 0)))

			Expect(func() { e.Step() }).To(Panic())
		})
	})

	Describe("shared global monitor", func() {
		It("should fail a store-exclusive after another thread writes the granule", func() {
			memory := emu.NewMemory()
			monitor := emu.NewGlobalMonitor()
			e1 := emu.NewEmulator(emu.WithMemory(memory), emu.WithGlobalMonitor(monitor))
			e2 := emu.NewEmulator(emu.WithMemory(memory), emu.WithGlobalMonitor(monitor))

			e1.RegFile().WriteReg(0, 0x4000)
			e1.RegFile().WriteReg(3, 77)
			e1.LoadProgram(0x1000, wordsToProgram(
				encodeLDXR(1, 0),
				encodeSTXR(2, 3, 0),
			))

			e2.RegFile().WriteReg(0, 0x4000)
			e2.RegFile().WriteReg(1, 55)
			e2.LoadProgram(0x2000, wordsToProgram(encodeSTLR(1, 0)))

			Expect(e1.Step().Err).To(BeNil()) // LDXR takes the reservation
			Expect(e2.Step().Err).To(BeNil()) // intervening ordered store
			Expect(e1.Step().Err).To(BeNil()) // STXR must fail

			Expect(e1.RegFile().ReadReg(2)).To(Equal(uint64(1)))
			Expect(memory.Read64(0x4000)).To(Equal(uint64(55)))
		})
	})

	Describe("compare and swap", func() {
		It("should swap when the comparison matches", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(1, 10) // expected
			e.RegFile().WriteReg(2, 20) // desired
			e.Memory().Write64(0x4000, 10)
			stepOK(encodeCAS(1, 2, 0))

			Expect(e.Memory().Read64(0x4000)).To(Equal(uint64(20)))
			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(10)))
		})

		It("should leave memory alone when the comparison fails", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(1, 99)
			e.RegFile().WriteReg(2, 20)
			e.Memory().Write64(0x4000, 10)
			stepOK(encodeCAS(1, 2, 0))

			Expect(e.Memory().Read64(0x4000)).To(Equal(uint64(10)))
			Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(10))) // observed value
		})

		It("should clear the local monitor even on a failed comparison", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(1, 99)
			e.RegFile().WriteReg(2, 20)
			e.RegFile().WriteReg(3, 77)
			e.Memory().Write64(0x4000, 10)
			stepOK(
				encodeLDXR(4, 0),
				encodeCAS(1, 2, 0),
				encodeSTXR(5, 3, 0),
			)

			Expect(e.RegFile().ReadReg(5)).To(Equal(uint64(1)))
		})
	})

	Describe("atomic memory operations", func() {
		It("should add and return the old value", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(1, 5)
			e.Memory().Write64(0x4000, 100)
			stepOK(encodeLDADD(1, 2, 0))

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(100)))
			Expect(e.Memory().Read64(0x4000)).To(Equal(uint64(105)))
		})

		It("should swap values", func() {
			e.RegFile().WriteReg(0, 0x4000)
			e.RegFile().WriteReg(1, 5)
			e.Memory().Write64(0x4000, 100)
			stepOK(encodeSWP(1, 2, 0))

			Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(100)))
			Expect(e.Memory().Read64(0x4000)).To(Equal(uint64(5)))
		})
	})
})
