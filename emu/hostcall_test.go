package emu_test

import (
	"bytes"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/a64sim/emu"
)

func encodeHLT(imm uint16) uint32 {
	return 0xD4400000 | uint32(imm)<<5
}

const (
	hltPrintf          = 0xdeb1
	hltTrace           = 0xdeb2
	hltLog             = 0xdeb3
	hltRuntimeCall     = 0xdeb4
	hltSetFeatures     = 0xdeb5
	hltEnableFeatures  = 0xdeb6
	hltDisableFeatures = 0xdeb7
	hltSaveFeatures    = 0xdeb8
	hltRestoreFeatures = 0xdeb9
)

var _ = Describe("Host calls", func() {
	var (
		e         *emu.Emulator
		stdoutBuf *bytes.Buffer
		stderrBuf *bytes.Buffer
	)

	BeforeEach(func() {
		stdoutBuf = &bytes.Buffer{}
		stderrBuf = &bytes.Buffer{}
		e = emu.NewEmulator(
			emu.WithStdout(stdoutBuf),
			emu.WithStderr(stderrBuf),
		)
	})

	writeString := func(addr uint64, s string) {
		e.Memory().WriteBytes(addr, append([]byte(s), 0))
	}

	Describe("printf", func() {
		It("should format an integer argument", func() {
			writeString(0x3000, "value=%d\n")
			e.RegFile().WriteReg(0, 0x3000)
			e.RegFile().WriteReg(1, 123)
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltPrintf), 1, 2, // one X argument
			))

			Expect(e.Step().Err).To(BeNil())

			Expect(stdoutBuf.String()).To(Equal("value=123\n"))
			Expect(e.RegFile().ReadReg(0)).To(Equal(uint64(10)))
			Expect(e.RegFile().PC).To(Equal(uint64(0x100C)))
		})

		It("should format a string argument", func() {
			writeString(0x3000, "hello %s\n")
			writeString(0x3100, "world")
			e.RegFile().WriteReg(0, 0x3000)
			e.RegFile().WriteReg(1, 0x3100)
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltPrintf), 1, 2,
			))

			Expect(e.Step().Err).To(BeNil())

			Expect(stdoutBuf.String()).To(Equal("hello world\n"))
		})

		It("should take double arguments from the vector registers", func() {
			writeString(0x3000, "%.1f\n")
			e.RegFile().WriteReg(0, 0x3000)
			e.VecFile().WriteScalar(0, math.Float64bits(1.5), 3)
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltPrintf), 1, 3, // one D argument
			))

			Expect(e.Step().Err).To(BeNil())

			Expect(stdoutBuf.String()).To(Equal("1.5\n"))
		})

		It("should handle the C length modifiers", func() {
			writeString(0x3000, "%ld %lu\n")
			e.RegFile().WriteReg(0, 0x3000)
			e.RegFile().WriteReg(1, ^uint64(0)) // -1 signed
			e.RegFile().WriteReg(2, 7)
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltPrintf), 2, 2|2<<2,
			))

			Expect(e.Step().Err).To(BeNil())

			Expect(stdoutBuf.String()).To(Equal("-1 7\n"))
		})
	})

	Describe("runtime calls", func() {
		It("should invoke the registered function", func() {
			index := e.RegisterRuntimeCall(func(em *emu.Emulator) {
				em.RegFile().WriteReg(5, 99)
			})
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltRuntimeCall), index,
			))

			Expect(e.Step().Err).To(BeNil())

			Expect(e.RegFile().ReadReg(5)).To(Equal(uint64(99)))
			Expect(e.RegFile().PC).To(Equal(uint64(0x1008)))
		})

		It("should abort on an unregistered index", func() {
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltRuntimeCall), 42,
			))

			Expect(func() { e.Step() }).To(Panic())
		})
	})

	Describe("CPU features", func() {
		It("should set, adjust, and restore the feature set", func() {
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltSetFeatures), 0x3,
				encodeHLT(hltSaveFeatures),
				encodeHLT(hltDisableFeatures), 0x1,
				encodeHLT(hltRestoreFeatures),
			))

			Expect(e.Step().Err).To(BeNil())
			Expect(e.CPUFeatures()).To(Equal(uint64(0x3)))

			Expect(e.Step().Err).To(BeNil()) // save

			Expect(e.Step().Err).To(BeNil())
			Expect(e.CPUFeatures()).To(Equal(uint64(0x2)))

			Expect(e.Step().Err).To(BeNil()) // restore
			Expect(e.CPUFeatures()).To(Equal(uint64(0x3)))
		})

		It("should abort on a restore without a matching save", func() {
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltRestoreFeatures),
			))

			Expect(func() { e.Step() }).To(Panic())
		})
	})

	Describe("register dump", func() {
		It("should write the register state to stderr", func() {
			e.LoadProgram(0x1000, wordsToProgram(encodeHLT(hltLog), 0))

			Expect(e.Step().Err).To(BeNil())

			Expect(stderrBuf.String()).To(ContainSubstring("# PC"))
			Expect(stderrBuf.String()).To(ContainSubstring("x30"))
		})
	})

	Describe("tracing", func() {
		It("should emit a trace line per instruction once enabled", func() {
			e.LoadProgram(0x1000, wordsToProgram(
				encodeHLT(hltTrace), 0, 1,
				encodeMOVZ64(0, 7, 0),
			))

			Expect(e.Step().Err).To(BeNil())
			Expect(e.Step().Err).To(BeNil())

			Expect(stderrBuf.Len()).NotTo(BeZero())
		})
	})

	Describe("unknown traps", func() {
		It("should abort on an unrecognized HLT immediate", func() {
			e.LoadProgram(0x1000, wordsToProgram(encodeHLT(0xBEEF)))

			Expect(func() { e.Step() }).To(Panic())
		})
	})
})
